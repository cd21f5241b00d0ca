// Package guard is blank-imported by tests of packages that could otherwise reach real
// services. It switches the console into test mode and points the API at a closed port.
package guard

import "os"

func init() {
	setDefault("BACKOFFICE_TEST_MODE", "true")
	setDefault("API_BASE_URL", "http://127.0.0.1:1/api")
}

func setDefault(key, value string) {
	if _, ok := os.LookupEnv(key); !ok {
		_ = os.Setenv(key, value)
	}
}
