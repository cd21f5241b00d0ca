package app

import (
	"os"
	"strconv"
)

// TestModeEnv names the variable that keeps entrypoints from starting servers.
const TestModeEnv = "BACKOFFICE_TEST_MODE"

// InTestMode reports whether BACKOFFICE_TEST_MODE holds a true value. Entrypoints return
// immediately in test mode so test binaries can import them without side effects.
func InTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	return err == nil && on
}
