package main

import (
	"fmt"
	"os"

	"github.com/backoffice-console/backoffice/cmd/consolectl/cli"
)

func main() {
	root := cli.NewRootCommand(cli.Options{Stdout: os.Stdout, Stderr: os.Stderr})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
