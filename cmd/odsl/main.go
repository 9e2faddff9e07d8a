package main

import (
	"os"

	"github.com/odsl-lang/odsl/cmd/odsl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
