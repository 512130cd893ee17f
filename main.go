package main

import (
	"os"

	"github.com/arbor-tools/arbor-ctl/cmd"
	"github.com/arbor-tools/arbor-ctl/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
