package main

import (
	"errors"
	"fmt"
	"os"

	"code.linksmart.eu/dt/pupdate/config"
)

const exitInterrupted = 130

func main() {
	config.ConfigureLogging(config.LoadEnv(config.EnvFile))

	err := newRootCommand(os.Stdout, os.Stderr).Execute()
	if errors.Is(err, errInterrupted) {
		os.Exit(exitInterrupted)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
