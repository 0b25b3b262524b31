package main

import (
	"fmt"
	"os"

	"github.com/adamzweiger/Fewshot-TTT/src/logging"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1 // missing input, missing field, bad configuration, write failure
)

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return ExitError
}

func main() {
	err := execute()
	logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}
