package main

import (
	"errors"
	"fmt"
	"os"

	"dynosched/pkg/logger"
)

func main() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err == nil {
		return
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.msg != "" {
			fmt.Fprintln(os.Stderr, exit.msg)
		}
		os.Exit(exit.code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// exitError ends the process with a specific code after output has already
// been printed.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
