package main

import (
	"os"

	"plotstream/cmd"
	"plotstream/internal/build"
	"plotstream/internal/log"
)

// main initialises build information and hands over to the command line.
// Development builds run without ldflags, so missing values only warn.
func main() {
	if err := build.Initialize(); err != nil {
		log.Debugf("build info: %v", err)
	}

	if err := cmd.Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
