package main

import (
	"fmt"
	"os"

	"github.com/temirov/mergewatch/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main runs mergewatch. Only configuration and discovery failures produce a
// non-zero exit; per-repository verdicts never do.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
