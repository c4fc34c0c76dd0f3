// Command glimmer is the entry point for the glimmer bytecode
// interpreter's CLI.
package main

import (
	"fmt"
	"os"

	"github.com/glimmer-lang/glimmer/pkg/cli"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "internal error: %v\n", r)
			os.Exit(1)
		}
	}()

	cli.Execute()
}
