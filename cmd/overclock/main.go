// Command overclock simulates accelerated machines against the batch
// resolution engine and inspects the journaled runs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/overclock/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
