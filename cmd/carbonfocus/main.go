// Command carbonfocus is the personal carbon footprint tracker CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rshade/carbonfocus/internal/cli"
	"github.com/rshade/carbonfocus/pkg/version"
)

func main() {
	os.Exit(extractExitCode(run()))
}

func run() error {
	root := cli.NewRootCmd(version.GetVersion())
	root.SilenceErrors = true
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// extractExitCode maps a command error to the process exit code.
func extractExitCode(err error) int {
	return cli.ExitCodeFor(err)
}
