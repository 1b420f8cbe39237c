// Command ensemblectl runs a small demo system on top of the ensemble
// runtime and exposes a read-only statistics endpoint over HTTP. It exists
// to exercise the library end to end, not as a production supervisor.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lguibr/ensemble/cmd/ensemblectl/internal/demo"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ensemblectl",
		Short: "Run and inspect an ensemble actor/service system",
	}

	cmd.AddCommand(demo.NewRunCommand())
	return cmd
}
