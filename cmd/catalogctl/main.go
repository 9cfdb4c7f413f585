// Command catalogctl expands attribute matrices and maps backend error payloads offline.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Book variation tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(expandCmd(), mapErrorsCmd())
	return cmd
}
