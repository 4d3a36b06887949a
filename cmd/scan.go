package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Send today's birthday reminders once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.scanner.Run(cmd.Context())

		fmt.Fprintf(cmd.OutOrStdout(), "found=%d sent=%d failed=%d skipped=%d malformed=%d\n",
			summary.Found, summary.Sent, summary.Failed, summary.Skipped, summary.Malformed)

		return err
	},
}
