package cmd

import (
	"fmt"
	"io"
	"os"

	"beedee/bot/events"

	"github.com/spf13/cobra"
)

var envelopePath string

// respondCmd handles one function-URL style invocation, the payload shape used when the
// callback runs behind a serverless gateway instead of `serve`.
var respondCmd = &cobra.Command{
	Use:   "respond",
	Short: "Handle one callback invocation read from a file or stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readEnvelope(cmd.InOrStdin())
		if err != nil {
			return err
		}

		env, err := events.DecodeEnvelope(raw)
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		outcome, err := a.responder.Handle(cmd.Context(), env)
		fmt.Fprintln(cmd.OutOrStdout(), outcome)
		return err
	},
}

func readEnvelope(stdin io.Reader) ([]byte, error) {
	if envelopePath == "" || envelopePath == "-" {
		return io.ReadAll(stdin)
	}

	raw, err := os.ReadFile(envelopePath)
	if err != nil {
		return nil, fmt.Errorf("read envelope %s: %w", envelopePath, err)
	}
	return raw, nil
}

func init() {
	respondCmd.Flags().StringVarP(&envelopePath, "file", "f", "-", "envelope JSON file, - for stdin")
}
