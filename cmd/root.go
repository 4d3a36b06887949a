package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	envFile string
	rootCmd = &cobra.Command{
		Use:   "beedee",
		Short: "Birthday reminder and command bot for group chats",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env only when asked (useful in development)
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("error loading %s: %w", envFile, err)
				}
			}
			return nil
		},
		SilenceUsage: true,
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this .env file first")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(respondCmd)
	rootCmd.AddCommand(migrateCmd)
}
