// Command paymentsd serves the storefront payments API: checkout sessions,
// provider webhooks, and creator payouts.
//
//	paymentsd serve     # run the HTTP server (default)
//	paymentsd migrate   # create or update the ledger schema and exit
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	_ "github.com/tbourn/creator-payments/docs" // registers the swagger spec
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "paymentsd",
		Short:         "Creator storefront payments service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is normal outside local development.
			if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	serve := serveCmd()
	root.AddCommand(serve)
	root.AddCommand(migrateCmd())
	root.RunE = serve.RunE

	return root
}
