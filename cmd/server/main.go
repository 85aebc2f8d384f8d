// cmd/server/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/capdex/capdex-backend/internal/router"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "capdex",
		Short:   "Capdex - beer cap collection and trade service",
		Version: router.Version,
		Long: `Capdex tracks a beer cap collection, the printed barcode instances of
each cap, and the trades those instances are reserved into.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(hashPasswordCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
