/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rakbuku",
	Short: "Book catalog and review API",
	Long: `rakbuku is a small HTTP service for cataloguing books and
user-submitted reviews, with JWT authentication for write access.

It also ships the offline tooling around the service: schema migrations
and a bulk importer for Goodreads library exports.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
