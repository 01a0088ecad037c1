package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "tracker-auth",
	Short: "Authentication and project membership service for the task tracker",
	Long: `tracker-auth issues access and refresh tokens, keeps project memberships
and answers permission checks for the task tracker.

Configuration is read from config.yml, a .env file and TRACKER_* environment
variables, in increasing order of precedence.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config.yml")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
}
