package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/krasaetanont/vueMusic/server"
)

var rootCmd = &cobra.Command{
	Use:   "vuemusic",
	Short: "vueMusic is a self-hosted music library service.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
