package cmd

import (
	"github.com/spf13/cobra"

	"github.com/krasaetanont/vueMusic/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the vueMusic HTTP server",
	Long:  `Start the music library HTTP server, serving the REST API and the stored audio and lyric files.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
