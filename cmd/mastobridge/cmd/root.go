// Package cmd provides the CLI commands for mastobridge.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mastobridge/mastobridge/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mastobridge",
	Short: "mastobridge - a Mastodon-API-to-AT-Protocol gateway",
	Long: `mastobridge translates the Mastodon HTTP API into AT Protocol (Bluesky)
calls, so Mastodon-speaking clients can read and post through a Bluesky PDS
without knowing it isn't a real Mastodon instance.

Configuration is environment-first. Config is loaded from mastobridge.yaml
in the current directory or /etc/mastobridge/, then overridden by
MASTOBRIDGE_-prefixed environment variables.
Example: MASTOBRIDGE_SERVER_PORT=9090

Commands:
  serve         Start the gateway server
  hash-secret   Hash an OAuth client secret with the gateway's Argon2id parameters
  version       Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./mastobridge.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
