// Package commands implements the botti CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "botti",
		Short: "Botti - WhatsApp AI assistant",
		Long: `Botti is a conversational AI assistant that lives on WhatsApp.
It answers questions, reads links and documents, understands voice notes
and images, and can act as a domain-specific service assistant.

Examples:
  botti serve
  botti serve --scenario hairdresser
  botti chat
  botti setup`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newSetupCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
