package commands

// Root command for the Cobra CLI.
// Registers the shared config flags and every subcommand (bot, lookup, sessions).

import (
	"omni-trending/internal/infra/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "omni-trending",
	Short: "OmniTrending - Telegram bot that runs paid token trending sessions",
	Long: `OmniTrending walks users through picking a token and a trending package,
then posts a pinned status message to the trending channel and tracks price moves
from the moment an admin approves the request until the package runs out.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(sessionsCmd)
}
