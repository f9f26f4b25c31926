package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "automaker",
	Short: "automaker is a local automation server",
	Long: `A local automation server guarded by a single shared API key.
Clients log in once to obtain a cookie-carried session; streaming
connections authenticate with short-lived tokens minted from that session.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
