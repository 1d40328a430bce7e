package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "beacon",
		Short: "WebSocket signaling relay for peer-to-peer calls",
		Long: `Beacon is a lightweight signaling relay.

Clients connect over WebSocket, gather in named rooms, and exchange
opaque signaling payloads point-to-point. Beacon keeps the room
roster, elects a host, and relays signals; it never inspects the
payloads it forwards.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
