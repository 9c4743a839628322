package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiURL     string
	timeoutSec int
)

var rootCmd = &cobra.Command{
	Use:   "threadctl",
	Short: "Fetch Bluesky self-reply threads from the command line",
	Long: `threadctl reconstructs a Bluesky self-reply thread and prints it,
using the same assembly as the sklonger server.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "AppView base URL (default public.api.bsky.app)")
	rootCmd.PersistentFlags().IntVar(&timeoutSec, "timeout", 10, "per-request timeout in seconds")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
