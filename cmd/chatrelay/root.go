package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "chatrelay",
	Short: "ChatRelay - conversational AI relay service",
	Long: `ChatRelay fronts multiple LLM backends behind a single chat API.

It keeps per-conversation memory in process, windows history into a token
budget before every provider call, and streams replies over SSE. Backends
are selected per request by name, with a configured default as fallback.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "chatrelay.yaml", "config file path")
}
