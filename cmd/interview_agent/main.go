// Package main provides the entry point for the interview assistant CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	jsonLogs   bool
	debugLogs  bool
)

var rootCmd = &cobra.Command{
	Use:   "interview_agent",
	Short: "AI-assisted technical interview assistant",
	Long: `Interview assistant for full-stack React/Node.js roles: ingests a resume, asks six
timed questions of rising difficulty, scores every answer and writes a summary.
Works offline with a local question bank and heuristic scorer when no Gemini key is set.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ./interview.yaml if present)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "Log as JSON")
	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "Enable debug logging")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
