// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command sentinelctl is a small operator CLI for the AleutianSentinel
// validation orchestrator.
//
// It talks to the orchestrator HTTP API to trigger validation runs,
// inspect execution records, and check service health.
//
// # Usage
//
//	sentinelctl validate --tenant acme-corp
//	sentinelctl results --tenant acme-corp --limit 10
//	sentinelctl results --execution 9f1c...
//	sentinelctl health
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverURL  string
	jsonOutput bool

	rootCmd = &cobra.Command{
		Use:   "sentinelctl",
		Short: "A cli to operate the AleutianSentinel validation orchestrator",
		Long: `Sentinelctl triggers KSI validation runs, lists execution
records, and checks orchestrator health over the HTTP API.`,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		defaultServerURL(), "Orchestrator base URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output raw JSON for scripting")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(healthCmd)
}

// defaultServerURL prefers the SENTINEL_SERVER_URL environment variable.
func defaultServerURL() string {
	if url := os.Getenv("SENTINEL_SERVER_URL"); url != "" {
		return url
	}
	return "http://localhost:12310"
}
