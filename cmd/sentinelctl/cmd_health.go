// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// healthCmd checks orchestrator liveness.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check orchestrator health",
	Run:   runHealthCommand,
}

func runHealthCommand(cmd *cobra.Command, args []string) {
	var status struct {
		Status string `json:"status"`
	}
	if err := getJSON(serverURL+"/health", &status); err != nil {
		fmt.Fprintf(os.Stderr, "Orchestrator unreachable: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(status)
		return
	}
	fmt.Printf("Orchestrator at %s: %s\n", serverURL,
		colorize(statusColor("COMPLETED"), status.Status))
}
