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

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	validateTenant string // Tenant to validate ("all" fans out to every tenant)
	validateSource string // Trigger source recorded on the execution
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// validateCmd triggers a synchronous validation run.
//
// # Examples
//
//	sentinelctl validate                      # Default tenant
//	sentinelctl validate --tenant acme-corp   # Single tenant
//	sentinelctl validate --tenant all         # Every configured tenant
//	sentinelctl validate --json               # JSON output for scripting
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Trigger a KSI validation run and wait for the result",
	Run:   runValidateCommand,
}

func init() {
	validateCmd.Flags().StringVarP(&validateTenant, "tenant", "t", "default",
		"Tenant to validate, or 'all' for every tenant")
	validateCmd.Flags().StringVarP(&validateSource, "source", "s", "cli",
		"Trigger source recorded on the execution")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// runSummaryView mirrors the orchestrator's run summary response.
type runSummaryView struct {
	ExecutionID       string            `json:"execution_id"`
	TenantID          string            `json:"tenant_id"`
	Status            string            `json:"status"`
	ValidatorsInvoked []string          `json:"validators_invoked"`
	TotalKSIs         int               `json:"total_ksis"`
	Results           []validatorResult `json:"results"`
	DegradedTenants   []string          `json:"degraded_tenants,omitempty"`
}

type validatorResult struct {
	Validator    string `json:"validator"`
	Status       string `json:"status"`
	FunctionName string `json:"function_name"`
	Error        string `json:"error,omitempty"`
}

func runValidateCommand(cmd *cobra.Command, args []string) {
	body := map[string]string{
		"tenant_id": validateTenant,
		"source":    validateSource,
	}

	var summary runSummaryView
	if err := postJSON(serverURL+"/v1/validate", body, &summary); err != nil {
		fmt.Fprintf(os.Stderr, "Validation run failed: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(summary)
		return
	}

	fmt.Printf("Execution: %s\n", summary.ExecutionID)
	fmt.Printf("Tenant:    %s\n", summary.TenantID)
	fmt.Printf("Status:    %s\n", colorize(statusColor(summary.Status), summary.Status))
	fmt.Printf("KSIs:      %d across %d validators\n\n", summary.TotalKSIs, len(summary.ValidatorsInvoked))

	for _, result := range summary.Results {
		fmt.Printf("  %s  %s (%s)\n",
			colorize(statusColor(result.Status), result.Status),
			result.Validator, result.FunctionName)
		if result.Error != "" {
			fmt.Printf("         %s\n", result.Error)
		}
	}

	if len(summary.DegradedTenants) > 0 {
		fmt.Printf("\nDegraded tenants: %v\n", summary.DegradedTenants)
	}
}
