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
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	resultsTenant    string
	resultsExecution string
	resultsCategory  string
	resultsStatus    string
	resultsLimit     int
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// resultsCmd lists validation execution records.
//
// # Examples
//
//	sentinelctl results                          # Recent runs, default tenant
//	sentinelctl results --tenant acme-corp
//	sentinelctl results --execution 9f1c...      # A single run by id
//	sentinelctl results --category iam --limit 5
var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List KSI validation execution records",
	Run:   runResultsCommand,
}

func init() {
	resultsCmd.Flags().StringVarP(&resultsTenant, "tenant", "t", "default",
		"Tenant whose executions to list")
	resultsCmd.Flags().StringVarP(&resultsExecution, "execution", "e", "",
		"Fetch a single execution by id")
	resultsCmd.Flags().StringVarP(&resultsCategory, "category", "c", "",
		"Only runs that invoked this category (cna, svc, iam, mla, cmt)")
	resultsCmd.Flags().StringVar(&resultsStatus, "status", "",
		"Only runs with this status (STARTED, COMPLETED, FAILED)")
	resultsCmd.Flags().IntVarP(&resultsLimit, "limit", "n", 0,
		"Maximum records to return (server default: 100)")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// resultListView mirrors the orchestrator's execution listing response.
type resultListView struct {
	Results []resultView `json:"results"`
	Count   int          `json:"count"`
}

type resultView struct {
	ExecutionID         string            `json:"execution_id"`
	TenantID            string            `json:"tenant_id"`
	Timestamp           string            `json:"timestamp"`
	Status              string            `json:"status"`
	ValidatorsCompleted []string          `json:"validators_completed"`
	ValidationResults   []validatorResult `json:"validation_results"`
}

func runResultsCommand(cmd *cobra.Command, args []string) {
	query := url.Values{}
	query.Set("tenant_id", resultsTenant)
	if resultsExecution != "" {
		query.Set("execution_id", resultsExecution)
	}
	if resultsCategory != "" {
		query.Set("category", resultsCategory)
	}
	if resultsStatus != "" {
		query.Set("status", resultsStatus)
	}
	if resultsLimit > 0 {
		query.Set("limit", fmt.Sprintf("%d", resultsLimit))
	}

	var listing resultListView
	if err := getJSON(serverURL+"/v1/executions?"+query.Encode(), &listing); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list executions: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(listing)
		return
	}

	if listing.Count == 0 {
		fmt.Println("No execution records found.")
		return
	}

	for _, record := range listing.Results {
		fmt.Printf("%s  %s  %s  tenant=%s  validators=%d\n",
			record.Timestamp,
			colorize(statusColor(record.Status), record.Status),
			record.ExecutionID,
			record.TenantID,
			len(record.ValidatorsCompleted))

		// Detail view when fetching a single execution
		if resultsExecution != "" {
			for _, result := range record.ValidationResults {
				fmt.Printf("    %s  %s (%s)\n",
					colorize(statusColor(result.Status), result.Status),
					result.Validator, result.FunctionName)
				if result.Error != "" {
					fmt.Printf("           %s\n", result.Error)
				}
			}
		}
	}
	fmt.Printf("\n%d record(s)\n", listing.Count)
}
