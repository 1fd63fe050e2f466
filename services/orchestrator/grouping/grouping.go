// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package grouping partitions tenant KSI configurations into validator
// category buckets ahead of the per-category fan-out.
package grouping

import (
	"log/slog"
	"sort"

	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/datatypes"
)

// GroupByCategory partitions configs into buckets keyed by validator
// category.
//
// Description:
//
//	Each entry's KSI id ("KSI-<CATEGORY>-<NUMBER>") is decomposed and the
//	lower-cased category token selects the bucket. Entries with malformed
//	ids or category tokens outside the known set are dropped with a
//	warning; the drop is never an error. The partition is stable: within
//	a bucket, entries keep their relative input order. Categories with no
//	members do not appear in the output.
//
// Inputs:
//   - configs: Ordered tenant KSI configurations. May be empty or nil.
//
// Outputs:
//   - map[string][]datatypes.TenantKSIConfig: Non-empty buckets by category.
func GroupByCategory(configs []datatypes.TenantKSIConfig) map[string][]datatypes.TenantKSIConfig {
	groups := make(map[string][]datatypes.TenantKSIConfig)
	for _, cfg := range configs {
		category, err := cfg.Category()
		if err != nil {
			slog.Warn("Dropping KSI configuration with unusable identifier",
				"tenant_id", cfg.TenantID,
				"ksi_id", cfg.KSIID,
				"error", err)
			continue
		}
		groups[category] = append(groups[category], cfg)
	}
	return groups
}

// SortedCategories returns the bucket keys in lexicographic order. The
// fan-out and all persisted category lists use this ordering so run output
// is deterministic regardless of invocation completion order.
func SortedCategories(groups map[string][]datatypes.TenantKSIConfig) []string {
	categories := make([]string, 0, len(groups))
	for category := range groups {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

// TotalKSIs sums bucket sizes across all categories. Entries dropped at
// grouping time are excluded by construction.
func TotalKSIs(groups map[string][]datatypes.TenantKSIConfig) int {
	total := 0
	for _, bucket := range groups {
		total += len(bucket)
	}
	return total
}
