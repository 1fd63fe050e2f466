// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the data model shared by the KSI validation
// orchestrator: tenant KSI configurations, execution records, and the
// per-category validator results aggregated into them.
package datatypes

import (
	"fmt"
	"strings"
)

// =============================================================================
// Validator Categories
// =============================================================================

// Validator categories recognized by the orchestrator. A KSI identifier's
// second segment must lower-case to one of these or the entry is dropped
// at grouping time.
const (
	CategoryCNA = "cna" // Cloud Native Architecture
	CategorySVC = "svc" // Service Configuration
	CategoryIAM = "iam" // Identity and Access Management
	CategoryMLA = "mla" // Monitoring, Logging, and Auditing
	CategoryCMT = "cmt" // Change Management
)

// KnownCategories is the fixed set of validator categories.
var KnownCategories = map[string]bool{
	CategoryCNA: true,
	CategorySVC: true,
	CategoryIAM: true,
	CategoryMLA: true,
	CategoryCMT: true,
}

// ksiIDPrefix is the literal first segment of every well-formed KSI id.
const ksiIDPrefix = "KSI"

// KSI priority labels as stored in the tenant configuration table.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// =============================================================================
// Tenant KSI Configuration
// =============================================================================

// TenantKSIConfig is one tenant-scoped KSI check configuration, one item
// per (tenant_id, ksi_id) in the tenant configuration table. The
// orchestrator treats these as read-only; they are written by tenant
// administration tooling.
type TenantKSIConfig struct {
	TenantID    string `json:"tenant_id" dynamodbav:"tenant_id"`
	KSIID       string `json:"ksi_id" dynamodbav:"ksi_id"`
	Enabled     bool   `json:"enabled" dynamodbav:"enabled"`
	Priority    string `json:"priority,omitempty" dynamodbav:"priority,omitempty"`
	Schedule    string `json:"schedule,omitempty" dynamodbav:"schedule,omitempty"`
	LastUpdated string `json:"last_updated,omitempty" dynamodbav:"last_updated,omitempty"`
}

// Category extracts the validator category from the configuration's KSI id.
//
// A well-formed id is "KSI-<CATEGORY>-<NUMBER>", e.g. "KSI-CNA-01". The
// category token is lower-cased before the known-set check so stored ids
// may use either case. Malformed ids and unknown category tokens both
// return a *MalformedConfigurationError; callers decide whether that is
// fatal (decoding a trusted payload) or a drop-with-warning (grouping).
func (c TenantKSIConfig) Category() (string, error) {
	parts := strings.Split(c.KSIID, "-")
	if len(parts) < 3 {
		return "", &MalformedConfigurationError{
			KSIID:  c.KSIID,
			Reason: "expected at least three dash-separated segments",
		}
	}
	if parts[0] != ksiIDPrefix {
		return "", &MalformedConfigurationError{
			KSIID:  c.KSIID,
			Reason: fmt.Sprintf("identifier must start with %q", ksiIDPrefix),
		}
	}
	category := strings.ToLower(parts[1])
	if !KnownCategories[category] {
		return "", &MalformedConfigurationError{
			KSIID:  c.KSIID,
			Reason: fmt.Sprintf("unknown validator category %q", category),
		}
	}
	return category, nil
}

// =============================================================================
// Errors
// =============================================================================

// MalformedConfigurationError reports a KSI configuration whose identifier
// does not decompose into a known category and numeric suffix.
type MalformedConfigurationError struct {
	KSIID  string
	Reason string
}

func (e *MalformedConfigurationError) Error() string {
	return fmt.Sprintf("malformed KSI configuration %q: %s", e.KSIID, e.Reason)
}
