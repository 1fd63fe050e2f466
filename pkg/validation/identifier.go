// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for caller-provided identifiers that end
// up in database query expressions or in payloads sent to external validator
// processes. Validating at the API boundary keeps injection attempts and
// junk partition keys out of the data layer.
package validation

import (
	"fmt"
	"regexp"
)

// tenantIDPattern matches valid tenant identifiers.
// Allows: lowercase letters, digits, hyphens and underscores between
// alphanumeric runs. Max length: 64 characters.
var tenantIDPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9_\-]{0,62}[a-z0-9])?$`)

// ksiIDPattern matches well-formed KSI identifiers: "KSI-<CATEGORY>-<NUMBER>"
// with an optional trailing suffix segment. The category token is not
// checked here; the data layer owns the known-category set.
var ksiIDPattern = regexp.MustCompile(`^KSI-[A-Za-z]{2,8}-[0-9]{1,4}(-[A-Za-z0-9]+)?$`)

// ValidateTenantID validates a tenant identifier before it is used as a
// partition key or passed to a validator process.
//
// Valid tenant ids:
//   - 1-64 characters
//   - Lowercase letters a-z and digits 0-9
//   - Hyphens (-) and underscores (_) in interior positions
//
// The sentinel value "all" is a valid tenant id and selects every tenant;
// callers that must exclude it do so themselves.
//
// Example:
//
//	if err := validation.ValidateTenantID(tenantID); err != nil {
//	    c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
//	    return
//	}
func ValidateTenantID(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("tenant id cannot be empty")
	}

	if !tenantIDPattern.MatchString(tenantID) {
		return fmt.Errorf("invalid tenant id format: %q (must be 1-64 lowercase alphanumeric chars, interior hyphens or underscores)", tenantID)
	}

	return nil
}

// ValidateKSIID validates a KSI identifier's shape without consulting the
// known-category set.
func ValidateKSIID(ksiID string) error {
	if ksiID == "" {
		return fmt.Errorf("KSI id cannot be empty")
	}

	if !ksiIDPattern.MatchString(ksiID) {
		return fmt.Errorf("invalid KSI id format: %q (expected KSI-<CATEGORY>-<NUMBER>)", ksiID)
	}

	return nil
}
