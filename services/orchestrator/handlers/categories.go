// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/datatypes"
	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/invoker"
)

// CategoryInfo describes one validator category and the process that
// serves it.
type CategoryInfo struct {
	Category     string `json:"category"`
	FunctionName string `json:"function_name"`
}

// HandleListCategories returns the known validator categories and the
// function each resolves to under the naming convention.
func HandleListCategories(inv invoker.Invoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories := make([]string, 0, len(datatypes.KnownCategories))
		for category := range datatypes.KnownCategories {
			categories = append(categories, category)
		}
		sort.Strings(categories)

		infos := make([]CategoryInfo, 0, len(categories))
		for _, category := range categories {
			infos = append(infos, CategoryInfo{
				Category:     category,
				FunctionName: inv.FunctionName(category),
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"categories": infos,
			"count":      len(infos),
		})
	}
}
