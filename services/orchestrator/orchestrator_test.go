// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyConfigDefaults_FillsZeroValues(t *testing.T) {
	cfg := applyConfigDefaults(Config{})

	assert.Equal(t, 12310, cfg.Port)
	assert.Equal(t, "sentinel-otel-collector:4317", cfg.OTelEndpoint)
	assert.Equal(t, "us-east-1", cfg.AWSRegion)
	assert.Equal(t, "sentinel-tenant-ksi-configs", cfg.ConfigTable)
	assert.Equal(t, "sentinel-ksi-executions", cfg.ExecutionTable)
	assert.Equal(t, "tenant-timestamp-index", cfg.ExecutionIndex)
	assert.Equal(t, "sentinel-validator", cfg.ValidatorPrefix)
	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, 5, cfg.MaxParallelValidators)
	assert.Equal(t, float64(6), cfg.TriggerRatePerMinute)
	assert.Equal(t, 3, cfg.TriggerBurst)
	assert.False(t, cfg.DisableMetrics)
}

func TestApplyConfigDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := applyConfigDefaults(Config{
		Port:            9000,
		AWSRegion:       "eu-west-1",
		ValidatorPrefix: "fedramp-validator",
		Environment:     "prod",
		DisableMetrics:  true,
	})

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	assert.Equal(t, "fedramp-validator", cfg.ValidatorPrefix)
	assert.Equal(t, "prod", cfg.Environment)
	assert.True(t, cfg.DisableMetrics)
}

func TestLoadConfigFile_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	content := `
port: 9090
aws_region: us-west-2
config_table: custom-configs
validator_prefix: custom-validator
environment: staging
trigger_rate_per_minute: 12
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "us-west-2", cfg.AWSRegion)
	assert.Equal(t, "custom-configs", cfg.ConfigTable)
	assert.Equal(t, "custom-validator", cfg.ValidatorPrefix)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, float64(12), cfg.TriggerRatePerMinute)

	// Unset fields stay zero and pick up defaults later
	assert.Zero(t, cfg.ExecutionTable)
}

func TestLoadConfigFile_MissingFile(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfigFile_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not an int"), 0o600))

	_, err := LoadConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}
