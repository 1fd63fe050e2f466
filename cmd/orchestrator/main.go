// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command orchestrator starts the AleutianSentinel validation orchestrator
// HTTP server.
//
// This is the main entry point for the containerized orchestrator service.
// It reads configuration from environment variables (optionally layered on
// top of a YAML config file) and starts the server.
//
// # Environment Variables
//
//   - SENTINEL_CONFIG_FILE: Optional YAML config file path
//   - ORCHESTRATOR_PORT: HTTP server port (default: 12310)
//   - AWS_REGION: AWS region for DynamoDB and Lambda (default: us-east-1)
//   - AWS_ENDPOINT_URL: Endpoint override for LocalStack/DynamoDB Local (optional)
//   - KSI_CONFIG_TABLE: Tenant KSI configuration table (default: sentinel-tenant-ksi-configs)
//   - KSI_EXECUTION_TABLE: Execution record table (default: sentinel-ksi-executions)
//   - VALIDATOR_PREFIX: Validator function name prefix (default: sentinel-validator)
//   - ENVIRONMENT: Deployment environment suffix (default: dev)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: sentinel-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o orchestrator ./cmd/orchestrator
//
//	# Run
//	./orchestrator
//
//	# Or via container
//	podman-compose up orchestrator
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/AleutianAI/AleutianSentinel/services/orchestrator"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Start from an optional YAML config file, then overlay environment
	// variables so container deployments win
	var cfg orchestrator.Config
	if path := os.Getenv("SENTINEL_CONFIG_FILE"); path != "" {
		fileCfg, err := orchestrator.LoadConfigFile(path)
		if err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
		cfg = fileCfg
		slog.Info("Loaded configuration file", "path", path)
	}

	cfg.Port = getEnvInt("ORCHESTRATOR_PORT", cfg.Port)
	cfg.AWSRegion = getEnvString("AWS_REGION", cfg.AWSRegion)
	cfg.AWSEndpoint = getEnvString("AWS_ENDPOINT_URL", cfg.AWSEndpoint)
	cfg.AWSAccessKeyID = getEnvString("AWS_ACCESS_KEY_ID", cfg.AWSAccessKeyID)
	cfg.AWSSecretAccessKey = getEnvString("AWS_SECRET_ACCESS_KEY", cfg.AWSSecretAccessKey)
	cfg.ConfigTable = getEnvString("KSI_CONFIG_TABLE", cfg.ConfigTable)
	cfg.ExecutionTable = getEnvString("KSI_EXECUTION_TABLE", cfg.ExecutionTable)
	cfg.ExecutionIndex = getEnvString("KSI_EXECUTION_INDEX", cfg.ExecutionIndex)
	cfg.ValidatorPrefix = getEnvString("VALIDATOR_PREFIX", cfg.ValidatorPrefix)
	cfg.Environment = getEnvString("ENVIRONMENT", cfg.Environment)
	cfg.OTelEndpoint = getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTelEndpoint)
	cfg.GinMode = getEnvString("GIN_MODE", cfg.GinMode)

	slog.Info("Starting orchestrator",
		"port", cfg.Port,
		"aws_region", cfg.AWSRegion,
		"validator_prefix", cfg.ValidatorPrefix,
		"environment", cfg.Environment,
	)

	svc, err := orchestrator.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create orchestrator: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Orchestrator error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
