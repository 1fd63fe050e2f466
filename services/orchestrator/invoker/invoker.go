// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package invoker calls one external validator process per category and
// converts every possible failure into a tagged result.
//
// The invoker is the orchestrator's error-isolation boundary: no matter
// what the downstream process does (unreachable, times out, faults, or
// returns garbage), Invoke returns exactly one ValidatorResult and never
// an error. A single category's failure therefore cannot abort a run.
package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/datatypes"
)

// =============================================================================
// Contract
// =============================================================================

// Payload is the request body sent to a category validator.
type Payload struct {
	ExecutionID string                      `json:"execution_id"`
	TenantID    string                      `json:"tenant_id"`
	KSIs        []datatypes.TenantKSIConfig `json:"ksis"`
	Timestamp   string                      `json:"timestamp"`
}

// Invoker invokes the validator process for one category.
//
// Implementations must return exactly one result per call and must not
// return an error: invocation-level failures are tagged ResultError inside
// the returned ValidatorResult.
type Invoker interface {
	// Invoke runs the category's validator synchronously and reports its
	// outcome.
	Invoke(ctx context.Context, category string, payload Payload) datatypes.ValidatorResult

	// FunctionName resolves the process identifier for a category.
	FunctionName(category string) string
}

// =============================================================================
// Lambda Implementation
// =============================================================================

// LambdaAPI is the subset of the Lambda client used by LambdaInvoker.
// Narrowing the dependency to one method keeps tests free of real AWS
// plumbing.
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaInvoker invokes category validators deployed as AWS Lambda
// functions named "{prefix}-{category}-{environment}".
type LambdaInvoker struct {
	client      LambdaAPI
	prefix      string
	environment string
}

// NewLambdaInvoker creates a LambdaInvoker with the given naming
// convention parts.
func NewLambdaInvoker(client LambdaAPI, prefix, environment string) *LambdaInvoker {
	return &LambdaInvoker{
		client:      client,
		prefix:      prefix,
		environment: environment,
	}
}

// FunctionName templates the category into the validator naming
// convention, e.g. ("sentinel-validator", "cna", "prod") ->
// "sentinel-validator-cna-prod".
func (i *LambdaInvoker) FunctionName(category string) string {
	return fmt.Sprintf("%s-%s-%s", i.prefix, category, i.environment)
}

// Invoke calls the category's Lambda function synchronously
// (RequestResponse) and waits for its reply.
//
// Outcome mapping:
//   - transport or service error      -> ResultError with the error text
//   - function-level fault            -> ResultError with the fault payload
//   - non-JSON response body          -> ResultError
//   - JSON object response            -> ResultSuccess carrying the payload
func (i *LambdaInvoker) Invoke(ctx context.Context, category string, payload Payload) datatypes.ValidatorResult {
	functionName := i.FunctionName(category)

	body, err := json.Marshal(payload)
	if err != nil {
		// Payload is built from our own structs; this only fires on a
		// programming error.
		return errorResult(category, functionName, fmt.Sprintf("failed to encode payload: %v", err))
	}

	slog.Info("Invoking category validator",
		"category", category,
		"function_name", functionName,
		"execution_id", payload.ExecutionID,
		"ksi_count", len(payload.KSIs))

	out, err := i.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(functionName),
		InvocationType: lambdatypes.InvocationTypeRequestResponse,
		Payload:        body,
	})
	if err != nil {
		slog.Error("Validator invocation failed",
			"category", category,
			"function_name", functionName,
			"error", err)
		return errorResult(category, functionName, err.Error())
	}

	if out.FunctionError != nil {
		slog.Error("Validator reported a function error",
			"category", category,
			"function_name", functionName,
			"function_error", *out.FunctionError)
		return errorResult(category, functionName,
			fmt.Sprintf("function error %s: %s", *out.FunctionError, string(out.Payload)))
	}

	var response map[string]interface{}
	if err := json.Unmarshal(out.Payload, &response); err != nil {
		slog.Error("Validator returned a malformed response",
			"category", category,
			"function_name", functionName,
			"error", err)
		return errorResult(category, functionName,
			fmt.Sprintf("malformed validator response: %v", err))
	}

	return datatypes.ValidatorResult{
		Validator:    category,
		Status:       datatypes.ResultSuccess,
		FunctionName: functionName,
		Result:       response,
	}
}

func errorResult(category, functionName, message string) datatypes.ValidatorResult {
	return datatypes.ValidatorResult{
		Validator:    category,
		Status:       datatypes.ResultError,
		FunctionName: functionName,
		Error:        message,
	}
}
