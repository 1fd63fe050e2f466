// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package invoker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/datatypes"
)

// fakeLambda scripts one Invoke response and records the input it saw.
type fakeLambda struct {
	output    *lambda.InvokeOutput
	err       error
	lastInput *lambda.InvokeInput
}

func (f *fakeLambda) Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func TestFunctionName_Template(t *testing.T) {
	inv := NewLambdaInvoker(&fakeLambda{}, "sentinel-validator", "prod")
	assert.Equal(t, "sentinel-validator-cna-prod", inv.FunctionName("cna"))
	assert.Equal(t, "sentinel-validator-iam-prod", inv.FunctionName("iam"))
}

func TestInvoke_Success(t *testing.T) {
	client := &fakeLambda{
		output: &lambda.InvokeOutput{
			Payload: []byte(`{"passed": 12, "failed": 0}`),
		},
	}
	inv := NewLambdaInvoker(client, "sentinel-validator", "dev")

	result := inv.Invoke(context.Background(), "cna", Payload{
		ExecutionID: "exec-1",
		TenantID:    "default",
	})

	assert.Equal(t, datatypes.ResultSuccess, result.Status)
	assert.Equal(t, "cna", result.Validator)
	assert.Equal(t, "sentinel-validator-cna-dev", result.FunctionName)
	assert.Equal(t, float64(12), result.Result["passed"])
	assert.Empty(t, result.Error)
}

func TestInvoke_SendsRequestResponse(t *testing.T) {
	client := &fakeLambda{
		output: &lambda.InvokeOutput{Payload: []byte(`{}`)},
	}
	inv := NewLambdaInvoker(client, "sentinel-validator", "dev")

	payload := Payload{
		ExecutionID: "exec-1",
		TenantID:    "acme-corp",
		KSIs: []datatypes.TenantKSIConfig{
			{TenantID: "acme-corp", KSIID: "KSI-CNA-01", Enabled: true},
		},
		Timestamp: "2025-06-15T12:00:00Z",
	}
	inv.Invoke(context.Background(), "cna", payload)

	require.NotNil(t, client.lastInput)
	assert.Equal(t, "sentinel-validator-cna-dev", aws.ToString(client.lastInput.FunctionName))
	assert.Equal(t, lambdatypes.InvocationTypeRequestResponse, client.lastInput.InvocationType)

	// The wire payload round-trips to the same structure
	var sent Payload
	require.NoError(t, json.Unmarshal(client.lastInput.Payload, &sent))
	assert.Equal(t, payload.ExecutionID, sent.ExecutionID)
	assert.Equal(t, payload.TenantID, sent.TenantID)
	require.Len(t, sent.KSIs, 1)
	assert.Equal(t, "KSI-CNA-01", sent.KSIs[0].KSIID)
}

func TestInvoke_TransportError(t *testing.T) {
	client := &fakeLambda{err: errors.New("connection refused")}
	inv := NewLambdaInvoker(client, "sentinel-validator", "dev")

	result := inv.Invoke(context.Background(), "svc", Payload{})

	assert.Equal(t, datatypes.ResultError, result.Status)
	assert.Equal(t, "svc", result.Validator)
	assert.Contains(t, result.Error, "connection refused")
	assert.Nil(t, result.Result)
}

func TestInvoke_FunctionError(t *testing.T) {
	client := &fakeLambda{
		output: &lambda.InvokeOutput{
			FunctionError: aws.String("Unhandled"),
			Payload:       []byte(`{"errorMessage": "boom"}`),
		},
	}
	inv := NewLambdaInvoker(client, "sentinel-validator", "dev")

	result := inv.Invoke(context.Background(), "iam", Payload{})

	assert.Equal(t, datatypes.ResultError, result.Status)
	assert.Contains(t, result.Error, "Unhandled")
	assert.Contains(t, result.Error, "boom")
}

func TestInvoke_MalformedResponse(t *testing.T) {
	client := &fakeLambda{
		output: &lambda.InvokeOutput{Payload: []byte("not json")},
	}
	inv := NewLambdaInvoker(client, "sentinel-validator", "dev")

	result := inv.Invoke(context.Background(), "mla", Payload{})

	assert.Equal(t, datatypes.ResultError, result.Status)
	assert.Contains(t, result.Error, "malformed validator response")
}
