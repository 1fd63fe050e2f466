// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/datatypes"
)

func TestExecutionPut_MarshalsRecord(t *testing.T) {
	client := &fakeDynamo{}
	s := NewDynamoExecutionStore(client, "executions", "")

	record := datatypes.NewExecutionRecord("default", "manual", time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, s.Put(context.Background(), record))

	require.Len(t, client.putInputs, 1)
	in := client.putInputs[0]
	assert.Equal(t, "executions", aws.ToString(in.TableName))

	var stored datatypes.ExecutionRecord
	require.NoError(t, attributevalue.UnmarshalMap(in.Item, &stored))
	assert.Equal(t, record.ExecutionID, stored.ExecutionID)
	assert.Equal(t, datatypes.StatusStarted, stored.Status)
	assert.Equal(t, record.TTL, stored.TTL)

	// The expiry attribute lives under the name native TTL acts on
	ttlAttr, ok := in.Item["ttl"].(*types.AttributeValueMemberN)
	require.True(t, ok, "ttl must be a numeric attribute")
	assert.NotEmpty(t, ttlAttr.Value)
}

func TestExecutionPut_Error(t *testing.T) {
	client := &fakeDynamo{putErr: errors.New("table missing")}
	s := NewDynamoExecutionStore(client, "executions", "")

	err := s.Put(context.Background(), datatypes.ExecutionRecord{ExecutionID: "exec-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table missing")
}

func TestExecutionGet_ReturnsRecord(t *testing.T) {
	record := datatypes.NewExecutionRecord("default", "manual", time.Now())
	item, err := attributevalue.MarshalMap(record)
	require.NoError(t, err)

	client := &fakeDynamo{getOutput: &dynamodb.GetItemOutput{Item: item}}
	s := NewDynamoExecutionStore(client, "executions", "")

	got, err := s.Get(context.Background(), "default", record.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, record.ExecutionID, got.ExecutionID)

	require.Len(t, client.getInputs, 1)
	key := client.getInputs[0].Key
	assert.Equal(t, &types.AttributeValueMemberS{Value: "default"}, key["tenant_id"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: record.ExecutionID}, key["execution_id"])
}

func TestExecutionGet_NotFound(t *testing.T) {
	client := &fakeDynamo{getOutput: &dynamodb.GetItemOutput{}}
	s := NewDynamoExecutionStore(client, "executions", "")

	_, err := s.Get(context.Background(), "default", "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestExecutionListRecent_QueryShape(t *testing.T) {
	client := &fakeDynamo{}
	s := NewDynamoExecutionStore(client, "executions", "")

	_, err := s.ListRecent(context.Background(), "acme-corp", 25)
	require.NoError(t, err)

	require.Len(t, client.queryInputs, 1)
	in := client.queryInputs[0]
	assert.Equal(t, DefaultTenantTimestampIndex, aws.ToString(in.IndexName))
	assert.Equal(t, "tenant_id = :tid", aws.ToString(in.KeyConditionExpression))
	assert.False(t, aws.ToBool(in.ScanIndexForward), "listing must be newest first")
	assert.Equal(t, int32(25), aws.ToInt32(in.Limit))
}

func TestExecutionListRecent_DefaultLimit(t *testing.T) {
	client := &fakeDynamo{}
	s := NewDynamoExecutionStore(client, "executions", "custom-index")

	_, err := s.ListRecent(context.Background(), "default", 0)
	require.NoError(t, err)

	require.Len(t, client.queryInputs, 1)
	assert.Equal(t, "custom-index", aws.ToString(client.queryInputs[0].IndexName))
	assert.Equal(t, int32(100), aws.ToInt32(client.queryInputs[0].Limit))
}

func TestExecutionListRecent_ReturnsRecords(t *testing.T) {
	newest := datatypes.NewExecutionRecord("default", "manual", time.Now())
	oldest := datatypes.NewExecutionRecord("default", "scheduled", time.Now().Add(-time.Hour))
	newestItem, err := attributevalue.MarshalMap(newest)
	require.NoError(t, err)
	oldestItem, err := attributevalue.MarshalMap(oldest)
	require.NoError(t, err)

	client := &fakeDynamo{
		queryPages: []*dynamodb.QueryOutput{{
			Items: []map[string]types.AttributeValue{newestItem, oldestItem},
		}},
	}
	s := NewDynamoExecutionStore(client, "executions", "")

	records, err := s.ListRecent(context.Background(), "default", 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, newest.ExecutionID, records[0].ExecutionID)
	assert.Equal(t, oldest.ExecutionID, records[1].ExecutionID)
}
