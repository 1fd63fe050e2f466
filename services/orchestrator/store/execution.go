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
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/datatypes"
)

// ErrRecordNotFound is returned by Get when no execution record exists for
// the requested key.
var ErrRecordNotFound = errors.New("execution record not found")

// DefaultTenantTimestampIndex is the GSI used for newest-first listing of
// a tenant's execution records.
const DefaultTenantTimestampIndex = "tenant-timestamp-index"

// ExecutionStore persists and serves execution records. Each run owns its
// (tenant_id, execution_id) key exclusively, so Put has simple overwrite
// semantics and no conditional writes are needed.
type ExecutionStore interface {
	// Put writes the record, replacing any item at the same key.
	Put(ctx context.Context, record datatypes.ExecutionRecord) error

	// Get fetches one record by key. Returns ErrRecordNotFound on a miss.
	Get(ctx context.Context, tenantID, executionID string) (datatypes.ExecutionRecord, error)

	// ListRecent returns the tenant's newest records, most recent first,
	// bounded by limit.
	ListRecent(ctx context.Context, tenantID string, limit int) ([]datatypes.ExecutionRecord, error)
}

// DynamoExecutionStore implements ExecutionStore against a DynamoDB table
// keyed by (tenant_id, execution_id) with a tenant/timestamp GSI for the
// newest-first listing and native TTL expiry on the ttl attribute.
type DynamoExecutionStore struct {
	client DynamoDBAPI
	table  string
	index  string
}

// NewDynamoExecutionStore creates a store bound to the given table. An
// empty index name falls back to DefaultTenantTimestampIndex.
func NewDynamoExecutionStore(client DynamoDBAPI, table, index string) *DynamoExecutionStore {
	if index == "" {
		index = DefaultTenantTimestampIndex
	}
	return &DynamoExecutionStore{client: client, table: table, index: index}
}

// Put marshals and writes the record.
func (s *DynamoExecutionStore) Put(ctx context.Context, record datatypes.ExecutionRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal execution record %s: %w", record.ExecutionID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to persist execution record %s: %w", record.ExecutionID, err)
	}
	return nil
}

// Get fetches one record by its composite key.
func (s *DynamoExecutionStore) Get(ctx context.Context, tenantID, executionID string) (datatypes.ExecutionRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"tenant_id":    stringAttr(tenantID),
			"execution_id": stringAttr(executionID),
		},
	})
	if err != nil {
		return datatypes.ExecutionRecord{}, fmt.Errorf("failed to get execution record %s: %w", executionID, err)
	}
	if out.Item == nil {
		return datatypes.ExecutionRecord{}, ErrRecordNotFound
	}

	var record datatypes.ExecutionRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return datatypes.ExecutionRecord{}, fmt.Errorf("failed to unmarshal execution record %s: %w", executionID, err)
	}
	return record, nil
}

// ListRecent queries the tenant/timestamp index in descending timestamp
// order.
func (s *DynamoExecutionStore) ListRecent(ctx context.Context, tenantID string, limit int) ([]datatypes.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(s.index),
		KeyConditionExpression: aws.String("tenant_id = :tid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tid": stringAttr(tenantID),
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list execution records for tenant %s: %w", tenantID, err)
	}

	var records []datatypes.ExecutionRecord
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution records for tenant %s: %w", tenantID, err)
	}
	return records, nil
}
