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
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/AleutianAI/AleutianSentinel/services/orchestrator/datatypes"
)

// TenantConfigStore reads tenant KSI configurations. The orchestrator
// never writes through this interface; the configuration table is owned
// by tenant administration tooling.
type TenantConfigStore interface {
	// ListTenants enumerates every tenant id present in the table,
	// deduplicated and sorted.
	ListTenants(ctx context.Context) ([]string, error)

	// FetchConfigs returns the tenant's enabled KSI configurations in
	// stored order.
	FetchConfigs(ctx context.Context, tenantID string) ([]datatypes.TenantKSIConfig, error)
}

// DynamoTenantConfigStore implements TenantConfigStore against a DynamoDB
// table partitioned by tenant_id.
type DynamoTenantConfigStore struct {
	client DynamoDBAPI
	table  string
}

// NewDynamoTenantConfigStore creates a store bound to the given table.
func NewDynamoTenantConfigStore(client DynamoDBAPI, table string) *DynamoTenantConfigStore {
	return &DynamoTenantConfigStore{client: client, table: table}
}

// FetchConfigs queries the tenant's partition, following pagination, and
// keeps only enabled entries. Disabled checks stay in the table but are
// invisible to the orchestrator.
func (s *DynamoTenantConfigStore) FetchConfigs(ctx context.Context, tenantID string) ([]datatypes.TenantKSIConfig, error) {
	var configs []datatypes.TenantKSIConfig
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("tenant_id = :tid"),
			FilterExpression:       aws.String("enabled = :enabled"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":tid":     stringAttr(tenantID),
				":enabled": &types.AttributeValueMemberBOOL{Value: true},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query configurations for tenant %s: %w", tenantID, err)
		}

		var page []datatypes.TenantKSIConfig
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal configurations for tenant %s: %w", tenantID, err)
		}
		configs = append(configs, page...)

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return configs, nil
}

// ListTenants scans the table projecting only tenant_id and deduplicates
// the result. A scan is acceptable here: the table holds one item per
// (tenant, check) and the "all tenants" trigger is an administrative path,
// not a hot one.
func (s *DynamoTenantConfigStore) ListTenants(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(s.table),
			ProjectionExpression: aws.String("tenant_id"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant configurations: %w", err)
		}

		for _, item := range out.Items {
			var row struct {
				TenantID string `dynamodbav:"tenant_id"`
			}
			if err := attributevalue.UnmarshalMap(item, &row); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tenant id: %w", err)
			}
			if row.TenantID != "" {
				seen[row.TenantID] = true
			}
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	tenants := make([]string, 0, len(seen))
	for tenant := range seen {
		tenants = append(tenants, tenant)
	}
	sort.Strings(tenants)
	return tenants, nil
}
