/*
 * Copyright (c) 2025 Alessandro Faranda Gancio (dba TraceApi)
 *
 * This source code is licensed under the Business Source License 1.1.
 *
 * Change Date: 2027-11-28
 * Change License: AGPL-3.0
 */

package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TraceApi/storage-adapter/internal/core/domain"
	"github.com/TraceApi/storage-adapter/internal/core/ports"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

const (
	storeName       = "dynamodb"
	defaultPageSize = 100

	// Item attribute names
	attrTenantID     = "tenantId"
	attrTenantName   = "tenantName"
	attrPartitionKey = "PartitionKey"
	attrRowKey       = "RowKey"
	attrTimestamp    = "Timestamp"
)

// Client is the subset of *dynamodb.Client the store needs.
type Client interface {
	dynamodb.QueryAPIClient
	dynamodb.ScanAPIClient
}

type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string

	Table       string
	TenantIndex string // GSI keyed on tenantId
	PageSize    int
}

type MappingStore struct {
	client      Client
	table       string
	tenantIndex string
	pageSize    int32
}

// Ensure we implement the interface
var _ ports.MappingStore = (*MappingStore)(nil)

func NewMappingStore(ctx context.Context, cfg Config) (*MappingStore, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewMappingStoreWithClient(client, cfg), nil
}

func NewMappingStoreWithClient(client Client, cfg Config) *MappingStore {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &MappingStore{
		client:      client,
		table:       cfg.Table,
		tenantIndex: cfg.TenantIndex,
		pageSize:    int32(pageSize),
	}
}

// Query picks the cheapest access path: the tenant GSI, the table's hash
// key, or a scan when no filter is given. Key conditions are exact, so a uuid
// lookup queries the canonical lowercase form and then the uppercase form.
// Mixed-case stored ids are not matched.
func (s *MappingStore) Query(ctx context.Context, f domain.MappingFilter) ports.MappingPager {
	switch {
	case f.TenantID != "":
		first := newQueryPager(s.client, s.tenantQuery(f.TenantID, f.Partition))
		upper := strings.ToUpper(f.TenantID)
		if f.Mode == domain.MatchString || upper == f.TenantID {
			return first
		}
		return &chainedPager{pagers: []*pager{first, newQueryPager(s.client, s.tenantQuery(upper, f.Partition))}}

	case f.Partition != "":
		return newQueryPager(s.client, &dynamodb.QueryInput{
			TableName:                 aws.String(s.table),
			KeyConditionExpression:    aws.String("#pk = :pk"),
			ExpressionAttributeNames:  map[string]string{"#pk": attrPartitionKey},
			ExpressionAttributeValues: map[string]types.AttributeValue{":pk": &types.AttributeValueMemberS{Value: f.Partition}},
			Limit:                     aws.Int32(s.pageSize),
		})

	default:
		p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
			TableName: aws.String(s.table),
			Limit:     aws.Int32(s.pageSize),
		})
		return &pager{
			more: p.HasMorePages,
			next: func(ctx context.Context) ([]map[string]types.AttributeValue, error) {
				out, err := p.NextPage(ctx)
				if err != nil {
					return nil, err
				}
				return out.Items, nil
			},
		}
	}
}

func (s *MappingStore) tenantQuery(tenantID, partition string) *dynamodb.QueryInput {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(s.tenantIndex),
		KeyConditionExpression:    aws.String("#tid = :tid"),
		ExpressionAttributeNames:  map[string]string{"#tid": attrTenantID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":tid": &types.AttributeValueMemberS{Value: tenantID}},
		Limit:                     aws.Int32(s.pageSize),
	}
	if partition != "" {
		in.FilterExpression = aws.String("#pk = :pk")
		in.ExpressionAttributeNames["#pk"] = attrPartitionKey
		in.ExpressionAttributeValues[":pk"] = &types.AttributeValueMemberS{Value: partition}
	}
	return in
}

func newQueryPager(client dynamodb.QueryAPIClient, in *dynamodb.QueryInput) *pager {
	p := dynamodb.NewQueryPaginator(client, in)
	return &pager{
		more: p.HasMorePages,
		next: func(ctx context.Context) ([]map[string]types.AttributeValue, error) {
			out, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			return out.Items, nil
		},
	}
}

type pager struct {
	more func() bool
	next func(ctx context.Context) ([]map[string]types.AttributeValue, error)
}

func (p *pager) More() bool { return p.more() }

func (p *pager) NextPage(ctx context.Context) ([]*domain.TenantStorageMapping, error) {
	items, err := p.next(ctx)
	if err != nil {
		return nil, storeError(err)
	}

	page := make([]*domain.TenantStorageMapping, 0, len(items))
	for _, item := range items {
		m, err := decodeItem(item)
		if err != nil {
			return nil, &domain.StoreError{Store: storeName, Message: "malformed mapping item", Err: err}
		}
		page = append(page, m)
	}
	return page, nil
}

// chainedPager drains each pager in turn.
type chainedPager struct {
	pagers []*pager
}

func (c *chainedPager) More() bool {
	for len(c.pagers) > 0 {
		if c.pagers[0].More() {
			return true
		}
		c.pagers = c.pagers[1:]
	}
	return false
}

func (c *chainedPager) NextPage(ctx context.Context) ([]*domain.TenantStorageMapping, error) {
	if !c.More() {
		return nil, nil
	}
	return c.pagers[0].NextPage(ctx)
}

// decodeItem lifts the known attributes and keeps the rest as opaque
// storage attributes.
func decodeItem(item map[string]types.AttributeValue) (*domain.TenantStorageMapping, error) {
	var raw map[string]any
	if err := attributevalue.UnmarshalMap(item, &raw); err != nil {
		return nil, err
	}

	m := &domain.TenantStorageMapping{
		TenantID:     take(raw, attrTenantID),
		TenantName:   take(raw, attrTenantName),
		PartitionKey: take(raw, attrPartitionKey),
		RowKey:       take(raw, attrRowKey),
	}
	if ts := take(raw, attrTimestamp); ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", attrTimestamp, err)
		}
		m.Timestamp = &parsed
	}

	if len(raw) > 0 {
		attrs, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		m.Attributes = attrs
	}
	return m, nil
}

func take(raw map[string]any, key string) string {
	v, _ := raw[key].(string)
	delete(raw, key)
	return v
}

func storeError(err error) error {
	msg := "request failed"
	var apiErr smithy.APIError
	switch {
	case errors.As(err, &apiErr):
		msg = apiErr.ErrorCode()
	case errors.Is(err, context.DeadlineExceeded):
		msg = "request timed out"
	case errors.Is(err, context.Canceled):
		msg = "request cancelled"
	}
	return &domain.StoreError{Store: storeName, Message: msg, Err: err}
}
