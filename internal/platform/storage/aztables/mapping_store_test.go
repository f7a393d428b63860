package aztables

import (
	"context"
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/TraceApi/storage-adapter/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLister pages through canned entity payloads and records the filter.
type fakeLister struct {
	pages  [][][]byte
	err    error
	filter *string
}

func (f *fakeLister) NewListEntitiesPager(opts *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse] {
	f.filter = opts.Filter
	next := 0
	return runtime.NewPager(runtime.PagingHandler[aztables.ListEntitiesResponse]{
		More: func(aztables.ListEntitiesResponse) bool {
			return next < len(f.pages)
		},
		Fetcher: func(ctx context.Context, _ *aztables.ListEntitiesResponse) (aztables.ListEntitiesResponse, error) {
			if f.err != nil {
				return aztables.ListEntitiesResponse{}, f.err
			}
			page := f.pages[next]
			next++
			return aztables.ListEntitiesResponse{Entities: page}, nil
		},
	})
}

const acmeEntity = `{
	"odata.etag": "W/\"datetime'2025-11-20T10%3A00%3A00.1234567Z'\"",
	"PartitionKey": "storageAdapterTenants",
	"RowKey": "acme",
	"Timestamp": "2025-11-20T10:00:00.1234567Z",
	"Timestamp@odata.type": "Edm.DateTime",
	"CxTenantId": "3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b",
	"CxTenantId@odata.type": "Edm.Guid",
	"CxTenantName": "Acme",
	"StorageAccountName": "acmedata",
	"ContainerName": "tenant-data"
}`

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter domain.MappingFilter
		want   string
	}{
		{"uuid", domain.MappingFilter{TenantID: "3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b", Mode: domain.MatchUUID}, "CxTenantId eq guid'3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b'"},
		{"string", domain.MappingFilter{TenantID: "t-1", Mode: domain.MatchString}, "CxTenantId eq 't-1'"},
		{"quotes escaped", domain.MappingFilter{TenantID: "o'brien", Mode: domain.MatchString}, "CxTenantId eq 'o''brien'"},
		{"partition", domain.ByPartition("storageAdapterTenants"), "PartitionKey eq 'storageAdapterTenants'"},
		{"both", domain.MappingFilter{TenantID: "t-1", Mode: domain.MatchString, Partition: "p"}, "CxTenantId eq 't-1' and PartitionKey eq 'p'"},
		{"none", domain.MappingFilter{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildFilter(tt.filter))
		})
	}
}

func TestDecodeEntity(t *testing.T) {
	m, err := decodeEntity([]byte(acmeEntity))

	require.NoError(t, err)
	assert.Equal(t, "3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b", m.TenantID)
	assert.Equal(t, "Acme", m.TenantName)
	assert.Equal(t, "storageAdapterTenants", m.PartitionKey)
	assert.Equal(t, "acme", m.RowKey)
	require.NotNil(t, m.Timestamp)
	assert.Equal(t, 123456700, m.Timestamp.Nanosecond())
	assert.JSONEq(t, `{"StorageAccountName":"acmedata","ContainerName":"tenant-data"}`, string(m.Attributes))
}

func TestQuery_DrainsPages(t *testing.T) {
	lister := &fakeLister{pages: [][][]byte{
		{[]byte(acmeEntity)},
		{},
		{[]byte(`{"CxTenantId":"3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b","CxTenantName":"Acme (copy)"}`)},
	}}
	s := &MappingStore{client: lister}

	p := s.Query(context.Background(), domain.MappingFilter{TenantID: "3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b", Mode: domain.MatchUUID})
	var all []*domain.TenantStorageMapping
	for p.More() {
		page, err := p.NextPage(context.Background())
		require.NoError(t, err)
		all = append(all, page...)
	}

	require.Len(t, all, 2)
	assert.Equal(t, "Acme (copy)", all[1].TenantName)
	require.NotNil(t, lister.filter)
	assert.Equal(t, "CxTenantId eq guid'3f2b8c1e-9a4d-4e6f-8b7a-1c2d3e4f5a6b'", *lister.filter)
}

func TestQuery_NoFilter(t *testing.T) {
	lister := &fakeLister{pages: [][][]byte{{}}}
	s := &MappingStore{client: lister}

	s.Query(context.Background(), domain.MappingFilter{})

	assert.Nil(t, lister.filter)
}

func TestNextPage_ResponseError(t *testing.T) {
	lister := &fakeLister{
		pages: [][][]byte{{}},
		err:   &azcore.ResponseError{ErrorCode: "AuthorizationPermissionMismatch", StatusCode: 403},
	}
	s := &MappingStore{client: lister}

	_, err := s.Query(context.Background(), domain.ByPartition("p")).NextPage(context.Background())

	var storeErr *domain.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "aztables: AuthorizationPermissionMismatch (status 403)", storeErr.Error())
}

func TestNextPage_MalformedEntity(t *testing.T) {
	lister := &fakeLister{pages: [][][]byte{{[]byte(`{"CxTenantId":`)}}}
	s := &MappingStore{client: lister}

	_, err := s.Query(context.Background(), domain.MappingFilter{}).NextPage(context.Background())

	assert.ErrorContains(t, err, "malformed mapping entity")
}
