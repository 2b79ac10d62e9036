package application

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/scanwatch-service/internal/domain"
	"github.com/wms-platform/scanwatch-service/pkg/errors"
	"github.com/wms-platform/scanwatch-service/pkg/events"
)

func newTestRecordService(gateway *mockGateway, store *mockStore, repo *mockRepo, publisher *mockPublisher) *RecordService {
	return NewRecordService(
		gateway,
		store,
		repo,
		publisher,
		events.NewEventFactory(events.SourceScanwatch),
		testLogger(),
		nil,
	)
}

func testSession(identity string) domain.Session {
	return domain.Session{
		Token:         "local-token",
		Identity:      identity,
		UpstreamToken: "upstream-token",
	}
}

// pagedGateway scripts a dataset spread across pages of ExportPageSize.
func pagedGateway(warehouse string, pages [][]domain.ScanRecord) *mockGateway {
	total := 0
	for _, p := range pages {
		total += len(p)
	}

	return &mockGateway{
		fetchFunc: func(token string, query domain.PageQuery) (*domain.PageResult, error) {
			return &domain.PageResult{
				Records:    pages[query.Page-1],
				Page:       query.Page,
				PageSize:   query.PageSize,
				Total:      total,
				TotalPages: len(pages),
			}, nil
		},
	}
}

func makeRecords(warehouse string, n int) []domain.ScanRecord {
	records := make([]domain.ScanRecord, n)
	for i := range records {
		records[i] = domain.ScanRecord{
			TrackingNumber: "TRK" + string(rune('A'+i)),
			Warehouse:      warehouse,
		}
	}
	return records
}

func TestAggregateWalksEveryPage(t *testing.T) {
	gateway := pagedGateway("EWR", [][]domain.ScanRecord{
		makeRecords("EWR", 10),
		makeRecords("EWR", 10),
		makeRecords("EWR", 5),
	})
	service := newTestRecordService(gateway, newMockStore(), newMockRepo(), &mockPublisher{})

	result := service.Aggregate(context.Background(), testSession("EWR"), "EWR")

	require.True(t, result.IsComplete())
	assert.Len(t, result.Records, 25)
	require.Len(t, gateway.fetchCalls, 3)
	for i, call := range gateway.fetchCalls {
		assert.Equal(t, i+1, call.Page)
		assert.Equal(t, domain.ExportPageSize, call.PageSize)
		assert.Equal(t, "EWR", call.Warehouse)
	}
}

func TestAggregateSessionExpiredMidRun(t *testing.T) {
	gateway := &mockGateway{
		fetchFunc: func(token string, query domain.PageQuery) (*domain.PageResult, error) {
			if query.Page >= 2 {
				return nil, domain.ErrSessionExpired
			}
			return &domain.PageResult{
				Records:    makeRecords("EWR", 10),
				TotalPages: 3,
			}, nil
		},
	}
	store := newMockStore()
	service := newTestRecordService(gateway, store, newMockRepo(), &mockPublisher{})

	result := service.Aggregate(context.Background(), testSession("EWR"), "EWR")

	assert.Equal(t, domain.AggregationSessionExpired, result.Outcome)
	assert.False(t, result.IsComplete())
	assert.Len(t, result.Records, 10, "records fetched before the abort stay on the result")
	assert.Contains(t, store.cleared, "local-token", "session entry must be cleared on upstream 401")
	assert.Len(t, gateway.fetchCalls, 2, "first failure must short-circuit the run")
}

func TestAggregateTransientFailureMidRun(t *testing.T) {
	gateway := &mockGateway{
		fetchFunc: func(token string, query domain.PageQuery) (*domain.PageResult, error) {
			if query.Page >= 2 {
				return nil, &domain.TransientError{StatusCode: 500, Message: "internal error"}
			}
			return &domain.PageResult{Records: makeRecords("EWR", 10), TotalPages: 2}, nil
		},
	}
	store := newMockStore()
	service := newTestRecordService(gateway, store, newMockRepo(), &mockPublisher{})

	result := service.Aggregate(context.Background(), testSession("EWR"), "EWR")

	assert.Equal(t, domain.AggregationTransientError, result.Outcome)
	assert.Empty(t, store.cleared, "non-401 failures must not clear the session")
	assert.Error(t, result.Err)
}

func TestAggregateEmptyWarehouseSkipsFetch(t *testing.T) {
	gateway := &mockGateway{}
	service := newTestRecordService(gateway, newMockStore(), newMockRepo(), &mockPublisher{})

	result := service.Aggregate(context.Background(), testSession("EWR"), "")

	assert.True(t, result.IsComplete())
	assert.Empty(t, result.Records)
	assert.Empty(t, gateway.fetchCalls)
}

func TestAggregateCancelledBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gateway := &mockGateway{
		fetchFunc: func(token string, query domain.PageQuery) (*domain.PageResult, error) {
			cancel()
			return &domain.PageResult{Records: makeRecords("EWR", 10), TotalPages: 3}, nil
		},
	}
	service := newTestRecordService(gateway, newMockStore(), newMockRepo(), &mockPublisher{})

	result := service.Aggregate(ctx, testSession("EWR"), "EWR")

	assert.Equal(t, domain.AggregationTransientError, result.Outcome)
	assert.Len(t, gateway.fetchCalls, 1, "cancellation must be noticed before the next fetch")
}

func TestExportCSVComplete(t *testing.T) {
	gateway := pagedGateway("EWR", [][]domain.ScanRecord{makeRecords("EWR", 3)})
	publisher := &mockPublisher{}
	service := newTestRecordService(gateway, newMockStore(), newMockRepo(), publisher)

	payload, err := service.ExportCSV(context.Background(), testSession("EWR"), "EWR")

	require.NoError(t, err)
	text := string(payload)
	assert.True(t, strings.HasPrefix(text, "\xEF\xBB\xBF"))
	assert.Len(t, strings.Split(text, "\n"), 4, "header plus one line per record")
	assert.True(t, publisher.published(events.ExportCompleted))
}

func TestExportCSVAbortedRunReturnsNoPayload(t *testing.T) {
	gateway := &mockGateway{
		fetchFunc: func(token string, query domain.PageQuery) (*domain.PageResult, error) {
			if query.Page >= 2 {
				return nil, domain.ErrSessionExpired
			}
			return &domain.PageResult{Records: makeRecords("EWR", 10), TotalPages: 2}, nil
		},
	}
	service := newTestRecordService(gateway, newMockStore(), newMockRepo(), &mockPublisher{})

	payload, err := service.ExportCSV(context.Background(), testSession("EWR"), "EWR")

	require.Error(t, err)
	assert.Nil(t, payload, "partial records must never be exported")

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
}

func TestExportCSVOutsideScope(t *testing.T) {
	gateway := &mockGateway{}
	service := newTestRecordService(gateway, newMockStore(), newMockRepo(), &mockPublisher{})

	_, err := service.ExportCSV(context.Background(), testSession("BOS"), "JFK")

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.HTTPStatus)
	assert.Empty(t, gateway.fetchCalls, "scope check must run before any fetch")
}

func TestSyncWarehouseStoresDataset(t *testing.T) {
	gateway := pagedGateway("EWR", [][]domain.ScanRecord{makeRecords("EWR", 7)})
	repo := newMockRepo()
	publisher := &mockPublisher{}
	service := newTestRecordService(gateway, newMockStore(), repo, publisher)

	result, err := service.SyncWarehouse(context.Background(), testSession("EWR"), "EWR")

	require.NoError(t, err)
	assert.Equal(t, "EWR", result.Warehouse)
	assert.Equal(t, string(domain.AggregationComplete), result.Outcome)
	assert.Equal(t, 7, result.RecordCount)
	assert.Len(t, repo.upserts["EWR"], 7)
	assert.True(t, publisher.published(events.SyncCompleted))
}

func TestSyncWarehouseAbortedRunPublishesFailure(t *testing.T) {
	gateway := &mockGateway{
		fetchFunc: func(token string, query domain.PageQuery) (*domain.PageResult, error) {
			return nil, &domain.TransientError{StatusCode: 502, Message: "bad gateway"}
		},
	}
	repo := newMockRepo()
	publisher := &mockPublisher{}
	service := newTestRecordService(gateway, newMockStore(), repo, publisher)

	_, err := service.SyncWarehouse(context.Background(), testSession("EWR"), "EWR")

	require.Error(t, err)
	assert.Empty(t, repo.upserts, "aborted runs must not touch storage")
	assert.True(t, publisher.published(events.SyncFailed))
	assert.False(t, publisher.published(events.SyncCompleted))
}

func TestSyncAllContinuesPastFailures(t *testing.T) {
	gateway := &mockGateway{
		fetchFunc: func(token string, query domain.PageQuery) (*domain.PageResult, error) {
			if query.Warehouse == "PHL" {
				return nil, &domain.TransientError{StatusCode: 500, Message: "internal error"}
			}
			return &domain.PageResult{
				Records:    makeRecords(query.Warehouse, 1),
				TotalPages: 1,
			}, nil
		},
	}
	repo := newMockRepo()
	service := newTestRecordService(gateway, newMockStore(), repo, &mockPublisher{})

	results := service.SyncAll(context.Background(), testSession(domain.StaffIdentity))

	require.Len(t, results, len(domain.Warehouses))

	failed := 0
	for _, r := range results {
		if r.Warehouse == "PHL" {
			assert.Equal(t, string(domain.AggregationTransientError), r.Outcome)
			assert.NotEmpty(t, r.Error)
			failed++
			continue
		}
		assert.Equal(t, string(domain.AggregationComplete), r.Outcome)
		assert.Equal(t, 1, r.RecordCount)
	}
	assert.Equal(t, 1, failed)
	assert.NotContains(t, repo.upserts, "PHL")
}

func TestBrowseOutsideScopeRejectedBeforeFetch(t *testing.T) {
	gateway := &mockGateway{}
	service := newTestRecordService(gateway, newMockStore(), newMockRepo(), &mockPublisher{})

	_, err := service.Browse(context.Background(), testSession("BOS"), BrowseQuery{Warehouse: "JFK"})

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.HTTPStatus)
	assert.Empty(t, gateway.fetchCalls)
}

func TestBrowseSessionExpiredClearsStore(t *testing.T) {
	gateway := &mockGateway{
		fetchFunc: func(token string, query domain.PageQuery) (*domain.PageResult, error) {
			return nil, domain.ErrSessionExpired
		},
	}
	store := newMockStore()
	service := newTestRecordService(gateway, store, newMockRepo(), &mockPublisher{})

	_, err := service.Browse(context.Background(), testSession("EWR"), BrowseQuery{Warehouse: "EWR"})

	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
	assert.Contains(t, store.cleared, "local-token")
}

func TestBrowseAppliesPagingDefaults(t *testing.T) {
	gateway := &mockGateway{}
	service := newTestRecordService(gateway, newMockStore(), newMockRepo(), &mockPublisher{})

	_, err := service.Browse(context.Background(), testSession("EWR"), BrowseQuery{Warehouse: "EWR", Page: 0, PageSize: 500})

	require.NoError(t, err)
	require.Len(t, gateway.fetchCalls, 1)
	assert.Equal(t, 1, gateway.fetchCalls[0].Page)
	assert.Equal(t, domain.MaxBrowsePageSize, gateway.fetchCalls[0].PageSize)
}

func TestListStoredScope(t *testing.T) {
	repo := newMockRepo()
	service := newTestRecordService(&mockGateway{}, newMockStore(), repo, &mockPublisher{})

	_, _, err := service.ListStored(context.Background(), testSession("BOS"), "JFK", 1, 10, domain.SortKey, -1)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, appErr.HTTPStatus)
	assert.Empty(t, repo.scopes)

	_, _, err = service.ListStored(context.Background(), testSession("BOS"), "", 1, 10, domain.SortKey, -1)
	require.NoError(t, err)
	require.Len(t, repo.scopes, 1)
	assert.Equal(t, []string{"BOS"}, repo.scopes[0], "empty warehouse restricts to the visible scope")

	_, _, err = service.ListStored(context.Background(), testSession(domain.StaffIdentity), "", 1, 10, domain.SortKey, -1)
	require.NoError(t, err)
	require.Len(t, repo.scopes, 2)
	assert.Len(t, repo.scopes[1], len(domain.Warehouses))
}
