package application

import (
	"context"
	"io"
	"sync"

	"github.com/wms-platform/scanwatch-service/internal/domain"
	"github.com/wms-platform/scanwatch-service/pkg/events"
	"github.com/wms-platform/scanwatch-service/pkg/logging"
)

func testLogger() *logging.Logger {
	config := logging.DefaultConfig("scanwatch-test")
	config.Output = io.Discard
	return logging.New(config)
}

// mockGateway scripts upstream responses per call.
type mockGateway struct {
	loginFunc func(username, password string) (string, error)
	fetchFunc func(token string, query domain.PageQuery) (*domain.PageResult, error)

	loginCalls []string
	fetchCalls []domain.PageQuery
}

func (g *mockGateway) Login(ctx context.Context, username, password string) (string, error) {
	g.loginCalls = append(g.loginCalls, username)
	if g.loginFunc != nil {
		return g.loginFunc(username, password)
	}
	return "upstream-token", nil
}

func (g *mockGateway) FetchPage(ctx context.Context, token string, query domain.PageQuery) (*domain.PageResult, error) {
	g.fetchCalls = append(g.fetchCalls, query)
	if g.fetchFunc != nil {
		return g.fetchFunc(token, query)
	}
	return &domain.PageResult{Page: query.Page, PageSize: query.PageSize, TotalPages: 1}, nil
}

// mockStore is a map-backed SessionStore that records cleared tokens.
type mockStore struct {
	mu      sync.Mutex
	entries map[string]SessionEntry
	cleared []string
}

func newMockStore() *mockStore {
	return &mockStore{entries: make(map[string]SessionEntry)}
}

func (s *mockStore) Set(token string, entry SessionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = entry
}

func (s *mockStore) Get(token string) (SessionEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	return entry, ok
}

func (s *mockStore) Clear(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	s.cleared = append(s.cleared, token)
}

// mockRepo scripts persistence behavior.
type mockRepo struct {
	bulkUpsertFunc func(warehouse string, records []domain.ScanRecord) (int, error)
	listFunc       func(warehouses []string) ([]domain.ScanRecord, int64, error)
	countFunc      func() (map[string]int64, error)

	upserts map[string][]domain.ScanRecord
	scopes  [][]string
}

func newMockRepo() *mockRepo {
	return &mockRepo{upserts: make(map[string][]domain.ScanRecord)}
}

func (r *mockRepo) BulkUpsert(ctx context.Context, warehouse string, records []domain.ScanRecord) (int, error) {
	if r.bulkUpsertFunc != nil {
		return r.bulkUpsertFunc(warehouse, records)
	}
	r.upserts[warehouse] = records
	return len(records), nil
}

func (r *mockRepo) List(ctx context.Context, warehouses []string, page, pageSize int64, sortField string, sortDirection int) ([]domain.ScanRecord, int64, error) {
	r.scopes = append(r.scopes, warehouses)
	if r.listFunc != nil {
		return r.listFunc(warehouses)
	}
	return nil, 0, nil
}

func (r *mockRepo) CountByWarehouse(ctx context.Context) (map[string]int64, error) {
	if r.countFunc != nil {
		return r.countFunc()
	}
	return map[string]int64{}, nil
}

// mockPublisher records published events.
type mockPublisher struct {
	mu     sync.Mutex
	topics []string
	events []*events.CloudEvent
	err    error
}

func (p *mockPublisher) PublishEvent(ctx context.Context, topic string, event *events.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return p.err
}

func (p *mockPublisher) published(eventType string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}
