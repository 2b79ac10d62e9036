package application

import (
	"context"
	"time"

	"github.com/wms-platform/scanwatch-service/internal/domain"
	"github.com/wms-platform/scanwatch-service/pkg/events"
	"github.com/wms-platform/scanwatch-service/pkg/metrics"
)

// SessionEntry is everything the store keeps per issued bearer token. The
// login credentials are retained so an expired upstream token can be
// refreshed without bothering the client.
type SessionEntry struct {
	Identity      string
	UpstreamToken string
	Username      string
	Password      string
	IssuedAt      time.Time
}

// SessionStore interface for bearer-token session persistence. Set and Clear
// are atomic with respect to Get: a reader sees either the full entry or
// nothing.
type SessionStore interface {
	Set(token string, entry SessionEntry)
	Get(token string) (SessionEntry, bool)
	Clear(token string)
}

// UpstreamGateway interface for the external scan-record API.
type UpstreamGateway interface {
	// Login exchanges credentials for an upstream bearer token.
	Login(ctx context.Context, username, password string) (string, error)
	// FetchPage retrieves one page of the warehouse result set.
	FetchPage(ctx context.Context, token string, query domain.PageQuery) (*domain.PageResult, error)
}

// StaleRecordRepository interface for synced-record persistence.
type StaleRecordRepository interface {
	BulkUpsert(ctx context.Context, warehouse string, records []domain.ScanRecord) (int, error)
	List(ctx context.Context, warehouses []string, page, pageSize int64, sortField string, sortDirection int) ([]domain.ScanRecord, int64, error)
	CountByWarehouse(ctx context.Context) (map[string]int64, error)
}

// EventPublisher interface for publishing domain events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *events.CloudEvent) error
}

// instrumentedPublisher wraps an EventPublisher with publish metrics.
type instrumentedPublisher struct {
	inner   EventPublisher
	metrics *metrics.Metrics
}

// NewInstrumentedPublisher decorates a publisher so every publish attempt is
// recorded per topic and event type.
func NewInstrumentedPublisher(inner EventPublisher, m *metrics.Metrics) EventPublisher {
	return &instrumentedPublisher{inner: inner, metrics: m}
}

func (p *instrumentedPublisher) PublishEvent(ctx context.Context, topic string, event *events.CloudEvent) error {
	start := time.Now()
	err := p.inner.PublishEvent(ctx, topic, event)
	p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, time.Since(start))
	return err
}
