package application

import (
	"context"
	"fmt"

	"github.com/wms-platform/scanwatch-service/internal/domain"
	"github.com/wms-platform/scanwatch-service/pkg/errors"
	"github.com/wms-platform/scanwatch-service/pkg/events"
	"github.com/wms-platform/scanwatch-service/pkg/kafka"
	"github.com/wms-platform/scanwatch-service/pkg/logging"
	"github.com/wms-platform/scanwatch-service/pkg/metrics"
)

// RecordService handles browse, full-dataset aggregation, CSV export and
// MongoDB sync of stale scan records.
type RecordService struct {
	upstream     UpstreamGateway
	store        SessionStore
	repo         StaleRecordRepository
	producer     EventPublisher
	eventFactory *events.EventFactory
	logger       *logging.Logger
	metrics      *metrics.Metrics
}

// NewRecordService creates a new RecordService
func NewRecordService(
	upstream UpstreamGateway,
	store SessionStore,
	repo StaleRecordRepository,
	producer EventPublisher,
	eventFactory *events.EventFactory,
	logger *logging.Logger,
	m *metrics.Metrics,
) *RecordService {
	return &RecordService{
		upstream:     upstream,
		store:        store,
		repo:         repo,
		producer:     producer,
		eventFactory: eventFactory,
		logger:       logger,
		metrics:      m,
	}
}

// Warehouses returns the warehouse codes visible to the identity.
func (s *RecordService) Warehouses(identity string) []string {
	return domain.VisibleWarehouses(identity)
}

// Browse proxies a single page request to the upstream. The warehouse must be
// inside the caller's scope; the check runs before any fetch is attempted.
func (s *RecordService) Browse(ctx context.Context, session domain.Session, query BrowseQuery) (*domain.PageResult, error) {
	if query.Warehouse != "" && !domain.CanAccessWarehouse(session.Identity, query.Warehouse) {
		return nil, errors.ErrForbidden(fmt.Sprintf("warehouse %s is outside your scope", query.Warehouse))
	}

	result, err := s.upstream.FetchPage(ctx, session.UpstreamToken, query.toDomainQuery())
	if err != nil {
		return nil, s.mapFetchError(ctx, session, err)
	}

	return result, nil
}

// Aggregate assembles the full dataset for one warehouse by walking every
// page sequentially. The first failure short-circuits the run: an upstream
// 401 clears the session entry, any other failure is preserved on the result.
// Records collected before the failure stay on the result but a non-Complete
// outcome marks them unusable for export.
func (s *RecordService) Aggregate(ctx context.Context, session domain.Session, warehouse string) *domain.AggregationResult {
	result := &domain.AggregationResult{
		Warehouse: warehouse,
		Outcome:   domain.AggregationComplete,
	}

	if warehouse == "" {
		s.recordRun(warehouse, result.Outcome)
		return result
	}

	query := domain.PageQuery{
		Warehouse: warehouse,
		Page:      1,
		PageSize:  domain.ExportPageSize,
	}

	first, err := s.fetchAggregationPage(ctx, session, query)
	if err != nil {
		return s.abort(ctx, session, result, err)
	}
	result.Records = append(result.Records, first.Records...)

	for page := 2; page <= first.TotalPages; page++ {
		if err := ctx.Err(); err != nil {
			return s.abort(ctx, session, result, &domain.TransientError{
				Message: "aggregation cancelled",
				Err:     err,
			})
		}

		query.Page = page
		pr, err := s.fetchAggregationPage(ctx, session, query)
		if err != nil {
			return s.abort(ctx, session, result, err)
		}
		result.Records = append(result.Records, pr.Records...)
	}

	s.recordRun(warehouse, result.Outcome)
	return result
}

// ExportCSV aggregates one warehouse and serializes the complete dataset.
// Non-Complete runs return an error and no payload at all.
func (s *RecordService) ExportCSV(ctx context.Context, session domain.Session, warehouse string) ([]byte, error) {
	if warehouse != "" && !domain.CanAccessWarehouse(session.Identity, warehouse) {
		return nil, errors.ErrForbidden(fmt.Sprintf("warehouse %s is outside your scope", warehouse))
	}

	result := s.Aggregate(ctx, session, warehouse)
	if !result.IsComplete() {
		return nil, s.mapFetchError(ctx, session, result.Err)
	}

	payload := BuildCSV(result.Records)

	if s.metrics != nil {
		s.metrics.RecordRecordsExported(warehouse, len(result.Records))
	}

	s.logger.WithContext(ctx).Info("Dataset exported",
		"warehouse", warehouse,
		"records", len(result.Records),
	)

	if s.producer != nil && s.eventFactory != nil {
		event := s.eventFactory.CreateExportCompletedEvent(ctx, warehouse, len(result.Records), session.Identity)
		if err := s.producer.PublishEvent(context.WithoutCancel(ctx), kafka.Topics.ExportEvents, event); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to publish export event", "warehouse", warehouse)
		}
	}

	return payload, nil
}

// SyncWarehouse aggregates one warehouse and upserts the complete dataset
// into storage.
func (s *RecordService) SyncWarehouse(ctx context.Context, session domain.Session, warehouse string) (*SyncResultDTO, error) {
	if !domain.CanAccessWarehouse(session.Identity, warehouse) {
		return nil, errors.ErrForbidden(fmt.Sprintf("warehouse %s is outside your scope", warehouse))
	}

	result := s.Aggregate(ctx, session, warehouse)
	if !result.IsComplete() {
		s.publishSyncFailed(ctx, warehouse, result)
		return nil, s.mapFetchError(ctx, session, result.Err)
	}

	count, err := s.repo.BulkUpsert(ctx, warehouse, result.Records)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to upsert stale records", "warehouse", warehouse)
		return nil, fmt.Errorf("failed to store stale records: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordRecordsSynced(warehouse, count)
	}

	pages := domain.DeriveTotalPages(len(result.Records), domain.ExportPageSize)
	if s.producer != nil && s.eventFactory != nil {
		event := s.eventFactory.CreateSyncCompletedEvent(ctx, warehouse, count, pages)
		if err := s.producer.PublishEvent(context.WithoutCancel(ctx), kafka.Topics.SyncEvents, event); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to publish sync event", "warehouse", warehouse)
		}
	}

	s.logger.WithContext(ctx).Info("Warehouse synced",
		"warehouse", warehouse,
		"records", count,
	)

	return &SyncResultDTO{
		Warehouse:   warehouse,
		Outcome:     string(domain.AggregationComplete),
		RecordCount: count,
	}, nil
}

// SyncAll syncs every warehouse visible to the session's identity. A failure
// in one warehouse is recorded on its result and the run moves on to the
// next; the returned slice always covers the full scope.
func (s *RecordService) SyncAll(ctx context.Context, session domain.Session) []SyncResultDTO {
	warehouses := domain.VisibleWarehouses(session.Identity)
	results := make([]SyncResultDTO, 0, len(warehouses))

	for _, warehouse := range warehouses {
		if ctx.Err() != nil {
			results = append(results, SyncResultDTO{
				Warehouse: warehouse,
				Outcome:   string(domain.AggregationTransientError),
				Error:     ctx.Err().Error(),
			})
			continue
		}

		dto, err := s.SyncWarehouse(ctx, session, warehouse)
		if err != nil {
			results = append(results, SyncResultDTO{
				Warehouse: warehouse,
				Outcome:   outcomeForError(err),
				Error:     err.Error(),
			})
			continue
		}
		results = append(results, *dto)
	}

	return results
}

// ListStored returns a page of previously synced records, restricted to the
// caller's warehouse scope.
func (s *RecordService) ListStored(ctx context.Context, session domain.Session, warehouse string, page, pageSize int64, sortField string, sortDirection int) ([]domain.ScanRecord, int64, error) {
	var scope []string
	if warehouse != "" {
		if !domain.CanAccessWarehouse(session.Identity, warehouse) {
			return nil, 0, errors.ErrForbidden(fmt.Sprintf("warehouse %s is outside your scope", warehouse))
		}
		scope = []string{warehouse}
	} else {
		scope = domain.VisibleWarehouses(session.Identity)
	}

	records, total, err := s.repo.List(ctx, scope, page, pageSize, sortField, sortDirection)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to list stored records", "warehouse", warehouse)
		return nil, 0, fmt.Errorf("failed to list stored records: %w", err)
	}

	return records, total, nil
}

// StoredStats returns per-warehouse record counts for the synced dataset.
func (s *RecordService) StoredStats(ctx context.Context) (map[string]int64, error) {
	stats, err := s.repo.CountByWarehouse(ctx)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to count stored records")
		return nil, fmt.Errorf("failed to count stored records: %w", err)
	}
	return stats, nil
}

func (s *RecordService) fetchAggregationPage(ctx context.Context, session domain.Session, query domain.PageQuery) (*domain.PageResult, error) {
	result, err := s.upstream.FetchPage(ctx, session.UpstreamToken, query)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordPageAggregated(query.Warehouse)
	}
	return result, nil
}

func (s *RecordService) abort(ctx context.Context, session domain.Session, result *domain.AggregationResult, err error) *domain.AggregationResult {
	result.Err = err

	switch {
	case err == domain.ErrSessionExpired:
		result.Outcome = domain.AggregationSessionExpired
		s.store.Clear(session.Token)
		s.logger.WithContext(ctx).Warn("Aggregation aborted, session expired",
			"warehouse", result.Warehouse,
			"pagesFetched", len(result.Records),
		)
	default:
		result.Outcome = domain.AggregationTransientError
		s.logger.WithContext(ctx).WithError(err).Warn("Aggregation aborted",
			"warehouse", result.Warehouse,
		)
	}

	s.recordRun(result.Warehouse, result.Outcome)
	return result
}

func (s *RecordService) recordRun(warehouse string, outcome domain.AggregationOutcome) {
	if s.metrics != nil {
		s.metrics.RecordAggregationRun(warehouse, string(outcome))
	}
}

func (s *RecordService) publishSyncFailed(ctx context.Context, warehouse string, result *domain.AggregationResult) {
	if s.producer == nil || s.eventFactory == nil {
		return
	}

	reason := ""
	if result.Err != nil {
		reason = result.Err.Error()
	}

	event := s.eventFactory.CreateSyncFailedEvent(ctx, warehouse, string(result.Outcome), reason)
	if err := s.producer.PublishEvent(context.WithoutCancel(ctx), kafka.Topics.SyncEvents, event); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to publish sync failure event", "warehouse", warehouse)
	}
}

// mapFetchError converts fetcher errors into service-boundary errors. Session
// expiry clears the store entry before surfacing 401.
func (s *RecordService) mapFetchError(ctx context.Context, session domain.Session, err error) error {
	if err == nil {
		return errors.ErrInternal("")
	}

	if err == domain.ErrSessionExpired {
		s.store.Clear(session.Token)
		return errors.ErrUnauthorized("session expired, please log in again")
	}

	if te, ok := domain.AsTransient(err); ok {
		if te.Unreachable {
			return errors.ErrServiceUnavailable("scan-record API")
		}
		if te.StatusCode != 0 {
			return errors.ErrUpstream(te.StatusCode, te.Message)
		}
		return errors.ErrServiceUnavailable("scan-record API")
	}

	return errors.ErrInternal("").Wrap(err)
}

func outcomeForError(err error) string {
	if appErr, ok := errors.AsAppError(err); ok && appErr.HTTPStatus == 401 {
		return string(domain.AggregationSessionExpired)
	}
	return string(domain.AggregationTransientError)
}
