package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/scanwatch-service/internal/domain"
	"github.com/wms-platform/scanwatch-service/pkg/logging"
	"github.com/wms-platform/scanwatch-service/pkg/metrics"
	shared "github.com/wms-platform/scanwatch-service/pkg/mongodb"
)

const collectionName = "stale_records"

// staleRecordDocument is the stored shape of one synced record. syncedAt
// marks the run that last saw the record; records a run did not see are
// removed so the collection mirrors the upstream dataset.
type staleRecordDocument struct {
	domain.ScanRecord `bson:",inline"`
	SyncedAt          time.Time `bson:"syncedAt"`
}

// StaleRecordRepository persists synced stale scan records.
type StaleRecordRepository struct {
	collection *mongo.Collection
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewStaleRecordRepository creates a new StaleRecordRepository
func NewStaleRecordRepository(db *mongo.Database, logger *logging.Logger, m *metrics.Metrics) *StaleRecordRepository {
	repo := &StaleRecordRepository{
		collection: db.Collection(collectionName),
		logger:     logger,
		metrics:    m,
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *StaleRecordRepository) ensureIndexes(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "trackingNumber", Value: 1},
				{Key: "orderId", Value: 1},
				{Key: "warehouse", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "warehouse", Value: 1}}},
		{Keys: bson.D{{Key: "nonUpdatedSince", Value: -1}}},
		{Keys: bson.D{{Key: "syncedAt", Value: -1}}},
	}
	_, _ = r.collection.Indexes().CreateMany(ctx, indexes)
}

// BulkUpsert replaces the stored dataset for one warehouse: every record is
// upserted under its identity key, then leftovers from earlier runs are
// dropped. Returns the number of records the warehouse now holds.
func (r *StaleRecordRepository) BulkUpsert(ctx context.Context, warehouse string, records []domain.ScanRecord) (int, error) {
	start := time.Now()
	syncedAt := shared.Now()

	if len(records) > 0 {
		models := make([]mongo.WriteModel, 0, len(records))
		for _, record := range records {
			doc := staleRecordDocument{ScanRecord: record, SyncedAt: syncedAt}
			filter := bson.M{
				"trackingNumber": record.TrackingNumber,
				"orderId":        record.OrderID,
				"warehouse":      record.Warehouse,
			}
			models = append(models, mongo.NewUpdateOneModel().
				SetFilter(filter).
				SetUpdate(bson.M{"$set": doc}).
				SetUpsert(true))
		}

		if _, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
			r.observe(ctx, "bulk_upsert", start, false, 0)
			return 0, fmt.Errorf("failed to upsert stale records: %w", err)
		}
	}

	// Drop records this run did not see.
	if _, err := r.collection.DeleteMany(ctx, bson.M{
		"warehouse": warehouse,
		"syncedAt":  bson.M{"$lt": syncedAt},
	}); err != nil {
		r.observe(ctx, "bulk_upsert", start, false, 0)
		return 0, fmt.Errorf("failed to prune stale records: %w", err)
	}

	r.observe(ctx, "bulk_upsert", start, true, int64(len(records)))
	return len(records), nil
}

// List returns one page of stored records for the given warehouse scope.
func (r *StaleRecordRepository) List(ctx context.Context, warehouses []string, page, pageSize int64, sortField string, sortDirection int) ([]domain.ScanRecord, int64, error) {
	start := time.Now()

	filter := bson.M{}
	if len(warehouses) > 0 {
		filter["warehouse"] = bson.M{"$in": warehouses}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		r.observe(ctx, "list", start, false, 0)
		return nil, 0, fmt.Errorf("failed to count stale records: %w", err)
	}

	opts := options.Find().
		SetSort(shared.SortBy(sortFieldToBson(sortField), sortDirection)).
		SetSkip((page - 1) * pageSize).
		SetLimit(pageSize)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		r.observe(ctx, "list", start, false, 0)
		return nil, 0, fmt.Errorf("failed to list stale records: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []staleRecordDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.observe(ctx, "list", start, false, 0)
		return nil, 0, fmt.Errorf("failed to decode stale records: %w", err)
	}

	records := make([]domain.ScanRecord, len(docs))
	for i, doc := range docs {
		records[i] = doc.ScanRecord
	}

	r.observe(ctx, "list", start, true, int64(len(records)))
	return records, total, nil
}

// CountByWarehouse returns per-warehouse record counts.
func (r *StaleRecordRepository) CountByWarehouse(ctx context.Context) (map[string]int64, error) {
	start := time.Now()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$warehouse",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		r.observe(ctx, "count_by_warehouse", start, false, 0)
		return nil, fmt.Errorf("failed to aggregate stale record counts: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Warehouse string `bson:"_id"`
		Count     int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		r.observe(ctx, "count_by_warehouse", start, false, 0)
		return nil, fmt.Errorf("failed to decode stale record counts: %w", err)
	}

	stats := make(map[string]int64, len(rows))
	for _, row := range rows {
		stats[row.Warehouse] = row.Count
	}

	r.observe(ctx, "count_by_warehouse", start, true, int64(len(rows)))
	return stats, nil
}

// sortFieldToBson maps API sort field names onto stored field names. Unknown
// fields fall back to the dataset's fixed sort key.
func sortFieldToBson(field string) string {
	switch field {
	case "", domain.SortKey:
		return "nonUpdatedSince"
	case "tracking_number":
		return "trackingNumber"
	case "order_id":
		return "orderId"
	case "warehouse":
		return "warehouse"
	case "zone":
		return "zone"
	case "driver_id":
		return "driverId"
	case "current_status":
		return "currentStatus"
	default:
		return "nonUpdatedSince"
	}
}

func (r *StaleRecordRepository) observe(ctx context.Context, operation string, start time.Time, success bool, rows int64) {
	duration := time.Since(start)
	if r.metrics != nil {
		r.metrics.RecordMongoDBOperation(collectionName, operation, success, duration)
	}
	r.logger.DatabaseQuery(ctx, collectionName, operation, duration, success, rows)
}
