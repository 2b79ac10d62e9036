package domain

// ScanRecord is one shipment that has not been scan-updated within the
// expected window, as reported by the upstream scan-record API.
// Records are never mutated after receipt; aggregation only appends.
type ScanRecord struct {
	TrackingNumber  string  `json:"tracking_number" bson:"trackingNumber"`
	OrderID         string  `json:"order_id" bson:"orderId"`
	Warehouse       string  `json:"warehouse" bson:"warehouse"`
	Zone            string  `json:"zone" bson:"zone"`
	DriverID        string  `json:"driver_id" bson:"driverId"`
	CurrentStatus   string  `json:"current_status" bson:"currentStatus"`
	NonUpdatedSince *string `json:"nonupdated_start_timestamp" bson:"nonUpdatedSince"`
}

// Fixed query parameters for every upstream page request. The sort order is
// part of the dataset contract: page boundaries are a pagination artifact and
// must not reorder records.
const (
	SortKey          = "nonupdated_start_timestamp"
	SortOrder        = "desc"
	DefaultPageSize  = 10
	ExportPageSize   = 100
	MaxBrowsePageSize = 100
)

// PageQuery identifies one page of a warehouse-scoped result set.
type PageQuery struct {
	Warehouse     string
	Page          int
	PageSize      int
	ShowCancelled bool
}

// PageResult is one fetched page plus the pagination view the upstream
// reported (or that was derived from its total count).
type PageResult struct {
	Records    []ScanRecord
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// DeriveTotalPages computes the page count for a given total and page size.
// An empty result set still spans one page so that the page range stays
// well-defined for callers iterating 1..TotalPages.
func DeriveTotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// AggregationOutcome classifies how an aggregation run ended. The outcome
// tag, not the record list, decides what a caller may do with the records.
type AggregationOutcome string

const (
	AggregationComplete       AggregationOutcome = "complete"
	AggregationSessionExpired AggregationOutcome = "aborted_session_expired"
	AggregationTransientError AggregationOutcome = "aborted_transient_error"
)

// AggregationResult is the full-dataset view assembled from every page of a
// warehouse's result set. Records appear in fetch order, i.e. sorted by the
// fixed sort key descending across the whole page sequence.
type AggregationResult struct {
	Warehouse string
	Records   []ScanRecord
	Outcome   AggregationOutcome
	// Err carries the failure behind a non-Complete outcome.
	Err error
}

// IsComplete reports whether the record list may be treated as the full
// dataset. Partial record lists from aborted runs must never be exported.
func (r *AggregationResult) IsComplete() bool {
	return r.Outcome == AggregationComplete
}
