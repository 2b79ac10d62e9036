package events

import (
	"time"
)

// EventType constants for scan-record domain events
const (
	// Sync events
	SyncStarted   = "scanwatch.sync.started"
	SyncCompleted = "scanwatch.sync.completed"
	SyncFailed    = "scanwatch.sync.failed"

	// Export events
	ExportCompleted = "scanwatch.export.completed"
	ExportAborted   = "scanwatch.export.aborted"

	// Session events
	SessionOpened  = "scanwatch.session.opened"
	SessionExpired = "scanwatch.session.expired"
)

// Source constants for event sources
const (
	SourceScanwatch = "/wms/scanwatch-service"
)

// CloudEvent represents a CloudEvents v1.0 compliant event
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// Scanwatch-specific extensions
	CorrelationID string `json:"swcorrelationid,omitempty"`
	Warehouse     string `json:"swwarehouse,omitempty"`
}

// SyncCompletedData represents the data payload for SyncCompleted event
type SyncCompletedData struct {
	Warehouse    string    `json:"warehouse"`
	RecordCount  int       `json:"recordCount"`
	PagesFetched int       `json:"pagesFetched"`
	CompletedAt  time.Time `json:"completedAt"`
}

// SyncFailedData represents the data payload for SyncFailed event
type SyncFailedData struct {
	Warehouse string `json:"warehouse"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
}

// ExportCompletedData represents the data payload for ExportCompleted event
type ExportCompletedData struct {
	Warehouse   string `json:"warehouse"`
	RecordCount int    `json:"recordCount"`
	Identity    string `json:"identity"`
}

// SessionEventData represents the data payload for session lifecycle events
type SessionEventData struct {
	Identity string `json:"identity"`
}
