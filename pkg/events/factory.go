package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventFactory creates CloudEvents for scan-record domain events
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new CloudEvent with the given parameters
func (f *EventFactory) CreateEvent(
	ctx context.Context,
	eventType string,
	subject string,
	data interface{},
) *CloudEvent {
	return &CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// CreateSyncCompletedEvent creates a SyncCompleted event
func (f *EventFactory) CreateSyncCompletedEvent(
	ctx context.Context,
	warehouse string,
	recordCount int,
	pagesFetched int,
) *CloudEvent {
	data := SyncCompletedData{
		Warehouse:    warehouse,
		RecordCount:  recordCount,
		PagesFetched: pagesFetched,
		CompletedAt:  time.Now().UTC(),
	}
	event := f.CreateEvent(ctx, SyncCompleted, "warehouse/"+warehouse, data)
	event.Warehouse = warehouse
	return event
}

// CreateSyncFailedEvent creates a SyncFailed event
func (f *EventFactory) CreateSyncFailedEvent(
	ctx context.Context,
	warehouse string,
	outcome string,
	reason string,
) *CloudEvent {
	data := SyncFailedData{
		Warehouse: warehouse,
		Outcome:   outcome,
		Reason:    reason,
	}
	event := f.CreateEvent(ctx, SyncFailed, "warehouse/"+warehouse, data)
	event.Warehouse = warehouse
	return event
}

// CreateExportCompletedEvent creates an ExportCompleted event
func (f *EventFactory) CreateExportCompletedEvent(
	ctx context.Context,
	warehouse string,
	recordCount int,
	identity string,
) *CloudEvent {
	data := ExportCompletedData{
		Warehouse:   warehouse,
		RecordCount: recordCount,
		Identity:    identity,
	}
	event := f.CreateEvent(ctx, ExportCompleted, "warehouse/"+warehouse, data)
	event.Warehouse = warehouse
	return event
}

// CreateSessionOpenedEvent creates a SessionOpened event
func (f *EventFactory) CreateSessionOpenedEvent(ctx context.Context, identity string) *CloudEvent {
	return f.CreateEvent(ctx, SessionOpened, "identity/"+identity, SessionEventData{Identity: identity})
}
