package accounting

import (
	"github.com/google/uuid"

	"github.com/poserp/accounting/internal/domain/shared"
)

// Notification event types re-emitted to external listeners (dashboards,
// audit logs) after the pipeline finishes an event
const (
	EventTypeResultRecorded = "accounting.result.recorded"
	EventTypeResultFailed   = "accounting.result.failed"
)

// AggregateTypeAccountingResult identifies result notifications in event metadata
const AggregateTypeAccountingResult = "AccountingResult"

// EventSourceAccounting identifies the pipeline as the notification source
const EventSourceAccounting = "accounting"

// ResultRecordedEvent notifies listeners that an event was processed
// successfully
type ResultRecordedEvent struct {
	shared.BaseDomainEvent
	SourceEventType string           `json:"source_event_type"`
	Result          AccountingResult `json:"result"`
}

// NewResultRecordedEvent creates a success notification
func NewResultRecordedEvent(orgID uuid.UUID, sourceEventType string, result AccountingResult) *ResultRecordedEvent {
	aggID := uuid.Nil
	if result.TransactionID != nil {
		aggID = *result.TransactionID
	}
	return &ResultRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypeResultRecorded, AggregateTypeAccountingResult, aggID, orgID, EventSourceAccounting),
		SourceEventType: sourceEventType,
		Result:          result,
	}
}

// ResultFailedEvent notifies listeners that processing failed. It carries the
// original event so listeners can replay or inspect it.
type ResultFailedEvent struct {
	shared.BaseDomainEvent
	SourceEventType string             `json:"source_event_type"`
	SourceEvent     shared.DomainEvent `json:"-"`
	Result          AccountingResult   `json:"result"`
	Failure         string             `json:"failure"`
}

// NewResultFailedEvent creates a failure notification wrapping the original event
func NewResultFailedEvent(orgID uuid.UUID, sourceEvent shared.DomainEvent, result AccountingResult) *ResultFailedEvent {
	failureMsg := result.Error
	if failureMsg == "" {
		failureMsg = result.Message
	}
	return &ResultFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypeResultFailed, AggregateTypeAccountingResult, sourceEvent.AggregateID(), orgID, EventSourceAccounting),
		SourceEventType: sourceEvent.EventType(),
		SourceEvent:     sourceEvent,
		Result:          result,
		Failure:         failureMsg,
	}
}
