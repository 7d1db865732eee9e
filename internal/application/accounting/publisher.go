package accounting

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poserp/accounting/internal/domain/ordering"
	"github.com/poserp/accounting/internal/domain/shared"
)

// ErrPublisherNotInitialized is returned when a publish method is called
// before Initialize bound the publisher to an organization
var ErrPublisherNotInitialized = shared.NewDomainError(
	"PUBLISHER_NOT_INITIALIZED", "Event publisher has not been initialized for an organization")

// PaymentNotice is the inbound payload of a payment-received action
type PaymentNotice struct {
	OrderID     uuid.UUID
	OrderNumber string
	Method      ordering.PaymentMethod
	Provider    string
	Amount      decimal.Decimal
	Reference   string
	Timestamp   time.Time
}

// RefundNotice is the inbound payload of a refund-processed action
type RefundNotice struct {
	OrderID      uuid.UUID
	OrderNumber  string
	RefundAmount decimal.Decimal
	Reason       string
	UserID       *uuid.UUID
}

// VoidNotice is the inbound payload of an order-voided action
type VoidNotice struct {
	OrderID     uuid.UUID
	OrderNumber string
	Reason      string
	UserID      *uuid.UUID
}

// PublisherStats reports processed event counts overall and by event type
type PublisherStats struct {
	OrganizationID uuid.UUID        `json:"organization_id"`
	Total          int64            `json:"total"`
	ByType         map[string]int64 `json:"by_type"`
}

// EventPublisher is the ingress boundary of the pipeline. It wraps domain
// actions as typed events, dispatches them synchronously to the
// orchestrator, and re-emits success/failure notifications on the event bus
// for external listeners. Failures are re-raised to the caller after the
// failure notification is emitted, never swallowed.
type EventPublisher struct {
	orchestrator *Orchestrator
	bus          shared.EventBus
	logger       *zap.Logger

	mu          sync.Mutex
	initialized bool
	orgID       uuid.UUID
	total       int64
	byType      map[string]int64
}

// NewEventPublisher creates an uninitialized publisher. Initialize must be
// called before any publish method.
func NewEventPublisher(orchestrator *Orchestrator, bus shared.EventBus, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{
		orchestrator: orchestrator,
		bus:          bus,
		logger:       logger,
		byType:       make(map[string]int64),
	}
}

// Initialize binds the publisher to an organization. Re-initializing with
// the same organization is a no-op; binding a different organization tears
// down the previous binding and resets the statistics counters.
func (p *EventPublisher) Initialize(ctx context.Context, orgID uuid.UUID) error {
	if orgID == uuid.Nil {
		return shared.NewDomainError("INVALID_ORGANIZATION", "Organization ID cannot be empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		if p.orgID == orgID {
			return nil
		}
		p.logger.Info("re-initializing event publisher, tearing down previous binding",
			zap.String("previous_org", p.orgID.String()),
			zap.String("new_org", orgID.String()),
		)
		p.total = 0
		p.byType = make(map[string]int64)
	}

	p.orgID = orgID
	p.initialized = true

	p.logger.Info("event publisher initialized", zap.String("organization_id", orgID.String()))

	return nil
}

// PublishOrderCompleted records a settled order through the pipeline
func (p *EventPublisher) PublishOrderCompleted(ctx context.Context, order *ordering.Order) (AccountingResult, error) {
	orgID, err := p.checkInitialized()
	if err != nil {
		return AccountingResult{}, err
	}
	if order == nil {
		return AccountingResult{}, shared.NewDomainError("INVALID_INPUT", "Order cannot be nil")
	}
	if order.OrgID == uuid.Nil {
		order.OrgID = orgID
	}

	event := ordering.NewOrderCompletedEvent(order)
	return p.dispatch(ctx, event)
}

// PublishPaymentReceived records a payment confirmation
func (p *EventPublisher) PublishPaymentReceived(ctx context.Context, notice PaymentNotice) (AccountingResult, error) {
	orgID, err := p.checkInitialized()
	if err != nil {
		return AccountingResult{}, err
	}

	ts := notice.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	event := ordering.NewPaymentReceivedEvent(
		orgID, notice.OrderID, notice.OrderNumber,
		notice.Method, notice.Provider, notice.Amount, notice.Reference, ts)
	return p.dispatch(ctx, event)
}

// PublishRefundProcessed records a processed refund
func (p *EventPublisher) PublishRefundProcessed(ctx context.Context, notice RefundNotice) (AccountingResult, error) {
	orgID, err := p.checkInitialized()
	if err != nil {
		return AccountingResult{}, err
	}

	event := ordering.NewRefundProcessedEvent(
		orgID, notice.OrderID, notice.OrderNumber, notice.RefundAmount, notice.Reason, notice.UserID)
	return p.dispatch(ctx, event)
}

// PublishOrderVoided records an order void
func (p *EventPublisher) PublishOrderVoided(ctx context.Context, notice VoidNotice) (AccountingResult, error) {
	orgID, err := p.checkInitialized()
	if err != nil {
		return AccountingResult{}, err
	}

	event := ordering.NewOrderVoidedEvent(
		orgID, notice.OrderID, notice.OrderNumber, notice.Reason, notice.UserID)
	return p.dispatch(ctx, event)
}

// Stats returns the event counters for the current binding
func (p *EventPublisher) Stats() PublisherStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	byType := make(map[string]int64, len(p.byType))
	for k, v := range p.byType {
		byType[k] = v
	}
	return PublisherStats{
		OrganizationID: p.orgID,
		Total:          p.total,
		ByType:         byType,
	}
}

// dispatch hands the event to the orchestrator, counts it, and re-emits the
// outcome as a notification. A failed result is re-raised as an error after
// the failure notification has gone out.
func (p *EventPublisher) dispatch(ctx context.Context, event shared.DomainEvent) (AccountingResult, error) {
	p.count(event.EventType())

	result := p.orchestrator.Handle(ctx, event)

	if result.Success {
		if err := p.bus.Publish(ctx, NewResultRecordedEvent(event.OrganizationID(), event.EventType(), result)); err != nil {
			p.logger.Warn("failed to emit success notification",
				zap.String("event_type", event.EventType()),
				zap.Error(err),
			)
		}
		return result, nil
	}

	if err := p.bus.Publish(ctx, NewResultFailedEvent(event.OrganizationID(), event, result)); err != nil {
		p.logger.Warn("failed to emit failure notification",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}

	failureMsg := result.Error
	if failureMsg == "" {
		failureMsg = result.Message
	}
	return result, errors.New(failureMsg)
}

func (p *EventPublisher) checkInitialized() (uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return uuid.Nil, ErrPublisherNotInitialized
	}
	return p.orgID, nil
}

func (p *EventPublisher) count(eventType string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total++
	p.byType[eventType]++
}
