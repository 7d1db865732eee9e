package ordering

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/poserp/accounting/internal/domain/shared"
)

// Event types emitted by the POS ordering surface
const (
	EventTypeOrderCompleted  = "order.completed"
	EventTypePaymentReceived = "payment.received"
	EventTypeRefundProcessed = "refund.processed"
	EventTypeOrderVoided     = "order.voided"
)

// AggregateTypeOrder identifies the order aggregate in event metadata
const AggregateTypeOrder = "Order"

// EventSourcePOS identifies the POS surface as the event source
const EventSourcePOS = "pos"

// OrderCompletedEvent is raised when an order is settled at the POS
type OrderCompletedEvent struct {
	shared.BaseDomainEvent
	Order *Order `json:"order"`
}

// NewOrderCompletedEvent creates an OrderCompletedEvent for a completed order
func NewOrderCompletedEvent(order *Order) *OrderCompletedEvent {
	return &OrderCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypeOrderCompleted, AggregateTypeOrder, order.ID, order.OrgID, EventSourcePOS),
		Order: order,
	}
}

// PaymentReceivedEvent is raised when a payment confirmation arrives for an
// already-recorded order
type PaymentReceivedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Method      PaymentMethod   `json:"method"`
	Provider    string          `json:"provider,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Reference   string          `json:"reference,omitempty"`
	ReceivedAt  time.Time       `json:"received_at"`
}

// NewPaymentReceivedEvent creates a PaymentReceivedEvent
func NewPaymentReceivedEvent(orgID, orderID uuid.UUID, orderNumber string, method PaymentMethod, provider string, amount decimal.Decimal, reference string, receivedAt time.Time) *PaymentReceivedEvent {
	return &PaymentReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypePaymentReceived, AggregateTypeOrder, orderID, orgID, EventSourcePOS),
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Method:      method,
		Provider:    provider,
		Amount:      amount,
		Reference:   reference,
		ReceivedAt:  receivedAt,
	}
}

// RefundProcessedEvent is raised when a refund has been processed against an order
type RefundProcessedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID       `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	Reason       string          `json:"reason"`
}

// NewRefundProcessedEvent creates a RefundProcessedEvent
func NewRefundProcessedEvent(orgID, orderID uuid.UUID, orderNumber string, refundAmount decimal.Decimal, reason string, actorID *uuid.UUID) *RefundProcessedEvent {
	ev := &RefundProcessedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypeRefundProcessed, AggregateTypeOrder, orderID, orgID, EventSourcePOS),
		OrderID:      orderID,
		OrderNumber:  orderNumber,
		RefundAmount: refundAmount,
		Reason:       reason,
	}
	if actorID != nil {
		ev.SetActor(*actorID)
	}
	return ev
}

// OrderVoidedEvent is raised when a recorded order is voided
type OrderVoidedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Reason      string    `json:"reason"`
}

// NewOrderVoidedEvent creates an OrderVoidedEvent
func NewOrderVoidedEvent(orgID, orderID uuid.UUID, orderNumber, reason string, actorID *uuid.UUID) *OrderVoidedEvent {
	ev := &OrderVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypeOrderVoided, AggregateTypeOrder, orderID, orgID, EventSourcePOS),
		OrderID:     orderID,
		OrderNumber: orderNumber,
		Reason:      reason,
	}
	if actorID != nil {
		ev.SetActor(*actorID)
	}
	return ev
}
