package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/poserp/accounting/internal/domain/ordering"
	"github.com/poserp/accounting/internal/domain/shared"
)

// TransactionType classifies the financial nature of a universal transaction
type TransactionType string

const (
	TransactionTypeSalesOrder TransactionType = "SALES_ORDER"
	TransactionTypeRefund     TransactionType = "REFUND"
)

// TransactionSubtype refines a sales transaction by channel
type TransactionSubtype string

const (
	SubtypePOSSale       TransactionSubtype = "POS_SALE"
	SubtypeDineInOrder   TransactionSubtype = "DINE_IN_ORDER"
	SubtypeTakeawayOrder TransactionSubtype = "TAKEAWAY_ORDER"
	SubtypeDeliveryOrder TransactionSubtype = "DELIVERY_ORDER"
)

// PostingStatus represents the ledger posting state of a transaction
type PostingStatus string

const (
	// PostingStatusDraft indicates the transaction is recorded but still editable
	PostingStatusDraft PostingStatus = "draft"
	// PostingStatusPosted indicates the transaction is final
	PostingStatusPosted PostingStatus = "posted"
	// PostingStatusVoided indicates the transaction has been voided
	PostingStatusVoided PostingStatus = "voided"
)

// IsValid checks if the posting status is valid
func (s PostingStatus) IsValid() bool {
	switch s {
	case PostingStatusDraft, PostingStatusPosted, PostingStatusVoided:
		return true
	}
	return false
}

// String returns the string representation of PostingStatus
func (s PostingStatus) String() string {
	return string(s)
}

// Payload kinds carried by a universal transaction
const (
	PayloadKindOrder  = "order"
	PayloadKindRefund = "refund"
)

// PayloadSchemaVersion is the current transaction payload schema version
const PayloadSchemaVersion = 1

// RefundDetails captures the domain payload of a refund transaction
type RefundDetails struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason"`
}

// PaymentConfirmation records a downstream payment confirmation merged into
// an existing transaction
type PaymentConfirmation struct {
	Method      ordering.PaymentMethod `json:"method"`
	Provider    string                 `json:"provider,omitempty"`
	Amount      decimal.Decimal        `json:"amount"`
	Reference   string                 `json:"reference,omitempty"`
	ConfirmedAt time.Time              `json:"confirmed_at"`
}

// VoidInfo records why and by whom a transaction was voided
type VoidInfo struct {
	Reason   string     `json:"reason"`
	ActorID  *uuid.UUID `json:"actor_id,omitempty"`
	VoidedAt time.Time  `json:"voided_at"`
}

// TransactionPayload is a schema-versioned tagged union holding the original
// domain payload of a transaction. Exactly one of Order or Refund is set,
// matching Kind. Raw preserves the original bytes for forward compatibility
// with readers that understand a newer schema.
type TransactionPayload struct {
	Kind          string               `json:"kind"`
	SchemaVersion int                  `json:"schema_version"`
	Order         *ordering.Order      `json:"order,omitempty"`
	Refund        *RefundDetails       `json:"refund,omitempty"`
	Payment       *PaymentConfirmation `json:"payment,omitempty"`
	Raw           json.RawMessage      `json:"raw,omitempty"`
}

// NewOrderPayload wraps an order as a transaction payload
func NewOrderPayload(order *ordering.Order) TransactionPayload {
	raw, _ := json.Marshal(order)
	return TransactionPayload{
		Kind:          PayloadKindOrder,
		SchemaVersion: PayloadSchemaVersion,
		Order:         order,
		Raw:           raw,
	}
}

// NewRefundPayload wraps refund details as a transaction payload
func NewRefundPayload(details RefundDetails) TransactionPayload {
	raw, _ := json.Marshal(details)
	return TransactionPayload{
		Kind:          PayloadKindRefund,
		SchemaVersion: PayloadSchemaVersion,
		Refund:        &details,
		Raw:           raw,
	}
}

// UniversalTransaction is the canonical internal record of any financial
// event, independent of its originating domain action. It is created once by
// the orchestrator and never deleted; the only allowed mutations are posting
// status changes and payment confirmation.
type UniversalTransaction struct {
	shared.OrgAggregateRoot

	TransactionNumber string             `json:"transaction_number"`
	Type              TransactionType    `json:"type"`
	Subtype           TransactionSubtype `json:"subtype,omitempty"`
	Date              time.Time          `json:"date"`
	TotalAmount       decimal.Decimal    `json:"total_amount"`
	Currency          string             `json:"currency"`
	IsFinancial       bool               `json:"is_financial"`
	PostingStatus     PostingStatus      `json:"posting_status"`
	RequiresApproval  bool               `json:"requires_approval"`

	MappedAccounts AccountMapping     `json:"mapped_accounts"`
	Payload        TransactionPayload `json:"transaction_data"`

	PaymentConfirmed bool      `json:"payment_confirmed"`
	Void             *VoidInfo `json:"void,omitempty"`
}

// NewSalesTransaction creates a draft sales transaction from an order payload
func NewSalesTransaction(
	orgID uuid.UUID,
	transactionNumber string,
	subtype TransactionSubtype,
	date time.Time,
	totalAmount decimal.Decimal,
	currency string,
	payload TransactionPayload,
) (*UniversalTransaction, error) {
	if transactionNumber == "" {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_NUMBER", "Transaction number cannot be empty")
	}
	if currency == "" {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency cannot be empty")
	}
	if payload.Kind != PayloadKindOrder || payload.Order == nil {
		return nil, shared.NewDomainError("INVALID_PAYLOAD", "Sales transaction requires an order payload")
	}

	return &UniversalTransaction{
		OrgAggregateRoot:  shared.NewOrgAggregateRoot(orgID),
		TransactionNumber: transactionNumber,
		Type:              TransactionTypeSalesOrder,
		Subtype:           subtype,
		Date:              date,
		TotalAmount:       totalAmount,
		Currency:          currency,
		IsFinancial:       true,
		PostingStatus:     PostingStatusDraft,
		Payload:           payload,
	}, nil
}

// NewRefundTransaction creates a draft refund transaction. The total amount
// is the negated refund amount so that refunds subtract from daily totals.
func NewRefundTransaction(
	orgID uuid.UUID,
	transactionNumber string,
	date time.Time,
	refundAmount decimal.Decimal,
	currency string,
	details RefundDetails,
) (*UniversalTransaction, error) {
	if transactionNumber == "" {
		return nil, shared.NewDomainError("INVALID_TRANSACTION_NUMBER", "Transaction number cannot be empty")
	}
	if refundAmount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Refund amount must be positive")
	}
	if currency == "" {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency cannot be empty")
	}

	return &UniversalTransaction{
		OrgAggregateRoot:  shared.NewOrgAggregateRoot(orgID),
		TransactionNumber: transactionNumber,
		Type:              TransactionTypeRefund,
		Date:              date,
		TotalAmount:       refundAmount.Neg(),
		Currency:          currency,
		IsFinancial:       true,
		PostingStatus:     PostingStatusDraft,
		Payload:           NewRefundPayload(details),
	}, nil
}

// ApplyClassification attaches the derived account mapping and approval
// decision to the transaction
func (t *UniversalTransaction) ApplyClassification(c TransactionClassification) {
	t.MappedAccounts = c.Accounts
	t.RequiresApproval = c.ReviewRequired
	t.UpdatedAt = time.Now()
}

// MarkPosted finalizes a draft transaction
func (t *UniversalTransaction) MarkPosted() error {
	if t.PostingStatus == PostingStatusPosted {
		return nil // idempotent
	}
	if t.PostingStatus == PostingStatusVoided {
		return shared.NewDomainError("INVALID_STATE", "Cannot post a voided transaction")
	}

	t.PostingStatus = PostingStatusPosted
	t.UpdatedAt = time.Now()

	return nil
}

// MarkVoided voids the transaction, recording reason and actor. Voiding an
// already-voided transaction is a no-op: the original void record wins.
func (t *UniversalTransaction) MarkVoided(reason string, actorID *uuid.UUID) error {
	if t.PostingStatus == PostingStatusVoided {
		return nil
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_INPUT", "Void reason cannot be empty")
	}

	t.PostingStatus = PostingStatusVoided
	t.Void = &VoidInfo{
		Reason:   reason,
		ActorID:  actorID,
		VoidedAt: time.Now(),
	}
	t.UpdatedAt = time.Now()

	return nil
}

// ConfirmPayment merges a payment confirmation into the stored payload
func (t *UniversalTransaction) ConfirmPayment(conf PaymentConfirmation) error {
	if t.PostingStatus == PostingStatusVoided {
		return shared.NewDomainError("INVALID_STATE", "Cannot confirm payment on a voided transaction")
	}
	if conf.ConfirmedAt.IsZero() {
		conf.ConfirmedAt = time.Now()
	}

	t.Payload.Payment = &conf
	t.PaymentConfirmed = true
	t.UpdatedAt = time.Now()

	return nil
}

// IsVoided reports whether the transaction has been voided
func (t *UniversalTransaction) IsVoided() bool {
	return t.PostingStatus == PostingStatusVoided
}

// String renders a short human-readable identity for logs
func (t *UniversalTransaction) String() string {
	return fmt.Sprintf("%s %s/%s %s", t.TransactionNumber, t.Type, t.PostingStatus, t.TotalAmount.StringFixed(2))
}
