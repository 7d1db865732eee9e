package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/poserp/accounting/internal/application/accounting"
	"github.com/poserp/accounting/internal/domain/ledger"
)

// OrderItemRequest is one line item of a completed order
type OrderItemRequest struct {
	Name      string   `json:"name" binding:"required"`
	Category  string   `json:"category" binding:"required"`
	Quantity  float64  `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64  `json:"unit_price" binding:"gte=0"`
	Tags      []string `json:"tags"`
}

// PaymentInfoRequest describes how the order was settled
type PaymentInfoRequest struct {
	Method    string  `json:"method" binding:"required,oneof=cash credit_card debit_card upi digital_wallet"`
	Provider  string  `json:"provider"`
	Amount    float64 `json:"amount" binding:"gte=0"`
	Reference string  `json:"reference"`
}

// CompleteOrderRequest records a settled POS order into the pipeline
type CompleteOrderRequest struct {
	OrderNumber    string             `json:"order_number" binding:"required"`
	Items          []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Subtotal       float64            `json:"subtotal" binding:"gte=0"`
	TaxAmount      float64            `json:"tax_amount" binding:"gte=0"`
	DiscountAmount float64            `json:"discount_amount" binding:"gte=0"`
	ServiceCharge  float64            `json:"service_charge" binding:"gte=0"`
	TotalAmount    float64            `json:"total_amount" binding:"gte=0"`
	Payment        PaymentInfoRequest `json:"payment" binding:"required"`
	CustomerType   string             `json:"customer_type" binding:"omitempty,oneof=regular walk_in"`
	CustomerRef    string             `json:"customer_ref"`
	TableNumber    string             `json:"table_number"`
	// CompletedAt is the settlement time at the terminal; orders synced
	// after the fact keep their original completion time
	CompletedAt *time.Time `json:"completed_at"`
}

// PaymentReceivedRequest records a downstream payment confirmation
type PaymentReceivedRequest struct {
	OrderID     uuid.UUID  `json:"order_id" binding:"required"`
	OrderNumber string     `json:"order_number" binding:"required"`
	Method      string     `json:"method" binding:"required,oneof=cash credit_card debit_card upi digital_wallet"`
	Provider    string     `json:"provider"`
	Amount      float64    `json:"amount" binding:"required,gt=0"`
	Reference   string     `json:"reference"`
	Timestamp   *time.Time `json:"timestamp"`
}

// RefundProcessedRequest records a processed refund
type RefundProcessedRequest struct {
	OrderID      uuid.UUID `json:"order_id" binding:"required"`
	OrderNumber  string    `json:"order_number" binding:"required"`
	RefundAmount float64   `json:"refund_amount" binding:"required,gt=0"`
	Reason       string    `json:"reason" binding:"required"`
}

// VoidOrderRequest voids the recorded transaction for an order
type VoidOrderRequest struct {
	OrderID     uuid.UUID `json:"order_id" binding:"required"`
	OrderNumber string    `json:"order_number" binding:"required"`
	Reason      string    `json:"reason" binding:"required"`
}

// AccountingResultResponse is the pipeline outcome returned to callers
type AccountingResultResponse struct {
	TransactionID  *uuid.UUID `json:"transaction_id,omitempty"`
	JournalEntryID *uuid.UUID `json:"journal_entry_id,omitempty"`
	PostingStatus  string     `json:"posting_status,omitempty"`
	Message        string     `json:"message"`
	Advisory       string     `json:"advisory,omitempty"`
}

// NewAccountingResultResponse converts a pipeline result to its response shape
func NewAccountingResultResponse(result accounting.AccountingResult) AccountingResultResponse {
	return AccountingResultResponse{
		TransactionID:  result.TransactionID,
		JournalEntryID: result.JournalEntryID,
		PostingStatus:  result.PostingStatus.String(),
		Message:        result.Message,
		Advisory:       result.Error,
	}
}

// JournalLineResponse is one line of a stored journal entry. Monetary
// amounts are serialized as strings to keep their scale.
type JournalLineResponse struct {
	LineNumber  int    `json:"line_number"`
	AccountCode string `json:"account_code"`
	AccountName string `json:"account_name"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Description string `json:"description,omitempty"`
	Reference   string `json:"reference,omitempty"`
}

// JournalEntryResponse is the read shape of a stored journal entry
type JournalEntryResponse struct {
	ID            uuid.UUID             `json:"id"`
	JournalNumber string                `json:"journal_number"`
	TransactionID uuid.UUID             `json:"transaction_id"`
	Date          time.Time             `json:"date"`
	Description   string                `json:"description"`
	Status        string                `json:"status"`
	TotalDebit    string                `json:"total_debit"`
	TotalCredit   string                `json:"total_credit"`
	Lines         []JournalLineResponse `json:"lines"`
}

// NewJournalEntryResponse converts a journal record to its response shape
func NewJournalEntryResponse(journal *ledger.JournalEntryRecord) JournalEntryResponse {
	lines := make([]JournalLineResponse, len(journal.Lines))
	for i, line := range journal.Lines {
		lines[i] = JournalLineResponse{
			LineNumber:  line.LineNumber,
			AccountCode: line.AccountCode,
			AccountName: line.AccountName,
			Debit:       line.Debit.String(),
			Credit:      line.Credit.String(),
			Description: line.Description,
			Reference:   line.Reference,
		}
	}
	return JournalEntryResponse{
		ID:            journal.ID,
		JournalNumber: journal.JournalNumber,
		TransactionID: journal.SourceTransactionID,
		Date:          journal.Date,
		Description:   journal.Description,
		Status:        string(journal.Status),
		TotalDebit:    journal.TotalDebit.String(),
		TotalCredit:   journal.TotalCredit.String(),
		Lines:         lines,
	}
}

// StatsResponse combines publisher counters with the day's journal volume
type StatsResponse struct {
	accounting.PublisherStats
	JournalsToday int64 `json:"journals_today"`
}
