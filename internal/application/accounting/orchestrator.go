package accounting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/poserp/accounting/internal/domain/ledger"
	"github.com/poserp/accounting/internal/domain/ordering"
	"github.com/poserp/accounting/internal/domain/shared"
)

// TransactionNumberFormat renders transaction numbers as TXN-YYYYMMDD-NNNN
const TransactionNumberFormat = "TXN-%s-%04d"

// tracerName identifies orchestrator spans
const tracerName = "accounting.orchestrator"

// Orchestrator is the event bridge: it receives typed commerce events,
// converts domain objects into universal transactions, runs classification
// and journal building, persists results, and decides whether to auto-post
// or hold for review. Handle never lets an internal error escape: every
// branch returns a structured AccountingResult.
type Orchestrator struct {
	classifier   *Classifier
	builder      *JournalBuilder
	transactions ledger.TransactionRepository
	journals     ledger.JournalRepository
	sequences    ledger.SequenceAllocator
	store        ledger.EntityStore
	currency     string
	refundLimit  decimal.Decimal
	logger       *zap.Logger
	tracer       trace.Tracer
}

// NewOrchestrator creates the event bridge over its collaborators
func NewOrchestrator(
	classifier *Classifier,
	builder *JournalBuilder,
	transactions ledger.TransactionRepository,
	journals ledger.JournalRepository,
	sequences ledger.SequenceAllocator,
	store ledger.EntityStore,
	currency string,
	refundApprovalLimit decimal.Decimal,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		classifier:   classifier,
		builder:      builder,
		transactions: transactions,
		journals:     journals,
		sequences:    sequences,
		store:        store,
		currency:     currency,
		refundLimit:  refundApprovalLimit,
		logger:       logger,
		tracer:       otel.Tracer(tracerName),
	}
}

// Handle dispatches an incoming commerce event to the matching pipeline
// branch and returns the accounting outcome
func (o *Orchestrator) Handle(ctx context.Context, event shared.DomainEvent) (result AccountingResult) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Handle",
		trace.WithAttributes(
			attribute.String("event.type", event.EventType()),
			attribute.String("organization.id", event.OrganizationID().String()),
		))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("event handling panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
			)
			result = failure("internal error while processing event", fmt.Errorf("panic: %v", r))
		}
		span.SetAttributes(attribute.Bool("result.success", result.Success))
	}()

	switch ev := event.(type) {
	case *ordering.OrderCompletedEvent:
		return o.handleOrderCompleted(ctx, ev)
	case *ordering.PaymentReceivedEvent:
		return o.handlePaymentReceived(ctx, ev)
	case *ordering.RefundProcessedEvent:
		return o.handleRefundProcessed(ctx, ev)
	case *ordering.OrderVoidedEvent:
		return o.handleOrderVoided(ctx, ev)
	default:
		return failure(
			fmt.Sprintf("unsupported event type %q", event.EventType()),
			shared.NewDomainError("UNSUPPORTED_EVENT", "No pipeline branch accepts this event type"),
		)
	}
}

// handleOrderCompleted runs the full pipeline for a settled order:
// classification, journal build, persistence, posting decision
func (o *Orchestrator) handleOrderCompleted(ctx context.Context, event *ordering.OrderCompletedEvent) AccountingResult {
	order := event.Order
	if order == nil {
		return failure("order completed event carries no order", shared.ErrInvalidInput)
	}

	date := time.Now()
	if order.CompletedAt != nil {
		date = *order.CompletedAt
	}

	transactionNumber, err := o.nextTransactionNumber(ctx, order.OrgID, date)
	if err != nil {
		return failure("failed to allocate transaction number", err)
	}

	classification := o.classifier.Classify(ctx, order)

	txn, err := ledger.NewSalesTransaction(
		order.OrgID,
		transactionNumber,
		deriveSubtype(order),
		date,
		order.TotalAmount,
		o.currency,
		ledger.NewOrderPayload(order),
	)
	if err != nil {
		return failure("failed to build universal transaction", err)
	}
	txn.ApplyClassification(classification)

	journal, journalReceipt, err := o.builder.Build(ctx, txn, order, classification)
	if err != nil {
		return failure("failed to build journal entry", err)
	}

	txnReceipt, err := o.transactions.Save(ctx, txn)
	if err != nil {
		return failure("failed to persist universal transaction", err)
	}

	// Classification provenance rides as best-effort metadata on the
	// transaction entity
	if _, err := o.store.CreateMetadata(ctx, ledger.MetadataRecord{
		EntityID: txn.ID,
		OrgID:    txn.OrgID,
		Key:      ledger.MetadataKeyClassification,
		Value:    classification,
	}); err != nil {
		o.logger.Warn("failed to attach classification provenance",
			zap.String("transaction_number", transactionNumber),
			zap.Error(err),
		)
	}

	postingStatus := ledger.PostingStatusDraft
	message := "transaction recorded, held for review"
	if !classification.ReviewRequired {
		if err := o.autoPost(ctx, txn, journal); err != nil {
			o.logger.Warn("auto-post failed, transaction stays draft",
				zap.String("transaction_number", transactionNumber),
				zap.Error(err),
			)
		} else {
			postingStatus = ledger.PostingStatusPosted
			message = "transaction posted"
		}
	}

	o.logger.Info("order processed",
		zap.String("transaction_number", transactionNumber),
		zap.String("journal_number", journal.JournalNumber),
		zap.String("posting_status", postingStatus.String()),
		zap.Float64("confidence", classification.Confidence),
		zap.Bool("requires_approval", txn.RequiresApproval),
	)

	result := AccountingResult{
		Success:        true,
		TransactionID:  &txn.ID,
		JournalEntryID: &journal.ID,
		PostingStatus:  postingStatus,
		Message:        message,
	}
	if advisory := firstAdvisory(txnReceipt, journalReceipt); advisory != "" {
		result.Error = advisory
	}
	return result
}

// autoPost finalizes the transaction and its journal. A failure leaves both
// in draft; the caller reports the draft status.
func (o *Orchestrator) autoPost(ctx context.Context, txn *ledger.UniversalTransaction, journal *ledger.JournalEntryRecord) error {
	if err := txn.MarkPosted(); err != nil {
		return err
	}
	if err := o.transactions.Update(ctx, txn); err != nil {
		txn.PostingStatus = ledger.PostingStatusDraft
		return fmt.Errorf("failed to persist posted transaction: %w", err)
	}
	if err := journal.MarkPosted(); err != nil {
		return err
	}
	if err := o.journals.UpdateStatus(ctx, journal.OrgID, journal.ID, ledger.JournalStatusPosted); err != nil {
		// The transaction is already stored as posted; revert it so the
		// reported draft status matches the durable record.
		txn.PostingStatus = ledger.PostingStatusDraft
		if revertErr := o.transactions.Update(ctx, txn); revertErr != nil {
			o.logger.Error("failed to revert transaction after journal post failure",
				zap.String("transaction_number", txn.TransactionNumber),
				zap.Error(revertErr),
			)
		}
		return fmt.Errorf("failed to persist posted journal: %w", err)
	}
	return nil
}

// handlePaymentReceived merges a payment confirmation into the recorded
// transaction for the order
func (o *Orchestrator) handlePaymentReceived(ctx context.Context, event *ordering.PaymentReceivedEvent) AccountingResult {
	txn, err := o.transactions.FindBySourceOrder(ctx, event.OrganizationID(), event.OrderID)
	if err != nil {
		return failure("failed to look up transaction for payment", err)
	}
	if txn == nil {
		return failure(
			fmt.Sprintf("no transaction found for order %s", event.OrderID),
			shared.ErrNotFound,
		)
	}

	if err := txn.ConfirmPayment(ledger.PaymentConfirmation{
		Method:      event.Method,
		Provider:    event.Provider,
		Amount:      event.Amount,
		Reference:   event.Reference,
		ConfirmedAt: event.ReceivedAt,
	}); err != nil {
		return failure("failed to confirm payment", err)
	}

	if err := o.transactions.Update(ctx, txn); err != nil {
		return failure("failed to persist payment confirmation", err)
	}

	o.logger.Info("payment confirmed",
		zap.String("transaction_number", txn.TransactionNumber),
		zap.String("method", event.Method.String()),
		zap.String("amount", event.Amount.StringFixed(2)),
	)

	return AccountingResult{
		Success:       true,
		TransactionID: &txn.ID,
		PostingStatus: txn.PostingStatus,
		Message:       "payment confirmation recorded",
	}
}

// handleRefundProcessed records a refund as a new negative-amount
// transaction and routes it through the posting decision
func (o *Orchestrator) handleRefundProcessed(ctx context.Context, event *ordering.RefundProcessedEvent) AccountingResult {
	date := time.Now()
	transactionNumber, err := o.nextTransactionNumber(ctx, event.OrganizationID(), date)
	if err != nil {
		return failure("failed to allocate transaction number", err)
	}

	txn, err := ledger.NewRefundTransaction(
		event.OrganizationID(),
		transactionNumber,
		date,
		event.RefundAmount,
		o.currency,
		ledger.RefundDetails{
			OrderID:     event.OrderID,
			OrderNumber: event.OrderNumber,
			Amount:      event.RefundAmount,
			Reason:      event.Reason,
		},
	)
	if err != nil {
		return failure("failed to build refund transaction", err)
	}
	txn.RequiresApproval = event.RefundAmount.GreaterThan(o.refundLimit)

	receipt, err := o.transactions.Save(ctx, txn)
	if err != nil {
		return failure("failed to persist refund transaction", err)
	}

	postingStatus := ledger.PostingStatusDraft
	message := "refund recorded, held for approval"
	if !txn.RequiresApproval {
		if err := txn.MarkPosted(); err == nil {
			if err := o.transactions.Update(ctx, txn); err != nil {
				txn.PostingStatus = ledger.PostingStatusDraft
				o.logger.Warn("failed to post refund, staying draft",
					zap.String("transaction_number", transactionNumber),
					zap.Error(err),
				)
			} else {
				postingStatus = ledger.PostingStatusPosted
				message = "refund posted"
			}
		}
	}

	o.logger.Info("refund processed",
		zap.String("transaction_number", transactionNumber),
		zap.String("refund_amount", event.RefundAmount.StringFixed(2)),
		zap.Bool("requires_approval", txn.RequiresApproval),
		zap.String("posting_status", postingStatus.String()),
	)

	result := AccountingResult{
		Success:       true,
		TransactionID: &txn.ID,
		PostingStatus: postingStatus,
		Message:       message,
	}
	if receipt.Simulated {
		result.Error = receipt.Advisory
	}
	return result
}

// handleOrderVoided voids the recorded transaction for the order. Voiding an
// already-voided transaction is idempotent and creates no duplicate record.
func (o *Orchestrator) handleOrderVoided(ctx context.Context, event *ordering.OrderVoidedEvent) AccountingResult {
	txn, err := o.transactions.FindBySourceOrder(ctx, event.OrganizationID(), event.OrderID)
	if err != nil {
		return failure("failed to look up transaction for void", err)
	}
	if txn == nil {
		return failure(
			fmt.Sprintf("no transaction found for order %s", event.OrderID),
			shared.ErrNotFound,
		)
	}

	if txn.IsVoided() {
		return AccountingResult{
			Success:       true,
			TransactionID: &txn.ID,
			PostingStatus: ledger.PostingStatusVoided,
			Message:       "transaction already voided",
		}
	}

	if err := txn.MarkVoided(event.Reason, event.ActorID); err != nil {
		return failure("failed to void transaction", err)
	}
	if err := o.transactions.Update(ctx, txn); err != nil {
		return failure("failed to persist voided transaction", err)
	}

	o.logger.Info("transaction voided",
		zap.String("transaction_number", txn.TransactionNumber),
		zap.String("reason", event.Reason),
	)

	return AccountingResult{
		Success:       true,
		TransactionID: &txn.ID,
		PostingStatus: ledger.PostingStatusVoided,
		Message:       "transaction voided",
	}
}

// nextTransactionNumber allocates the daily sequential transaction number
func (o *Orchestrator) nextTransactionNumber(ctx context.Context, orgID uuid.UUID, date time.Time) (string, error) {
	seq, err := o.sequences.Next(ctx, orgID, ledger.SequenceScopeTransaction, date)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(TransactionNumberFormat, date.Format("20060102"), seq), nil
}

// deriveSubtype applies the channel derivation table: delivery keyword in
// the customer reference wins, then table number, then takeaway items
func deriveSubtype(order *ordering.Order) ledger.TransactionSubtype {
	if strings.Contains(strings.ToLower(order.CustomerRef), "delivery") {
		return ledger.SubtypeDeliveryOrder
	}
	if order.TableNumber != "" {
		return ledger.SubtypeDineInOrder
	}
	if order.HasTakeawayItems() {
		return ledger.SubtypeTakeawayOrder
	}
	return ledger.SubtypePOSSale
}

// firstAdvisory returns the first durability advisory among the receipts
func firstAdvisory(receipts ...ledger.WriteReceipt) string {
	for _, r := range receipts {
		if r.Simulated {
			return r.Advisory
		}
	}
	return ""
}
