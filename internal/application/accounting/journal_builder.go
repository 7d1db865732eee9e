package accounting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poserp/accounting/internal/domain/ledger"
	"github.com/poserp/accounting/internal/domain/ordering"
)

// JournalNumberFormat renders journal numbers as JE-YYYYMMDD-NNNN. The format
// is part of the durable contract read by reporting and must not change.
const JournalNumberFormat = "JE-%s-%04d"

// DefaultJournalCreator is recorded as the creator of pipeline-built journals
const DefaultJournalCreator = "accounting-pipeline"

var two = decimal.NewFromInt(2)

// JournalBuilder converts an order plus its classification into a balanced
// double-entry journal and persists it through the entity store. It never
// persists a journal that fails validation.
type JournalBuilder struct {
	journals  ledger.JournalRepository
	sequences ledger.SequenceAllocator
	chart     *ledger.ChartOfAccounts
	creator   string
	logger    *zap.Logger
}

// NewJournalBuilder creates a journal builder
func NewJournalBuilder(
	journals ledger.JournalRepository,
	sequences ledger.SequenceAllocator,
	chart *ledger.ChartOfAccounts,
	logger *zap.Logger,
) *JournalBuilder {
	return &JournalBuilder{
		journals:  journals,
		sequences: sequences,
		chart:     chart,
		creator:   DefaultJournalCreator,
		logger:    logger,
	}
}

// Build derives the journal lines for an order, validates the double-entry
// invariants, and persists the journal as an entity plus a metadata record
// holding the line items. The returned receipt carries the durability
// advisory when the store degraded to a simulated write.
func (b *JournalBuilder) Build(
	ctx context.Context,
	txn *ledger.UniversalTransaction,
	order *ordering.Order,
	classification ledger.TransactionClassification,
) (*ledger.JournalEntryRecord, ledger.WriteReceipt, error) {
	date := txn.Date
	if date.IsZero() {
		date = time.Now()
	}

	seq, err := b.sequences.Next(ctx, txn.OrgID, ledger.SequenceScopeJournal, date)
	if err != nil {
		return nil, ledger.WriteReceipt{}, fmt.Errorf("failed to allocate journal sequence: %w", err)
	}
	journalNumber := fmt.Sprintf(JournalNumberFormat, date.Format("20060102"), seq)

	lines := b.deriveLines(order, classification)

	journal, err := ledger.NewJournalEntryRecord(
		txn.OrgID,
		journalNumber,
		txn.ID,
		date,
		fmt.Sprintf("POS sale %s", order.OrderNumber),
		lines,
		b.creator,
	)
	if err != nil {
		b.logger.Error("journal failed validation, refusing to persist",
			zap.String("journal_number", journalNumber),
			zap.String("order_number", order.OrderNumber),
			zap.Error(err),
		)
		return nil, ledger.WriteReceipt{}, err
	}

	receipt, err := b.journals.Save(ctx, journal)
	if err != nil {
		return nil, ledger.WriteReceipt{}, fmt.Errorf("failed to persist journal %s: %w", journalNumber, err)
	}

	b.logger.Info("journal entry created",
		zap.String("journal_number", journalNumber),
		zap.String("order_number", order.OrderNumber),
		zap.String("total_debit", journal.TotalDebit.StringFixed(2)),
		zap.String("total_credit", journal.TotalCredit.StringFixed(2)),
		zap.Int("lines", len(journal.Lines)),
		zap.Bool("simulated", receipt.Simulated),
	)

	return journal, receipt, nil
}

// deriveLines emits the journal lines in the fixed posting order: settlement
// debit, revenue credits per category, tax credits, discount debit, service
// charge credit.
func (b *JournalBuilder) deriveLines(order *ordering.Order, classification ledger.TransactionClassification) []ledger.JournalLineItem {
	var lines []ledger.JournalLineItem
	next := func() int { return len(lines) + 1 }

	settlement := classification.Accounts.Settlement
	lines = append(lines, ledger.JournalLineItem{
		LineNumber:  next(),
		AccountCode: settlement.Code,
		AccountName: settlement.Name,
		Debit:       order.TotalAmount,
		Description: fmt.Sprintf("Payment received - %s", order.Payment.Method),
		Reference:   order.OrderNumber,
	})

	// One credit line per revenue category, items grouped and summed in
	// first-seen category order
	categoryTotals := make(map[string]decimal.Decimal)
	for _, item := range order.Items {
		categoryTotals[item.Category] = categoryTotals[item.Category].Add(item.LineTotal())
	}
	for _, category := range order.Categories() {
		account := b.chart.RevenueAccountFor(category)
		lines = append(lines, ledger.JournalLineItem{
			LineNumber:  next(),
			AccountCode: account.Code,
			AccountName: account.Name,
			Credit:      categoryTotals[category],
			Description: fmt.Sprintf("Revenue - %s", category),
			Reference:   order.OrderNumber,
		})
	}

	if order.TaxAmount.IsPositive() {
		taxAccounts := b.chart.TaxAccounts(order.EffectiveTaxRate())
		if len(taxAccounts) == 2 {
			// Split jurisdictions post two equal-valued components; the
			// second takes the remainder so the halves always sum exactly
			half := order.TaxAmount.Div(two).Round(2)
			amounts := []decimal.Decimal{half, order.TaxAmount.Sub(half)}
			for i, account := range taxAccounts {
				lines = append(lines, ledger.JournalLineItem{
					LineNumber:  next(),
					AccountCode: account.Code,
					AccountName: account.Name,
					Credit:      amounts[i],
					Description: "Tax payable",
					Reference:   order.OrderNumber,
				})
			}
		} else {
			account := taxAccounts[0]
			lines = append(lines, ledger.JournalLineItem{
				LineNumber:  next(),
				AccountCode: account.Code,
				AccountName: account.Name,
				Credit:      order.TaxAmount,
				Description: "Tax payable",
				Reference:   order.OrderNumber,
			})
		}
	}

	if order.DiscountAmount.IsPositive() {
		account := b.chart.DiscountAccount()
		lines = append(lines, ledger.JournalLineItem{
			LineNumber:  next(),
			AccountCode: account.Code,
			AccountName: account.Name,
			Debit:       order.DiscountAmount,
			Description: "Sales discount",
			Reference:   order.OrderNumber,
		})
	}

	if order.ServiceCharge.IsPositive() {
		account := b.chart.ServiceChargeAccount()
		lines = append(lines, ledger.JournalLineItem{
			LineNumber:  next(),
			AccountCode: account.Code,
			AccountName: account.Name,
			Credit:      order.ServiceCharge,
			Description: "Service charge",
			Reference:   order.OrderNumber,
		})
	}

	return lines
}
