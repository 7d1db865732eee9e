package accounting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/poserp/accounting/internal/domain/ledger"
	"github.com/poserp/accounting/internal/domain/ordering"
	"github.com/poserp/accounting/internal/domain/shared"
)

func newTestBuilder(journals ledger.JournalRepository) *JournalBuilder {
	return NewJournalBuilder(journals, &fakeSequences{}, ledger.DefaultChartOfAccounts(), zap.NewNop())
}

func salesTransactionFor(t *testing.T, order *ordering.Order) *ledger.UniversalTransaction {
	t.Helper()
	txn, err := ledger.NewSalesTransaction(
		order.OrgID,
		"TXN-20260316-0001",
		ledger.SubtypeDineInOrder,
		*order.CompletedAt,
		order.TotalAmount,
		"USD",
		ledger.NewOrderPayload(order),
	)
	require.NoError(t, err)
	return txn
}

func TestJournalBuilder_Build(t *testing.T) {
	orgID := uuid.New()
	order := newLunchOrder(orgID)
	txn := salesTransactionFor(t, order)
	classifier := newTestClassifier()
	classification := classifier.Classify(context.Background(), order)

	journals := new(MockJournalRepository)
	journals.On("Save", mock.Anything, mock.AnythingOfType("*ledger.JournalEntryRecord")).
		Return(ledger.WriteReceipt{}, nil)

	builder := newTestBuilder(journals)
	journal, receipt, err := builder.Build(context.Background(), txn, order, classification)

	require.NoError(t, err)
	assert.False(t, receipt.Simulated)
	assert.Equal(t, "JE-20260316-0001", journal.JournalNumber)
	assert.Equal(t, txn.ID, journal.SourceTransactionID)
	assert.Equal(t, ledger.JournalStatusDraft, journal.Status)
	assert.Equal(t, "POS sale ORD-1001", journal.Description)
	assert.True(t, journal.TotalDebit.Equal(journal.TotalCredit))

	// settlement debit, one revenue credit per category, tax credit
	require.Len(t, journal.Lines, 4)
	assert.Equal(t, ledger.AccountCodeCash, journal.Lines[0].AccountCode)
	assert.True(t, journal.Lines[0].Debit.Equal(decimal.RequireFromString("30.24")))
	assert.Equal(t, ledger.AccountCodeFoodRevenue, journal.Lines[1].AccountCode)
	assert.True(t, journal.Lines[1].Credit.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, ledger.AccountCodeBeverageRevenue, journal.Lines[2].AccountCode)
	assert.True(t, journal.Lines[2].Credit.Equal(decimal.NewFromInt(8)))
	assert.Equal(t, ledger.AccountCodeSingleTax, journal.Lines[3].AccountCode)
	assert.True(t, journal.Lines[3].Credit.Equal(decimal.RequireFromString("2.24")))

	for i, line := range journal.Lines {
		assert.Equal(t, i+1, line.LineNumber)
		assert.Equal(t, "ORD-1001", line.Reference)
	}

	journals.AssertExpectations(t)
}

func TestJournalBuilder_SplitTaxHalves(t *testing.T) {
	order := completedOrderAt(t, 12, ordering.PaymentMethodCreditCard, "100.00", "5.55", "0", "105.55")
	// force the split jurisdiction by pushing the rate over the threshold
	order.TaxAmount = decimal.RequireFromString("18.01")
	order.TotalAmount = decimal.RequireFromString("118.01")
	txn := salesTransactionFor(t, order)
	classification := newTestClassifier().Classify(context.Background(), order)

	journals := new(MockJournalRepository)
	journals.On("Save", mock.Anything, mock.Anything).Return(ledger.WriteReceipt{}, nil)

	builder := newTestBuilder(journals)
	journal, _, err := builder.Build(context.Background(), txn, order, classification)

	require.NoError(t, err)
	require.Len(t, journal.Lines, 4)

	// the second component takes the remainder so the halves sum exactly
	componentA := journal.Lines[2]
	componentB := journal.Lines[3]
	assert.Equal(t, ledger.AccountCodeSplitTaxComponentA, componentA.AccountCode)
	assert.Equal(t, ledger.AccountCodeSplitTaxComponentB, componentB.AccountCode)
	assert.True(t, componentA.Credit.Equal(decimal.RequireFromString("9.01")), componentA.Credit.String())
	assert.True(t, componentB.Credit.Equal(decimal.RequireFromString("9.00")), componentB.Credit.String())
	assert.True(t, componentA.Credit.Add(componentB.Credit).Equal(order.TaxAmount))
	assert.True(t, journal.TotalDebit.Equal(journal.TotalCredit))
}

func TestJournalBuilder_DiscountAndServiceChargeLines(t *testing.T) {
	orgID := uuid.New()
	order, err := ordering.NewOrder(
		orgID,
		"ORD-3001",
		[]ordering.OrderItem{
			{Name: "Banquet Set", Category: "food", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(200)},
		},
		ordering.PaymentInfo{Method: ordering.PaymentMethodCreditCard, Amount: decimal.RequireFromString("216.00")},
		decimal.NewFromInt(200),
		decimal.NewFromInt(16),
		decimal.NewFromInt(20),
		decimal.NewFromInt(20),
		decimal.NewFromInt(216),
	)
	require.NoError(t, err)
	require.NoError(t, order.MarkCompleted())
	completedAt := time.Date(2026, 3, 16, 19, 0, 0, 0, time.Local)
	order.CompletedAt = &completedAt
	txn := salesTransactionFor(t, order)
	classification := newTestClassifier().Classify(context.Background(), order)

	journals := new(MockJournalRepository)
	journals.On("Save", mock.Anything, mock.Anything).Return(ledger.WriteReceipt{}, nil)

	builder := newTestBuilder(journals)
	journal, _, err := builder.Build(context.Background(), txn, order, classification)

	require.NoError(t, err)
	// settlement, revenue, tax, discount, service charge
	require.Len(t, journal.Lines, 5)
	discount := journal.Lines[3]
	serviceCharge := journal.Lines[4]
	assert.Equal(t, ledger.AccountCodeSalesDiscount, discount.AccountCode)
	assert.True(t, discount.Debit.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, ledger.AccountCodeServiceChargeRevenue, serviceCharge.AccountCode)
	assert.True(t, serviceCharge.Credit.Equal(decimal.NewFromInt(20)))

	// 216 debit + 20 discount debit = 200 revenue + 16 tax + 20 service charge
	assert.True(t, journal.TotalDebit.Equal(decimal.NewFromInt(236)))
	assert.True(t, journal.TotalCredit.Equal(decimal.NewFromInt(236)))
}

func TestJournalBuilder_RefusesUnbalancedJournal(t *testing.T) {
	orgID := uuid.New()
	order := newLunchOrder(orgID)
	// corrupt the total so debits no longer cover the credits
	order.TotalAmount = decimal.NewFromInt(10)
	txn := salesTransactionFor(t, order)
	classification := newTestClassifier().Classify(context.Background(), order)

	journals := new(MockJournalRepository)

	builder := newTestBuilder(journals)
	journal, _, err := builder.Build(context.Background(), txn, order, classification)

	require.Error(t, err)
	assert.Nil(t, journal)
	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.NotEmpty(t, verr.Violations)
	journals.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestJournalBuilder_SequenceFailureSurfaces(t *testing.T) {
	order := newLunchOrder(uuid.New())
	txn := salesTransactionFor(t, order)
	classification := newTestClassifier().Classify(context.Background(), order)

	journals := new(MockJournalRepository)
	builder := NewJournalBuilder(journals, failingSequences{}, ledger.DefaultChartOfAccounts(), zap.NewNop())

	_, _, err := builder.Build(context.Background(), txn, order, classification)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to allocate journal sequence")
}

type failingSequences struct{}

func (failingSequences) Next(ctx context.Context, orgID uuid.UUID, scope string, day time.Time) (int64, error) {
	return 0, errors.New("sequence store unavailable")
}
