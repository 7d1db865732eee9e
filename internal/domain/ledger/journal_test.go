package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poserp/accounting/internal/domain/shared"
)

func balancedLines() []JournalLineItem {
	return []JournalLineItem{
		{LineNumber: 1, AccountCode: AccountCodeCash, AccountName: "Cash on Hand", Debit: decimal.RequireFromString("108.00"), Description: "Payment received"},
		{LineNumber: 2, AccountCode: AccountCodeFoodRevenue, AccountName: "Food Revenue", Credit: decimal.NewFromInt(100), Description: "Revenue - food"},
		{LineNumber: 3, AccountCode: AccountCodeSingleTax, AccountName: "Tax Payable", Credit: decimal.NewFromInt(8), Description: "Tax payable"},
	}
}

func TestNewJournalEntryRecord(t *testing.T) {
	orgID := uuid.New()
	txnID := uuid.New()

	journal, err := NewJournalEntryRecord(
		orgID, "JE-20260316-0001", txnID, time.Now(), "POS sale ORD-1001", balancedLines(), "accounting-pipeline")

	require.NoError(t, err)
	assert.Equal(t, orgID, journal.OrgID)
	assert.Equal(t, txnID, journal.SourceTransactionID)
	assert.Equal(t, JournalStatusDraft, journal.Status)
	assert.True(t, journal.TotalDebit.Equal(decimal.RequireFromString("108.00")))
	assert.True(t, journal.TotalCredit.Equal(decimal.RequireFromString("108.00")))
}

func TestJournalValidate_CollectsEveryViolation(t *testing.T) {
	lines := []JournalLineItem{
		// short account code, out of sequence, debit and credit both set
		{LineNumber: 2, AccountCode: "110", AccountName: "", Debit: decimal.NewFromInt(10), Credit: decimal.NewFromInt(10)},
		// negative credit, both zero on next
		{LineNumber: 2, AccountCode: AccountCodeFoodRevenue, AccountName: "Food Revenue", Credit: decimal.NewFromInt(-5)},
		{LineNumber: 3, AccountCode: AccountCodeSingleTax, AccountName: "Tax Payable"},
	}

	_, err := NewJournalEntryRecord(
		uuid.New(), "", uuid.New(), time.Time{}, "", lines, "tester")

	require.Error(t, err)
	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))

	// the whole violation list comes back in one pass
	assert.GreaterOrEqual(t, len(verr.Violations), 8)
	assert.Contains(t, verr.Violations, "journal number is empty")
	assert.Contains(t, verr.Violations, "journal date is not set")
	assert.Contains(t, verr.Violations, "journal description is empty")
	assert.Contains(t, verr.Violations, "line 1: line number 2 out of sequence")
}

func TestJournalValidate_BalanceTolerance(t *testing.T) {
	t.Run("penny imbalance is tolerated", func(t *testing.T) {
		lines := []JournalLineItem{
			{LineNumber: 1, AccountCode: AccountCodeCash, AccountName: "Cash on Hand", Debit: decimal.RequireFromString("100.01")},
			{LineNumber: 2, AccountCode: AccountCodeFoodRevenue, AccountName: "Food Revenue", Credit: decimal.NewFromInt(100)},
		}
		_, err := NewJournalEntryRecord(uuid.New(), "JE-1", uuid.New(), time.Now(), "rounding", lines, "tester")
		assert.NoError(t, err)
	})

	t.Run("larger imbalance is rejected", func(t *testing.T) {
		lines := []JournalLineItem{
			{LineNumber: 1, AccountCode: AccountCodeCash, AccountName: "Cash on Hand", Debit: decimal.RequireFromString("100.02")},
			{LineNumber: 2, AccountCode: AccountCodeFoodRevenue, AccountName: "Food Revenue", Credit: decimal.NewFromInt(100)},
		}
		_, err := NewJournalEntryRecord(uuid.New(), "JE-1", uuid.New(), time.Now(), "rounding", lines, "tester")
		assert.Error(t, err)
	})
}

func TestJournalStatusTransitions(t *testing.T) {
	newJournal := func(t *testing.T) *JournalEntryRecord {
		j, err := NewJournalEntryRecord(
			uuid.New(), "JE-20260316-0001", uuid.New(), time.Now(), "POS sale", balancedLines(), "tester")
		require.NoError(t, err)
		return j
	}

	t.Run("post is idempotent", func(t *testing.T) {
		j := newJournal(t)
		require.NoError(t, j.MarkPosted())
		assert.Equal(t, JournalStatusPosted, j.Status)
		assert.NoError(t, j.MarkPosted())
	})

	t.Run("cannot post cancelled", func(t *testing.T) {
		j := newJournal(t)
		require.NoError(t, j.Cancel())
		assert.Error(t, j.MarkPosted())
	})

	t.Run("cannot cancel posted", func(t *testing.T) {
		j := newJournal(t)
		require.NoError(t, j.MarkPosted())
		assert.Error(t, j.Cancel())
	})
}
