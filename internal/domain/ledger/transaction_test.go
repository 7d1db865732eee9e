package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poserp/accounting/internal/domain/ordering"
)

func completedOrder(t *testing.T) *ordering.Order {
	t.Helper()
	order, err := ordering.NewOrder(
		uuid.New(),
		"ORD-1001",
		[]ordering.OrderItem{
			{Name: "Burger", Category: "food", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
		},
		ordering.PaymentInfo{Method: ordering.PaymentMethodCash, Amount: decimal.RequireFromString("10.80")},
		decimal.NewFromInt(10),
		decimal.RequireFromString("0.80"),
		decimal.Zero,
		decimal.Zero,
		decimal.RequireFromString("10.80"),
	)
	require.NoError(t, err)
	require.NoError(t, order.MarkCompleted())
	return order
}

func TestNewSalesTransaction(t *testing.T) {
	order := completedOrder(t)

	txn, err := NewSalesTransaction(
		order.OrgID, "TXN-20260316-0001", SubtypePOSSale,
		time.Now(), order.TotalAmount, "USD", NewOrderPayload(order))

	require.NoError(t, err)
	assert.Equal(t, TransactionTypeSalesOrder, txn.Type)
	assert.Equal(t, PostingStatusDraft, txn.PostingStatus)
	assert.True(t, txn.IsFinancial)
	assert.Equal(t, PayloadKindOrder, txn.Payload.Kind)
	assert.Equal(t, PayloadSchemaVersion, txn.Payload.SchemaVersion)
	assert.NotEmpty(t, txn.Payload.Raw)

	t.Run("rejects empty number", func(t *testing.T) {
		_, err := NewSalesTransaction(order.OrgID, "", SubtypePOSSale, time.Now(), order.TotalAmount, "USD", NewOrderPayload(order))
		assert.Error(t, err)
	})

	t.Run("rejects refund payload", func(t *testing.T) {
		_, err := NewSalesTransaction(order.OrgID, "TXN-1", SubtypePOSSale, time.Now(), order.TotalAmount, "USD",
			NewRefundPayload(RefundDetails{OrderID: uuid.New(), Amount: decimal.NewFromInt(5)}))
		assert.Error(t, err)
	})
}

func TestNewRefundTransaction(t *testing.T) {
	txn, err := NewRefundTransaction(
		uuid.New(), "TXN-20260316-0002", time.Now(),
		decimal.RequireFromString("25.50"), "USD",
		RefundDetails{OrderID: uuid.New(), OrderNumber: "ORD-1001", Amount: decimal.RequireFromString("25.50"), Reason: "cold food"})

	require.NoError(t, err)
	assert.Equal(t, TransactionTypeRefund, txn.Type)
	// stored negated so refunds subtract from daily totals
	assert.True(t, txn.TotalAmount.Equal(decimal.RequireFromString("-25.50")))
	assert.Equal(t, PayloadKindRefund, txn.Payload.Kind)

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := NewRefundTransaction(uuid.New(), "TXN-1", time.Now(), decimal.Zero, "USD", RefundDetails{})
		assert.Error(t, err)
	})
}

func TestTransactionPostingLifecycle(t *testing.T) {
	order := completedOrder(t)
	newTxn := func(t *testing.T) *UniversalTransaction {
		txn, err := NewSalesTransaction(order.OrgID, "TXN-1", SubtypePOSSale, time.Now(), order.TotalAmount, "USD", NewOrderPayload(order))
		require.NoError(t, err)
		return txn
	}

	t.Run("post is idempotent", func(t *testing.T) {
		txn := newTxn(t)
		require.NoError(t, txn.MarkPosted())
		assert.Equal(t, PostingStatusPosted, txn.PostingStatus)
		assert.NoError(t, txn.MarkPosted())
	})

	t.Run("cannot post voided", func(t *testing.T) {
		txn := newTxn(t)
		require.NoError(t, txn.MarkVoided("mistake", nil))
		assert.Error(t, txn.MarkPosted())
	})

	t.Run("void requires a reason", func(t *testing.T) {
		txn := newTxn(t)
		assert.Error(t, txn.MarkVoided("", nil))
	})

	t.Run("second void keeps the original record", func(t *testing.T) {
		txn := newTxn(t)
		actor := uuid.New()
		require.NoError(t, txn.MarkVoided("first", &actor))
		first := *txn.Void

		require.NoError(t, txn.MarkVoided("second", nil))
		assert.Equal(t, "first", txn.Void.Reason)
		assert.Equal(t, first.VoidedAt, txn.Void.VoidedAt)
		assert.True(t, txn.IsVoided())
	})
}

func TestConfirmPayment(t *testing.T) {
	order := completedOrder(t)
	txn, err := NewSalesTransaction(order.OrgID, "TXN-1", SubtypePOSSale, time.Now(), order.TotalAmount, "USD", NewOrderPayload(order))
	require.NoError(t, err)

	err = txn.ConfirmPayment(PaymentConfirmation{
		Method: ordering.PaymentMethodCreditCard, Amount: order.TotalAmount, Reference: "ch_123"})
	require.NoError(t, err)

	assert.True(t, txn.PaymentConfirmed)
	require.NotNil(t, txn.Payload.Payment)
	assert.False(t, txn.Payload.Payment.ConfirmedAt.IsZero())

	t.Run("rejected on voided transaction", func(t *testing.T) {
		require.NoError(t, txn.MarkVoided("mistake", nil))
		assert.Error(t, txn.ConfirmPayment(PaymentConfirmation{Amount: decimal.NewFromInt(1)}))
	})
}
