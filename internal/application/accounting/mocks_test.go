package accounting

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/poserp/accounting/internal/domain/ledger"
	"github.com/poserp/accounting/internal/domain/ordering"
)

// MockTransactionRepository is a mock implementation of ledger.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Save(ctx context.Context, txn *ledger.UniversalTransaction) (ledger.WriteReceipt, error) {
	args := m.Called(ctx, txn)
	return args.Get(0).(ledger.WriteReceipt), args.Error(1)
}

func (m *MockTransactionRepository) Update(ctx context.Context, txn *ledger.UniversalTransaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByNumber(ctx context.Context, orgID uuid.UUID, transactionNumber string) (*ledger.UniversalTransaction, error) {
	args := m.Called(ctx, orgID, transactionNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.UniversalTransaction), args.Error(1)
}

func (m *MockTransactionRepository) FindBySourceOrder(ctx context.Context, orgID, orderID uuid.UUID) (*ledger.UniversalTransaction, error) {
	args := m.Called(ctx, orgID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.UniversalTransaction), args.Error(1)
}

// MockJournalRepository is a mock implementation of ledger.JournalRepository
type MockJournalRepository struct {
	mock.Mock
}

func (m *MockJournalRepository) Save(ctx context.Context, journal *ledger.JournalEntryRecord) (ledger.WriteReceipt, error) {
	args := m.Called(ctx, journal)
	return args.Get(0).(ledger.WriteReceipt), args.Error(1)
}

func (m *MockJournalRepository) UpdateStatus(ctx context.Context, orgID, journalID uuid.UUID, status ledger.JournalStatus) error {
	args := m.Called(ctx, orgID, journalID, status)
	return args.Error(0)
}

func (m *MockJournalRepository) FindByNumber(ctx context.Context, orgID uuid.UUID, journalNumber string) (*ledger.JournalEntryRecord, error) {
	args := m.Called(ctx, orgID, journalNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.JournalEntryRecord), args.Error(1)
}

func (m *MockJournalRepository) CountForDay(ctx context.Context, orgID uuid.UUID, day time.Time) (int64, error) {
	args := m.Called(ctx, orgID, day)
	return args.Get(0).(int64), args.Error(1)
}

// MockEntityStore is a mock implementation of ledger.EntityStore
type MockEntityStore struct {
	mock.Mock
}

func (m *MockEntityStore) CreateEntity(ctx context.Context, record ledger.EntityRecord) (ledger.WriteReceipt, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(ledger.WriteReceipt), args.Error(1)
}

func (m *MockEntityStore) UpdateEntity(ctx context.Context, record ledger.EntityRecord) (ledger.WriteReceipt, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(ledger.WriteReceipt), args.Error(1)
}

func (m *MockEntityStore) CreateMetadata(ctx context.Context, record ledger.MetadataRecord) (ledger.WriteReceipt, error) {
	args := m.Called(ctx, record)
	return args.Get(0).(ledger.WriteReceipt), args.Error(1)
}

func (m *MockEntityStore) BeginMigration(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEntityStore) EndMigration(ctx context.Context) (ledger.MigrationReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(ledger.MigrationReport), args.Error(1)
}

// fakeSequences hands out sequential numbers without a datastore
type fakeSequences struct {
	counter int64
}

func (f *fakeSequences) Next(ctx context.Context, orgID uuid.UUID, scope string, day time.Time) (int64, error) {
	return atomic.AddInt64(&f.counter, 1), nil
}

// newLunchOrder builds a completed dine-in order that fits the lunch pattern:
// cash, modest amount, no discounts
func newLunchOrder(orgID uuid.UUID) *ordering.Order {
	order, err := ordering.NewOrder(
		orgID,
		"ORD-1001",
		[]ordering.OrderItem{
			{Name: "Burger", Category: "food", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(10)},
			{Name: "Cola", Category: "beverage", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(4)},
		},
		ordering.PaymentInfo{Method: ordering.PaymentMethodCash, Amount: decimal.RequireFromString("30.24")},
		decimal.NewFromInt(28),             // subtotal
		decimal.RequireFromString("2.24"),  // tax, 8 percent
		decimal.Zero,                       // discount
		decimal.Zero,                       // service charge
		decimal.RequireFromString("30.24"), // total
	)
	if err != nil {
		panic(err)
	}
	order.TableNumber = "T5"
	if err := order.MarkCompleted(); err != nil {
		panic(err)
	}
	completedAt := time.Date(2026, 3, 16, 12, 30, 0, 0, time.Local)
	order.CompletedAt = &completedAt
	order.ClearDomainEvents()
	return order
}
