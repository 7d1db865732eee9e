package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/poserp/accounting/internal/domain/ledger"
	"github.com/poserp/accounting/internal/domain/shared"
	"github.com/poserp/accounting/internal/infrastructure/persistence/models"
)

// GormTransactionRepository persists universal transactions as entity rows.
// Writes run through the entity store's fallback chain; reads go straight to
// the database.
type GormTransactionRepository struct {
	db    *gorm.DB
	store ledger.EntityStore
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB, store ledger.EntityStore) *GormTransactionRepository {
	return &GormTransactionRepository{db: db, store: store}
}

// Save persists a new transaction through the entity store
func (r *GormTransactionRepository) Save(ctx context.Context, txn *ledger.UniversalTransaction) (ledger.WriteReceipt, error) {
	record, err := transactionEntityRecord(txn)
	if err != nil {
		return ledger.WriteReceipt{}, err
	}
	return r.store.CreateEntity(ctx, record)
}

// Update rewrites the stored state of an existing transaction
func (r *GormTransactionRepository) Update(ctx context.Context, txn *ledger.UniversalTransaction) error {
	record, err := transactionEntityRecord(txn)
	if err != nil {
		return err
	}
	_, err = r.store.UpdateEntity(ctx, record)
	return err
}

// FindByNumber loads a transaction by its transaction number
func (r *GormTransactionRepository) FindByNumber(ctx context.Context, orgID uuid.UUID, transactionNumber string) (*ledger.UniversalTransaction, error) {
	var model models.EntityModel
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND entity_type = ? AND ref_number = ?", orgID, ledger.EntityTypeTransaction, transactionNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return unmarshalTransaction(&model)
}

// FindBySourceOrder loads the transaction derived from an order. It returns
// nil without an error when no transaction has been recorded for the order.
func (r *GormTransactionRepository) FindBySourceOrder(ctx context.Context, orgID, orderID uuid.UUID) (*ledger.UniversalTransaction, error) {
	var model models.EntityModel
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND entity_type = ? AND source_id = ?", orgID, ledger.EntityTypeTransaction, orderID).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return unmarshalTransaction(&model)
}

// transactionEntityRecord maps a transaction aggregate onto a generic entity
// record. The full aggregate rides in the attributes document; the typed
// columns carry what lookups need.
func transactionEntityRecord(txn *ledger.UniversalTransaction) (ledger.EntityRecord, error) {
	raw, err := json.Marshal(txn)
	if err != nil {
		return ledger.EntityRecord{}, fmt.Errorf("failed to marshal transaction: %w", err)
	}
	var attrs map[string]any
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return ledger.EntityRecord{}, fmt.Errorf("failed to map transaction attributes: %w", err)
	}

	return ledger.EntityRecord{
		ID:         txn.ID,
		OrgID:      txn.OrgID,
		EntityType: ledger.EntityTypeTransaction,
		RefNumber:  txn.TransactionNumber,
		Status:     txn.PostingStatus.String(),
		SourceID:   transactionSourceID(txn),
		Attributes: attrs,
	}, nil
}

// transactionSourceID resolves the upstream order the transaction derives from
func transactionSourceID(txn *ledger.UniversalTransaction) *uuid.UUID {
	switch {
	case txn.Payload.Order != nil:
		id := txn.Payload.Order.ID
		return &id
	case txn.Payload.Refund != nil:
		id := txn.Payload.Refund.OrderID
		return &id
	}
	return nil
}

func unmarshalTransaction(model *models.EntityModel) (*ledger.UniversalTransaction, error) {
	var txn ledger.UniversalTransaction
	if err := json.Unmarshal([]byte(model.Attributes), &txn); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction %s: %w", model.RefNumber, err)
	}
	txn.ID = model.ID
	txn.OrgID = model.OrgID
	txn.CreatedAt = model.CreatedAt
	txn.UpdatedAt = model.UpdatedAt
	return &txn, nil
}

// Ensure GormTransactionRepository implements TransactionRepository
var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
