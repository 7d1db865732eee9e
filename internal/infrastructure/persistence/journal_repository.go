package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/poserp/accounting/internal/domain/ledger"
	"github.com/poserp/accounting/internal/domain/shared"
	"github.com/poserp/accounting/internal/infrastructure/persistence/models"
)

// GormJournalRepository persists journal entries as entity rows. The entity
// attributes hold the full journal including its lines; the lines additionally
// ride as a metadata record for downstream reporting queries.
type GormJournalRepository struct {
	db    *gorm.DB
	store ledger.EntityStore
}

// NewGormJournalRepository creates a new GormJournalRepository
func NewGormJournalRepository(db *gorm.DB, store ledger.EntityStore) *GormJournalRepository {
	return &GormJournalRepository{db: db, store: store}
}

// Save persists a journal entry and its line items through the entity store
func (r *GormJournalRepository) Save(ctx context.Context, journal *ledger.JournalEntryRecord) (ledger.WriteReceipt, error) {
	record, err := journalEntityRecord(journal)
	if err != nil {
		return ledger.WriteReceipt{}, err
	}

	receipt, err := r.store.CreateEntity(ctx, record)
	if err != nil {
		return receipt, err
	}

	// Line items and computed totals as reporting metadata. The entity row
	// already carries them; a failed metadata write is tolerated.
	if _, err := r.store.CreateMetadata(ctx, ledger.MetadataRecord{
		EntityID: journal.ID,
		OrgID:    journal.OrgID,
		Key:      ledger.MetadataKeyJournalLines,
		Value: map[string]any{
			"lines":        journal.Lines,
			"total_debit":  journal.TotalDebit,
			"total_credit": journal.TotalCredit,
		},
	}); err != nil {
		return receipt, err
	}

	return receipt, nil
}

// UpdateStatus transitions the stored status of a journal entry
func (r *GormJournalRepository) UpdateStatus(ctx context.Context, orgID, journalID uuid.UUID, status ledger.JournalStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Invalid journal status")
	}

	journal, err := r.findByID(ctx, orgID, journalID)
	if err != nil {
		return err
	}

	journal.Status = status
	journal.UpdatedAt = time.Now()

	record, err := journalEntityRecord(journal)
	if err != nil {
		return err
	}
	_, err = r.store.UpdateEntity(ctx, record)
	return err
}

// FindByNumber loads a journal entry by its journal number
func (r *GormJournalRepository) FindByNumber(ctx context.Context, orgID uuid.UUID, journalNumber string) (*ledger.JournalEntryRecord, error) {
	var model models.EntityModel
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND entity_type = ? AND ref_number = ?", orgID, ledger.EntityTypeJournalEntry, journalNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return unmarshalJournal(&model)
}

// CountForDay counts the journal entries recorded for a calendar day
func (r *GormJournalRepository) CountForDay(ctx context.Context, orgID uuid.UUID, day time.Time) (int64, error) {
	prefix := fmt.Sprintf("JE-%s-%%", day.Format("20060102"))

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.EntityModel{}).
		Where("org_id = ? AND entity_type = ? AND ref_number LIKE ?", orgID, ledger.EntityTypeJournalEntry, prefix).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormJournalRepository) findByID(ctx context.Context, orgID, journalID uuid.UUID) (*ledger.JournalEntryRecord, error) {
	var model models.EntityModel
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND entity_type = ? AND id = ?", orgID, ledger.EntityTypeJournalEntry, journalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return unmarshalJournal(&model)
}

func journalEntityRecord(journal *ledger.JournalEntryRecord) (ledger.EntityRecord, error) {
	raw, err := json.Marshal(journal)
	if err != nil {
		return ledger.EntityRecord{}, fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	var attrs map[string]any
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return ledger.EntityRecord{}, fmt.Errorf("failed to map journal attributes: %w", err)
	}

	sourceID := journal.SourceTransactionID
	return ledger.EntityRecord{
		ID:         journal.ID,
		OrgID:      journal.OrgID,
		EntityType: ledger.EntityTypeJournalEntry,
		RefNumber:  journal.JournalNumber,
		Status:     string(journal.Status),
		SourceID:   &sourceID,
		Attributes: attrs,
	}, nil
}

func unmarshalJournal(model *models.EntityModel) (*ledger.JournalEntryRecord, error) {
	var journal ledger.JournalEntryRecord
	if err := json.Unmarshal([]byte(model.Attributes), &journal); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journal %s: %w", model.RefNumber, err)
	}
	journal.ID = model.ID
	journal.OrgID = model.OrgID
	journal.CreatedAt = model.CreatedAt
	journal.UpdatedAt = model.UpdatedAt
	return &journal, nil
}

// Ensure GormJournalRepository implements JournalRepository
var _ ledger.JournalRepository = (*GormJournalRepository)(nil)
