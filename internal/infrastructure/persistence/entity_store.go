package persistence

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/poserp/accounting/internal/domain/ledger"
	"github.com/poserp/accounting/internal/domain/shared"
	"github.com/poserp/accounting/internal/infrastructure/persistence/models"
)

// GormEntityStore implements the schema-flexible entity store over GORM.
//
// Entity creation runs through a layered fallback chain: a direct insert
// first, a raw insert that bypasses ORM hooks when the direct path rejects an
// identifier, and finally a simulated write that logs the full intended row
// and reports success with an advisory. A batch of writes therefore never
// aborts on a partial datastore failure; callers that need guaranteed
// durability must inspect the returned receipt.
type GormEntityStore struct {
	db     *gorm.DB
	logger *zap.Logger

	// insert is the tier-1 write, replaceable in tests to exercise the
	// fallback tiers against datastore errors sqlite cannot produce
	insert func(ctx context.Context, model *models.EntityModel) error

	mu        sync.Mutex
	migrating bool
	report    ledger.MigrationReport
}

// NewGormEntityStore creates a new GormEntityStore
func NewGormEntityStore(db *gorm.DB, logger *zap.Logger) *GormEntityStore {
	s := &GormEntityStore{db: db, logger: logger}
	s.insert = s.ormInsert
	return s
}

// CreateEntity persists an entity record through the fallback chain
func (s *GormEntityStore) CreateEntity(ctx context.Context, record ledger.EntityRecord) (ledger.WriteReceipt, error) {
	model, err := models.NewEntityModel(record)
	if err != nil {
		return ledger.WriteReceipt{}, err
	}

	// Tier 1: direct insert
	if err := s.insert(ctx, model); err == nil {
		s.count(func(r *ledger.MigrationReport) { r.Entities++ })
		s.logger.Debug("entity created",
			zap.String("entity_id", record.ID.String()),
			zap.String("entity_type", record.EntityType),
			zap.String("ref_number", record.RefNumber),
		)
		return ledger.WriteReceipt{EntityID: record.ID}, nil
	} else if isIdentifierFormatError(err) {
		// Tier 2: raw insert bypassing ORM hooks. The direct path rejected
		// an identifier; the unvalidated insert may still succeed.
		s.logger.Warn("direct entity insert rejected identifier, retrying without hooks",
			zap.String("entity_id", record.ID.String()),
			zap.String("entity_type", record.EntityType),
			zap.Error(err),
		)
		if rawErr := s.rawInsert(ctx, model); rawErr == nil {
			s.count(func(r *ledger.MigrationReport) { r.Entities++ })
			s.logger.Info("entity created via raw insert",
				zap.String("entity_id", record.ID.String()),
				zap.String("entity_type", record.EntityType),
			)
			return ledger.WriteReceipt{EntityID: record.ID}, nil
		} else {
			err = rawErr
		}
	}

	// Tier 3: simulated write. Log the full intended row so the record can
	// be replayed, and report success with an advisory.
	return s.simulate(record, err), nil
}

// UpdateEntity updates the typed columns and attributes of an existing entity
func (s *GormEntityStore) UpdateEntity(ctx context.Context, record ledger.EntityRecord) (ledger.WriteReceipt, error) {
	attrs, err := json.Marshal(record.Attributes)
	if err != nil {
		return ledger.WriteReceipt{}, err
	}

	result := s.db.WithContext(ctx).
		Model(&models.EntityModel{}).
		Where("org_id = ? AND id = ?", record.OrgID, record.ID).
		Updates(map[string]any{
			"status":     record.Status,
			"attributes": string(attrs),
		})
	if result.Error != nil {
		return s.simulate(record, result.Error), nil
	}
	if result.RowsAffected == 0 {
		return ledger.WriteReceipt{}, shared.ErrNotFound
	}

	s.logger.Debug("entity updated",
		zap.String("entity_id", record.ID.String()),
		zap.String("status", record.Status),
	)
	return ledger.WriteReceipt{EntityID: record.ID}, nil
}

// CreateMetadata persists best-effort enrichment. A failed metadata write is
// logged and reported as success; the entity row remains the source of truth.
func (s *GormEntityStore) CreateMetadata(ctx context.Context, record ledger.MetadataRecord) (ledger.WriteReceipt, error) {
	model, err := models.NewEntityMetadataModel(record)
	if err != nil {
		s.logger.Warn("metadata value not serializable, skipping",
			zap.String("entity_id", record.EntityID.String()),
			zap.String("key", record.Key),
			zap.Error(err),
		)
		return ledger.WriteReceipt{
			EntityID:  record.EntityID,
			Simulated: true,
			Advisory:  "metadata write skipped: " + err.Error(),
		}, nil
	}

	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		s.logger.Warn("metadata write failed, continuing",
			zap.String("entity_id", record.EntityID.String()),
			zap.String("key", record.Key),
			zap.Error(err),
		)
		s.count(func(r *ledger.MigrationReport) { r.Simulated++ })
		return ledger.WriteReceipt{
			EntityID:  record.EntityID,
			Simulated: true,
			Advisory:  "metadata write failed: " + err.Error(),
		}, nil
	}

	s.count(func(r *ledger.MigrationReport) { r.Metadata++ })
	return ledger.WriteReceipt{EntityID: record.EntityID}, nil
}

// BeginMigration starts counting a batch of store writes
func (s *GormEntityStore) BeginMigration(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.migrating = true
	s.report = ledger.MigrationReport{}
	s.logger.Info("entity migration batch started")
	return nil
}

// EndMigration stops counting and reports how many writes were simulated
func (s *GormEntityStore) EndMigration(ctx context.Context) (ledger.MigrationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.migrating = false
	report := s.report
	s.logger.Info("entity migration batch finished",
		zap.Int64("entities", report.Entities),
		zap.Int64("metadata", report.Metadata),
		zap.Int64("simulated", report.Simulated),
	)
	return report, nil
}

// ormInsert is the default tier-1 write through the ORM
func (s *GormEntityStore) ormInsert(ctx context.Context, model *models.EntityModel) error {
	return s.db.WithContext(ctx).Create(model).Error
}

// rawInsert writes the entity row with a plain INSERT, bypassing GORM hooks
// and model-level validation
func (s *GormEntityStore) rawInsert(ctx context.Context, model *models.EntityModel) error {
	return s.db.WithContext(ctx).
		Session(&gorm.Session{SkipHooks: true}).
		Exec(
			"INSERT INTO entities (id, org_id, entity_type, ref_number, status, source_id, attributes, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			model.ID, model.OrgID, model.EntityType, model.RefNumber, model.Status, model.SourceID, model.Attributes, model.CreatedAt, model.UpdatedAt,
		).Error
}

// simulate logs the full intended row and returns a success receipt carrying
// an advisory. Losing a ledger write to a datastore outage is worse than
// recording it in the log stream for replay.
func (s *GormEntityStore) simulate(record ledger.EntityRecord, cause error) ledger.WriteReceipt {
	attrs, _ := json.Marshal(record.Attributes)
	s.logger.Error("entity write simulated, row logged for replay",
		zap.String("entity_id", record.ID.String()),
		zap.String("org_id", record.OrgID.String()),
		zap.String("entity_type", record.EntityType),
		zap.String("ref_number", record.RefNumber),
		zap.String("status", record.Status),
		zap.String("attributes", string(attrs)),
		zap.Error(cause),
	)
	s.count(func(r *ledger.MigrationReport) { r.Simulated++ })
	return ledger.WriteReceipt{
		EntityID:  record.ID,
		Simulated: true,
		Advisory:  "entity write simulated, not persisted: " + cause.Error(),
	}
}

func (s *GormEntityStore) count(apply func(*ledger.MigrationReport)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.migrating {
		apply(&s.report)
	}
}

// isIdentifierFormatError reports whether the error indicates a malformed
// identifier rejected by the datastore (invalid UUID text, bad column syntax)
func isIdentifierFormatError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "invalid input syntax") ||
		strings.Contains(msg, "22p02") ||
		strings.Contains(msg, "invalid uuid")
}

// Ensure GormEntityStore implements EntityStore
var _ ledger.EntityStore = (*GormEntityStore)(nil)
