package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/poserp/accounting/internal/domain/ledger"
)

// EntityModel is a generic business object row. The typed columns carry what
// queries need; everything else lives in the Attributes JSON document.
type EntityModel struct {
	BaseModel
	OrgID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_entities_org_type_ref,priority:1;index:idx_entities_org_source,priority:1"`
	EntityType string     `gorm:"size:64;not null;uniqueIndex:idx_entities_org_type_ref,priority:2"`
	RefNumber  string     `gorm:"size:64;not null;uniqueIndex:idx_entities_org_type_ref,priority:3"`
	Status     string     `gorm:"size:32;not null"`
	SourceID   *uuid.UUID `gorm:"type:uuid;index:idx_entities_org_source,priority:2"`
	Attributes string     `gorm:"type:jsonb"`
}

// TableName returns the table name for EntityModel
func (EntityModel) TableName() string {
	return "entities"
}

// NewEntityModel converts a domain entity record to its persistence model
func NewEntityModel(record ledger.EntityRecord) (*EntityModel, error) {
	attrs, err := json.Marshal(record.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity attributes: %w", err)
	}

	now := time.Now()
	return &EntityModel{
		BaseModel: BaseModel{
			ID:        record.ID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrgID:      record.OrgID,
		EntityType: record.EntityType,
		RefNumber:  record.RefNumber,
		Status:     record.Status,
		SourceID:   record.SourceID,
		Attributes: string(attrs),
	}, nil
}

// ToRecord converts the persistence model back to a domain entity record
func (m *EntityModel) ToRecord() (ledger.EntityRecord, error) {
	var attrs map[string]any
	if m.Attributes != "" {
		if err := json.Unmarshal([]byte(m.Attributes), &attrs); err != nil {
			return ledger.EntityRecord{}, fmt.Errorf("failed to unmarshal entity attributes: %w", err)
		}
	}

	return ledger.EntityRecord{
		ID:         m.ID,
		OrgID:      m.OrgID,
		EntityType: m.EntityType,
		RefNumber:  m.RefNumber,
		Status:     m.Status,
		SourceID:   m.SourceID,
		Attributes: attrs,
	}, nil
}

// EntityMetadataModel is a best-effort key/value enrichment row attached to
// an entity
type EntityMetadataModel struct {
	BaseModel
	EntityID uuid.UUID `gorm:"type:uuid;not null;index:idx_entity_metadata_entity_key,priority:1"`
	OrgID    uuid.UUID `gorm:"type:uuid;not null;index"`
	MetaKey  string    `gorm:"column:meta_key;size:64;not null;index:idx_entity_metadata_entity_key,priority:2"`
	Value    string    `gorm:"type:jsonb"`
}

// TableName returns the table name for EntityMetadataModel
func (EntityMetadataModel) TableName() string {
	return "entity_metadata"
}

// NewEntityMetadataModel converts a domain metadata record to its persistence model
func NewEntityMetadataModel(record ledger.MetadataRecord) (*EntityMetadataModel, error) {
	value, err := json.Marshal(record.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata value: %w", err)
	}

	now := time.Now()
	return &EntityMetadataModel{
		BaseModel: BaseModel{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		EntityID: record.EntityID,
		OrgID:    record.OrgID,
		MetaKey:  record.Key,
		Value:    string(value),
	}, nil
}

// SequenceCounterModel is an atomic per-organization, per-day counter row.
// The value is advanced with a single upsert so concurrent allocations never
// observe the same number.
type SequenceCounterModel struct {
	OrgID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Scope string    `gorm:"size:32;primaryKey"`
	Day   string    `gorm:"size:10;primaryKey"`
	Value int64     `gorm:"not null;default:0"`
}

// TableName returns the table name for SequenceCounterModel
func (SequenceCounterModel) TableName() string {
	return "sequence_counters"
}

// All returns every model managed by the datastore, in migration order
func All() []any {
	return []any{
		&EntityModel{},
		&EntityMetadataModel{},
		&SequenceCounterModel{},
	}
}
