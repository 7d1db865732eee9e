package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entity types stored in the EAV datastore
const (
	EntityTypeTransaction     = "universal_transaction"
	EntityTypeJournalEntry    = "journal_entry"
	MetadataKeyJournalLines   = "journal_lines"
	MetadataKeyClassification = "classification"
)

// EntityRecord is a generic business object row in the schema-flexible
// entity/attribute datastore. SourceID links an entity to the upstream
// object it was derived from (order for a transaction, transaction for a
// journal) and is queryable without unpacking attributes.
type EntityRecord struct {
	ID         uuid.UUID
	OrgID      uuid.UUID
	EntityType string
	RefNumber  string
	Status     string
	SourceID   *uuid.UUID
	Attributes map[string]any
}

// MetadataRecord is a best-effort key/value enrichment attached to an entity.
// The entity row is the source of truth; losing metadata is tolerated.
type MetadataRecord struct {
	EntityID uuid.UUID
	OrgID    uuid.UUID
	Key      string
	Value    any
}

// WriteReceipt reports the outcome of a store write. When Simulated is true
// the write was logged instead of persisted and Advisory carries the detail;
// callers needing guaranteed durability must check it.
type WriteReceipt struct {
	EntityID  uuid.UUID
	Simulated bool
	Advisory  string
}

// MigrationReport summarizes a bracketed batch of store writes
type MigrationReport struct {
	Entities  int64
	Metadata  int64
	Simulated int64
}

// EntityStore is the schema-flexible persistence adapter. Entity creation
// runs through a layered fallback chain so that partial datastore failures
// degrade to logged writes instead of aborting a batch.
type EntityStore interface {
	CreateEntity(ctx context.Context, record EntityRecord) (WriteReceipt, error)
	UpdateEntity(ctx context.Context, record EntityRecord) (WriteReceipt, error)
	// CreateMetadata persists best-effort enrichment. Failures are logged and
	// reported as success; only the receipt advisory reveals them.
	CreateMetadata(ctx context.Context, record MetadataRecord) (WriteReceipt, error)

	// BeginMigration and EndMigration bracket a batch of writes and report
	// how many of them were simulated.
	BeginMigration(ctx context.Context) error
	EndMigration(ctx context.Context) (MigrationReport, error)
}

// TransactionRepository persists universal transactions over the entity store
type TransactionRepository interface {
	Save(ctx context.Context, txn *UniversalTransaction) (WriteReceipt, error)
	Update(ctx context.Context, txn *UniversalTransaction) error
	FindByNumber(ctx context.Context, orgID uuid.UUID, transactionNumber string) (*UniversalTransaction, error)
	FindBySourceOrder(ctx context.Context, orgID, orderID uuid.UUID) (*UniversalTransaction, error)
}

// JournalRepository persists journal entries over the entity store
type JournalRepository interface {
	Save(ctx context.Context, journal *JournalEntryRecord) (WriteReceipt, error)
	UpdateStatus(ctx context.Context, orgID, journalID uuid.UUID, status JournalStatus) error
	FindByNumber(ctx context.Context, orgID uuid.UUID, journalNumber string) (*JournalEntryRecord, error)
	CountForDay(ctx context.Context, orgID uuid.UUID, day time.Time) (int64, error)
}

// SequenceAllocator hands out per-organization, per-day sequence numbers.
// Implementations must be atomic: two concurrent allocations for the same
// scope and day never observe the same value.
type SequenceAllocator interface {
	Next(ctx context.Context, orgID uuid.UUID, scope string, day time.Time) (int64, error)
}

// Sequence scopes
const (
	SequenceScopeJournal     = "journal"
	SequenceScopeTransaction = "transaction"
)
