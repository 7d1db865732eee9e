package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/poserp/accounting/internal/domain/ledger"
	"github.com/poserp/accounting/internal/infrastructure/persistence"
)

// importRecord is one line of a backfill file: an entity plus optional
// metadata keys to attach to it.
type importRecord struct {
	ID         uuid.UUID      `json:"id"`
	OrgID      uuid.UUID      `json:"org_id"`
	EntityType string         `json:"entity_type"`
	RefNumber  string         `json:"ref_number"`
	Status     string         `json:"status"`
	SourceID   *uuid.UUID     `json:"source_id,omitempty"`
	Attributes map[string]any `json:"attributes"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// importEntities replays a JSON-lines backfill file through the entity
// store, bracketed so the report tallies how many writes were simulated
// rather than persisted.
func importEntities(log *zap.Logger, db *persistence.Database, path string) (ledger.MigrationReport, error) {
	file, err := os.Open(path)
	if err != nil {
		return ledger.MigrationReport{}, err
	}
	defer func() {
		_ = file.Close()
	}()

	ctx := context.Background()
	store := persistence.NewGormEntityStore(db.DB, log)
	if err := store.BeginMigration(ctx); err != nil {
		return ledger.MigrationReport{}, err
	}

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var record importRecord
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return ledger.MigrationReport{}, fmt.Errorf("line %d: %w", line, err)
		}
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}

		receipt, err := store.CreateEntity(ctx, ledger.EntityRecord{
			ID:         record.ID,
			OrgID:      record.OrgID,
			EntityType: record.EntityType,
			RefNumber:  record.RefNumber,
			Status:     record.Status,
			SourceID:   record.SourceID,
			Attributes: record.Attributes,
		})
		if err != nil {
			return ledger.MigrationReport{}, fmt.Errorf("line %d: %w", line, err)
		}
		if receipt.Simulated {
			log.Warn("entity write simulated",
				zap.Int("line", line),
				zap.String("ref_number", record.RefNumber),
				zap.String("advisory", receipt.Advisory),
			)
		}

		for key, value := range record.Metadata {
			if _, err := store.CreateMetadata(ctx, ledger.MetadataRecord{
				EntityID: record.ID,
				OrgID:    record.OrgID,
				Key:      key,
				Value:    value,
			}); err != nil {
				return ledger.MigrationReport{}, fmt.Errorf("line %d: %w", line, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return ledger.MigrationReport{}, err
	}

	return store.EndMigration(ctx)
}
