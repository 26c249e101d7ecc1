package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/starford/lineagemap/internal/models"
)

// SeedFile is the YAML layout of a metadata seed file.
type SeedFile struct {
	Metadata []models.MetadataRef `yaml:"metadata"`
}

// LoadSeedFile reads metadata entries from a YAML seed file.
func LoadSeedFile(path string) ([]models.MetadataRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read seed file %s: %w", path, err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("store: parse seed file %s: %w", path, err)
	}
	return seed.Metadata, nil
}

// SyncMetadata registers every valid entry, in file order, so that the
// first-match rule for duplicate names follows the seed file. Invalid or
// failing entries are logged and skipped. It returns the number registered.
func SyncMetadata(ctx context.Context, ms MetadataStore, entries []models.MetadataRef, logger *slog.Logger) (int, error) {
	synced := 0
	for i, m := range entries {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := m.Validate(); err != nil {
			logger.Warn("sync: invalid metadata entry", slog.Int("index", i), slog.String("error", err.Error()))
			continue
		}
		if err := ms.UpsertMetadata(ctx, m); err != nil {
			logger.Warn("sync: upsert failed", slog.String("id", m.ID), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: registered", slog.String("id", m.ID), slog.String("name", m.Name))
		synced++
	}
	return synced, nil
}
