// Package snapshot persists the single flat ingestion snapshot.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"smashrank/internal/config"
	"smashrank/internal/models"
)

// ErrNotFound is returned by Load when no snapshot has been written yet
var ErrNotFound = errors.New("snapshot not found")

// Store saves and loads the snapshot document
type Store interface {
	Save(ctx context.Context, snap *models.Snapshot) error
	Load(ctx context.Context) (*models.Snapshot, error)
}

// New builds the store selected by SNAPSHOT_BACKEND
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.SnapshotBackend {
	case "file":
		return NewFileStore(cfg.SnapshotPath), nil
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:          cfg.SnapshotS3Bucket,
			Key:             cfg.SnapshotS3Key,
			Endpoint:        cfg.SnapshotS3Endpoint,
			Region:          cfg.SnapshotS3Region,
			AccessKeyID:     cfg.SnapshotS3AccessKeyID,
			SecretAccessKey: cfg.SnapshotS3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
	}
}

func encode(snap *models.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*models.Snapshot, error) {
	snap := models.NewSnapshot()
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	// an explicit null leaves the maps nil
	if snap.Tournaments == nil {
		snap.Tournaments = make(map[models.ID]models.Tournament)
	}
	if snap.Sets == nil {
		snap.Sets = make(map[models.ID]models.Set)
	}
	return snap, nil
}
