package repository

import (
	"context"
	"errors"

	"github.com/andresuchdata/replenish-go/internal/domain"
)

// ErrSnapshotNotFound is returned when a tenant has no active version of a dataset.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotRepository gives read access to stored snapshots and lets importers
// publish new versions. A tenant has at most one active version per dataset type.
type SnapshotRepository interface {
	// GetActiveSnapshot loads every record of the active version.
	GetActiveSnapshot(ctx context.Context, tenant, datasetType string) (*domain.Snapshot, error)
	ListVersions(ctx context.Context, tenant, datasetType string) ([]domain.SnapshotVersion, error)
	SaveSnapshot(ctx context.Context, snap domain.Snapshot, activate bool) (int64, error)
}
