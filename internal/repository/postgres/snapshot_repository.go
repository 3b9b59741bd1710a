package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/replenish-go/internal/domain"
	"github.com/andresuchdata/replenish-go/internal/repository"
)

// Schema creates the snapshot tables. A partial unique index keeps a single
// active version per tenant and dataset type.
const Schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id           BIGSERIAL PRIMARY KEY,
	tenant       TEXT NOT NULL,
	dataset_type TEXT NOT NULL,
	version      TEXT NOT NULL,
	is_active    BOOLEAN NOT NULL DEFAULT FALSE,
	row_count    INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (tenant, dataset_type, version)
);

CREATE UNIQUE INDEX IF NOT EXISTS snapshots_one_active
	ON snapshots (tenant, dataset_type) WHERE is_active;

CREATE TABLE IF NOT EXISTS snapshot_records (
	snapshot_id              BIGINT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	position                 INTEGER NOT NULL,
	sku_id                   TEXT NOT NULL,
	name                     TEXT NOT NULL,
	supplier                 TEXT NOT NULL DEFAULT '',
	stock_on_hand            DOUBLE PRECISION NOT NULL DEFAULT 0,
	stock_in_transit         DOUBLE PRECISION NOT NULL DEFAULT 0,
	avg_monthly_consumption  DOUBLE PRECISION NOT NULL DEFAULT 0,
	moq                      DOUBLE PRECISION NOT NULL DEFAULT 0,
	unit_price               DOUBLE PRECISION NOT NULL DEFAULT 0,
	unit_volume              DOUBLE PRECISION NOT NULL DEFAULT 0,
	external_coverage_months DOUBLE PRECISION,
	PRIMARY KEY (snapshot_id, position)
);
`

type snapshotRepository struct {
	db *DB
}

func NewSnapshotRepository(db *DB) repository.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// EnsureSchema creates the snapshot tables when missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (r *snapshotRepository) GetActiveSnapshot(ctx context.Context, tenant, datasetType string) (*domain.Snapshot, error) {
	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var head struct {
		ID      int64  `db:"id"`
		Version string `db:"version"`
	}
	err = r.db.GetContext(ctx, &head, `
		SELECT id, version
		FROM snapshots
		WHERE tenant = $1 AND dataset_type = $2 AND is_active
	`, tenant, datasetType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", repository.ErrSnapshotNotFound, tenant, datasetType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active snapshot: %w", err)
	}

	records := make([]domain.SkuRecord, 0)
	err = r.db.SelectContext(ctx, &records, `
		SELECT sku_id, name, supplier, stock_on_hand, stock_in_transit,
			avg_monthly_consumption, moq, unit_price, unit_volume, external_coverage_months
		FROM snapshot_records
		WHERE snapshot_id = $1
		ORDER BY position
	`, head.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot records: %w", err)
	}

	return &domain.Snapshot{
		Tenant:      tenant,
		DatasetType: datasetType,
		Version:     head.Version,
		Records:     records,
	}, nil
}

func (r *snapshotRepository) ListVersions(ctx context.Context, tenant, datasetType string) ([]domain.SnapshotVersion, error) {
	versions := make([]domain.SnapshotVersion, 0)
	err := r.db.SelectContext(ctx, &versions, `
		SELECT id, tenant, dataset_type, version, is_active, row_count, created_at
		FROM snapshots
		WHERE tenant = $1 AND dataset_type = $2
		ORDER BY created_at DESC, id DESC
	`, tenant, datasetType)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot versions: %w", err)
	}
	return versions, nil
}

// SaveSnapshot stores a version and its records. Re-saving an existing
// version replaces its records. With activate the version becomes the
// tenant's active one.
func (r *snapshotRepository) SaveSnapshot(ctx context.Context, snap domain.Snapshot, activate bool) (int64, error) {
	var id int64
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// 1. Upsert the version row
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO snapshots (tenant, dataset_type, version, row_count)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (tenant, dataset_type, version)
			DO UPDATE SET row_count = EXCLUDED.row_count
			RETURNING id
		`, snap.Tenant, snap.DatasetType, snap.Version, len(snap.Records)).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to upsert snapshot: %w", err)
		}

		// 2. Replace its records
		if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_records WHERE snapshot_id = $1`, id); err != nil {
			return fmt.Errorf("failed to clear snapshot records: %w", err)
		}

		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO snapshot_records (
				snapshot_id, position, sku_id, name, supplier, stock_on_hand, stock_in_transit,
				avg_monthly_consumption, moq, unit_price, unit_volume, external_coverage_months
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, rec := range snap.Records {
			_, err := stmt.ExecContext(ctx,
				id, i, rec.ID, rec.Name, rec.Supplier,
				rec.StockOnHand, rec.StockInTransit, rec.AvgMonthlyConsumption,
				rec.MOQ, rec.UnitPrice, rec.UnitVolume, rec.ExternalCoverageMonths,
			)
			if err != nil {
				return fmt.Errorf("failed to insert snapshot record %q: %w", rec.ID, err)
			}
		}

		if !activate {
			return nil
		}

		// 3. Flip the active flag
		if _, err := tx.ExecContext(ctx, `
			UPDATE snapshots SET is_active = FALSE
			WHERE tenant = $1 AND dataset_type = $2 AND is_active AND id <> $3
		`, snap.Tenant, snap.DatasetType, id); err != nil {
			return fmt.Errorf("failed to deactivate snapshots: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE snapshots SET is_active = TRUE WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to activate snapshot: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}
