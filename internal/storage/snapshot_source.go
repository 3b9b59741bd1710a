package storage

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish-go/internal/domain"
	"github.com/andresuchdata/replenish-go/internal/ingest"
)

// ObjectSnapshotSource loads CSV exports from object storage as snapshots.
type ObjectSnapshotSource struct {
	store ObjectStorage
	opts  []ingest.Option
}

func NewObjectSnapshotSource(store ObjectStorage, opts ...ingest.Option) *ObjectSnapshotSource {
	return &ObjectSnapshotSource{store: store, opts: opts}
}

// Load reads one object. The snapshot version is the object ETag, or the
// content hash when the store reports none. A fixed decimal mark is appended
// to the ETag.
func (s *ObjectSnapshotSource) Load(ctx context.Context, key, tenant, datasetType string) (domain.Snapshot, error) {
	body, info, err := s.store.GetObject(ctx, key)
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer body.Close()

	snap, stats, err := ingest.LoadSnapshot(body, tenant, datasetType, s.opts...)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("load %s: %w", key, err)
	}
	if info.ETag != "" {
		snap.Version = info.ETag
		if stats.DecimalMark != ingest.DecimalAuto {
			snap.Version += "@" + string(stats.DecimalMark)
		}
	}

	log.Info().
		Str("key", key).
		Str("version", snap.Version).
		Int("records", len(snap.Records)).
		Int("dropped", stats.DroppedRows).
		Msg("snapshot loaded from object storage")

	return snap, nil
}

// Latest returns the most recently modified CSV object under prefix.
func (s *ObjectSnapshotSource) Latest(ctx context.Context, prefix string) (ObjectInfo, error) {
	objects, err := s.store.ListObjects(ctx, prefix)
	if err != nil {
		return ObjectInfo{}, err
	}

	csvs := make([]ObjectInfo, 0, len(objects))
	for _, o := range objects {
		if strings.EqualFold(path.Ext(o.Key), ".csv") {
			csvs = append(csvs, o)
		}
	}
	if len(csvs) == 0 {
		return ObjectInfo{}, fmt.Errorf("no csv objects under %q", prefix)
	}

	sort.Slice(csvs, func(i, j int) bool {
		if !csvs[i].LastModified.Equal(csvs[j].LastModified) {
			return csvs[i].LastModified.After(csvs[j].LastModified)
		}
		return csvs[i].Key > csvs[j].Key
	})
	return csvs[0], nil
}
