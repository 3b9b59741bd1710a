package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/replenish-go/internal/config"
	"github.com/andresuchdata/replenish-go/internal/engine"
)

const (
	planKeyPrefix     = "plan"
	planScanBatchSize = 100
)

// PlanKey identifies one computed plan: a snapshot version evaluated under a
// policy fingerprint.
type PlanKey struct {
	Tenant      string
	DatasetType string
	Version     string
	Policy      string
}

// String renders the redis key plan:<tenant>:<dataset>:<version>:<policy>.
func (k PlanKey) String() string {
	return strings.Join([]string{
		planKeyPrefix,
		keySegment(k.Tenant),
		keySegment(k.DatasetType),
		keySegment(k.Version),
		keySegment(k.Policy),
	}, ":")
}

// snapshotPrefix matches every plan of a tenant and dataset type.
func snapshotPrefix(tenant, datasetType string) string {
	return strings.Join([]string{planKeyPrefix, keySegment(tenant), keySegment(datasetType)}, ":") + ":"
}

// keySegment keeps user-provided values from introducing extra separators or
// glob characters.
func keySegment(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "_"
	}
	return strings.NewReplacer(":", "_", "*", "_", "?", "_", "[", "_", "]", "_", " ", "_").Replace(v)
}

type PlanCache interface {
	Get(ctx context.Context, key PlanKey) (*engine.Result, bool, error)
	Set(ctx context.Context, key PlanKey, result *engine.Result) error
	InvalidateSnapshot(ctx context.Context, tenant, datasetType string) (int, error)
}

type redisPlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopPlanCache struct{}

func NewPlanCache(cfg config.CacheConfig) (PlanCache, error) {
	if !cfg.Enabled {
		return &noopPlanCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisPlanCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopPlanCache() PlanCache {
	return &noopPlanCache{}
}

func (c *redisPlanCache) Get(ctx context.Context, key PlanKey) (*engine.Result, bool, error) {
	payload, err := c.client.Get(ctx, key.String()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result engine.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode plan cache: %w", err)
	}

	return &result, true, nil
}

func (c *redisPlanCache) Set(ctx context.Context, key PlanKey, result *engine.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode plan cache: %w", err)
	}

	if err := c.client.Set(ctx, key.String(), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisPlanCache) InvalidateSnapshot(ctx context.Context, tenant, datasetType string) (int, error) {
	return deleteKeysWithPrefix(ctx, c.client, snapshotPrefix(tenant, datasetType), planScanBatchSize)
}

func (n *noopPlanCache) Get(ctx context.Context, key PlanKey) (*engine.Result, bool, error) {
	return nil, false, nil
}

func (n *noopPlanCache) Set(ctx context.Context, key PlanKey, result *engine.Result) error {
	return nil
}

func (n *noopPlanCache) InvalidateSnapshot(ctx context.Context, tenant, datasetType string) (int, error) {
	return 0, nil
}
