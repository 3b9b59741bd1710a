package main

import (
	"bytes"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish-go/internal/config"
	"github.com/andresuchdata/replenish-go/internal/engine"
	"github.com/andresuchdata/replenish-go/internal/export"
	"github.com/andresuchdata/replenish-go/internal/storage"
	"github.com/andresuchdata/replenish-go/pkg/logger"
)

func runPlanObject(c *cli.Context) error {
	cfg := config.Load()

	client, err := storage.NewMinioClient(cfg.Storage)
	if err != nil {
		return err
	}
	opts, err := ingestOptions(c)
	if err != nil {
		return err
	}
	source := storage.NewObjectSnapshotSource(client, opts...)

	key := c.String("key")
	if key == "" {
		latest, err := source.Latest(c.Context, c.String("prefix"))
		if err != nil {
			return err
		}
		key = latest.Key
		logger.Log.Info().Str("key", key).Time("modified", latest.LastModified).Msg("using newest snapshot object")
	}

	svc, cleanup, err := newService(false)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := resolvePolicy(c, svc)
	if err != nil {
		return err
	}

	snap, err := source.Load(c.Context, key, c.String("tenant"), c.String("dataset"))
	if err != nil {
		return err
	}

	result, err := svc.Plan(c.Context, snap, p)
	if err != nil {
		return err
	}

	if uploadKey := c.String("upload-key"); uploadKey != "" {
		if err := uploadPlan(c, client, uploadKey, result); err != nil {
			return err
		}
	}
	return writeResult(c, result)
}

func uploadPlan(c *cli.Context, client storage.ObjectStorage, key string, result *engine.Result) error {
	locale, err := export.ParseLocale(c.String("locale"))
	if err != nil {
		return err
	}
	decisions, err := sortDecisions(c.String("sort"), result.Decisions)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.WriteDecisions(&buf, decisions, locale); err != nil {
		return err
	}
	if err := client.UploadObject(c.Context, key, buf.Bytes(), "text/csv"); err != nil {
		return fmt.Errorf("failed to upload plan to %s: %w", key, err)
	}

	logger.Log.Info().Str("key", key).Int("bytes", buf.Len()).Msg("plan uploaded")
	return nil
}
