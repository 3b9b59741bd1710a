package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish-go/internal/cache"
	"github.com/andresuchdata/replenish-go/internal/config"
	"github.com/andresuchdata/replenish-go/internal/domain"
	"github.com/andresuchdata/replenish-go/internal/engine"
	"github.com/andresuchdata/replenish-go/internal/export"
	"github.com/andresuchdata/replenish-go/internal/ingest"
	"github.com/andresuchdata/replenish-go/internal/repository/postgres"
	"github.com/andresuchdata/replenish-go/internal/service"
	"github.com/andresuchdata/replenish-go/pkg/logger"
)

const dateLayout = "2006-01-02"

func tenantFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "tenant",
		Usage:   "Tenant owning the snapshot",
		Value:   "default",
		EnvVars: []string{"REPLENISH_TENANT"},
	}
}

func datasetFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "dataset",
		Usage:   "Dataset type of the snapshot",
		Value:   "stock",
		EnvVars: []string{"REPLENISH_DATASET"},
	}
}

func decimalMarkFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "decimal-mark",
		Usage: "Decimal separator of the CSV (auto, dot, comma)",
		Value: string(ingest.DecimalAuto),
	}
}

func ingestOptions(c *cli.Context) ([]ingest.Option, error) {
	mark, err := ingest.ParseDecimalMark(c.String("decimal-mark"))
	if err != nil {
		return nil, err
	}
	return []ingest.Option{ingest.WithDecimalMark(mark)}, nil
}

func planFlags() []cli.Flag {
	return []cli.Flag{
		tenantFlag(),
		datasetFlag(),
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file; stdout when empty",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Output format (csv, json)",
			Value: "csv",
		},
		&cli.StringFlag{
			Name:  "locale",
			Usage: "Number format for CSV output (plain, comma)",
			Value: "plain",
		},
		&cli.StringFlag{
			Name:  "sort",
			Usage: "Decision order (urgency, priority, input)",
			Value: "urgency",
		},
		&cli.StringFlag{
			Name:  "summary",
			Usage: "Also write the per-supplier summary CSV to this file",
		},
		&cli.StringFlag{
			Name:  "policy",
			Usage: "JSON file with policy overrides",
		},
		&cli.StringFlag{
			Name:  "today",
			Usage: "Reference date (YYYY-MM-DD); the current date when empty",
		},
		&cli.StringFlag{
			Name:  "scheme",
			Usage: "Urgency scheme override (lead_time, months)",
		},
	}
}

// newService wires a plan service. The database is only opened when a
// command needs stored snapshots.
func newService(withDB bool) (*service.PlanService, func(), error) {
	cfg := config.Load()
	cleanup := func() {}

	planCache, err := cache.NewPlanCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("plan cache unavailable, continuing without it")
		planCache = cache.NewNoopPlanCache()
	}

	if !withDB {
		return service.NewPlanService(nil, planCache, cfg.Engine.Policy()), cleanup, nil
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, cleanup, fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanup = func() { db.Close() }

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.EnsureSchema(ctx); err != nil {
		cleanup()
		return nil, func() {}, err
	}

	return service.NewPlanService(postgres.NewSnapshotRepository(db), planCache, cfg.Engine.Policy()), cleanup, nil
}

// resolvePolicy layers the --policy file, --scheme and --today over the defaults.
func resolvePolicy(c *cli.Context, svc *service.PlanService) (engine.Policy, error) {
	var raw json.RawMessage
	if path := c.String("policy"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return engine.Policy{}, fmt.Errorf("read policy: %w", err)
		}
		raw = data
	}

	p, err := svc.MergePolicy(raw)
	if err != nil {
		return p, err
	}

	if scheme := c.String("scheme"); scheme != "" {
		p.UrgencyScheme = engine.UrgencyScheme(strings.ToLower(scheme))
	}
	if today := c.String("today"); today != "" {
		t, err := time.Parse(dateLayout, today)
		if err != nil {
			return p, fmt.Errorf("%w: today %q", engine.ErrInvalidPolicy, today)
		}
		p.Today = t
	}
	return p, nil
}

func sortDecisions(order string, decisions []domain.Decision) ([]domain.Decision, error) {
	switch strings.ToLower(order) {
	case "", "urgency":
		return engine.SortByUrgency(decisions), nil
	case "priority":
		return engine.SortByPriority(decisions), nil
	case "input":
		return decisions, nil
	}
	return nil, fmt.Errorf("unknown sort %q", order)
}

// writeResult renders the plan to --output (and --summary when set).
func writeResult(c *cli.Context, result *engine.Result) error {
	decisions, err := sortDecisions(c.String("sort"), result.Decisions)
	if err != nil {
		return err
	}
	locale, err := export.ParseLocale(c.String("locale"))
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(c.String("output"))
	if err != nil {
		return err
	}
	defer closeOut()

	switch strings.ToLower(c.String("format")) {
	case "csv":
		err = export.WriteDecisions(out, decisions, locale)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(engine.Result{Decisions: decisions, Report: result.Report})
	default:
		err = fmt.Errorf("unknown format %q", c.String("format"))
	}
	if err != nil {
		return err
	}

	if path := c.String("summary"); path != "" {
		f, closeSummary, err := openOutput(path)
		if err != nil {
			return err
		}
		defer closeSummary()
		if err := export.WriteSuppliers(f, engine.Summarize(result.Decisions), locale); err != nil {
			return err
		}
	}

	logReport(result.Report)
	return nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func logReport(r engine.Report) {
	logger.Log.Info().
		Str("run_id", r.RunID).
		Str("version", r.Version).
		Str("today", r.Today.String()).
		Int("records", r.Records).
		Int("clamped", r.ClampedRecords).
		Int("zero_consumption", r.ZeroConsumption).
		Int("missing_price", r.MissingPrice).
		Int("high_relevance", r.Priority.HighRelevance).
		Int("buy_now", r.Urgencies[domain.UrgencyBuyNow]).
		Dur("elapsed", r.Duration).
		Msg("plan ready")
}

func runPlanFile(c *cli.Context) error {
	svc, cleanup, err := newService(false)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := resolvePolicy(c, svc)
	if err != nil {
		return err
	}

	opts, err := ingestOptions(c)
	if err != nil {
		return err
	}
	snap, stats, err := ingest.LoadFile(c.String("input"), c.String("tenant"), c.String("dataset"), opts...)
	if err != nil {
		return err
	}
	logger.Log.Info().
		Str("input", c.String("input")).
		Int("rows", stats.Rows).
		Int("dropped", stats.DroppedRows).
		Int("invalid_numbers", stats.InvalidNumbers).
		Str("consumption_basis", string(stats.ConsumptionBasis)).
		Msg("snapshot read")

	result, err := svc.Plan(c.Context, snap, p)
	if err != nil {
		return err
	}
	return writeResult(c, result)
}

func runPlanActive(c *cli.Context) error {
	svc, cleanup, err := newService(true)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := resolvePolicy(c, svc)
	if err != nil {
		return err
	}

	result, err := svc.PlanActive(c.Context, c.String("tenant"), c.String("dataset"), p, c.StringSlice("supplier")...)
	if err != nil {
		return err
	}
	return writeResult(c, result)
}

func runImport(c *cli.Context) error {
	svc, cleanup, err := newService(true)
	if err != nil {
		return err
	}
	defer cleanup()

	opts, err := ingestOptions(c)
	if err != nil {
		return err
	}
	snap, stats, err := ingest.LoadFile(c.String("input"), c.String("tenant"), c.String("dataset"), opts...)
	if err != nil {
		return err
	}

	id, err := svc.Import(c.Context, snap, c.Bool("activate"))
	if err != nil {
		return err
	}

	logger.Log.Info().
		Int64("id", id).
		Str("tenant", snap.Tenant).
		Str("dataset", snap.DatasetType).
		Str("version", snap.Version).
		Int("records", len(snap.Records)).
		Int("dropped", stats.DroppedRows).
		Bool("active", c.Bool("activate")).
		Msg("snapshot imported")
	return nil
}
