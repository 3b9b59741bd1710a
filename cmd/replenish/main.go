package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish-go/internal/config"
	"github.com/andresuchdata/replenish-go/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "replenish",
		Usage: "Compute replenishment decisions from inventory snapshots",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg := config.Load()
			level := cfg.App.LogLevel
			if c.IsSet("log-level") {
				level = c.String("log-level")
			}
			logger.Setup(level, cfg.App.LogFormat)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "plan",
				Usage: "Plan a local CSV snapshot",
				Flags: append(planFlags(),
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "CSV snapshot to plan",
						Required: true,
					},
					decimalMarkFlag(),
				),
				Action: runPlanFile,
			},
			{
				Name:  "plan-active",
				Usage: "Plan the active snapshot stored in the database",
				Flags: append(planFlags(),
					&cli.StringSliceFlag{
						Name:  "supplier",
						Usage: "Restrict the plan to these suppliers",
					},
				),
				Action: runPlanActive,
			},
			{
				Name:  "plan-object",
				Usage: "Plan a CSV snapshot kept in object storage",
				Flags: append(planFlags(),
					&cli.StringFlag{
						Name:  "key",
						Usage: "Object key; the newest CSV under --prefix when empty",
					},
					&cli.StringFlag{
						Name:    "prefix",
						Usage:   "Prefix searched for the newest CSV",
						EnvVars: []string{"STORAGE_SNAPSHOT_PREFIX"},
					},
					&cli.StringFlag{
						Name:  "upload-key",
						Usage: "Also upload the CSV plan under this key",
					},
					decimalMarkFlag(),
				),
				Action: runPlanObject,
			},
			{
				Name:  "import",
				Usage: "Import a CSV snapshot into the database",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "CSV snapshot to import",
						Required: true,
					},
					tenantFlag(),
					datasetFlag(),
					decimalMarkFlag(),
					&cli.BoolFlag{
						Name:  "activate",
						Usage: "Make the imported version the active one",
						Value: true,
					},
				},
				Action: runImport,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("replenish failed")
	}
}
