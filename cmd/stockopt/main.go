package main

import (
	"os"

	"github.com/andresuchdata/stockopt/pkg/logger"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "stockopt",
		Usage: "Forecast demand and optimize stock levels across locations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "source",
				Usage:   "Inventory source: csv, s3 or postgres",
				Value:   "csv",
				EnvVars: []string{"STOCKOPT_SOURCE"},
			},
			&cli.StringFlag{
				Name:    "movements",
				Usage:   "Movements CSV (product_id,location_id,date,quantity) for the csv source",
				Value:   "./data/movements.csv",
				EnvVars: []string{"STOCKOPT_MOVEMENTS_CSV"},
			},
			&cli.StringFlag{
				Name:    "stock",
				Usage:   "Stock CSV (product_id,location_id,quantity) for the csv source",
				Value:   "./data/stock.csv",
				EnvVars: []string{"STOCKOPT_STOCK_CSV"},
			},
			&cli.StringFlag{
				Name:    "s3-prefix",
				Usage:   "Object prefix holding CSV exports for the s3 source",
				Value:   "exports/",
				EnvVars: []string{"STOCKOPT_S3_PREFIX"},
			},
			&cli.StringFlag{
				Name:    "report-key",
				Usage:   "Also upload the JSON result to object storage under this key",
				EnvVars: []string{"STOCKOPT_REPORT_KEY"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "forecast",
				Usage:  "Forecast daily demand for a product at a location",
				Flags:  append(productFlags(), horizonFlag()),
				Before: setup,
				After:  teardown,
				Action: runForecast,
			},
			{
				Name:   "optimize",
				Usage:  "Compute reorder point, order quantity and safety stock",
				Flags:  append(productFlags(), parameterFlags()...),
				Before: setup,
				After:  teardown,
				Action: runOptimize,
			},
			{
				Name:   "risk",
				Usage:  "Analyze stockout risk against current stock",
				Flags:  append(productFlags(), horizonFlag()),
				Before: setup,
				After:  teardown,
				Action: runRisk,
			},
			{
				Name:  "batch",
				Usage: "Optimize every product at a location",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "location", Usage: "Location ID", Required: true},
				}, parameterFlags()...),
				Before: setup,
				After:  teardown,
				Action: runBatch,
			},
			{
				Name:  "rebalance",
				Usage: "Propose stock transfers between locations",
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{Name: "location", Usage: "Location IDs (repeat or comma-separate)", Required: true},
					&cli.BoolFlag{Name: "with-batches", Usage: "Also optimize every location and attach the batch results"},
					&cli.StringFlag{Name: "min-urgency", Usage: "Drop transfers below this urgency (low, medium, high, critical)"},
				}, parameterFlags()...),
				Before: setup,
				After:  teardown,
				Action: runRebalance,
			},
			{
				Name:  "fetch-exports",
				Usage: "Download CSV exports from object storage to a local directory",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dest", Usage: "Destination directory", Value: "./data/exports"},
				},
				Before: setupTools,
				Action: runFetchExports,
			},
			{
				Name:  "cache-clear",
				Usage: "Drop cached results for a product, or all results",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "product", Usage: "Product ID (empty clears everything)"},
					&cli.StringFlag{Name: "location", Usage: "Location ID"},
				},
				Before: setupTools,
				Action: runCacheClear,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("stockopt failed")
	}
}
