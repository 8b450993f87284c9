package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/andresuchdata/stockopt/internal/storage"
	"github.com/andresuchdata/stockopt/pkg/logger"
	"github.com/urfave/cli/v2"
)

func productFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "product", Usage: "Product ID", Required: true},
		&cli.StringFlag{Name: "location", Usage: "Location ID", Required: true},
	}
}

func horizonFlag() cli.Flag {
	return &cli.IntFlag{Name: "horizon", Usage: "Forecast horizon in days (0 uses ENGINE_HORIZON_DAYS)"}
}

func parameterFlags() []cli.Flag {
	defaults := domain.DefaultOptimizationParameters()
	return []cli.Flag{
		&cli.Float64Flag{Name: "service-level", Usage: "Target service level in (0,1)", Value: defaults.TargetServiceLevel},
		&cli.Float64Flag{Name: "holding-rate", Usage: "Annual holding cost rate", Value: defaults.HoldingCostRate},
		&cli.Float64Flag{Name: "ordering-cost", Usage: "Fixed cost per order", Value: defaults.OrderingCost},
		&cli.Float64Flag{Name: "stockout-cost", Usage: "Cost per stockout event", Value: defaults.StockoutCost},
		&cli.Float64Flag{Name: "lead-time", Usage: "Lead time in days (0 uses ENGINE_DEFAULT_LEAD_TIME_DAYS)"},
		&cli.Float64Flag{Name: "max-investment", Usage: "Budget for total inventory cost (0 means unlimited)"},
		&cli.StringSliceFlag{Name: "storage", Usage: "Storage capacity per location as LOCATION=UNITS"},
	}
}

// parseParameters builds optimization parameters from the shared flags.
func parseParameters(c *cli.Context) (domain.OptimizationParameters, error) {
	params := domain.DefaultOptimizationParameters()
	params.TargetServiceLevel = c.Float64("service-level")
	params.HoldingCostRate = c.Float64("holding-rate")
	params.OrderingCost = c.Float64("ordering-cost")
	params.StockoutCost = c.Float64("stockout-cost")
	params.LeadTimeDays = c.Float64("lead-time")

	if budget := c.Float64("max-investment"); budget > 0 {
		params.MaxInvestment = &budget
	}

	storageCaps, err := parseStorageConstraints(c.StringSlice("storage"))
	if err != nil {
		return params, err
	}
	params.StorageConstraints = storageCaps

	return params, params.Validate()
}

// parseStorageConstraints reads LOCATION=UNITS pairs.
func parseStorageConstraints(values []string) (map[string]float64, error) {
	if len(values) == 0 {
		return nil, nil
	}
	caps := make(map[string]float64, len(values))
	for _, raw := range values {
		loc, value, ok := strings.Cut(raw, "=")
		loc = strings.TrimSpace(loc)
		if !ok || loc == "" {
			return nil, fmt.Errorf("%w: storage %q must be LOCATION=UNITS", domain.ErrInvalidParameters, raw)
		}
		capacity, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: storage %q: %v", domain.ErrInvalidParameters, raw, err)
		}
		caps[loc] = capacity
	}
	return caps, nil
}

func runForecast(c *cli.Context) error {
	result, err := fromContext(c).service.Forecast(c.Context, c.String("product"), c.String("location"), c.Int("horizon"))
	if err != nil {
		return err
	}
	return writeResult(c, result)
}

func runOptimize(c *cli.Context) error {
	params, err := parseParameters(c)
	if err != nil {
		return err
	}
	result, err := fromContext(c).service.Optimize(c.Context, c.String("product"), c.String("location"), params)
	if err != nil {
		return err
	}
	return writeResult(c, result)
}

func runRisk(c *cli.Context) error {
	result, err := fromContext(c).service.AnalyzeRisk(c.Context, c.String("product"), c.String("location"), c.Int("horizon"))
	if err != nil {
		return err
	}
	return writeResult(c, result)
}

func runBatch(c *cli.Context) error {
	params, err := parseParameters(c)
	if err != nil {
		return err
	}
	result, err := fromContext(c).service.OptimizeLocation(c.Context, c.String("location"), params)
	if err != nil {
		return err
	}
	return writeResult(c, result)
}

// parseMinUrgency reads the --min-urgency flag; empty means every transfer.
func parseMinUrgency(raw string) (domain.RiskLevel, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.RiskLow, nil
	}
	level, ok := domain.ParseRiskLevel(raw)
	if !ok {
		return "", fmt.Errorf("%w: min-urgency %q must be one of low, medium, high, critical", domain.ErrInvalidParameters, raw)
	}
	return level, nil
}

func runRebalance(c *cli.Context) error {
	params, err := parseParameters(c)
	if err != nil {
		return err
	}
	minUrgency, err := parseMinUrgency(c.String("min-urgency"))
	if err != nil {
		return err
	}

	svc := fromContext(c).service
	locations := c.StringSlice("location")
	var result *domain.SupplyChainOptimization
	if c.Bool("with-batches") {
		result, err = svc.OptimizeNetwork(c.Context, locations, params)
	} else {
		result, err = svc.Rebalance(c.Context, locations, params)
	}
	if err != nil {
		return err
	}

	total := len(result.RecommendedTransfers)
	svc.FilterByUrgency(result, minUrgency)
	log := logger.Component("rebalance")
	log.Info().
		Str("min_urgency", minUrgency.Label()).
		Int("proposed", total).
		Int("kept", len(result.RecommendedTransfers)).
		Msg("transfers filtered by urgency")
	return writeResult(c, result)
}

func runFetchExports(c *cli.Context) error {
	objects, err := fromContext(c).objectStorage()
	if err != nil {
		return err
	}

	prefix := c.String("s3-prefix")
	list, err := objects.ListObjects(c.Context, prefix)
	if err != nil {
		return err
	}

	log := logger.Component("fetch-exports")
	dest := c.String("dest")
	downloaded := 0
	for _, object := range list {
		if storage.ClassifyExport(object.Key) == storage.ExportUnknown {
			continue
		}
		target := filepath.Join(dest, path.Base(object.Key))
		if err := objects.DownloadObject(c.Context, object.Key, target); err != nil {
			return err
		}
		downloaded++
		log.Info().Str("key", object.Key).Str("path", target).Int64("bytes", object.Size).Msg("downloaded export")
	}

	log.Info().Int("files", downloaded).Str("dest", dest).Msg("fetch exports completed")
	return nil
}

func runCacheClear(c *cli.Context) error {
	if err := fromContext(c).service.InvalidateCache(c.Context, c.String("product"), c.String("location")); err != nil {
		return err
	}
	log := logger.Component("cache")
	log.Info().Str("product", c.String("product")).Msg("cache cleared")
	return nil
}

// writeResult prints v as indented JSON and uploads it when --report-key is set.
func writeResult(c *cli.Context, v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if _, err := fmt.Fprintln(os.Stdout, string(payload)); err != nil {
		return err
	}

	key := c.String("report-key")
	if key == "" {
		return nil
	}
	objects, err := fromContext(c).objectStorage()
	if err != nil {
		return err
	}
	if err := objects.UploadObject(c.Context, key, payload); err != nil {
		return err
	}
	log := logger.Component("report")
	log.Info().Str("key", key).Msg("uploaded report")
	return nil
}
