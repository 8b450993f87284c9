package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/andresuchdata/stockopt/internal/cache"
	"github.com/andresuchdata/stockopt/internal/config"
	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/andresuchdata/stockopt/internal/repository"
	"github.com/andresuchdata/stockopt/internal/repository/memory"
	"github.com/andresuchdata/stockopt/internal/repository/postgres"
	"github.com/andresuchdata/stockopt/internal/service"
	"github.com/andresuchdata/stockopt/internal/storage"
	"github.com/andresuchdata/stockopt/pkg/logger"
	"github.com/urfave/cli/v2"
)

type contextKey string

const appKey contextKey = "stockopt.app"

// app carries everything commands need between Before and After.
type app struct {
	cfg     *config.Config
	service *service.StockOptimizationService
	objects storage.ObjectStorage
	db      *postgres.DB
}

func fromContext(c *cli.Context) *app {
	a, _ := c.Context.Value(appKey).(*app)
	return a
}

// setup opens the configured inventory source before a command runs.
func setup(c *cli.Context) error {
	return open(c, true)
}

// setupTools prepares commands that never read inventory.
func setupTools(c *cli.Context) error {
	return open(c, false)
}

func open(c *cli.Context, withSource bool) error {
	cfg := config.LoadFresh()
	level := cfg.Log.Level
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	logger.SetLevel(level)

	a := &app{cfg: cfg}
	var repo repository.InventoryRepository = memory.NewInventoryRepository(domain.SystemClock)
	if withSource {
		var err error
		if repo, err = a.openSource(c); err != nil {
			return err
		}
	}

	resultCache, err := cache.NewResultCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("result cache unavailable, continuing without it")
		resultCache = cache.NewNoopResultCache()
	}

	svc, err := service.NewStockOptimizationService(repo, resultCache, service.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}
	a.service = svc

	c.Context = context.WithValue(c.Context, appKey, a)
	return nil
}

func teardown(c *cli.Context) error {
	if a := fromContext(c); a != nil && a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *app) openSource(c *cli.Context) (repository.InventoryRepository, error) {
	switch source := strings.ToLower(c.String("source")); source {
	case "csv":
		repo := memory.NewInventoryRepository(domain.SystemClock)
		if err := loadCSVFile(c.String("movements"), repo.LoadMovementsCSV); err != nil {
			return nil, err
		}
		if err := loadCSVFile(c.String("stock"), repo.LoadStockCSV); err != nil {
			return nil, err
		}
		return repo, nil

	case "s3":
		objects, err := a.objectStorage()
		if err != nil {
			return nil, err
		}
		repo := memory.NewInventoryRepository(domain.SystemClock)
		loaded, err := storage.LoadExports(c.Context, objects, c.String("s3-prefix"), repo)
		if err != nil {
			return nil, err
		}
		logger.Log.Info().
			Int("movements", loaded[storage.ExportMovements]).
			Int("stock", loaded[storage.ExportStock]).
			Msg("loaded exports from object storage")
		return repo, nil

	case "postgres":
		db, err := postgres.NewDB(&a.cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db
		return postgres.NewMovementRepository(db, domain.SystemClock), nil

	default:
		return nil, fmt.Errorf("unknown source %q (want csv, s3 or postgres)", source)
	}
}

func (a *app) objectStorage() (storage.ObjectStorage, error) {
	if a.objects != nil {
		return a.objects, nil
	}
	client, err := storage.NewMinioClient(a.cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.objects = client
	return client, nil
}

func loadCSVFile(path string, load func(in io.Reader) (int, error)) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	n, err := load(file)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	logger.Log.Debug().Str("file", path).Int("rows", n).Msg("loaded csv")
	return nil
}
