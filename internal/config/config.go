package config

import (
	"sync"
	"time"

	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database    DatabaseConfig
	Cache       CacheConfig
	Engine      EngineConfig
	Rebalancing RebalancingConfig
	Storage     StorageConfig
	Log         LogConfig
}

type DatabaseConfig struct {
	Driver           string // "postgres" (lib/pq) or "pgx"
	Host             string
	Port             string
	User             string
	Password         string
	DBName           string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	MaxConcurrentOps int64
	AcquireTimeout   time.Duration
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ResultTTLSeconds int
}

type EngineConfig struct {
	SmoothingAlpha        float64
	DefaultLeadTimeDays   float64
	HorizonDays           int
	LookbackDays          int
	ValidityDays          int
	ProbabilisticStockout bool
	FillGaps              bool
	WorkerCount           int
	RequestTimeout        time.Duration
}

type RebalancingConfig struct {
	SurplusThreshold    float64
	DeficitThreshold    float64
	TransferFraction    float64
	MaxTransferQuantity float64
	MinTransferQuantity float64
	TransferCostPerUnit float64
	BenefitPerUnit      float64
	SavingsPerUnit      float64
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type LogConfig struct {
	Level string
}

var (
	once     sync.Once
	instance *Config
)

// Load returns the process-wide configuration, built on first use.
func Load() *Config {
	once.Do(func() {
		instance = LoadFresh()
	})

	return instance
}

// LoadFresh builds a configuration from the current environment, bypassing the singleton.
func LoadFresh() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	setDefaults()

	// Read from environment variables
	viper.AutomaticEnv()

	return &Config{
		Database: DatabaseConfig{
			Driver:           viper.GetString("DB_DRIVER"),
			Host:             viper.GetString("DB_HOST"),
			Port:             viper.GetString("DB_PORT"),
			User:             viper.GetString("DB_USER"),
			Password:         viper.GetString("DB_PASSWORD"),
			DBName:           viper.GetString("DB_NAME"),
			SSLMode:          viper.GetString("DB_SSLMODE"),
			MaxOpenConns:     viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:     viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime:  time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME_SECONDS")) * time.Second,
			MaxConcurrentOps: viper.GetInt64("DB_MAX_CONCURRENT_QUERIES"),
			AcquireTimeout:   time.Duration(viper.GetInt("DB_ACQUIRE_TIMEOUT_MS")) * time.Millisecond,
		},
		Cache: CacheConfig{
			Enabled:          viper.GetBool("CACHE_ENABLED"),
			RedisURL:         viper.GetString("REDIS_URL"),
			RedisHost:        viper.GetString("REDIS_HOST"),
			RedisPort:        viper.GetString("REDIS_PORT"),
			RedisPassword:    viper.GetString("REDIS_PASSWORD"),
			RedisDB:          viper.GetInt("REDIS_DB"),
			ResultTTLSeconds: viper.GetInt("CACHE_RESULT_TTL_SECONDS"),
		},
		Engine: EngineConfig{
			SmoothingAlpha:        viper.GetFloat64("ENGINE_SMOOTHING_ALPHA"),
			DefaultLeadTimeDays:   viper.GetFloat64("ENGINE_DEFAULT_LEAD_TIME_DAYS"),
			HorizonDays:           viper.GetInt("ENGINE_HORIZON_DAYS"),
			LookbackDays:          viper.GetInt("ENGINE_LOOKBACK_DAYS"),
			ValidityDays:          viper.GetInt("ENGINE_VALIDITY_DAYS"),
			ProbabilisticStockout: viper.GetBool("ENGINE_PROBABILISTIC_STOCKOUT"),
			FillGaps:              viper.GetBool("ENGINE_FILL_GAPS"),
			WorkerCount:           viper.GetInt("ENGINE_WORKER_COUNT"),
			RequestTimeout:        time.Duration(viper.GetInt("ENGINE_REQUEST_TIMEOUT_SECONDS")) * time.Second,
		},
		Rebalancing: RebalancingConfig{
			SurplusThreshold:    viper.GetFloat64("REBALANCE_SURPLUS_THRESHOLD"),
			DeficitThreshold:    viper.GetFloat64("REBALANCE_DEFICIT_THRESHOLD"),
			TransferFraction:    viper.GetFloat64("REBALANCE_TRANSFER_FRACTION"),
			MaxTransferQuantity: viper.GetFloat64("REBALANCE_MAX_TRANSFER"),
			MinTransferQuantity: viper.GetFloat64("REBALANCE_MIN_TRANSFER"),
			TransferCostPerUnit: viper.GetFloat64("REBALANCE_COST_PER_UNIT"),
			BenefitPerUnit:      viper.GetFloat64("REBALANCE_BENEFIT_PER_UNIT"),
			SavingsPerUnit:      viper.GetFloat64("REBALANCE_SAVINGS_PER_UNIT"),
		},
		Storage: StorageConfig{
			Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("STORAGE_BUCKET"),
			Region:    viper.GetString("STORAGE_REGION"),
			UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}
}

func setDefaults() {
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "stockopt")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_SECONDS", 300)
	viper.SetDefault("DB_MAX_CONCURRENT_QUERIES", 10)
	viper.SetDefault("DB_ACQUIRE_TIMEOUT_MS", 5000)

	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_RESULT_TTL_SECONDS", 3600)

	viper.SetDefault("ENGINE_SMOOTHING_ALPHA", 0.3)
	viper.SetDefault("ENGINE_DEFAULT_LEAD_TIME_DAYS", 7)
	viper.SetDefault("ENGINE_HORIZON_DAYS", 90)
	viper.SetDefault("ENGINE_LOOKBACK_DAYS", 365)
	viper.SetDefault("ENGINE_VALIDITY_DAYS", 7)
	viper.SetDefault("ENGINE_PROBABILISTIC_STOCKOUT", false)
	viper.SetDefault("ENGINE_FILL_GAPS", true)
	viper.SetDefault("ENGINE_WORKER_COUNT", 4)
	viper.SetDefault("ENGINE_REQUEST_TIMEOUT_SECONDS", 10)

	viper.SetDefault("REBALANCE_SURPLUS_THRESHOLD", 100)
	viper.SetDefault("REBALANCE_DEFICIT_THRESHOLD", 50)
	viper.SetDefault("REBALANCE_TRANSFER_FRACTION", 0.3)
	viper.SetDefault("REBALANCE_MAX_TRANSFER", 100)
	viper.SetDefault("REBALANCE_MIN_TRANSFER", 10)
	viper.SetDefault("REBALANCE_COST_PER_UNIT", 0.5)
	viper.SetDefault("REBALANCE_BENEFIT_PER_UNIT", 2.0)
	viper.SetDefault("REBALANCE_SAVINGS_PER_UNIT", 1.5)

	viper.SetDefault("STORAGE_ENDPOINT", "")
	viper.SetDefault("STORAGE_ACCESS_KEY", "")
	viper.SetDefault("STORAGE_SECRET_KEY", "")
	viper.SetDefault("STORAGE_BUCKET", "")
	viper.SetDefault("STORAGE_REGION", "us-east-1")
	viper.SetDefault("STORAGE_USE_SSL", true)

	viper.SetDefault("LOG_LEVEL", "info")
}

// EnginePolicy maps the engine section onto the domain policy.
func (c *Config) EnginePolicy() domain.EnginePolicy {
	return domain.EnginePolicy{
		SmoothingAlpha:        c.Engine.SmoothingAlpha,
		DefaultLeadTimeDays:   c.Engine.DefaultLeadTimeDays,
		ProbabilisticStockout: c.Engine.ProbabilisticStockout,
		ValidityDays:          c.Engine.ValidityDays,
	}
}

// RebalancingPolicy maps the rebalancing section onto the domain policy.
func (c *Config) RebalancingPolicy() domain.RebalancingPolicy {
	r := c.Rebalancing
	return domain.RebalancingPolicy{
		SurplusThreshold:    r.SurplusThreshold,
		DeficitThreshold:    r.DeficitThreshold,
		TransferFraction:    r.TransferFraction,
		MaxTransferQuantity: r.MaxTransferQuantity,
		MinTransferQuantity: r.MinTransferQuantity,
		TransferCostPerUnit: r.TransferCostPerUnit,
		BenefitPerUnit:      r.BenefitPerUnit,
		SavingsPerUnit:      r.SavingsPerUnit,
	}
}
