package pipeline

import (
	"time"

	"github.com/andresuchdata/stockopt/internal/domain"
)

// PoolConfig holds configuration for a batch run
type PoolConfig struct {
	Name           string
	WorkerCount    int           // Number of concurrent workers; size to the history source pool
	LookbackDays   int           // History window fetched per product
	RequestTimeout time.Duration // Per-product history fetch timeout
	FillGaps       bool          // Expand histories to one row per calendar day
}

// DefaultPoolConfig returns sensible defaults
func DefaultPoolConfig(name string) PoolConfig {
	return PoolConfig{
		Name:           name,
		WorkerCount:    4,
		LookbackDays:   365,
		RequestTimeout: 10 * time.Second,
		FillGaps:       true,
	}
}

// JobStatus represents the state of a single product job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusCompleted JobStatus = "completed"
	JobStatusSkipped   JobStatus = "skipped"
	JobStatusFailed    JobStatus = "failed"
)

// ProductJob tracks the optimization of a single product at a location
type ProductJob struct {
	ProductID  string
	LocationID string
	Status     JobStatus
	Result     *domain.OptimizationResult
	Err        error
	Duration   time.Duration
}
