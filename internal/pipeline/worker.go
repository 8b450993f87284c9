package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/andresuchdata/stockopt/internal/optimizer"
	"github.com/andresuchdata/stockopt/internal/repository"
	"github.com/andresuchdata/stockopt/internal/stats"
	"github.com/rs/zerolog/log"
)

// Worker runs product jobs through the optimizer on a bounded pool
type Worker struct {
	config    PoolConfig
	history   repository.HistoryRepository
	optimizer *optimizer.Optimizer
	clock     domain.Clock
}

// NewWorker creates a new batch worker
func NewWorker(config PoolConfig, history repository.HistoryRepository, opt *optimizer.Optimizer, clock domain.Clock) *Worker {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &Worker{
		config:    config,
		history:   history,
		optimizer: opt,
		clock:     clock,
	}
}

// processParallel processes jobs using a worker pool. Jobs whose data is
// missing are marked skipped; the first infrastructure error is returned
// after every worker has drained.
func (w *Worker) processParallel(ctx context.Context, jobs []*ProductJob, params domain.OptimizationParameters) error {
	workerCount := w.config.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(jobs) {
		workerCount = len(jobs)
	}

	jobChan := make(chan *ProductJob, len(jobs))
	errChan := make(chan error, workerCount)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobChan {
				if err := w.processJob(ctx, job, params); err != nil {
					log.Error().Err(err).
						Str("pipeline", w.config.Name).
						Int("worker", workerID).
						Str("product_id", job.ProductID).
						Str("location_id", job.LocationID).
						Msg("product optimization failed")
					select {
					case errChan <- err:
					default:
					}
				}
			}
		}(i)
	}

	// Enqueue jobs
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			close(jobChan)
			wg.Wait()
			return ctx.Err()
		case jobChan <- job:
		}
	}
	close(jobChan)

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return err
	}
	return nil
}

// processJob fetches history and optimizes one product
func (w *Worker) processJob(ctx context.Context, job *ProductJob, params domain.OptimizationParameters) error {
	start := time.Now()
	defer func() { job.Duration = time.Since(start) }()

	fetchCtx := ctx
	if w.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, w.config.RequestTimeout)
		defer cancel()
	}

	history, err := w.history.FetchHistory(fetchCtx, job.ProductID, job.LocationID, w.config.LookbackDays)
	if err != nil {
		return w.fail(job, fmt.Errorf("fetch history %s@%s: %w", job.ProductID, job.LocationID, err))
	}
	if w.config.FillGaps {
		// today is still accumulating; fill through yesterday
		history = stats.FillDailyGaps(history, w.clock.Now().AddDate(0, 0, -1))
	}

	result, err := w.optimizer.Optimize(job.ProductID, job.LocationID, history, params)
	if err != nil {
		return w.fail(job, err)
	}

	job.Status = JobStatusCompleted
	job.Result = result
	return nil
}

// fail records a job error. Data gaps mark the job skipped and return nil.
func (w *Worker) fail(job *ProductJob, err error) error {
	job.Err = err
	if !isDataGap(err) {
		job.Status = JobStatusFailed
		return err
	}

	job.Status = JobStatusSkipped
	log.Warn().Err(err).
		Str("pipeline", w.config.Name).
		Str("product_id", job.ProductID).
		Str("location_id", job.LocationID).
		Msg("skipping product without usable demand history")
	return nil
}

// isDataGap reports per-product data problems that must not abort a batch.
// Parameters are validated once before the batch, so an invalid-parameter
// error here comes from the product's own history (e.g. zero demand).
func isDataGap(err error) bool {
	return errors.Is(err, domain.ErrInsufficientData) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidParameters)
}
