package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/andresuchdata/stockopt/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Orchestrator applies the single-product optimizer to every product at a location.
type Orchestrator struct {
	catalog repository.StockRepository
	worker  *Worker
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(catalog repository.StockRepository, worker *Worker) *Orchestrator {
	return &Orchestrator{catalog: catalog, worker: worker}
}

// OptimizeLocation optimizes every product listed at the location. Products
// without usable history are skipped and reported; they never abort the batch.
func (o *Orchestrator) OptimizeLocation(ctx context.Context, locationID string, params domain.OptimizationParameters) (*domain.BatchOptimizationResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	productIDs, err := o.catalog.ListProductIDs(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("list products at %s: %w", locationID, err)
	}

	jobs := make([]*ProductJob, len(productIDs))
	for i, id := range productIDs {
		jobs[i] = &ProductJob{ProductID: id, LocationID: locationID, Status: JobStatusQueued}
	}

	if err := o.worker.processParallel(ctx, jobs, params); err != nil {
		return nil, fmt.Errorf("batch optimization at %s: %w", locationID, err)
	}

	batch := &domain.BatchOptimizationResult{
		RunID:               uuid.NewString(),
		LocationID:          locationID,
		Results:             []*domain.OptimizationResult{},
		SkippedProducts:     []string{},
		ConstraintsViolated: []string{},
		Recommendations:     []string{},
		GeneratedAt:         o.worker.clock.Now(),
	}
	for _, job := range jobs {
		switch job.Status {
		case JobStatusCompleted:
			batch.Results = append(batch.Results, job.Result)
			batch.TotalCost += job.Result.TotalCost
			batch.TotalMaxStock += job.Result.MaxStock
		case JobStatusSkipped:
			batch.SkippedProducts = append(batch.SkippedProducts, job.ProductID)
		}
	}
	sort.Slice(batch.Results, func(i, j int) bool {
		return batch.Results[i].ProductID < batch.Results[j].ProductID
	})
	sort.Strings(batch.SkippedProducts)
	batch.TotalCost = domain.RoundCurrency(batch.TotalCost)

	checkConstraints(batch, params)

	log.Info().
		Str("run_id", batch.RunID).
		Str("location_id", locationID).
		Int("products", len(productIDs)).
		Int("optimized", len(batch.Results)).
		Int("skipped", len(batch.SkippedProducts)).
		Int("violations", len(batch.ConstraintsViolated)).
		Msg("location batch optimization completed")

	return batch, nil
}

func checkConstraints(batch *domain.BatchOptimizationResult, params domain.OptimizationParameters) {
	if capacity, ok := params.StorageConstraints[batch.LocationID]; ok && batch.TotalMaxStock > capacity {
		batch.ConstraintsViolated = append(batch.ConstraintsViolated, fmt.Sprintf(
			"storage capacity at %s exceeded: max stock %.0f units > capacity %.0f",
			batch.LocationID, batch.TotalMaxStock, capacity))
		batch.Recommendations = append(batch.Recommendations,
			"lower the target service level or order more frequently to fit storage capacity")
	}

	if params.MaxInvestment != nil && batch.TotalCost > *params.MaxInvestment {
		batch.ConstraintsViolated = append(batch.ConstraintsViolated, fmt.Sprintf(
			"max investment exceeded: total cost %.2f > budget %.2f", batch.TotalCost, *params.MaxInvestment))
		batch.Recommendations = append(batch.Recommendations,
			"prioritize high-turnover products to stay within the investment budget")
	}

	if n := len(batch.SkippedProducts); n > 0 {
		batch.Recommendations = append(batch.Recommendations, fmt.Sprintf(
			"%d product(s) skipped for missing demand history: %s",
			n, strings.Join(batch.SkippedProducts, ", ")))
	}

	if len(batch.Results) == 0 {
		batch.Recommendations = append(batch.Recommendations,
			"no product at this location had usable demand history")
	}

	for _, r := range batch.Results {
		if r.SafetyStock > r.OrderQuantity {
			batch.Recommendations = append(batch.Recommendations, fmt.Sprintf(
				"%s: safety stock exceeds order quantity; review demand variability and lead time", r.ProductID))
		}
	}
}
