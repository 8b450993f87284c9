// Package network proposes stock transfers between locations that hold a
// surplus of a product and locations running short of it.
package network

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/andresuchdata/stockopt/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Snapshot maps location -> product -> on-hand quantity
type Snapshot map[string]map[string]float64

// Rebalancer scans a set of locations for excess/deficit imbalances
type Rebalancer struct {
	stock       repository.StockRepository
	policy      domain.RebalancingPolicy
	clock       domain.Clock
	concurrency int
}

// NewRebalancer creates a rebalancer that reads at most concurrency
// locations at once.
func NewRebalancer(stock repository.StockRepository, policy domain.RebalancingPolicy, clock domain.Clock, concurrency int) *Rebalancer {
	if clock == nil {
		clock = domain.SystemClock
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Rebalancer{stock: stock, policy: policy, clock: clock, concurrency: concurrency}
}

// Rebalance snapshots stock at every location and proposes transfers.
func (r *Rebalancer) Rebalance(ctx context.Context, locationIDs []string, params domain.OptimizationParameters) (*domain.SupplyChainOptimization, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := r.policy.Validate(); err != nil {
		return nil, err
	}

	locations := dedupe(locationIDs)
	snapshot, err := r.TakeSnapshot(ctx, locations)
	if err != nil {
		return nil, err
	}

	plan := Plan(snapshot, locations, params, r.policy)
	plan.ID = uuid.NewString()
	plan.GeneratedAt = r.clock.Now()

	log.Info().
		Str("optimization_id", plan.ID).
		Int("locations", len(locations)).
		Int("transfers", len(plan.RecommendedTransfers)).
		Float64("cost_savings_potential", plan.CostSavingsPotential).
		Msg("network rebalancing planned")

	return plan, nil
}

// TakeSnapshot reads stock for every location concurrently.
func (r *Rebalancer) TakeSnapshot(ctx context.Context, locationIDs []string) (Snapshot, error) {
	levels := make([][]domain.StockLevel, len(locationIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, loc := range locationIDs {
		g.Go(func() error {
			stock, err := r.stock.ListStock(gctx, loc)
			if err != nil {
				return fmt.Errorf("list stock at %s: %w", loc, err)
			}
			levels[i] = stock
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshot := make(Snapshot, len(locationIDs))
	for i, loc := range locationIDs {
		byProduct := make(map[string]float64, len(levels[i]))
		for _, level := range levels[i] {
			byProduct[level.ProductID] += level.Quantity
		}
		snapshot[loc] = byProduct
	}
	return snapshot, nil
}

// Plan is the pure matching step. Locations are bucketed per product into
// surplus and deficit sets, then every (surplus, deficit) pair is visited in
// location order, which yields the same transfers as scanning every ordered
// pair of locations. A product is only considered where both locations carry it.
func Plan(snapshot Snapshot, locationIDs []string, params domain.OptimizationParameters, policy domain.RebalancingPolicy) *domain.SupplyChainOptimization {
	plan := &domain.SupplyChainOptimization{
		LocationIDs:          append([]string(nil), locationIDs...),
		RecommendedTransfers: []domain.RecommendedStockTransfer{},
	}

	type bucket struct{ surplus, deficit []string }
	buckets := make(map[string]*bucket)
	for _, loc := range locationIDs {
		for product, qty := range snapshot[loc] {
			b, ok := buckets[product]
			if !ok {
				b = &bucket{}
				buckets[product] = b
			}
			switch {
			case qty > policy.SurplusThreshold:
				b.surplus = append(b.surplus, loc)
			case qty < policy.DeficitThreshold:
				b.deficit = append(b.deficit, loc)
			}
		}
	}

	products := make([]string, 0, len(buckets))
	for product := range buckets {
		products = append(products, product)
	}
	sort.Strings(products)

	for _, product := range products {
		b := buckets[product]
		for _, from := range b.surplus {
			fromQty := snapshot[from][product]
			for _, to := range b.deficit {
				toQty := snapshot[to][product]
				qty := math.Min(fromQty*policy.TransferFraction, policy.MaxTransferQuantity)
				if capacity, ok := params.StorageConstraints[to]; ok {
					qty = math.Min(qty, math.Max(0, capacity-toQty))
				}
				if qty <= policy.MinTransferQuantity {
					continue
				}

				level := urgency(toQty, policy)
				transfer := domain.RecommendedStockTransfer{
					FromLocationID:  from,
					ToLocationID:    to,
					ProductID:       product,
					Quantity:        qty,
					TransferCost:    domain.RoundCurrency(qty * policy.TransferCostPerUnit),
					ExpectedBenefit: domain.RoundCurrency(qty * policy.BenefitPerUnit),
					Urgency:         level,
					Reason: fmt.Sprintf("%s holds %.0f units (above %.0f) while %s holds %.0f (below %.0f); %s urgency",
						from, fromQty, policy.SurplusThreshold, to, toQty, policy.DeficitThreshold, level.Label()),
				}
				plan.RecommendedTransfers = append(plan.RecommendedTransfers, transfer)
				plan.TotalTransferCost += transfer.TransferCost
				plan.TotalExpectedBenefit += transfer.ExpectedBenefit
				plan.CostSavingsPotential += qty * policy.SavingsPerUnit
			}
		}
	}

	plan.TotalTransferCost = domain.RoundCurrency(plan.TotalTransferCost)
	plan.TotalExpectedBenefit = domain.RoundCurrency(plan.TotalExpectedBenefit)
	plan.CostSavingsPotential = domain.RoundCurrency(plan.CostSavingsPotential)
	return plan
}

// FilterByUrgency drops transfers less urgent than minLevel and recomputes the
// plan totals from what is left. The plan is modified in place.
func FilterByUrgency(plan *domain.SupplyChainOptimization, minLevel domain.RiskLevel, policy domain.RebalancingPolicy) *domain.SupplyChainOptimization {
	kept := plan.RecommendedTransfers[:0]
	var cost, benefit, savings float64
	for _, transfer := range plan.RecommendedTransfers {
		if transfer.Urgency.Rank() < minLevel.Rank() {
			continue
		}
		kept = append(kept, transfer)
		cost += transfer.TransferCost
		benefit += transfer.ExpectedBenefit
		savings += transfer.Quantity * policy.SavingsPerUnit
	}

	plan.RecommendedTransfers = kept
	plan.TotalTransferCost = domain.RoundCurrency(cost)
	plan.TotalExpectedBenefit = domain.RoundCurrency(benefit)
	plan.CostSavingsPotential = domain.RoundCurrency(savings)
	return plan
}

// FilterByUrgency applies the package-level filter with the rebalancer's policy.
func (r *Rebalancer) FilterByUrgency(plan *domain.SupplyChainOptimization, minLevel domain.RiskLevel) *domain.SupplyChainOptimization {
	return FilterByUrgency(plan, minLevel, r.policy)
}

func urgency(destinationStock float64, policy domain.RebalancingPolicy) domain.RiskLevel {
	switch {
	case destinationStock <= 0:
		return domain.RiskCritical
	case destinationStock < policy.DeficitThreshold/2:
		return domain.RiskHigh
	default:
		return domain.RiskMedium
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
