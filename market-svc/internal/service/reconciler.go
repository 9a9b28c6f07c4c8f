package service

import (
	"context"
	"time"

	"homecook-market/market-svc/internal/domain"
	"homecook-market/market-svc/internal/metrics"

	log "github.com/sirupsen/logrus"
)

type ReindexReport struct {
	Recipes      int           `json:"recipes"`
	Orders       int           `json:"orders"`
	IndexEntries int           `json:"index_entries"`
	Counters     int           `json:"counters"`
	Failed       int           `json:"failed"`
	Duration     time.Duration `json:"duration"`
}

// Reconciler rebuilds derived indices and counters from primary records.
// It only adds what is missing, so it is safe to run at any time.
type Reconciler struct {
	store KVStore
}

func NewReconciler(store KVStore) *Reconciler {
	return &Reconciler{store: store}
}

func (r *Reconciler) Rebuild(ctx context.Context) (ReindexReport, error) {
	start := time.Now()
	var report ReindexReport

	recipes, err := scanRecords[domain.Recipe](ctx, r.store, recipePrefix)
	if err != nil {
		return report, err
	}
	byID := make(map[string]domain.Recipe, len(recipes))
	for _, recipe := range recipes {
		byID[recipe.ID] = recipe
		added, err := r.store.AddToIndex(ctx, cookRecipesKey(recipe.CookID), recipe.ID)
		if err != nil {
			return report, err
		}
		report.Recipes++
		report.IndexEntries += int(added)
	}
	metrics.IndexRepairs.WithLabelValues("recipe_index").Add(float64(report.IndexEntries))

	orders, err := scanRecords[domain.Order](ctx, r.store, orderPrefix)
	if err != nil {
		return report, err
	}
	for _, order := range orders {
		result, err := applyFanout(ctx, r.store, planFanout(order, byID))
		report.Orders++
		report.IndexEntries += result.IndexEntries
		report.Counters += result.Counters
		metrics.IndexRepairs.WithLabelValues("order_index").Add(float64(result.IndexEntries))
		metrics.IndexRepairs.WithLabelValues("counter").Add(float64(result.Counters))
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed++
			log.WithField("order", order.ID).Warnf("reindex failed: %v", err)
		}
	}

	report.Duration = time.Since(start)
	log.WithFields(log.Fields{
		"recipes":       report.Recipes,
		"orders":        report.Orders,
		"index_entries": report.IndexEntries,
		"counters":      report.Counters,
		"failed":        report.Failed,
	}).Info("reindex complete")
	return report, nil
}
