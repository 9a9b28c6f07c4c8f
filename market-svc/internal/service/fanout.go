package service

import (
	"context"
	"fmt"
	"sort"

	"homecook-market/market-svc/internal/domain"
)

// fanoutPlan lists every derived write an order implies: index entries for
// the customer and each involved cook, plus counter increments.
type fanoutPlan struct {
	OrderID    string
	CustomerID string
	RecipeIDs  []string
	// CookSales maps each involved cook to their share of the order, in cents.
	CookSales map[string]int64
}

type fanoutResult struct {
	IndexEntries int
	Counters     int
}

func (p fanoutPlan) cookIDs() []string {
	ids := make([]string, 0, len(p.CookSales))
	for id := range p.CookSales {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// planFanout derives the plan from an order's line items. Items whose recipe
// is missing from recipes contribute no cook.
func planFanout(order domain.Order, recipes map[string]domain.Recipe) fanoutPlan {
	plan := fanoutPlan{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		CookSales:  make(map[string]int64),
	}

	seen := make(map[string]bool)
	for _, item := range order.Items {
		if !seen[item.RecipeID] {
			seen[item.RecipeID] = true
			plan.RecipeIDs = append(plan.RecipeIDs, item.RecipeID)
		}
		recipe, ok := recipes[item.RecipeID]
		if !ok {
			continue
		}
		plan.CookSales[recipe.CookID] += item.Subtotal().Shift(2).Round(0).IntPart()
	}
	return plan
}

// applyFanout writes the plan. Every step is idempotent: set adds ignore
// existing members and counter increments are guarded by per-order markers,
// so a partially applied plan can be re-run safely.
func applyFanout(ctx context.Context, store KVStore, plan fanoutPlan) (fanoutResult, error) {
	var result fanoutResult

	added, err := store.AddToIndex(ctx, customerOrdersKey(plan.CustomerID), plan.OrderID)
	if err != nil {
		return result, fmt.Errorf("customer index: %w", err)
	}
	result.IndexEntries += int(added)

	cooks := plan.cookIDs()
	for _, cookID := range cooks {
		added, err := store.AddToIndex(ctx, cookOrdersKey(cookID), plan.OrderID)
		if err != nil {
			return result, fmt.Errorf("cook index %s: %w", cookID, err)
		}
		result.IndexEntries += int(added)
	}

	for _, recipeID := range plan.RecipeIDs {
		applied, err := incrementOnce(ctx, store, plan.OrderID, "recipe:"+recipeID, recipeOrdersKey, recipeID, 1)
		if err != nil {
			return result, err
		}
		if applied {
			result.Counters++
		}
	}

	for _, cookID := range cooks {
		applied, err := incrementOnce(ctx, store, plan.OrderID, "cook-orders:"+cookID, cookStatsKey(cookID), statTotalOrders, 1)
		if err != nil {
			return result, err
		}
		if applied {
			result.Counters++
		}

		applied, err = incrementOnce(ctx, store, plan.OrderID, "cook-sales:"+cookID, cookStatsKey(cookID), statTotalSales, plan.CookSales[cookID])
		if err != nil {
			return result, err
		}
		if applied {
			result.Counters++
		}
	}

	return result, nil
}

// incrementOnce bumps a counter unless the order's marker set says it was
// already done. Marker and increment land together, so a retry after an
// ambiguous failure cannot count twice.
func incrementOnce(ctx context.Context, store KVStore, orderID, marker, key, field string, delta int64) (bool, error) {
	applied, err := store.IncrCounterOnce(ctx, fanoutKey(orderID), marker, key, field, delta)
	if err != nil {
		return false, fmt.Errorf("increment %s/%s: %w", key, field, err)
	}
	return applied, nil
}
