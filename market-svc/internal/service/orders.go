package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"homecook-market/market-svc/internal/domain"
	"homecook-market/market-svc/internal/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const EstimatedDeliveryWindow = 45 * time.Minute

var DeliveryFee = decimal.NewFromInt(1)

type OrderItemInput struct {
	RecipeID string
	Quantity int
}

type OrderInput struct {
	Items           []OrderItemInput
	DeliveryAddress string
}

type OrderService struct {
	store     KVStore
	publisher EventPublisher
	qr        QRGenerator
	retry     RetryPolicy
	now       func() time.Time
}

// NewOrderService builds the ledger. publisher may be nil when no broker is
// configured.
func NewOrderService(store KVStore, publisher EventPublisher, qr QRGenerator, retry RetryPolicy) *OrderService {
	return &OrderService{
		store:     store,
		publisher: publisher,
		qr:        qr,
		retry:     retry,
		now:       time.Now,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, caller domain.Identity, input OrderInput) (*domain.Order, error) {
	if len(input.Items) == 0 {
		return nil, validationError("order must contain at least one item")
	}
	for _, item := range input.Items {
		if strings.TrimSpace(item.RecipeID) == "" || item.Quantity <= 0 {
			return nil, validationError("every item needs a recipeId and a positive quantity")
		}
	}
	address := strings.TrimSpace(input.DeliveryAddress)
	if address == "" {
		return nil, validationError("deliveryAddress is required")
	}

	items, recipes, err := s.resolveItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, validationError("none of the ordered recipes exist")
	}

	total := DeliveryFee
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}

	now := s.now().UTC()
	order := domain.Order{
		ID:                newOrderID(now),
		CustomerID:        caller.ID,
		CustomerName:      s.customerName(ctx, caller),
		Items:             items,
		Total:             total,
		DeliveryAddress:   address,
		Status:            domain.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
		EstimatedDelivery: now.Add(EstimatedDeliveryWindow),
	}

	if err := saveRecord(ctx, s.store, orderKey(order.ID), order); err != nil {
		return nil, err
	}
	metrics.OrdersCreated.Inc()

	logger := log.WithFields(log.Fields{"order": order.ID, "customer": caller.ID})
	plan := planFanout(order, recipes)
	err = withRetry(ctx, s.retry, func() error {
		_, err := applyFanout(ctx, s.store, plan)
		return err
	})
	if err != nil {
		metrics.FanoutFailures.Inc()
		logger.Errorf("order saved but fan-out failed: %v", err)
		return &order, &PartialFanoutError{OrderID: order.ID, Err: err}
	}

	logger.WithField("total", order.Total.StringFixed(2)).Info("order created")
	s.publish(ctx, domain.OrderEvent{
		Type:       domain.EventOrderCreated,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		CookIDs:    plan.cookIDs(),
		Status:     order.Status,
		Timestamp:  now,
	})
	return &order, nil
}

// ListOrders returns the caller's orders, newest first. Cooks see orders
// containing any of their recipes; everyone else sees orders they placed.
func (s *OrderService) ListOrders(ctx context.Context, caller domain.Identity) ([]domain.Order, error) {
	indexKey := customerOrdersKey(caller.ID)
	if caller.Role == domain.RoleCook {
		indexKey = cookOrdersKey(caller.ID)
	}

	ids, err := s.store.IndexMembers(ctx, indexKey)
	if err != nil {
		return nil, fmt.Errorf("order index: %w", err)
	}

	orders := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		var order domain.Order
		err := loadRecord(ctx, s.store, orderKey(id), &order)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, caller domain.Identity, id string) (*domain.Order, error) {
	order, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CustomerID == caller.ID {
		return order, nil
	}
	if caller.Role == domain.RoleCook {
		cooks, err := s.orderCooks(ctx, order)
		if err != nil {
			return nil, err
		}
		if cooks[caller.ID] {
			return order, nil
		}
	}
	return nil, fmt.Errorf("%w: order %s", ErrForbidden, id)
}

// UpdateOrderStatus moves an order one step along its lifecycle. Any cook
// with a recipe in the order may move the whole order.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, caller domain.Identity, id string, status domain.OrderStatus) (*domain.Order, error) {
	if caller.Role != domain.RoleCook {
		return nil, fmt.Errorf("%w: only cooks can update order status", ErrForbidden)
	}
	if !status.Valid() {
		return nil, validationError("unknown status %q", status)
	}

	current, err := s.loadOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	cooks, err := s.orderCooks(ctx, current)
	if err != nil {
		return nil, err
	}
	if !cooks[caller.ID] {
		return nil, fmt.Errorf("%w: order %s has none of your recipes", ErrForbidden, id)
	}

	var previous domain.OrderStatus
	now := s.now().UTC()
	updated, err := mutateRecord(ctx, s.store, orderKey(id), func(o *domain.Order) error {
		if !o.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, status)
		}
		previous = o.Status
		o.Status = status
		o.UpdatedAt = now
		return nil
	})
	if err != nil {
		metrics.StatusTransitions.WithLabelValues(string(status), "rejected").Inc()
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
		}
		return nil, err
	}
	metrics.StatusTransitions.WithLabelValues(string(status), "applied").Inc()

	log.WithFields(log.Fields{
		"order": id,
		"cook":  caller.ID,
		"from":  previous,
		"to":    status,
	}).Info("order status updated")

	cookIDs := make([]string, 0, len(cooks))
	for cookID := range cooks {
		cookIDs = append(cookIDs, cookID)
	}
	sort.Strings(cookIDs)
	s.publish(ctx, domain.OrderEvent{
		Type:       domain.EventOrderStatusChanged,
		OrderID:    id,
		CustomerID: updated.CustomerID,
		CookIDs:    cookIDs,
		Status:     status,
		Previous:   previous,
		ChangedBy:  caller.ID,
		Timestamp:  now,
	})
	return updated, nil
}

func (s *OrderService) OrderQRCode(ctx context.Context, caller domain.Identity, id string) ([]byte, error) {
	order, err := s.GetOrder(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	png, err := s.qr.Generate(order.ID)
	if err != nil {
		return nil, fmt.Errorf("generate qr code: %w", err)
	}
	return png, nil
}

// resolveItems snapshots each item's recipe. Unknown recipes are dropped
// from the order rather than failing it.
func (s *OrderService) resolveItems(ctx context.Context, inputs []OrderItemInput) ([]domain.LineItem, map[string]domain.Recipe, error) {
	items := make([]domain.LineItem, 0, len(inputs))
	recipes := make(map[string]domain.Recipe, len(inputs))

	for _, input := range inputs {
		recipe, ok := recipes[input.RecipeID]
		if !ok {
			err := loadRecord(ctx, s.store, recipeKey(input.RecipeID), &recipe)
			if errors.Is(err, ErrNotFound) {
				log.WithField("recipe", input.RecipeID).Warn("skipping unknown recipe in order")
				continue
			}
			if err != nil {
				return nil, nil, err
			}
			recipes[recipe.ID] = recipe
		}

		items = append(items, domain.LineItem{
			RecipeID:  recipe.ID,
			Quantity:  input.Quantity,
			Title:     recipe.Title,
			UnitPrice: recipe.Price,
		})
	}
	return items, recipes, nil
}

// orderCooks reconstructs the set of cooks owning the order's recipes.
func (s *OrderService) orderCooks(ctx context.Context, order *domain.Order) (map[string]bool, error) {
	cooks := make(map[string]bool)
	for _, item := range order.Items {
		var recipe domain.Recipe
		err := loadRecord(ctx, s.store, recipeKey(item.RecipeID), &recipe)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cooks[recipe.CookID] = true
	}
	return cooks, nil
}

func (s *OrderService) loadOrder(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	if err := loadRecord(ctx, s.store, orderKey(id), &order); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) customerName(ctx context.Context, caller domain.Identity) string {
	var account domain.Account
	if err := loadRecord(ctx, s.store, userKey(caller.ID), &account); err == nil && account.Name != "" {
		return account.Name
	}
	if caller.Name != "" {
		return caller.Name
	}
	return "Customer"
}

func (s *OrderService) publish(ctx context.Context, event domain.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		log.WithFields(log.Fields{"order": event.OrderID, "event": event.Type}).
			Warnf("failed to publish order event: %v", err)
	}
}

func newOrderID(now time.Time) string {
	return fmt.Sprintf("order_%d_%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}
