package mocks

import (
	"context"

	"homecook-market/market-svc/internal/domain"
	"homecook-market/market-svc/internal/service"

	"github.com/stretchr/testify/mock"
)

// OrderService is a mock type for the OrderServiceInterface type
type OrderService struct {
	mock.Mock
}

func (_m *OrderService) CreateOrder(ctx context.Context, caller domain.Identity, input service.OrderInput) (*domain.Order, error) {
	ret := _m.Called(ctx, caller, input)

	var r0 *domain.Order
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Order)
	}
	return r0, ret.Error(1)
}

func (_m *OrderService) ListOrders(ctx context.Context, caller domain.Identity) ([]domain.Order, error) {
	ret := _m.Called(ctx, caller)

	var r0 []domain.Order
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.Order)
	}
	return r0, ret.Error(1)
}

func (_m *OrderService) GetOrder(ctx context.Context, caller domain.Identity, id string) (*domain.Order, error) {
	ret := _m.Called(ctx, caller, id)

	var r0 *domain.Order
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Order)
	}
	return r0, ret.Error(1)
}

func (_m *OrderService) UpdateOrderStatus(ctx context.Context, caller domain.Identity, id string, status domain.OrderStatus) (*domain.Order, error) {
	ret := _m.Called(ctx, caller, id, status)

	var r0 *domain.Order
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Order)
	}
	return r0, ret.Error(1)
}

func (_m *OrderService) OrderQRCode(ctx context.Context, caller domain.Identity, id string) ([]byte, error) {
	ret := _m.Called(ctx, caller, id)

	var r0 []byte
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}
	return r0, ret.Error(1)
}

// NewOrderService creates a new instance of OrderService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewOrderService(t interface {
	mock.TestingT
	Cleanup(func())
}) *OrderService {
	m := &OrderService{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (_m *OrderService) OrderTimeline(ctx context.Context, caller domain.Identity, id string) ([]domain.TimelineEntry, error) {
	ret := _m.Called(ctx, caller, id)

	var r0 []domain.TimelineEntry
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.TimelineEntry)
	}
	return r0, ret.Error(1)
}
