package mocks

import (
	"context"

	"homecook-market/market-svc/internal/domain"
	"homecook-market/market-svc/internal/service"

	"github.com/stretchr/testify/mock"
)

// AccountService is a mock type for the AccountServiceInterface type
type AccountService struct {
	mock.Mock
}

func (_m *AccountService) Signup(ctx context.Context, input service.SignupInput) (*domain.Account, error) {
	ret := _m.Called(ctx, input)

	var r0 *domain.Account
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Account)
	}
	return r0, ret.Error(1)
}

func (_m *AccountService) CreateAccount(ctx context.Context, input service.NewAccount) (*domain.Account, error) {
	ret := _m.Called(ctx, input)

	var r0 *domain.Account
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Account)
	}
	return r0, ret.Error(1)
}

func (_m *AccountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	ret := _m.Called(ctx, id)

	var r0 *domain.Account
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Account)
	}
	return r0, ret.Error(1)
}

func (_m *AccountService) UpdateProfile(ctx context.Context, caller domain.Identity, update service.ProfileUpdate) (*domain.Account, error) {
	ret := _m.Called(ctx, caller, update)

	var r0 *domain.Account
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.Account)
	}
	return r0, ret.Error(1)
}

func (_m *AccountService) FeaturedCooks(ctx context.Context, limit int) ([]domain.Account, error) {
	ret := _m.Called(ctx, limit)

	var r0 []domain.Account
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]domain.Account)
	}
	return r0, ret.Error(1)
}

func (_m *AccountService) CookStats(ctx context.Context, cookID string) (*domain.CookStats, error) {
	ret := _m.Called(ctx, cookID)

	var r0 *domain.CookStats
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*domain.CookStats)
	}
	return r0, ret.Error(1)
}

// NewAccountService creates a new instance of AccountService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewAccountService(t interface {
	mock.TestingT
	Cleanup(func())
}) *AccountService {
	m := &AccountService{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
