package mocks

import (
	"context"

	"homecook-market/market-svc/internal/domain"

	"github.com/stretchr/testify/mock"
)

// Verifier is a mock type for the auth.Verifier type
type Verifier struct {
	mock.Mock
}

func (_m *Verifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	ret := _m.Called(ctx, token)
	return ret.Get(0).(domain.Identity), ret.Error(1)
}

// NewVerifier creates a new instance of Verifier. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewVerifier(t interface {
	mock.TestingT
	Cleanup(func())
}) *Verifier {
	m := &Verifier{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
