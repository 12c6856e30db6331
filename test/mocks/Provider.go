package mocks

import (
	"context"

	"github.com/UnknownOlympus/thunders/internal/geocoding"
	"github.com/UnknownOlympus/thunders/internal/models"
	mock "github.com/stretchr/testify/mock"
)

// Provider is a mock type for the geocoding.Provider type.
type Provider struct {
	mock.Mock
}

// Geocode provides a mock function with given fields: ctx, address.
func (_m *Provider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	ret := _m.Called(ctx, address)

	var r0 *models.Coordinates
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Coordinates)
	}

	return r0, ret.Error(1)
}

// Suggest provides a mock function with given fields: ctx, input, opts.
func (_m *Provider) Suggest(
	ctx context.Context,
	input string,
	opts geocoding.SuggestOptions,
) ([]models.Suggestion, error) {
	ret := _m.Called(ctx, input, opts)

	var r0 []models.Suggestion
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Suggestion)
	}

	return r0, ret.Error(1)
}

// Reverse provides a mock function with given fields: ctx, coords.
func (_m *Provider) Reverse(ctx context.Context, coords models.Coordinates) (string, error) {
	ret := _m.Called(ctx, coords)

	return ret.String(0), ret.Error(1)
}

// NewProvider creates a new instance of Provider. It also registers a testing interface on the mock
// and a cleanup function to assert the mocks expectations.
func NewProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *Provider {
	m := &Provider{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
