package mocks

import (
	"context"

	"github.com/UnknownOlympus/thunders/internal/models"
	"github.com/google/uuid"
	mock "github.com/stretchr/testify/mock"
)

// Interface is a mock type for the repository.Interface type.
type Interface struct {
	mock.Mock
}

// ListSightings provides a mock function with given fields: ctx.
func (_m *Interface) ListSightings(ctx context.Context) ([]models.Sighting, error) {
	ret := _m.Called(ctx)

	var r0 []models.Sighting
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Sighting)
	}

	return r0, ret.Error(1)
}

// CreateSighting provides a mock function with given fields: ctx, sighting.
func (_m *Interface) CreateSighting(ctx context.Context, sighting models.Sighting) (models.Sighting, error) {
	ret := _m.Called(ctx, sighting)

	if rf, ok := ret.Get(0).(func(context.Context, models.Sighting) models.Sighting); ok {
		return rf(ctx, sighting), ret.Error(1)
	}

	var r0 models.Sighting
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(models.Sighting)
	}

	return r0, ret.Error(1)
}

// FetchSightingsForLabelling provides a mock function with given fields: ctx, limit.
func (_m *Interface) FetchSightingsForLabelling(ctx context.Context, limit int) ([]models.LabelTask, error) {
	ret := _m.Called(ctx, limit)

	var r0 []models.LabelTask
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.LabelTask)
	}

	return r0, ret.Error(1)
}

// UpdateSightingPlace provides a mock function with given fields: ctx, id, place.
func (_m *Interface) UpdateSightingPlace(ctx context.Context, id uuid.UUID, place string) error {
	ret := _m.Called(ctx, id, place)

	return ret.Error(0)
}

// IncrementFailureCount provides a mock function with given fields: ctx, id, errMsg.
func (_m *Interface) IncrementFailureCount(ctx context.Context, id uuid.UUID, errMsg string) error {
	ret := _m.Called(ctx, id, errMsg)

	return ret.Error(0)
}

// Ping provides a mock function with given fields: ctx.
func (_m *Interface) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)

	return ret.Error(0)
}

// NewInterface creates a new instance of Interface. It also registers a testing interface on the mock
// and a cleanup function to assert the mocks expectations.
func NewInterface(t interface {
	mock.TestingT
	Cleanup(func())
}) *Interface {
	m := &Interface{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
