// Package mocks provides test doubles for the textgen client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	textgen "github.com/rueda-la-rola/leadgen/pkg/textgen"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// CreateMessage provides a mock function with given fields: ctx, req
func (_m *MockClient) CreateMessage(ctx context.Context, req textgen.MessageRequest) (*textgen.MessageResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for CreateMessage")
	}

	var r0 *textgen.MessageResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, textgen.MessageRequest) (*textgen.MessageResponse, error)); ok {
		return rf(ctx, req)
	}
	if rf, ok := ret.Get(0).(func(context.Context, textgen.MessageRequest) *textgen.MessageResponse); ok {
		r0 = rf(ctx, req)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*textgen.MessageResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, textgen.MessageRequest) error); ok {
		r1 = rf(ctx, req)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
