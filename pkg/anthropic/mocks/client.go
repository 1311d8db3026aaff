// Package mocks provides testify mocks for the anthropic client.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/lead-radar/pkg/anthropic"
)

// MockClient implements anthropic.Client for testing.
type MockClient struct {
	mock.Mock
}

// CreateMessage records the call and returns the configured response.
func (m *MockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// TextResponse builds a single-text-block response.
func TextResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		ID:         "msg_test",
		Content:    []anthropic.ContentBlock{{Type: "text", Text: text}},
		StopReason: "end_turn",
	}
}
