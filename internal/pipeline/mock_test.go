package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/laborsuche/laborsuche-cli/pkg/anthropic"
	"github.com/laborsuche/laborsuche-cli/pkg/apify"
)

// --- Apify Mock ---

type mockApifyClient struct {
	mock.Mock
}

func (m *mockApifyClient) SearchPlaces(ctx context.Context, req apify.PlacesRequest) ([]apify.PlaceItem, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apify.PlaceItem), args.Error(1)
}

func (m *mockApifyClient) SearchOrganic(ctx context.Context, req apify.SearchRequest) ([]apify.SearchResultItem, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apify.SearchResultItem), args.Error(1)
}

func (m *mockApifyClient) FetchPages(ctx context.Context, req apify.FetchRequest) ([]apify.PageItem, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]apify.PageItem), args.Error(1)
}

// --- Anthropic Mock ---

type mockAIClient struct {
	mock.Mock
}

func (m *mockAIClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// textResponse builds a single-text-block response.
func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}
