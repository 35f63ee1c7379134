package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/laborsuche/laborsuche-cli/internal/config"
	"github.com/laborsuche/laborsuche-cli/pkg/apify"
)

func testApifyConfig() config.ApifyConfig {
	return config.ApifyConfig{
		MaxPlacesPerSearch: 30,
		MaxPagesPerQuery:   1,
	}
}

func TestDiscoverPhase_DeduplicatesByDomain(t *testing.T) {
	t.Parallel()

	client := &mockApifyClient{}
	client.On("SearchPlaces", mock.Anything, mock.MatchedBy(func(req apify.PlacesRequest) bool {
		return req.LocationQuery == "Berlin" && req.Language == "de" && req.MaxCrawledPlacesPerSearch == 30
	})).Return([]apify.PlaceItem{
		{Title: "Labor Nord", Website: "https://www.labornord.de/kontakt"},
		{Title: "Labor Nord Filiale", Website: "http://labornord.de"},
		{Title: "Labor Süd", Website: "https://laborsued.de"},
	}, nil)

	got, err := DiscoverPhase(context.Background(), client, testApifyConfig(), 4, "Berlin", []string{"Berlin Privatlabor"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	// First occurrence wins; insertion order is preserved.
	assert.Equal(t, "Labor Nord", got[0].Name)
	assert.Equal(t, "labornord.de", got[0].Domain)
	assert.Equal(t, "Labor Süd", got[1].Name)
	client.AssertExpectations(t)
}

func TestDiscoverPhase_SkipsUnusableWebsites(t *testing.T) {
	t.Parallel()

	client := &mockApifyClient{}
	client.On("SearchPlaces", mock.Anything, mock.Anything).Return([]apify.PlaceItem{
		{Title: "Keine Website"},
		{Title: "Leeres Schema", Website: "https://"},
		{Title: "Zu kurz", Website: "https://ab.c"},
		{Title: "Gültig", Website: "https://dexa-wien.at", CategoryName: "Radiologe", Address: "Wien", Phone: "+43", Location: apify.PlaceLocation{Lat: 48.2, Lng: 16.3}},
	}, nil)

	got, err := DiscoverPhase(context.Background(), client, testApifyConfig(), 4, "Wien", []string{"Wien DEXA"})
	require.NoError(t, err)

	require.Len(t, got, 1)
	p := got[0]
	assert.Equal(t, "Gültig", p.Name)
	assert.Equal(t, "dexa-wien.at", p.Domain)
	assert.Equal(t, "Radiologe", p.GoogleCategory)
	assert.Equal(t, 48.2, p.Lat)
	assert.Equal(t, 16.3, p.Lng)
}

func TestDiscoverPhase_MinDomainLengthIsStrict(t *testing.T) {
	t.Parallel()

	client := &mockApifyClient{}
	client.On("SearchPlaces", mock.Anything, mock.Anything).Return([]apify.PlaceItem{
		// len("ab.c") == 4, not > 4: excluded.
		{Title: "Grenzfall", Website: "ab.c"},
		// len("ab.ch") == 5: included.
		{Title: "Knapp drüber", Website: "ab.ch"},
	}, nil)

	got, err := DiscoverPhase(context.Background(), client, testApifyConfig(), 4, "Zürich", []string{"Zürich Privatlabor"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ab.ch", got[0].Domain)
}

func TestDiscoverPhase_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	client := &mockApifyClient{}
	client.On("SearchPlaces", mock.Anything, mock.Anything).
		Return(nil, &apify.APIError{StatusCode: 503, Body: "overloaded"}).Once()
	client.On("SearchPlaces", mock.Anything, mock.Anything).
		Return([]apify.PlaceItem{{Title: "Labor", Website: "https://labor-basel.ch"}}, nil).Once()

	cfg := testApifyConfig()
	ctx := context.Background()

	// The first transient failure sleeps 4s before the retry; keep the test
	// honest but bounded.
	got, err := DiscoverPhase(ctx, client, cfg, 4, "Basel", []string{"Basel Privatlabor"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	client.AssertExpectations(t)
}

func TestDiscoverPhase_NonTransientFailsImmediately(t *testing.T) {
	t.Parallel()

	client := &mockApifyClient{}
	client.On("SearchPlaces", mock.Anything, mock.Anything).
		Return(nil, &apify.APIError{StatusCode: 401, Body: "bad token"}).Once()

	_, err := DiscoverPhase(context.Background(), client, testApifyConfig(), 4, "Berlin", []string{"q"})
	require.Error(t, err)

	var apiErr *apify.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)
	client.AssertNumberOfCalls(t, "SearchPlaces", 1)
}

func TestDiscoverPhase_PropagatesExhaustedRetries(t *testing.T) {
	t.Parallel()

	client := &mockApifyClient{}
	wantErr := errors.New("dial tcp: i/o timeout")
	client.On("SearchPlaces", mock.Anything, mock.Anything).Return(nil, wantErr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancellation keeps the retry loop from sleeping in tests

	_, err := DiscoverPhase(ctx, client, testApifyConfig(), 4, "Berlin", []string{"q"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "i/o timeout")
}
