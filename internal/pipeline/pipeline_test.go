package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/laborsuche/laborsuche-cli/internal/config"
	"github.com/laborsuche/laborsuche-cli/internal/model"
	"github.com/laborsuche/laborsuche-cli/pkg/apify"
)

func testPipelineConfig(dir string) *config.Config {
	return &config.Config{
		Apify:     config.ApifyConfig{MaxPlacesPerSearch: 30, MaxPagesPerQuery: 1},
		Anthropic: config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929", MaxTokens: 1024},
		Scrape:    config.ScrapeConfig{TextCap: 25000, MinDomainLen: 4},
		Data:      config.DataConfig{Dir: dir},
	}
}

func TestRun_RejectsBadInput(t *testing.T) {
	t.Parallel()

	p := New(testPipelineConfig(t.TempDir()), &mockApifyClient{}, &mockAIClient{})

	err := p.Run(context.Background(), "Berlin", "us")
	require.Error(t, err)
	assert.ErrorContains(t, err, "country code")

	err = p.Run(context.Background(), "  ", "de")
	require.Error(t, err)
	assert.ErrorContains(t, err, "city")
}

func TestRun_PartitionsAndPersists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	apifyMock := &mockApifyClient{}
	// DEXA category: no candidates at all.
	apifyMock.On("SearchPlaces", mock.Anything, mock.MatchedBy(func(req apify.PlacesRequest) bool {
		return strings.Contains(req.SearchStringsArray[0], "DEXA")
	})).Return([]apify.PlaceItem{}, nil).Once()
	// BLOOD category: two candidates.
	apifyMock.On("SearchPlaces", mock.Anything, mock.Anything).Return([]apify.PlaceItem{
		{Title: "Labor Nord", Website: "https://labornord.de"},
		{Title: "Labor Süd", Website: "https://laborsued.de"},
	}, nil).Once()
	apifyMock.On("SearchOrganic", mock.Anything, mock.Anything).Return([]apify.SearchResultItem{
		{OrganicResults: []apify.OrganicResult{{URL: "https://labornord.de/selbstzahler"}}},
	}, nil)
	apifyMock.On("FetchPages", mock.Anything, mock.Anything).Return([]apify.PageItem{
		{URL: "https://labornord.de/selbstzahler", Text: "Blutabnahme ohne Überweisung möglich"},
	}, nil)

	ai := &mockAIClient{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`{"status":"YES","evidence_quote":"ohne Überweisung möglich"}`), nil)

	p := New(testPipelineConfig(dir), apifyMock, ai)
	require.NoError(t, p.Run(context.Background(), "Berlin", "de"))

	// BLOOD: Labor Nord accepted, Labor Süd questionable (no text scraped).
	validData, err := os.ReadFile(filepath.Join(dir, "Berlin_BLOOD_VALID.json"))
	require.NoError(t, err)
	var valid []model.Provider
	require.NoError(t, json.Unmarshal(validData, &valid))
	require.Len(t, valid, 1)
	assert.Equal(t, "Labor Nord", valid[0].Name)
	assert.Equal(t, model.StatusYes, valid[0].Status)

	rejected, err := os.ReadFile(filepath.Join(dir, "Berlin_BLOOD_REJECTED.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(rejected), "Labor Süd")
	assert.Contains(t, string(rejected), ReasonNoText)

	// DEXA: empty valid file, no rejected file.
	dexaData, err := os.ReadFile(filepath.Join(dir, "Berlin_DEXA_VALID.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(dexaData))
	_, err = os.Stat(filepath.Join(dir, "Berlin_DEXA_REJECTED.csv"))
	assert.True(t, os.IsNotExist(err))

	// Classifier is called only for the candidate that has evidence.
	ai.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestRun_ClassificationErrorDowngradedNotFatal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	apifyMock := &mockApifyClient{}
	apifyMock.On("SearchPlaces", mock.Anything, mock.Anything).Return([]apify.PlaceItem{
		{Title: "Labor Nord", Website: "https://labornord.de"},
	}, nil)
	apifyMock.On("SearchOrganic", mock.Anything, mock.Anything).Return([]apify.SearchResultItem{
		{OrganicResults: []apify.OrganicResult{{URL: "https://labornord.de/preise"}}},
	}, nil)
	apifyMock.On("FetchPages", mock.Anything, mock.Anything).Return([]apify.PageItem{
		{URL: "https://labornord.de/preise", Text: "Preisliste"},
	}, nil)

	ai := &mockAIClient{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("api_error: overloaded"))

	p := New(testPipelineConfig(dir), apifyMock, ai)
	require.NoError(t, p.Run(context.Background(), "Berlin", "de"))

	// Every candidate lands in REJECTED with the error text as reason.
	for _, cat := range model.AllCategories() {
		rejected, err := os.ReadFile(RejectedPath(dir, "Berlin", cat))
		require.NoError(t, err)
		assert.Contains(t, string(rejected), "QUESTIONABLE")
		assert.Contains(t, string(rejected), "overloaded")
	}
}

func TestRun_FatalCategoryFailureDoesNotAffectSibling(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	apifyMock := &mockApifyClient{}
	// DEXA discovery fails hard; BLOOD succeeds with zero candidates.
	apifyMock.On("SearchPlaces", mock.Anything, mock.MatchedBy(func(req apify.PlacesRequest) bool {
		return strings.Contains(req.SearchStringsArray[0], "DEXA")
	})).Return(nil, &apify.APIError{StatusCode: 401, Body: "bad token"}).Once()
	apifyMock.On("SearchPlaces", mock.Anything, mock.Anything).Return([]apify.PlaceItem{}, nil).Once()

	p := New(testPipelineConfig(dir), apifyMock, &mockAIClient{})
	err := p.Run(context.Background(), "Wien", "at")
	require.Error(t, err)
	assert.ErrorContains(t, err, "dexa")

	// The blood run still persisted its (empty) dataset.
	_, statErr := os.Stat(filepath.Join(dir, "Wien_BLOOD_VALID.json"))
	require.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(dir, "Wien_DEXA_VALID.json"))
	assert.True(t, os.IsNotExist(statErr))
}
