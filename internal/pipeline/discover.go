package pipeline

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/laborsuche/laborsuche-cli/internal/config"
	"github.com/laborsuche/laborsuche-cli/internal/model"
	"github.com/laborsuche/laborsuche-cli/internal/resilience"
	"github.com/laborsuche/laborsuche-cli/pkg/apify"
)

// DiscoverPhase runs the broad places search for a city and reduces the raw
// place records to a deduplicated candidate list keyed by normalized domain.
// First occurrence wins and insertion order is preserved. The batched search
// itself is retried on transient backend errors; exhausted retries are fatal
// for the city/category run.
func DiscoverPhase(ctx context.Context, client apify.Client, cfg config.ApifyConfig, minDomainLen int, city string, queries []string) ([]model.Provider, error) {
	log := zap.L().With(zap.String("city", city))
	log.Info("discovery: searching places", zap.Strings("queries", queries))

	req := apify.PlacesRequest{
		SearchStringsArray:        queries,
		LocationQuery:             city,
		MaxCrawledPlacesPerSearch: cfg.MaxPlacesPerSearch,
		Language:                  "de",
	}

	items, err := resilience.DoVal(ctx, discoveryRetry(), func(ctx context.Context) ([]apify.PlaceItem, error) {
		return client.SearchPlaces(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	var candidates []model.Provider
	seen := make(map[string]struct{})

	for _, item := range items {
		website := strings.TrimSpace(item.Website)
		if website == "" || website == "http://" || website == "https://" {
			// No usable website means nothing to harvest later.
			continue
		}

		domain := NormalizeDomain(website)
		if domain == "" || len(domain) <= minDomainLen {
			continue
		}
		if _, dup := seen[domain]; dup {
			continue
		}
		seen[domain] = struct{}{}

		candidates = append(candidates, model.Provider{
			Name:           item.Title,
			Website:        website,
			Domain:         domain,
			GoogleCategory: item.CategoryName,
			Address:        item.Address,
			Phone:          item.Phone,
			Lat:            item.Location.Lat,
			Lng:            item.Location.Lng,
		})
	}

	log.Info("discovery: unique candidates",
		zap.Int("raw", len(items)),
		zap.Int("unique", len(candidates)),
	)
	return candidates, nil
}

func discoveryRetry() resilience.RetryConfig {
	cfg := resilience.DiscoveryRetryConfig()
	cfg.ShouldRetry = func(err error) bool {
		var apiErr *apify.APIError
		if errors.As(err, &apiErr) {
			return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
		}
		return resilience.IsTransient(err)
	}
	cfg.OnRetry = resilience.RetryLogger("apify", "search places")
	return cfg
}
