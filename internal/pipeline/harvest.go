package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/laborsuche/laborsuche-cli/internal/config"
	"github.com/laborsuche/laborsuche-cli/internal/model"
	"github.com/laborsuche/laborsuche-cli/pkg/apify"
)

// fetchPageFunction is the extraction payload handed to the page-fetch
// backend. It strips navigation chrome and cookie overlays, grabs the
// main-content regions, and falls back to the full body when those come up
// nearly empty. The backend executes it; this core only ships it as
// configuration.
const fetchPageFunction = `
    async function pageFunction(context) {
        const { $ } = context;

        $('script, style, nav, footer, header, iframe, noscript').remove();
        $('.cookie-banner, #cookie-consent, .modal, .popup, .map-placeholder').remove();

        let content = $('main, #content, .content, article').text();

        if (content.length < 200) {
            content = $('body').text();
        }

        return {
            url: context.request.url,
            text: content.replace(/\s\s+/g, ' ').trim()
        };
    }
`

// truncateText caps text at max bytes without splitting a multi-byte rune;
// the evidence is German-language and umlauts land on the boundary often
// enough to matter.
func truncateText(text string, max int) string {
	if len(text) <= max {
		return text
	}
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	return text[:max]
}

// HarvestPhase issues one site-restricted search query per candidate, filters
// the organic hits back onto candidate domains, fetches the surviving deep
// links, and aggregates the page text per candidate website. Candidates with
// no matching deep links simply have no entry in the returned map. Empty
// inputs short-circuit without calling any backend.
func HarvestPhase(ctx context.Context, client apify.Client, cfg config.ApifyConfig, scrapeCfg config.ScrapeConfig, candidates []model.Provider, keywords []string, countryCode string) (map[string]string, error) {
	if len(candidates) == 0 {
		return map[string]string{}, nil
	}

	log := zap.L().With(zap.String("country", countryCode))
	log.Info("harvest: building site queries", zap.Int("candidates", len(candidates)))

	keywordClause := strings.Join(keywords, " OR ")

	var queries []string
	for _, cand := range candidates {
		if cand.Domain == "" {
			continue
		}
		queries = append(queries, fmt.Sprintf("site:%s (%s)", cand.Domain, keywordClause))
	}
	if len(queries) == 0 {
		return map[string]string{}, nil
	}

	searchItems, err := client.SearchOrganic(ctx, apify.SearchRequest{
		Queries:          strings.Join(queries, "\n"),
		CountryCode:      strings.ToLower(countryCode),
		LanguageCode:     "de",
		MaxPagesPerQuery: cfg.MaxPagesPerQuery,
	})
	if err != nil {
		return nil, err
	}

	// Keep only URLs that actually land on a candidate domain. The search
	// backend happily returns off-target hits for site: queries.
	var startURLs []apify.StartURL
	for _, item := range searchItems {
		for _, res := range item.OrganicResults {
			if res.URL == "" {
				continue
			}
			domain := NormalizeDomain(res.URL)
			for _, cand := range candidates {
				if domainsMatch(cand.Domain, domain) {
					startURLs = append(startURLs, apify.StartURL{URL: res.URL})
					break
				}
			}
		}
	}

	log.Info("harvest: deep links matched", zap.Int("urls", len(startURLs)))
	if len(startURLs) == 0 {
		return map[string]string{}, nil
	}

	pages, err := client.FetchPages(ctx, apify.FetchRequest{
		StartURLs:          startURLs,
		MaxRequestRetries:  1,
		ProxyConfiguration: apify.ProxyConfig{UseApifyProxy: true},
		IgnoreSSLErrors:    true,
		PageFunction:       fetchPageFunction,
	})
	if err != nil {
		return nil, err
	}

	// Re-resolve each fetched page onto exactly one candidate and append its
	// text block, capped per sub-page, tagged with the source URL.
	evidence := make(map[string]string)
	for _, page := range pages {
		if page.URL == "" {
			continue
		}
		domain := NormalizeDomain(page.URL)
		for _, cand := range candidates {
			if !domainsMatch(cand.Domain, domain) {
				continue
			}
			text := truncateText(page.Text, scrapeCfg.TextCap)
			evidence[cand.Website] += fmt.Sprintf("\n\n--- SOURCE: %s ---\n%s", page.URL, text)
			break
		}
	}

	log.Info("harvest: evidence aggregated", zap.Int("providers_with_text", len(evidence)))
	return evidence, nil
}
