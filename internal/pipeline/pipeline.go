package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/laborsuche/laborsuche-cli/internal/config"
	"github.com/laborsuche/laborsuche-cli/internal/model"
	"github.com/laborsuche/laborsuche-cli/pkg/anthropic"
	"github.com/laborsuche/laborsuche-cli/pkg/apify"
)

// countryCodes is the closed set of supported markets.
var countryCodes = map[string]struct{}{
	"de": {},
	"at": {},
	"ch": {},
}

// Pipeline orchestrates the discover → harvest → validate run for one city,
// once per category, and persists the partitioned results.
type Pipeline struct {
	cfg       *config.Config
	apify     apify.Client
	validator *Validator
	dataDir   string
}

// New creates a Pipeline with all dependencies.
func New(cfg *config.Config, apifyClient apify.Client, aiClient anthropic.Client) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		apify:     apifyClient,
		validator: NewValidator(aiClient, cfg.Anthropic, cfg.Scrape),
		dataDir:   cfg.Data.Dir,
	}
}

// Run executes both category pipelines for a city. Each category runs
// end-to-end independently; a fatal stage error aborts only its own
// category. The returned error aggregates any per-category failures.
func (p *Pipeline) Run(ctx context.Context, city, country string) error {
	country = strings.ToLower(strings.TrimSpace(country))
	if _, ok := countryCodes[country]; !ok {
		return eris.Errorf("pipeline: unsupported country code %q (expected de, at or ch)", country)
	}
	city = strings.TrimSpace(city)
	if city == "" {
		return eris.New("pipeline: city must not be empty")
	}

	runID := uuid.NewString()
	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("city", city),
		zap.String("country", country),
	)
	log.Info("pipeline: starting run")

	var errs []error
	for _, spec := range CategorySpecs() {
		if err := p.runCategory(ctx, log, city, country, spec); err != nil {
			log.Error("pipeline: category run failed",
				zap.String("category", string(spec.Category)),
				zap.Error(err),
			)
			errs = append(errs, eris.Wrapf(err, "category %s", spec.Category))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	log.Info("pipeline: run complete")
	return nil
}

func (p *Pipeline) runCategory(ctx context.Context, log *zap.Logger, city, country string, spec CategorySpec) error {
	log = log.With(zap.String("category", string(spec.Category)))
	log.Info("pipeline: category start")

	candidates, err := DiscoverPhase(ctx, p.apify, p.cfg.Apify, p.cfg.Scrape.MinDomainLen, city, spec.Queries(city))
	if err != nil {
		return eris.Wrap(err, "discover")
	}

	evidence, err := HarvestPhase(ctx, p.apify, p.cfg.Apify, p.cfg.Scrape, candidates, spec.Keywords, country)
	if err != nil {
		return eris.Wrap(err, "harvest")
	}

	var valid, rejected []model.Provider
	for i := range candidates {
		cand := &candidates[i]
		text := evidence[cand.Website]

		verdict, vErr := p.validator.Validate(ctx, spec, cand.Name, text)
		if vErr != nil {
			// Fail-soft boundary: one broken classification must never
			// abort the batch. The error text becomes the audit reason.
			log.Warn("pipeline: classification degraded to questionable",
				zap.String("provider", cand.Name),
				zap.Error(vErr),
			)
			verdict = model.Verdict{
				Status: model.StatusQuestionable,
				Reason: vErr.Error(),
			}
		}

		verdict.Apply(cand)
		if verdict.Accepted() {
			valid = append(valid, *cand)
		} else {
			rejected = append(rejected, *cand)
		}
	}

	if err := WriteValid(p.dataDir, city, spec.Category, valid); err != nil {
		return err
	}
	if len(rejected) > 0 {
		if err := WriteRejected(p.dataDir, city, spec.Category, rejected); err != nil {
			return err
		}
	}

	log.Info("pipeline: category complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("valid", len(valid)),
		zap.Int("rejected", len(rejected)),
	)
	return nil
}
