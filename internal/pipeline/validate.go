package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/laborsuche/laborsuche-cli/internal/config"
	"github.com/laborsuche/laborsuche-cli/internal/model"
	"github.com/laborsuche/laborsuche-cli/pkg/anthropic"
)

// ReasonNoText is the fixed reason attached when a candidate had no
// harvested evidence at all.
const ReasonNoText = "no text scraped"

// Validator turns aggregated evidence text into a verdict via the
// classification backend. It makes at most one call per candidate and never
// retries; callers decide what a classification error degrades to.
type Validator struct {
	ai      anthropic.Client
	model   string
	maxTok  int64
	textCap int
}

// NewValidator creates a Validator.
func NewValidator(ai anthropic.Client, cfg config.AnthropicConfig, scrapeCfg config.ScrapeConfig) *Validator {
	return &Validator{
		ai:      ai,
		model:   cfg.Model,
		maxTok:  int64(cfg.MaxTokens),
		textCap: scrapeCfg.TextCap,
	}
}

// Validate classifies one candidate. Empty evidence returns a QUESTIONABLE
// verdict immediately without touching the backend. Backend or parse
// failures are returned as errors; the verdict is only meaningful when the
// error is nil.
func (v *Validator) Validate(ctx context.Context, spec CategorySpec, name, text string) (model.Verdict, error) {
	if strings.TrimSpace(text) == "" {
		return model.Verdict{
			Status: model.StatusQuestionable,
			Reason: ReasonNoText,
		}, nil
	}

	text = truncateText(text, v.textCap)

	resp, err := v.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     v.model,
		MaxTokens: v.maxTok,
		Messages: []anthropic.Message{
			{Role: "user", Content: spec.Prompt(name, text)},
		},
	})
	if err != nil {
		return model.Verdict{}, eris.Wrap(err, "validate: classification call")
	}

	return parseVerdict(anthropic.ExtractText(resp))
}

func parseVerdict(text string) (model.Verdict, error) {
	text = cleanJSON(text)

	var result struct {
		Status        string  `json:"status"`
		EvidenceQuote *string `json:"evidence_quote"`
	}
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return model.Verdict{}, eris.Wrap(err, "validate: parse verdict")
	}

	quote := result.EvidenceQuote
	if quote != nil && strings.TrimSpace(*quote) == "" {
		quote = nil
	}

	return model.Verdict{
		Status:        model.ParseStatus(result.Status),
		EvidenceQuote: quote,
	}, nil
}

// cleanJSON strips markdown code fences and any prose around the outermost
// JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
