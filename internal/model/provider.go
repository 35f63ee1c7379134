package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Status is the classification verdict for a provider.
type Status string

const (
	StatusYes          Status = "YES"
	StatusNo           Status = "NO"
	StatusQuestionable Status = "QUESTIONABLE"
)

// ParseStatus maps a free-form string onto a known status. Unknown values
// come back as QUESTIONABLE so a misbehaving classifier can never introduce
// a fourth state into persisted data.
func ParseStatus(s string) Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(StatusYes):
		return StatusYes
	case string(StatusNo):
		return StatusNo
	default:
		return StatusQuestionable
	}
}

// Category identifies one of the two provider verticals.
type Category string

const (
	CategoryBlood Category = "blood"
	CategoryDexa  Category = "dexa"
)

// ErrInvalidCategory is returned when a category string is neither
// "blood" nor "dexa".
var ErrInvalidCategory = eris.New("invalid category")

// ParseCategory parses a category string case-insensitively.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(CategoryBlood):
		return CategoryBlood, nil
	case string(CategoryDexa):
		return CategoryDexa, nil
	default:
		return "", eris.Wrapf(ErrInvalidCategory, "%q", s)
	}
}

// AllCategories returns the closed set of categories.
func AllCategories() []Category {
	return []Category{CategoryBlood, CategoryDexa}
}

// FileToken returns the uppercase token used in persisted filenames
// ({city}_{BLOOD|DEXA}_VALID.json).
func (c Category) FileToken() string {
	return strings.ToUpper(string(c))
}

// Provider is one discovered provider location. Discovery fills the place
// fields; the orchestrator attaches the classification fields before the
// record is partitioned and persisted.
type Provider struct {
	Name           string  `json:"name"`
	Website        string  `json:"website"`
	Domain         string  `json:"domain"`
	GoogleCategory string  `json:"google_category"`
	Address        string  `json:"address"`
	Phone          string  `json:"phone"`
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`

	Status        Status  `json:"status,omitempty"`
	EvidenceQuote *string `json:"evidence_quote,omitempty"`
	Reason        string  `json:"reason,omitempty"`

	// Stamped by the dataset store when flattening across datasets.
	City     string   `json:"city,omitempty"`
	Category Category `json:"category,omitempty"`
}

// Verdict is the classification outcome for one provider.
type Verdict struct {
	Status        Status  `json:"status"`
	EvidenceQuote *string `json:"evidence_quote"`
	Reason        string  `json:"reason,omitempty"`
}

// Apply merges the verdict fields into the provider record.
func (v Verdict) Apply(p *Provider) {
	p.Status = v.Status
	p.EvidenceQuote = v.EvidenceQuote
	p.Reason = v.Reason
}

// Accepted reports whether the verdict puts the provider in the VALID set.
func (v Verdict) Accepted() bool {
	return v.Status == StatusYes
}
