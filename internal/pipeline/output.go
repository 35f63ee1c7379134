package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/laborsuche/laborsuche-cli/internal/model"
)

// rejectedColumns defines the ordered columns of the rejected-candidate
// audit file.
var rejectedColumns = []string{
	"name",
	"website",
	"domain",
	"google_category",
	"address",
	"phone",
	"lat",
	"lng",
	"status",
	"evidence_quote",
	"reason",
}

// ValidPath returns the path of the accepted-provider dataset file for a
// city/category pair.
func ValidPath(dir, city string, category model.Category) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s_VALID.json", city, category.FileToken()))
}

// RejectedPath returns the path of the rejected-candidate audit file.
func RejectedPath(dir, city string, category model.Category) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s_REJECTED.csv", city, category.FileToken()))
}

// WriteValid persists the accepted providers as a JSON array. An empty run
// still writes an empty array so the dataset becomes discoverable.
func WriteValid(dir, city string, category model.Category, providers []model.Provider) error {
	if providers == nil {
		providers = []model.Provider{}
	}

	data, err := json.MarshalIndent(providers, "", "  ")
	if err != nil {
		return eris.Wrap(err, "output: marshal valid providers")
	}

	path := ValidPath(dir, city, category)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "output: write valid file")
	}
	return nil
}

// WriteRejected dumps the non-accepted candidates as CSV for manual review.
func WriteRejected(dir, city string, category model.Category, providers []model.Provider) error {
	path := RejectedPath(dir, city, category)
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "output: create rejected file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(rejectedColumns); err != nil {
		return eris.Wrap(err, "output: write header")
	}

	for _, p := range providers {
		quote := ""
		if p.EvidenceQuote != nil {
			quote = *p.EvidenceQuote
		}
		row := []string{
			p.Name,
			p.Website,
			p.Domain,
			p.GoogleCategory,
			p.Address,
			p.Phone,
			strconv.FormatFloat(p.Lat, 'f', -1, 64),
			strconv.FormatFloat(p.Lng, 'f', -1, 64),
			string(p.Status),
			quote,
			p.Reason,
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "output: write row")
		}
	}

	w.Flush()
	return eris.Wrap(w.Error(), "output: flush rejected file")
}
