// Package dataset reads the persisted per-city per-category provider files
// and serves them to the API layer through an in-process cache. The filename
// convention {city}_{BLOOD|DEXA}_VALID.json is the authoritative inventory;
// there is no separate index.
package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/singleflight"

	"github.com/laborsuche/laborsuche-cli/internal/model"
)

var filenameRE = regexp.MustCompile(`(?i)^(.+)_(BLOOD|DEXA)_VALID\.json$`)

// cacheCapacity bounds the number of parsed datasets held in memory.
const cacheCapacity = 128

// Key identifies a persisted dataset by (city, category).
type Key struct {
	City     string         `json:"city"`
	Category model.Category `json:"category"`
}

// Store loads datasets from a directory. Successful loads are cached for the
// process lifetime; externally updated files are not picked up until restart
// (or an explicit Invalidate).
type Store struct {
	dir string

	mu    sync.RWMutex
	cache map[string][]model.Provider
	group singleflight.Group
}

// New creates a Store over the given data directory.
func New(dir string) *Store {
	return &Store{
		dir:   dir,
		cache: make(map[string][]model.Provider),
	}
}

// Discover scans the data directory and returns the (city, category) keys of
// every dataset file, sorted by city then category. A missing directory is
// an empty inventory, not an error.
func (s *Store) Discover() ([]Key, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Key{}, nil
		}
		return nil, eris.Wrap(err, "dataset: read data dir")
	}

	keys := []Key{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := filenameRE.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		cat, err := model.ParseCategory(m[2])
		if err != nil {
			continue
		}
		keys = append(keys, Key{City: strings.TrimSpace(m[1]), Category: cat})
	}

	sort.Slice(keys, func(i, j int) bool {
		ci, cj := strings.ToLower(keys[i].City), strings.ToLower(keys[j].City)
		if ci != cj {
			return ci < cj
		}
		return keys[i].Category < keys[j].Category
	})
	return keys, nil
}

// Load returns the records of one dataset. City matching is
// case-insensitive. A missing dataset is an empty list, not an error;
// malformed file content also degrades to an empty list so serving continues
// with partial availability. An unknown category fails with
// model.ErrInvalidCategory.
func (s *Store) Load(city, category string) ([]model.Provider, error) {
	cat, err := model.ParseCategory(category)
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(strings.TrimSpace(city)) + "|" + string(cat)

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	// Collapse concurrent loads of the same key; content is deterministic,
	// so whichever load wins is as good as any other.
	v, err, _ := s.group.Do(key, func() (any, error) {
		records, err := s.loadFile(city, cat)
		if err != nil {
			return nil, err
		}
		s.put(key, records)
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Provider), nil
}

func (s *Store) loadFile(city string, cat model.Category) ([]model.Provider, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Provider{}, nil
		}
		return nil, eris.Wrap(err, "dataset: read data dir")
	}

	city = strings.TrimSpace(city)
	var path string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := filenameRE.FindStringSubmatch(e.Name())
		if m == nil || !strings.EqualFold(m[2], cat.FileToken()) {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(m[1]), city) {
			path = filepath.Join(s.dir, e.Name())
			break
		}
	}
	if path == "" {
		return []model.Provider{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read file")
	}

	// Expect a JSON array; anything else degrades to empty rather than
	// breaking consumers.
	var records []model.Provider
	if err := json.Unmarshal(data, &records); err != nil {
		return []model.Provider{}, nil
	}
	if records == nil {
		records = []model.Provider{}
	}
	return records, nil
}

func (s *Store) put(key string, records []model.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cache) >= cacheCapacity {
		// Evict an arbitrary entry; any victim keeps the bound.
		for k := range s.cache {
			delete(s.cache, k)
			break
		}
	}
	s.cache[key] = records
}

// Invalidate drops all cached datasets.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string][]model.Provider)
}

// LoadAll flattens all discoverable datasets, optionally filtered by city
// and/or category, stamping each record with its originating city and
// category so clients can group the combined list.
func (s *Store) LoadAll(cityFilter, categoryFilter string) ([]model.Provider, error) {
	var catFilter model.Category
	if categoryFilter != "" {
		cat, err := model.ParseCategory(categoryFilter)
		if err != nil {
			return nil, err
		}
		catFilter = cat
	}

	keys, err := s.Discover()
	if err != nil {
		return nil, err
	}

	out := []model.Provider{}
	for _, k := range keys {
		if cityFilter != "" && !strings.EqualFold(k.City, strings.TrimSpace(cityFilter)) {
			continue
		}
		if catFilter != "" && k.Category != catFilter {
			continue
		}

		records, err := s.Load(k.City, string(k.Category))
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			r.City = k.City
			r.Category = k.Category
			out = append(out, r)
		}
	}
	return out, nil
}

// Stats returns per-city per-category record counts.
func (s *Store) Stats() (map[string]map[string]int, error) {
	keys, err := s.Discover()
	if err != nil {
		return nil, err
	}

	stats := make(map[string]map[string]int)
	for _, k := range keys {
		records, err := s.Load(k.City, string(k.Category))
		if err != nil {
			return nil, err
		}
		if stats[k.City] == nil {
			stats[k.City] = make(map[string]int)
		}
		stats[k.City][string(k.Category)] = len(records)
	}
	return stats, nil
}
