package query

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/evdata/evdata/internal/dataset"
	"github.com/evdata/evdata/internal/logger"
	"github.com/evdata/evdata/internal/metrics"
)

// Engine owns the raw-table cache (per file name) and the derived-records
// cache (one slot, built from the engine's file on first access).
// Caches change only through ClearCache, Reload and Init.
type Engine struct {
	loader *dataset.Loader
	file   string

	mu      sync.RWMutex
	tables  map[string]*dataset.Table
	records []dataset.Record
	loaded  bool
	loadAt  time.Time

	log *logrus.Entry
}

func New(loader *dataset.Loader, file string) *Engine {
	if file == "" {
		file = dataset.DefaultFile
	}
	return &Engine{
		loader: loader,
		file:   file,
		tables: make(map[string]*dataset.Table),
		log:    logger.Component("query").WithField("file", file),
	}
}

func (e *Engine) File() string {
	return e.file
}

// Table returns the raw table for name, reading it unless cached or force is set.
func (e *Engine) Table(name string, force bool) (*dataset.Table, error) {
	if name == "" {
		name = e.file
	}
	if !force {
		e.mu.RLock()
		t, ok := e.tables[name]
		e.mu.RUnlock()
		if ok {
			return t, nil
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tableLocked(name, force)
}

func (e *Engine) tableLocked(name string, force bool) (*dataset.Table, error) {
	if t, ok := e.tables[name]; ok && !force {
		return t, nil
	}
	start := time.Now()
	t, err := e.loader.Load(name)
	metrics.ObserveDatasetLoad(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	e.tables[name] = t
	e.log.WithFields(logrus.Fields{"table": name, "rows": t.Len(), "encoding": t.Encoding}).Info("dataset table loaded")
	return t, nil
}

// Records returns every normalized record in load order, building the cache
// on first use. The returned slice is shared and must not be modified.
func (e *Engine) Records() ([]dataset.Record, error) {
	e.mu.RLock()
	if e.loaded {
		recs := e.records
		e.mu.RUnlock()
		return recs, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return e.records, nil
	}
	t, err := e.tableLocked(e.file, false)
	if err != nil {
		return nil, err
	}
	e.records = dataset.Normalize(t)
	e.loaded = true
	e.loadAt = time.Now().UTC()
	metrics.DatasetRecords.Set(float64(len(e.records)))
	e.log.WithField("records", len(e.records)).Info("record cache built")
	return e.records, nil
}

// AllRecords is Records under the name used by the query surface.
func (e *Engine) AllRecords() ([]dataset.Record, error) {
	return e.Records()
}

// ClearCache drops both caches. The next query reloads from disk.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tables = make(map[string]*dataset.Table)
	e.records = nil
	e.loaded = false
	e.loadAt = time.Time{}
	metrics.DatasetRecords.Set(0)
	e.log.Info("dataset caches cleared")
}

// Init preloads the dataset. On failure both caches are cleared so no
// partial state is served, and the error is returned.
func (e *Engine) Init() error {
	recs, err := e.Records()
	if err != nil {
		e.ClearCache()
		return fmt.Errorf("init dataset: %w", err)
	}
	if len(recs) > 0 {
		e.log.WithFields(logrus.Fields{
			"records": len(recs),
			"sample":  dataset.Label(recs[0].Make, "-") + " " + dataset.Label(recs[0].Model, "-"),
		}).Info("dataset initialized")
	}
	return nil
}

// Reload clears the caches and initializes again.
func (e *Engine) Reload() error {
	e.ClearCache()
	return e.Init()
}

// Info reports whether the record cache is built, its size and build time.
func (e *Engine) Info() (loaded bool, records int, at time.Time) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loaded, len(e.records), e.loadAt
}

func (e *Engine) where(match func(*dataset.Record) bool) ([]dataset.Record, error) {
	all, err := e.Records()
	if err != nil {
		return nil, err
	}
	out := []dataset.Record{}
	for i := range all {
		if match(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// equalFold reports whether an optional field equals want ignoring case.
func equalFold(field *string, want string) bool {
	return field != nil && strings.EqualFold(*field, want)
}

func (e *Engine) ByBrand(brand string) ([]dataset.Record, error) {
	return e.where(func(r *dataset.Record) bool { return equalFold(r.Make, brand) })
}

func (e *Engine) ByState(state string) ([]dataset.Record, error) {
	return e.where(func(r *dataset.Record) bool { return strings.EqualFold(r.State, state) })
}

func (e *Engine) ByEVType(evType string) ([]dataset.Record, error) {
	return e.where(func(r *dataset.Record) bool { return equalFold(r.EVType, evType) })
}

// BrandModels lists the distinct model names of a brand, sorted. Distinctness
// is case-sensitive: "Model 3" and "model 3" are both listed.
func (e *Engine) BrandModels(brand string) ([]string, error) {
	recs, err := e.ByBrand(brand)
	if err != nil {
		return nil, err
	}
	return distinctSorted(recs, func(r *dataset.Record) *string { return r.Model }), nil
}

// StateEVCount sums vehicle counts over the state's records.
func (e *Engine) StateEVCount(state string) (int, error) {
	recs, err := e.ByState(state)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, r := range recs {
		total += r.VehicleCount
	}
	return total, nil
}

// FindModel returns the records whose make and model both match, ignoring case.
func (e *Engine) FindModel(brand, model string) ([]dataset.Record, error) {
	return e.where(func(r *dataset.Record) bool {
		return equalFold(r.Make, brand) && equalFold(r.Model, model)
	})
}

func distinctSorted(recs []dataset.Record, field func(*dataset.Record) *string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for i := range recs {
		v := field(&recs[i])
		if v == nil {
			continue
		}
		if _, ok := seen[*v]; ok {
			continue
		}
		seen[*v] = struct{}{}
		out = append(out, *v)
	}
	sort.Strings(out)
	return out
}
