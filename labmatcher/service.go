package labmatcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Suggestion is one ranked recipe with the text shown to the operator.
type Suggestion struct {
	Match
	Rank        int
	Description string
	Reliability Reliability
	Swatch      string
	DeltaE2000  float64
}

// Result is the outcome of one operator match action.
type Result struct {
	Query       Lab
	Include     string
	Exclude     string
	Suggestions []Suggestion
	// CMYK is nil when no profile is configured or conversion failed.
	CMYK    *CMYK
	CMYKErr error
}

// Matches returns the ranked matches without presentation data.
func (r Result) Matches() []Match {
	out := make([]Match, len(r.Suggestions))
	for i, s := range r.Suggestions {
		out[i] = s.Match
	}
	return out
}

// CMYKText renders the CMYK line shown beside each match.
func (r Result) CMYKText() string {
	switch {
	case r.CMYK != nil:
		return "CMYK: " + r.CMYK.String()
	case r.CMYKErr != nil:
		return "CMYK: Conversion failed"
	default:
		return "CMYK: N/A"
	}
}

// Service ties the recipe store to matching, description, conversion and
// export for one operator.
type Service struct {
	store *Store

	cfgMu     sync.RWMutex
	cfg       Config
	converter Converter

	logger *log.Logger
}

// NewService constructs a service over an already loaded store.
func NewService(store *Store, cfg Config, logger *log.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("recipe store is required")
	}
	cfg.ApplyDefaults()
	s := &Service{store: store, cfg: cfg, logger: logger}
	if err := s.rebuildConverter(); err != nil {
		return nil, err
	}
	s.logf("Loaded %d recipes (%d rows without L/A/B skipped)", store.Len(), store.Dropped())
	return s, nil
}

// Open installs cfg's header candidates, loads the dataset named by cfg and
// constructs a service over it.
func Open(cfg Config, logger *log.Logger) (*Service, error) {
	cfg.ApplyDefaults()
	SetColumnCandidates(cfg.ColumnCandidates)
	store, err := LoadStore(cfg.DataPath, cfg.StoreOptions())
	if err != nil {
		return nil, err
	}
	return NewService(store, cfg, logger)
}

// Store returns the recipe snapshot.
func (s *Service) Store() *Store {
	return s.store
}

// Config returns a copy of the current configuration.
func (s *Service) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Clone()
}

// UpdateConfig replaces the configuration. The converter is rebuilt only when
// the conversion settings change. The store is not reloaded.
func (s *Service) UpdateConfig(cfg Config) error {
	cfg.ApplyDefaults()
	if _, err := NewXiccluConverter(cfg.Conversion); err != nil {
		return fmt.Errorf("init converter: %w", err)
	}
	s.cfgMu.Lock()
	changed := s.cfg.Conversion != cfg.Conversion
	s.cfg = cfg
	s.cfgMu.Unlock()
	if !changed {
		return nil
	}
	return s.rebuildConverter()
}

// SetProfilePath selects the ICC profile used for CMYK conversion. An empty
// path disables conversion.
func (s *Service) SetProfilePath(path string) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	s.cfgMu.Lock()
	s.cfg.Conversion.ProfilePath = expanded
	if x, ok := s.converter.(*XiccluConverter); ok {
		next := *x
		next.ProfilePath = expanded
		s.converter = &next
	}
	s.cfgMu.Unlock()
	if expanded != "" {
		s.logf("Loaded ICC profile: %s", expanded)
	}
	return nil
}

// SetConverter installs a custom converter in place of xicclu. It is used
// only while a profile path is configured, and is replaced by xicclu when
// UpdateConfig changes the conversion settings.
func (s *Service) SetConverter(c Converter) {
	s.cfgMu.Lock()
	s.converter = c
	s.cfgMu.Unlock()
}

func (s *Service) rebuildConverter() error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	conv, err := NewXiccluConverter(s.cfg.Conversion)
	if err != nil {
		return fmt.Errorf("init converter: %w", err)
	}
	s.converter = conv
	return nil
}

// FindClosest ranks the store against q using the configured top-N and
// formula columns.
func (s *Service) FindClosest(q Lab, include, exclude string) []Match {
	cfg := s.Config()
	return s.store.FindClosest(q, MatchOptions{
		Include:       include,
		Exclude:       exclude,
		TopN:          cfg.TopN,
		FormulaFields: cfg.Columns.Formula,
	})
}

// Match runs one operator query: ranking, per-match description and, when a
// profile is configured, CMYK conversion of the query color. Conversion
// failures are recorded on the result and never affect the ranking.
func (s *Service) Match(ctx context.Context, q Lab, include, exclude string) Result {
	cfg := s.Config()
	matches := s.FindClosest(q, include, exclude)
	res := Result{
		Query:       q,
		Include:     include,
		Exclude:     exclude,
		Suggestions: make([]Suggestion, len(matches)),
	}
	for i, m := range matches {
		res.Suggestions[i] = Suggestion{
			Match:       m,
			Rank:        i + 1,
			Description: Describe(q, m.Record.Lab, cfg.Language),
			Reliability: Assess(m.DeltaE, cfg.WarnDeltaE),
			Swatch:      Hex(m.Record.Lab),
			DeltaE2000:  DeltaE2000(q, m.Record.Lab),
		}
	}
	s.logf("Match %s: %d result(s)", q, len(matches))
	if len(matches) == 0 || cfg.Conversion.ProfilePath == "" {
		return res
	}

	s.cfgMu.RLock()
	conv := s.converter
	s.cfgMu.RUnlock()
	if conv == nil {
		return res
	}
	cmyk, err := conv.Convert(ctx, q)
	if err != nil {
		res.CMYKErr = err
		s.logf("CMYK conversion failed: %v", err)
		return res
	}
	res.CMYK = &cmyk
	s.logf("CMYK: %s", cmyk)
	return res
}

// Export writes the result's matches with the store's retained columns.
func (s *Service) Export(path string, res Result) error {
	if path == "" {
		path = s.Config().ExportPath
	}
	if err := ExportCSV(path, s.store.Columns(), res.Matches()); err != nil {
		s.logf("Export failed: %v", err)
		return err
	}
	s.logf("Recipes exported to %s", path)
	return nil
}

// ExportQuery recomputes the match for q and exports it.
func (s *Service) ExportQuery(path string, q Lab, include, exclude string) error {
	matches := s.FindClosest(q, include, exclude)
	if path == "" {
		path = s.Config().ExportPath
	}
	if err := ExportCSV(path, s.store.Columns(), matches); err != nil {
		s.logf("Export failed: %v", err)
		return err
	}
	s.logf("Recipes exported to %s", path)
	return nil
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
