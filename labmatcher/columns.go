package labmatcher

import (
	"fmt"
	"strings"
	"sync"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// ColumnCandidates lists fallback header names tried when the configured
// column name is not present in a dataset.
type ColumnCandidates struct {
	Serial []string `json:"serial" yaml:"serial" toml:"serial"`
	L      []string `json:"l" yaml:"l" toml:"l"`
	A      []string `json:"a" yaml:"a" toml:"a"`
	B      []string `json:"b" yaml:"b" toml:"b"`
}

var (
	columnCandidatesMu  sync.RWMutex
	activeColumnOptions = defaultColumnCandidates()
)

func defaultColumnCandidates() ColumnCandidates {
	return ColumnCandidates{
		Serial: []string{"Serial Number", "serial", "serial_number", "序號", "編號"},
		L:      []string{"L", "L*", "測量L值"},
		A:      []string{"A", "a*", "測量a值"},
		B:      []string{"B", "b*", "測量b值"},
	}
}

// DefaultFormulaFields returns the recipe columns whose text is searched by the
// include/exclude filters, in concatenation order.
func DefaultFormulaFields() []string {
	return []string{"砂粉料一", "砂粉料二", "砂粉料三", "砂粉料四", "砂粉料五"}
}

// DefaultExcludedColumns returns the administrative columns dropped at load.
func DefaultExcludedColumns() []string {
	return []string{"C", "h"}
}

// DefaultColumnCandidates returns the built-in fallback header names.
func DefaultColumnCandidates() ColumnCandidates {
	return defaultColumnCandidates().clone()
}

// SetColumnCandidates replaces the fallback header names used by later loads.
// Empty fields fall back to the built-in defaults.
func SetColumnCandidates(candidates ColumnCandidates) {
	columnCandidatesMu.Lock()
	defer columnCandidatesMu.Unlock()
	activeColumnOptions = candidates.withDefaults()
}

func getColumnCandidates() ColumnCandidates {
	columnCandidatesMu.RLock()
	defer columnCandidatesMu.RUnlock()
	return activeColumnOptions.clone()
}

func (c ColumnCandidates) withDefaults() ColumnCandidates {
	defaults := defaultColumnCandidates()
	return ColumnCandidates{
		Serial: pickStrings(c.Serial, defaults.Serial),
		L:      pickStrings(c.L, defaults.L),
		A:      pickStrings(c.A, defaults.A),
		B:      pickStrings(c.B, defaults.B),
	}
}

func (c ColumnCandidates) clone() ColumnCandidates {
	return ColumnCandidates{
		Serial: cloneStrings(c.Serial),
		L:      cloneStrings(c.L),
		A:      cloneStrings(c.A),
		B:      cloneStrings(c.B),
	}
}

func pickStrings(custom, fallback []string) []string {
	if len(custom) == 0 {
		return cloneStrings(fallback)
	}
	return cloneStrings(custom)
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// requiredColumns is the resolved position of the columns every record needs.
type requiredColumns struct {
	Serial int
	L      int
	A      int
	B      int
}

func resolveRequiredColumns(header []string, cfg ColumnConfig) (requiredColumns, error) {
	candidates := getColumnCandidates()
	var res requiredColumns
	var err error
	if res.Serial, err = requireColumn(header, cfg.Serial, candidates.Serial); err != nil {
		return res, err
	}
	if res.L, err = requireColumn(header, cfg.L, candidates.L); err != nil {
		return res, err
	}
	if res.A, err = requireColumn(header, cfg.A, candidates.A); err != nil {
		return res, err
	}
	if res.B, err = requireColumn(header, cfg.B, candidates.B); err != nil {
		return res, err
	}
	return res, nil
}

// requireColumn prefers an exact header match for the configured name, then a
// case-insensitive one, then the fallback candidates.
func requireColumn(header []string, name string, candidates []string) (int, error) {
	name = normalizeHeader(name)
	if name != "" {
		for i, col := range header {
			if col == name {
				return i, nil
			}
		}
		if idx := findColumn(header, []string{name}); idx >= 0 {
			return idx, nil
		}
	}
	if idx := findColumn(header, candidates); idx >= 0 {
		return idx, nil
	}
	return -1, &DataError{Column: name, Suggestion: closestHeader(header, name)}
}

func findColumn(header []string, candidates []string) int {
	for i, col := range header {
		for _, cand := range candidates {
			if strings.EqualFold(col, cand) {
				return i
			}
		}
	}
	return -1
}

// closestHeader returns the header most similar to name, or "" when nothing is
// close enough to be worth suggesting.
func closestHeader(header []string, name string) string {
	if name == "" {
		return ""
	}
	best := ""
	bestScore := 0.5
	metric := metrics.NewLevenshtein()
	for _, col := range header {
		if col == "" {
			continue
		}
		score := strutil.Similarity(strings.ToLower(col), strings.ToLower(name), metric)
		if score >= bestScore {
			best = col
			bestScore = score
		}
	}
	return best
}

func isExcluded(name string, excluded []string) bool {
	for _, ex := range excluded {
		if name == normalizeHeader(ex) {
			return true
		}
	}
	return false
}

// DataError reports a dataset that cannot serve as a recipe store.
type DataError struct {
	Path       string
	Column     string
	Suggestion string
	Reason     string
}

func (e *DataError) Error() string {
	var b strings.Builder
	b.WriteString("recipe data")
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	switch {
	case e.Reason != "":
		fmt.Fprintf(&b, ": %s", e.Reason)
	default:
		fmt.Fprintf(&b, ": missing required column %q", e.Column)
		if e.Suggestion != "" {
			fmt.Fprintf(&b, " (did you mean %q?)", e.Suggestion)
		}
	}
	return b.String()
}
