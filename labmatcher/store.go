package labmatcher

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// StoreOptions controls how a recipe dataset is parsed.
type StoreOptions struct {
	Columns  ColumnConfig
	Encoding string
	// Comma overrides the delimiter; zero picks it from the file extension.
	Comma rune
}

// Store is an immutable snapshot of the recipe dataset.
type Store struct {
	columns []string
	records []Record
	dropped int
}

// LoadStore reads a delimited recipe file.
func LoadStore(path string, opts StoreOptions) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if opts.Comma == 0 {
		opts.Comma = commaForPath(path)
	}
	s, err := ReadStore(f, opts)
	if err != nil {
		var dataErr *DataError
		if errors.As(err, &dataErr) && dataErr.Path == "" {
			dataErr.Path = filepath.Base(path)
		}
		return nil, err
	}
	return s, nil
}

// ReadStore parses a delimited recipe table from r. Rows without a usable
// L, A or B value are dropped; missing required columns yield a *DataError.
func ReadStore(r io.Reader, opts StoreOptions) (*Store, error) {
	decoded, err := decodeReader(r, opts.Encoding)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(decoded)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read recipe data: %w", err)
	}
	if len(rows) == 0 {
		return nil, &DataError{Reason: "empty file"}
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = normalizeHeader(cell)
	}
	required, err := resolveRequiredColumns(header, opts.Columns)
	if err != nil {
		return nil, err
	}

	keep := make([]int, 0, len(header))
	for i, name := range header {
		if isExcluded(name, opts.Columns.Excluded) {
			continue
		}
		keep = append(keep, i)
	}
	columns := make([]string, len(keep))
	for i, idx := range keep {
		columns[i] = header[idx]
	}

	s := &Store{columns: columns, records: make([]Record, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		lab, ok := rowLab(row, required)
		if !ok {
			s.dropped++
			continue
		}
		rec := Record{
			Serial: cellAt(row, required.Serial),
			Lab:    lab,
			Fields: make([]Field, len(keep)),
		}
		for i, idx := range keep {
			rec.Fields[i] = Field{Name: header[idx], Value: NewValue(cellAt(row, idx))}
		}
		s.records = append(s.records, rec)
	}
	return s, nil
}

// NewStore builds a store from records already in memory.
func NewStore(columns []string, records []Record) *Store {
	s := &Store{
		columns: cloneStrings(columns),
		records: make([]Record, len(records)),
	}
	copy(s.records, records)
	return s
}

// Records returns the records in load order. Callers must not modify them.
func (s *Store) Records() []Record {
	if s == nil {
		return nil
	}
	return s.records
}

// Columns returns the retained header in file order.
func (s *Store) Columns() []string {
	if s == nil {
		return nil
	}
	return cloneStrings(s.columns)
}

// Len returns the number of usable records.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Dropped reports how many rows were skipped for missing color values.
func (s *Store) Dropped() int {
	if s == nil {
		return 0
	}
	return s.dropped
}

// FindClosest ranks the store's records against q.
func (s *Store) FindClosest(q Lab, opts MatchOptions) []Match {
	return FindClosest(s.Records(), q, opts)
}

func rowLab(row []string, cols requiredColumns) (Lab, bool) {
	l, okL := parseChannel(cellAt(row, cols.L))
	a, okA := parseChannel(cellAt(row, cols.A))
	b, okB := parseChannel(cellAt(row, cols.B))
	if !okL || !okA || !okB {
		return Lab{}, false
	}
	return Lab{L: l, A: a, B: b}, true
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return cleanCell(row[idx])
}

func commaForPath(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return '\t'
	default:
		return ','
	}
}
