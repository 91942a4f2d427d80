package labmatcher

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alitto/pond"
	"github.com/google/uuid"
)

// BatchQuery is one row of a batch query file.
type BatchQuery struct {
	ID      string
	Lab     Lab
	Include string
	Exclude string
	// Line is the 1-based line number in the source file.
	Line int
}

// BatchResult pairs a query with its match result.
type BatchResult struct {
	Query  BatchQuery
	Result Result
}

// ReadBatchFile reads queries from a CSV/TSV file with L, A and B columns and
// optional id, include and exclude columns. Rows with an unusable color are
// returned as skipped line numbers.
func ReadBatchFile(path string) ([]BatchQuery, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return ReadBatch(f, commaForPath(path))
}

// ReadBatch parses queries from r.
func ReadBatch(r io.Reader, comma rune) ([]BatchQuery, []int, error) {
	decoded, err := decodeReader(r, "utf-8")
	if err != nil {
		return nil, nil, err
	}
	reader := csv.NewReader(decoded)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read batch: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, &DataError{Reason: "empty batch file"}
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = normalizeHeader(cell)
	}
	candidates := getColumnCandidates()
	var cols requiredColumns
	cols.Serial = findColumn(header, []string{"id", "query", "name"})
	if cols.L, err = requireColumn(header, "L", candidates.L); err != nil {
		return nil, nil, err
	}
	if cols.A, err = requireColumn(header, "A", candidates.A); err != nil {
		return nil, nil, err
	}
	if cols.B, err = requireColumn(header, "B", candidates.B); err != nil {
		return nil, nil, err
	}
	includeCol := findColumn(header, []string{"include", "配方砂粉指定"})
	excludeCol := findColumn(header, []string{"exclude", "配方砂粉排除"})

	var queries []BatchQuery
	var skipped []int
	for i, row := range rows[1:] {
		line := i + 2
		lab, ok := rowLab(row, cols)
		if !ok {
			skipped = append(skipped, line)
			continue
		}
		q := BatchQuery{
			ID:      cellAt(row, cols.Serial),
			Lab:     lab,
			Include: cellAt(row, includeCol),
			Exclude: cellAt(row, excludeCol),
			Line:    line,
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		queries = append(queries, q)
	}
	return queries, skipped, nil
}

// MatchBatch runs every query through Match on a worker pool sized by
// batchWorkers. Results keep the input order.
func (s *Service) MatchBatch(ctx context.Context, queries []BatchQuery) []BatchResult {
	out := make([]BatchResult, len(queries))
	if len(queries) == 0 {
		return out
	}
	runID := uuid.NewString()
	workers := s.Config().BatchWorkers
	start := time.Now()
	s.logf("Batch %s: %d queries on %d workers", runID, len(queries), workers)

	pool := pond.New(workers, len(queries))
	for i, q := range queries {
		i, q := i, q
		pool.Submit(func() {
			out[i] = BatchResult{Query: q, Result: s.Match(ctx, q.Lab, q.Include, q.Exclude)}
		})
	}
	pool.StopAndWait()

	s.logf("Batch %s finished in %s", runID, time.Since(start).Round(time.Millisecond))
	return out
}

// WriteBatchCSV writes one row per (query, rank). Queries without matches get
// a single row with empty match columns.
func WriteBatchCSV(w io.Writer, results []BatchResult, lang Language) error {
	writer := csv.NewWriter(w)
	header := []string{"id", "L", "A", "B", "rank", "serial", DeltaEColumn, "reliability", "description", "cmyk"}
	if err := writer.Write(header); err != nil {
		return &IOError{Err: fmt.Errorf("write header: %w", err)}
	}
	for _, br := range results {
		q := br.Query
		prefix := []string{q.ID, formatFloat(q.Lab.L), formatFloat(q.Lab.A), formatFloat(q.Lab.B)}
		cmyk := br.Result.CMYKText()
		if len(br.Result.Suggestions) == 0 {
			row := append(prefix, "", "", "", "", "", cmyk)
			if err := writer.Write(row); err != nil {
				return &IOError{Err: fmt.Errorf("write %s: %w", q.ID, err)}
			}
			continue
		}
		for _, sug := range br.Result.Suggestions {
			row := append(cloneStrings(prefix),
				strconv.Itoa(sug.Rank),
				sug.Record.Serial,
				strconv.FormatFloat(sug.DeltaE, 'f', 2, 64),
				sug.Reliability.Label(lang),
				sug.Description,
				cmyk,
			)
			if err := writer.Write(row); err != nil {
				return &IOError{Err: fmt.Errorf("write %s: %w", q.ID, err)}
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return &IOError{Err: fmt.Errorf("flush: %w", err)}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
