package labmatcher

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// DeltaEColumn is the header of the distance column in exports.
const DeltaEColumn = "Delta E"

// IOError reports a failed export.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("export: %v", e.Err)
	}
	return fmt.Sprintf("export %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ExportCSV writes matches to path, replacing any existing file.
func ExportCSV(path string, columns []string, matches []Match) error {
	f, err := os.Create(path)
	if err != nil {
		return &IOError{Path: path, Err: err}
	}
	if err := WriteCSV(f, columns, matches); err != nil {
		f.Close()
		var ioErr *IOError
		if errors.As(err, &ioErr) {
			ioErr.Path = path
		}
		return err
	}
	if err := f.Close(); err != nil {
		return &IOError{Path: path, Err: err}
	}
	return nil
}

// WriteCSV writes a header of columns plus Delta E and one row per match.
func WriteCSV(w io.Writer, columns []string, matches []Match) error {
	writer := csv.NewWriter(w)
	header := append(cloneStrings(columns), DeltaEColumn)
	if err := writer.Write(header); err != nil {
		return &IOError{Err: fmt.Errorf("write header: %w", err)}
	}
	for i, m := range matches {
		row := make([]string, 0, len(header))
		for _, col := range columns {
			v, _ := m.Record.Field(col)
			row = append(row, v.Text)
		}
		row = append(row, strconv.FormatFloat(m.DeltaE, 'f', -1, 64))
		if err := writer.Write(row); err != nil {
			return &IOError{Err: fmt.Errorf("write row %d: %w", i, err)}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return &IOError{Err: fmt.Errorf("flush: %w", err)}
	}
	return nil
}
