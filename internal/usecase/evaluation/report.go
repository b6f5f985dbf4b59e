package evaluation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

var csvHeader = []string{"source_system", "method", "metric", "value", "model", "description"}

// Row is one metric value of an evaluation report.
type Row struct {
	SourceSystem string
	Method       string
	Metric       string
	Value        float64
	Model        string
	Description  string
}

func (r Row) key() [4]string {
	return [4]string{r.SourceSystem, r.Method, r.Model, r.Metric}
}

// WriteCSV writes rows as semicolon-separated values with a header.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.SourceSystem, r.Method, r.Metric,
			strconv.FormatFloat(r.Value, 'f', 3, 64), r.Model, r.Description,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadCSV parses a report written by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = len(csvHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		v, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: value %q: %w", i+2, rec[3], err)
		}
		rows = append(rows, Row{
			SourceSystem: rec[0], Method: rec[1], Metric: rec[2],
			Value: v, Model: rec[4], Description: rec[5],
		})
	}
	return rows, nil
}

// Merge replaces rows of existing that share source system, method, model and
// metric with the matching update; the remaining updates are appended in order.
func Merge(existing, updates []Row) []Row {
	return mergeBy(existing, updates, Row.key)
}

// SaveCSV merges rows into the report at path, creating it if needed.
func SaveCSV(path string, rows []Row) error {
	return saveMerged(path, rows, ReadCSV, WriteCSV, Merge)
}

// mergeBy keeps the first position of every key and the last row written to it.
func mergeBy[T any, K comparable](existing, updates []T, key func(T) K) []T {
	idx := make(map[K]int, len(existing))
	out := make([]T, 0, len(existing)+len(updates))
	for _, batch := range [][]T{existing, updates} {
		for _, r := range batch {
			k := key(r)
			if i, ok := idx[k]; ok {
				out[i] = r
				continue
			}
			idx[k] = len(out)
			out = append(out, r)
		}
	}
	return out
}

func saveMerged[T any](
	path string, rows []T,
	read func(io.Reader) ([]T, error),
	write func(io.Writer, []T) error,
	merge func(existing, updates []T) []T,
) error {
	path = filepath.Clean(path)

	var existing []T
	f, err := os.Open(path)
	switch {
	case err == nil:
		existing, err = read(f)
		_ = f.Close()
		if err != nil {
			return fmt.Errorf("existing report %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("open report %s: %w", path, err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}
	if err := write(out, merge(existing, rows)); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", path, err)
	}
	return nil
}
