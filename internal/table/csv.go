package table

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/finsight/finsight/internal/errs"
)

// ReadCSV reads a comma-separated dataset from r. The first record is the
// header; every following record becomes a row. Null markers ("", "null",
// "N/A", …) load as nil; all other cells load as strings — coercion to
// numbers and dates happens later, driven by the schema analysis.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := reader.Read()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read CSV header", err)
	}
	if len(header) == 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "CSV has no columns")
	}

	var rows [][]any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read CSV row", err)
		}
		row := make([]any, len(header))
		for i := range header {
			if i >= len(record) || isNullMarker(record[i]) {
				row[i] = nil
				continue
			}
			row[i] = record[i]
		}
		rows = append(rows, row)
	}

	return &Table{Columns: header, Rows: rows}, nil
}

// ReadCSVFile reads a comma-separated dataset from path.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to open file", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSVFileSample reads at most limit data rows from path into a Table
// and keeps scanning to the end so the returned total reflects the true
// row count of the file. A limit <= 0 loads everything.
func ReadCSVFileSample(path string, limit int) (*Table, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errs.Wrap(errs.ErrKindInvalidInput, "failed to open file", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, errs.Wrap(errs.ErrKindInvalidInput, "failed to read CSV header", err)
	}
	if len(header) == 0 {
		return nil, 0, errs.New(errs.ErrKindInvalidInput, "CSV has no columns")
	}

	var rows [][]any
	total := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, errs.Wrap(errs.ErrKindInvalidInput, "failed to read CSV row", err)
		}
		total++
		if limit > 0 && len(rows) >= limit {
			continue
		}
		row := make([]any, len(header))
		for i := range header {
			if i >= len(record) || isNullMarker(record[i]) {
				row[i] = nil
				continue
			}
			row[i] = record[i]
		}
		rows = append(rows, row)
	}

	return &Table{Columns: header, Rows: rows}, total, nil
}
