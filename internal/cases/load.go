package cases

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/xuri/excelize/v2"
)

// Load reads every row from a .csv or .xlsx file. For workbooks, sheet
// selects the worksheet; empty means the first one.
func Load(path, sheet string) ([]Row, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand data file path %q: %w", path, err)
	}

	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	var rows []Row
	switch ext := strings.ToLower(filepath.Ext(expanded)); ext {
	case ".csv":
		rows, err = ParseCSV(f)
	case ".xlsx":
		rows, err = ParseXLSX(f, sheet)
	default:
		return nil, fmt.Errorf("unsupported data file type %q (want .csv or .xlsx)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", expanded, err)
	}
	return rows, nil
}

// ParseCSV reads rows from CSV with a header line.
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return fromRecords(records)
}

// ParseXLSX reads rows from the named worksheet (first if empty) of a workbook.
func ParseXLSX(r io.Reader, sheet string) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) ([]Row, error) {
	records = dropBlank(records)
	if len(records) == 0 {
		return nil, errors.New("data file has no header row")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := NewRow(i+1, header, rec)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

// dropBlank removes records whose cells are all empty.
func dropBlank(records [][]string) [][]string {
	out := records[:0:0]
	for _, rec := range records {
		for _, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}
