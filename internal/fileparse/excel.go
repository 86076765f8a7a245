package fileparse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SheetOptions selects the header row and data window of a sheet. Rows and columns are 1-based;
// zero values mean header row 1, data from the next row, all rows and all columns.
type SheetOptions struct {
	HeaderRow        int
	DataMinRow       int
	DataMaxRow       int
	StartCol         int
	EndCol           int
	AllowEmptyRecord bool
}

func (o SheetOptions) normalized() SheetOptions {
	if o.HeaderRow <= 0 {
		o.HeaderRow = 1
	}
	if o.DataMinRow <= 0 {
		o.DataMinRow = o.HeaderRow + 1
	}
	if o.StartCol <= 0 {
		o.StartCol = 1
	}
	return o
}

type Workbook struct {
	file *excelize.File
}

// OpenWorkbook loads an xlsx workbook from a local path or an http(s) URL.
func OpenWorkbook(ctx context.Context, source string, client *http.Client) (*Workbook, error) {
	rc, err := open(ctx, client, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	f, err := excelize.OpenReader(rc)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrSourceUnavailable, source, err)
	}
	return &Workbook{file: f}, nil
}

// ReadWorkbook loads an xlsx workbook from an in-memory upload.
func ReadWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return &Workbook{file: f}, nil
}

func (w *Workbook) Close() error {
	return w.file.Close()
}

func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// Sheets returns sheet names in workbook order, minus the excluded titles.
func (w *Workbook) Sheets(excluding ...string) []string {
	names := w.SheetNames()
	if len(excluding) == 0 {
		return names
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if !slices.Contains(excluding, name) {
			out = append(out, name)
		}
	}
	return out
}

// Records reads the header row until the first empty cell and maps every data row onto it.
// Rows without any value are skipped unless AllowEmptyRecord is set.
func (w *Workbook) Records(sheet string, opts SheetOptions) ([]Record, error) {
	rows, err := w.Rows(sheet, opts)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Record)
	}
	return records, nil
}

// Rows is Records with the 1-based sheet row number of every record.
func (w *Workbook) Rows(sheet string, opts SheetOptions) ([]Row, error) {
	opts = opts.normalized()

	rows, err := w.file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) < opts.HeaderRow {
		return []Row{}, nil
	}

	headers := headerCells(window(rows[opts.HeaderRow-1], opts.StartCol, opts.EndCol))
	out := []Row{}
	if len(headers) == 0 {
		return out, nil
	}

	last := len(rows)
	if opts.DataMaxRow > 0 && opts.DataMaxRow < last {
		last = opts.DataMaxRow
	}
	for i := opts.DataMinRow; i <= last; i++ {
		cells := window(rows[i-1], opts.StartCol, opts.EndCol)
		record := make(Record, len(headers))
		for col, header := range headers {
			value := ""
			if col < len(cells) {
				value = strings.TrimSpace(cells[col])
			}
			record[header] = value
		}
		if opts.AllowEmptyRecord || !isBlank(record) {
			out = append(out, Row{Number: i, Record: record})
		}
	}
	return out, nil
}

// AllRecords parses every sheet except the excluded ones with the same options.
func (w *Workbook) AllRecords(opts SheetOptions, excluding ...string) (map[string][]Record, error) {
	out := make(map[string][]Record)
	for _, sheet := range w.Sheets(excluding...) {
		records, err := w.Records(sheet, opts)
		if err != nil {
			return nil, err
		}
		out[sheet] = records
	}
	return out, nil
}

func window(row []string, startCol, endCol int) []string {
	if startCol-1 >= len(row) {
		return nil
	}
	row = row[startCol-1:]
	if endCol > 0 && endCol-startCol+1 < len(row) {
		row = row[:endCol-startCol+1]
	}
	return row
}

func headerCells(cells []string) []string {
	headers := make([]string, 0, len(cells))
	for _, cell := range cells {
		if cell == "" {
			break
		}
		headers = append(headers, cell)
	}
	return headers
}
