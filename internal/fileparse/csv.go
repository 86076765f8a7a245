package fileparse

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// CSVParser reads delimited text whose first row holds the field names.
type CSVParser struct {
	Delimiter        rune
	Quote            rune
	TrimLeadingSpace bool
	Client           *http.Client
}

// NewCSVParser uses a comma delimiter and the pipe character as quote.
func NewCSVParser() *CSVParser {
	return &CSVParser{Delimiter: ',', Quote: '|'}
}

func (p *CSVParser) ParseSource(ctx context.Context, source string) ([]Record, error) {
	rc, err := open(ctx, p.Client, source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return p.Parse(rc)
}

// Parse maps each row onto the header row. Short rows are padded with empty values and
// surplus cells are dropped.
func (p *CSVParser) Parse(r io.Reader) ([]Record, error) {
	rows, err := p.ParseRows(r)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Record)
	}
	return records, nil
}

// ParseRows is Parse with the input line each record starts on.
func (p *CSVParser) ParseRows(r io.Reader) ([]Row, error) {
	quote := p.Quote
	if quote == 0 {
		quote = '"'
	}
	if quote > 0x7f || p.Delimiter > 0x7f {
		return nil, errors.New("fileparse: delimiter and quote must be ASCII")
	}

	var src io.Reader = bufio.NewReader(r)
	if quote != '"' {
		src = &swapReader{r: src, a: byte(quote), b: '"'}
	}

	cr := csv.NewReader(src)
	if p.Delimiter != 0 {
		cr.Comma = p.Delimiter
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = p.TrimLeadingSpace

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = p.unswap(header[i], quote)
	}

	rows := []Row{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		record := make(Record, len(header))
		for i, name := range header {
			value := ""
			if i < len(row) {
				value = p.unswap(row[i], quote)
			}
			record[name] = value
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, Row{Number: line, Record: record})
	}
	return rows, nil
}

func (p *CSVParser) unswap(s string, quote rune) string {
	if quote == '"' {
		return s
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '"':
			return quote
		case quote:
			return '"'
		}
		return r
	}, s)
}

// swapReader exchanges two ASCII bytes so encoding/csv can honour a custom quote character.
type swapReader struct {
	r    io.Reader
	a, b byte
}

func (s *swapReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	for i := 0; i < n; i++ {
		switch p[i] {
		case s.a:
			p[i] = s.b
		case s.b:
			p[i] = s.a
		}
	}
	return n, err
}
