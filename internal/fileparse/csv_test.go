package fileparse

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVParserPipeQuote(t *testing.T) {
	input := "name,email,note\n" +
		"Ada,ada@x.com,|likes, commas|\n" +
		"Grace,grace@x.com,says \"hi\"\n" +
		"Short\n" +
		"Linus,linus@x.com,|pipe || inside|,extra\n"

	records, err := NewCSVParser().Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []Record{
		{"name": "Ada", "email": "ada@x.com", "note": "likes, commas"},
		{"name": "Grace", "email": "grace@x.com", "note": `says "hi"`},
		{"name": "Short", "email": "", "note": ""},
		{"name": "Linus", "email": "linus@x.com", "note": "pipe | inside"},
	}, records)
}

func TestCSVParserStandardQuote(t *testing.T) {
	p := &CSVParser{Delimiter: ';', Quote: '"', TrimLeadingSpace: true}

	records, err := p.Parse(strings.NewReader("a;b\n1; \"x;y\"\n"))
	require.NoError(t, err)
	assert.Equal(t, []Record{{"a": "1", "b": "x;y"}}, records)
}

func TestCSVParserRowLines(t *testing.T) {
	input := "email,note\n" +
		"a@x.com,|two\nlines|\n" +
		"\n" +
		"b@x.com,plain\n"

	rows, err := NewCSVParser().ParseRows(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Number)
	assert.Equal(t, "two\nlines", rows[0].Record["note"])
	assert.Equal(t, 5, rows[1].Number)
}

func TestCSVParserEmptyInput(t *testing.T) {
	records, err := NewCSVParser().Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCSVParserSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.csv")
	require.NoError(t, os.WriteFile(path, []byte("email\na@x.com\n"), 0o600))

	records, err := NewCSVParser().ParseSource(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []Record{{"email": "a@x.com"}}, records)
}
