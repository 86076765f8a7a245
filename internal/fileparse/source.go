// Package fileparse turns spreadsheet and CSV uploads into header-keyed records.
package fileparse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Record maps a header cell to the trimmed value of a data cell.
type Record map[string]string

// Row is a record with the line or sheet row it was read from.
type Row struct {
	Number int
	Record Record
}

var ErrSourceUnavailable = errors.New("fileparse: unable to open source")

var defaultClient = &http.Client{Timeout: 30 * time.Second}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// open returns a reader for a local path or an http(s) URL.
func open(ctx context.Context, client *http.Client, source string) (io.ReadCloser, error) {
	if !isRemote(source) {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %v", ErrSourceUnavailable, source, err)
		}
		return f, nil
	}

	if client == nil {
		client = defaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrSourceUnavailable, source, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrSourceUnavailable, source, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w %s: status %d", ErrSourceUnavailable, source, resp.StatusCode)
	}
	return resp.Body, nil
}

func isBlank(r Record) bool {
	for _, v := range r {
		if v != "" {
			return false
		}
	}
	return true
}
