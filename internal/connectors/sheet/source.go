package sheet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"customer-request-dashboard/internal/orders"
)

// FetchError reports a failed download of the published sheet.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Source downloads a published spreadsheet CSV export.
type Source struct {
	url    string
	client *http.Client
}

// NewSource creates a sheet source. A zero timeout leaves the transport
// default in place.
func NewSource(url string, timeout time.Duration) *Source {
	return &Source{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
	}
}

func (s *Source) Name() string {
	return "sheet"
}

func (s *Source) URL() string {
	return s.url
}

// Load fetches the document and splits it into raw rows.
func (s *Source) Load(ctx context.Context) ([]orders.RawRow, error) {
	text, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return orders.ParseCSVStrict(text)
}

// Fetch returns the body of the CSV document.
func (s *Source) Fetch(ctx context.Context) (string, error) {
	if s.url == "" {
		return "", &FetchError{Err: fmt.Errorf("sheet CSV URL not configured")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", &FetchError{URL: s.url, Err: err}
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: s.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &FetchError{URL: s.url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: s.url, Err: err}
	}
	return string(body), nil
}
