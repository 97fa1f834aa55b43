package sheet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"customer-request-dashboard/internal/orders"
)

func TestLoad_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("Timestamp,Customer Name,Status\n2025-09-22 15:30,John Doe,Processing\n2025-09-22 14:45,Jane Smith,Completed\n"))
	}))
	defer srv.Close()

	rows, err := NewSource(srv.URL, 0).Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1]["Customer Name"] != "Jane Smith" {
		t.Fatalf("unexpected row: %v", rows[1])
	}
}

func TestLoad_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewSource(srv.URL, 0).Load(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", fe.StatusCode)
	}
	if err.Error() != "HTTP error! status: 404" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestLoad_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("  \n"))
	}))
	defer srv.Close()

	_, err := NewSource(srv.URL, 0).Load(context.Background())
	if !errors.Is(err, orders.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestLoad_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewSource(url, 0).Load(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.StatusCode != 0 || fe.Err == nil {
		t.Fatalf("expected transport error, got %+v", fe)
	}
}

func TestLoad_NoURL(t *testing.T) {
	_, err := NewSource("  ", 0).Load(context.Background())
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}
