package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchReturnsPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "newsharvest") {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body><p>hello</p></body></html>"))
	}))
	defer server.Close()

	f := NewFetcher(2, WithHostInterval(time.Millisecond))
	page, err := f.Fetch(context.Background(), server.URL+"/article")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !strings.Contains(page.HTML, "hello") {
		t.Errorf("HTML = %q", page.HTML)
	}
	if page.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
}

func TestFetchRejectsNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	f := NewFetcher(1, WithHostInterval(time.Millisecond))
	if _, err := f.Fetch(context.Background(), server.URL+"/doc.pdf"); err == nil {
		t.Fatal("expected content-type error")
	}
}

func TestFetchRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	f := NewFetcher(1, WithHostInterval(time.Millisecond))
	if _, err := f.Fetch(context.Background(), server.URL+"/old"); err == nil {
		t.Fatal("expected status error")
	}
}

func TestFetchRejectsBadScheme(t *testing.T) {
	f := NewFetcher(1)
	if _, err := f.Fetch(context.Background(), "ftp://example.com/file"); err == nil {
		t.Fatal("expected scheme error")
	}
}

func TestFetchHonorsCancellation(t *testing.T) {
	f := NewFetcher(1, WithHostInterval(10*time.Second))
	ctx, cancel := context.WithCancel(context.Background())

	// First call consumes the limiter burst so the second must wait.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	if _, err := f.Fetch(ctx, server.URL+"/a"); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.Fetch(ctx, server.URL+"/b")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected cancellation error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not return after cancel")
	}
}
