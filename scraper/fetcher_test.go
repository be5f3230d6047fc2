package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

func TestStaticFetcherRender(t *testing.T) {
	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.UserAgent())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><h1 class="listing-title">Casa</h1></body></html>`)
	}))
	defer srv.Close()

	f := NewStaticFetcher(StaticOptions{Timeout: 2 * time.Second, UserAgent: "inmo-test/1.0"})

	for i := 0; i < 2; i++ {
		markup, err := f.Render(context.Background(), srv.URL+"/listing/1")
		if err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
		if !strings.Contains(markup, "Casa") {
			t.Errorf("render %d: unexpected markup %q", i, markup)
		}
	}
	if ua, _ := gotUA.Load().(string); ua != "inmo-test/1.0" {
		t.Errorf("user agent: got %q", ua)
	}
}

func TestStaticFetcherHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewStaticFetcher(StaticOptions{Timeout: 2 * time.Second}).Render(context.Background(), srv.URL)
	var nav *NavigationError
	if !errors.As(err, &nav) {
		t.Fatalf("expected NavigationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should mention the status: %v", err)
	}
}

func TestStaticFetcherConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := NewStaticFetcher(StaticOptions{Timeout: 2 * time.Second}).Render(context.Background(), addr)
	var nav *NavigationError
	if !errors.As(err, &nav) {
		t.Fatalf("expected NavigationError, got %v", err)
	}
}

func TestStaticFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewStaticFetcher(StaticOptions{Timeout: 100 * time.Millisecond}).Render(context.Background(), srv.URL)
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}
	if timeout.After != 100*time.Millisecond {
		t.Errorf("After: got %s", timeout.After)
	}
}

func TestStaticFetcherCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStaticFetcher(StaticOptions{}).Render(ctx, "http://127.0.0.1:1/")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStaticFetcherReadsLargePages(t *testing.T) {
	const size = 11 << 20
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><div>")
		fmt.Fprint(w, strings.Repeat("a", size))
		fmt.Fprint(w, `</div><p class="price-tag">USD 120.000</p></body></html>`)
	}))
	defer srv.Close()

	markup, err := NewStaticFetcher(StaticOptions{Timeout: 10 * time.Second}).Render(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(markup) < size || !strings.HasSuffix(markup, "</html>") {
		t.Errorf("page truncated to %d bytes", len(markup))
	}
}

func TestClassifyRenderError(t *testing.T) {
	boom := errors.New("net::ERR_NAME_NOT_RESOLVED")

	t.Run("caller cancelled", func(t *testing.T) {
		caller, cancel := context.WithCancel(context.Background())
		cancel()
		err := classifyRenderError(caller, context.Background(), "u", time.Second, boom)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("render deadline", func(t *testing.T) {
		run, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		<-run.Done()
		err := classifyRenderError(context.Background(), run, "u", 30*time.Second, context.DeadlineExceeded)
		var timeout *TimeoutError
		if !errors.As(err, &timeout) || timeout.After != 30*time.Second {
			t.Errorf("got %v", err)
		}
	})

	t.Run("navigation", func(t *testing.T) {
		err := classifyRenderError(context.Background(), context.Background(), "u", time.Second, boom)
		var nav *NavigationError
		if !errors.As(err, &nav) || !errors.Is(err, boom) {
			t.Errorf("got %v", err)
		}
	})
}

func TestFetcherSetFor(t *testing.T) {
	browser, static := &fakeFetcher{}, &fakeFetcher{}
	set := FetcherSet{Browser: browser, Static: static}

	if set.For(RenderStatic) != static {
		t.Error("static mode should use the static fetcher")
	}
	if set.For(RenderBrowser) != browser || set.For("") != browser {
		t.Error("browser mode should use the browser fetcher")
	}
}

func TestKindAndRetryable(t *testing.T) {
	tests := []struct {
		err       error
		kind      string
		retryable bool
	}{
		{&InvalidURLError{URL: "x", Reason: "r"}, KindInvalidURL, false},
		{&UnsupportedPortalError{Host: "h"}, KindUnsupportedPortal, false},
		{&NavigationError{URL: "u", Err: errors.New("e")}, KindNavigation, true},
		{fmt.Errorf("wrapped: %w", &TimeoutError{URL: "u"}), KindTimeout, true},
		{&MalformedMarkupError{Reason: "r"}, KindMalformedMarkup, false},
		{context.Canceled, KindCancelled, false},
		{context.DeadlineExceeded, KindTimeout, true},
		{errors.New("boom"), KindInternal, false},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.kind {
			t.Errorf("Kind(%v) = %q; want %q", tt.err, got, tt.kind)
		}
		if got := Retryable(tt.err); got != tt.retryable {
			t.Errorf("Retryable(%v) = %v; want %v", tt.err, got, tt.retryable)
		}
	}
	if Kind(nil) != "" {
		t.Error("Kind(nil) should be empty")
	}
}

func TestRetryCancelledDuringBackoffIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	retry := utils.RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour, Retryable: Retryable}

	err := retry.Do(ctx, "extract", func(context.Context) error {
		cancel()
		return &NavigationError{URL: "u", Err: errors.New("connection reset")}
	})
	if got := Kind(err); got != KindCancelled {
		t.Errorf("Kind = %q; want %q (%v)", got, KindCancelled, err)
	}
}
