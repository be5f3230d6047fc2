package scraper

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

type renderOutcome struct {
	markup string
	err    error
}

// renderWithin fails the test when Render does not return within d.
func renderWithin(t *testing.T, f *ChromeFetcher, ctx context.Context, d time.Duration) renderOutcome {
	t.Helper()
	done := make(chan renderOutcome, 1)
	go func() {
		markup, err := f.Render(ctx, "https://portal.test/listing/1")
		done <- renderOutcome{markup, err}
	}()
	select {
	case out := <-done:
		return out
	case <-time.After(d):
		t.Fatalf("Render did not return within %s", d)
		return renderOutcome{}
	}
}

func missingBinary(t *testing.T, name string) string {
	return filepath.Join(t.TempDir(), name)
}

func TestChromeFetcherReleasesSessionOnLaunchFailure(t *testing.T) {
	f := NewChromeFetcher(ChromeOptions{MaxSessions: 1, ChromeBin: missingBinary(t, "chrome"), Timeout: 5 * time.Second})
	defer f.Close()

	for i := 0; i < 2; i++ {
		out := renderWithin(t, f, context.Background(), 10*time.Second)
		var nav *NavigationError
		if !errors.As(out.err, &nav) {
			t.Fatalf("render %d: expected NavigationError, got %v", i, out.err)
		}
		if n := f.sessions.InUse(); n != 0 {
			t.Fatalf("render %d: %d sessions still held", i, n)
		}
	}
}

func TestChromeFetcherRelaunchesAfterFailure(t *testing.T) {
	f := NewChromeFetcher(ChromeOptions{ChromeBin: missingBinary(t, "chrome-a"), Timeout: 5 * time.Second})
	defer f.Close()

	renderWithin(t, f, context.Background(), 10*time.Second)
	renderWithin(t, f, context.Background(), 10*time.Second)
	if f.launches != 2 {
		t.Fatalf("a failed launch must be retried on the next Render, got %d launches", f.launches)
	}

	f.opts.ChromeBin = missingBinary(t, "chrome-b")
	out := renderWithin(t, f, context.Background(), 10*time.Second)
	var nav *NavigationError
	if !errors.As(out.err, &nav) {
		t.Fatalf("expected NavigationError, got %v", out.err)
	}
	if f.launches != 3 {
		t.Errorf("the reconfigured binary must be tried, got %d launches", f.launches)
	}
	if f.browserCtx != nil {
		t.Error("no browser state may be kept after a failed launch")
	}
}

func TestChromeFetcherCancelledWhileWaitingForSession(t *testing.T) {
	f := NewChromeFetcher(ChromeOptions{MaxSessions: 1, ChromeBin: missingBinary(t, "chrome")})
	defer f.Close()

	if err := f.sessions.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer f.sessions.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	out := renderWithin(t, f, ctx, 2*time.Second)
	if !errors.Is(out.err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", out.err)
	}
	if Kind(out.err) != KindCancelled {
		t.Errorf("kind: %q", Kind(out.err))
	}
	if n := f.sessions.InUse(); n != 1 {
		t.Errorf("only the held slot may be in use, got %d", n)
	}
	if f.launches != 0 {
		t.Error("a cancelled Render must not launch the browser")
	}
}

func TestChromeFetcherAlreadyCancelled(t *testing.T) {
	f := NewChromeFetcher(ChromeOptions{MaxSessions: 1, ChromeBin: missingBinary(t, "chrome")})
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := renderWithin(t, f, ctx, time.Second)
	if !errors.Is(out.err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", out.err)
	}
	if n := f.sessions.InUse(); n != 0 {
		t.Errorf("%d sessions still held", n)
	}
}

func TestChromeFetcherClosed(t *testing.T) {
	f := NewChromeFetcher(ChromeOptions{ChromeBin: missingBinary(t, "chrome")})
	f.Close()
	f.Close()

	out := renderWithin(t, f, context.Background(), time.Second)
	var nav *NavigationError
	if !errors.As(out.err, &nav) {
		t.Fatalf("expected NavigationError, got %v", out.err)
	}
	if f.launches != 0 {
		t.Error("a closed fetcher must not launch the browser")
	}
}
