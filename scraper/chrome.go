package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

const defaultRenderTimeout = 30 * time.Second

// ChromeOptions configures a ChromeFetcher.
type ChromeOptions struct {
	// Timeout bounds navigation plus the wait for network idle.
	Timeout time.Duration
	// MaxSessions caps concurrently open tabs; 0 means unbounded.
	MaxSessions int
	ChromeBin   string
	UserAgent   string
	Logger      *utils.Logger
}

// ChromeFetcher renders pages in headless Chrome. One browser process is
// started lazily and shared; every Render opens and closes its own tab.
type ChromeFetcher struct {
	opts     ChromeOptions
	logger   *utils.Logger
	sessions *utils.Semaphore

	// mu guards the browser state below. A failed or crashed browser is
	// dropped and relaunched by the next Render.
	mu          sync.Mutex
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelBrows context.CancelFunc
	launches    int
	closed      bool
}

// NewChromeFetcher creates a fetcher; the browser starts on first use.
func NewChromeFetcher(opts ChromeOptions) *ChromeFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRenderTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &ChromeFetcher{
		opts:     opts,
		logger:   logger.With("component", "chrome"),
		sessions: utils.NewSemaphore(opts.MaxSessions),
	}
}

// browser returns the shared browser context, launching Chrome when there
// is none yet or the previous one has died.
func (f *ChromeFetcher) browser() (context.Context, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, errors.New("chrome fetcher is closed")
	}
	if f.browserCtx != nil {
		if f.browserCtx.Err() == nil {
			return f.browserCtx, nil
		}
		f.logger.Warn("browser is gone, relaunching", "error", f.browserCtx.Err())
		f.shutdownLocked()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if f.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(f.opts.UserAgent))
	}
	bin := findChromeBinary(f.opts.ChromeBin)
	if bin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(bin))
	}

	f.launches++
	f.logger.Info("launching browser", "binary", bin, "attempt", f.launches)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	// An empty Run launches the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	f.browserCtx = browserCtx
	f.cancelAlloc = cancelAlloc
	f.cancelBrows = cancelBrowser
	return browserCtx, nil
}

// shutdownLocked cancels the current browser. f.mu must be held.
func (f *ChromeFetcher) shutdownLocked() {
	if f.cancelBrows != nil {
		f.cancelBrows()
	}
	if f.cancelAlloc != nil {
		f.cancelAlloc()
	}
	f.browserCtx, f.cancelBrows, f.cancelAlloc = nil, nil, nil
}

// Render navigates to url in a fresh tab, waits for the network to go idle
// and returns the document's outer HTML. The tab is closed on every path,
// including when ctx is cancelled mid-render.
func (f *ChromeFetcher) Render(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := f.sessions.Acquire(ctx); err != nil {
		return "", err
	}
	defer f.sessions.Release()

	browserCtx, err := f.browser()
	if err != nil {
		return "", &NavigationError{URL: url, Err: err}
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	runCtx, cancelRun := context.WithTimeout(tabCtx, f.opts.Timeout)
	defer cancelRun()

	idle := watchNetworkIdle(runCtx)

	start := time.Now()
	var markup string
	err = chromedp.Run(runCtx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.Navigate(url),
		chromedp.ActionFunc(func(ctx context.Context) error {
			select {
			case <-idle:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	)
	if err != nil {
		return "", classifyRenderError(ctx, runCtx, url, f.opts.Timeout, err)
	}

	f.logger.Debug("page rendered", "url", url, "bytes", len(markup), "took", time.Since(start))
	return markup, nil
}

// watchNetworkIdle returns a channel closed once the first document loaded
// in the tab reports the networkIdle lifecycle event.
func watchNetworkIdle(ctx context.Context) <-chan struct{} {
	idle := make(chan struct{})
	var (
		mu     sync.Mutex
		loader cdp.LoaderID
		once   sync.Once
	)
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		switch e.Name {
		case "init":
			if loader == "" {
				loader = e.LoaderID
			}
		case "networkIdle":
			if loader != "" && e.LoaderID == loader {
				once.Do(func() { close(idle) })
			}
		}
	})
	return idle
}

// classifyRenderError maps a chromedp failure onto the fetcher contract:
// caller cancellation wins, then our own deadline, then navigation.
func classifyRenderError(callerCtx, runCtx context.Context, url string, timeout time.Duration, err error) error {
	if callerErr := callerCtx.Err(); callerErr != nil {
		return callerErr
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{URL: url, After: timeout}
	}
	return &NavigationError{URL: url, Err: err}
}

// Close shuts the browser down; later Renders fail. Safe to call when it
// never started.
func (f *ChromeFetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.shutdownLocked()
}

// findChromeBinary prefers the configured path, then well-known names on
// PATH, then common install locations. Empty lets chromedp decide.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
