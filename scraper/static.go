package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

// StaticOptions configures a StaticFetcher.
type StaticOptions struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *utils.Logger
}

// StaticFetcher downloads server-rendered pages over plain HTTP. It is used
// for portals whose markup does not depend on JavaScript.
type StaticFetcher struct {
	collector *colly.Collector
	timeout   time.Duration
	logger    *utils.Logger
}

// NewStaticFetcher builds the parent collector; each Render works on a clone
// so callbacks never leak between calls.
func NewStaticFetcher(opts StaticOptions) *StaticFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRenderTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	c := colly.NewCollector(colly.AllowURLRevisit())
	if opts.UserAgent != "" {
		c.UserAgent = opts.UserAgent
	}
	c.SetRequestTimeout(opts.Timeout)
	// Listing pages are read whole; colly truncates at 10 MiB by default.
	c.MaxBodySize = 0

	return &StaticFetcher{
		collector: c,
		timeout:   opts.Timeout,
		logger:    logger.With("component", "static"),
	}
}

// Render fetches url and returns the response body as markup.
func (f *StaticFetcher) Render(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	collector := f.collector.Clone()
	collector.Context = ctx

	var (
		markup   string
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		markup = string(r.Body)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	start := time.Now()
	if err := collector.Visit(url); err != nil && fetchErr == nil {
		fetchErr = err
	}
	if fetchErr != nil {
		return "", f.classify(ctx, url, fetchErr)
	}

	f.logger.Debug("page fetched", "url", url, "bytes", len(markup), "took", time.Since(start))
	return markup, nil
}

func (f *StaticFetcher) classify(ctx context.Context, url string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{URL: url, After: f.timeout}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{URL: url, After: f.timeout}
	}
	return &NavigationError{URL: url, Err: err}
}
