package scraper

import "context"

// Fetcher returns the rendered markup of a page. Implementations do not
// retry; they report *NavigationError, *TimeoutError or the context error.
type Fetcher interface {
	Render(ctx context.Context, url string) (string, error)
}

// FetcherSet holds the fetchers a selector map can ask for by render mode.
type FetcherSet struct {
	Browser Fetcher
	Static  Fetcher
}

// For returns the fetcher for mode, or nil when none is configured.
func (s FetcherSet) For(mode RenderMode) Fetcher {
	if mode == RenderStatic {
		return s.Static
	}
	return s.Browser
}
