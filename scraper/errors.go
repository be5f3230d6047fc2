package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error kinds reported to callers of the extraction pipeline.
const (
	KindInvalidURL        = "invalid_url"
	KindUnsupportedPortal = "unsupported_portal"
	KindNavigation        = "navigation"
	KindTimeout           = "timeout"
	KindMalformedMarkup   = "malformed_markup"
	KindCancelled         = "cancelled"
	KindInternal          = "internal"
)

// InvalidURLError is returned before any I/O when the input is not an
// absolute http(s) URL.
type InvalidURLError struct {
	URL    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid url %q: %s", e.URL, e.Reason)
}

// UnsupportedPortalError means no handler is registered for Host.
type UnsupportedPortalError struct {
	Host string
}

func (e *UnsupportedPortalError) Error() string {
	return fmt.Sprintf("unsupported portal %q", e.Host)
}

// NavigationError wraps a failure to load the page at all.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// TimeoutError means the page did not settle within After.
type TimeoutError struct {
	URL   string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("render %s: no network idle after %s", e.URL, e.After)
}

// MalformedMarkupError means the fetched content is not a document.
type MalformedMarkupError struct {
	Reason string
	Err    error
}

func (e *MalformedMarkupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed markup: %s: %v", e.Reason, e.Err)
	}
	return "malformed markup: " + e.Reason
}

func (e *MalformedMarkupError) Unwrap() error { return e.Err }

// Kind maps err to the descriptor kind exposed by the transport layer.
func Kind(err error) string {
	var (
		invalid     *InvalidURLError
		unsupported *UnsupportedPortalError
		navigation  *NavigationError
		timeout     *TimeoutError
		malformed   *MalformedMarkupError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &invalid):
		return KindInvalidURL
	case errors.As(err, &unsupported):
		return KindUnsupportedPortal
	case errors.As(err, &timeout):
		return KindTimeout
	case errors.As(err, &navigation):
		return KindNavigation
	case errors.As(err, &malformed):
		return KindMalformedMarkup
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCancelled
	default:
		return KindInternal
	}
}

// Retryable reports whether a caller may retry err with backoff.
func Retryable(err error) bool {
	switch Kind(err) {
	case KindNavigation, KindTimeout:
		return true
	}
	return false
}
