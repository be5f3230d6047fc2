package scraper

import (
	"context"
	"net/url"
	"strings"

	"github.com/dodoricogino/INMO-enlaces-PDF/models"
	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

// Service is the entry point of the extraction pipeline.
type Service struct {
	registry *Registry
	logger   *utils.Logger
}

// NewService creates a Service routing through registry.
func NewService(registry *Registry, logger *utils.Logger) *Service {
	return &Service{registry: registry, logger: logger.With("component", "extractor")}
}

// Registry exposes the registry for diagnostics.
func (s *Service) Registry() *Registry { return s.registry }

// Extract routes rawURL to its portal handler. Invalid URLs and unknown
// hosts fail before any network access; handler errors pass through.
func (s *Service) Extract(ctx context.Context, rawURL string) (*models.ExtractedPayload, error) {
	u, err := parseListingURL(rawURL)
	if err != nil {
		s.logger.Warn("rejected url", "url", rawURL, "error", err)
		return nil, err
	}

	host := u.Hostname()
	handler, ok := s.registry.Lookup(host)
	if !ok {
		s.logger.Info("unsupported portal", "host", host, "stage", stageRouting)
		return nil, &UnsupportedPortalError{Host: host}
	}

	target := u.String()
	s.logger.Info("extracting listing", "host", host, "url", target)
	payload, err := handler.Extract(ctx, target)
	if err != nil {
		s.logger.Warn("extraction failed", "host", host, "url", target, "kind", Kind(err), "error", err)
		return nil, err
	}
	return payload, nil
}

func parseListingURL(rawURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, &InvalidURLError{URL: rawURL, Reason: "empty"}
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, &InvalidURLError{URL: rawURL, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &InvalidURLError{URL: rawURL, Reason: "scheme must be http or https"}
	}
	if u.Hostname() == "" {
		return nil, &InvalidURLError{URL: rawURL, Reason: "missing host"}
	}
	return u, nil
}
