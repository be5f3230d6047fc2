package scraper

import (
	"context"
	"time"

	"github.com/dodoricogino/INMO-enlaces-PDF/models"
	"github.com/dodoricogino/INMO-enlaces-PDF/services"
	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

// Extraction stages, logged as the handler moves through them.
const (
	stageRouting     = "routing"
	stageFetching    = "fetching"
	stageParsing     = "parsing"
	stageNormalizing = "normalizing"
	stageComplete    = "complete"
	stageFailed      = "failed"
)

// PortalHandler runs the fixed pipeline for one portal:
// render, extract fields, normalize, assemble.
type PortalHandler struct {
	selectors  *SelectorMap
	fetcher    Fetcher
	normalizer *services.Normalizer
	logger     *utils.Logger
}

// NewPortalHandler wires a handler for the portal described by sm.
func NewPortalHandler(sm *SelectorMap, fetcher Fetcher, normalizer *services.Normalizer, logger *utils.Logger) *PortalHandler {
	return &PortalHandler{
		selectors:  sm,
		fetcher:    fetcher,
		normalizer: normalizer,
		logger:     logger.With("portal", sm.Host, "selectors_version", sm.Version),
	}
}

// Selectors returns the handler's selector map.
func (h *PortalHandler) Selectors() *SelectorMap { return h.selectors }

// Extract fetches url and turns the page into a payload. Normalizing never
// fails; fetch and parse errors are returned as-is.
func (h *PortalHandler) Extract(ctx context.Context, url string) (*models.ExtractedPayload, error) {
	log := h.logger.With("url", url)
	start := time.Now()

	log.Debug("extraction stage", "stage", stageFetching)
	markup, err := h.fetcher.Render(ctx, url)
	if err != nil {
		log.Debug("extraction stage", "stage", stageFailed, "from", stageFetching, "error", err)
		return nil, err
	}

	log.Debug("extraction stage", "stage", stageParsing, "bytes", len(markup))
	draft, err := ExtractFields(markup, h.selectors)
	if err != nil {
		log.Debug("extraction stage", "stage", stageFailed, "from", stageParsing, "error", err)
		return nil, err
	}

	log.Debug("extraction stage", "stage", stageNormalizing)
	payload := h.normalizer.Normalize(draft)

	log.Debug("extraction stage", "stage", stageComplete, "took", time.Since(start))
	return payload, nil
}
