package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dodoricogino/INMO-enlaces-PDF/events"
	"github.com/dodoricogino/INMO-enlaces-PDF/models"
	"github.com/dodoricogino/INMO-enlaces-PDF/scraper"
	"github.com/dodoricogino/INMO-enlaces-PDF/services"
	"github.com/dodoricogino/INMO-enlaces-PDF/storage"
)

const maxBodyBytes = 2 << 20

type handlers struct {
	deps Deps
}

// ExtractRequest is the body of POST /api/extract.
type ExtractRequest struct {
	URL string `json:"url"`
}

func (h *handlers) Health(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Extract handles POST /api/extract.
func (h *handlers) Extract(w http.ResponseWriter, r *http.Request) {
	logger := loggerFrom(r.Context(), h.deps.Logger).With("handler", "Extract")

	var req ExtractRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, scraper.KindInvalidURL, "body must be a JSON object with a url")
		return
	}

	retry := h.deps.Retry
	retry.Logger = logger
	if retry.Retryable == nil {
		retry.Retryable = scraper.Retryable
	}

	start := time.Now()
	var payload *models.ExtractedPayload
	err := retry.Do(r.Context(), "extract", func(ctx context.Context) error {
		p, err := h.deps.Extractor.Extract(ctx, req.URL)
		if err != nil {
			return err
		}
		payload = p
		return nil
	})
	h.announceExtraction(r, req.URL, err, time.Since(start))

	if err != nil {
		logger.Warn("extraction failed", "url", req.URL, "kind", scraper.Kind(err), "error", err)
		writeExtractError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, payload)
}

func (h *handlers) announceExtraction(r *http.Request, rawURL string, err error, took time.Duration) {
	var host string
	if u, perr := url.Parse(rawURL); perr == nil {
		host = u.Hostname()
	}
	ev := events.New(events.TypeExtraction, events.ListingExtracted{
		URL:       rawURL,
		Host:      host,
		ErrorKind: scraper.Kind(err),
		TookMs:    took.Milliseconds(),
	})
	if perr := h.deps.Publisher.Publish(r.Context(), ev); perr != nil {
		loggerFrom(r.Context(), h.deps.Logger).Warn("failed to publish event", "type", ev.Type, "error", perr)
	}
}

// SaveProperty handles POST /api/properties.
func (h *handlers) SaveProperty(w http.ResponseWriter, r *http.Request) {
	logger := loggerFrom(r.Context(), h.deps.Logger).With("handler", "SaveProperty")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		WriteJSONError(w, http.StatusRequestEntityTooLarge, "invalid_request", "body too large")
		return
	}
	req, err := services.ParseSaveRequest(bytes.TrimSpace(body))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.deps.Properties.Save(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			WriteJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		logger.Error("save property failed", "error", err)
		WriteJSONError(w, http.StatusInternalServerError, scraper.KindInternal, "could not save property")
		return
	}
	RespondWithJSON(w, http.StatusCreated, res)
}

// GetProperty handles GET /api/properties/{id}.
func (h *handlers) GetProperty(w http.ResponseWriter, r *http.Request) {
	prop, ok := h.loadProperty(w, r)
	if !ok {
		return
	}
	RespondWithJSON(w, http.StatusOK, prop)
}

// PropertyPDF handles GET /api/properties/{id}/pdf.
func (h *handlers) PropertyPDF(w http.ResponseWriter, r *http.Request) {
	logger := loggerFrom(r.Context(), h.deps.Logger).With("handler", "PropertyPDF")

	prop, ok := h.loadProperty(w, r)
	if !ok {
		return
	}
	branding, err := h.deps.Properties.Branding(r.Context(), prop)
	if err != nil {
		logger.Error("resolve branding failed", "property_id", prop.ID, "error", err)
		WriteJSONError(w, http.StatusInternalServerError, scraper.KindInternal, "could not resolve branding")
		return
	}
	pdf, err := h.deps.Brochures.Render(prop, branding)
	if err != nil {
		logger.Error("render brochure failed", "property_id", prop.ID, "error", err)
		WriteJSONError(w, http.StatusInternalServerError, scraper.KindInternal, "could not render brochure")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="propiedad-`+prop.ID+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *handlers) loadProperty(w http.ResponseWriter, r *http.Request) (*models.Property, bool) {
	id := chi.URLParam(r, "id")
	prop, err := h.deps.Properties.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "property not found")
		return nil, false
	}
	if err != nil {
		loggerFrom(r.Context(), h.deps.Logger).Error("load property failed", "property_id", id, "error", err)
		WriteJSONError(w, http.StatusInternalServerError, scraper.KindInternal, "could not load property")
		return nil, false
	}
	return prop, true
}

// PublicPage handles GET /p/{slug}.
func (h *handlers) PublicPage(w http.ResponseWriter, r *http.Request) {
	logger := loggerFrom(r.Context(), h.deps.Logger).With("handler", "PublicPage")
	slug := chi.URLParam(r, "slug")

	var buf bytes.Buffer
	status := http.StatusOK
	prop, branding, err := h.deps.Properties.PublicView(r.Context(), slug)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
		err = h.deps.Pages.RenderExpired(&buf, services.NotFoundTitle, services.NotFoundMessage)
	case errors.Is(err, services.ErrLinkExpired):
		status = http.StatusGone
		err = h.deps.Pages.RenderExpired(&buf, services.ExpiredTitle, services.ExpiredMessage)
	case err != nil:
		logger.Error("load public view failed", "slug", slug, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	default:
		err = h.deps.Pages.Render(&buf, prop, branding)
	}
	if err != nil {
		logger.Error("render public page failed", "slug", slug, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
