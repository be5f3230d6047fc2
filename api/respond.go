package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dodoricogino/INMO-enlaces-PDF/scraper"
)

// statusClientClosed is reported when the caller went away mid-request.
const statusClientClosed = 499

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RespondWithJSON writes payload as JSON with the given status.
func RespondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteJSONError writes an ErrorResponse.
func WriteJSONError(w http.ResponseWriter, status int, kind, message string) {
	RespondWithJSON(w, status, ErrorResponse{Kind: kind, Message: message})
}

// extractStatus maps an extraction failure to its HTTP status.
func extractStatus(err error) int {
	switch scraper.Kind(err) {
	case scraper.KindInvalidURL:
		return http.StatusBadRequest
	case scraper.KindUnsupportedPortal:
		return http.StatusUnprocessableEntity
	case scraper.KindNavigation, scraper.KindMalformedMarkup:
		return http.StatusBadGateway
	case scraper.KindTimeout:
		return http.StatusGatewayTimeout
	case scraper.KindCancelled:
		return statusClientClosed
	default:
		return http.StatusInternalServerError
	}
}

// writeExtractError reports err with its descriptor kind. Internal errors
// hide their message.
func writeExtractError(w http.ResponseWriter, err error) {
	status := extractStatus(err)
	kind := scraper.Kind(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		kind = scraper.KindInternal
		msg = "internal error"
	}
	var unsupported *scraper.UnsupportedPortalError
	if errors.As(err, &unsupported) {
		msg = "no handler registered for host " + unsupported.Host
	}
	WriteJSONError(w, status, kind, msg)
}
