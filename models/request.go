package models

// PropertyInput is the editable property sent by the client when saving.
// It is usually an ExtractedPayload the user reviewed, plus the source URL
// and optional coordinates.
type PropertyInput struct {
	ExtractedPayload
	SourceURL string   `json:"sourceUrl"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// LinkConfig tunes the public link created on save.
type LinkConfig struct {
	ExpiresInDays *int `json:"expiresInDays,omitempty"`
}

// SaveRequest is the body of a property save.
type SaveRequest struct {
	Property          PropertyInput     `json:"property"`
	Images            []string          `json:"images"`
	BrandingProfileID string            `json:"brandingProfileId,omitempty"`
	BrandingOverride  *BrandingOverride `json:"brandingOverride,omitempty"`
	LinkConfig        *LinkConfig       `json:"linkConfig,omitempty"`
}

// SaveResult tells the client where the saved property can be reached.
type SaveResult struct {
	PropertyID string `json:"propertyId"`
	PublicURL  string `json:"publicUrl"`
	PDFURL     string `json:"pdfUrl"`
}
