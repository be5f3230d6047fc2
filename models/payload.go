package models

// TitlePlaceholder is used when a page carries no recognisable title.
const TitlePlaceholder = "Título no encontrado"

// Draft holds the raw, uncoerced values pulled out of a rendered page.
// Nothing in a Draft has been parsed yet; the normalizer turns it into an
// ExtractedPayload.
type Draft struct {
	Title       string
	Price       string
	Description string
	Address     string
	Bedrooms    string
	Bathrooms   string
	Parking     string
	BuiltArea   string
	LandArea    string
	Extras      []string
	Images      []string
}

// ExtractedPayload is the normalized description of one listing.
// Optional numeric fields are nil when the source value was missing or
// could not be parsed; they are never NaN and never silently zero.
type ExtractedPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       *float64 `json:"price,omitempty"`
	Currency    *string  `json:"currency,omitempty"`
	Address     string   `json:"address"`
	Bedrooms    *int     `json:"bedrooms,omitempty"`
	Bathrooms   *int     `json:"bathrooms,omitempty"`
	Parking     *int     `json:"parking,omitempty"`
	BuiltArea   *float64 `json:"builtArea,omitempty"`
	LandArea    *float64 `json:"landArea,omitempty"`
	Extras      []string `json:"extras"`
	Images      []string `json:"images"`
}
