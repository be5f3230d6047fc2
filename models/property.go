package models

import "time"

// BrandingProfile is the agency identity printed on brochures and public pages.
type BrandingProfile struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Name           string    `json:"name"`
	LogoURL        string    `json:"logoUrl,omitempty"`
	PrimaryColor   string    `json:"primaryColor,omitempty"`
	HeaderTitle    string    `json:"headerTitle,omitempty"`
	HeaderSubtitle string    `json:"headerSubtitle,omitempty"`
	AgentName      string    `json:"agentName,omitempty"`
	AgentRole      string    `json:"agentRole,omitempty"`
	AgentPhone     string    `json:"agentPhone,omitempty"`
	AgentWhatsapp  string    `json:"agentWhatsapp,omitempty"`
	AgentEmail     string    `json:"agentEmail,omitempty"`
	AgentWebsite   string    `json:"agentWebsite,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// BrandingOverride carries per-property tweaks layered over a profile.
// Empty fields leave the profile value untouched.
type BrandingOverride struct {
	LogoURL        string `json:"logoUrl,omitempty"`
	PrimaryColor   string `json:"primaryColor,omitempty"`
	HeaderTitle    string `json:"headerTitle,omitempty"`
	HeaderSubtitle string `json:"headerSubtitle,omitempty"`
	AgentName      string `json:"agentName,omitempty"`
	AgentRole      string `json:"agentRole,omitempty"`
	AgentPhone     string `json:"agentPhone,omitempty"`
	AgentWhatsapp  string `json:"agentWhatsapp,omitempty"`
	AgentEmail     string `json:"agentEmail,omitempty"`
	AgentWebsite   string `json:"agentWebsite,omitempty"`
}

// Apply returns a copy of p with the non-empty override fields applied.
func (o *BrandingOverride) Apply(p BrandingProfile) BrandingProfile {
	if o == nil {
		return p
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&p.LogoURL, o.LogoURL)
	set(&p.PrimaryColor, o.PrimaryColor)
	set(&p.HeaderTitle, o.HeaderTitle)
	set(&p.HeaderSubtitle, o.HeaderSubtitle)
	set(&p.AgentName, o.AgentName)
	set(&p.AgentRole, o.AgentRole)
	set(&p.AgentPhone, o.AgentPhone)
	set(&p.AgentWhatsapp, o.AgentWhatsapp)
	set(&p.AgentEmail, o.AgentEmail)
	set(&p.AgentWebsite, o.AgentWebsite)
	return p
}

// Property is a saved listing owned by a user.
type Property struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId"`
	BrandingProfileID string            `json:"brandingProfileId,omitempty"`
	SourceURL         string            `json:"sourceUrl"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Price             *float64          `json:"price,omitempty"`
	Currency          *string           `json:"currency,omitempty"`
	Address           string            `json:"address,omitempty"`
	Latitude          *float64          `json:"latitude,omitempty"`
	Longitude         *float64          `json:"longitude,omitempty"`
	Geohash           string            `json:"geohash,omitempty"`
	Bedrooms          *int              `json:"bedrooms,omitempty"`
	Bathrooms         *int              `json:"bathrooms,omitempty"`
	Parking           *int              `json:"parking,omitempty"`
	BuiltArea         *float64          `json:"builtArea,omitempty"`
	LandArea          *float64          `json:"landArea,omitempty"`
	Extras            []string          `json:"extras,omitempty"`
	BrandingOverride  *BrandingOverride `json:"brandingOverride,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
	Images            []PropertyImage   `json:"images,omitempty"`
}

// PropertyImage is one gallery photo; SortOrder keeps the source order.
type PropertyImage struct {
	ID         string `json:"id"`
	PropertyID string `json:"propertyId"`
	URL        string `json:"url"`
	SortOrder  int    `json:"sortOrder"`
}

// PublicLink exposes a property on a shareable, expiring URL.
type PublicLink struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"propertyId"`
	Slug       string    `json:"slug"`
	Token      string    `json:"token,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Expired reports whether the link can no longer be served at now.
func (l *PublicLink) Expired(now time.Time) bool {
	return !l.IsActive || l.ExpiresAt.Before(now)
}
