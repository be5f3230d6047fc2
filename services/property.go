package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"

	"github.com/dodoricogino/INMO-enlaces-PDF/events"
	"github.com/dodoricogino/INMO-enlaces-PDF/models"
	"github.com/dodoricogino/INMO-enlaces-PDF/storage"
	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

var (
	// ErrInvalidRequest wraps every validation failure of a save request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrLinkExpired means the public link exists but may not be served.
	ErrLinkExpired = errors.New("public link expired")
)

const (
	slugLength       = 8
	geohashPrecision = 9
)

// PropertyConfig configures a PropertyService.
type PropertyConfig struct {
	Store     storage.PropertyStore
	Publisher events.Publisher
	Logger    *utils.Logger
	// LinkTTLDays is the public link lifetime when a save gives none.
	LinkTTLDays int
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// PropertyService saves reviewed listings and serves them back.
type PropertyService struct {
	store     storage.PropertyStore
	publisher events.Publisher
	logger    *utils.Logger
	linkTTL   int
	now       func() time.Time
}

func NewPropertyService(cfg PropertyConfig) *PropertyService {
	s := &PropertyService{
		store:     cfg.Store,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		linkTTL:   cfg.LinkTTLDays,
		now:       cfg.Now,
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.logger == nil {
		s.logger = utils.NewNopLogger()
	}
	if s.linkTTL <= 0 {
		s.linkTTL = 30
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ParseSaveRequest validates body against the save schema and decodes it.
func ParseSaveRequest(body []byte) (*models.SaveRequest, error) {
	if err := models.ValidateSaveRequest(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	var req models.SaveRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return &req, nil
}

// Save stores the property, its ordered images and a new public link,
// then announces it. A publish failure is logged, not returned.
func (s *PropertyService) Save(ctx context.Context, req *models.SaveRequest) (*models.SaveResult, error) {
	if (req.Property.Latitude == nil) != (req.Property.Longitude == nil) {
		return nil, fmt.Errorf("%w: latitude and longitude must be given together", ErrInvalidRequest)
	}

	brandingID := req.BrandingProfileID
	if brandingID == "" {
		id, err := s.store.DefaultBrandingProfileID(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve default branding: %w", err)
		}
		brandingID = id
	} else if _, err := s.store.GetBrandingProfile(ctx, brandingID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown branding profile %q", ErrInvalidRequest, brandingID)
		}
		return nil, fmt.Errorf("load branding profile: %w", err)
	}

	now := s.now()
	in := req.Property
	prop := &models.Property{
		ID:                uuid.NewString(),
		UserID:            storage.DemoUserID,
		BrandingProfileID: brandingID,
		SourceURL:         in.SourceURL,
		Title:             in.Title,
		Description:       in.Description,
		Price:             in.Price,
		Currency:          in.Currency,
		Address:           in.Address,
		Latitude:          in.Latitude,
		Longitude:         in.Longitude,
		Bedrooms:          in.Bedrooms,
		Bathrooms:         in.Bathrooms,
		Parking:           in.Parking,
		BuiltArea:         in.BuiltArea,
		LandArea:          in.LandArea,
		Extras:            append([]string{}, in.Extras...),
		BrandingOverride:  req.BrandingOverride,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.Latitude != nil && in.Longitude != nil {
		prop.Geohash = geohash.EncodeWithPrecision(*in.Latitude, *in.Longitude, geohashPrecision)
	}

	urls := req.Images
	if len(urls) == 0 {
		urls = in.Images
	}
	images := make([]models.PropertyImage, 0, len(urls))
	for i, u := range urls {
		images = append(images, models.PropertyImage{
			ID:         uuid.NewString(),
			PropertyID: prop.ID,
			URL:        u,
			SortOrder:  i,
		})
	}

	days := s.linkTTL
	if req.LinkConfig != nil && req.LinkConfig.ExpiresInDays != nil {
		days = *req.LinkConfig.ExpiresInDays
	}
	link := &models.PublicLink{
		ID:         uuid.NewString(),
		PropertyID: prop.ID,
		Slug:       uuid.NewString()[:slugLength],
		ExpiresAt:  now.AddDate(0, 0, days),
		IsActive:   true,
		CreatedAt:  now,
	}

	if err := s.store.SaveProperty(ctx, prop, images, link); err != nil {
		return nil, fmt.Errorf("save property: %w", err)
	}
	s.logger.Info("property saved", "property_id", prop.ID, "slug", link.Slug, "images", len(images))

	ev := events.New(events.TypePropertySaved, events.PropertySaved{
		PropertyID: prop.ID,
		SourceURL:  prop.SourceURL,
		Slug:       link.Slug,
		ExpiresAt:  link.ExpiresAt,
		Geohash:    prop.Geohash,
	})
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event", "type", ev.Type, "error", err)
	}

	return &models.SaveResult{
		PropertyID: prop.ID,
		PublicURL:  "/p/" + link.Slug,
		PDFURL:     "/api/properties/" + prop.ID + "/pdf",
	}, nil
}

// Get returns a stored property with its images.
func (s *PropertyService) Get(ctx context.Context, id string) (*models.Property, error) {
	return s.store.GetProperty(ctx, id)
}

// Branding resolves the profile for p with its override applied. A missing
// profile falls back to the default one.
func (s *PropertyService) Branding(ctx context.Context, p *models.Property) (models.BrandingProfile, error) {
	if id := p.BrandingProfileID; id != "" {
		profile, err := s.store.GetBrandingProfile(ctx, id)
		if err == nil {
			return p.BrandingOverride.Apply(*profile), nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return models.BrandingProfile{}, fmt.Errorf("load branding profile: %w", err)
		}
		s.logger.Warn("branding profile missing, using default", "property_id", p.ID, "branding_id", id)
	}

	defaultID, err := s.store.DefaultBrandingProfileID(ctx)
	if err != nil {
		return models.BrandingProfile{}, fmt.Errorf("resolve default branding: %w", err)
	}
	profile, err := s.store.GetBrandingProfile(ctx, defaultID)
	if err != nil {
		return models.BrandingProfile{}, fmt.Errorf("load default branding profile: %w", err)
	}
	return p.BrandingOverride.Apply(*profile), nil
}

// PublicView returns what the public page for slug shows. Unknown slugs
// give storage.ErrNotFound, inactive or past-expiry links ErrLinkExpired.
func (s *PropertyService) PublicView(ctx context.Context, slug string) (*models.Property, models.BrandingProfile, error) {
	link, err := s.store.GetPublicLink(ctx, slug)
	if err != nil {
		return nil, models.BrandingProfile{}, err
	}
	if link.Expired(s.now()) {
		return nil, models.BrandingProfile{}, ErrLinkExpired
	}

	prop, err := s.store.GetProperty(ctx, link.PropertyID)
	if err != nil {
		return nil, models.BrandingProfile{}, err
	}
	branding, err := s.Branding(ctx, prop)
	if err != nil {
		return nil, models.BrandingProfile{}, err
	}
	return prop, branding, nil
}
