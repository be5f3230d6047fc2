package storage

import (
	"context"
	"errors"

	"github.com/dodoricogino/INMO-enlaces-PDF/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("storage: not found")

// PropertyStore is the interface any property backend must satisfy.
type PropertyStore interface {
	// SaveProperty stores a property with its images and public link as one unit.
	SaveProperty(ctx context.Context, p *models.Property, images []models.PropertyImage, link *models.PublicLink) error
	// GetProperty returns the property with its images in sort order.
	GetProperty(ctx context.Context, id string) (*models.Property, error)
	GetPublicLink(ctx context.Context, slug string) (*models.PublicLink, error)
	GetBrandingProfile(ctx context.Context, id string) (*models.BrandingProfile, error)
	// DefaultBrandingProfileID names the profile used when a save gives none.
	DefaultBrandingProfileID(ctx context.Context) (string, error)
	Close() error
}

// ResultWriter is the interface for persisting batch extraction results.
type ResultWriter interface {
	Write(results []*models.ExtractionResult) error
	Close() error
}
