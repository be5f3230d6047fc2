package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dodoricogino/INMO-enlaces-PDF/models"
)

// MemoryStore keeps everything in process memory. It is safe for
// concurrent use and returns copies, so callers cannot mutate stored state.
type MemoryStore struct {
	mu        sync.RWMutex
	props     map[string]models.Property
	images    map[string][]models.PropertyImage
	links     map[string]models.PublicLink
	branding  map[string]models.BrandingProfile
	defaultID string
}

// NewMemoryStore creates a store seeded with the default branding profile.
func NewMemoryStore() *MemoryStore {
	id := uuid.NewString()
	s := &MemoryStore{
		props:     make(map[string]models.Property),
		images:    make(map[string][]models.PropertyImage),
		links:     make(map[string]models.PublicLink),
		branding:  make(map[string]models.BrandingProfile),
		defaultID: id,
	}
	s.branding[id] = defaultBrandingProfile(id, time.Now())
	return s
}

// AddBrandingProfile registers another profile.
func (s *MemoryStore) AddBrandingProfile(p models.BrandingProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branding[p.ID] = p
}

func (s *MemoryStore) SaveProperty(ctx context.Context, p *models.Property, images []models.PropertyImage, link *models.PublicLink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *p
	stored.Images = nil
	stored.Extras = append([]string(nil), p.Extras...)
	s.props[p.ID] = stored
	s.images[p.ID] = append([]models.PropertyImage(nil), images...)
	if link != nil {
		s.links[link.Slug] = *link
	}
	return nil
}

func (s *MemoryStore) GetProperty(ctx context.Context, id string) (*models.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.props[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Extras = append([]string(nil), p.Extras...)
	p.Images = append([]models.PropertyImage(nil), s.images[id]...)
	sort.SliceStable(p.Images, func(i, j int) bool { return p.Images[i].SortOrder < p.Images[j].SortOrder })
	return &p, nil
}

func (s *MemoryStore) GetPublicLink(ctx context.Context, slug string) (*models.PublicLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.links[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

func (s *MemoryStore) GetBrandingProfile(ctx context.Context, id string) (*models.BrandingProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.branding[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (s *MemoryStore) DefaultBrandingProfileID(context.Context) (string, error) {
	return s.defaultID, nil
}

// Close is a no-op; it exists to satisfy PropertyStore.
func (s *MemoryStore) Close() error { return nil }
