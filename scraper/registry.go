package scraper

import (
	"context"
	"fmt"
	"sort"

	"github.com/dodoricogino/INMO-enlaces-PDF/models"
	"github.com/dodoricogino/INMO-enlaces-PDF/services"
	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

// Handler extracts a listing from one portal.
type Handler interface {
	Extract(ctx context.Context, url string) (*models.ExtractedPayload, error)
}

// Registry maps hostnames to handlers. It is built once at startup and
// never modified afterwards, so concurrent lookups need no locking.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry copies handlers into a new registry.
func NewRegistry(handlers map[string]Handler) *Registry {
	m := make(map[string]Handler, len(handlers))
	for host, h := range handlers {
		m[host] = h
	}
	return &Registry{handlers: m}
}

// Lookup matches host exactly, case included.
func (r *Registry) Lookup(host string) (Handler, bool) {
	h, ok := r.handlers[host]
	return h, ok
}

// Hosts returns the registered hostnames in sorted order.
func (r *Registry) Hosts() []string {
	hosts := make([]string, 0, len(r.handlers))
	for host := range r.handlers {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

// BuildRegistry creates one PortalHandler per selector map, picking the
// fetcher from the map's render mode.
func BuildRegistry(maps []*SelectorMap, fetchers FetcherSet, logger *utils.Logger) (*Registry, error) {
	normalizer := services.NewNormalizer(logger.With("component", "normalizer"))
	handlers := make(map[string]Handler, len(maps))

	for _, sm := range maps {
		if _, dup := handlers[sm.Host]; dup {
			return nil, fmt.Errorf("duplicate selector map for host %q", sm.Host)
		}
		fetcher := fetchers.For(sm.Render)
		if fetcher == nil {
			return nil, fmt.Errorf("portal %q: no fetcher for render mode %q", sm.Host, sm.Render)
		}
		handlers[sm.Host] = NewPortalHandler(sm, fetcher, normalizer, logger)
		logger.Debug("portal registered", "host", sm.Host, "version", sm.Version, "render", sm.Render)
	}

	return NewRegistry(handlers), nil
}
