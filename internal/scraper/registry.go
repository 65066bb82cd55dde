package scraper

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps slugs to scrapers. It is constructor-injected wherever
// scrapers are resolved; there is no package-level default registry.
//
// Design decision: registration conflicts are hard errors rather than
// last-writer-wins. A silently replaced scraper would keep producing
// records under the old slug's targets with nobody noticing.
type Registry struct {
	mu       sync.RWMutex
	scrapers map[string]Scraper
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{scrapers: make(map[string]Scraper)}
}

// Register adds a scraper under its own slug. It returns
// ErrDuplicateScraper if the slug is already taken.
func (r *Registry) Register(s Scraper) error {
	slug := s.Name()
	if slug == "" {
		return fmt.Errorf("%w: empty slug", ErrInvalidArtifact)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scrapers[slug]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateScraper, slug)
	}
	r.scrapers[slug] = s
	return nil
}

// Lookup returns the scraper registered under slug, or
// ErrScraperNotFound.
func (r *Registry) Lookup(slug string) (Scraper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scrapers[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrScraperNotFound, slug)
	}
	return s, nil
}

// Unregister removes the scraper registered under slug. Removing an
// unknown slug is a no-op.
func (r *Registry) Unregister(slug string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scrapers, slug)
}

// List returns all registered slugs in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slugs := make([]string, 0, len(r.scrapers))
	for slug := range r.scrapers {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}
