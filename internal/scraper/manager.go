package scraper

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// PluginManager admits dynamic artifacts into a registry and persists
// the accepted ones so they survive restarts.
//
// Admission is all-or-nothing. The artifact's rule sets are registered
// into a scratch registry first, and only the slugs that appear there
// afterwards count as the artifact's contribution; an artifact that
// contributes nothing, or whose slugs collide with anything already
// registered, is rejected with the live registry untouched.
type PluginManager struct {
	registry *Registry
	dir      string
	logger   *slog.Logger
}

// NewPluginManager creates a manager persisting accepted artifacts
// under dir. The directory is created on first save.
func NewPluginManager(registry *Registry, dir string, logger *slog.Logger) *PluginManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &PluginManager{registry: registry, dir: dir, logger: logger}
}

// Load parses, admits, and persists one artifact. It returns the slugs
// the artifact contributed. On any error the live registry is left
// exactly as it was.
func (m *PluginManager) Load(data []byte) ([]string, error) {
	slugs, err := m.admit(data)
	if err != nil {
		return nil, err
	}

	artifact, _ := ParseArtifact(data) // already validated by admit
	if err := m.persist(artifact); err != nil {
		for _, slug := range slugs {
			m.registry.Unregister(slug)
		}
		return nil, err
	}

	m.logger.Info("plugin artifact accepted", slog.Any("slugs", slugs))
	return slugs, nil
}

// admit validates the artifact and registers its rule sets.
func (m *PluginManager) admit(data []byte) ([]string, error) {
	artifact, err := ParseArtifact(data)
	if err != nil {
		return nil, err
	}

	// Dry run against a scratch registry. The diff of registered slugs
	// before and after is the artifact's contribution.
	scratch := NewRegistry()
	before := len(scratch.List())
	for _, rules := range artifact.Scrapers {
		if err := scratch.Register(NewRuleScraper(rules)); err != nil {
			return nil, err
		}
	}
	added := scratch.List()
	if len(added) == before {
		return nil, ErrEmptyArtifact
	}

	// Collisions with the live registry reject the whole artifact.
	for _, slug := range added {
		if _, err := m.registry.Lookup(slug); err == nil {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateScraper, slug)
		}
	}

	registered := make([]string, 0, len(artifact.Scrapers))
	for _, rules := range artifact.Scrapers {
		if err := m.registry.Register(NewRuleScraper(rules)); err != nil {
			for _, slug := range registered {
				m.registry.Unregister(slug)
			}
			return nil, err
		}
		registered = append(registered, rules.Slug)
	}
	return registered, nil
}

// persist writes each accepted rule set to <dir>/<slug>.yaml as a
// single-scraper artifact.
func (m *PluginManager) persist(artifact *Artifact) error {
	if err := os.MkdirAll(m.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create plugin directory: %w", err)
	}
	for _, rules := range artifact.Scrapers {
		single := Artifact{Version: artifact.Version, Scrapers: []RuleSet{rules}}
		data, err := yaml.Marshal(&single)
		if err != nil {
			return fmt.Errorf("failed to encode rule set %q: %w", rules.Slug, err)
		}
		path := filepath.Join(m.dir, rules.Slug+".yaml")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("failed to persist rule set %q: %w", rules.Slug, err)
		}
	}
	return nil
}

// LoadDir registers every persisted artifact in the plugin directory.
// A broken file is logged and skipped so one bad artifact cannot keep
// the rest from loading. A missing directory is not an error.
func (m *PluginManager) LoadDir() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read plugin directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(m.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			m.logger.Warn("failed to read plugin artifact",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		if _, err := m.admit(data); err != nil {
			m.logger.Warn("persisted plugin artifact rejected",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// Persisted returns the slugs of all persisted artifacts, sorted.
func (m *PluginManager) Persisted() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read plugin directory: %w", err)
	}

	var slugs []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		slugs = append(slugs, strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	sort.Strings(slugs)
	return slugs, nil
}

// Remove unregisters a dynamic slug and deletes its persisted file.
func (m *PluginManager) Remove(slug string) error {
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: slug %q must match %s", ErrInvalidArtifact, slug, slugPattern)
	}
	m.registry.Unregister(slug)
	path := filepath.Join(m.dir, slug+".yaml")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove plugin artifact: %w", err)
	}
	return nil
}

// Reload drops all persisted artifacts from the registry and loads the
// directory again. Called by the scheduler's reload trigger.
func (m *PluginManager) Reload() error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read plugin directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		m.registry.Unregister(strings.TrimSuffix(entry.Name(), ".yaml"))
	}
	return m.LoadDir()
}
