package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"

	"github.com/leakhound/leakhound/internal/model"
)

// Artifact is a dynamic plugin: one YAML document declaring one or
// more rule sets. Artifacts carry selectors and field mappings only;
// the interpretation is done by ruleScraper's fixed logic, so an
// artifact can never execute code.
type Artifact struct {
	Version  int       `yaml:"version"`
	Scrapers []RuleSet `yaml:"scrapers"`
}

// RuleSet declares how to parse one site layout.
type RuleSet struct {
	// Slug is the registry name. Must be unique across the registry.
	Slug string `yaml:"slug"`

	// NeedsRendering forces the browser-rendering fetch strategy.
	NeedsRendering bool `yaml:"needs_rendering,omitempty"`

	// WaitSelector is passed to the rendering strategy, when used.
	WaitSelector string `yaml:"wait_selector,omitempty"`

	// ListSelector matches one element per leak entry.
	ListSelector string `yaml:"list_selector"`

	// Fields maps record fields to selectors resolved within an entry.
	// Supported keys: company, country, information, comment,
	// amount_of_data, rar_password, views, publication_date.
	Fields map[string]string `yaml:"fields"`

	// DateLayout is the Go reference layout for publication_date
	// values. Defaults to "2006-01-02".
	DateLayout string `yaml:"date_layout,omitempty"`

	// LinkSelector and LinkAttr locate the per-entry source link.
	// Defaults: first "a" element, "href" attribute.
	LinkSelector string `yaml:"link_selector,omitempty"`
	LinkAttr     string `yaml:"link_attr,omitempty"`

	// DownloadSelector matches download links within an entry.
	DownloadSelector string `yaml:"download_selector,omitempty"`
}

// slugPattern constrains slugs to names safe to use as registry keys
// and as file names. Artifacts come from untrusted uploads, so slugs
// like "../escape" must never reach the persistence path.
var slugPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// validate checks that a rule set can actually produce records.
func (r *RuleSet) validate() error {
	if strings.TrimSpace(r.Slug) == "" {
		return fmt.Errorf("%w: rule set with empty slug", ErrInvalidArtifact)
	}
	if !slugPattern.MatchString(r.Slug) {
		return fmt.Errorf("%w: slug %q must match %s", ErrInvalidArtifact, r.Slug, slugPattern)
	}
	if r.ListSelector == "" {
		return fmt.Errorf("%w: %s: missing list_selector", ErrInvalidArtifact, r.Slug)
	}
	if r.Fields["company"] == "" {
		return fmt.Errorf("%w: %s: fields must map company", ErrInvalidArtifact, r.Slug)
	}
	return nil
}

// ParseArtifact parses and validates a YAML artifact. The artifact is
// rejected whole if any rule set is malformed or if it defines no
// scrapers at all.
func ParseArtifact(data []byte) (*Artifact, error) {
	var artifact Artifact
	if err := yaml.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArtifact, err)
	}
	if len(artifact.Scrapers) == 0 {
		return nil, ErrEmptyArtifact
	}

	seen := make(map[string]struct{}, len(artifact.Scrapers))
	for i := range artifact.Scrapers {
		rs := &artifact.Scrapers[i]
		if err := rs.validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[rs.Slug]; dup {
			return nil, fmt.Errorf("%w: duplicate slug %q within artifact", ErrInvalidArtifact, rs.Slug)
		}
		seen[rs.Slug] = struct{}{}
	}
	return &artifact, nil
}

// ruleScraper interprets one RuleSet. It satisfies Scraper so rule
// sets and built-ins are indistinguishable to the orchestrator.
type ruleScraper struct {
	rules RuleSet
}

// NewRuleScraper creates a scraper driven by the given rule set.
func NewRuleScraper(rules RuleSet) Scraper {
	return &ruleScraper{rules: rules}
}

func (s *ruleScraper) Name() string { return s.rules.Slug }

func (s *ruleScraper) Run(ctx context.Context, f Fetcher, cfg model.RunConfig) ([]model.LeakRecord, error) {
	if s.rules.NeedsRendering {
		cfg.NeedsRendering = true
	}
	if cfg.WaitSelector == "" {
		cfg.WaitSelector = s.rules.WaitSelector
	}

	doc, err := fetchDocument(ctx, f, cfg)
	if err != nil {
		return nil, err
	}

	var records []model.LeakRecord
	doc.Find(s.rules.ListSelector).Each(func(_ int, entry *goquery.Selection) {
		record, ok := s.parseEntry(entry, cfg)
		if ok {
			records = append(records, record)
		}
	})
	return records, nil
}

func (s *ruleScraper) parseEntry(entry *goquery.Selection, cfg model.RunConfig) (model.LeakRecord, bool) {
	field := func(name string) string {
		sel, ok := s.rules.Fields[name]
		if !ok || sel == "" {
			return ""
		}
		return cleanText(entry.Find(sel).First().Text())
	}

	company := field("company")
	if company == "" {
		return model.LeakRecord{}, false
	}

	record := model.LeakRecord{
		TargetID:     cfg.TargetID,
		Company:      company,
		Country:      field("country"),
		Information:  field("information"),
		Comment:      field("comment"),
		AmountOfData: field("amount_of_data"),
		RarPassword:  field("rar_password"),
		FoundAt:      time.Now().UTC(),
	}

	if raw := field("views"); raw != "" {
		var n int
		if _, err := fmt.Sscanf(raw, "%d", &n); err == nil {
			record.Views = &n
		}
	}

	if raw := field("publication_date"); raw != "" {
		layout := s.rules.DateLayout
		if layout == "" {
			layout = "2006-01-02"
		}
		if t, err := time.Parse(layout, raw); err == nil {
			record.PublicationDate = &t
			record.FoundAt = t
		}
	}

	linkSel := s.rules.LinkSelector
	if linkSel == "" {
		linkSel = "a"
	}
	linkAttr := s.rules.LinkAttr
	if linkAttr == "" {
		linkAttr = "href"
	}
	href, _ := entry.Find(linkSel).First().Attr(linkAttr)
	record.SourceURL = resolveLink(cfg.URL, href)

	if s.rules.DownloadSelector != "" {
		entry.Find(s.rules.DownloadSelector).Each(func(_ int, a *goquery.Selection) {
			if href, ok := a.Attr("href"); ok && href != "" {
				record.DownloadLinks = append(record.DownloadLinks, resolveLink(cfg.URL, href))
			}
		})
	}

	return record, true
}
