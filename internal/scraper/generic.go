package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/leakhound/leakhound/internal/model"
	"github.com/leakhound/leakhound/internal/tor"
)

// Generic is a best-effort scraper for leak sites with no dedicated
// plugin. It probes a list of layout heuristics in order and parses
// the first one that matches anything. The records it produces are
// coarser than a dedicated scraper's but good enough for keyword
// matching until one is written.
type Generic struct{}

// NewGeneric creates the generic scraper.
func NewGeneric() *Generic { return &Generic{} }

// Name returns the registry slug.
func (s *Generic) Name() string { return "generic" }

// genericLayouts are tried in order of specificity. The title selector
// is resolved within each entry; an empty title skips the entry.
var genericLayouts = []struct {
	entry string
	title string
}{
	{entry: ".post", title: ".post-title"},
	{entry: ".card", title: ".card-title"},
	{entry: "article", title: "h1, h2, h3"},
	{entry: ".leak, .victim", title: "h1, h2, h3, .title, .name"},
	{entry: "li", title: "a"},
}

// Run probes the layout heuristics and parses the first match.
// Unlike the dedicated scrapers, an empty result is returned as-is:
// the generic scraper has no grounds to call an empty page suspicious.
func (s *Generic) Run(ctx context.Context, f Fetcher, cfg model.RunConfig) ([]model.LeakRecord, error) {
	doc, err := fetchDocument(ctx, f, cfg)
	if err != nil {
		return nil, err
	}

	for _, layout := range genericLayouts {
		records := s.parseLayout(doc, cfg, layout.entry, layout.title)
		if len(records) > 0 {
			return records, nil
		}
	}
	return nil, nil
}

func (s *Generic) parseLayout(doc *goquery.Document, cfg model.RunConfig, entrySel, titleSel string) []model.LeakRecord {
	var records []model.LeakRecord
	doc.Find(entrySel).Each(func(_ int, entry *goquery.Selection) {
		company := cleanText(entry.Find(titleSel).First().Text())
		if company == "" {
			return
		}

		record := model.LeakRecord{
			TargetID: cfg.TargetID,
			Company:  company,
			FoundAt:  time.Now().UTC(),
		}

		href, _ := entry.Find("a").First().Attr("href")
		record.SourceURL = resolveLink(cfg.URL, href)

		// Everything but the title becomes the description, capped so a
		// page-sized blob does not end up in one field.
		info := strings.TrimSpace(strings.TrimPrefix(cleanText(entry.Text()), company))
		if len(info) > 2000 {
			info = info[:2000]
		}
		record.Information = info

		// Leak entries often list onion mirrors in running text. Keep
		// the ones that pass checksum validation as download links.
		for _, addr := range tor.ExtractV3Addresses(entry.Text()) {
			if tor.IsValidV3Address(addr) {
				record.DownloadLinks = append(record.DownloadLinks, "http://"+addr+"/")
			}
		}

		records = append(records, record)
	})
	return records
}
