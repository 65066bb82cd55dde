package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/leakhound/leakhound/internal/model"
)

// Akira parses the Akira-style terminal board. The page imitates a
// shell session rendered client-side, so the scraper forces rendering.
// Each leak is a table row: date, victim, description, and a cell of
// magnet or HTTP download links.
type Akira struct{}

// NewAkira creates the akira scraper.
func NewAkira() *Akira { return &Akira{} }

// Name returns the registry slug.
func (s *Akira) Name() string { return "akira" }

const akiraDateLayout = "02 Jan 2006"

// Run renders the terminal board and parses its rows.
func (s *Akira) Run(ctx context.Context, f Fetcher, cfg model.RunConfig) ([]model.LeakRecord, error) {
	cfg.NeedsRendering = true
	if cfg.WaitSelector == "" {
		cfg.WaitSelector = "table tr"
	}

	doc, err := fetchDocument(ctx, f, cfg)
	if err != nil {
		return nil, err
	}

	var records []model.LeakRecord
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		company := cleanText(cells.Eq(1).Text())
		if company == "" {
			return
		}

		record := model.LeakRecord{
			TargetID:    cfg.TargetID,
			Company:     company,
			Information: cleanText(cells.Eq(2).Text()),
			SourceURL:   cfg.URL,
			FoundAt:     time.Now().UTC(),
		}

		if t, err := time.Parse(akiraDateLayout, cleanText(cells.Eq(0).Text())); err == nil {
			record.FoundAt = t
			record.PublicationDate = &t
		}

		// The last cell lists the download links. Magnet URIs appear as
		// bare text, HTTP mirrors as anchors.
		links := cells.Eq(cells.Length() - 1)
		links.Find("a").Each(func(_ int, a *goquery.Selection) {
			if href, ok := a.Attr("href"); ok && href != "" {
				record.DownloadLinks = append(record.DownloadLinks, resolveLink(cfg.URL, href))
			}
		})
		for _, field := range strings.Fields(links.Text()) {
			if strings.HasPrefix(field, "magnet:?") {
				record.DownloadLinks = append(record.DownloadLinks, field)
			}
		}

		records = append(records, record)
	})

	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}
