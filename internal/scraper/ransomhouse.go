package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/leakhound/leakhound/internal/model"
)

// RansomHouse parses the RansomHouse-style card grid: one card per
// victim with the company name in the card header and dates, size and
// description in labelled rows below it.
type RansomHouse struct{}

// NewRansomHouse creates the ransomhouse scraper.
func NewRansomHouse() *RansomHouse { return &RansomHouse{} }

// Name returns the registry slug.
func (s *RansomHouse) Name() string { return "ransomhouse" }

// ransomHouseDateLayout is the listing date format used on the cards.
const ransomHouseDateLayout = "02/01/2006"

// Run parses the victim card grid.
func (s *RansomHouse) Run(ctx context.Context, f Fetcher, cfg model.RunConfig) ([]model.LeakRecord, error) {
	doc, err := fetchDocument(ctx, f, cfg)
	if err != nil {
		return nil, err
	}

	var records []model.LeakRecord
	doc.Find(".card-body").Each(func(_ int, card *goquery.Selection) {
		company := cleanText(card.Find(".card-title").First().Text())
		if company == "" {
			return
		}

		record := model.LeakRecord{
			TargetID:    cfg.TargetID,
			Company:     company,
			Information: cleanText(card.Find(".card-text").First().Text()),
			FoundAt:     time.Now().UTC(),
		}

		href, _ := card.Find("a").First().Attr("href")
		record.SourceURL = resolveLink(cfg.URL, href)

		// Labelled detail rows: "Size: 120GB", "Date: 01/02/2026".
		card.Find(".card-detail, li").Each(func(_ int, row *goquery.Selection) {
			label, value, ok := strings.Cut(cleanText(row.Text()), ":")
			if !ok {
				return
			}
			value = strings.TrimSpace(value)
			switch strings.ToLower(strings.TrimSpace(label)) {
			case "size", "data":
				record.AmountOfData = value
			case "date", "published":
				if t, err := time.Parse(ransomHouseDateLayout, value); err == nil {
					record.PublicationDate = &t
					record.FoundAt = t
				}
			case "country":
				record.Country = value
			}
		})

		records = append(records, record)
	})

	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}
