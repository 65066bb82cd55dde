package scraper

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/leakhound/leakhound/internal/model"
)

// PlayNews parses the Play-style news board. The listing is built
// client-side, so the scraper forces the rendering strategy and waits
// for the topic elements to appear. Each topic carries the victim name
// as its first text line, a views counter, and added/publication
// dates in labelled spans.
type PlayNews struct{}

// NewPlayNews creates the playnews scraper.
func NewPlayNews() *PlayNews { return &PlayNews{} }

// Name returns the registry slug.
func (s *PlayNews) Name() string { return "playnews" }

const playNewsDateLayout = "2006-01-02"

// Run renders the board and parses its topics.
func (s *PlayNews) Run(ctx context.Context, f Fetcher, cfg model.RunConfig) ([]model.LeakRecord, error) {
	cfg.NeedsRendering = true
	if cfg.WaitSelector == "" {
		cfg.WaitSelector = "th.News"
	}

	doc, err := fetchDocument(ctx, f, cfg)
	if err != nil {
		return nil, err
	}

	var records []model.LeakRecord
	doc.Find("th.News").Each(func(_ int, topic *goquery.Selection) {
		// The victim name is the topic's first text line; the rest of
		// the cell holds the labelled metadata.
		text := strings.TrimSpace(topic.Text())
		lines := strings.Split(text, "\n")
		if len(lines) == 0 {
			return
		}
		company := cleanText(lines[0])
		if company == "" {
			return
		}

		record := model.LeakRecord{
			TargetID:  cfg.TargetID,
			Company:   company,
			SourceURL: cfg.URL,
			FoundAt:   time.Now().UTC(),
		}

		for _, line := range lines[1:] {
			label, value, ok := strings.Cut(cleanText(line), ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch strings.ToLower(strings.TrimSpace(label)) {
			case "views":
				if n, err := strconv.Atoi(value); err == nil {
					record.Views = &n
				}
			case "added":
				if t, err := time.Parse(playNewsDateLayout, value); err == nil {
					record.FoundAt = t
				}
			case "publication date":
				if t, err := time.Parse(playNewsDateLayout, value); err == nil {
					record.PublicationDate = &t
				}
			case "information":
				record.Information = value
			case "comment":
				record.Comment = value
			case "amount of data":
				record.AmountOfData = value
			}
		}

		records = append(records, record)
	})

	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}
