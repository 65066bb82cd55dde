package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/leakhound/leakhound/internal/model"
)

// Telegram parses a channel's public web preview (t.me/s/<channel>).
// The preview is server-rendered HTML, so the regular fetch engine
// serves it; no messaging API session is involved. Channels that
// disabled the preview are out of reach for this scraper and need a
// dedicated collector.
type Telegram struct{}

// NewTelegram creates the telegram scraper.
func NewTelegram() *Telegram { return &Telegram{} }

// Name returns the registry slug.
func (s *Telegram) Name() string { return "telegram" }

// Run fetches the channel preview and turns each message into a record:
// the channel title as the company, the message text as the
// information, the message permalink as the source.
func (s *Telegram) Run(ctx context.Context, f Fetcher, cfg model.RunConfig) ([]model.LeakRecord, error) {
	cfg.URL = previewURL(cfg.URL)

	doc, err := fetchDocument(ctx, f, cfg)
	if err != nil {
		return nil, err
	}

	channel := cleanText(doc.Find(".tgme_channel_info_header_title").First().Text())

	var records []model.LeakRecord
	doc.Find(".tgme_widget_message").Each(func(_ int, msg *goquery.Selection) {
		text := cleanText(msg.Find(".tgme_widget_message_text").First().Text())
		if text == "" {
			return
		}

		company := channel
		if company == "" {
			company = cleanText(msg.Find(".tgme_widget_message_owner_name").First().Text())
		}
		if company == "" {
			return
		}

		if len(text) > 2000 {
			text = text[:2000]
		}
		record := model.LeakRecord{
			TargetID:    cfg.TargetID,
			Company:     company,
			Information: text,
			FoundAt:     time.Now().UTC(),
		}

		href, _ := msg.Find("a.tgme_widget_message_date").First().Attr("href")
		record.SourceURL = resolveLink(cfg.URL, href)

		if stamp, ok := msg.Find("time").First().Attr("datetime"); ok {
			if t, err := time.Parse(time.RFC3339, stamp); err == nil {
				t = t.UTC()
				record.PublicationDate = &t
				record.FoundAt = t
			}
		}

		records = append(records, record)
	})

	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}

// previewURL rewrites a channel URL to its public preview form:
// t.me/name becomes t.me/s/name. URLs already in preview form, and
// hosts other than Telegram's, pass through untouched.
func previewURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := u.Hostname()
	if host != "t.me" && host != "telegram.me" {
		return raw
	}
	if strings.HasPrefix(u.Path, "/s/") {
		return raw
	}
	u.Path = "/s" + u.Path
	return u.String()
}
