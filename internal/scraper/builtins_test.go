package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/leakhound/leakhound/internal/model"
)

// cannedFetcher returns a fixed document and records the run config it
// was asked to fetch.
type cannedFetcher struct {
	body string
	err  error
	got  model.RunConfig
}

func (f *cannedFetcher) Fetch(_ context.Context, cfg model.RunConfig) (string, error) {
	f.got = cfg
	return f.body, f.err
}

func testRunConfig() model.RunConfig {
	return model.RunConfig{
		TargetID: 7,
		Kind:     model.SourceWebsite,
		URL:      "http://leaks.example.onion/",
	}
}

func TestRansomHouseRun(t *testing.T) {
	t.Parallel()

	fetcher := &cannedFetcher{body: `<html><body>
		<div class="card-body">
			<h5 class="card-title">ACME Corp</h5>
			<p class="card-text">Internal documents and HR records.</p>
			<ul>
				<li>Size: 120GB</li>
				<li>Date: 15/08/2026</li>
				<li>Country: DE</li>
			</ul>
			<a href="/leak/acme-corp">details</a>
		</div>
		<div class="card-body">
			<h5 class="card-title">Globex</h5>
			<p class="card-text">Source code.</p>
			<a href="/leak/globex">details</a>
		</div>
	</body></html>`}

	records, err := NewRansomHouse().Run(context.Background(), fetcher, testRunConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Run() returned %d records, want 2", len(records))
	}

	first := records[0]
	if first.Company != "ACME Corp" {
		t.Errorf("Company = %q, want ACME Corp", first.Company)
	}
	if first.AmountOfData != "120GB" {
		t.Errorf("AmountOfData = %q, want 120GB", first.AmountOfData)
	}
	if first.Country != "DE" {
		t.Errorf("Country = %q, want DE", first.Country)
	}
	if first.SourceURL != "http://leaks.example.onion/leak/acme-corp" {
		t.Errorf("SourceURL = %q, want resolved link", first.SourceURL)
	}
	if first.PublicationDate == nil {
		t.Error("PublicationDate should be parsed from the Date row")
	}
	if first.TargetID != 7 {
		t.Errorf("TargetID = %d, want 7", first.TargetID)
	}
}

func TestRansomHouseEmptyPage(t *testing.T) {
	t.Parallel()

	fetcher := &cannedFetcher{body: "<html><body><p>maintenance</p></body></html>"}
	_, err := NewRansomHouse().Run(context.Background(), fetcher, testRunConfig())
	if !errors.Is(err, ErrNoRecords) {
		t.Errorf("Run() error = %v, want ErrNoRecords", err)
	}
}

func TestPlayNewsRun(t *testing.T) {
	t.Parallel()

	fetcher := &cannedFetcher{body: `<html><body><table>
		<tr><th class="News">Initech
views: 1042
added: 2026-08-01
publication date: 2026-08-20
information: Finance and payroll data
amount of data: 37GB
comment: full dump soon</th></tr>
	</table></body></html>`}

	records, err := NewPlayNews().Run(context.Background(), fetcher, testRunConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Run() returned %d records, want 1", len(records))
	}

	record := records[0]
	if record.Company != "Initech" {
		t.Errorf("Company = %q, want Initech", record.Company)
	}
	if record.Views == nil || *record.Views != 1042 {
		t.Errorf("Views = %v, want 1042", record.Views)
	}
	if record.Information != "Finance and payroll data" {
		t.Errorf("Information = %q", record.Information)
	}
	if record.PublicationDate == nil {
		t.Error("PublicationDate should be parsed")
	}

	// The board is script-generated; the scraper must force rendering.
	if !fetcher.got.NeedsRendering {
		t.Error("playnews should force the rendering strategy")
	}
	if fetcher.got.WaitSelector == "" {
		t.Error("playnews should set a wait selector")
	}
}

func TestAkiraRun(t *testing.T) {
	t.Parallel()

	fetcher := &cannedFetcher{body: `<html><body><table>
		<tr><th>date</th><th>name</th><th>desc</th><th>files</th></tr>
		<tr>
			<td>12 Jul 2026</td>
			<td>Umbrella Ltd</td>
			<td>Research archives, 500k files</td>
			<td>magnet:?xt=urn:btih:abc123 <a href="http://mirror.example.onion/u.rar">mirror</a></td>
		</tr>
	</table></body></html>`}

	records, err := NewAkira().Run(context.Background(), fetcher, testRunConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Run() returned %d records, want 1", len(records))
	}

	record := records[0]
	if record.Company != "Umbrella Ltd" {
		t.Errorf("Company = %q, want Umbrella Ltd", record.Company)
	}
	if len(record.DownloadLinks) != 2 {
		t.Fatalf("DownloadLinks = %v, want magnet + mirror", record.DownloadLinks)
	}
	if record.PublicationDate == nil {
		t.Error("PublicationDate should be parsed from the date cell")
	}
	if !fetcher.got.NeedsRendering {
		t.Error("akira should force the rendering strategy")
	}
}

func TestGenericRun(t *testing.T) {
	t.Parallel()

	t.Run("matches card layout", func(t *testing.T) {
		t.Parallel()

		fetcher := &cannedFetcher{body: `<html><body>
			<div class="card"><h5 class="card-title">Wayne Enterprises</h5>
			<p>Blueprints and contracts leaked.</p>
			<a href="/w">more</a></div>
		</body></html>`}

		records, err := NewGeneric().Run(context.Background(), fetcher, testRunConfig())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("Run() returned %d records, want 1", len(records))
		}
		if records[0].Company != "Wayne Enterprises" {
			t.Errorf("Company = %q", records[0].Company)
		}
		if records[0].Information == "" {
			t.Error("Information should carry the entry body")
		}
	})

	t.Run("onion mirrors become download links", func(t *testing.T) {
		t.Parallel()

		// Same mirror twice plus one with a corrupted checksum.
		fetcher := &cannedFetcher{body: `<html><body>
			<div class="card"><h5 class="card-title">Wayne Enterprises</h5>
			<p>Mirror: aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaam2dqd.onion
			backup aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaam2dqd.onion
			dead aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaam2dqe.onion</p>
			<a href="/w">more</a></div>
		</body></html>`}

		records, err := NewGeneric().Run(context.Background(), fetcher, testRunConfig())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("Run() returned %d records, want 1", len(records))
		}
		want := []string{"http://aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaam2dqd.onion/"}
		if len(records[0].DownloadLinks) != 1 || records[0].DownloadLinks[0] != want[0] {
			t.Errorf("DownloadLinks = %v, want %v (deduplicated, checksum-valid only)", records[0].DownloadLinks, want)
		}
	})

	t.Run("empty page is not an error", func(t *testing.T) {
		t.Parallel()

		fetcher := &cannedFetcher{body: "<html><body></body></html>"}
		records, err := NewGeneric().Run(context.Background(), fetcher, testRunConfig())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(records) != 0 {
			t.Errorf("Run() returned %d records, want 0", len(records))
		}
	})

	t.Run("fetch error propagates", func(t *testing.T) {
		t.Parallel()

		fetchErr := errors.New("circuit build failed")
		fetcher := &cannedFetcher{err: fetchErr}
		if _, err := NewGeneric().Run(context.Background(), fetcher, testRunConfig()); !errors.Is(err, fetchErr) {
			t.Errorf("Run() error = %v, want fetch error", err)
		}
	})
}

func TestTelegramRun(t *testing.T) {
	t.Parallel()

	t.Run("parses channel preview", func(t *testing.T) {
		t.Parallel()

		fetcher := &cannedFetcher{body: `<html><body>
			<div class="tgme_channel_info_header_title">DarkLeaks Channel</div>
			<div class="tgme_widget_message">
				<div class="tgme_widget_message_text">ACME Corp database, 40GB, samples inside</div>
				<a class="tgme_widget_message_date" href="https://t.me/darkleaks/101">
					<time datetime="2026-02-01T10:30:00+00:00"></time>
				</a>
			</div>
			<div class="tgme_widget_message">
				<div class="tgme_widget_message_text"></div>
			</div>
		</body></html>`}

		cfg := testRunConfig()
		cfg.URL = "https://t.me/darkleaks"
		cfg.Kind = model.SourceTelegram

		records, err := NewTelegram().Run(context.Background(), fetcher, cfg)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("Run() returned %d records, want 1 (empty message skipped)", len(records))
		}
		if records[0].Company != "DarkLeaks Channel" {
			t.Errorf("Company = %q, want channel title", records[0].Company)
		}
		if records[0].SourceURL != "https://t.me/darkleaks/101" {
			t.Errorf("SourceURL = %q, want message permalink", records[0].SourceURL)
		}
		if records[0].PublicationDate == nil || records[0].PublicationDate.Day() != 1 {
			t.Errorf("PublicationDate = %v, want message timestamp", records[0].PublicationDate)
		}
		// The fetcher must have been pointed at the preview form.
		if fetcher.got.URL != "https://t.me/s/darkleaks" {
			t.Errorf("fetched %q, want preview url", fetcher.got.URL)
		}
	})

	t.Run("channel without preview is suspicious", func(t *testing.T) {
		t.Parallel()

		fetcher := &cannedFetcher{body: "<html><body><div>Preview unavailable</div></body></html>"}
		if _, err := NewTelegram().Run(context.Background(), fetcher, testRunConfig()); !errors.Is(err, ErrNoRecords) {
			t.Errorf("Run() error = %v, want ErrNoRecords", err)
		}
	})
}

func TestPreviewURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"channel url", "https://t.me/darkleaks", "https://t.me/s/darkleaks"},
		{"already preview", "https://t.me/s/darkleaks", "https://t.me/s/darkleaks"},
		{"telegram.me host", "https://telegram.me/darkleaks", "https://telegram.me/s/darkleaks"},
		{"other host untouched", "http://leaks.example.onion/feed", "http://leaks.example.onion/feed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := previewURL(tt.in); got != tt.want {
				t.Errorf("previewURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
