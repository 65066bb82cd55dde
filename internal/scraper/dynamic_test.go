package scraper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const lockbitArtifact = `version: 1
scrapers:
  - slug: lockbit
    list_selector: ".post-block"
    wait_selector: ".post-block"
    fields:
      company: ".post-title"
      information: ".post-block-text"
      amount_of_data: ".post-size"
      publication_date: ".post-timer"
    date_layout: "02 Jan, 2006"
    download_selector: "a.download"
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseArtifact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{
			name:    "valid artifact",
			data:    lockbitArtifact,
			wantErr: nil,
		},
		{
			name:    "malformed yaml",
			data:    "scrapers: [slug: unclosed",
			wantErr: ErrInvalidArtifact,
		},
		{
			name:    "no scrapers",
			data:    "version: 1\nscrapers: []\n",
			wantErr: ErrEmptyArtifact,
		},
		{
			name: "empty slug",
			data: `scrapers:
  - slug: ""
    list_selector: ".x"
    fields: {company: ".y"}
`,
			wantErr: ErrInvalidArtifact,
		},
		{
			name: "path traversal slug",
			data: `scrapers:
  - slug: "../escape"
    list_selector: ".x"
    fields: {company: ".y"}
`,
			wantErr: ErrInvalidArtifact,
		},
		{
			name: "uppercase slug",
			data: `scrapers:
  - slug: "LockBit"
    list_selector: ".x"
    fields: {company: ".y"}
`,
			wantErr: ErrInvalidArtifact,
		},
		{
			name: "missing list selector",
			data: `scrapers:
  - slug: x
    fields: {company: ".y"}
`,
			wantErr: ErrInvalidArtifact,
		},
		{
			name: "missing company field",
			data: `scrapers:
  - slug: x
    list_selector: ".x"
    fields: {information: ".y"}
`,
			wantErr: ErrInvalidArtifact,
		},
		{
			name: "duplicate slug within artifact",
			data: `scrapers:
  - slug: x
    list_selector: ".a"
    fields: {company: ".t"}
  - slug: x
    list_selector: ".b"
    fields: {company: ".t"}
`,
			wantErr: ErrInvalidArtifact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseArtifact([]byte(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseArtifact() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRuleScraperRun(t *testing.T) {
	t.Parallel()

	artifact, err := ParseArtifact([]byte(lockbitArtifact))
	if err != nil {
		t.Fatal(err)
	}
	s := NewRuleScraper(artifact.Scrapers[0])

	if s.Name() != "lockbit" {
		t.Errorf("Name() = %q, want lockbit", s.Name())
	}

	fetcher := &cannedFetcher{body: `<html><body>
		<div class="post-block">
			<div class="post-title">Hooli</div>
			<div class="post-block-text">Customer database and emails.</div>
			<div class="post-size">88GB</div>
			<div class="post-timer">21 Aug, 2026</div>
			<a href="/post/hooli">open</a>
			<a class="download" href="http://files.example.onion/hooli.7z">download</a>
		</div>
		<div class="post-block">
			<div class="post-title"></div>
		</div>
	</body></html>`}

	records, err := s.Run(context.Background(), fetcher, testRunConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Run() returned %d records, want 1 (entries without a company are skipped)", len(records))
	}

	record := records[0]
	if record.Company != "Hooli" {
		t.Errorf("Company = %q, want Hooli", record.Company)
	}
	if record.AmountOfData != "88GB" {
		t.Errorf("AmountOfData = %q, want 88GB", record.AmountOfData)
	}
	if record.PublicationDate == nil {
		t.Error("PublicationDate should be parsed with the artifact's layout")
	}
	if record.SourceURL != "http://leaks.example.onion/post/hooli" {
		t.Errorf("SourceURL = %q, want resolved entry link", record.SourceURL)
	}
	if !reflect.DeepEqual(record.DownloadLinks, []string{"http://files.example.onion/hooli.7z"}) {
		t.Errorf("DownloadLinks = %v", record.DownloadLinks)
	}

	if fetcher.got.WaitSelector != ".post-block" {
		t.Errorf("wait selector = %q, want artifact's", fetcher.got.WaitSelector)
	}
}

func TestPluginManagerLoad(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	dir := t.TempDir()
	mgr := NewPluginManager(reg, dir, discardLogger())

	slugs, err := mgr.Load([]byte(lockbitArtifact))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(slugs, []string{"lockbit"}) {
		t.Errorf("Load() slugs = %v, want [lockbit]", slugs)
	}

	if _, err := reg.Lookup("lockbit"); err != nil {
		t.Errorf("Lookup() after Load error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "lockbit.yaml")); err != nil {
		t.Errorf("accepted artifact not persisted: %v", err)
	}
}

func TestPluginManagerRejectsLeaveRegistryUnchanged(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	if err := reg.Register(&namedScraper{slug: "lockbit"}); err != nil {
		t.Fatal(err)
	}
	mgr := NewPluginManager(reg, t.TempDir(), discardLogger())

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{
			name:    "no scrapers registered",
			data:    "version: 1\nscrapers: []\n",
			wantErr: ErrEmptyArtifact,
		},
		{
			name:    "slug collides with live registry",
			data:    lockbitArtifact,
			wantErr: ErrDuplicateScraper,
		},
		{
			name: "partially valid artifact rejected whole",
			data: `scrapers:
  - slug: fresh
    list_selector: ".a"
    fields: {company: ".t"}
  - slug: ""
    list_selector: ".b"
    fields: {company: ".t"}
`,
			wantErr: ErrInvalidArtifact,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := reg.List()

			_, err := mgr.Load([]byte(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if after := reg.List(); !reflect.DeepEqual(before, after) {
				t.Errorf("registry changed on rejected artifact: %v -> %v", before, after)
			}
		})
	}
}

func TestPluginManagerRejectsTraversalSlug(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "plugins")
	reg := NewRegistry()
	mgr := NewPluginManager(reg, dir, discardLogger())

	data := `scrapers:
  - slug: "../escape"
    list_selector: ".a"
    fields: {company: ".t"}
`
	if _, err := mgr.Load([]byte(data)); !errors.Is(err, ErrInvalidArtifact) {
		t.Fatalf("Load() error = %v, want ErrInvalidArtifact", err)
	}
	if got := reg.List(); len(got) != 0 {
		t.Errorf("registry = %v after rejected artifact, want empty", got)
	}
	// Nothing may be written outside the plugin directory.
	if _, err := os.Stat(filepath.Join(root, "escape.yaml")); !os.IsNotExist(err) {
		t.Error("traversal slug escaped the plugin directory")
	}

	if err := mgr.Remove("../escape"); !errors.Is(err, ErrInvalidArtifact) {
		t.Errorf("Remove() error = %v, want ErrInvalidArtifact", err)
	}
}

func TestPluginManagerLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// Persist through one manager, then load from scratch through another.
	if _, err := NewPluginManager(NewRegistry(), dir, discardLogger()).Load([]byte(lockbitArtifact)); err != nil {
		t.Fatal(err)
	}
	// A broken file must not block the valid ones.
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("scrapers: [nope"), 0o600); err != nil {
		t.Fatal(err)
	}

	reg := NewRegistry()
	mgr := NewPluginManager(reg, dir, discardLogger())
	if err := mgr.LoadDir(); err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if _, err := reg.Lookup("lockbit"); err != nil {
		t.Errorf("Lookup() after LoadDir error = %v", err)
	}
}

func TestPluginManagerRemove(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	dir := t.TempDir()
	mgr := NewPluginManager(reg, dir, discardLogger())

	if _, err := mgr.Load([]byte(lockbitArtifact)); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Remove("lockbit"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := reg.Lookup("lockbit"); !errors.Is(err, ErrScraperNotFound) {
		t.Errorf("Lookup() after Remove error = %v, want ErrScraperNotFound", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "lockbit.yaml")); !os.IsNotExist(err) {
		t.Error("persisted artifact should be deleted on Remove")
	}
}
