package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/leakhound/leakhound/internal/model"
)

// fakeStorage serves canned rows to the digest builder.
type fakeStorage struct {
	targets []model.Target
	leaks   map[int64][]model.LeakRecord
	metrics map[int64][]model.RunMetric
	watches []model.Watch
	total   int

	leaksErr error
}

func (f *fakeStorage) ListTargets(_ context.Context) ([]model.Target, error) {
	return f.targets, nil
}

func (f *fakeStorage) ListLeaksByTarget(_ context.Context, targetID int64) ([]model.LeakRecord, error) {
	if f.leaksErr != nil {
		return nil, f.leaksErr
	}
	return f.leaks[targetID], nil
}

func (f *fakeStorage) ListRunMetrics(_ context.Context, targetID int64) ([]model.RunMetric, error) {
	return f.metrics[targetID], nil
}

func (f *fakeStorage) ListWatches(_ context.Context) ([]model.Watch, error) {
	return f.watches, nil
}

func (f *fakeStorage) CountLeaks(_ context.Context) (int, error) {
	return f.total, nil
}

// createTestDigest creates a digest with sample data for testing.
func createTestDigest() *Digest {
	found := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	lastRun := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	return &Digest{
		GeneratedAt: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		TotalLeaks:  3,
		WatchCount:  1,
		Targets: []TargetDigest{
			{
				Target: model.Target{
					ID:      1,
					Name:    "ransomhouse",
					URL:     "http://xw7au5pnwtl6lozbsudkmyd32n6gnqdngitjdppybudan3x3pjgpmpid.onion",
					Kind:    model.SourceWebsite,
					Scraper: "ransomhouse",
					Enabled: true,
				},
				Leaks: []model.LeakRecord{
					{
						ID:           11,
						TargetID:     1,
						Company:      "Acme Logistics",
						Country:      "DE",
						FoundAt:      found,
						SourceURL:    "http://example.onion/post/acme",
						AmountOfData: "120GB",
						Information:  "Full ERP export including invoices, HR records, and customer contracts",
					},
					{
						ID:       12,
						TargetID: 1,
						Company:  "Globex",
						FoundAt:  found,
					},
				},
				RunsTotal: 4,
				LastRun:   &lastRun,
			},
			{
				Target: model.Target{
					ID:      2,
					Name:    "playnews",
					URL:     "http://k7kg3jqxang3wh7hnmaiokchk7qoebupfgoik6rha6mjpzwupwtj25yd.onion",
					Kind:    model.SourceWebsite,
					Scraper: "playnews",
					Enabled: false,
				},
				RunsTotal:  2,
				RunsFailed: 2,
			},
		},
	}
}

// TestBuilder tests digest assembly from stored rows.
func TestBuilder(t *testing.T) {
	t.Parallel()

	t.Run("assembles per-target digests with run health", func(t *testing.T) {
		t.Parallel()

		run1 := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
		run2 := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
		storage := &fakeStorage{
			targets: []model.Target{
				{ID: 1, Name: "ransomhouse", Enabled: true},
				{ID: 2, Name: "playnews"},
			},
			leaks: map[int64][]model.LeakRecord{
				1: {{ID: 11, TargetID: 1, Company: "Acme"}},
			},
			metrics: map[int64][]model.RunMetric{
				1: {
					{TargetID: 1, Timestamp: run2},
					{TargetID: 1, Timestamp: run1, PermFail: true},
				},
				2: {{TargetID: 2, Timestamp: run1, PermFail: true}},
			},
			watches: []model.Watch{{ID: 1, UserID: 7, Keyword: "acme"}},
			total:   1,
		}

		digest, err := NewBuilder(storage).Build(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(digest.Targets) != 2 {
			t.Fatalf("expected 2 target digests, got %d", len(digest.Targets))
		}
		if digest.TotalLeaks != 1 {
			t.Errorf("expected total 1, got %d", digest.TotalLeaks)
		}
		if digest.WatchCount != 1 {
			t.Errorf("expected 1 watch, got %d", digest.WatchCount)
		}

		first := digest.Targets[0]
		if first.RunsTotal != 2 || first.RunsFailed != 1 {
			t.Errorf("expected 2 runs with 1 failure, got %d/%d", first.RunsTotal, first.RunsFailed)
		}
		if first.LastRun == nil || !first.LastRun.Equal(run2) {
			t.Errorf("expected last run %v, got %v", run2, first.LastRun)
		}

		failing := digest.FailingTargets()
		if len(failing) != 1 || failing[0] != "playnews" {
			t.Errorf("expected playnews to be failing, got %v", failing)
		}
	})

	t.Run("propagates storage errors", func(t *testing.T) {
		t.Parallel()

		storage := &fakeStorage{
			targets:  []model.Target{{ID: 1, Name: "ransomhouse"}},
			leaksErr: errors.New("disk gone"),
		}

		if _, err := NewBuilder(storage).Build(context.Background()); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}

// TestSimpleWriter tests the human-readable digest writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and totals", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		_, err := w.Write(createTestDigest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "LEAKHOUND DIGEST") {
			t.Error("expected output to contain header")
		}
		if !strings.Contains(output, "Leak Records: 3") {
			t.Error("expected output to contain total record count")
		}
	})

	t.Run("writes target records", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		_, err := w.Write(createTestDigest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "TARGET: ransomhouse") {
			t.Error("expected output to contain target section")
		}
		if !strings.Contains(output, "Acme Logistics") {
			t.Error("expected output to contain record company")
		}
		if !strings.Contains(output, "[DE]") {
			t.Error("expected output to contain record country")
		}
		if !strings.Contains(output, "(120GB)") {
			t.Error("expected output to contain record size")
		}
	})

	t.Run("hides empty targets by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		_, err := w.Write(createTestDigest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if strings.Contains(buf.String(), "TARGET: playnews") {
			t.Error("expected target with no records to be hidden")
		}
	})

	t.Run("shows empty targets when configured", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithShowEmpty(true))

		_, err := w.Write(createTestDigest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "TARGET: playnews") {
			t.Error("expected empty target section to be shown")
		}
	})

	t.Run("verbose output includes record details", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))

		_, err := w.Write(createTestDigest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "http://example.onion/post/acme") {
			t.Error("expected verbose output to contain source URL")
		}
		if !strings.Contains(output, "Full ERP export") {
			t.Error("expected verbose output to contain information text")
		}
	})

	t.Run("warns about failing targets", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		_, err := w.Write(createTestDigest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "failing every run: playnews") {
			t.Error("expected failing-target warning in footer")
		}
	})
}

// TestJSONWriter tests the JSON digest writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid compact JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		n, err := w.Write(createTestDigest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}

		var decoded Digest
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.TotalLeaks != 3 {
			t.Errorf("expected total 3, got %d", decoded.TotalLeaks)
		}
		if len(decoded.Targets) != 2 {
			t.Errorf("expected 2 targets, got %d", len(decoded.Targets))
		}
	})

	t.Run("pretty print indents output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		_, err := w.Write(createTestDigest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "\n  \"targets\"") {
			t.Error("expected indented output")
		}
	})
}

// TestMarkdownWriter tests the Markdown digest writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and overview table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		_, err := w.Write(createTestDigest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "# LeakHound Digest") {
			t.Error("expected H1 header")
		}
		if !strings.Contains(output, "| ransomhouse |") {
			t.Error("expected overview table row for ransomhouse")
		}
	})

	t.Run("writes record tables and pie chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		_, err := w.Write(createTestDigest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "### ransomhouse") {
			t.Error("expected per-target records section")
		}
		if !strings.Contains(output, "Acme Logistics") {
			t.Error("expected record row")
		}
		if !strings.Contains(output, "```mermaid") {
			t.Error("expected mermaid pie chart block")
		}
	})

	t.Run("empty digest renders placeholders", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		_, err := w.Write(&Digest{GeneratedAt: time.Now()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "No targets registered.") {
			t.Error("expected empty-targets placeholder")
		}
		if !strings.Contains(output, "No leak records stored.") {
			t.Error("expected empty-records placeholder")
		}
	})
}

// TestMultiWriter tests fan-out to multiple writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, js bytes.Buffer
	w := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

	total, err := w.Write(createTestDigest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if total != text.Len()+js.Len() {
		t.Errorf("expected total %d, got %d", text.Len()+js.Len(), total)
	}
	if !strings.Contains(text.String(), "LEAKHOUND DIGEST") {
		t.Error("expected text output")
	}
	if !json.Valid(js.Bytes()) {
		t.Error("expected valid JSON output")
	}
}

// TestTruncateString tests the table cell truncation helper.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "short string unchanged", input: "abc", maxLen: 10, want: "abc"},
		{name: "exact length unchanged", input: "abcde", maxLen: 5, want: "abcde"},
		{name: "long string gets ellipsis", input: "abcdefghij", maxLen: 8, want: "abcde..."},
		{name: "tiny budget hard cut", input: "abcdef", maxLen: 2, want: "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := truncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}
