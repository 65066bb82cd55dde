package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leakhound/leakhound/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testTarget(name, url string) *model.Target {
	return &model.Target{
		Name:             name,
		URL:              url,
		Kind:             model.SourceWebsite,
		Scraper:          "generic",
		Enabled:          true,
		FrequencyMinutes: 60,
	}
}

func testLeak(targetID int64, company, sourceURL string) *model.LeakRecord {
	return &model.LeakRecord{
		TargetID:    targetID,
		Company:     company,
		SourceURL:   sourceURL,
		Information: "internal documents",
		FoundAt:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestOpenMissingDatabase(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.CreateIfNotExists = false
	if _, err := Open(t.TempDir(), opts); err == nil {
		t.Error("Open() should fail when the database does not exist")
	}
}

func TestTargetCRUD(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	target := testTarget("ransomhouse", "http://rh.example.onion/")
	target.Bypass = &model.BypassPolicy{RotateUserAgent: true}
	target.Credentials = &model.Credentials{Username: "watcher", Password: "hunter2"}

	if err := s.CreateTarget(ctx, target); err != nil {
		t.Fatalf("CreateTarget() error = %v", err)
	}
	if target.ID == 0 {
		t.Fatal("CreateTarget() did not assign an ID")
	}

	got, err := s.GetTarget(ctx, target.ID)
	if err != nil {
		t.Fatalf("GetTarget() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetTarget() returned nil for existing target")
	}
	if got.Name != "ransomhouse" || got.Kind != model.SourceWebsite {
		t.Errorf("GetTarget() = %+v", got)
	}
	if got.Bypass == nil || !got.Bypass.RotateUserAgent {
		t.Error("bypass policy not round-tripped")
	}
	if got.Credentials == nil || got.Credentials.Password != "hunter2" {
		t.Error("credentials not round-tripped")
	}

	got.FrequencyMinutes = 15
	if err := s.UpdateTarget(ctx, got); err != nil {
		t.Fatalf("UpdateTarget() error = %v", err)
	}
	updated, err := s.GetTarget(ctx, target.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.FrequencyMinutes != 15 {
		t.Errorf("FrequencyMinutes = %d after update, want 15", updated.FrequencyMinutes)
	}

	if err := s.DeleteTarget(ctx, target.ID); err != nil {
		t.Fatalf("DeleteTarget() error = %v", err)
	}
	gone, err := s.GetTarget(ctx, target.ID)
	if err != nil {
		t.Fatal(err)
	}
	if gone != nil {
		t.Error("GetTarget() should return nil after delete")
	}
}

func TestTargetDuplicateName(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateTarget(ctx, testTarget("akira", "http://a.example.onion/")); err != nil {
		t.Fatal(err)
	}
	err := s.CreateTarget(ctx, testTarget("akira", "http://b.example.onion/"))
	if !errors.Is(err, ErrDuplicateTarget) {
		t.Errorf("CreateTarget() error = %v, want ErrDuplicateTarget", err)
	}
}

func TestTargetURLUniquenessIsGlobal(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	first := testTarget("first", "http://one.example.onion/")
	second := testTarget("second", "http://two.example.onion/")
	if err := s.CreateTarget(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateTarget(ctx, second); err != nil {
		t.Fatal(err)
	}

	// Registering the same URL on another target must fail.
	if err := s.AddTargetURL(ctx, second.ID, "http://one.example.onion/"); !errors.Is(err, ErrDuplicateURL) {
		t.Errorf("AddTargetURL() error = %v, want ErrDuplicateURL", err)
	}

	// Creating a target whose primary URL collides must leave nothing behind.
	err := s.CreateTarget(ctx, testTarget("third", "http://one.example.onion/"))
	if !errors.Is(err, ErrDuplicateURL) {
		t.Fatalf("CreateTarget() error = %v, want ErrDuplicateURL", err)
	}
	ghost, err := s.GetTargetByName(ctx, "third")
	if err != nil {
		t.Fatal(err)
	}
	if ghost != nil {
		t.Error("target row should be rolled back on URL collision")
	}
}

func TestTargetURLsFallBackToPrimary(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	target := testTarget("mirrors", "http://main.example.onion/")
	if err := s.CreateTarget(ctx, target); err != nil {
		t.Fatal(err)
	}

	urls, err := s.TargetURLs(ctx, target.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 1 || urls[0] != "http://main.example.onion/" {
		t.Errorf("TargetURLs() = %v, want primary URL", urls)
	}

	if err := s.AddTargetURL(ctx, target.ID, "http://mirror.example.onion/"); err != nil {
		t.Fatal(err)
	}
	urls, err = s.TargetURLs(ctx, target.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 2 {
		t.Errorf("TargetURLs() = %v, want primary + mirror", urls)
	}

	// Removing all registered URLs falls back to the primary again.
	if err := s.RemoveTargetURL(ctx, target.ID, "http://main.example.onion/"); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveTargetURL(ctx, target.ID, "http://mirror.example.onion/"); err != nil {
		t.Fatal(err)
	}
	urls, err = s.TargetURLs(ctx, target.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 1 || urls[0] != "http://main.example.onion/" {
		t.Errorf("TargetURLs() = %v, want fallback to primary", urls)
	}
}

func TestTargetChangeHook(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	var calls atomic.Int32
	s.SetTargetChangeHook(func() { calls.Add(1) })

	target := testTarget("hooked", "http://h.example.onion/")
	if err := s.CreateTarget(ctx, target); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTargetEnabled(ctx, target.ID, false); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTarget(ctx, target.ID); err != nil {
		t.Fatal(err)
	}

	if got := calls.Load(); got != 3 {
		t.Errorf("change hook fired %d times, want 3", got)
	}
}

func TestUpsertTargetByName(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	target := testTarget("seeded", "http://s.example.onion/")
	if err := s.UpsertTargetByName(ctx, target); err != nil {
		t.Fatalf("UpsertTargetByName() error = %v", err)
	}
	firstID := target.ID

	changed := testTarget("seeded", "http://s.example.onion/")
	changed.FrequencyMinutes = 5
	if err := s.UpsertTargetByName(ctx, changed); err != nil {
		t.Fatalf("second UpsertTargetByName() error = %v", err)
	}
	if changed.ID != firstID {
		t.Errorf("upsert created a new row: id %d != %d", changed.ID, firstID)
	}

	got, err := s.GetTarget(ctx, firstID)
	if err != nil {
		t.Fatal(err)
	}
	if got.FrequencyMinutes != 5 {
		t.Errorf("FrequencyMinutes = %d, want updated value 5", got.FrequencyMinutes)
	}
}

func TestInsertLeakDeduplicates(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	var hookCalls atomic.Int32
	s.SetLeakHook(func(_ context.Context, record model.LeakRecord) {
		if record.ID == 0 {
			t.Error("hook received record without ID")
		}
		hookCalls.Add(1)
	})

	leak := testLeak(1, "ACME Corp", "http://rh.example.onion/leak/acme")
	created, err := s.InsertLeak(ctx, leak)
	if err != nil {
		t.Fatalf("InsertLeak() error = %v", err)
	}
	if !created {
		t.Fatal("first InsertLeak() should create")
	}
	if leak.ID == 0 {
		t.Fatal("InsertLeak() did not assign an ID")
	}

	// Same identity again: silent no-op, no hook.
	dup := testLeak(1, "ACME Corp", "http://rh.example.onion/leak/acme")
	dup.Information = "different text, same identity"
	created, err = s.InsertLeak(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate InsertLeak() error = %v", err)
	}
	if created {
		t.Error("duplicate InsertLeak() reported created=true")
	}

	// Same identity from another target still collides on
	// (company, source_url).
	other := testLeak(2, "ACME Corp", "http://rh.example.onion/leak/acme")
	created, err = s.InsertLeak(ctx, other)
	if err != nil {
		t.Fatalf("cross-target InsertLeak() error = %v", err)
	}
	if created {
		t.Error("cross-target duplicate reported created=true")
	}

	if got := hookCalls.Load(); got != 1 {
		t.Errorf("leak hook fired %d times, want 1 (new rows only)", got)
	}

	count, err := s.CountLeaks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("CountLeaks() = %d, want 1", count)
	}
}

func TestLeakRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	views := 420
	pub := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	leak := &model.LeakRecord{
		TargetID:        3,
		Company:         "Globex",
		Country:         "FR",
		FoundAt:         time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC),
		SourceURL:       "http://g.example.onion/post/1",
		Views:           &views,
		PublicationDate: &pub,
		AmountOfData:    "37GB",
		Information:     "finance data",
		Comment:         "full dump soon",
		DownloadLinks:   []string{"magnet:?xt=urn:btih:abc", "http://m.example.onion/g.rar"},
		RarPassword:     "s3cret",
	}
	if _, err := s.InsertLeak(ctx, leak); err != nil {
		t.Fatal(err)
	}

	got, err := s.FindLeak(ctx, "Globex", "http://g.example.onion/post/1")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("FindLeak() returned nil")
	}
	if got.Views == nil || *got.Views != 420 {
		t.Errorf("Views = %v, want 420", got.Views)
	}
	if got.PublicationDate == nil || !got.PublicationDate.Equal(pub) {
		t.Errorf("PublicationDate = %v, want %v", got.PublicationDate, pub)
	}
	if len(got.DownloadLinks) != 2 {
		t.Errorf("DownloadLinks = %v", got.DownloadLinks)
	}
	if got.RarPassword != "s3cret" {
		t.Errorf("RarPassword = %q", got.RarPassword)
	}
	if !got.FoundAt.Equal(leak.FoundAt) {
		t.Errorf("FoundAt = %v, want %v", got.FoundAt, leak.FoundAt)
	}
}

func TestSearchLeaks(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	seed := []*model.LeakRecord{
		testLeak(1, "ACME Corp", "http://x.example.onion/1"),
		testLeak(1, "Globex", "http://x.example.onion/2"),
	}
	seed[1].Comment = "mentions acme partners"
	for _, leak := range seed {
		if _, err := s.InsertLeak(ctx, leak); err != nil {
			t.Fatal(err)
		}
	}

	// Case-insensitive, matches company and comment fields.
	results, err := s.SearchLeaks(ctx, "ACME")
	if err != nil {
		t.Fatalf("SearchLeaks() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("SearchLeaks(ACME) returned %d records, want 2", len(results))
	}

	results, err = s.SearchLeaks(ctx, "globex")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("SearchLeaks(globex) returned %d records, want 1", len(results))
	}

	// LIKE wildcards in the query are literal text.
	results, err = s.SearchLeaks(ctx, "%")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("SearchLeaks(%%) returned %d records, want 0", len(results))
	}
}

func TestWatchDuplicate(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateWatch(ctx, 1, "acme"); err != nil {
		t.Fatalf("CreateWatch() error = %v", err)
	}
	if _, err := s.CreateWatch(ctx, 1, "acme"); !errors.Is(err, ErrDuplicateWatch) {
		t.Errorf("duplicate CreateWatch() error = %v, want ErrDuplicateWatch", err)
	}

	// Another user may watch the same keyword.
	if _, err := s.CreateWatch(ctx, 2, "acme"); err != nil {
		t.Errorf("CreateWatch() for other user error = %v", err)
	}
}

func TestGetOrCreateAlert(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	watch, err := s.CreateWatch(ctx, 1, "acme")
	if err != nil {
		t.Fatal(err)
	}
	leak := testLeak(1, "ACME Corp", "http://x.example.onion/1")
	if _, err := s.InsertLeak(ctx, leak); err != nil {
		t.Fatal(err)
	}

	alert, created, err := s.GetOrCreateAlert(ctx, 1, watch.ID, leak.ID)
	if err != nil {
		t.Fatalf("GetOrCreateAlert() error = %v", err)
	}
	if !created {
		t.Error("first GetOrCreateAlert() should create")
	}

	again, created, err := s.GetOrCreateAlert(ctx, 1, watch.ID, leak.ID)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("second GetOrCreateAlert() should not create")
	}
	if again.ID != alert.ID {
		t.Errorf("alert IDs differ: %d != %d", again.ID, alert.ID)
	}
}

func TestGetOrCreateAlertConcurrent(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	watch, err := s.CreateWatch(ctx, 1, "acme")
	if err != nil {
		t.Fatal(err)
	}
	leak := testLeak(1, "ACME Corp", "http://x.example.onion/1")
	if _, err := s.InsertLeak(ctx, leak); err != nil {
		t.Fatal(err)
	}

	const goroutines = 8
	var wg sync.WaitGroup
	var createdCount atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := s.GetOrCreateAlert(ctx, 1, watch.ID, leak.ID)
			if err != nil {
				t.Errorf("GetOrCreateAlert() error = %v", err)
				return
			}
			if created {
				createdCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := createdCount.Load(); got != 1 {
		t.Errorf("created observed by %d goroutines, want exactly 1", got)
	}
}

func TestSearchQuota(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SetSearchQuota(ctx, 1, 2); err != nil {
		t.Fatal(err)
	}

	for i := range 2 {
		ok, err := s.ConsumeSearchToken(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("ConsumeSearchToken() #%d = false, want true", i+1)
		}
	}

	ok, err := s.ConsumeSearchToken(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("ConsumeSearchToken() after exhaustion = true, want false")
	}

	remaining, err := s.RemainingSearchQuota(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 0 {
		t.Errorf("RemainingSearchQuota() = %d, want 0", remaining)
	}
}

func TestSearchQuotaSeedsDefault(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	// No explicit row: first consume seeds the default allowance.
	ok, err := s.ConsumeSearchToken(ctx, 9)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("ConsumeSearchToken() for fresh user = false")
	}

	remaining, err := s.RemainingSearchQuota(ctx, 9)
	if err != nil {
		t.Fatal(err)
	}
	if remaining != DefaultOptions().DefaultSearchQuota-1 {
		t.Errorf("RemainingSearchQuota() = %d, want default-1", remaining)
	}
}

func TestSearchQuotaConcurrent(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	const quota = 5
	const goroutines = 12
	if err := s.SetSearchQuota(ctx, 1, quota); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var consumed atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ConsumeSearchToken(ctx, 1)
			if err != nil {
				t.Errorf("ConsumeSearchToken() error = %v", err)
				return
			}
			if ok {
				consumed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := consumed.Load(); got != quota {
		t.Errorf("consumed %d tokens, want exactly %d", got, quota)
	}
	remaining, err := s.RemainingSearchQuota(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if remaining != 0 {
		t.Errorf("RemainingSearchQuota() = %d, want 0 (never negative)", remaining)
	}
}

func TestRunMetricsAndLogs(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	metric := &model.RunMetric{TargetID: 4, Retries: 2, PermFail: true}
	if err := s.RecordRunMetric(ctx, metric); err != nil {
		t.Fatalf("RecordRunMetric() error = %v", err)
	}
	entry := &model.ScrapeLog{TargetID: 4, URL: "http://x.example.onion/", Success: false, Message: "fetch: attempt timed out"}
	if err := s.RecordScrapeLog(ctx, entry); err != nil {
		t.Fatalf("RecordScrapeLog() error = %v", err)
	}

	metrics, err := s.ListRunMetrics(ctx, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(metrics) != 1 || !metrics[0].PermFail || metrics[0].Retries != 2 {
		t.Errorf("ListRunMetrics() = %+v", metrics)
	}

	logs, err := s.ListScrapeLogs(ctx, 4, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].Success || logs[0].Message == "" {
		t.Errorf("ListScrapeLogs() = %+v", logs)
	}
}
