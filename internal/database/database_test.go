package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/nao1215/deepscan/internal/feed"
	"github.com/nao1215/deepscan/internal/model"
	"github.com/nao1215/deepscan/internal/websitescan"
)

// Compile-time interface checks.
var (
	_ websitescan.Store = (*DB)(nil)
	_ feed.WorkQueue    = (*DB)(nil)
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		if _, err := db.Create(context.Background(), model.NewWebsiteScanResult("w1", "https://example.com")); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		_ = db.Close()

		reopened, err := Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer reopened.Close()

		if _, err := reopened.Read(context.Background(), "w1"); err != nil {
			t.Errorf("expected persisted website scan, got %v", err)
		}
	})
}

// TestWebsiteScans tests the optimistic concurrency store.
func TestWebsiteScans(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("create and read round trip", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		doc := model.NewWebsiteScanResult("w1", "https://example.com")
		doc.KnownPages = []string{"https://example.com/a"}

		created, err := db.Create(ctx, doc)
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		if created.ETag == "" {
			t.Error("expected ETag to be assigned")
		}

		got, err := db.Read(ctx, "w1")
		if err != nil {
			t.Fatalf("Read() error: %v", err)
		}
		if got.BaseURL != "https://example.com" || got.ETag != created.ETag {
			t.Errorf("unexpected document: %+v", got)
		}
		if !slices.Equal(got.KnownPages, []string{"https://example.com/a"}) {
			t.Errorf("KnownPages = %v", got.KnownPages)
		}
		if got.DiscoveryPatterns != nil {
			t.Errorf("expected absent patterns, got %v", got.DiscoveryPatterns)
		}
		if got.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be set")
		}
	})

	t.Run("create twice returns ErrAlreadyExists", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		doc := model.NewWebsiteScanResult("w1", "https://example.com")
		if _, err := db.Create(ctx, doc); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		if _, err := db.Create(ctx, doc); !errors.Is(err, websitescan.ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("read missing returns ErrNotFound", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if _, err := db.Read(ctx, "missing"); !errors.Is(err, websitescan.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("replace with current etag succeeds", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		created, err := db.Create(ctx, model.NewWebsiteScanResult("w1", "https://example.com"))
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}

		update := websitescan.Merge(created, []string{"p1"}, []string{"pat"})
		replaced, err := db.Replace(ctx, update)
		if err != nil {
			t.Fatalf("Replace() error: %v", err)
		}
		if replaced.ETag == created.ETag {
			t.Error("expected a new ETag")
		}

		got, _ := db.Read(ctx, "w1")
		if !slices.Equal(got.KnownPages, []string{"p1"}) || !slices.Equal(got.DiscoveryPatterns, []string{"pat"}) {
			t.Errorf("unexpected stored document: %+v", got)
		}
	})

	t.Run("replace with stale etag conflicts", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		created, err := db.Create(ctx, model.NewWebsiteScanResult("w1", "https://example.com"))
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}

		if _, err := db.Replace(ctx, websitescan.Merge(created, []string{"first"}, nil)); err != nil {
			t.Fatalf("first Replace() error: %v", err)
		}
		_, err = db.Replace(ctx, websitescan.Merge(created, []string{"second"}, nil))
		if !errors.Is(err, websitescan.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("replace missing returns ErrNotFound", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		_, err := db.Replace(ctx, &model.WebsiteScanResult{ID: "missing", ETag: "x"})
		if !errors.Is(err, websitescan.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("concurrent writers through Writer lose no pages", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if _, err := db.Create(ctx, model.NewWebsiteScanResult("w1", "https://example.com")); err != nil {
			t.Fatalf("Create() error: %v", err)
		}

		w := websitescan.NewWriter(db, websitescan.WithMaxAttempts(100))
		pages := []string{"a", "b", "c", "d", "e", "f"}

		var wg sync.WaitGroup
		for _, page := range pages {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := w.UpdateWithDiscoveredURLs(ctx, "w1", []string{page}, nil); err != nil {
					t.Errorf("update %s: %v", page, err)
				}
			}()
		}
		wg.Wait()

		got, _ := db.Read(ctx, "w1")
		gotSorted := slices.Clone(got.KnownPages)
		slices.Sort(gotSorted)
		if !slices.Equal(gotSorted, pages) {
			t.Errorf("KnownPages = %v, want %v", got.KnownPages, pages)
		}
	})

	t.Run("lists ids by prefix", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		for _, id := range []string{"site-a", "site-b", "other"} {
			if _, err := db.Create(ctx, model.NewWebsiteScanResult(id, "https://example.com")); err != nil {
				t.Fatalf("Create() error: %v", err)
			}
		}

		ids, err := db.ListWebsiteScanIDs(ctx, "site-")
		if err != nil {
			t.Fatalf("ListWebsiteScanIDs() error: %v", err)
		}
		if !slices.Equal(ids, []string{"site-a", "site-b"}) {
			t.Errorf("ids = %v", ids)
		}
	})
}

// TestScanRequests tests the scan request queue.
func TestScanRequests(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("enqueue is insert if absent", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		first := []model.ScanRequest{
			model.NewScanRequest("https://example.com/a", "w1", "p"),
			model.NewScanRequest("https://example.com/b", "w1", "p"),
		}
		n, err := db.Enqueue(ctx, first)
		if err != nil {
			t.Fatalf("Enqueue() error: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 added, got %d", n)
		}

		again := []model.ScanRequest{
			model.NewScanRequest("https://example.com/a", "w1", "p2"),
			model.NewScanRequest("https://example.com/c", "w1", "p2"),
			model.NewScanRequest("https://example.com/a", "w2", "p2"),
		}
		n, err = db.Enqueue(ctx, again)
		if err != nil {
			t.Fatalf("Enqueue() error: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 added, got %d", n)
		}

		urls, err := db.QueuedURLs(ctx, "w1")
		if err != nil {
			t.Fatalf("QueuedURLs() error: %v", err)
		}
		want := []string{"https://example.com/a", "https://example.com/b", "https://example.com/c"}
		if !slices.Equal(urls, want) {
			t.Errorf("QueuedURLs() = %v, want %v", urls, want)
		}
	})

	t.Run("claim and complete", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		reqs := []model.ScanRequest{
			model.NewScanRequest("https://example.com/a", "w1", "p"),
			model.NewScanRequest("https://example.com/b", "w1", "p"),
			model.NewScanRequest("https://example.com/c", "w1", "p"),
		}
		if _, err := db.Enqueue(ctx, reqs); err != nil {
			t.Fatalf("Enqueue() error: %v", err)
		}

		claimed, err := db.Claim(ctx, 2)
		if err != nil {
			t.Fatalf("Claim() error: %v", err)
		}
		if len(claimed) != 2 || claimed[0].URL != "https://example.com/a" || claimed[1].URL != "https://example.com/b" {
			t.Fatalf("unexpected claim: %+v", claimed)
		}
		if claimed[0].Status != model.ScanRequestRunning || !claimed[0].DeepScan || claimed[0].ParentScanID != "p" {
			t.Errorf("unexpected claimed request: %+v", claimed[0])
		}

		rest, err := db.Claim(ctx, 10)
		if err != nil {
			t.Fatalf("Claim() error: %v", err)
		}
		if len(rest) != 1 || rest[0].URL != "https://example.com/c" {
			t.Errorf("unexpected second claim: %+v", rest)
		}

		if err := db.Complete(ctx, claimed[0].ID, model.ScanRequestFailed, "boom"); err != nil {
			t.Fatalf("Complete() error: %v", err)
		}
		all, err := db.ScanRequests(ctx, "w1")
		if err != nil {
			t.Fatalf("ScanRequests() error: %v", err)
		}
		if all[0].Status != model.ScanRequestFailed || all[0].Error != "boom" {
			t.Errorf("unexpected completed request: %+v", all[0])
		}
	})

	t.Run("released request can be claimed again", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if _, err := db.Enqueue(ctx, []model.ScanRequest{
			model.NewScanRequest("https://example.com/a", "w1", "p"),
		}); err != nil {
			t.Fatalf("Enqueue() error: %v", err)
		}

		claimed, err := db.Claim(ctx, 10)
		if err != nil || len(claimed) != 1 {
			t.Fatalf("Claim() = %+v, %v", claimed, err)
		}
		if err := db.Complete(ctx, claimed[0].ID, model.ScanRequestPending, ""); err != nil {
			t.Fatalf("Complete() error: %v", err)
		}

		again, err := db.Claim(ctx, 10)
		if err != nil {
			t.Fatalf("Claim() error: %v", err)
		}
		if len(again) != 1 || again[0].ID != claimed[0].ID {
			t.Errorf("expected released request to be claimed again, got %+v", again)
		}
	})

	t.Run("complete unknown id", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		err := db.Complete(ctx, "missing", model.ScanRequestCompleted, "")
		if !errors.Is(err, feed.ErrScanRequestNotFound) {
			t.Errorf("expected ErrScanRequestNotFound, got %v", err)
		}
	})

	t.Run("empty enqueue and zero claim", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if n, err := db.Enqueue(ctx, nil); err != nil || n != 0 {
			t.Errorf("Enqueue(nil) = %d, %v", n, err)
		}
		if got, err := db.Claim(ctx, 0); err != nil || len(got) != 0 {
			t.Errorf("Claim(0) = %v, %v", got, err)
		}
	})
}
