package websitescan

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/deepscan/internal/model"
)

// fakeStore is an in-memory Store. conflicts makes the next n Replace
// calls fail with ErrConflict after applying a concurrent writer's change.
type fakeStore struct {
	mu        sync.Mutex
	docs      map[string]*model.WebsiteScanResult
	version   int
	conflicts int
	// concurrent is merged into the stored document whenever a conflict is
	// injected, simulating another writer winning the race.
	concurrent []string
	replaces   int
	readErr    error
}

func newFakeStore(docs ...*model.WebsiteScanResult) *fakeStore {
	s := &fakeStore{docs: make(map[string]*model.WebsiteScanResult)}
	for _, d := range docs {
		s.version++
		c := d.Clone()
		c.ETag = fmt.Sprintf("v%d", s.version)
		s.docs[d.ID] = c
	}
	return s
}

func (s *fakeStore) Read(_ context.Context, id string) (*model.WebsiteScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	d, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Clone(), nil
}

func (s *fakeStore) Create(_ context.Context, doc *model.WebsiteScanResult) (*model.WebsiteScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; ok {
		return nil, ErrAlreadyExists
	}
	s.version++
	c := doc.Clone()
	c.ETag = fmt.Sprintf("v%d", s.version)
	s.docs[doc.ID] = c
	return c.Clone(), nil
}

func (s *fakeStore) Replace(_ context.Context, doc *model.WebsiteScanResult) (*model.WebsiteScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaces++

	stored, ok := s.docs[doc.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.conflicts > 0 {
		s.conflicts--
		s.version++
		winner := Merge(stored, s.concurrent, []string{"winner-pattern"})
		winner.ETag = fmt.Sprintf("v%d", s.version)
		s.docs[doc.ID] = winner
		return nil, ErrConflict
	}
	if stored.ETag != doc.ETag {
		return nil, ErrConflict
	}
	s.version++
	c := doc.Clone()
	c.ETag = fmt.Sprintf("v%d", s.version)
	s.docs[doc.ID] = c
	return c.Clone(), nil
}

func noSleep(context.Context, time.Duration) error { return nil }

// TestMerge tests the aggregate merge rules.
func TestMerge(t *testing.T) {
	t.Parallel()

	t.Run("union keeps old order then new order", func(t *testing.T) {
		t.Parallel()

		current := &model.WebsiteScanResult{ID: "w", KnownPages: []string{"a", "b"}}
		merged := Merge(current, []string{"c", "a", "d", "c"}, nil)

		if !slices.Equal(merged.KnownPages, []string{"a", "b", "c", "d"}) {
			t.Errorf("KnownPages = %v", merged.KnownPages)
		}
		if !slices.Equal(current.KnownPages, []string{"a", "b"}) {
			t.Errorf("input modified: %v", current.KnownPages)
		}
	})

	t.Run("patterns set when absent", func(t *testing.T) {
		t.Parallel()

		current := model.NewWebsiteScanResult("w", "https://example.com")
		merged := Merge(current, nil, []string{"p1"})
		if !slices.Equal(merged.DiscoveryPatterns, []string{"p1"}) {
			t.Errorf("DiscoveryPatterns = %v", merged.DiscoveryPatterns)
		}
		if current.DiscoveryPatterns != nil {
			t.Error("input patterns modified")
		}
	})

	t.Run("existing patterns win", func(t *testing.T) {
		t.Parallel()

		current := &model.WebsiteScanResult{ID: "w", DiscoveryPatterns: []string{"first"}}
		merged := Merge(current, []string{"a"}, []string{"second"})
		if !slices.Equal(merged.DiscoveryPatterns, []string{"first"}) {
			t.Errorf("DiscoveryPatterns = %v, want [first]", merged.DiscoveryPatterns)
		}
	})

	t.Run("merging twice equals merging once", func(t *testing.T) {
		t.Parallel()

		current := &model.WebsiteScanResult{ID: "w", KnownPages: []string{"k1", "k2"}}
		urls := []string{"p1", "p2", "k1"}

		once := Merge(current, urls, []string{"pat"})
		twice := Merge(once, urls, []string{"pat"})

		if !slices.Equal(once.KnownPages, twice.KnownPages) {
			t.Errorf("once %v != twice %v", once.KnownPages, twice.KnownPages)
		}
		if !slices.Equal(once.DiscoveryPatterns, twice.DiscoveryPatterns) {
			t.Errorf("patterns changed on second merge: %v", twice.DiscoveryPatterns)
		}
	})

	t.Run("preserves identity and etag", func(t *testing.T) {
		t.Parallel()

		current := &model.WebsiteScanResult{ID: "w", BaseURL: "b", ETag: "e1"}
		merged := Merge(current, []string{"a"}, nil)
		if merged.ID != "w" || merged.BaseURL != "b" || merged.ETag != "e1" {
			t.Errorf("unexpected identity fields: %+v", merged)
		}
	})
}

// TestWriterUpdateWithDiscoveredURLs tests the optimistic concurrency loop.
func TestWriterUpdateWithDiscoveredURLs(t *testing.T) {
	t.Parallel()

	base := func() *model.WebsiteScanResult {
		return &model.WebsiteScanResult{ID: "w1", BaseURL: "https://example.com", KnownPages: []string{"k1"}}
	}

	t.Run("writes merged document without conflict", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore(base())
		w := NewWriter(store)

		got, err := w.UpdateWithDiscoveredURLs(context.Background(), "w1", []string{"p1", "p2"}, []string{"pat"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(got.KnownPages, []string{"k1", "p1", "p2"}) {
			t.Errorf("KnownPages = %v", got.KnownPages)
		}
		if !slices.Equal(got.DiscoveryPatterns, []string{"pat"}) {
			t.Errorf("DiscoveryPatterns = %v", got.DiscoveryPatterns)
		}
		if got.ETag == "v1" || got.ETag == "" {
			t.Errorf("expected new etag, got %q", got.ETag)
		}
	})

	t.Run("retries after conflict and keeps concurrent pages", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore(base())
		store.conflicts = 2
		store.concurrent = []string{"other"}

		var conflicts []int
		w := NewWriter(store, WithConflictHook(func(attempt int) { conflicts = append(conflicts, attempt) }))
		w.sleep = noSleep

		got, err := w.UpdateWithDiscoveredURLs(context.Background(), "w1", []string{"p1"}, []string{"mine"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(got.KnownPages, []string{"k1", "other", "p1"}) {
			t.Errorf("KnownPages = %v", got.KnownPages)
		}
		if !slices.Equal(got.DiscoveryPatterns, []string{"winner-pattern"}) {
			t.Errorf("expected first writer's pattern to win, got %v", got.DiscoveryPatterns)
		}
		if !slices.Equal(conflicts, []int{1, 2}) {
			t.Errorf("conflict hook calls = %v", conflicts)
		}
	})

	t.Run("exhausted retries return distinct error", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore(base())
		store.conflicts = 10

		w := NewWriter(store, WithMaxAttempts(3))
		w.sleep = noSleep

		_, err := w.UpdateWithDiscoveredURLs(context.Background(), "w1", []string{"p1"}, nil)
		if !errors.Is(err, ErrConflictRetriesExhausted) {
			t.Fatalf("expected ErrConflictRetriesExhausted, got %v", err)
		}
		if !errors.Is(err, ErrConflict) {
			t.Errorf("expected last conflict to be wrapped, got %v", err)
		}
		if store.replaces != 3 {
			t.Errorf("expected 3 replace attempts, got %d", store.replaces)
		}
	})

	t.Run("missing aggregate is not retried", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		w := NewWriter(store)

		_, err := w.UpdateWithDiscoveredURLs(context.Background(), "nope", []string{"p1"}, nil)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("backoff grows and is capped", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore(base())
		store.conflicts = 4

		var delays []time.Duration
		w := NewWriter(store, WithBackoff(10*time.Millisecond, 25*time.Millisecond))
		w.sleep = func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		}

		if _, err := w.UpdateWithDiscoveredURLs(context.Background(), "w1", []string{"p"}, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 25 * time.Millisecond, 25 * time.Millisecond}
		if !slices.Equal(delays, want) {
			t.Errorf("delays = %v, want %v", delays, want)
		}
	})

	t.Run("canceled context stops retrying", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore(base())
		store.conflicts = 10

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		w := NewWriter(store)
		_, err := w.UpdateWithDiscoveredURLs(ctx, "w1", []string{"p"}, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("concurrent writers all land", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore(base())
		w := NewWriter(store, WithMaxAttempts(50), WithBackoff(time.Microsecond, time.Millisecond))

		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				page := fmt.Sprintf("page-%d", i)
				if _, err := w.UpdateWithDiscoveredURLs(context.Background(), "w1", []string{page}, nil); err != nil {
					t.Errorf("writer %d: %v", i, err)
				}
			}()
		}
		wg.Wait()

		final, _ := store.Read(context.Background(), "w1")
		if len(final.KnownPages) != 9 {
			t.Errorf("expected 9 known pages, got %v", final.KnownPages)
		}
	})
}

// TestProviderEnsure tests aggregate creation on first use.
func TestProviderEnsure(t *testing.T) {
	t.Parallel()

	t.Run("creates missing aggregate", func(t *testing.T) {
		t.Parallel()

		p := NewProvider(newFakeStore())
		doc, err := p.Ensure(context.Background(), "w1", "https://example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.BaseURL != "https://example.com" || doc.ETag == "" {
			t.Errorf("unexpected document: %+v", doc)
		}
	})

	t.Run("returns existing aggregate", func(t *testing.T) {
		t.Parallel()

		p := NewProvider(newFakeStore(&model.WebsiteScanResult{ID: "w1", BaseURL: "old", KnownPages: []string{"a"}}))
		doc, err := p.Ensure(context.Background(), "w1", "new")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.BaseURL != "old" {
			t.Errorf("expected existing aggregate, got %+v", doc)
		}
	})

	t.Run("read errors are wrapped", func(t *testing.T) {
		t.Parallel()

		store := newFakeStore()
		store.readErr = errors.New("boom")
		p := NewProvider(store)
		if _, err := p.Read(context.Background(), "w1"); err == nil {
			t.Error("expected error")
		}
	})
}
