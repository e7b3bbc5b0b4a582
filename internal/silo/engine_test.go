// Witter - Session-scoped Content Feed
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/witter

package silo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/witter/internal/docstore"
	"github.com/tomtom215/witter/internal/models"
	"github.com/tomtom215/witter/internal/ranking"
)

type testEnv struct {
	engine  *Engine
	store   *docstore.Adapter
	catalog *ranking.Catalog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := docstore.NewAdapter(context.Background(), docstore.NewBadgerBackend(db, time.Hour), docstore.Options{})
	catalog, err := ranking.DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}
	provider := ranking.NewProvider(catalog, 42, 32)

	return &testEnv{
		engine:  NewEngine(store, provider, DefaultConfig()),
		store:   store,
		catalog: catalog,
	}
}

func (env *testEnv) snapshot(t *testing.T, sessionID string) *snapshot {
	t.Helper()
	snap, err := env.engine.load(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("load(%s) error = %v", sessionID, err)
	}
	return snap
}

func assertNoDuplicates(t *testing.T, items []models.Item) {
	t.Helper()
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it.ID] {
			t.Fatalf("duplicate item %q in buffer %v", it.ID, models.ItemIDs(items))
		}
		seen[it.ID] = true
	}
}

func TestEngine_GetItemsAfterCreate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.engine.CreateSilo(ctx, "s"); err != nil {
		t.Fatalf("CreateSilo() error = %v", err)
	}

	for _, count := range []int{AllItems, 0, 5} {
		items, err := env.engine.GetItems(ctx, "s", count)
		if err != nil {
			t.Fatalf("GetItems(%d) error = %v", count, err)
		}
		if items == nil || len(items) != 0 {
			t.Errorf("GetItems(%d) = %v, want empty non-nil", count, items)
		}
	}
}

func TestEngine_CreateOverwrites(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	_ = env.engine.CreateSilo(ctx, "s")
	_ = env.engine.Repopulate(ctx, "s")
	if err := env.engine.CreateSilo(ctx, "s"); err != nil {
		t.Fatal(err)
	}

	items, _ := env.engine.GetItems(ctx, "s", AllItems)
	if len(items) != 0 {
		t.Errorf("buffer has %d items after re-create, want 0", len(items))
	}
}

func TestEngine_PreferenceMutualExclusion(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	_ = env.engine.CreateSilo(ctx, "s")

	if err := env.engine.IncludeItem(ctx, "s", "7"); err != nil {
		t.Fatal(err)
	}
	if err := env.engine.ExcludeItem(ctx, "s", "7"); err != nil {
		t.Fatal(err)
	}
	snap := env.snapshot(t, "s")
	if _, ok := snap.Includes["7"]; ok {
		t.Error("7 still in includes after exclude")
	}
	if _, ok := snap.Excludes["7"]; !ok {
		t.Error("7 missing from excludes")
	}

	if err := env.engine.IncludeItem(ctx, "s", "7"); err != nil {
		t.Fatal(err)
	}
	snap = env.snapshot(t, "s")
	if _, ok := snap.Excludes["7"]; ok {
		t.Error("7 still in excludes after include")
	}
	if _, ok := snap.Includes["7"]; !ok {
		t.Error("7 missing from includes")
	}
}

func TestEngine_PreferenceCap(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	_ = env.engine.CreateSilo(ctx, "s")

	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		if err := env.engine.IncludeItem(ctx, "s", id); err != nil {
			t.Fatal(err)
		}
	}

	snap := env.snapshot(t, "s")
	got := snap.Includes.IDs()
	want := []string{"3", "4", "5", "6", "7"}
	if len(got) != len(want) {
		t.Fatalf("includes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("includes = %v, want %v", got, want)
		}
	}
}

func TestEngine_InvalidItemID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	_ = env.engine.CreateSilo(ctx, "s")

	if err := env.engine.IncludeItem(ctx, "s", ""); !errors.Is(err, ErrInvalidItemID) {
		t.Errorf("IncludeItem(\"\") error = %v, want ErrInvalidItemID", err)
	}
}

func TestEngine_UnknownSession(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"include", func() error { return env.engine.IncludeItem(ctx, "ghost", "2") }},
		{"exclude", func() error { return env.engine.ExcludeItem(ctx, "ghost", "2") }},
		{"get items", func() error { _, err := env.engine.GetItems(ctx, "ghost", AllItems); return err }},
		{"repopulate", func() error { return env.engine.Repopulate(ctx, "ghost") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrNotFound) {
				t.Errorf("error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestEngine_DestroySilo(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	_ = env.engine.CreateSilo(ctx, "s")
	if err := env.engine.DestroySilo(ctx, "s"); err != nil {
		t.Fatalf("DestroySilo() error = %v", err)
	}
	if err := env.engine.DestroySilo(ctx, "s"); err != nil {
		t.Fatalf("second DestroySilo() error = %v", err)
	}

	if _, err := env.engine.GetItems(ctx, "s", AllItems); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetItems after destroy error = %v, want ErrNotFound", err)
	}
	if err := env.engine.IncludeItem(ctx, "s", "2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("IncludeItem after destroy error = %v, want ErrNotFound", err)
	}
}

func TestEngine_RepopulateFromEmpty(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	_ = env.engine.CreateSilo(ctx, "s")

	if err := env.engine.Repopulate(ctx, "s"); err != nil {
		t.Fatalf("Repopulate() error = %v", err)
	}

	items, _ := env.engine.GetItems(ctx, "s", AllItems)
	if len(items) != env.engine.Config().Capacity {
		t.Errorf("buffer length = %d, want capacity %d", len(items), env.engine.Config().Capacity)
	}
	assertNoDuplicates(t, items)

	feed, _ := env.engine.GetItems(ctx, "s", 5)
	if len(feed) != 5 {
		t.Errorf("GetItems(5) returned %d items", len(feed))
	}
}

func TestEngine_RepopulateWithLikes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	_ = env.engine.CreateSilo(ctx, "s1")
	_ = env.engine.ExcludeItem(ctx, "s1", "9")
	_ = env.engine.ExcludeItem(ctx, "s1", "26")
	if err := env.engine.IncludeItem(ctx, "s1", "2"); err != nil {
		t.Fatal(err)
	}
	if err := env.engine.IncludeItem(ctx, "s1", "20"); err != nil {
		t.Fatal(err)
	}
	prior := env.snapshot(t, "s1").Excludes

	if err := env.engine.Repopulate(ctx, "s1"); err != nil {
		t.Fatalf("Repopulate() error = %v", err)
	}

	snap := env.snapshot(t, "s1")
	if len(snap.Items) > 20 {
		t.Errorf("buffer length = %d, want <= 20", len(snap.Items))
	}
	assertNoDuplicates(t, snap.Items)
	for _, it := range snap.Items {
		if _, excluded := prior[it.ID]; excluded {
			t.Errorf("excluded item %q in buffer", it.ID)
		}
		if !env.catalog.Has(it.ID) || it.Text == "" {
			t.Errorf("buffer holds unresolved item %+v", it)
		}
	}
	if len(snap.Includes) != 0 || len(snap.Excludes) != 0 {
		t.Errorf("preferences not cleared: includes=%v excludes=%v", snap.Includes, snap.Excludes)
	}
}

func TestEngine_RepopulateDropsConsumedAndExcluded(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	_ = env.engine.CreateSilo(ctx, "s")
	_ = env.engine.Repopulate(ctx, "s")

	before, _ := env.engine.GetItems(ctx, "s", AllItems)
	disliked := before[7].ID
	if err := env.engine.ExcludeItem(ctx, "s", disliked); err != nil {
		t.Fatal(err)
	}

	if err := env.engine.Repopulate(ctx, "s"); err != nil {
		t.Fatal(err)
	}
	after, _ := env.engine.GetItems(ctx, "s", AllItems)
	assertNoDuplicates(t, after)

	// The unserved tail (minus the dislike) moves to the front.
	wantFront := make([]string, 0, 14)
	for _, it := range before[5:] {
		if it.ID != disliked {
			wantFront = append(wantFront, it.ID)
		}
	}
	gotFront := models.ItemIDs(after[:len(wantFront)])
	for i := range wantFront {
		if gotFront[i] != wantFront[i] {
			t.Fatalf("front = %v, want %v", gotFront, wantFront)
		}
	}

	for _, it := range after {
		if it.ID == disliked {
			t.Errorf("disliked item %q still buffered", disliked)
		}
	}
}

func TestEngine_RepopulateSmallCatalog(t *testing.T) {
	t.Parallel()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	catalog, err := ranking.NewCatalog([]ranking.Entry{
		{ID: "a", Text: "A", Factors: []float64{1, 0}},
		{ID: "b", Text: "B", Factors: []float64{0, 1}},
		{ID: "c", Text: "C", Factors: []float64{1, 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	store := docstore.NewAdapter(context.Background(), docstore.NewBadgerBackend(db, 0), docstore.Options{})
	engine := NewEngine(store, ranking.NewProvider(catalog, 1, 0), DefaultConfig())
	ctx := context.Background()

	_ = engine.CreateSilo(ctx, "s")
	_ = engine.ExcludeItem(ctx, "s", "b")
	if err := engine.Repopulate(ctx, "s"); err != nil {
		t.Fatalf("Repopulate() error = %v", err)
	}

	items, _ := engine.GetItems(ctx, "s", AllItems)
	if len(items) != 2 {
		t.Errorf("buffer = %v, want the two non-excluded items", models.ItemIDs(items))
	}
	for _, it := range items {
		if it.ID == "b" {
			t.Error("excluded item buffered")
		}
	}
}

func TestEngine_LikeDuringRepopulateSurvives(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	_ = env.engine.CreateSilo(ctx, "s")
	_ = env.engine.IncludeItem(ctx, "s", "2")

	// A ranker that records a like mid-cycle, between read and write.
	env.engine.ranker = &interleavingRanker{
		Ranker: env.engine.ranker,
		during: func() { _ = env.engine.IncludeItem(ctx, "s", "31") },
	}

	if err := env.engine.Repopulate(ctx, "s"); err != nil {
		t.Fatal(err)
	}

	snap := env.snapshot(t, "s")
	if _, ok := snap.Includes["2"]; ok {
		t.Error("consumed like was not cleared")
	}
	if _, ok := snap.Includes["31"]; !ok {
		t.Error("like recorded during repopulate was lost")
	}
}

func TestEngine_ConcurrentPreferences(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	_ = env.engine.CreateSilo(ctx, "s")

	var wg sync.WaitGroup
	for _, id := range []string{"1", "2", "3", "4"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := env.engine.IncludeItem(ctx, "s", id); err != nil && !errors.Is(err, docstore.ErrConflict) {
				t.Errorf("IncludeItem(%s) error = %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	snap := env.snapshot(t, "s")
	if len(snap.Includes) == 0 {
		t.Error("no concurrent like landed")
	}
}

type interleavingRanker struct {
	Ranker
	once   sync.Once
	during func()
}

func (r *interleavingRanker) ResolveContent(ctx context.Context, ids []string) ([]models.Item, error) {
	r.once.Do(r.during)
	return r.Ranker.ResolveContent(ctx, ids)
}

type failingRanker struct{ err error }

func (f failingRanker) Random(context.Context, int) ([]string, error) { return nil, f.err }
func (f failingRanker) RankedBySeed(context.Context, []string, int) ([]string, error) {
	return nil, f.err
}
func (f failingRanker) ResolveContent(context.Context, []string) ([]models.Item, error) {
	return nil, f.err
}

func TestEngine_RepopulateRankerFailureLeavesBuffer(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	_ = env.engine.CreateSilo(ctx, "s")
	_ = env.engine.Repopulate(ctx, "s")
	before, _ := env.engine.GetItems(ctx, "s", AllItems)
	_ = env.engine.IncludeItem(ctx, "s", "2")

	broken := NewEngine(env.store, failingRanker{err: errors.New("ranker down")}, DefaultConfig())
	if err := broken.Repopulate(ctx, "s"); err == nil {
		t.Fatal("Repopulate() error = nil with failing ranker")
	}

	after, _ := env.engine.GetItems(ctx, "s", AllItems)
	if len(after) != len(before) {
		t.Errorf("buffer changed from %d to %d items", len(before), len(after))
	}
	if _, ok := env.snapshot(t, "s").Includes["2"]; !ok {
		t.Error("failed repopulate consumed the like")
	}
}

type unavailableStore struct{}

func (unavailableStore) Set(context.Context, string, docstore.Document) error {
	return docstore.ErrUnavailable
}
func (unavailableStore) Get(context.Context, string, string, any) error {
	return docstore.ErrUnavailable
}
func (unavailableStore) Delete(context.Context, string) error { return docstore.ErrUnavailable }
func (unavailableStore) Update(context.Context, string, func(docstore.Document) error) error {
	return docstore.ErrUnavailable
}

func TestEngine_Unavailable(t *testing.T) {
	t.Parallel()

	engine := NewEngine(unavailableStore{}, failingRanker{}, Config{})
	ctx := context.Background()

	checks := map[string]error{
		"create":     engine.CreateSilo(ctx, "s"),
		"destroy":    engine.DestroySilo(ctx, "s"),
		"include":    engine.IncludeItem(ctx, "s", "1"),
		"exclude":    engine.ExcludeItem(ctx, "s", "1"),
		"repopulate": engine.Repopulate(ctx, "s"),
	}
	_, checks["get"] = engine.GetItems(ctx, "s", 5)

	for op, err := range checks {
		if !errors.Is(err, docstore.ErrUnavailable) {
			t.Errorf("%s error = %v, want ErrUnavailable", op, err)
		}
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	t.Parallel()

	e := NewEngine(unavailableStore{}, failingRanker{}, Config{ConsumedSlots: 5, Headroom: 2})
	if got := e.Config(); got != DefaultConfig() {
		t.Errorf("Config() = %+v, want %+v", got, DefaultConfig())
	}
}
