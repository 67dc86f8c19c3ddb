//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pelagos/internal/opt"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "pelagos.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	run := sampleRun()
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	loaded, ok, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatalf("expected run %s", run.ID)
	}
	if loaded.Variant != run.Variant || loaded.BestCost != run.BestCost {
		t.Fatalf("unexpected run loaded: %+v", loaded)
	}

	records := []opt.Record{
		{Generation: 0, Category: opt.CategoryPopulation, N: 8, Min: 0.4, Mean: 1.1, Max: 2.0, Std: 0.3},
	}
	if err := store.SaveLogbook(ctx, run.ID, records); err != nil {
		t.Fatalf("save logbook: %v", err)
	}
	loadedRecords, ok, err := store.GetLogbook(ctx, run.ID)
	if err != nil {
		t.Fatalf("get logbook: %v", err)
	}
	if !ok || len(loadedRecords) != 1 || loadedRecords[0].Min != 0.4 {
		t.Fatalf("unexpected logbook loaded: ok=%t %+v", ok, loadedRecords)
	}

	entries := []HallOfFameEntry{
		{VersionedRecord: Stamp(), Rank: 1, Cost: 0.042, Genes: []float64{0.01, -0.3}},
	}
	if err := store.SaveHallOfFame(ctx, run.ID, entries); err != nil {
		t.Fatalf("save hall of fame: %v", err)
	}
	loadedEntries, ok, err := store.GetHallOfFame(ctx, run.ID)
	if err != nil {
		t.Fatalf("get hall of fame: %v", err)
	}
	if !ok || len(loadedEntries) != 1 || loadedEntries[0].Cost != 0.042 {
		t.Fatalf("unexpected hall of fame loaded: ok=%t %+v", ok, loadedEntries)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "pelagos.db")

	first := NewSQLiteStore(dbPath)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("first init: %v", err)
	}
	run := sampleRun()
	run.ID = "persisted-run"
	if err := first.SaveRun(ctx, run); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	second := NewSQLiteStore(dbPath)
	if err := second.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	t.Cleanup(func() {
		_ = second.Close()
	})

	loaded, ok, err := second.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if !ok || loaded.ID != run.ID {
		t.Fatalf("expected persisted run, got ok=%t value=%+v", ok, loaded)
	}
}

func TestSQLiteStoreListRuns(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "pelagos.db"))
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	a := sampleRun()
	a.ID = "run-a"
	b := sampleRun()
	b.ID = "run-b"
	b.CreatedAt = a.CreatedAt.Add(-time.Second)
	for _, run := range []RunRecord{a, b} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run: %v", err)
		}
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-b" || runs[1].ID != "run-a" {
		t.Fatalf("unexpected run order: %+v", runs)
	}
}
