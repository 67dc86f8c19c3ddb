package storage

import (
	"context"
	"sort"
	"sync"

	"pelagos/internal/opt"
)

type MemoryStore struct {
	mu         sync.RWMutex
	runs       map[string]RunRecord
	logbooks   map[string][]opt.Record
	hallOfFame map[string][]HallOfFameEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = make(map[string]RunRecord)
	s.logbooks = make(map[string][]opt.Record)
	s.hallOfFame = make(map[string][]HallOfFameEntry)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.BestGenes = append([]float64(nil), run.BestGenes...)
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return RunRecord{}, false, nil
	}
	run.BestGenes = append([]float64(nil), run.BestGenes...)
	return run, true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		run.BestGenes = append([]float64(nil), run.BestGenes...)
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) SaveLogbook(_ context.Context, runID string, records []opt.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]opt.Record, len(records))
	copy(copied, records)
	s.logbooks[runID] = copied
	return nil
}

func (s *MemoryStore) GetLogbook(_ context.Context, runID string) ([]opt.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.logbooks[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]opt.Record, len(records))
	copy(copied, records)
	return copied, true, nil
}

func (s *MemoryStore) SaveHallOfFame(_ context.Context, runID string, entries []HallOfFameEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]HallOfFameEntry, len(entries))
	for i, entry := range entries {
		entry.Genes = append([]float64(nil), entry.Genes...)
		copied[i] = entry
	}
	s.hallOfFame[runID] = copied
	return nil
}

func (s *MemoryStore) GetHallOfFame(_ context.Context, runID string) ([]HallOfFameEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.hallOfFame[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]HallOfFameEntry, len(entries))
	for i, entry := range entries {
		entry.Genes = append([]float64(nil), entry.Genes...)
		copied[i] = entry
	}
	return copied, true, nil
}
