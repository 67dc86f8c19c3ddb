// Package storage persists calibration runs: the run summary, the
// per-generation logbook and the hall of fame. Backends share one Store
// interface; memory is the default, sqlite is opt-in at build time.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pelagos/internal/opt"
)

// VersionedRecord tags persisted payloads so incompatible schema changes
// are detected on read instead of producing garbage.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord summarizes one calibration run.
type RunRecord struct {
	VersionedRecord
	ID             string    `json:"id"`
	Variant        string    `json:"variant"`
	CreatedAt      time.Time `json:"created_at"`
	Seed           int64     `json:"seed"`
	Generations    int       `json:"generations"`
	PopulationSize int       `json:"population_size"`
	Evaluated      int       `json:"evaluated"`
	BestCost       float64   `json:"best_cost"`
	BestGenes      []float64 `json:"best_genes"`
}

// HallOfFameEntry is one ranked individual of a finished run.
type HallOfFameEntry struct {
	VersionedRecord
	Rank  int       `json:"rank"`
	Cost  float64   `json:"cost"`
	Genes []float64 `json:"genes"`
}

// NewRunID mints a unique run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Store defines the persistence operations for calibration artifacts.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run RunRecord) error
	GetRun(ctx context.Context, id string) (RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]RunRecord, error)
	SaveLogbook(ctx context.Context, runID string, records []opt.Record) error
	GetLogbook(ctx context.Context, runID string) ([]opt.Record, bool, error)
	SaveHallOfFame(ctx context.Context, runID string, entries []HallOfFameEntry) error
	GetHallOfFame(ctx context.Context, runID string) ([]HallOfFameEntry, bool, error)
}
