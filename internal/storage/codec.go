package storage

import (
	"encoding/json"
	"errors"

	"pelagos/internal/opt"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp sets the current schema and codec version on a record about to be
// written.
func Stamp() VersionedRecord {
	return VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(r RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (RunRecord, error) {
	var run RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return RunRecord{}, err
	}
	return run, nil
}

// logbookEnvelope wraps the logbook rows in one stamped payload; the rows
// themselves carry no version.
type logbookEnvelope struct {
	VersionedRecord
	Records []opt.Record `json:"records"`
}

func EncodeLogbook(records []opt.Record) ([]byte, error) {
	return json.Marshal(logbookEnvelope{VersionedRecord: Stamp(), Records: records})
}

func DecodeLogbook(data []byte) ([]opt.Record, error) {
	var envelope logbookEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	if err := checkVersion(envelope.VersionedRecord); err != nil {
		return nil, err
	}
	return envelope.Records, nil
}

func EncodeHallOfFame(entries []HallOfFameEntry) ([]byte, error) {
	return json.Marshal(entries)
}

func DecodeHallOfFame(data []byte) ([]HallOfFameEntry, error) {
	var entries []HallOfFameEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if err := checkVersion(entry.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func checkVersion(v VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
