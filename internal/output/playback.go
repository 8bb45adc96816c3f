package output

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"storebench/internal/bench"
)

// ReplayLog decodes JSONL records from r and passes each to writer.
func ReplayLog(r io.Reader, writer RecordWriter) error {
	dec := json.NewDecoder(r)
	for {
		var rec bench.MetricsRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := writer.WriteRecord(rec); err != nil {
			return err
		}
	}
}

// ReplayLogFile opens a file and replays its records.
func ReplayLogFile(path string, writer RecordWriter) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(f, writer)
}

// LatestRecords keeps the most recent record per backend.
type LatestRecords struct {
	ByBackend map[string]bench.MetricsRecord
}

// NewLatestRecords returns an empty collector.
func NewLatestRecords() *LatestRecords {
	return &LatestRecords{ByBackend: make(map[string]bench.MetricsRecord)}
}

// WriteRecord keeps r if it is newer than the stored record for its backend.
func (l *LatestRecords) WriteRecord(r bench.MetricsRecord) error {
	if prev, ok := l.ByBackend[r.Backend]; ok && prev.Timestamp.After(r.Timestamp) {
		return nil
	}
	l.ByBackend[r.Backend] = r
	return nil
}

// Records returns the collected records.
func (l *LatestRecords) Records() []bench.MetricsRecord {
	out := make([]bench.MetricsRecord, 0, len(l.ByBackend))
	for _, id := range []string{bench.BackendRedux, bench.BackendAlt} {
		if r, ok := l.ByBackend[id]; ok {
			out = append(out, r)
		}
	}
	for id, r := range l.ByBackend {
		if id != bench.BackendRedux && id != bench.BackendAlt {
			out = append(out, r)
		}
	}
	return out
}
