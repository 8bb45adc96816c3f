package output

import (
	"encoding/json"
	"os"

	"storebench/internal/bench"
	"storebench/internal/compare"
)

// FileWriter appends records, and optionally phase events, to JSONL files.
type FileWriter struct {
	recFile   *os.File
	phaseFile *os.File
	recEnc    *json.Encoder
	phaseEnc  *json.Encoder
}

// NewFileWriter opens recordPath for appending. phasePath may be empty to
// skip phase events.
func NewFileWriter(recordPath, phasePath string) (*FileWriter, error) {
	rf, err := os.OpenFile(recordPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{recFile: rf, recEnc: json.NewEncoder(rf)}
	if phasePath != "" {
		pf, err := os.OpenFile(phasePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			rf.Close()
			return nil, err
		}
		fw.phaseFile = pf
		fw.phaseEnc = json.NewEncoder(pf)
	}
	return fw, nil
}

// WriteRecord logs a single record.
func (f *FileWriter) WriteRecord(r bench.MetricsRecord) error {
	return f.recEnc.Encode(r)
}

// WriteRecords logs multiple records.
func (f *FileWriter) WriteRecords(rs []bench.MetricsRecord) error {
	for _, r := range rs {
		if err := f.WriteRecord(r); err != nil {
			return err
		}
	}
	return nil
}

// WritePhase logs a phase event, if enabled.
func (f *FileWriter) WritePhase(e bench.PhaseEvent) error {
	if f.phaseEnc == nil {
		return nil
	}
	return f.phaseEnc.Encode(e)
}

// WriteComparison is a no-op; comparisons are derived on replay.
func (f *FileWriter) WriteComparison(compare.Result) error { return nil }

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.recFile != nil {
		if e := f.recFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.phaseFile != nil {
		if e := f.phaseFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
