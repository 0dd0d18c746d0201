package moodsense

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// SessionRecord summarizes one completed listening session: the mood the
// speaker ended on, with enough metadata for the analytics views.
type SessionRecord struct {
	Emotion    Label     `json:"emotion"`
	Confidence float32   `json:"confidence"`
	Intensity  string    `json:"intensity"`
	Revisions  uint64    `json:"revisions"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// Journal persists one JSON file per session under a directory, newest
// sessions named by their end timestamp.
type Journal struct {
	dir string
}

// NewJournal ensures dir exists and returns a journal over it.
func NewJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal dir: %w", err)
	}
	return &Journal{dir: dir}, nil
}

// Append writes one session record.
func (j *Journal) Append(rec SessionRecord) error {
	name := fmt.Sprintf("session_%s.json", rec.EndedAt.Format("20060102-150405.000"))
	f, err := os.Create(filepath.Join(j.dir, name))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

// Load reads all session records, newest first. Unreadable files are
// skipped rather than failing the whole load.
func (j *Journal) Load() ([]SessionRecord, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return nil, err
	}

	var records []SessionRecord
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(j.dir, e.Name()))
		if err != nil {
			continue
		}
		var rec SessionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, k int) bool {
		return records[i].EndedAt.After(records[k].EndedAt)
	})
	return records, nil
}
