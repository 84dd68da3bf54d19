package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/logging"
)

// LedgerVersion is the schema version of the JSON ledger.
const LedgerVersion = 1

type ledgerDocument struct {
	Version  int       `json:"version"`
	Records  []Record  `json:"records"`
	Insights []Insight `json:"insights"`
}

// FileStore keeps the ledger in a single JSON document. Every write re-reads
// the document under the lock file and replaces it with write-temp-then-rename,
// so a crash leaves either the old or the new document on disk.
type FileStore struct {
	mu    sync.Mutex
	path  string
	clock *ledgerClock
}

// NewFileStore returns a store backed by path. The file is created on the
// first Append. An existing file is validated immediately.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, clock: newLedgerClock()}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the ledger file path.
func (s *FileStore) Path() string {
	return s.path
}

// Append implements Store.
func (s *FileStore) Append(ctx context.Context, result footprint.Result) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if err := validateResult(result); err != nil {
		return Record{}, err
	}

	var rec Record
	err := s.update(func(doc *ledgerDocument) error {
		for _, r := range doc.Records {
			s.clock.observe(r.ID, r.RecordedAt)
		}
		id, recordedAt, err := s.clock.next()
		if err != nil {
			return err
		}
		rec = newRecord(id, recordedAt, result)
		doc.Records = append(doc.Records, rec)
		return nil
	})
	if err != nil {
		return Record{}, err
	}

	logging.FromContext(ctx).Debug().
		Ctx(ctx).
		Str("component", "history").
		Str("operation", "append").
		Str("backend", BackendFile).
		Str("record_id", rec.ID).
		Float64("total", rec.Total).
		Msg("footprint recorded")

	return rec, nil
}

// Query implements Store.
func (s *FileStore) Query(ctx context.Context, r DateRange) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(doc.Records))
	for _, rec := range doc.Records {
		if r.Contains(rec.Timestamp) {
			out = append(out, rec)
		}
	}
	sortAscending(out)
	return out, nil
}

// Latest implements Store.
func (s *FileStore) Latest(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		return []Record{}, nil
	}
	all, err := s.Query(ctx, DateRange{})
	if err != nil {
		return nil, err
	}
	return newestFirst(all, n), nil
}

// AppendInsight implements Store.
func (s *FileStore) AppendInsight(ctx context.Context, insight Insight) (Insight, error) {
	if err := ctx.Err(); err != nil {
		return Insight{}, err
	}
	in := prepareInsight(insight, time.Now())

	err := s.update(func(doc *ledgerDocument) error {
		if in.RecordID != "" && !hasRecord(doc.Records, in.RecordID) {
			return fmt.Errorf("%w: %s", ErrRecordNotFound, in.RecordID)
		}
		doc.Insights = append(doc.Insights, in)
		return nil
	})
	if err != nil {
		return Insight{}, err
	}
	return in, nil
}

// Insights implements Store.
func (s *FileStore) Insights(ctx context.Context, recordID string) ([]Insight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]Insight, 0, len(doc.Insights))
	for _, in := range doc.Insights {
		if recordID == "" || in.RecordID == recordID {
			out = append(out, in)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Close implements Store. The file store holds no open handles.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read() (*ledgerDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := acquireLock(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	defer unlock()

	return s.load()
}

// update applies fn to the current document and writes it back atomically.
func (s *FileStore) update(fn func(doc *ledgerDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := acquireLock(s.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	defer unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.write(doc)
}

func (s *FileStore) load() (*ledgerDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ledgerDocument{Version: LedgerVersion}, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %w", ErrStorageUnavailable, s.path, err)
	}

	var doc ledgerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStoreCorrupted, s.path, err)
	}
	if doc.Version != LedgerVersion {
		return nil, fmt.Errorf("%w: unsupported version %d (expected %d)",
			ErrStoreCorrupted, doc.Version, LedgerVersion)
	}
	return &doc, nil
}

func (s *FileStore) write(doc *ledgerDocument) error {
	doc.Version = LedgerVersion
	if doc.Records == nil {
		doc.Records = []Record{}
	}
	if doc.Insights == nil {
		doc.Insights = []Insight{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("%w: creating ledger directory: %w", ErrStorageUnavailable, err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("%w: writing ledger temp file: %w", ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: renaming ledger temp file: %w", ErrStorageUnavailable, err)
	}
	return nil
}

func hasRecord(records []Record, id string) bool {
	for _, r := range records {
		if r.ID == id {
			return true
		}
	}
	return false
}

func prepareInsight(in Insight, now time.Time) Insight {
	out := in
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now.UTC()
	}
	return out
}
