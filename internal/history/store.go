// Package history is the append-only ledger of saved footprint results.
//
// Two backends implement Store: a JSON document rewritten atomically under a
// lock file (FileStore) and a SQLite database (SQLiteStore). Records are never
// updated or deleted.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rshade/carbonfocus/internal/footprint"
)

// Storage errors.
var (
	// ErrStorageUnavailable means the medium could not be read or written.
	// The caller still holds its result and may retry.
	ErrStorageUnavailable = errors.New("history storage unavailable")
	// ErrStoreCorrupted means the ledger exists but cannot be decoded.
	ErrStoreCorrupted = errors.New("history ledger corrupted")
	// ErrRecordNotFound is returned when an insight references an unknown record.
	ErrRecordNotFound = errors.New("history record not found")
)

// Record is a saved footprint result.
type Record struct {
	ID         string    `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`

	footprint.Result
}

// Insight is a saved advisory text, optionally linked to a record.
type Insight struct {
	ID        string    `json:"id"`
	RecordID  string    `json:"record_id,omitempty"`
	Mode      string    `json:"mode"`
	Model     string    `json:"model,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// DateRange is the half-open interval [From, To) over result timestamps.
// A zero bound is open.
type DateRange struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// Validate rejects ranges whose upper bound precedes the lower bound.
func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return fmt.Errorf("invalid date range: to %s is before from %s",
			r.To.Format(time.RFC3339), r.From.Format(time.RFC3339))
	}
	return nil
}

// Store is the append-only ledger.
type Store interface {
	// Append persists result under a new identifier.
	Append(ctx context.Context, result footprint.Result) (Record, error)
	// Query returns the records whose timestamp falls inside r, ascending by
	// timestamp with ties broken by ID.
	Query(ctx context.Context, r DateRange) ([]Record, error)
	// Latest returns up to n records, most recent first.
	Latest(ctx context.Context, n int) ([]Record, error)
	// AppendInsight saves an advisory text.
	AppendInsight(ctx context.Context, insight Insight) (Insight, error)
	// Insights lists saved insights for recordID, or all insights when empty.
	Insights(ctx context.Context, recordID string) ([]Insight, error)
	Close() error
}

// Backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Backends lists the supported backend names.
func Backends() []string {
	return []string{BackendFile, BackendSQLite}
}

// ParseBackend resolves a backend name or alias ("json", "sqlite3") to its
// canonical name. An empty name is the file backend.
func ParseBackend(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BackendFile, "json", "":
		return BackendFile, nil
	case BackendSQLite, "sqlite3":
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("unknown history backend %q (expected one of %s)",
			name, strings.Join(Backends(), ", "))
	}
}

// Open returns the store for backend at path.
func Open(backend, path string) (Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty history path", ErrStorageUnavailable)
	}
	name, err := ParseBackend(backend)
	if err != nil {
		return nil, err
	}
	if name == BackendSQLite {
		return NewSQLiteStore(path)
	}
	return NewFileStore(path)
}

// sortAscending orders records by timestamp, then ID.
func sortAscending(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})
}

// newestFirst returns up to n records from an ascending slice, reversed.
func newestFirst(ascending []Record, n int) []Record {
	if n <= 0 || len(ascending) == 0 {
		return []Record{}
	}
	if n > len(ascending) {
		n = len(ascending)
	}
	out := make([]Record, 0, n)
	for i := len(ascending) - 1; i >= len(ascending)-n; i-- {
		out = append(out, ascending[i])
	}
	return out
}

func validateResult(result footprint.Result) error {
	if result.Timestamp.IsZero() {
		return errors.New("cannot append a result without a timestamp")
	}
	return nil
}

// newRecord stores the result with its timestamp in UTC, the form both
// backends read it back in.
func newRecord(id string, recordedAt time.Time, result footprint.Result) Record {
	rec := Record{ID: id, RecordedAt: recordedAt.UTC(), Result: result.Clone()}
	rec.Timestamp = rec.Timestamp.UTC()
	return rec
}
