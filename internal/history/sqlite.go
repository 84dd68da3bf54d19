package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/rshade/carbonfocus/internal/climate"
	"github.com/rshade/carbonfocus/internal/emissions"
	"github.com/rshade/carbonfocus/internal/footprint"
	"github.com/rshade/carbonfocus/internal/logging"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS footprint_records (
	id                 TEXT PRIMARY KEY,
	recorded_at_ns     INTEGER NOT NULL,
	timestamp_ns       INTEGER NOT NULL,
	total              REAL NOT NULL,
	per_category       TEXT NOT NULL,
	region_used        TEXT NOT NULL,
	electricity_source TEXT NOT NULL,
	co2_source         TEXT NOT NULL,
	grid_intensity     REAL NOT NULL,
	co2_ppm            REAL NOT NULL,
	notes              TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_footprint_records_timestamp
	ON footprint_records (timestamp_ns, id);

CREATE TABLE IF NOT EXISTS llm_insights (
	id            TEXT PRIMARY KEY,
	record_id     TEXT NOT NULL DEFAULT '',
	mode          TEXT NOT NULL,
	model         TEXT NOT NULL DEFAULT '',
	text          TEXT NOT NULL,
	created_at_ns INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_llm_insights_record
	ON llm_insights (record_id, created_at_ns);
`

const recordColumns = `id, recorded_at_ns, timestamp_ns, total, per_category, region_used,
	electricity_source, co2_source, grid_intensity, co2_ppm, notes`

// SQLiteStore keeps the ledger in a SQLite database via the pure-Go
// modernc.org/sqlite driver.
type SQLiteStore struct {
	mu    sync.Mutex
	db    *sql.DB
	path  string
	clock *ledgerClock
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("%w: creating database directory: %w", ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", ErrStorageUnavailable, path, err)
	}
	// A single connection serializes writers inside the process.
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, openError(path, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, openError(path, err)
	}

	s := &SQLiteStore{db: db, path: path, clock: newLedgerClock()}
	if err := s.seedClock(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// openError maps a file that is not a SQLite database to ErrStoreCorrupted.
func openError(path string, err error) error {
	if strings.Contains(err.Error(), "not a database") {
		return fmt.Errorf("%w: %s: %w", ErrStoreCorrupted, path, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, path, err)
}

func (s *SQLiteStore) seedClock(ctx context.Context) error {
	var (
		id         sql.NullString
		recordedNs sql.NullInt64
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT (SELECT id FROM footprint_records ORDER BY id DESC LIMIT 1),
		        (SELECT MAX(recorded_at_ns) FROM footprint_records)`)
	if err := row.Scan(&id, &recordedNs); err != nil {
		return fmt.Errorf("%w: reading ledger head: %w", ErrStorageUnavailable, err)
	}
	if id.Valid {
		s.clock.observe(id.String, time.Unix(0, recordedNs.Int64).UTC())
	}
	return nil
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, result footprint.Result) (Record, error) {
	if err := validateResult(result); err != nil {
		return Record{}, err
	}
	perCategory, err := json.Marshal(result.PerCategory)
	if err != nil {
		return Record{}, fmt.Errorf("marshaling per-category values: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, recordedAt, err := s.clock.next()
	if err != nil {
		return Record{}, err
	}
	rec := newRecord(id, recordedAt, result)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO footprint_records (`+recordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.RecordedAt.UnixNano(),
		rec.Timestamp.UnixNano(),
		rec.Total,
		string(perCategory),
		rec.RegionUsed,
		string(rec.DataSources.Electricity),
		string(rec.DataSources.AtmosphericCO2),
		rec.GridIntensityKgPerKWh,
		rec.AtmosphericCO2PPM,
		rec.Notes,
	)
	if err != nil {
		return Record{}, fmt.Errorf("%w: inserting record: %w", ErrStorageUnavailable, err)
	}

	logging.FromContext(ctx).Debug().
		Ctx(ctx).
		Str("component", "history").
		Str("operation", "append").
		Str("backend", BackendSQLite).
		Str("record_id", rec.ID).
		Float64("total", rec.Total).
		Msg("footprint recorded")

	return rec, nil
}

// Query implements Store.
func (s *SQLiteStore) Query(ctx context.Context, r DateRange) ([]Record, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if !r.From.IsZero() {
		where = append(where, "timestamp_ns >= ?")
		args = append(args, r.From.UnixNano())
	}
	if !r.To.IsZero() {
		where = append(where, "timestamp_ns < ?")
		args = append(args, r.To.UnixNano())
	}
	query := `SELECT ` + recordColumns + ` FROM footprint_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp_ns ASC, id ASC"

	return s.queryRecords(ctx, query, args...)
}

// Latest implements Store.
func (s *SQLiteStore) Latest(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		return []Record{}, nil
	}
	return s.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM footprint_records
		 ORDER BY timestamp_ns DESC, id DESC LIMIT ?`, n)
}

func (s *SQLiteStore) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying records: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating records: %w", ErrStorageUnavailable, err)
	}
	return out, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec         Record
		recordedNs  int64
		timestampNs int64
		perCategory string
		electricity string
		co2         string
	)
	if err := rows.Scan(
		&rec.ID,
		&recordedNs,
		&timestampNs,
		&rec.Total,
		&perCategory,
		&rec.RegionUsed,
		&electricity,
		&co2,
		&rec.GridIntensityKgPerKWh,
		&rec.AtmosphericCO2PPM,
		&rec.Notes,
	); err != nil {
		return Record{}, fmt.Errorf("%w: scanning record: %w", ErrStoreCorrupted, err)
	}

	var per map[emissions.Category]float64
	if err := json.Unmarshal([]byte(perCategory), &per); err != nil {
		return Record{}, fmt.Errorf("%w: record %s per_category: %w", ErrStoreCorrupted, rec.ID, err)
	}
	rec.PerCategory = per
	rec.RecordedAt = time.Unix(0, recordedNs).UTC()
	rec.Timestamp = time.Unix(0, timestampNs).UTC()
	rec.DataSources = footprint.DataSources{
		Electricity:    climate.Source(electricity),
		AtmosphericCO2: climate.Source(co2),
	}
	return rec, nil
}

// AppendInsight implements Store.
func (s *SQLiteStore) AppendInsight(ctx context.Context, insight Insight) (Insight, error) {
	in := prepareInsight(insight, time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.RecordID != "" {
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM footprint_records WHERE id = ?`, in.RecordID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return Insight{}, fmt.Errorf("%w: %s", ErrRecordNotFound, in.RecordID)
		}
		if err != nil {
			return Insight{}, fmt.Errorf("%w: checking record: %w", ErrStorageUnavailable, err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_insights (id, record_id, mode, model, text, created_at_ns)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.RecordID, in.Mode, in.Model, in.Text, in.CreatedAt.UnixNano())
	if err != nil {
		return Insight{}, fmt.Errorf("%w: inserting insight: %w", ErrStorageUnavailable, err)
	}
	return in, nil
}

// Insights implements Store.
func (s *SQLiteStore) Insights(ctx context.Context, recordID string) ([]Insight, error) {
	query := `SELECT id, record_id, mode, model, text, created_at_ns FROM llm_insights`
	var args []any
	if recordID != "" {
		query += " WHERE record_id = ?"
		args = append(args, recordID)
	}
	query += " ORDER BY created_at_ns ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying insights: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	out := []Insight{}
	for rows.Next() {
		var (
			in        Insight
			createdNs int64
		)
		if err := rows.Scan(&in.ID, &in.RecordID, &in.Mode, &in.Model, &in.Text, &createdNs); err != nil {
			return nil, fmt.Errorf("%w: scanning insight: %w", ErrStoreCorrupted, err)
		}
		in.CreatedAt = time.Unix(0, createdNs).UTC()
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating insights: %w", ErrStorageUnavailable, err)
	}
	return out, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
