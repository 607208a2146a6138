// Package history keeps finished recordings in a local SQLite database so
// past transcripts can be looked up after the clipboard has moved on.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one finished recording. Enriched is empty when the transcript was
// delivered raw.
type Entry struct {
	ID              string
	CreatedAt       time.Time
	DurationSeconds float64
	Language        string
	STTProvider     string
	EnrichProvider  string
	Mode            string
	Transcript      string
	Enriched        string
}

// Text returns what was delivered to the user: the enriched text when
// enrichment ran, the raw transcript otherwise.
func (e Entry) Text() string {
	if e.Enriched != "" {
		return e.Enriched
	}
	return e.Transcript
}

type Store struct {
	db    *sql.DB
	clock func() time.Time
}

// DefaultPath puts the database next to the settings file.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "murmur-history.sqlite"
	}
	return filepath.Join(dir, "murmur", "history.sqlite")
}

func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}

	s := &Store{db: db, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Timestamps are stored as unix seconds with a fractional part, so range
// scans and ordering stay numeric.
func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS recordings (
    id TEXT PRIMARY KEY,
    created_at REAL NOT NULL,
    duration_seconds REAL NOT NULL,
    language TEXT NOT NULL DEFAULT '',
    stt_provider TEXT NOT NULL DEFAULT '',
    enrichment_provider TEXT NOT NULL DEFAULT '',
    enrichment_mode TEXT NOT NULL DEFAULT '',
    transcript TEXT NOT NULL,
    enriched TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_recordings_created ON recordings(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores a finished recording and returns its id.
func (s *Store) Append(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings(id, created_at, duration_seconds, language, stt_provider,
		     enrichment_provider, enrichment_mode, transcript, enriched)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, unixSeconds(e.CreatedAt), e.DurationSeconds, e.Language, e.STTProvider,
		e.EnrichProvider, e.Mode, e.Transcript, e.Enriched)
	if err != nil {
		return "", fmt.Errorf("insert recording: %w", err)
	}
	return e.ID, nil
}

const entryColumns = `id, created_at, duration_seconds, language, stt_provider,
    enrichment_provider, enrichment_mode, transcript, enriched`

// Recent returns the newest recordings, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM recordings ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Get returns one recording, or nil when the id is unknown.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM recordings WHERE id = ?`, id)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan recording: %w", err)
	}
	return &e, nil
}

// Search finds recordings whose transcript or enriched text contains term,
// newest first.
func (s *Store) Search(ctx context.Context, term string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + term + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM recordings
		 WHERE transcript LIKE ? OR enriched LIKE ?
		 ORDER BY created_at DESC LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search recordings: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recordings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count recordings: %w", err)
	}
	return n, nil
}

// Prune deletes recordings older than the retention window and reports how
// many were removed. A retention of zero keeps everything.
func (s *Store) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := s.clock().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM recordings WHERE created_at < ?`, unixSeconds(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune recordings: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var created float64
	err := row.Scan(&e.ID, &created, &e.DurationSeconds, &e.Language, &e.STTProvider,
		&e.EnrichProvider, &e.Mode, &e.Transcript, &e.Enriched)
	if err != nil {
		return Entry{}, err
	}
	e.CreatedAt = timeFromUnix(created)
	return e, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
