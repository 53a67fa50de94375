package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/linkspider/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "linkspider.db"

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores crawl runs and the addresses they discovered.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	// Read-only commands turn it off so a typo in --db-dir is reported.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a crawl with --save first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		seeds TEXT NOT NULL,
		filter_patterns TEXT NOT NULL,
		search_site TEXT NOT NULL DEFAULT '',
		emitted INTEGER NOT NULL DEFAULT 0,
		stop_reason TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS discoveries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		host TEXT NOT NULL,
		discovered_at TEXT NOT NULL,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_discoveries_run ON discoveries(run_id, position);
	CREATE INDEX IF NOT EXISTS idx_discoveries_host ON discoveries(host);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Run is a stored crawl run.
type Run struct {
	ID             int64            `json:"id"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at,omitzero"`
	Seeds          []string         `json:"seeds"`
	FilterPatterns []string         `json:"filter_patterns"`
	SearchSite     string           `json:"search_site,omitempty"`
	Emitted        int64            `json:"emitted"`
	StopReason     model.StopReason `json:"stop_reason,omitempty"`
}

// Finished reports whether FinishRun was called for the run. A run that
// never finished was killed before it could record its end.
func (r *Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// BeginRun inserts a run for summary and returns its id.
func (h *HistoryDB) BeginRun(ctx context.Context, summary *model.Summary) (int64, error) {
	seeds, err := json.Marshal(summary.Seeds)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize seeds: %w", err)
	}
	patterns, err := json.Marshal(summary.FilterPatterns)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize filter patterns: %w", err)
	}

	result, err := h.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, seeds, filter_patterns, search_site) VALUES (?, ?, ?, ?)`,
		formatTimestamp(summary.StartedAt), string(seeds), string(patterns), summary.SearchSite,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to begin run: %w", err)
	}
	return result.LastInsertId()
}

// RecordDiscovery appends addr to the run. Positions count from 1 in
// recording order. Recording the same address twice for one run is a no-op.
func (h *HistoryDB) RecordDiscovery(ctx context.Context, runID int64, addr string, at time.Time) error {
	query := `
	INSERT OR IGNORE INTO discoveries (run_id, position, url, host, discovered_at)
	SELECT ?, COALESCE(MAX(position), 0) + 1, ?, ?, ?
	FROM discoveries WHERE run_id = ?
	`
	if _, err := h.db.ExecContext(ctx, query, runID, addr, model.HostOf(addr), formatTimestamp(at), runID); err != nil {
		return fmt.Errorf("failed to record discovery: %w", err)
	}
	return nil
}

// FinishRun stores the end time, emitted count and stop reason of the run.
func (h *HistoryDB) FinishRun(ctx context.Context, runID int64, summary *model.Summary) error {
	result, err := h.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, emitted = ?, stop_reason = ? WHERE id = ?`,
		formatTimestamp(summary.FinishedAt), summary.Emitted, string(summary.StopReason), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, seeds, filter_patterns, search_site, emitted, stop_reason`

// ListRuns returns every run, newest first.
func (h *HistoryDB) ListRuns(ctx context.Context) ([]Run, error) {
	return h.queryRuns(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC`)
}

// LatestRuns returns up to n runs, newest first.
func (h *HistoryDB) LatestRuns(ctx context.Context, n int) ([]Run, error) {
	return h.queryRuns(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, n)
}

// GetRun returns the run with the given id, or ErrRunNotFound.
func (h *HistoryDB) GetRun(ctx context.Context, runID int64) (*Run, error) {
	runs, err := h.queryRuns(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return &runs[0], nil
}

func (h *HistoryDB) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run                    Run
			startedAt, seeds, pats string
			finishedAt             sql.NullString
			stopReason             string
		)
		if err := rows.Scan(&run.ID, &startedAt, &finishedAt, &seeds, &pats, &run.SearchSite, &run.Emitted, &stopReason); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = parseTimestamp(startedAt)
		if finishedAt.Valid {
			run.FinishedAt = parseTimestamp(finishedAt.String)
		}
		run.StopReason = model.StopReason(stopReason)
		if err := json.Unmarshal([]byte(seeds), &run.Seeds); err != nil {
			return nil, fmt.Errorf("failed to parse seeds of run %d: %w", run.ID, err)
		}
		if err := json.Unmarshal([]byte(pats), &run.FilterPatterns); err != nil {
			return nil, fmt.Errorf("failed to parse filter patterns of run %d: %w", run.ID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunAddresses returns the addresses of a run in recording order.
// It returns ErrRunNotFound if the run does not exist.
func (h *HistoryDB) RunAddresses(ctx context.Context, runID int64) ([]string, error) {
	if _, err := h.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT url FROM discoveries WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	addrs := []string{}
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, rows.Err()
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats lists the formats parseTimestamp accepts, most specific first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time if s matches no known format.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
