package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"liveTradeFeed/internal/domain"
	"liveTradeFeed/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.DiagnosticsRepository interface using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for SQLite repository", ports.ErrConfigurationError)
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/feed_diagnostics.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %v", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Single writer; sqlite serialises anyway
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := newRepositoryWithDB(db, cfg.Logger)
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

func newRepositoryWithDB(db *sql.DB, logger ports.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS feed_diagnostics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		event TEXT NOT NULL DEFAULT '',
		trade_id TEXT NULL,
		message TEXT NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feed_diagnostics_recorded_at ON feed_diagnostics (recorded_at);
	CREATE INDEX IF NOT EXISTS idx_feed_diagnostics_session_kind ON feed_diagnostics (session_id, kind);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: failed to execute schema initialization: %v", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// Record saves a diagnostic and returns its assigned ID.
func (r *Repository) Record(ctx context.Context, d *domain.Diagnostic) (int64, error) {
	if d == nil {
		return 0, fmt.Errorf("%w: diagnostic is nil", ports.ErrInvalidRequest)
	}
	if d.SessionID == "" || d.Kind == "" {
		return 0, fmt.Errorf("%w: diagnostic requires session and kind", ports.ErrInvalidRequest)
	}
	if d.RecordedAt.IsZero() {
		d.RecordedAt = time.Now()
	}
	d.RecordedAt = d.RecordedAt.UTC() // stored as text; keep one zone so ordering holds

	const query = `
	INSERT INTO feed_diagnostics (session_id, kind, event, trade_id, message, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	var tradeID sql.NullString
	if d.TradeID != "" {
		tradeID = sql.NullString{String: d.TradeID, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		d.SessionID, string(d.Kind), string(d.Event), tradeID, d.Message, d.RecordedAt)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to insert %s diagnostic: %v", ports.ErrQueryFailed, d.Kind, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get last insert ID for diagnostic: %v", ports.ErrQueryFailed, err)
	}
	d.ID = id
	r.logger.Debug(ctx, "Diagnostic recorded", map[string]interface{}{"diagnosticID": id, "kind": string(d.Kind), "tradeID": d.TradeID})
	return id, nil
}

// Recent retrieves the most recent diagnostics, newest first, up to a limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]*domain.Diagnostic, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ports.ErrInvalidRequest, limit)
	}

	const query = `
	SELECT id, session_id, kind, event, trade_id, message, recorded_at
	FROM feed_diagnostics
	ORDER BY recorded_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query diagnostics: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	diagnostics := make([]*domain.Diagnostic, 0)
	for rows.Next() {
		d, err := scanDiagnostic(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan diagnostic: %v", ports.ErrQueryFailed, err)
		}
		diagnostics = append(diagnostics, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating diagnostic rows: %v", ports.ErrQueryFailed, err)
	}
	return diagnostics, nil
}

// CountByKind counts recorded diagnostics grouped by kind.
func (r *Repository) CountByKind(ctx context.Context) (map[domain.DiagnosticKind]int, error) {
	const query = `SELECT kind, COUNT(*) FROM feed_diagnostics GROUP BY kind`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to count diagnostics: %v", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	counts := make(map[domain.DiagnosticKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("%w: failed to scan diagnostic count: %v", ports.ErrQueryFailed, err)
		}
		counts[domain.DiagnosticKind(kind)] = n
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating diagnostic counts: %v", ports.ErrQueryFailed, err)
	}
	return counts, nil
}

// PruneBefore deletes diagnostics recorded before cutoff and returns how many were removed.
func (r *Repository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM feed_diagnostics WHERE recorded_at < ?`

	result, err := r.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: failed to prune diagnostics: %v", ports.ErrQueryFailed, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read pruned row count: %v", ports.ErrQueryFailed, err)
	}
	if n > 0 {
		r.logger.Info(ctx, "Pruned old diagnostics", map[string]interface{}{"deleted": n, "cutoff": cutoff.UTC().Format(time.RFC3339)})
	}
	return n, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDiagnostic(s scanner) (*domain.Diagnostic, error) {
	d := &domain.Diagnostic{}
	var kind, event string
	var tradeID sql.NullString
	err := s.Scan(&d.ID, &d.SessionID, &kind, &event, &tradeID, &d.Message, &d.RecordedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	d.Kind = domain.DiagnosticKind(kind)
	d.Event = domain.EventKind(event)
	if tradeID.Valid {
		d.TradeID = tradeID.String
	}
	return d, nil
}
