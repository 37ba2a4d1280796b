package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStorage persists records in a SQLite database file. It is suitable
// for single-instance deployments that want the audit log to survive
// restarts.
//
// The database is opened in WAL mode with a single writer connection.
type SQLiteStorage struct {
	db *sql.DB

	insertStmt *sql.Stmt
	countStmt  *sql.Stmt
	deleteStmt *sql.Stmt
}

// NewSQLiteStorage opens or creates the database at dbPath and ensures the
// schema exists.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStorage{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStorage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage_records (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		conversation_id INTEGER NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		prompt_tokens INTEGER NOT NULL,
		completion_tokens INTEGER NOT NULL,
		total_tokens INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		status TEXT NOT NULL,
		streamed INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_usage_created_at ON usage_records(created_at);
	CREATE INDEX IF NOT EXISTS idx_usage_conversation ON usage_records(conversation_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStorage) prepareStatements() error {
	var err error

	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO usage_records
			(id, request_id, conversation_id, provider, model,
			 prompt_tokens, completion_tokens, total_tokens,
			 latency_ms, status, streamed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	s.countStmt, err = s.db.Prepare(`SELECT COUNT(*) FROM usage_records`)
	if err != nil {
		return fmt.Errorf("failed to prepare count statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM usage_records WHERE created_at < ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	return nil
}

// Insert appends a record.
func (s *SQLiteStorage) Insert(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}
	if rec.ID == "" {
		return fmt.Errorf("record id cannot be empty")
	}

	streamed := 0
	if rec.Streamed {
		streamed = 1
	}

	_, err := s.insertStmt.ExecContext(ctx,
		rec.ID,
		rec.RequestID,
		rec.ConversationID,
		rec.Provider,
		rec.Model,
		rec.PromptTokens,
		rec.CompletionTokens,
		rec.TotalTokens,
		rec.LatencyMS,
		rec.Status,
		streamed,
		rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// List returns records matching q, newest first.
func (s *SQLiteStorage) List(ctx context.Context, q Query) ([]*Record, error) {
	query := `
		SELECT id, request_id, conversation_id, provider, model,
		       prompt_tokens, completion_tokens, total_tokens,
		       latency_ms, status, streamed, created_at
		FROM usage_records
		WHERE 1=1`
	var args []any

	if q.ConversationID != 0 {
		query += " AND conversation_id = ?"
		args = append(args, q.ConversationID)
	}
	if q.Provider != "" {
		query += " AND provider = ?"
		args = append(args, q.Provider)
	}
	if !q.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, q.Since.UnixMilli())
	}
	query += " ORDER BY created_at DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			rec       Record
			streamed  int
			createdAt int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.RequestID,
			&rec.ConversationID,
			&rec.Provider,
			&rec.Model,
			&rec.PromptTokens,
			&rec.CompletionTokens,
			&rec.TotalTokens,
			&rec.LatencyMS,
			&rec.Status,
			&streamed,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.Streamed = streamed != 0
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// Count returns the number of stored records.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.countStmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// DeleteBefore removes records created before cutoff.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.deleteStmt.ExecContext(ctx, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete records: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return removed, nil
}

// Close releases database resources.
func (s *SQLiteStorage) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	if s.countStmt != nil {
		s.countStmt.Close()
	}
	if s.deleteStmt != nil {
		s.deleteStmt.Close()
	}
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}
