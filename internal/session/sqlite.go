package session

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/discovery-agent/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	entropy *rand.Rand
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id             TEXT PRIMARY KEY,
		topic          TEXT NOT NULL,
		status         TEXT NOT NULL DEFAULT 'pending',
		progress       INTEGER NOT NULL DEFAULT 0,
		current_phase  TEXT,
		max_documents  INTEGER NOT NULL DEFAULT 0,
		max_hypotheses INTEGER NOT NULL DEFAULT 0,
		iterations     INTEGER NOT NULL DEFAULT 1,
		ai_model       TEXT,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL,
		completed_at   TEXT,
		error_message  TEXT,
		results_path   TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
	CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at DESC);

	CREATE TABLE IF NOT EXISTS session_logs (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		timestamp  TEXT NOT NULL,
		phase      TEXT,
		message    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_session_logs_session ON session_logs(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context, p CreateParams) (*model.Session, error) {
	now := time.Now().UTC()
	id := s.newID()

	iterations := p.Iterations
	if iterations <= 0 {
		iterations = 1
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, topic, status, progress, max_documents, max_hypotheses, iterations, ai_model, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?, ?, ?, ?, ?)`,
		id, p.Topic, model.StatusPending, p.MaxDocuments, p.MaxHypotheses,
		iterations, p.Model, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return &model.Session{
		ID:            id,
		Topic:         p.Topic,
		Status:        model.StatusPending,
		MaxDocuments:  p.MaxDocuments,
		MaxHypotheses: p.MaxHypotheses,
		Iterations:    iterations,
		Model:         p.Model,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, topic, status, progress, current_phase, max_documents, max_hypotheses,
		        iterations, ai_model, created_at, updated_at, completed_at, error_message, results_path
		 FROM sessions WHERE id = ?`, id)

	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.Session, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, topic, status, progress, current_phase, max_documents, max_hypotheses,
	                 iterations, ai_model, created_at, updated_at, completed_at, error_message, results_path
	          FROM sessions`
	args := []interface{}{}
	if p.Status != "" {
		if !model.ValidStatuses[p.Status] {
			return nil, fmt.Errorf("invalid status %q", p.Status)
		}
		query += ` WHERE status = ?`
		args = append(args, p.Status)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id, status, errorMessage string) error {
	if !model.ValidStatuses[status] {
		return fmt.Errorf("invalid status %q", status)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	var completedAt *string
	if status == model.StatusCompleted || status == model.StatusFailed {
		completedAt = &now
	}
	var errPtr *string
	if errorMessage != "" {
		errPtr = &errorMessage
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, updated_at = ?,
		        completed_at = COALESCE(?, completed_at),
		        error_message = COALESCE(?, error_message)
		 WHERE id = ?`,
		status, now, completedAt, errPtr, id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) UpdateProgress(ctx context.Context, id string, progress int, phase, message string) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET progress = ?, current_phase = ?, updated_at = ? WHERE id = ?`,
		progress, phase, now, id)
	if err != nil {
		return err
	}
	if err := requireRow(res, id); err != nil {
		return err
	}

	if message != "" {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO session_logs (session_id, timestamp, phase, message) VALUES (?, ?, ?, ?)`,
			id, now, phase, message)
		if err != nil {
			return fmt.Errorf("insert log: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) SaveResultsPath(ctx context.Context, id, path string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET results_path = ?, updated_at = ? WHERE id = ?`, path, now, id)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) Logs(ctx context.Context, id string) ([]model.SessionLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, timestamp, phase, message
		 FROM session_logs WHERE session_id = ? ORDER BY timestamp, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []model.SessionLog
	for rows.Next() {
		var l model.SessionLog
		var ts string
		var phase sql.NullString
		if err := rows.Scan(&l.ID, &l.SessionID, &ts, &phase, &l.Message); err != nil {
			return nil, err
		}
		l.Timestamp, _ = time.Parse(time.RFC3339, ts)
		l.Phase = phase.String
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_logs WHERE session_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireRow(res, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*model.Session, error) {
	var sess model.Session
	var phase, aiModel, completedAt, errMsg, resultsPath sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&sess.ID, &sess.Topic, &sess.Status, &sess.Progress, &phase,
		&sess.MaxDocuments, &sess.MaxHypotheses, &sess.Iterations, &aiModel,
		&createdAt, &updatedAt, &completedAt, &errMsg, &resultsPath,
	)
	if err != nil {
		return nil, err
	}

	sess.CurrentPhase = phase.String
	sess.Model = aiModel.String
	sess.ErrorMessage = errMsg.String
	sess.ResultsPath = resultsPath.String
	sess.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	sess.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		sess.CompletedAt = &t
	}

	return &sess, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}
