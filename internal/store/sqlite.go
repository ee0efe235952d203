// Package store persists session and per-file status records in SQLite.
// Records are append-only except for the single status field each carries.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a new Store, opening the SQLite database and running migrations
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("store initialized", "path", dbPath)
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// ============================================================================
// Session Operations
// ============================================================================

// CreateSession inserts a new in-process session and returns its id.
func (s *Store) CreateSession() (int64, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(
		"INSERT INTO sessions (created_at, last_modified_at, status) VALUES (?, ?, ?)",
		now, now, SessionInProcess,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return id, nil
}

// MarkSessionSuccess moves a session to its terminal success status.
func (s *Store) MarkSessionSuccess(id int64) error {
	return s.finishSession(id, SessionSuccess, "")
}

// MarkSessionError moves a session to its terminal error status with the
// failure message.
func (s *Store) MarkSessionError(id int64, message string) error {
	return s.finishSession(id, SessionError, message)
}

func (s *Store) finishSession(id int64, status, message string) error {
	result, err := s.db.Exec(
		"UPDATE sessions SET status = ?, error_message = ?, last_modified_at = ? WHERE id = ?",
		status, message, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session not found: %d", id)
	}
	return nil
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(id int64) (*Session, error) {
	sess := &Session{}
	err := s.db.QueryRow(
		"SELECT id, created_at, last_modified_at, status, error_message FROM sessions WHERE id = ?",
		id,
	).Scan(&sess.ID, &sess.CreatedAt, &sess.LastModifiedAt, &sess.Status, &sess.ErrorMessage)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session not found: %d", id)
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return sess, nil
}

// ListSessions retrieves the most recent sessions, newest first.
func (s *Store) ListSessions(limit int) ([]Session, error) {
	query := "SELECT id, created_at, last_modified_at, status, error_message FROM sessions ORDER BY id DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess := Session{}
		if err := rows.Scan(&sess.ID, &sess.CreatedAt, &sess.LastModifiedAt, &sess.Status, &sess.ErrorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// ============================================================================
// UploadedFile Operations
// ============================================================================

// RecordFile inserts an uploaded-file row for the session.
func (s *Store) RecordFile(sessionID int64, videoID, name, originalPath, status string) error {
	_, err := s.db.Exec(
		"INSERT INTO uploaded_files (session_id, video_id, name, original_path, status, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		sessionID, videoID, name, originalPath, status, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert uploaded file: %w", err)
	}
	return nil
}

// UpdateFileStatus sets the status of the most recent record for a video
// id. Unknown video ids are ignored, matching the record store's
// best-effort contract.
func (s *Store) UpdateFileStatus(videoID, status string) error {
	_, err := s.db.Exec(
		`UPDATE uploaded_files SET status = ?
		 WHERE id = (SELECT id FROM uploaded_files WHERE video_id = ? ORDER BY id DESC LIMIT 1)`,
		status, videoID,
	)
	if err != nil {
		return fmt.Errorf("failed to update file status: %w", err)
	}
	return nil
}

// GetFileByVideoID retrieves the most recent record for a video id.
func (s *Store) GetFileByVideoID(videoID string) (*UploadedFile, error) {
	f := &UploadedFile{}
	err := s.db.QueryRow(
		`SELECT id, session_id, video_id, name, original_path, status, created_at
		 FROM uploaded_files WHERE video_id = ? ORDER BY id DESC LIMIT 1`,
		videoID,
	).Scan(&f.ID, &f.SessionID, &f.VideoID, &f.Name, &f.OriginalPath, &f.Status, &f.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("file not found: %s", videoID)
		}
		return nil, fmt.Errorf("failed to query file: %w", err)
	}
	return f, nil
}

// ListSessionFiles retrieves all file records for a session.
func (s *Store) ListSessionFiles(sessionID int64) ([]UploadedFile, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, video_id, name, original_path, status, created_at
		 FROM uploaded_files WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query session files: %w", err)
	}
	defer rows.Close()

	var files []UploadedFile
	for rows.Next() {
		f := UploadedFile{}
		if err := rows.Scan(&f.ID, &f.SessionID, &f.VideoID, &f.Name, &f.OriginalPath, &f.Status, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session files: %w", err)
	}
	return files, nil
}
