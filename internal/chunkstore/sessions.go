package chunkstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gazerec/internal/sessiondata"
)

const sessionColumns = "session_id, data_json, created_at, updated_at"

// PutSession inserts or replaces a session record.
func (s *Store) PutSession(ctx context.Context, session *Session) error {
	ctx = ensureContext(ctx)
	if session == nil || session.SessionID == "" {
		return persistErr("put session", errors.New("session id is required"))
	}
	return persistErr("put session", s.withTx(ctx, func(tx *sql.Tx) error {
		return s.putSessionTx(ctx, tx, session)
	}))
}

func (s *Store) putSessionTx(ctx context.Context, tx *sql.Tx, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	now := s.now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, status, participant_name, recording_start_time, data_json, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(session_id) DO UPDATE SET
             status = excluded.status,
             participant_name = excluded.participant_name,
             recording_start_time = excluded.recording_start_time,
             data_json = excluded.data_json,
             updated_at = excluded.updated_at`,
		session.SessionID,
		string(session.Status),
		nullableString(session.Participant.Name),
		session.RecordingStartTime,
		string(payload),
		session.CreatedAt.Format(time.RFC3339Nano),
		session.UpdatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// GetSession fetches a session record. It returns nil, nil when absent.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, sessionID)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get session", err)
	}
	return session, nil
}

// UpdateSession applies fn to the stored record inside one transaction and
// writes the result back. It returns ErrSessionNotFound when the record is
// missing; an error from fn aborts the update.
func (s *Store) UpdateSession(ctx context.Context, sessionID string, fn func(*Session) error) (*Session, error) {
	ctx = ensureContext(ctx)
	var updated *Session
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, sessionID)
		session, err := scanSession(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		if err != nil {
			return err
		}
		if err := fn(session); err != nil {
			return err
		}
		session.SessionID = sessionID
		if err := s.putSessionTx(ctx, tx, session); err != nil {
			return err
		}
		updated = session
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, persistErr("update session", err)
	}
	return updated, nil
}

// SetStatus transitions a session to status, recording message when the
// status is an error.
func (s *Store) SetStatus(ctx context.Context, sessionID string, status sessiondata.Status, message string) error {
	_, err := s.UpdateSession(ctx, sessionID, func(session *Session) error {
		session.Status = status
		if status == sessiondata.StatusError {
			session.ErrorMessage = message
		} else {
			session.ErrorMessage = ""
		}
		return nil
	})
	return err
}

// GetAllSessions lists every session, newest recording first.
func (s *Store) GetAllSessions(ctx context.Context) ([]*Session, error) {
	return s.listSessions(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY recording_start_time DESC, created_at DESC`)
}

// SessionsByStatus lists sessions whose status is one of statuses.
func (s *Store) SessionsByStatus(ctx context.Context, statuses ...sessiondata.Status) ([]*Session, error) {
	if len(statuses) == 0 {
		return []*Session{}, nil
	}
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = string(status)
	}
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE status IN (` + makePlaceholders(len(statuses)) + `)
        ORDER BY recording_start_time DESC, created_at DESC`
	return s.listSessions(ctx, query, args...)
}

// Summarize attaches chunk counts and byte totals to session.
func (s *Store) Summarize(ctx context.Context, session *Session) (SessionSummary, error) {
	summary := SessionSummary{Session: session}
	var err error
	if summary.WebcamCount, err = s.CountChunks(ctx, session.SessionID, sessiondata.StreamWebcam); err != nil {
		return summary, err
	}
	if summary.ScreenCount, err = s.CountChunks(ctx, session.SessionID, sessiondata.StreamScreen); err != nil {
		return summary, err
	}
	if summary.TotalBytes, err = s.CalculateTotalSize(ctx, session.SessionID); err != nil {
		return summary, err
	}
	return summary, nil
}

func (s *Store) listSessions(ctx context.Context, query string, args ...any) ([]*Session, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list sessions", err)
	}
	defer rows.Close()

	sessions := make([]*Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, persistErr("scan session", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("iterate sessions", err)
	}
	return sessions, nil
}

// DeleteSession removes a session record and every chunk belonging to it in
// one transaction. It returns the number of chunks removed.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM video_chunks WHERE session_id = ?`, sessionID)
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
		return err
	})
	if err != nil {
		return 0, persistErr("delete session", err)
	}
	return removed, nil
}

// ClearAll removes every session and chunk.
func (s *Store) ClearAll(ctx context.Context) error {
	ctx = ensureContext(ctx)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM video_chunks`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM sessions`)
		return err
	})
	return persistErr("clear all", err)
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		id         string
		payload    string
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &payload, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	session := &Session{}
	if err := json.Unmarshal([]byte(payload), session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	session.SessionID = id
	if created, err := parseTimeString(createdRaw.String); err == nil {
		session.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		session.UpdatedAt = updated
	}
	return session, nil
}
