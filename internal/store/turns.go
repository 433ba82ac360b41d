package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Allreality/my-twin/internal/model"
	"github.com/Allreality/my-twin/internal/working"
)

var _ working.Store = (*SQLiteStore)(nil)

// AppendTurn adds a turn to a session's durable working memory, drops the
// oldest turns beyond the cap and slides the session's expiry. A session
// that has already expired starts over empty.
func (s *SQLiteStore) AppendTurn(ctx context.Context, sessionID, userText, assistantText string) error {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	expired, err := sessionExpired(ctx, tx, sessionID, now)
	if err != nil {
		return err
	}
	if expired {
		if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("clear expired session: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO turns (session_id, user_text, assistant_text, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, userText, assistantText, formatTime(now))
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM turns
		WHERE session_id = ? AND id NOT IN (
			SELECT id FROM turns WHERE session_id = ? ORDER BY id DESC LIMIT ?
		)`, sessionID, sessionID, s.working.MaxTurns)
	if err != nil {
		return fmt.Errorf("trim turns: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (session_id, expires_at) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET expires_at = excluded.expires_at`,
		sessionID, now.Add(s.working.TTL).UnixNano())
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	return tx.Commit()
}

// Recent returns up to n of the session's most recent turns, oldest first.
// Unknown and expired sessions yield an empty slice. Reading does not
// extend the session's expiry.
func (s *SQLiteStore) Recent(ctx context.Context, sessionID string, n int) ([]model.Turn, error) {
	turns := []model.Turn{}
	if n <= 0 {
		return turns, nil
	}

	expired, err := sessionExpired(ctx, s.db, sessionID, s.now())
	if err != nil {
		return nil, err
	}
	if expired {
		return turns, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_text, assistant_text, created_at FROM turns
		WHERE session_id = ? ORDER BY id DESC LIMIT ?`, sessionID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t model.Turn
		var created string
		if err := rows.Scan(&t.User, &t.Assistant, &created); err != nil {
			return nil, err
		}
		t.Timestamp, _ = time.Parse(time.RFC3339Nano, created)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// SweepSessions deletes expired sessions and their turns. Returns how many
// sessions were removed.
func (s *SQLiteStore) SweepSessions(ctx context.Context) (int, error) {
	cutoff := s.now().UnixNano()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM turns WHERE session_id IN (
			SELECT session_id FROM sessions WHERE expires_at <= ?
		)`, cutoff)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), tx.Commit()
}

// SessionInfo summarizes a live session's working memory.
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	Turns     int       `json:"turns"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ListSessions returns live sessions, soonest to expire last.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.session_id, s.expires_at, COUNT(t.id)
		FROM sessions s LEFT JOIN turns t ON t.session_id = s.session_id
		WHERE s.expires_at > ?
		GROUP BY s.session_id, s.expires_at
		ORDER BY s.expires_at DESC, s.session_id`, s.now().UnixNano())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var info SessionInfo
		var expires int64
		if err := rows.Scan(&info.SessionID, &expires, &info.Turns); err != nil {
			return nil, err
		}
		info.ExpiresAt = time.Unix(0, expires).UTC()
		sessions = append(sessions, info)
	}
	return sessions, rows.Err()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sessionExpired reports whether the session is unknown or past its expiry.
func sessionExpired(ctx context.Context, q queryer, sessionID string, now time.Time) (bool, error) {
	var expires int64
	err := q.QueryRowContext(ctx, `SELECT expires_at FROM sessions WHERE session_id = ?`, sessionID).Scan(&expires)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return now.UnixNano() >= expires, nil
}
