package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/Allreality/my-twin/internal/emotion"
	"github.com/Allreality/my-twin/internal/model"
)

var _ emotion.Persister = (*SQLiteStore)(nil)

// LoadEmotion returns the saved emotional state of a session, or nil if
// none has been saved.
func (s *SQLiteStore) LoadEmotion(ctx context.Context, sessionID string) (*model.EmotionSnapshot, error) {
	snap := model.EmotionSnapshot{SessionID: sessionID}
	var last string
	err := s.db.QueryRowContext(ctx, `
		SELECT emotion, intensity, momentum, trigger_text, last_update
		FROM emotions WHERE session_id = ?`, sessionID).
		Scan(&snap.Emotion, &snap.Intensity, &snap.Momentum, &snap.Trigger, &last)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.LastUpdate, _ = time.Parse(time.RFC3339Nano, last)
	return &snap, nil
}

// SaveEmotion upserts a session's emotional state.
func (s *SQLiteStore) SaveEmotion(ctx context.Context, snap model.EmotionSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emotions (session_id, emotion, intensity, momentum, trigger_text, last_update)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			emotion = excluded.emotion,
			intensity = excluded.intensity,
			momentum = excluded.momentum,
			trigger_text = excluded.trigger_text,
			last_update = excluded.last_update`,
		snap.SessionID, snap.Emotion, snap.Intensity, snap.Momentum, snap.Trigger, formatTime(snap.LastUpdate))
	return err
}
