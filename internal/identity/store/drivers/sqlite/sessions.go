package sqlite

import (
	"context"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
)

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token_hash, revoked, issued_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.TokenHash, s.Revoked, s.IssuedAt, s.ExpiresAt,
	)
	return mapConflict(err)
}

func (r *sessionsRepo) GetByTokenHash(ctx context.Context, hash string) (domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, revoked, issued_at, expires_at
		FROM sessions WHERE token_hash = ?`, hash,
	).Scan(&s.ID, &s.UserID, &s.TokenHash, &s.Revoked, &s.IssuedAt, &s.ExpiresAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET revoked = 1 WHERE id = ?`, id)
	return err
}

func (r *sessionsRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET revoked = 1 WHERE user_id = ? AND revoked = 0`, userID)
	return err
}

func (r *sessionsRepo) RevokeAllForUserExcept(ctx context.Context, userID string, keepSessionID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET revoked = 1
		WHERE user_id = ? AND revoked = 0 AND id != ?`,
		userID, keepSessionID)
	return err
}

func (r *sessionsRepo) DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE revoked = 1 OR expires_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
