package sqlite

import (
	"context"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
)

type recoveryTokensRepo struct {
	db dbtx
}

func (r *recoveryTokensRepo) CreateToken(ctx context.Context, t domain.RecoveryToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recovery_tokens (id, email, token_hash, consumed, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Email, t.TokenHash, t.Consumed, t.CreatedAt, t.ExpiresAt,
	)
	return mapConflict(err)
}

func (r *recoveryTokensRepo) GetByTokenHash(ctx context.Context, hash string) (domain.RecoveryToken, error) {
	var t domain.RecoveryToken
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, token_hash, consumed, created_at, expires_at
		FROM recovery_tokens WHERE token_hash = ?`, hash,
	).Scan(&t.ID, &t.Email, &t.TokenHash, &t.Consumed, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		return domain.RecoveryToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *recoveryTokensRepo) ConsumeActiveFor(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE recovery_tokens SET consumed = 1
		WHERE email = ? AND consumed = 0`, email,
	)
	return err
}

func (r *recoveryTokensRepo) Consume(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recovery_tokens SET consumed = 1
		WHERE id = ? AND consumed = 0`, id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *recoveryTokensRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM recovery_tokens WHERE expires_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
