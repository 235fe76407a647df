package sqlite

import (
	"context"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
)

type otpChallengesRepo struct {
	db dbtx
}

func (r *otpChallengesRepo) CreateChallenge(ctx context.Context, c domain.OtpChallenge) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO otp_challenges (id, email, purpose, code_hash, attempts_remaining, consumed, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Email, string(c.Purpose), c.CodeHash, c.AttemptsRemaining, c.Consumed, c.CreatedAt, c.ExpiresAt,
	)
	return mapConflict(err)
}

func (r *otpChallengesRepo) GetLatest(
	ctx context.Context,
	email string,
	purpose domain.OtpPurpose,
) (domain.OtpChallenge, error) {
	var c domain.OtpChallenge
	var p string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, purpose, code_hash, attempts_remaining, consumed, created_at, expires_at
		FROM otp_challenges
		WHERE email = ? AND purpose = ?
		ORDER BY id DESC
		LIMIT 1`,
		email, string(purpose),
	).Scan(&c.ID, &c.Email, &p, &c.CodeHash, &c.AttemptsRemaining, &c.Consumed, &c.CreatedAt, &c.ExpiresAt)
	if err != nil {
		return domain.OtpChallenge{}, mapNotFound(err)
	}
	c.Purpose = domain.OtpPurpose(p)
	return c, nil
}

func (r *otpChallengesRepo) ConsumeActiveFor(
	ctx context.Context,
	email string,
	purpose domain.OtpPurpose,
) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE otp_challenges SET consumed = 1
		WHERE email = ? AND purpose = ? AND consumed = 0`,
		email, string(purpose),
	)
	return err
}

// DecrementAttempts burns one attempt. The WHERE clause keeps the counter
// from ever going negative under concurrent verifies.
func (r *otpChallengesRepo) DecrementAttempts(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE otp_challenges SET attempts_remaining = attempts_remaining - 1
		WHERE id = ? AND consumed = 0 AND attempts_remaining > 0`,
		id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *otpChallengesRepo) Consume(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE otp_challenges SET consumed = 1
		WHERE id = ? AND consumed = 0`,
		id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *otpChallengesRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM otp_challenges WHERE expires_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
