package domain

import "time"

// OtpPurpose declares what a one-time code proves. A code issued for one
// purpose can never be replayed for another.
type OtpPurpose string

const (
	OtpPurposeEmailVerify    OtpPurpose = "email-verify"
	OtpPurposePasswordChange OtpPurpose = "password-change"
)

func (p OtpPurpose) Valid() bool {
	return p == OtpPurposeEmailVerify || p == OtpPurposePasswordChange
}

// OtpChallenge is a short numeric code typed interactively by the user.
// Only the code's fingerprint is stored. At most one unconsumed challenge
// exists per (email, purpose); requesting a new one supersedes the prior.
type OtpChallenge struct {
	ID                string
	Email             string
	Purpose           OtpPurpose
	CodeHash          string
	AttemptsRemaining int
	Consumed          bool
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

// RecoveryToken is a long random single-use token delivered inside an
// emailed link, used only for the password-reset flow. No attempt counter:
// 256 bits of entropy substitutes for throttling since the token is never
// typed by hand.
type RecoveryToken struct {
	ID        string
	Email     string
	TokenHash string
	Consumed  bool
	CreatedAt time.Time
	ExpiresAt time.Time
}
