package notify

import (
	"fmt"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
)

// Message templates live here so the services stay free of copy. Bodies are
// deliberately plain; the surrounding product owns real email design.

func OtpCodeEmail(code string, purpose domain.OtpPurpose) (subject, body string) {
	switch purpose {
	case domain.OtpPurposePasswordChange:
		subject = "Your password change code"
	default:
		subject = "Verify your email address"
	}
	body = fmt.Sprintf("<p>Your verification code is <strong>%s</strong>.</p><p>It expires in 10 minutes.</p>", code)
	return subject, body
}

func PasswordResetEmail(link string) (subject, body string) {
	subject = "Reset your password"
	body = fmt.Sprintf("<p>Click the link below to reset your password. The link expires in 1 hour.</p><p><a href=%q>%s</a></p>", link, link)
	return subject, body
}

func InviteEmail(scopeName string, role domain.ScopeRole, link string) (subject, body string) {
	subject = fmt.Sprintf("You've been invited to %s", scopeName)
	body = fmt.Sprintf("<p>You have been invited to join <strong>%s</strong> as %s.</p><p><a href=%q>Accept the invite</a></p>", scopeName, role, link)
	return subject, body
}
