package service

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/crewdeck/crewdeck/internal/identity/domain"
	"github.com/crewdeck/crewdeck/internal/identity/store"
	"github.com/crewdeck/crewdeck/internal/identity/store/drivers/sqlite"
	"github.com/crewdeck/crewdeck/pkg/cryptox"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "identity-service-test")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	cryptox.SetPepperPath(filepath.Join(dir, "pepper.key"))
	os.Exit(m.Run())
}

// recordingSender captures outbound mail so tests can fish codes and links
// back out of the bodies, the same way a user would.
type recordingSender struct {
	mu   sync.Mutex
	sent []sentEmail
}

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

func (s *recordingSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentEmail{To: to, Subject: subject, Body: body})
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *recordingSender) last(t *testing.T) sentEmail {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.sent, "no email was sent")
	return s.sent[len(s.sent)-1]
}

var (
	codeRe  = regexp.MustCompile(`\d{6}`)
	tokenRe = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)
)

// lastCode extracts the 6-digit code from the most recent email.
func (s *recordingSender) lastCode(t *testing.T) string {
	t.Helper()
	code := codeRe.FindString(s.last(t).Body)
	require.NotEmpty(t, code, "no code found in email body")
	return code
}

// lastToken extracts the link token from the most recent email.
func (s *recordingSender) lastToken(t *testing.T) string {
	t.Helper()
	m := tokenRe.FindStringSubmatch(s.last(t).Body)
	require.Len(t, m, 2, "no token link found in email body")
	return m[1]
}

// env wires the full service graph over an in-memory store.
type env struct {
	store    store.Store
	sender   *recordingSender
	creds    *CredentialService
	sessions *SessionService
	otp      *OtpService
	recovery *RecoveryService
	access   *AccessService
	invites  *InviteService
	accounts *AccountService
	orgs     *OrgService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	sender := &recordingSender{}
	creds, err := NewCredentialService(st)
	require.NoError(t, err)

	access := &AccessService{Store: st}
	otp := &OtpService{Store: st, Sender: sender, TTL: 10 * time.Minute}

	return &env{
		store:    st,
		sender:   sender,
		creds:    creds,
		sessions: &SessionService{Store: st, Credentials: creds, TTL: 24 * time.Hour},
		otp:      otp,
		recovery: &RecoveryService{Store: st, Sender: sender, LinkBase: "http://localhost:3000", TTL: time.Hour},
		access:   access,
		invites:  &InviteService{Store: st, Access: access, Sender: sender, LinkBase: "http://localhost:3000", TTL: 72 * time.Hour},
		accounts: &AccountService{Store: st, Otp: otp},
		orgs:     &OrgService{Store: st, Access: access},
	}
}

func (e *env) register(t *testing.T, email, name, password string) domain.User {
	t.Helper()
	user, err := e.accounts.Register(context.Background(), email, name, password)
	require.NoError(t, err)
	return user
}

// wrongCode returns a 6-digit code that differs from the given one.
func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}
