package sqlite

import (
	"context"
	"errors"

	"github.com/crewdeck/crewdeck/internal/identity/store"
)

// txStore is a transaction-scoped store. The repos run against the *sql.Tx,
// so nested transactions are rejected rather than silently flattened.
type txStore struct {
	tx dbtxCloser
}

type dbtxCloser interface {
	dbtx
	Commit() error
	Rollback() error
}

func newTx(tx dbtxCloser) store.Tx {
	return &txStore{tx: tx}
}

func (t *txStore) Users() store.Users                   { return &usersRepo{db: t.tx} }
func (t *txStore) Orgs() store.Orgs                     { return &orgsRepo{db: t.tx} }
func (t *txStore) Memberships() store.Memberships       { return &membershipsRepo{db: t.tx} }
func (t *txStore) OtpChallenges() store.OtpChallenges   { return &otpChallengesRepo{db: t.tx} }
func (t *txStore) RecoveryTokens() store.RecoveryTokens { return &recoveryTokensRepo{db: t.tx} }
func (t *txStore) Invites() store.Invites               { return &invitesRepo{db: t.tx} }
func (t *txStore) Sessions() store.Sessions             { return &sessionsRepo{db: t.tx} }

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) ApplyMigrations() error {
	return errors.New("sqlite: migrations cannot run inside a transaction")
}

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, errors.New("sqlite: nested transactions are not supported")
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return errors.New("sqlite: nested transactions are not supported")
}

func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }
