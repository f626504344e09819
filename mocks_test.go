package credstore_test

import (
	"context"
	"database/sql"

	credstore "github.com/goliatone/go-credstore"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockRepositoryManager implements credstore.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

// RunInTx records the call and, unless a failure was stubbed, hands a zero
// bun.Tx to the callback and returns its error.
func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	if err := args.Error(0); err != nil {
		return err
	}
	var tx bun.Tx
	return f(ctx, tx)
}

func (m *MockRepositoryManager) Accounts() credstore.Accounts {
	args := m.Called()
	return args.Get(0).(credstore.Accounts)
}

// MockAccounts implements credstore.Accounts
type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) account(args mock.Arguments) (*credstore.Account, error) {
	if record, ok := args.Get(0).(*credstore.Account); ok {
		return record, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccounts) Insert(ctx context.Context, record *credstore.Account) (*credstore.Account, error) {
	return m.account(m.Called(ctx, record))
}

func (m *MockAccounts) InsertTx(ctx context.Context, tx bun.IDB, record *credstore.Account) (*credstore.Account, error) {
	return m.account(m.Called(ctx, tx, record))
}

func (m *MockAccounts) Get(ctx context.Context, ident credstore.Identifier) (*credstore.Account, error) {
	return m.account(m.Called(ctx, ident))
}

func (m *MockAccounts) GetTx(ctx context.Context, tx bun.IDB, ident credstore.Identifier) (*credstore.Account, error) {
	return m.account(m.Called(ctx, tx, ident))
}

func (m *MockAccounts) GetByLogin(ctx context.Context, login string, verifiedOnly bool) (*credstore.Account, error) {
	return m.account(m.Called(ctx, login, verifiedOnly))
}

func (m *MockAccounts) GetByLoginTx(ctx context.Context, tx bun.IDB, login string, verifiedOnly bool) (*credstore.Account, error) {
	return m.account(m.Called(ctx, tx, login, verifiedOnly))
}

func (m *MockAccounts) GetByToken(ctx context.Context, token string) (*credstore.Account, error) {
	return m.account(m.Called(ctx, token))
}

func (m *MockAccounts) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*credstore.Account, error) {
	return m.account(m.Called(ctx, tx, token))
}

func (m *MockAccounts) Exists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccounts) UpdateVerification(ctx context.Context, id int64, token *string, verified *bool) (int64, error) {
	args := m.Called(ctx, id, token, verified)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccounts) UpdateVerificationTx(ctx context.Context, tx bun.IDB, id int64, token *string, verified *bool) (int64, error) {
	args := m.Called(ctx, tx, id, token, verified)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccounts) UpdatePassword(ctx context.Context, id int64, passwordHash, salt string, verified, clearToken bool, at int64) (int64, error) {
	args := m.Called(ctx, id, passwordHash, salt, verified, clearToken, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccounts) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id int64, passwordHash, salt string, verified, clearToken bool, at int64) (int64, error) {
	args := m.Called(ctx, tx, id, passwordHash, salt, verified, clearToken, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccounts) UpdateLastLogin(ctx context.Context, id int64, at int64) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockAccounts) UpdateData(ctx context.Context, ident credstore.Identifier, data string, at int64) (int64, error) {
	args := m.Called(ctx, ident, data, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccounts) Delete(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

// MockActivitySink implements credstore.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event credstore.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
