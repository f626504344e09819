package credstore_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	credstore "github.com/goliatone/go-credstore"
	goerrors "github.com/goliatone/go-errors"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	require.NoError(t, credstore.Migrate(context.Background(), sqldb, credstore.DriverSQLite))

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func newTestManager(t *testing.T, opts ...credstore.Option) (*credstore.Manager, *bun.DB) {
	t.Helper()

	db := newTestDB(t)
	base := []credstore.Option{
		credstore.WithLogger(testLogger{}),
		credstore.WithClock(func() time.Time { return fixedNow }),
	}

	manager := credstore.NewManager(credstore.NewRepositoryManager(db), append(base, opts...)...)
	t.Cleanup(manager.Wait)

	return manager, db
}

func loadAccount(t *testing.T, db *bun.DB, username string) *credstore.Account {
	t.Helper()

	record := &credstore.Account{}
	err := db.NewSelect().Model(record).Where("username = ?", username).Scan(context.Background())
	require.NoError(t, err)

	return record
}

func createAccount(t *testing.T, m *credstore.Manager, username, email, password string, verified bool) *credstore.Registration {
	t.Helper()

	reg, err := m.Create(context.Background(), credstore.NewAccount{
		Username: username,
		Email:    email,
		Password: password,
		Verified: verified,
	})
	require.NoError(t, err)

	return reg
}

func ptr[T any](v T) *T { return &v }

// message returns the bare message of a rich error, without category prefix
func message(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Message
	}
	return err.Error()
}
