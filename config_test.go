package credstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	credstore "github.com/goliatone/go-credstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := credstore.DefaultConfig()

	assert.Equal(t, credstore.DriverSQLite, cfg.Driver)
	assert.NotEmpty(t, cfg.DSN)
	assert.True(t, cfg.Migrate)
	assert.Equal(t, credstore.MinIterations, cfg.Iterations)
	assert.Equal(t, 5*time.Second, cfg.LastLoginTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*credstore.Config)
		wantErr bool
	}{
		{name: "postgres", mutate: func(c *credstore.Config) { c.Driver = credstore.DriverPostgres }},
		{name: "unknown driver", mutate: func(c *credstore.Config) { c.Driver = "mysql" }, wantErr: true},
		{name: "missing driver", mutate: func(c *credstore.Config) { c.Driver = "" }, wantErr: true},
		{name: "missing dsn", mutate: func(c *credstore.Config) { c.DSN = "" }, wantErr: true},
		{name: "low iterations are allowed", mutate: func(c *credstore.Config) { c.Iterations = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := credstore.DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_EffectiveIterations(t *testing.T) {
	cfg := credstore.DefaultConfig()

	cfg.Iterations = 100
	assert.Equal(t, credstore.MinIterations, cfg.EffectiveIterations())

	cfg.Iterations = 100000
	assert.Equal(t, 100000, cfg.EffectiveIterations())
}

func TestOpen_SQLiteRunsMigrations(t *testing.T) {
	ctx := context.Background()
	cfg := credstore.DefaultConfig()
	cfg.DSN = "file:" + filepath.Join(t.TempDir(), "open.sqlite")

	db, err := credstore.Open(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	manager := credstore.NewManagerFromConfig(credstore.NewRepositoryManager(db), cfg, credstore.WithLogger(testLogger{}))
	defer manager.Wait()

	reg, err := manager.Create(ctx, credstore.NewAccount{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
		Verified: true,
	})
	require.NoError(t, err)

	_, err = manager.Login(ctx, "alice", "secret123")
	require.NoError(t, err)
	manager.Wait()

	// a second open on the same file finds the schema already applied
	again, err := credstore.Open(ctx, cfg)
	require.NoError(t, err)
	defer again.Close()

	profile, err := credstore.NewManager(credstore.NewRepositoryManager(again), credstore.WithLogger(testLogger{})).
		Get(ctx, credstore.ByID(reg.ID))
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := credstore.DefaultConfig()
	cfg.Driver = "oracle"

	_, err := credstore.Open(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, credstore.IsValidationError(err))
}

func TestDialectMigrationsFS(t *testing.T) {
	for _, driver := range []string{credstore.DriverSQLite, credstore.DriverPostgres} {
		fsys, err := credstore.DialectMigrationsFS(driver)
		require.NoError(t, err)

		entries, err := fsReadDir(fsys)
		require.NoError(t, err)
		assert.Contains(t, entries, "00001_create_accounts.sql", driver)
	}
}
