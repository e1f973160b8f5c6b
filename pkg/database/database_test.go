package database

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite3", cfg.DSN())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestConfig_DefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.MaxConnections)
	assert.Equal(t, time.Hour, cfg.ConnMaxLifetime)
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty path", func(c *Config) { c.DatabasePath = "" }},
		{"zero connections", func(c *Config) { c.MaxConnections = 0 }},
		{"zero lifetime", func(c *Config) { c.ConnMaxLifetime = 0 }},
		{"zero idle time", func(c *Config) { c.ConnMaxIdleTime = 0 }},
		{"negative busy timeout", func(c *Config) { c.BusyTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_DSNCarriesPragmas(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatabasePath = "/tmp/x.db"
	dsn := cfg.DSN()

	assert.Contains(t, dsn, "file:/tmp/x.db?")
	assert.Contains(t, dsn, "_busy_timeout=5000")
	assert.Contains(t, dsn, "_journal_mode=WAL")
	assert.Contains(t, dsn, "_foreign_keys=on")
}

func TestMigrationManager_LoadEmbedded(t *testing.T) {
	migrations, err := NewMigrationManager(nil).LoadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "initial_schema", migrations[0].Description)
}

func TestMigrationManager_OrdersByVersion(t *testing.T) {
	source := fstest.MapFS{
		"m/002_second.sql": {Data: []byte("CREATE TABLE b (id INTEGER);")},
		"m/001_first.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"m/README.md":      {Data: []byte("ignored")},
	}

	migrations, err := NewMigrationManagerFS(nil, source, "m").LoadMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "002", migrations[1].Version)
}

func TestMigrationManager_ApplyIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	manager := NewMigrationManager(db)

	applied, err := manager.ApplyMigrations()
	require.NoError(t, err)
	assert.Equal(t, []string{"001"}, applied)

	applied, err = manager.ApplyMigrations()
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestMigrationManager_FailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)
	source := fstest.MapFS{
		"m/001_ok.sql":     {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"m/002_broken.sql": {Data: []byte("CREATE TABLE b (id INTEGER); NOT SQL;")},
	}

	applied, err := NewMigrationManagerFS(db, source, "m").ApplyMigrations()
	require.Error(t, err)
	assert.Equal(t, []string{"001"}, applied)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='b'").Scan(&count))
	assert.Zero(t, count)
}

func TestSchemaValidator_AfterMigrations(t *testing.T) {
	db := openTestDB(t)
	_, err := NewMigrationManager(db).ApplyMigrations()
	require.NoError(t, err)

	assert.NoError(t, NewSchemaValidator(db).Validate())
}

func TestSchemaValidator_MissingTables(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec("CREATE TABLE users (id INTEGER)")
	require.NoError(t, err)

	assert.Error(t, NewSchemaValidator(db).ValidateTablesExist())
}

func TestSchemaValidator_WrongColumnType(t *testing.T) {
	db := openTestDB(t)
	_, err := NewMigrationManager(db).ApplyMigrations()
	require.NoError(t, err)

	_, err = db.Exec("DROP TABLE messages")
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE messages (id INTEGER, content TEXT, created_at DATETIME,
		sender_id INTEGER, receiver_id INTEGER, is_read TEXT)`)
	require.NoError(t, err)

	err = NewSchemaValidator(db).ValidateTableStructure()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is_read")
}
