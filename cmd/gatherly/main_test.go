package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatherly/internal/database"
	dbconfig "gatherly/pkg/database"
	"gatherly/pkg/types"
)

func writeConfig(t *testing.T, dbPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gatherly.yaml")
	content := fmt.Sprintf(`
database:
  path: %s
auth:
  secret: cli-test-secret-0123456789
log:
  level: error
`, dbPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCLI_SeedPopulatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seed.db")
	cfgPath := writeConfig(t, dbPath)

	err := newCLI(&cliArgs{}).Run([]string{"gatherly", "--config-file", cfgPath, "seed", "--users", "3", "--events", "4"})
	require.NoError(t, err)

	config := dbconfig.DefaultConfig()
	config.DatabasePath = dbPath
	store, err := database.NewManager(config, zerolog.Nop())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	users, err := store.ListUsers(context.Background(), "", types.DefaultPage())
	require.NoError(t, err)
	assert.Len(t, users, 3)

	events, err := store.ListEvents(context.Background(), types.DefaultPage())
	require.NoError(t, err)
	assert.Len(t, events, 4)
}

func TestCLI_RejectsBadArguments(t *testing.T) {
	cfgPath := writeConfig(t, filepath.Join(t.TempDir(), "bad.db"))

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown log level", args: []string{"gatherly", "--log-level", "loud", "--config-file", cfgPath, "seed"}},
		{name: "missing config file", args: []string{"gatherly", "--config-file", "/nonexistent/gatherly.yaml", "seed"}},
		{name: "negative users", args: []string{"gatherly", "--config-file", cfgPath, "seed", "--users", "-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, newCLI(&cliArgs{}).Run(tt.args))
		})
	}
}

func TestSetup_FlagsOverrideConfig(t *testing.T) {
	cfgPath := writeConfig(t, filepath.Join(t.TempDir(), "flags.db"))

	cfg, _, err := setup(&cliArgs{ConfigFile: cfgPath, LogLevel: "debug", JSONLog: true})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "cli-test-secret-0123456789", cfg.Auth.Secret)
}

func TestCLI_ConfigPrintsEffectiveSettings(t *testing.T) {
	cfgPath := writeConfig(t, "/var/lib/gatherly/test.db")

	var out bytes.Buffer
	cliApp := newCLI(&cliArgs{})
	cliApp.Writer = &out
	require.NoError(t, cliApp.Run([]string{"gatherly", "--config-file", cfgPath, "config"}))

	assert.Contains(t, out.String(), "path: /var/lib/gatherly/test.db")
	assert.Contains(t, out.String(), "level: error")
	assert.NotContains(t, out.String(), "cli-test-secret-0123456789")
}
