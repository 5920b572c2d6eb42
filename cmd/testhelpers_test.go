package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/migrate-cli/internal/config"
	"github.com/sells-group/migrate-cli/internal/store"
)

// testConfig returns a Config with defaults and a SQLite store in a temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "migrate.db")
	c.Cleanse.ObjectType = "contacts"
	c.Cleanse.BatchSize = 2
	c.Cleanse.CheckpointEvery = 100
	c.Cleanse.DedupKeys = []string{"email"}
	c.Cleanse.MaxConcurrentJobs = 2
	c.Retry.MaxAttempts = 1
	c.Server.Port = 8080
	return c
}

func testStore(t *testing.T, c *config.Config) store.Store {
	t.Helper()
	st, err := initStore(context.Background(), c)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
