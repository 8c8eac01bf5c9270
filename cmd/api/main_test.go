package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunClosesRedisWhenListenFails(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("APP_ADDR", "127.0.0.1:-1")
	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("CACHE_DIR", t.TempDir())
	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("FRED_API_KEY", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("ASSUMPTIONS_FILE", "../../config/assumptions.yaml")

	assert.Equal(t, 1, run())
	assert.Eventually(t, func() bool { return mr.CurrentConnectionCount() == 0 },
		2*time.Second, 10*time.Millisecond, "redis connection left open")
}

func TestRunFailsOnInvalidAssumptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assumptions.yaml")
	require.NoError(t, os.WriteFile(path, []byte("working_capital_window: 4\n"), 0o644))

	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("ASSUMPTIONS_FILE", path)
	assert.Equal(t, 1, run())
}
