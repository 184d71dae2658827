package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fritz-collector/config"
)

// Init is process-global, so a single test exercises the whole
// lifecycle.
func TestInitAndLog(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ZapLogConfig{
		Level:   "debug",
		Format:  "console",
		Path:    dir,
		MaxSize: 10,
		MaxAge:  1,
	}

	require.NoError(t, Init(cfg))

	log := L()
	require.NotNil(t, log)
	log.Info("collector started")
	Named("test").Debug("component logger works")
	_ = Sync()

	files, err := filepath.Glob(filepath.Join(dir, "fritz-collector-*.log"))
	require.NoError(t, err)
	assert.NotEmpty(t, files, "rotating file core writes into the log directory")

	// Later Init calls are no-ops.
	assert.NoError(t, Init(config.ZapLogConfig{Level: "info", Path: dir}))
	assert.Same(t, log, L())
}
