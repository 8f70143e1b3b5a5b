package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()

	logger, path, err := InitLogger("test", Options{LogsDir: dir})
	require.NoError(t, err)

	logger.Debug("debug only in file")
	logger.Sync() //nolint:errcheck

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "test_migrate_"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"debug only in file"`)
	assert.Contains(t, string(content), `"env":"test"`)
}

func TestInitLogger_DefaultEnv(t *testing.T) {
	dir := t.TempDir()

	_, path, err := InitLogger("", Options{LogsDir: dir})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "default_migrate_"))
}
