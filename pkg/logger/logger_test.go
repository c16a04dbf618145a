package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Init("info", "json", path))
	t.Cleanup(func() { Log = zap.NewNop() })

	Info("profile updated", zap.String("profile_id", "p-1"))
	Debug("dropped below level")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"profile updated"`)
	assert.Contains(t, string(data), `"profile_id":"p-1"`)
	assert.NotContains(t, string(data), "dropped below level")
}

func TestInitRejectsBadInput(t *testing.T) {
	assert.Error(t, Init("loud", "json", "stdout"))
	assert.Error(t, Init("info", "xml", "stdout"))
}

func TestGetLoggerBeforeInit(t *testing.T) {
	assert.NotNil(t, GetLogger())
}
