package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/NetPo4ki/go-dispatch/config"
)

func TestSetupWritesJSONToFile(t *testing.T) {
	t.Parallel()
	r := require.New(t)

	path := filepath.Join(t.TempDir(), "logs", "samples.log")
	logger, err := Setup(config.LogConfig{Level: "warn", Format: "json", Outputs: []string{path}})
	r.NoError(err)

	logger.Info("dropped")
	logger.Warn("kept", zap.Int("units", 3))
	r.NoError(logger.Sync())

	b, err := os.ReadFile(path)
	r.NoError(err)
	var entry map[string]any
	r.NoError(json.Unmarshal(b, &entry))
	r.Equal("kept", entry["msg"])
	r.Equal(float64(3), entry["units"])
}

func TestSetupWithRotation(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rotated.log")
	logger, err := Setup(config.LogConfig{
		Outputs:  []string{path},
		Rotation: config.RotationConfig{Enable: true},
	})
	require.NoError(t, err)
	logger.Info("hello")
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	require.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	require.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	require.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	require.Equal(t, zapcore.InfoLevel, parseLevel("loud"))
}
