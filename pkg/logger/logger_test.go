package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stitchkit/stitch.go/pkg/logger"
)

func TestLog(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).Make()
	require.NoError(t, err)
	require.NotNil(t, templogger)
	// Get Stats Before
	require.Equal(t, buff.Len(), 0)
	templogger.Info("logged in", "user_id", "u1")
	// Get Stats After
	require.Contains(t, buff.String(), "logged in")
	require.Contains(t, buff.String(), `"user_id":"u1"`)
}

func TestLogLevel(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).Level("warn").Make()
	require.NoError(t, err)

	templogger.Info("dropped")
	templogger.Debug("dropped")
	require.Equal(t, 0, buff.Len())

	templogger.Warn("kept")
	require.Contains(t, buff.String(), "kept")
}

func TestLogFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stitch.log")
	templogger, err := logger.New().FromPath(path).Make()
	require.NoError(t, err)

	templogger.Error("logout failed", "error", "boom")
	require.NoError(t, templogger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "logout failed")
}

func TestNop(t *testing.T) {
	l := logger.Nop()
	l.Error("nothing")
	l.Warn("nothing")
	l.Info("nothing")
	l.Debug("nothing")
}
