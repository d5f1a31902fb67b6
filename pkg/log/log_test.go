package log

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("warn", &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_InvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("loud", &buf)
	require.Error(t, err)
	require.NotNil(t, logger, "a usable logger is returned even on error")
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestBadgerLogger_DemotesInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("info", &buf)
	require.NoError(t, err)
	adapter := NewBadgerLogger(logrus.NewEntry(logger))

	adapter.Infof("compaction %d", 1)
	adapter.Debugf("debug")
	assert.Empty(t, buf.String())

	adapter.Warningf("warning %d", 42)
	adapter.Errorf("error %s", "test")
	out := buf.String()
	assert.Contains(t, out, "warning 42")
	assert.Contains(t, out, "error test")
}
