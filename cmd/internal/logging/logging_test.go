package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	logger := Wrap(logrus.NewEntry(base)).With("component", "worker")

	logger.Warn("delivery failed", "supplier", "7", "retry", 2, "err", errors.New("boom"))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "delivery failed", entry.Message)
	assert.Equal(t, "worker", entry.Data["component"])
	assert.Equal(t, "7", entry.Data["supplier"])
	assert.Equal(t, 2, entry.Data["retry"])
	assert.Equal(t, "boom", entry.Data["err"])
}

func TestLoggerOddArgs(t *testing.T) {
	base, hook := test.NewNullLogger()
	Wrap(logrus.NewEntry(base)).Info("odd", "lonely")

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "<missing>", hook.LastEntry().Data["lonely"])
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("warn", "json", &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Error("shown", "sku", "A1")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"sku":"A1"`)

	_, err = New("loud", "text", &buf)
	assert.Error(t, err)
	_, err = New("info", "xml", &buf)
	assert.Error(t, err)
}
