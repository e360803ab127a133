package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProdLogsJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "prod", "")
	log.Debug("hidden")
	log.Info("saved", "count", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "saved", line["msg"])
	assert.Equal(t, float64(3), line["count"])
}

func TestLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "dev", "warn")
	log.Info("quiet")
	assert.Empty(t, buf.String())
	log.Warn("loud")
	assert.Contains(t, buf.String(), "msg=loud")
}
