package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLogsJSON(t *testing.T) {
	var buf bytes.Buffer
	InitWriter("prod", &buf)
	t.Cleanup(func() { Init("dev") })

	With("pedido_id", 7).Info("dispatched")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "dispatched", line["msg"])
	assert.Equal(t, float64(7), line["pedido_id"])
}

func TestDevelopmentLogsTextAtDebug(t *testing.T) {
	var buf bytes.Buffer
	InitWriter("dev", &buf)
	t.Cleanup(func() { Init("dev") })

	L().Debug("hello", "k", "v")
	out := buf.String()
	assert.True(t, strings.Contains(out, "msg=hello"), out)
	assert.True(t, strings.Contains(out, "k=v"), out)
}
