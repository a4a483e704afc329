package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/NorhenAbdennadher/fetch-data-from-JIRA/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.Config{AppEnv: "prod", LogLevel: "warn"}, &buf)

	l.Info().Msg("dropped")
	require.Zero(t, buf.Len())

	l.Warn().Str("range", "2024-01-01..2024-01-02").Msg("kept")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "kept", line["message"])
	require.Equal(t, "wp-census", line["app"])
	require.Equal(t, "2024-01-01..2024-01-02", line["range"])
}
