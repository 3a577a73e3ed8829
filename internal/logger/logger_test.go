package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		name    string
		format  string
		level   string
		enabled zapcore.Level
		wantErr bool
	}{
		{name: "json info", format: "json", level: "info", enabled: zapcore.InfoLevel},
		{name: "text debug", format: "text", level: "debug", enabled: zapcore.DebugLevel},
		{name: "warn", format: "json", level: "warn", enabled: zapcore.WarnLevel},
		{name: "unknown level", format: "json", level: "loud", wantErr: true},
		{name: "unknown format", format: "xml", level: "info", wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			log, err := New(tc.format, tc.level)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.True(t, log.Core().Enabled(tc.enabled))
			require.False(t, log.Core().Enabled(tc.enabled-1))
		})
	}
}

func TestNewNone(t *testing.T) {
	log, err := New("json", "none")
	require.NoError(t, err)
	require.False(t, log.Core().Enabled(zapcore.ErrorLevel))
}

func TestMustNewPanics(t *testing.T) {
	require.Panics(t, func() { MustNew("json", "loud") })
}
