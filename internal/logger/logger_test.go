package logger

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, fn func()) string {
	orig := os.Stdout
	defer func() { os.Stdout = orig }()

	r, w, err := os.Pipe()
	require.NoError(t, err, "failed to create stdout pipe")

	os.Stdout = w

	fn()

	err = w.Close()
	require.NoError(t, err, "failed to close stdout pipe")

	out, err := io.ReadAll(r)
	require.NoError(t, err, "failed to read stdout pipe")

	return string(out)
}

func TestLogger_parseLevel(t *testing.T) {
	t.Run("valid value", func(t *testing.T) {
		tests := []struct {
			name     string
			input    string
			expected slog.Level
		}{
			{"Debug level", "DEBUG", slog.LevelDebug},
			{"Debug level lowercase", "debug", slog.LevelDebug},
			{"Info level", "INFO", slog.LevelInfo},
			{"Warn level", "warn", slog.LevelWarn},
			{"Error level", "error", slog.LevelError},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := parseLevel(tt.input)

				require.NoError(t, err)
				require.Equal(t, tt.expected, got)
			})
		}
	})

	t.Run("not valid", func(t *testing.T) {
		for _, value := range []string{"", "unknown"} {
			_, err := parseLevel(value)
			require.Error(t, err)
		}
	})
}

func TestLogger_New(t *testing.T) {
	t.Run("dev environment uses text", func(t *testing.T) {
		out := capture(t, func() {
			l, err := New(EnvDev, LevelInfo)
			require.NoError(t, err)

			l.Info("test message", "key", "value")
		})

		require.Contains(t, out, "test message")
		require.Contains(t, out, "key=value")
		require.Contains(t, out, "INFO")
	})

	t.Run("production environment uses json", func(t *testing.T) {
		out := capture(t, func() {
			l, err := New(EnvProduction, LevelInfo)
			require.NoError(t, err)

			l.Info("test message", "key", "value")
		})

		var entry map[string]any
		err := json.Unmarshal([]byte(out), &entry)
		require.NoError(t, err, "JSON log should be valid")
		require.Equal(t, "test message", entry["msg"])
		require.Equal(t, "INFO", entry["level"])
		require.Equal(t, "value", entry["key"])
	})

	t.Run("unknown environment", func(t *testing.T) {
		_, err := New("staging", LevelInfo)
		require.Error(t, err)
	})

	t.Run("unknown level", func(t *testing.T) {
		_, err := New(EnvDev, "loud")
		require.Error(t, err)
	})
}

func TestLogger_NewNoOpLogger(t *testing.T) {
	out := capture(t, func() {
		l := NewNoOpLogger()
		l.Debug("debug message")
		l.Info("info message")
		l.Warn("warn message")
		l.Error("error message")
	})

	require.Empty(t, out, "NoOp logger should not write anything")
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func(Logger)
		isLogged bool
	}{
		{"Debug logger logs debug", LevelDebug, func(l Logger) { l.Debug("test") }, true},
		{"Info logger skips debug", LevelInfo, func(l Logger) { l.Debug("test") }, false},
		{"Info logger logs info", LevelInfo, func(l Logger) { l.Info("test") }, true},
		{"Warn logger skips info", LevelWarn, func(l Logger) { l.Info("test") }, false},
		{"Warn logger logs warn", LevelWarn, func(l Logger) { l.Warn("test") }, true},
		{"Error logger skips warn", LevelError, func(l Logger) { l.Warn("test") }, false},
		{"Error logger logs error", LevelError, func(l Logger) { l.Error("test") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := capture(t, func() {
				l, err := New(EnvDev, tt.level)
				require.NoError(t, err)

				tt.logFn(l)
			})

			require.Equal(t, tt.isLogged, len(out) > 0, "level %s: expected isLogged=%v", tt.level, tt.isLogged)
		})
	}
}

func TestLogger_With(t *testing.T) {
	out := capture(t, func() {
		l, err := New(EnvDev, LevelInfo)
		require.NoError(t, err)

		l.With("component", "test", "version", "1.0").Info("test message")
	})

	require.Contains(t, out, "component=test")
	require.Contains(t, out, "version=1.0")
	require.Contains(t, out, "test message")
}
