package logger

import (
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	stdout := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = stdout }()

	fn()

	_ = w.Close()
	buf := make([]byte, 4096)
	n, _ := r.Read(buf)
	return string(buf[:n])
}

func TestNewVariants(t *testing.T) {
	t.Run("json format logs expected fields", func(t *testing.T) {
		out := captureStdout(t, func() {
			log := New(int(zerolog.InfoLevel), "json", false)
			log.Info().Str("key", "value").Msg("json_test")
		})
		require.Contains(t, out, `"message":"json_test"`)
		require.Contains(t, out, `"key":"value"`)
	})

	t.Run("console format logs human readable output", func(t *testing.T) {
		out := captureStdout(t, func() {
			log := New(int(zerolog.InfoLevel), "console", false)
			log.Info().Msg("console_test")
		})
		require.Contains(t, out, "console_test")
		require.NotContains(t, out, `"message"`)
	})

	t.Run("level filters lower severities", func(t *testing.T) {
		out := captureStdout(t, func() {
			log := New(int(zerolog.WarnLevel), "json", false)
			log.Info().Msg("filtered")
			log.Warn().Msg("kept")
		})
		require.NotContains(t, out, "filtered")
		require.Contains(t, out, "kept")
	})

	t.Run("sampler drops a fraction of lines", func(t *testing.T) {
		out := captureStdout(t, func() {
			log := New(int(zerolog.InfoLevel), "json", true)
			for i := 0; i < 10; i++ {
				log.Info().Msg("sampled")
			}
		})
		// BasicSampler{N: 5} keeps one in five.
		require.Equal(t, 2, strings.Count(out, "sampled"))
	})
}
