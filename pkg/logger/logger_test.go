package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestFileName(t *testing.T) {
	ts := time.Date(2024, time.July, 8, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "NPI_Loader_July_2024_08.log", FileName(ts))
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":      zapcore.InfoLevel,
		"DEBUG": zapcore.DebugLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWritesToDailyFile(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)

	log, closeLog, err := New(Options{Dir: dir, Now: func() time.Time { return ts }})
	require.NoError(t, err)

	log.Infow("Loaded NPI download page", FieldURL, "https://example.test/NPI_Files.html")
	closeLog()

	data, err := os.ReadFile(filepath.Join(dir, "NPI_Loader_January_2024_02.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Loaded NPI download page")
	assert.Contains(t, string(data), "INFO")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
