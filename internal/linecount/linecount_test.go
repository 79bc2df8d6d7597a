package linecount

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCountReaderTerminators(t *testing.T) {
	cases := []struct {
		name    string
		content string
		lines   int64
	}{
		{name: "empty", content: "", lines: 0},
		{name: "single unterminated", content: "abc", lines: 1},
		{name: "terminated", content: "a\nb\nc\n", lines: 3},
		{name: "last line unterminated", content: "a\nb\nc", lines: 3},
		{name: "crlf", content: "a\r\nb\r\n", lines: 2},
		{name: "lone cr", content: "a\rb\rc", lines: 3},
		{name: "blank lines", content: "\n\n\n", lines: 3},
		{name: "mixed", content: "a\r\n\rb\n", lines: 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lines, err := CountReader(strings.NewReader(tc.content))
			require.NoError(t, err)
			assert.Equal(t, tc.lines, lines)
		})
	}
}

func TestCountFile(t *testing.T) {
	path := writeFile(t, "a.txt", "one\ntwo\nthree\n")

	result := Count(path)

	require.False(t, result.Failed())
	assert.Equal(t, int64(3), result.Lines)
	assert.Equal(t, "utf-8", result.Encoding)
}

func TestCountToleratesInvalidBytes(t *testing.T) {
	path := writeFile(t, "legacy.txt", "caf\xe9\n\xff\xfe\nend")

	result := Count(path)

	require.False(t, result.Failed())
	assert.Equal(t, int64(3), result.Lines)
}

func TestCountDistinguishesFailureFromEmpty(t *testing.T) {
	empty := writeFile(t, "empty.txt", "")
	missing := filepath.Join(t.TempDir(), "missing.txt")

	emptyResult := Count(empty)
	missingResult := Count(missing)

	assert.False(t, emptyResult.Failed())
	assert.Zero(t, emptyResult.Lines)

	assert.True(t, missingResult.Failed())
	assert.Zero(t, missingResult.Lines)
	assert.Zero(t, Lines(missing))
}

func TestLinesMatchesCount(t *testing.T) {
	path := writeFile(t, "mixed.txt", "a\r\nb\rc")

	assert.Equal(t, Count(path).Lines, Lines(path))
	assert.Equal(t, int64(3), Lines(path))
}
