package docs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLines(t *testing.T, n int) string {
	t.Helper()
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString("line\n")
	}
	path := filepath.Join(t.TempDir(), "ref.go")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0600))
	return path
}

func TestLoadReference_StripsHeader(t *testing.T) {
	for _, total := range []int{21, 22, 30, 100} {
		ref, err := LoadReference(writeLines(t, total), DefaultHeaderLines)
		require.NoError(t, err)
		assert.Equal(t, total-DefaultHeaderLines, strings.Count(ref, "\n"), "file of %d lines", total)
	}
}

func TestLoadReference_ShortFile(t *testing.T) {
	ref, err := LoadReference(writeLines(t, 5), DefaultHeaderLines)
	require.NoError(t, err)
	assert.Empty(t, ref)
}

func TestLoadReference_ConfigurableHeader(t *testing.T) {
	ref, err := LoadReference(writeLines(t, 10), 3)
	require.NoError(t, err)
	assert.Equal(t, 7, strings.Count(ref, "\n"))

	ref, err = LoadReference(writeLines(t, 4), 0)
	require.NoError(t, err)
	assert.Equal(t, "line\nline\nline\nline\n", ref)

	_, err = LoadReference(writeLines(t, 4), -1)
	assert.Error(t, err)
}

func TestLoadReference_NotFound(t *testing.T) {
	_, err := LoadReference(filepath.Join(t.TempDir(), "nope.go"), DefaultHeaderLines)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStripHeader_NoTrailingNewline(t *testing.T) {
	assert.Equal(t, "c", StripHeader("a\nb\nc", 2))
	assert.Equal(t, "", StripHeader("", 0))
}

func TestReference_MatchesLastBlock(t *testing.T) {
	blocks, err := ExtractCodeBlocks(filepath.Join("testdata", "tutorial.md"), "go")
	require.NoError(t, err)

	ref, err := LoadReference(filepath.Join("testdata", "listing.go"), DefaultHeaderLines)
	require.NoError(t, err)

	assert.Equal(t, ref, blocks[len(blocks)-1])
	assert.NoError(t, MatchReference(blocks, ref))
	assert.NoError(t, BlocksInReference(blocks, ref))
}
