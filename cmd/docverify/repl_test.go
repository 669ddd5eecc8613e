package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedReader feeds fixed lines to the REPL, then io.EOF.
type scriptedReader struct {
	lines   []string
	history []string
}

func (r *scriptedReader) Prompt(string) (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptedReader) AppendHistory(item string) {
	r.history = append(r.history, item)
}

func TestRunRepl(t *testing.T) {
	in := &scriptedReader{lines: []string{"", ":names", "y * 10", "w := y * 2", "missing"}}
	var out, errOut bytes.Buffer

	err := runRepl(context.Background(), filepath.Join(testdata, "replay.md"), &replOptions{lang: "go"}, in, &out, &errOut)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "3 blocks replayed from")
	assert.Contains(t, out.String(), "\ngreeting\n")
	assert.Contains(t, out.String(), "20\n")
	assert.Equal(t, []string{"y * 10", "w := y * 2", "missing"}, in.history)
	assert.Equal(t, "error: undefined name: missing\n", errOut.String())
	assert.NotContains(t, out.String(), "error:")
}

func TestRunRepl_ReplayFailure(t *testing.T) {
	err := runRepl(context.Background(), filepath.Join(testdata, "broken.md"), &replOptions{lang: "go"}, &scriptedReader{}, io.Discard, io.Discard)
	assert.ErrorContains(t, err, "undefinedName")
}
