// Package doctest adapts the docs package to Go tests.
package doctest

import (
	"cmp"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aixgo-dev/devkit/internal/docs"
)

// RunBlocks executes blocks in order and hands the final namespace to
// assertFn. A failing block fails the test with its code and trace.
func RunBlocks(t testing.TB, blocks []string, assertFn func(t testing.TB, ns *docs.Namespace)) {
	t.Helper()

	ns, err := docs.NewExecutor().Run(context.Background(), blocks)
	var execErr *docs.ExecError
	if errors.As(err, &execErr) {
		t.Fatalf("%s", execErr.Error())
	}
	require.NoError(t, err)

	if assertFn != nil {
		assertFn(t, ns)
	}
}

// AssertEnumsEqual fails the test when the enumerations differ.
func AssertEnumsEqual[V cmp.Ordered](t testing.TB, expected, actual map[string]V) bool {
	t.Helper()
	if err := docs.CompareEnums(expected, actual); err != nil {
		t.Errorf("actual enum is different from the expected one: %v", err)
		return false
	}
	return true
}

// AssertMatchesReference fails unless the last block equals the reference
// file stripped of headerLines lines.
func AssertMatchesReference(t testing.TB, blocks []string, refPath string, headerLines int) bool {
	t.Helper()
	ref, err := docs.LoadReference(refPath, headerLines)
	require.NoError(t, err)
	if err := docs.MatchReference(blocks, ref); err != nil {
		t.Errorf("files must be exactly the same: %v", err)
		return false
	}
	return true
}

// AssertBlocksInReference fails for every block missing from the reference.
func AssertBlocksInReference(t testing.TB, blocks []string, refPath string, headerLines int) bool {
	t.Helper()
	ref, err := docs.LoadReference(refPath, headerLines)
	require.NoError(t, err)
	if err := docs.BlocksInReference(blocks, ref); err != nil {
		t.Errorf("code blocks missing from %s: %v", refPath, err)
		return false
	}
	return true
}

// Suite holds a parsed tutorial document for table-style doc tests.
type Suite struct {
	Doc *docs.Document
}

// LoadSuite parses the document at path or fails the test.
func LoadSuite(t testing.TB, path string) *Suite {
	t.Helper()
	doc, err := docs.LoadDocument(path)
	require.NoError(t, err)
	return &Suite{Doc: doc}
}

// Blocks returns the text of the code blocks in lang, or in the document
// language when lang is empty.
func (s *Suite) Blocks(lang string) []string {
	return docs.Texts(s.Doc.CodeBlocks(lang))
}

// Run executes the document's code blocks and calls assertFn with the result.
func (s *Suite) Run(t testing.TB, assertFn func(t testing.TB, ns *docs.Namespace)) {
	t.Helper()
	RunBlocks(t, s.Blocks(""), assertFn)
}
