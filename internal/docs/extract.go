package docs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// ErrUnclosedFence is returned when a code fence is still open at end of input.
var ErrUnclosedFence = errors.New("unclosed code fence")

// fenceOpen matches a fence preceded only by non-backtick characters and
// captures the info text after it.
var fenceOpen = regexp.MustCompile("^[^`]*```(.*)$")

const fence = "```"

// ExtractCodeBlocks reads the Markdown file at path line by line and returns
// the content of every fenced block whose tag equals filter. An empty filter
// selects all blocks.
func ExtractCodeBlocks(path, filter string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 - documentation path supplied by the caller
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	blocks, err := ScanCodeBlocks(f, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return blocks, nil
}

// ScanCodeBlocks is ExtractCodeBlocks over a reader. Block content is the
// text strictly between the opening and closing fence lines, line endings
// included. A fence whose tag does not match is skipped without consuming its
// body, so its closing fence is seen as the next candidate opener.
func ScanCodeBlocks(r io.Reader, filter string) ([]string, error) {
	filter = strings.TrimSpace(filter)
	br := bufio.NewReader(r)

	var (
		blocks  []string
		current strings.Builder
		inBlock bool
		openAt  int
		lineNo  int
	)
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if line == "" && err != nil {
			break
		}
		lineNo++

		switch {
		case inBlock && strings.Contains(line, fence):
			blocks = append(blocks, current.String())
			current.Reset()
			inBlock = false
		case inBlock:
			current.WriteString(line)
		default:
			m := fenceOpen.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
			if m == nil {
				break
			}
			if filter != "" && strings.TrimSpace(m[1]) != filter {
				break
			}
			inBlock, openAt = true, lineNo
		}

		if err != nil {
			break
		}
	}

	if inBlock {
		return nil, fmt.Errorf("%w opened at line %d", ErrUnclosedFence, openAt)
	}
	return blocks, nil
}
