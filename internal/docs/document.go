package docs

import (
	"bytes"
	"fmt"
	"os"

	"github.com/adrg/frontmatter"
)

// DefaultLanguage is the code block language used when none is configured.
const DefaultLanguage = "go"

// FrontMatter is the optional YAML header of a tutorial document.
type FrontMatter struct {
	Title string `yaml:"title"`
	// Reference is the companion source file, relative to the document.
	Reference   string `yaml:"reference"`
	HeaderLines *int   `yaml:"header_lines"`
	Language    string `yaml:"language"`
	Exec        *bool  `yaml:"exec"`
}

// Document is a parsed tutorial document.
type Document struct {
	Path   string
	Meta   FrontMatter
	Body   []byte
	Blocks []Block
}

// LoadDocument reads the Markdown file at path, splits off its front matter
// and parses the body.
func LoadDocument(path string) (*Document, error) {
	source, err := os.ReadFile(path) // #nosec G304 - documentation path supplied by the caller
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// ParseDocument parses a document from memory.
func ParseDocument(source []byte) (*Document, error) {
	var meta FrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	blocks, err := Parse(body)
	if err != nil {
		return nil, err
	}
	return &Document{Meta: meta, Body: body, Blocks: blocks}, nil
}

// Language returns the front matter language, or DefaultLanguage.
func (d *Document) Language() string {
	if d.Meta.Language != "" {
		return d.Meta.Language
	}
	return DefaultLanguage
}

// CodeBlocks returns the fenced code blocks tagged with lang, or with the
// document language when lang is empty.
func (d *Document) CodeBlocks(lang string) []Block {
	if lang == "" {
		lang = d.Language()
	}
	return CodeBlocks(d.Blocks, lang)
}
