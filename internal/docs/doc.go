// Package docs keeps tutorial documentation honest.
//
// It extracts fenced code blocks from Markdown, either by scanning lines
// (ExtractCodeBlocks) or from a CommonMark parse (Parse, CodeBlocks), compares
// them with a checked-in reference source stripped of its license header
// (LoadReference), and replays Go blocks in document order against a shared
// Namespace (Executor). Verifier combines these checks for the documents
// listed in a Manifest.
package docs
