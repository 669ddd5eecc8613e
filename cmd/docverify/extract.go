package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aixgo-dev/devkit/internal/docs"
)

type extractOptions struct {
	lang string
	mode string
}

func newExtractCmd(g *globalOptions) *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the fenced code blocks of a Markdown file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("lang") {
				cfg, err := loadConfig(g)
				if err != nil {
					return err
				}
				opts.lang = cfg.Docs.Language
			}
			return runExtract(args[0], opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.lang, "lang", "go", "Language tag to select (empty selects all)")
	cmd.Flags().StringVar(&opts.mode, "mode", "parse", "Extraction mode: parse (CommonMark) or scan (line based)")
	return cmd
}

func runExtract(path string, opts *extractOptions, w io.Writer) error {
	var blocks []string
	switch opts.mode {
	case "scan":
		var err error
		blocks, err = docs.ExtractCodeBlocks(path, opts.lang)
		if err != nil {
			return err
		}
	case "parse":
		source, err := os.ReadFile(path) // #nosec G304 - user-provided CLI argument
		if err != nil {
			return err
		}
		doc, err := docs.ParseDocument(source)
		if err != nil {
			return err
		}
		blocks = docs.Texts(docs.CodeBlocks(doc.Blocks, opts.lang))
	default:
		return fmt.Errorf("unknown mode %q (want parse or scan)", opts.mode)
	}

	for i, b := range blocks {
		if _, err := fmt.Fprintf(w, "--- block %d ---\n%s", i, b); err != nil {
			return err
		}
	}
	return nil
}
