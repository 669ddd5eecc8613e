package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/aixgo-dev/devkit/internal/docs"
)

// lineReader is the part of liner.State the REPL uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

type replOptions struct {
	lang string
}

func newReplCmd(g *globalOptions) *cobra.Command {
	opts := &replOptions{}

	cmd := &cobra.Command{
		Use:   "repl <file>",
		Short: "Replay a document's code blocks and explore the resulting namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("lang") {
				cfg, err := loadConfig(g)
				if err != nil {
					return err
				}
				opts.lang = cfg.Docs.Language
			}

			line := liner.NewLiner()
			defer func() { _ = line.Close() }()
			line.SetCtrlCAborts(true)

			return runRepl(cmd.Context(), args[0], opts, line, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&opts.lang, "lang", "go", "Language tag of the blocks to replay")
	return cmd
}

func runRepl(ctx context.Context, path string, opts *replOptions, in lineReader, out, errOut io.Writer) error {
	doc, err := docs.LoadDocument(path)
	if err != nil {
		return err
	}
	blocks := docs.Texts(doc.CodeBlocks(opts.lang))

	executor := docs.NewExecutor(docs.WithStdout(out))
	ns, err := executor.Run(ctx, blocks)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "%d blocks replayed from %s; names: %s\n",
		ns.Executed(), path, strings.Join(ns.Names(), ", "))

	for {
		input, err := in.Prompt("> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == ":names" {
			_, _ = fmt.Fprintln(out, strings.Join(ns.Names(), "\n"))
			continue
		}
		in.AppendHistory(input)

		v, err := ns.Eval(ctx, input)
		if err != nil {
			_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
			continue
		}
		if v != nil {
			_, _ = fmt.Fprintf(out, "%v\n", v)
		}
	}
}
