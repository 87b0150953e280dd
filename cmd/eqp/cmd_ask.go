package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenthands/equivalence/internal/core/equivalence"
)

type principleFlags struct {
	principle   string
	comparative bool
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var pf principleFlags

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send a prompt to every validator and print the agreed answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), opts, func(ctx context.Context, e *equivalence.Engine) error {
				out, err := e.CallLLMWithPrinciple(ctx, strings.Join(args, " "), pf.principle, pf.comparative)
				return printResult(cmd.OutOrStdout(), out, err)
			})
		},
	}

	cmd.Flags().StringVar(&pf.principle, "principle", "The result should be exactly the same", "equivalence principle")
	cmd.Flags().BoolVar(&pf.comparative, "comparative", false, "compare under the principle instead of exactly")
	return cmd
}

func newFetchCmd(opts *rootOptions) *cobra.Command {
	var principle string

	cmd := &cobra.Command{
		Use:   "fetch [url]",
		Short: "Fetch a page on every validator and print the agreed text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), opts, func(ctx context.Context, e *equivalence.Engine) error {
				page, err := e.GetWebpageWithPrinciple(ctx, args[0], principle)
				return printResult(cmd.OutOrStdout(), page.Output, err)
			})
		},
	}

	cmd.Flags().StringVar(&principle, "principle", "The result should be exactly the same", "equivalence principle")
	return cmd
}

func withEngine(ctx context.Context, opts *rootOptions, fn func(context.Context, *equivalence.Engine) error) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return fn(ctx, a.Engine)
}

func printResult(w io.Writer, out string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", equivalence.KindOf(err), err)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
