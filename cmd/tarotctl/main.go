// Command tarotctl runs one reading from the command line and prints the
// envelope as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MerlinMagicschool/innerself-ai-server/internal/adapters/llm"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/app"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/config"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/domain"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/logger"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/ports"
)

type readingFlags struct {
	question string
	context  string
	cards    []string
	branches []string
	verbose  bool
}

func (f *readingFlags) bind(cmd *cobra.Command, detailed bool) {
	cmd.Flags().StringVarP(&f.question, "question", "q", "", "question to read for (required)")
	cmd.Flags().StringVar(&f.context, "context", "", "optional background for the question")
	cmd.Flags().StringArrayVar(&f.cards, "card", nil, "main card label, repeat three times in A, B, C order")
	if detailed {
		cmd.Flags().StringArrayVar(&f.branches, "branch", nil, "branch card label, repeat nine times in A-1 .. C-3 order")
	}
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "log pipeline details to stderr")
	_ = cmd.MarkFlagRequired("question")
}

func (f *readingFlags) request() domain.Request {
	var ctx *string
	if f.context != "" {
		c := f.context
		ctx = &c
	}
	return domain.NewRequest(f.question, ctx, f.cards, f.branches)
}

func main() {
	root := &cobra.Command{
		Use:           "tarotctl",
		Short:         "Generate tarot direction readings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(readCmd(domain.VariantBasic), readCmd(domain.VariantDetailed), fallbackCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func readCmd(v domain.Variant) *cobra.Command {
	var f readingFlags
	cmd := &cobra.Command{
		Use:   string(v),
		Short: fmt.Sprintf("Run a %s reading against the configured model", v),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := "error"
			if f.verbose {
				level = "debug"
			}
			log, err := logger.New(level, "console")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			gen, err := llm.NewGenerator(cfg, log)
			if err != nil {
				return err
			}
			svc := app.NewReadingService(gen, app.Options{
				Strategy:                ports.Strategy(cfg.OutputMode),
				MaxOutputTokensBasic:    cfg.MaxOutputTokensBasic,
				MaxOutputTokensDetailed: cfg.MaxOutputTokensDetailed,
				Policy:                  app.FailurePolicy(cfg.FailurePolicy),
				StrictProseLength:       cfg.StrictProseLength,
			}, log)

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.LLMTimeout)
			defer cancel()

			res, err := svc.Read(ctx, v, f.request())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), res.String())
			if res.Failure != nil {
				log.Warn("served fallback", zap.String("code", res.Failure.Tag()), zap.String("path", res.Failure.Path))
			}
			return printJSON(cmd, res.Envelope)
		},
	}
	f.bind(cmd, v == domain.VariantDetailed)
	return cmd
}

func fallbackCmd() *cobra.Command {
	var (
		f        readingFlags
		detailed bool
	)
	cmd := &cobra.Command{
		Use:   "fallback",
		Short: "Print the fallback envelope without calling a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := domain.VariantBasic
			if detailed {
				v = domain.VariantDetailed
			}
			req := f.request()
			if err := req.Validate(v); err != nil {
				return err
			}
			return printJSON(cmd, app.FallbackEnvelope(req, v))
		},
	}
	f.bind(cmd, true)
	cmd.Flags().BoolVar(&detailed, "detailed", false, "produce the detailed variant")
	return cmd
}

func printJSON(cmd *cobra.Command, env domain.Envelope) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}
