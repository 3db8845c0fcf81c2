package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/assessment-recommender/internal/evaluation"
	"github.com/spigell/assessment-recommender/internal/filtering"
	"github.com/spigell/assessment-recommender/internal/recommendation"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const PromptAllCases = "all cases"

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run benchmark queries and report recall and MAP@K",
	Run: func(cmd *cobra.Command, _ []string) {
		evaluate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringArrayP("case", "c", nil, "benchmark case id to run (repeatable)")
	evaluateCmd.Flags().BoolP("all", "a", false, "run every benchmark case without asking")
}

// filteredSource applies the configured filters to every benchmark answer, so
// the benchmark scores what the user would actually see.
type filteredSource struct {
	source evaluation.Source
	config *filtering.Config
	logger *zap.Logger
}

func (f filteredSource) Recommend(ctx context.Context, query string) (*recommendation.Result, error) {
	result, err := f.source.Recommend(ctx, query)
	if err != nil {
		return nil, err
	}
	return filtering.Run(ctx, f.config, filtering.Deps{Logger: f.logger}, filtering.Default(f.config), result)
}

func evaluate(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()

	set := evaluation.DefaultSet()
	if len(config.Benchmark.Cases) > 0 {
		custom, err := evaluation.NewSet(config.Benchmark.Cases)
		if err != nil {
			logger.Fatal("loading benchmark cases", zap.Error(err))
		}
		set = custom
	}

	ids, err := selectCases(cmd, set)
	if err != nil {
		logger.Fatal("selecting benchmark cases", zap.Error(err))
	}

	cases, err := set.Select(ids)
	if err != nil {
		logger.Fatal("selecting benchmark cases", zap.Error(err))
	}

	rec, err := newRecommender(ctx, config, logger)
	if err != nil {
		logger.Fatal("building recommender", zap.Error(err))
	}

	logger.Info("starting the benchmark", zap.Int("cases", len(cases)), zap.Int("benchmark_cases", set.Len()))

	runner := evaluation.NewRunner(filteredSource{source: rec, config: config.Filters, logger: logger}, config.Benchmark.Concurrency, logger)

	report, err := runner.Run(ctx, cases)
	if err != nil {
		logger.Fatal("benchmark interrupted", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	for _, c := range cases {
		res, ok := report.Results[c.ID]
		if !ok {
			logger.Error("case failed", zap.String("case", c.ID), zap.String("error", report.Failures[c.ID]))
			continue
		}
		if err := enc.Encode(res); err != nil {
			logger.Fatal("writing result", zap.Error(err))
		}
	}

	err = writeSummary(os.Stdout, report, set)
	if errors.Is(err, evaluation.ErrIncomplete) {
		logger.Warn("skipping aggregate metrics", zap.Error(err))
		return
	}
	if err != nil {
		logger.Fatal("aggregating results", zap.Error(err))
	}
}

// writeSummary prints mean recall and MAP@K over the whole benchmark set. A run
// over a subset of the set, or with failed cases, yields ErrIncomplete and
// prints nothing.
func writeSummary(w io.Writer, report *evaluation.Report, set *evaluation.Set) error {
	summary, err := report.Summary(set)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Mean Recall@K: %.4f (%s)\n", summary.MeanRecall, evaluation.Grade(summary.MeanRecall))
	fmt.Fprintf(w, "MAP@K:         %.4f (%s)\n", summary.MAPAtK, evaluation.Grade(summary.MAPAtK))
	return nil
}

// selectCases resolves the case ids from flags, asking interactively when
// neither --case nor --all is given.
func selectCases(cmd *cobra.Command, set *evaluation.Set) ([]string, error) {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return nil, err
	}
	if all {
		return set.IDs(), nil
	}

	ids, err := cmd.Flags().GetStringArray("case")
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		return ids, nil
	}

	prompt := promptui.Select{
		Label: "Choose a benchmark case and press ENTER",
		Items: append([]string{PromptAllCases}, set.IDs()...),
	}

	_, selected, err := prompt.Run()
	if err != nil {
		return nil, err
	}

	if selected == PromptAllCases {
		return set.IDs(), nil
	}
	return []string{selected}, nil
}
