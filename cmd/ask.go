package cmd

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/spigell/assessment-recommender/internal/filtering"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var askCmd = &cobra.Command{
	Use:   "ask <query...>",
	Short: "Recommend assessments for a hiring query and print them as JSON",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ask(strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func ask(query string) {
	ctx := context.Background()

	logger, config := setup()

	rec, err := newRecommender(ctx, config, logger)
	if err != nil {
		logger.Fatal("building recommender", zap.Error(err))
	}

	result, err := rec.Recommend(ctx, query)
	if err != nil {
		logger.Fatal("recommending assessments", zap.Error(err))
	}

	result, err = filtering.Run(ctx, config.Filters, filtering.Deps{Logger: logger}, filtering.Default(config.Filters), result)
	if err != nil {
		logger.Fatal("filtering failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		logger.Fatal("writing result", zap.Error(err))
	}
}
