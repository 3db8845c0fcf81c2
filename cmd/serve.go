package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/assessment-recommender/internal/filtering"
	"github.com/spigell/assessment-recommender/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the recommender over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()

	rec, err := newRecommender(ctx, config, logger)
	if err != nil {
		logger.Fatal("building recommender", zap.Error(err))
	}

	for _, s := range filtering.Describe(filtering.Default(config.Filters)) {
		logger.Debug("filter configured", zap.String("name", s.Name), zap.Bool("enabled", s.Enabled))
	}

	if err := server.New(rec, config.Server, config.Filters, logger).ListenAndServe(ctx); err != nil {
		logger.Fatal("serving http api", zap.Error(err))
	}
}
