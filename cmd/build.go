package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spigell/assessment-recommender/internal/ai/gemini"
	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/logger"
	"github.com/spigell/assessment-recommender/internal/recommendation"
	"github.com/spigell/assessment-recommender/internal/secrets"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// setup creates the logger and reads the config. Both failures are fatal.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the assessment-recommender", zap.String("version", resolveVersion()))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

// redacted returns a shallow copy of the config without inline keys.
func redacted(config *Config) *Config {
	c := *config

	index := *config.Index
	index.APIKey = ""
	c.Index = &index

	g := *config.AI.Gemini
	g.APIKey = ""
	c.AI = &AIConfig{Gemini: &g}

	return &c
}

// newRecommender wires the retrieval, generation and normalization pipeline.
func newRecommender(ctx context.Context, config *Config, log *zap.Logger) (*gemini.Recommender, error) {
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: config.AI.Gemini.APIKey,
		File:  viperOr(config.AI.Gemini.APIKeyFile, "ai.gemini.api-key-file"),
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := log.With(
		zap.String(logger.FieldProvider, "gemini"),
		zap.Int("ai_retry_attempts", config.AI.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, config.AI.Gemini.Options, genLogger)
	if err != nil {
		return nil, err
	}

	retriever, err := newRetriever(config, log)
	if err != nil {
		return nil, err
	}

	links := recommendation.NewLinkResolver(config.Catalog.BaseURL, config.Catalog.Brand)
	normalizer := recommendation.NewNormalizer(links, log.Named("normalizer"))

	topK := config.Catalog.TopK
	if topK <= 0 {
		topK = config.Index.TopK
	}

	return gemini.NewRecommender(generator, retriever, normalizer, topK, log), nil
}

// newRetriever prefers the hosted index and falls back to the local catalog
// file. Without either the model answers without catalog context.
func newRetriever(config *Config, log *zap.Logger) (catalog.Retriever, error) {
	if strings.TrimSpace(config.Index.Host) != "" {
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "index api key",
			Value: config.Index.APIKey,
			File:  viperOr(config.Index.APIKeyFile, "index.api-key-file"),
			Env:   "PINECONE_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set index.api-key-file or INDEX_API_KEY_FILE)", err)
		}

		cfg := config.Index.IndexConfig
		cfg.APIKey = apiKey

		index, err := catalog.NewIndex(cfg, log.Named("index"))
		if err != nil {
			return nil, fmt.Errorf("building index client: %w", err)
		}

		log.Info("using vector index", zap.String("host", cfg.Host), zap.String("namespace", cfg.Namespace))
		return index, nil
	}

	if path := strings.TrimSpace(config.Catalog.File); path != "" {
		file, err := catalog.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading catalog: %w", err)
		}

		log.Info("using catalog file", zap.String("filename", path), zap.Int("entries", file.Len()))
		return file, nil
	}

	log.Warn("no catalog configured",
		zap.String("hint", "set index.host or catalog.file in the configuration file"),
	)
	return nil, nil
}

func viperOr(value, key string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return strings.TrimSpace(viper.GetString(key))
}
