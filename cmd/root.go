package cmd

import (
	"errors"
	"log"

	"github.com/spigell/assessment-recommender/internal/ai/gemini"
	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/evaluation"
	"github.com/spigell/assessment-recommender/internal/filtering"
	"github.com/spigell/assessment-recommender/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app        = "assessment-recommender"
	configName = "recommender"
)

type Config struct {
	Catalog   *CatalogConfig    `mapstructure:"catalog"`
	Index     *IndexConfig      `mapstructure:"index"`
	AI        *AIConfig         `mapstructure:"ai"`
	Filters   *filtering.Config `mapstructure:"filters"`
	Benchmark *BenchmarkConfig  `mapstructure:"benchmark"`
	Server    server.Config     `mapstructure:"server"`
}

type CatalogConfig struct {
	File    string `mapstructure:"file"`
	BaseURL string `mapstructure:"base-url"`
	Brand   string `mapstructure:"brand"`
	TopK    int    `mapstructure:"top-k"`
}

type IndexConfig struct {
	catalog.IndexConfig `mapstructure:",squash"`
	APIKey              string `mapstructure:"api-key"`
	APIKeyFile          string `mapstructure:"api-key-file"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	gemini.Options `mapstructure:",squash"`
	APIKey         string `mapstructure:"api-key"`
	APIKeyFile     string `mapstructure:"api-key-file"`
}

type BenchmarkConfig struct {
	Concurrency int               `mapstructure:"concurrency"`
	Cases       []evaluation.Case `mapstructure:"cases"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "assessment-recommender suggests catalog assessments for hiring queries and benchmarks the suggestions",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("index.api-key-file", "INDEX_API_KEY_FILE"); err != nil {
		log.Fatalf("binding INDEX_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is recommender.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// The version command does not need a config.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	err := viper.ReadInConfig()
	if err == nil {
		return
	}

	// Without an explicit --config every setting has a default or an env fallback.
	var notFound viper.ConfigFileNotFoundError
	if cfgFile == "" && errors.As(err, &notFound) {
		return
	}

	// We can't proceed if the config file parsed with error.
	log.Fatal(err)
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Catalog == nil {
		config.Catalog = &CatalogConfig{}
	}
	if config.Index == nil {
		config.Index = &IndexConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Filters == nil {
		config.Filters = &filtering.Config{}
	}
	if config.Benchmark == nil {
		config.Benchmark = &BenchmarkConfig{}
	}

	return config, nil
}
