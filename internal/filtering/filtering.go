// Package filtering applies optional post-processing steps to recommendation lists.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/recommendation"
)

// Filter represents a single filtering step applied to recommendations.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, items []recommendation.Recommendation) ([]recommendation.Recommendation, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	// MinScore drops recommendations with a lower relevance score.
	MinScore int `mapstructure:"min-score"`
	// RemoteOnly drops recommendations without remote testing.
	RemoteOnly bool `mapstructure:"remote-only"`
	// MaxDuration drops recommendations longer than this many minutes.
	MaxDuration int `mapstructure:"max-duration"`
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// toggle carries the enabled state shared by all filters.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

// Default builds the configured filter chain. Filters whose setting is zero
// are present but disabled.
func Default(cfg *Config) []Filter {
	if cfg == nil {
		cfg = &Config{}
	}

	steps := []Filter{
		NewMinScore(cfg.MinScore),
		NewRemoteOnly(),
		NewMaxDuration(cfg.MaxDuration),
	}

	if cfg.MinScore <= 0 {
		DisableByName(steps, minScoreName, "min-score is not set")
	}
	if !cfg.RemoteOnly {
		DisableByName(steps, remoteOnlyName, "remote-only is not set")
	}
	if cfg.MaxDuration <= 0 {
		DisableByName(steps, maxDurationName, "max-duration is not set")
	}

	return steps
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the enabled filters sequentially over a recommendations result.
// Conversational results are returned untouched.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, result *recommendation.Result) (*recommendation.Result, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = &Config{}
	}

	if result == nil || result.IsConversational() {
		return result, nil
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	items := result.Items()
	for _, step := range steps {
		if !step.IsEnabled() {
			deps.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, deps, items)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		deps.Logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		items = next
	}

	return recommendation.NewRecommendations(items), nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

func keep(items []recommendation.Recommendation, pred func(recommendation.Recommendation) bool) ([]recommendation.Recommendation, Step) {
	out := make([]recommendation.Recommendation, 0, len(items))
	for _, item := range items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out, Step{Initial: len(items), Dropped: len(items) - len(out), Left: len(out)}
}
