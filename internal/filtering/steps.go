package filtering

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/recommendation"
)

const (
	minScoreName    = "min_score"
	remoteOnlyName  = "remote_only"
	maxDurationName = "max_duration"
)

var durationRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)(?:\s*(?:-|–|to)\s*(\d+(?:\.\d+)?))?\s*(hours?|hrs?|h\b)?`)

type minScoreFilter struct {
	toggle
	threshold int
}

// NewMinScore creates a filter that drops recommendations scored below threshold.
func NewMinScore(threshold int) Filter {
	return &minScoreFilter{threshold: threshold}
}

func (f *minScoreFilter) Name() string { return minScoreName }

func (f *minScoreFilter) Validate(*Config) error {
	if f.threshold < 0 || f.threshold > 100 {
		return fmt.Errorf("min-score must be between 0 and 100, got %d", f.threshold)
	}
	return nil
}

func (f *minScoreFilter) Apply(_ context.Context, _ Deps, items []recommendation.Recommendation) ([]recommendation.Recommendation, Step, error) {
	out, step := keep(items, func(r recommendation.Recommendation) bool {
		return r.RelevanceScore >= f.threshold
	})
	return out, step, nil
}

func (f *minScoreFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"min": strconv.Itoa(f.threshold)},
	}
}

type remoteOnlyFilter struct {
	toggle
}

// NewRemoteOnly creates a filter that drops recommendations without remote testing.
func NewRemoteOnly() Filter {
	return &remoteOnlyFilter{}
}

func (f *remoteOnlyFilter) Name() string { return remoteOnlyName }

func (f *remoteOnlyFilter) Validate(*Config) error { return nil }

func (f *remoteOnlyFilter) Apply(_ context.Context, _ Deps, items []recommendation.Recommendation) ([]recommendation.Recommendation, Step, error) {
	out, step := keep(items, func(r recommendation.Recommendation) bool {
		return r.RemoteTestingAvailable == recommendation.RemoteTestingYes
	})
	return out, step, nil
}

type maxDurationFilter struct {
	toggle
	limit int
}

// NewMaxDuration creates a filter that drops recommendations longer than limit
// minutes. Recommendations whose duration cannot be read are kept.
func NewMaxDuration(limit int) Filter {
	return &maxDurationFilter{limit: limit}
}

func (f *maxDurationFilter) Name() string { return maxDurationName }

func (f *maxDurationFilter) Validate(*Config) error {
	if f.limit < 0 {
		return fmt.Errorf("max-duration must not be negative, got %d", f.limit)
	}
	return nil
}

func (f *maxDurationFilter) Apply(_ context.Context, deps Deps, items []recommendation.Recommendation) ([]recommendation.Recommendation, Step, error) {
	var unknown []string
	out, step := keep(items, func(r recommendation.Recommendation) bool {
		minutes, ok := ParseMinutes(r.Duration)
		if !ok {
			unknown = append(unknown, r.Name)
			return true
		}
		return minutes <= f.limit
	})

	if len(unknown) > 0 && deps.Logger != nil {
		deps.Logger.Debug("keeping recommendations with unknown duration", zap.Strings("names", unknown))
	}

	return out, step, nil
}

func (f *maxDurationFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"max_minutes": strconv.Itoa(f.limit)},
	}
}

// ParseMinutes reads a duration such as "18 minutes", "30-40 mins" or "1 hour".
// Ranges use their upper bound.
func ParseMinutes(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, recommendation.DefaultDuration) {
		return 0, false
	}

	m := durationRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	value := m[1]
	if m[2] != "" {
		value = m[2]
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	if m[3] != "" {
		f *= 60
	}

	return int(math.Ceil(f)), true
}
