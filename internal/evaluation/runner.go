package evaluation

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/assessment-recommender/internal/logger"
	"github.com/spigell/assessment-recommender/internal/recommendation"
)

const defaultConcurrency = 3

// ErrNoResult is recorded for a case whose source returned neither a result nor an error.
var ErrNoResult = errors.New("source returned no result")

// Source produces a normalized answer for a benchmark query.
type Source interface {
	Recommend(ctx context.Context, query string) (*recommendation.Result, error)
}

// Report collects per-case results and failures of a run.
type Report struct {
	mu       sync.Mutex
	Results  map[string]*Result `json:"results"`
	Failures map[string]string  `json:"failures,omitempty"`
}

func newReport() *Report {
	return &Report{
		Results:  map[string]*Result{},
		Failures: map[string]string{},
	}
}

func (r *Report) addResult(res *Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Results[res.CaseID] = res
}

func (r *Report) addFailure(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures[id] = err.Error()
}

// Summary aggregates the report over the whole set.
func (r *Report) Summary(set *Set) (*Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Aggregate(set, r.Results)
}

// Runner evaluates benchmark cases against a Source.
type Runner struct {
	source      Source
	logger      *zap.Logger
	concurrency int
}

// NewRunner creates a Runner. concurrency <= 0 falls back to a small default.
func NewRunner(source Source, concurrency int, logger *zap.Logger) *Runner {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		source:      source,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Run evaluates the given cases in parallel. A failing case is recorded in
// Report.Failures and does not stop the others. The returned error is only set
// when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, cases []Case) (*Report, error) {
	report := newReport()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, c := range cases {
		g.Go(func() error {
			log := logger.WithFields(r.logger, zap.String(logger.FieldCase, c.ID))
			started := time.Now()

			result, err := r.source.Recommend(gCtx, c.Query)
			if err == nil && result == nil {
				err = ErrNoResult
			}
			if err != nil {
				log.Warn("benchmark case failed", zap.Error(err))
				report.addFailure(c.ID, err)
				return nil
			}

			res := Evaluate(c, result.Names())
			report.addResult(res)

			log.Info("benchmark case evaluated",
				zap.Bool("conversational", result.IsConversational()),
				zap.Int("k", res.K()),
				zap.Int("matched", len(res.Matches)),
				zap.Float64("recall", res.Recall),
				zap.Float64("average_precision", res.AveragePrecision),
				zap.Duration("took", time.Since(started)),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	return report, ctx.Err()
}
