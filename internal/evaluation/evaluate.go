// Package evaluation scores recommendation quality against benchmark queries
// with Recall@K, Precision@K and a simplified MAP@K.
package evaluation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIncomplete is returned when aggregate metrics are requested before every case has a result.
	ErrIncomplete = errors.New("benchmark run is incomplete")
	// ErrEmptySet is returned when aggregating over a benchmark set without cases.
	ErrEmptySet = errors.New("benchmark set has no cases")
)

// Result holds the metrics of one benchmark case.
type Result struct {
	CaseID           string    `json:"id"`
	Query            string    `json:"query"`
	Expected         []string  `json:"expectedAssessments"`
	Actual           []string  `json:"actualAssessments"`
	Matches          []string  `json:"matches"`
	Missing          []string  `json:"missing"`
	Extra            []string  `json:"extra"`
	Recall           float64   `json:"recall"`
	PrecisionAtK     []float64 `json:"precisionAtK"`
	AveragePrecision float64   `json:"averagePrecision"`
}

// K is the number of recommendations the system returned.
func (r *Result) K() int { return len(r.Actual) }

// Summary is the aggregate over a completed benchmark run.
type Summary struct {
	Cases      int     `json:"cases"`
	MeanRecall float64 `json:"meanRecall"`
	MAPAtK     float64 `json:"mapAtK"`
}

// matches reports whether an actual name covers an expected one. The expected
// name only has to appear inside the actual one, so "Java 8 (New) Test" covers
// "Java 8 (New)" but not the other way round.
func matches(expected, actual string) bool {
	return strings.Contains(actual, expected)
}

func matchesAny(expected string, actual []string) bool {
	for _, a := range actual {
		if matches(expected, a) {
			return true
		}
	}
	return false
}

// Evaluate compares the system's ranked output with a benchmark case.
func Evaluate(c Case, actual []string) *Result {
	expected := append([]string{}, c.Expected...)
	actual = append([]string{}, actual...)

	res := &Result{
		CaseID:       c.ID,
		Query:        c.Query,
		Expected:     expected,
		Actual:       actual,
		Matches:      []string{},
		Missing:      []string{},
		Extra:        []string{},
		PrecisionAtK: make([]float64, 0, len(actual)),
	}

	for _, e := range expected {
		if matchesAny(e, actual) {
			res.Matches = append(res.Matches, e)
		} else {
			res.Missing = append(res.Missing, e)
		}
	}

	for _, a := range actual {
		hit := false
		for _, e := range expected {
			if matches(e, a) {
				hit = true
				break
			}
		}
		if !hit {
			res.Extra = append(res.Extra, a)
		}
	}

	if len(expected) > 0 {
		res.Recall = float64(len(res.Matches)) / float64(len(expected))
	}

	for i := range actual {
		top := actual[:i+1]
		relevant := 0
		for _, e := range expected {
			if matchesAny(e, top) {
				relevant++
			}
		}
		res.PrecisionAtK = append(res.PrecisionAtK, float64(relevant)/float64(i+1))
	}

	res.AveragePrecision = averagePrecision(res.PrecisionAtK, len(res.Matches))

	return res
}

// averagePrecision averages the first min(K, matched) precision readings. It
// credits every one of those positions, not only the ones holding a hit, so it
// is not the rank-aware AP of the IR literature.
func averagePrecision(precisionAtK []float64, matched int) float64 {
	n := min(len(precisionAtK), matched)
	if n == 0 {
		return 0
	}

	sum := 0.0
	for _, p := range precisionAtK[:n] {
		sum += p
	}
	return sum / float64(n)
}

// Aggregate computes mean recall and MAP@K over a benchmark set. Every case of
// the set must have a result; otherwise ErrIncomplete is returned with the ids
// still missing.
func Aggregate(set *Set, results map[string]*Result) (*Summary, error) {
	if set == nil || set.Len() == 0 {
		return nil, ErrEmptySet
	}

	var missing []string
	for _, c := range set.Cases() {
		if results[c.ID] == nil {
			missing = append(missing, c.ID)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %d of %d cases have no result (%s)",
			ErrIncomplete, len(missing), set.Len(), strings.Join(missing, ", "))
	}

	var recall, ap float64
	for _, c := range set.Cases() {
		recall += results[c.ID].Recall
		ap += results[c.ID].AveragePrecision
	}

	n := float64(set.Len())
	return &Summary{
		Cases:      set.Len(),
		MeanRecall: recall / n,
		MAPAtK:     ap / n,
	}, nil
}

// Grade buckets a metric value the way the evaluation report colours it.
func Grade(v float64) string {
	switch {
	case v > 0.7:
		return "good"
	case v > 0.4:
		return "fair"
	default:
		return "poor"
	}
}
