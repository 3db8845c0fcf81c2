// Package catalog retrieves candidate assessment records for a query, either
// from a scraped catalog file or from a hosted vector index.
package catalog

import (
	"context"
	"strings"

	"github.com/spigell/assessment-recommender/internal/recommendation"
)

const (
	// DefaultTopK is how many candidates are handed to the model as context.
	DefaultTopK = 75

	maxDescriptionLength = 500
)

// Retriever returns up to k source documents relevant to query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]recommendation.SourceDocument, error)
}

// Entry is one assessment of the product catalog.
type Entry struct {
	ID               string
	Name             string
	Description      string
	JobLevels        []string
	TestTypeCodes    []string
	TestTypes        []string
	Languages        []string
	AssessmentLength string
	RemoteTesting    string
	Link             string
}

// Text renders the entry the way it is embedded in the index.
func (e Entry) Text() string {
	lines := []string{
		labeled("Name", e.Name),
		labeled("Description", e.Description),
		labeled("Job levels", strings.Join(e.JobLevels, ", ")),
		labeled("Test Type", strings.Join(e.TestTypes, ", ")),
		labeled("Languages", strings.Join(e.Languages, ", ")),
		labeled("Assessment length", e.AssessmentLength),
		labeled("Remote Testing", e.RemoteTesting),
	}

	out := lines[:0]
	for _, l := range lines {
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// Metadata returns the index record fields of the entry.
func (e Entry) Metadata() map[string]any {
	return map[string]any{
		"id":                e.ID,
		"name":              e.Name,
		"link":              e.Link,
		"description":       e.Description,
		"job_levels":        strings.Join(e.JobLevels, ", "),
		"languages":         strings.Join(e.Languages, ", "),
		"test_type_codes":   strings.Join(e.TestTypeCodes, ", "),
		"test_types":        strings.Join(e.TestTypes, ", "),
		"assessment_length": e.AssessmentLength,
		"remote_testing":    e.RemoteTesting,
	}
}

// Document converts the entry into a source document.
func (e Entry) Document() recommendation.SourceDocument {
	return recommendation.NewSourceDocument(e.Text(), e.Metadata())
}

func labeled(label, value string) string {
	if value = strings.TrimSpace(value); value == "" {
		return ""
	}
	return label + ": " + value
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
