package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/catalog"
	"github.com/spigell/assessment-recommender/internal/logger"
	"github.com/spigell/assessment-recommender/internal/recommendation"
	"github.com/spigell/assessment-recommender/internal/utils"
)

const (
	provider            = "gemini"
	defaultMaxLogLength = 200
)

//go:embed system.md
var systemPrompt string

//go:embed prompt.md
var promptTemplate string

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Recommender answers hiring queries: it retrieves catalog candidates, asks
// Gemini to pick from them and normalizes the answer.
type Recommender struct {
	generator  contentGenerator
	retriever  catalog.Retriever
	normalizer *recommendation.Normalizer
	topK       int
	logger     *zap.Logger
	maxLogLen  int
}

// NewRecommender wires a generator and a retriever. A nil retriever sends the
// query without catalog context.
func NewRecommender(generator contentGenerator, retriever catalog.Retriever, normalizer *recommendation.Normalizer, topK int, log *zap.Logger) *Recommender {
	if topK <= 0 {
		topK = catalog.DefaultTopK
	}
	if normalizer == nil {
		normalizer = recommendation.NewNormalizer(nil, log)
	}

	return &Recommender{
		generator:  generator,
		retriever:  retriever,
		normalizer: normalizer,
		topK:       topK,
		logger:     logger.WithCommonFields(log, provider, generator.Model()),
		maxLogLen:  defaultMaxLogLength,
	}
}

// Recommend runs the retrieve, generate and normalize pipeline for one query.
func (r *Recommender) Recommend(ctx context.Context, query string) (*recommendation.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}

	log := logger.WithFields(r.logger, logger.QueryFields(query, r.maxLogLen)...)
	started := time.Now()

	var docs []recommendation.SourceDocument
	if r.retriever != nil {
		var err error
		docs, err = r.retriever.Retrieve(ctx, query, r.topK)
		if err != nil {
			return nil, fmt.Errorf("retrieve candidates: %w", err)
		}
	}

	prompt := buildPrompt(query, docs)

	log.Debug("gemini generate content request",
		zap.Int("documents", len(docs)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
	)

	raw, err := r.generator.GenerateContent(ctx, systemPrompt, prompt)
	switch {
	case errors.Is(err, ErrEmptyResponse):
		raw = ""
	case err != nil:
		return nil, err
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, r.maxLogLen)),
	)

	result := r.normalizer.Normalize(raw, docs)

	log.Info("query answered",
		zap.Stringer("kind", result.Kind()),
		zap.Int("recommendations", result.Len()),
		zap.Duration("took", time.Since(started)),
	)

	return result, nil
}

func buildPrompt(query string, docs []recommendation.SourceDocument) string {
	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(doc.Content))
		if doc.Link != "" && !strings.Contains(doc.Content, doc.Link) {
			b.WriteString("\nLink: ")
			b.WriteString(doc.Link)
		}
	}

	candidates := b.String()
	if candidates == "" {
		candidates = "No catalog entries matched the query."
	}

	return strings.NewReplacer("{{QUERY}}", query, "{{CONTEXT}}", candidates).Replace(promptTemplate)
}
