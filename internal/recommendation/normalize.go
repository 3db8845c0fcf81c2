package recommendation

import (
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/utils"
)

const defaultMaxLogLength = 200

var (
	fencedBlockRe     = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")
	recommendationsRe = regexp.MustCompile(`(?s)"recommendations"\s*:\s*(\[\s*\{.*?\}\s*\])`)
)

// extractor pulls a candidate JSON span out of model text.
type extractor func(text string) (string, bool)

// Normalizer turns raw model output into a Result. It is safe for concurrent use.
type Normalizer struct {
	links     *LinkResolver
	logger    *zap.Logger
	maxLogLen int

	extractors []extractor
}

// NewNormalizer creates a Normalizer. A nil resolver uses the default catalog, a nil logger discards logs.
func NewNormalizer(links *LinkResolver, logger *zap.Logger) *Normalizer {
	if links == nil {
		links = defaultResolver
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Normalizer{
		links:      links,
		logger:     logger,
		maxLogLen:  defaultMaxLogLength,
		extractors: []extractor{extractFencedBlock, extractObjectSpan},
	}
}

// Normalize classifies and canonicalizes raw model output. It never fails:
// every unusable input degrades to a conversational result.
func (n *Normalizer) Normalize(raw string, docs []SourceDocument) *Result {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		n.logger.Debug("empty model response")
		return NewConversational(EmptyResponseMessage)
	}

	working := n.locateJSON(trimmed)
	if !looksStructured(working) {
		n.logger.Debug("model response is conversational",
			zap.String("response_preview", utils.TruncateForLog(trimmed, n.maxLogLen)),
		)
		return NewConversational(trimmed)
	}

	if items, ok := n.parseDocument(working, docs); ok {
		if len(items) > MaxRecommendations {
			n.logger.Debug("truncating recommendations",
				zap.Int("count", len(items)),
				zap.Int("limit", MaxRecommendations),
			)
			items = items[:MaxRecommendations]
		}
		return NewRecommendations(items)
	}

	// The recovered list is not capped.
	items, matched := n.recoverArray(raw, docs)
	if items != nil {
		n.logger.Info("recovered recommendations from malformed response", zap.Int("count", len(items)))
		return NewRecommendations(items)
	}

	if matched {
		n.logger.Warn("recommendations found but could not be parsed",
			zap.String("response_preview", utils.TruncateForLog(raw, n.maxLogLen)),
		)
		return NewConversational(FormatFailureMessage)
	}

	n.logger.Debug("no recommendations in structured response, treating as conversational")
	return NewConversational(raw)
}

func (n *Normalizer) locateJSON(text string) string {
	for _, extract := range n.extractors {
		if span, ok := extract(text); ok && looksStructured(span) {
			return span
		}
	}
	return text
}

func looksStructured(text string) bool {
	return strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[")
}

func extractFencedBlock(text string) (string, bool) {
	m := fencedBlockRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// extractObjectSpan returns the first balanced top-level {...} span, honoring
// string literals so braces inside values do not count. When no opening brace
// closes, the span from the first '{' to the last '}' is returned so the parse
// and recovery steps still see the JSON.
func extractObjectSpan(text string) (string, bool) {
	first := strings.IndexByte(text, '{')
	if first < 0 {
		return "", false
	}

	for start := first; start >= 0; {
		if end, ok := balancedEnd(text, start); ok {
			return text[start : end+1], true
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	last := strings.LastIndexByte(text, '}')
	if last <= first {
		return "", false
	}
	return text[first : last+1], true
}

// balancedEnd returns the index of the '}' closing the '{' at start.
func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}

	return 0, false
}

// removeTrailingCommas drops commas that directly precede a closing bracket,
// leaving string literals untouched.
func removeTrailingCommas(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			b.WriteByte(c)
			continue
		}

		switch c {
		case '"':
			inString = true
		case ',':
			j := i + 1
			for j < len(text) && strings.IndexByte(" \t\r\n", text[j]) >= 0 {
				j++
			}
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}

	return b.String()
}

// parseDocument parses the whole working text. It reports false when the text
// is not valid JSON (even after repair) or carries no recommendations list.
func (n *Normalizer) parseDocument(working string, docs []SourceDocument) ([]Recommendation, bool) {
	var doc any
	if err := json.Unmarshal([]byte(working), &doc); err != nil {
		repaired := removeTrailingCommas(working)
		if repaired == working {
			n.logger.Debug("model response is not valid json", zap.Error(err))
			return nil, false
		}
		if err := json.Unmarshal([]byte(repaired), &doc); err != nil {
			n.logger.Debug("repaired model response is not valid json", zap.Error(err))
			return nil, false
		}
		n.logger.Debug("model response parsed after removing trailing commas")
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		n.logger.Debug("model response json is not an object")
		return nil, false
	}

	list, ok := obj["recommendations"].([]any)
	if !ok {
		n.logger.Debug("model response json has no recommendations list")
		return nil, false
	}

	return n.canonicalize(list, docs), true
}

// recoverArray looks for a "recommendations" array anywhere in the raw text and
// parses it alone. matched reports whether such an array was found at all.
func (n *Normalizer) recoverArray(raw string, docs []SourceDocument) (items []Recommendation, matched bool) {
	m := recommendationsRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}

	var list []any
	if err := json.Unmarshal([]byte(m[1]), &list); err != nil {
		n.logger.Debug("recovered recommendations array is not valid json", zap.Error(err))
		return nil, true
	}

	return n.canonicalize(list, docs), true
}

func (n *Normalizer) canonicalize(list []any, docs []SourceDocument) []Recommendation {
	items := make([]Recommendation, 0, len(list))
	for _, element := range list {
		items = append(items, coerce(asObject(element), n.links, docs))
	}
	return items
}

func asObject(element any) map[string]any {
	switch val := element.(type) {
	case map[string]any:
		return val
	case string:
		return map[string]any{"name": val}
	default:
		return nil
	}
}
