package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/assessment-recommender/internal/recommendation"
)

type scrapedCatalog struct {
	TestTypeCodes map[string]string `json:"Test-Type-Codes"`
	Solutions     []any             `json:"Individual-Test-Solutions"`
}

type scrapedSolution struct {
	Name             string   `mapstructure:"name"`
	Description      string   `mapstructure:"Description"`
	JobLevels        []string `mapstructure:"Job levels"`
	TestType         []string `mapstructure:"Test Type"`
	Languages        []string `mapstructure:"Languages"`
	AssessmentLength string   `mapstructure:"Assessment length"`
	RemoteTesting    string   `mapstructure:"Remote Testing"`
	Link             string   `mapstructure:"link"`
}

// File is an in-memory catalog loaded from a scraped catalog file. It ranks
// entries by keyword overlap with the query.
type File struct {
	entries []Entry
	terms   []entryTerms
}

type entryTerms struct {
	name map[string]struct{}
	text map[string]struct{}
}

// LoadFile reads a scraped catalog JSON file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	return Parse(data)
}

// Parse decodes scraped catalog JSON. Entries with neither a name nor a
// description are skipped.
func Parse(data []byte) (*File, error) {
	var raw scrapedCatalog
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	f := &File{}
	for i, item := range raw.Solutions {
		obj, ok := item.(map[string]any)
		if !ok || len(obj) == 0 {
			continue
		}

		var sol scrapedSolution
		if err := mapstructure.WeakDecode(obj, &sol); err != nil {
			return nil, fmt.Errorf("decode catalog entry #%d: %w", i, err)
		}

		sol.Name = strings.TrimSpace(sol.Name)
		sol.Description = strings.TrimSpace(sol.Description)
		if sol.Name == "" && sol.Description == "" {
			continue
		}

		entry := Entry{
			ID:               fmt.Sprintf("assessment_%d", len(f.entries)),
			Name:             sol.Name,
			Description:      truncateRunes(sol.Description, maxDescriptionLength),
			JobLevels:        trimAll(sol.JobLevels),
			TestTypeCodes:    trimAll(sol.TestType),
			Languages:        trimAll(sol.Languages),
			AssessmentLength: strings.TrimSpace(sol.AssessmentLength),
			RemoteTesting:    strings.TrimSpace(sol.RemoteTesting),
			Link:             strings.TrimSpace(sol.Link),
		}
		for _, code := range entry.TestTypeCodes {
			if name, ok := raw.TestTypeCodes[code]; ok {
				entry.TestTypes = append(entry.TestTypes, name)
			} else {
				entry.TestTypes = append(entry.TestTypes, code)
			}
		}

		f.entries = append(f.entries, entry)
		f.terms = append(f.terms, entryTerms{
			name: termSet(entry.Name),
			text: termSet(entry.Text()),
		})
	}

	return f, nil
}

// Entries returns the loaded catalog entries.
func (f *File) Entries() []Entry {
	return append([]Entry{}, f.entries...)
}

// Len returns the number of entries.
func (f *File) Len() int { return len(f.entries) }

// Retrieve returns up to k entries sharing terms with query, best first.
// A name hit counts double. Ties keep catalog order.
func (f *File) Retrieve(ctx context.Context, query string, k int) ([]recommendation.SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = DefaultTopK
	}

	type scored struct {
		idx   int
		score int
	}

	queryTerms := termSet(query)
	var ranked []scored
	for i, terms := range f.terms {
		score := 0
		for term := range queryTerms {
			if _, ok := terms.name[term]; ok {
				score += 2
			} else if _, ok := terms.text[term]; ok {
				score++
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{idx: i, score: score})
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}

	docs := make([]recommendation.SourceDocument, 0, len(ranked))
	for _, r := range ranked {
		docs = append(docs, f.entries[r.idx].Document())
	}
	return docs, nil
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"can": {}, "for": {}, "from": {}, "i": {}, "in": {}, "is": {}, "it": {}, "me": {},
	"my": {}, "of": {}, "on": {}, "or": {}, "our": {}, "that": {}, "the": {}, "their": {},
	"they": {}, "this": {}, "to": {}, "want": {}, "who": {}, "with": {}, "looking": {},
	"new": {}, "some": {}, "about": {}, "am": {}, "also": {}, "give": {}, "each": {},
}

func termSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		set[f] = struct{}{}
	}
	return set
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
