package recommendation

import (
	"encoding/json"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	// MaxRecommendations is the maximum number of records returned by the primary parse path.
	MaxRecommendations = 10

	// PlaceholderLink is the literal value models copy from the response template instead of a real URL.
	PlaceholderLink = "URL to assessment"

	DefaultName          = "Unknown Assessment"
	DefaultDescription   = "No description available"
	DefaultType          = "Not specified"
	DefaultDuration      = "Not specified"
	DefaultSuitableFor   = "All levels"
	DefaultRelevance     = 70
	RemoteTestingYes     = "Yes"
	RemoteTestingNo      = "No"
	EmptyResponseMessage = "I couldn't generate a response. Please try rephrasing your query."
	FormatFailureMessage = "I found some assessment options but couldn't format them correctly. Please try again."
)

// Recommendation is a single canonical assessment recommendation.
type Recommendation struct {
	Name                   string `json:"name"`
	Description            string `json:"description"`
	Type                   string `json:"type"`
	Duration               string `json:"duration"`
	SuitableFor            string `json:"suitableFor"`
	RelevanceScore         int    `json:"relevanceScore"`
	RemoteTestingAvailable string `json:"remoteTestingAvailable"`
	Link                   string `json:"link"`
}

// Map returns the record as a loosely typed mapping, the same shape Coerce accepts.
func (r Recommendation) Map() map[string]any {
	return map[string]any{
		"name":                   r.Name,
		"description":            r.Description,
		"type":                   r.Type,
		"duration":               r.Duration,
		"suitableFor":            r.SuitableFor,
		"relevanceScore":         r.RelevanceScore,
		"remoteTestingAvailable": r.RemoteTestingAvailable,
		"link":                   r.Link,
	}
}

// Kind tells which branch of a Result is populated.
type Kind int

const (
	KindConversational Kind = iota
	KindRecommendations
)

func (k Kind) String() string {
	switch k {
	case KindRecommendations:
		return "recommendations"
	default:
		return "conversational"
	}
}

// Result is the normalized outcome for one query: either a ranked list of
// recommendations or a conversational message, never both.
type Result struct {
	kind    Kind
	items   []Recommendation
	message string
}

// NewRecommendations builds a recommendations result. The slice is copied.
func NewRecommendations(items []Recommendation) *Result {
	copied := make([]Recommendation, len(items))
	copy(copied, items)
	return &Result{kind: KindRecommendations, items: copied}
}

// NewConversational builds a conversational result.
func NewConversational(message string) *Result {
	return &Result{kind: KindConversational, message: message}
}

func (r *Result) Kind() Kind { return r.kind }

func (r *Result) IsConversational() bool { return r.kind == KindConversational }

// Message is empty for recommendation results.
func (r *Result) Message() string { return r.message }

// Items returns a copy of the recommendations; empty for conversational results.
func (r *Result) Items() []Recommendation {
	copied := make([]Recommendation, len(r.items))
	copy(copied, r.items)
	return copied
}

func (r *Result) Len() int { return len(r.items) }

// Names lists recommendation names in rank order.
func (r *Result) Names() []string {
	names := make([]string, 0, len(r.items))
	for _, item := range r.items {
		names = append(names, item.Name)
	}
	return names
}

// Response is the externally observable JSON shape of a Result.
type Response struct {
	ConversationalResponse string           `json:"conversationalResponse,omitempty"`
	Recommendations        []Recommendation `json:"recommendations"`
}

func (r *Result) Response() Response {
	if r.kind == KindConversational {
		return Response{ConversationalResponse: r.message, Recommendations: []Recommendation{}}
	}
	return Response{Recommendations: r.Items()}
}

func (r *Result) MarshalJSON() ([]byte, error) {
	if r.kind == KindConversational {
		// The message key is always present for conversational results, even when empty.
		return json.Marshal(struct {
			ConversationalResponse string           `json:"conversationalResponse"`
			Recommendations        []Recommendation `json:"recommendations"`
		}{r.message, []Recommendation{}})
	}
	return json.Marshal(r.Response())
}

// SourceDocument is a retrieved catalog entry used to corroborate recommendation links.
type SourceDocument struct {
	Name     string
	Link     string
	Content  string
	Metadata map[string]any
}

type documentMetadata struct {
	Name string `mapstructure:"name"`
	Link string `mapstructure:"link"`
}

// NewSourceDocument reads name and link from retrieval metadata. Metadata with
// wrong-typed name or link yields a document that corroborates nothing.
func NewSourceDocument(content string, metadata map[string]any) SourceDocument {
	doc := SourceDocument{Content: content, Metadata: metadata}

	var meta documentMetadata
	if err := mapstructure.Decode(metadata, &meta); err != nil {
		return doc
	}

	doc.Name = strings.TrimSpace(meta.Name)
	doc.Link = strings.TrimSpace(meta.Link)
	return doc
}
