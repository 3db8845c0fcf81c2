package recommendation

import (
	"strings"
	"testing"
)

const catalog = "https://catalog.example.com/products/"

func TestLinkResolverResolve(t *testing.T) {
	t.Parallel()

	resolver := NewLinkResolver(catalog, "Acme")

	docs := []SourceDocument{
		{Name: "Java 8 (New)", Link: "https://source.example.com/java-8"},
		{Name: "Verify - Numerical Ability", Link: ""},
		{Name: "Broken", Link: "not a url"},
		{Name: "", Link: "https://source.example.com/unnamed"},
	}

	tests := []struct {
		name    string
		recName string
		rawLink string
		docs    []SourceDocument
		expect  string
	}{
		{
			name:    "source document exact match wins over model link",
			recName: "Java 8 (New)",
			rawLink: "https://model.example.com/java",
			docs:    docs,
			expect:  "https://source.example.com/java-8",
		},
		{
			name:    "source document match ignores case",
			recName: "JAVA 8 (NEW)",
			docs:    docs,
			expect:  "https://source.example.com/java-8",
		},
		{
			name:    "document name contains recommendation name",
			recName: "java 8",
			docs:    docs,
			expect:  "https://source.example.com/java-8",
		},
		{
			name:    "recommendation name contains document name",
			recName: "Java 8 (New) Assessment",
			docs:    docs,
			expect:  "https://source.example.com/java-8",
		},
		{
			name:    "matching document without link is ignored",
			recName: "Verify - Numerical Ability",
			rawLink: "verify-numerical-ability",
			docs:    docs,
			expect:  catalog + "view/verify-numerical-ability/",
		},
		{
			name:    "matching document with relative link is ignored",
			recName: "Broken",
			docs:    docs,
			expect:  catalog + "view/broken/",
		},
		{
			name:    "absolute model link kept",
			recName: "Docker (New)",
			rawLink: "https://model.example.com/docker",
			expect:  "https://model.example.com/docker",
		},
		{
			name:    "bare slug assembled",
			recName: "Docker (New)",
			rawLink: "docker-new",
			expect:  catalog + "view/docker-new/",
		},
		{
			name:    "view prefixed slug assembled",
			recName: "Docker (New)",
			rawLink: "/view/docker-new/",
			expect:  catalog + "view/docker-new/",
		},
		{
			name:    "placeholder ignored",
			recName: "Docker (New)",
			rawLink: PlaceholderLink,
			expect:  catalog + "view/docker-new/",
		},
		{
			name:    "unusable model link falls back to name",
			recName: "Docker (New)",
			rawLink: "see the catalog page",
			expect:  catalog + "view/docker-new/",
		},
		{
			name:    "brand suffix stripped",
			recName: "Global Skills Assessment | Acme",
			expect:  catalog + "view/global-skills-assessment/",
		},
		{
			name:    "punctuation removed and hyphens collapsed",
			recName: "Automata - Fix (New)",
			expect:  catalog + "view/automata-fix-new/",
		},
		{
			name:    "nested qualifiers",
			recName: "Core Java (Entry Level) (New)",
			expect:  catalog + "view/core-java-entry-level-new/",
		},
		{
			name:    "empty name falls back to root",
			recName: "",
			expect:  catalog,
		},
		{
			name:    "name without slug characters falls back to root",
			recName: "!!!",
			expect:  catalog,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := resolver.Resolve(tt.recName, tt.rawLink, tt.docs)
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestLinkResolverJavaNewScenario(t *testing.T) {
	t.Parallel()

	got := NewLinkResolver("", "").Resolve("Java 8 (New)", "", nil)
	if !strings.HasSuffix(got, "/view/java-8-new/") {
		t.Fatalf("expected link ending with /view/java-8-new/, got %q", got)
	}
	if !strings.HasPrefix(got, DefaultCatalogBaseURL) {
		t.Fatalf("expected default catalog prefix, got %q", got)
	}
}

func TestLinkResolverNeverReturnsPlaceholderOrRelative(t *testing.T) {
	t.Parallel()

	resolver := NewLinkResolver("", "")
	names := []string{"", "Java 8 (New)", "   ", "OPQ32r | SHL", "Ünïcödé – Test"}
	links := []string{"", PlaceholderLink, "relative/path with spaces", "/view/", "ftp://example.com/x"}

	for _, name := range names {
		for _, link := range links {
			got := resolver.Resolve(name, link, nil)
			if got == PlaceholderLink {
				t.Fatalf("placeholder returned for name=%q link=%q", name, link)
			}
			if !isAbsoluteURL(got) {
				t.Fatalf("non-absolute link %q for name=%q link=%q", got, name, link)
			}
		}
	}
}

func TestNewLinkResolverNormalizesBase(t *testing.T) {
	t.Parallel()

	if got := NewLinkResolver("https://catalog.example.com/products", "").Root(); got != "https://catalog.example.com/products/" {
		t.Fatalf("expected trailing slash added, got %q", got)
	}

	if got := NewLinkResolver("/relative", "").Root(); got != DefaultCatalogBaseURL {
		t.Fatalf("expected default base for relative input, got %q", got)
	}
}

func TestSlugStripsDefaultBrand(t *testing.T) {
	t.Parallel()

	if got := NewLinkResolver("", "").Slug("Occupational Personality Questionnaire OPQ32r | SHL"); got != "occupational-personality-questionnaire-opq32r" {
		t.Fatalf("unexpected slug %q", got)
	}
}
