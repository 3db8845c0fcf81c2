package recommendation

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	DefaultCatalogBaseURL = "https://www.shl.com/solutions/products/product-catalog/"
	DefaultBrand          = "SHL"
)

var (
	newQualifierRe = regexp.MustCompile(`\s*\(new\)`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	nonSlugRe      = regexp.MustCompile(`[^\w-]`)
	hyphenRunRe    = regexp.MustCompile(`-{2,}`)
	bareSlugRe     = regexp.MustCompile(`^(?:view/)?([\w-]+)$`)
)

// LinkResolver derives an absolute product URL for a recommendation.
type LinkResolver struct {
	base    string
	brandRe *regexp.Regexp
}

// NewLinkResolver returns a resolver rooted at the catalog base URL. Empty or
// non-absolute values fall back to the defaults.
func NewLinkResolver(baseURL, brand string) *LinkResolver {
	baseURL = strings.TrimSpace(baseURL)
	if !isAbsoluteURL(baseURL) {
		baseURL = DefaultCatalogBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	brand = strings.TrimSpace(brand)
	if brand == "" {
		brand = DefaultBrand
	}

	return &LinkResolver{
		base:    baseURL,
		brandRe: regexp.MustCompile(`(?i)\s*\|\s*` + regexp.QuoteMeta(brand) + `\s*$`),
	}
}

// Root is the catalog root URL, the last-resort link.
func (r *LinkResolver) Root() string { return r.base }

// ProductURL assembles the canonical catalog URL for a product slug.
func (r *LinkResolver) ProductURL(slug string) string {
	return r.base + "view/" + slug + "/"
}

// Resolve picks the link for a recommendation. Source documents win over
// anything the model produced; the model's link wins over one derived from the name.
func (r *LinkResolver) Resolve(name, rawLink string, docs []SourceDocument) string {
	name = strings.TrimSpace(name)

	if link, ok := corroborate(name, docs); ok {
		return link
	}

	if link, ok := r.fromRawLink(rawLink); ok {
		return link
	}

	if slug := r.Slug(name); slug != "" {
		return r.ProductURL(slug)
	}

	return r.base
}

func corroborate(name string, docs []SourceDocument) (string, bool) {
	if name == "" {
		return "", false
	}

	needle := strings.ToLower(name)
	for _, doc := range docs {
		docName := strings.ToLower(strings.TrimSpace(doc.Name))
		if docName == "" {
			continue
		}
		if docName != needle && !strings.Contains(docName, needle) && !strings.Contains(needle, docName) {
			continue
		}
		if link := strings.TrimSpace(doc.Link); isAbsoluteURL(link) {
			return link, true
		}
	}

	return "", false
}

func (r *LinkResolver) fromRawLink(rawLink string) (string, bool) {
	rawLink = strings.TrimSpace(rawLink)
	if rawLink == "" || strings.EqualFold(rawLink, PlaceholderLink) {
		return "", false
	}

	if isAbsoluteURL(rawLink) {
		return rawLink, true
	}

	if m := bareSlugRe.FindStringSubmatch(strings.Trim(rawLink, "/")); m != nil {
		return r.ProductURL(m[1]), true
	}

	return "", false
}

// Slug derives the catalog slug from an assessment name, e.g.
// "Java 8 (New)" -> "java-8-new".
func (r *LinkResolver) Slug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = r.brandRe.ReplaceAllString(slug, "")
	slug = newQualifierRe.ReplaceAllString(slug, "-new")
	slug = whitespaceRe.ReplaceAllString(slug, "-")
	slug = nonSlugRe.ReplaceAllString(slug, "")
	slug = hyphenRunRe.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

func isAbsoluteURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
