package recommendation

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

var defaultResolver = NewLinkResolver("", "")

// Coerce converts one loosely typed recommendation object into a canonical record.
// Missing or wrong-typed fields take their defaults; it never fails.
func Coerce(raw map[string]any) Recommendation {
	return coerce(raw, defaultResolver, nil)
}

func coerce(raw map[string]any, links *LinkResolver, docs []SourceDocument) Recommendation {
	name := coerceString(raw["name"])

	return Recommendation{
		Name:                   withDefault(name, DefaultName),
		Description:            withDefault(coerceString(raw["description"]), DefaultDescription),
		Type:                   withDefault(coerceString(raw["type"]), DefaultType),
		Duration:               withDefault(coerceString(raw["duration"]), DefaultDuration),
		SuitableFor:            withDefault(coerceString(raw["suitableFor"]), DefaultSuitableFor),
		RelevanceScore:         coerceScore(raw["relevanceScore"]),
		RemoteTestingAvailable: coerceRemote(raw["remoteTestingAvailable"]),
		Link:                   links.Resolve(name, coerceString(raw["link"]), docs),
	}
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func coerceString(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func coerceScore(v any) int {
	score := DefaultRelevance

	switch val := v.(type) {
	case float64:
		if !math.IsNaN(val) && !math.IsInf(val, 0) {
			score = clampFloat(math.Round(val))
		}
	case int:
		score = val
	case int64:
		score = clampFloat(float64(val))
	case json.Number:
		if f, err := val.Float64(); err == nil {
			score = clampFloat(math.Round(f))
		}
	case string:
		if n, ok := parseLeadingInt(val); ok {
			score = n
		}
	}

	return clamp(score, 0, 100)
}

// parseLeadingInt reads an optionally signed base-10 integer prefix, so "85%" and
// "85.7" both give 85.
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// Only overflow gets here; saturate in the direction of the sign.
		if s[0] == '-' {
			return math.MinInt32, true
		}
		return math.MaxInt32, true
	}
	return n, true
}

func clampFloat(f float64) int {
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	if f < math.MinInt32 {
		return math.MinInt32
	}
	return int(f)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func coerceRemote(v any) string {
	switch val := v.(type) {
	case bool:
		if val {
			return RemoteTestingYes
		}
		return RemoteTestingNo
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "no", "n", "false":
			return RemoteTestingNo
		}
	}
	return RemoteTestingYes
}
