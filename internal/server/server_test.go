package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spigell/assessment-recommender/internal/filtering"
	"github.com/spigell/assessment-recommender/internal/recommendation"
)

type fakeRecommender struct {
	result    *recommendation.Result
	err       error
	lastQuery string
}

func (f *fakeRecommender) Recommend(_ context.Context, query string) (*recommendation.Result, error) {
	f.lastQuery = query
	return f.result, f.err
}

func recommendations() *recommendation.Result {
	return recommendation.NewRecommendations([]recommendation.Recommendation{
		{Name: "Java 8 (New)", RelevanceScore: 95, RemoteTestingAvailable: "Yes", Link: "https://catalog.example.com/view/java-8-new/"},
		{Name: "OPQ32r", RelevanceScore: 40, RemoteTestingAvailable: "Yes", Link: "https://catalog.example.com/view/opq32r/"},
	})
}

func newTestServer(rec *fakeRecommender, filters *filtering.Config) http.Handler {
	return New(rec, Config{AllowedOrigins: []string{"http://localhost:3000", "https://app.example.com/"}}, filters, nil).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestAskReturnsRecommendations(t *testing.T) {
	t.Parallel()

	fake := &fakeRecommender{result: recommendations()}
	rec := do(t, newTestServer(fake, nil), http.MethodPost, "/api/ask", `{"question": "  Java developers "}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if fake.lastQuery != "Java developers" {
		t.Fatalf("expected trimmed question, got %q", fake.lastQuery)
	}

	body := decode(t, rec)
	items, ok := body["recommendations"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["conversationalResponse"]; ok {
		t.Fatalf("recommendations must not carry a conversational response: %v", body)
	}
}

func TestAskConversationalShape(t *testing.T) {
	t.Parallel()

	fake := &fakeRecommender{result: recommendation.NewConversational("Which role are you hiring for?")}
	rec := do(t, newTestServer(fake, nil), http.MethodPost, "/api/ask", `{"question": "hi"}`, nil)

	if strings.TrimSpace(rec.Body.String()) != `{"conversationalResponse":"Which role are you hiring for?","recommendations":[]}` {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestAskErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		body   string
		err    error
		status int
		expect string
	}{
		{name: "missing question", method: http.MethodPost, body: `{}`, status: http.StatusBadRequest, expect: msgNoQuestion},
		{name: "blank question", method: http.MethodPost, body: `{"question": "  "}`, status: http.StatusBadRequest, expect: msgNoQuestion},
		{name: "invalid json", method: http.MethodPost, body: `{`, status: http.StatusBadRequest, expect: msgInvalidBody},
		{name: "upstream failure", method: http.MethodPost, body: `{"question": "q"}`, err: errors.New("gemini down"), status: http.StatusInternalServerError, expect: msgInternalFailed},
		{name: "wrong method", method: http.MethodGet, status: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fake := &fakeRecommender{result: recommendations(), err: tt.err}
			rec := do(t, newTestServer(fake, nil), tt.method, "/api/ask", tt.body, nil)

			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
			if tt.expect == "" {
				return
			}

			body := decode(t, rec)
			if body["error"] != tt.expect {
				t.Fatalf("expected error %q, got %v", tt.expect, body)
			}
			if tt.err != nil && body["details"] != tt.err.Error() {
				t.Fatalf("expected details %q, got %v", tt.err.Error(), body["details"])
			}
		})
	}
}

func TestAskAppliesFilters(t *testing.T) {
	t.Parallel()

	fake := &fakeRecommender{result: recommendations()}
	rec := do(t, newTestServer(fake, &filtering.Config{MinScore: 50}), http.MethodPost, "/api/ask", `{"question": "java"}`, nil)

	body := decode(t, rec)
	items := body["recommendations"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["name"] != "Java 8 (New)" {
		t.Fatalf("expected only the high scoring recommendation, got %v", items)
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()

	fake := &fakeRecommender{result: recommendations()}
	rec := do(t, newTestServer(fake, nil), http.MethodPost, "/api/search", `{"query": "java"}`,
		map[string]string{"Origin": "https://app.example.com"})

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}

	body := decode(t, rec)
	if body["success"] != true || body["query"] != "java" {
		t.Fatalf("unexpected body %v", body)
	}
	if items := body["recommendations"].([]any); len(items) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(items))
	}
	if _, ok := body["message"]; ok {
		t.Fatalf("unexpected message in %v", body)
	}
}

func TestSearchConversational(t *testing.T) {
	t.Parallel()

	fake := &fakeRecommender{result: recommendation.NewConversational("Tell me more.")}
	rec := do(t, newTestServer(fake, nil), http.MethodPost, "/api/search", `{"query": "hello"}`, nil)

	body := decode(t, rec)
	if body["success"] != true || body["message"] != "Tell me more." {
		t.Fatalf("unexpected body %v", body)
	}
	if items, ok := body["recommendations"].([]any); !ok || len(items) != 0 {
		t.Fatalf("expected empty recommendations list, got %v", body["recommendations"])
	}
}

func TestSearchErrors(t *testing.T) {
	t.Parallel()

	fake := &fakeRecommender{err: errors.New("index unavailable")}
	h := newTestServer(fake, nil)

	rec := do(t, h, http.MethodPost, "/api/search", `{"query": ""}`, nil)
	if rec.Code != http.StatusBadRequest || decode(t, rec)["error"] != msgNoQuery {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/api/search", `{"query": "java"}`, nil)
	body := decode(t, rec)
	if rec.Code != http.StatusInternalServerError || body["success"] != false || body["error"] != "index unavailable" {
		t.Fatalf("unexpected response %d %v", rec.Code, body)
	}
}

func TestSearchPreflight(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(&fakeRecommender{}, nil), http.MethodOptions, "/api/search", "",
		map[string]string{"Origin": "https://evil.example.com"})

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected first allowed origin for unknown caller, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "POST, OPTIONS" {
		t.Fatalf("unexpected methods header %q", got)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestServer(&fakeRecommender{}, nil), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "ok" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestSearchCapsRecommendations(t *testing.T) {
	t.Parallel()

	items := make([]recommendation.Recommendation, 0, 14)
	for i := 0; i < 14; i++ {
		items = append(items, recommendation.Recommendation{Name: fmt.Sprintf("Assessment %d", i), RelevanceScore: 70})
	}
	fake := &fakeRecommender{result: recommendation.NewRecommendations(items)}

	h := newTestServer(fake, nil)

	body := decode(t, do(t, h, http.MethodPost, "/api/search", `{"query": "java"}`, nil))
	got := body["recommendations"].([]any)
	if len(got) != recommendation.MaxRecommendations {
		t.Fatalf("expected %d recommendations, got %d", recommendation.MaxRecommendations, len(got))
	}
	if got[0].(map[string]any)["name"] != "Assessment 0" {
		t.Fatalf("expected the top ranked items to be kept, got %v", got[0])
	}

	ask := decode(t, do(t, h, http.MethodPost, "/api/ask", `{"question": "java"}`, nil))
	if n := len(ask["recommendations"].([]any)); n != 14 {
		t.Fatalf("expected /api/ask to return every recommendation, got %d", n)
	}
}
