package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/assessment-recommender/internal/recommendation"
	"github.com/spigell/assessment-recommender/internal/utils"
)

const (
	// DefaultNamespace is the index namespace holding catalog records.
	DefaultNamespace = "ns1"

	defaultAPIVersion = "2025-01"
	defaultTimeout    = 30 * time.Second
	userAgent         = "spigell/assessment-recommender"
	contentType       = "application/json"
	contentEncoding   = "gzip"
	maxErrorBody      = 300
)

// IndexConfig describes the vector index endpoint.
type IndexConfig struct {
	Host       string `mapstructure:"host"`
	Namespace  string `mapstructure:"namespace"`
	TopK       int    `mapstructure:"top-k"`
	APIVersion string `mapstructure:"api-version"`
	APIKey     string `mapstructure:"-"`
}

// Index searches a hosted vector index with integrated embeddings. The query
// text is embedded by the service.
type Index struct {
	host       string
	namespace  string
	topK       int
	apiKey     string
	apiVersion string
	logger     *zap.Logger

	HTTPClient *http.Client
	UserAgent  string
}

type searchRequest struct {
	Query  searchQuery `json:"query"`
	Fields []string    `json:"fields,omitempty"`
}

type searchQuery struct {
	Inputs map[string]string `json:"inputs"`
	TopK   int               `json:"top_k"`
}

type searchResponse struct {
	Result struct {
		Hits []map[string]any `json:"hits"`
	} `json:"result"`
}

type searchHit struct {
	ID     string         `mapstructure:"_id"`
	Score  float64        `mapstructure:"_score"`
	Fields map[string]any `mapstructure:"fields"`
}

// NewIndex creates an index client.
func NewIndex(cfg IndexConfig, logger *zap.Logger) (*Index, error) {
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		return nil, errors.New("index host is required")
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	if _, err := url.Parse(host); err != nil {
		return nil, fmt.Errorf("parse index host: %w", err)
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("index api key is required")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	idx := &Index{
		host:       host,
		namespace:  strings.TrimSpace(cfg.Namespace),
		topK:       cfg.TopK,
		apiKey:     apiKey,
		apiVersion: strings.TrimSpace(cfg.APIVersion),
		logger:     logger,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		UserAgent: userAgent,
	}
	if idx.namespace == "" {
		idx.namespace = DefaultNamespace
	}
	if idx.topK <= 0 {
		idx.topK = DefaultTopK
	}
	if idx.apiVersion == "" {
		idx.apiVersion = defaultAPIVersion
	}

	return idx, nil
}

// Retrieve runs a text search against the index namespace. k <= 0 uses the
// configured top-k.
func (i *Index) Retrieve(ctx context.Context, query string, k int) ([]recommendation.SourceDocument, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	if k <= 0 {
		k = i.topK
	}

	payload, err := json.Marshal(searchRequest{
		Query: searchQuery{
			Inputs: map[string]string{"text": query},
			TopK:   k,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/records/namespaces/%s/search", i.host, url.PathEscape(i.namespace))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	req = i.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	var response searchResponse
	if err := i.doJSON(req, &response); err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	var hits []searchHit
	if err := mapstructure.Decode(response.Result.Hits, &hits); err != nil {
		return nil, fmt.Errorf("decode index hits: %w", err)
	}

	docs := make([]recommendation.SourceDocument, 0, len(hits))
	for _, hit := range hits {
		metadata := make(map[string]any, len(hit.Fields)+2)
		for key, val := range hit.Fields {
			metadata[key] = val
		}
		metadata["_id"] = hit.ID
		metadata["_score"] = hit.Score

		content, _ := hit.Fields["text"].(string)
		docs = append(docs, recommendation.NewSourceDocument(content, metadata))
	}

	i.logger.Debug("index search finished",
		zap.String("namespace", i.namespace),
		zap.Int("top_k", k),
		zap.Int("hits", len(docs)),
	)

	return docs, nil
}

func (i *Index) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("Api-Key", i.apiKey)
	req.Header.Set("X-Pinecone-API-Version", i.apiVersion)
	req.Header.Set("User-Agent", i.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

func (i *Index) doJSON(req *http.Request, target any) error {
	i.logger.Debug("make request", zap.String("url", req.URL.String()))

	resp, err := i.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s: %s", resp.Status, utils.TruncateForLog(string(data), maxErrorBody))
	}

	if err := json.Unmarshal(data, target); err != nil {
		return err
	}

	return nil
}
