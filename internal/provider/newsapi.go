package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"portfolio-advisor/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultNewsAPIBaseURL = "https://newsapi.org"

// NewsAPIProvider queries the NewsAPI everything endpoint for articles
// matching a keyword query.
type NewsAPIProvider struct {
	tracer  trace.Tracer
	client  *http.Client
	apiKey  string
	baseURL string
}

func NewNewsAPIProvider(tracer trace.Tracer, apiKey string) *NewsAPIProvider {
	return NewNewsAPIProviderWithBaseURL(tracer, apiKey, defaultNewsAPIBaseURL)
}

func NewNewsAPIProviderWithBaseURL(tracer trace.Tracer, apiKey, baseURL string) *NewsAPIProvider {
	return &NewsAPIProvider{
		tracer: tracer,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"articles"`
}

// Everything returns up to pageSize articles for query, relevancy-sorted,
// English only.
func (p *NewsAPIProvider) Everything(ctx context.Context, query string, pageSize int) ([]domain.NewsArticle, error) {
	ctx, span := p.tracer.Start(ctx, "newsapi-provider.everything")
	span.SetAttributes(attribute.String("query", query))
	defer span.End()

	if p.apiKey == "" {
		return nil, fmt.Errorf("newsapi key not configured")
	}

	params := url.Values{}
	params.Add("q", query)
	params.Add("language", "en")
	params.Add("sortBy", "relevancy")
	params.Add("pageSize", strconv.Itoa(pageSize))
	params.Add("apiKey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v2/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create newsapi request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch newsapi articles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("newsapi returned status %d: %s", resp.StatusCode, string(body))
	}

	var result newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse newsapi response: %w", err)
	}
	if result.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %q", result.Status)
	}

	articles := make([]domain.NewsArticle, 0, len(result.Articles))
	for _, a := range result.Articles {
		articles = append(articles, domain.NewsArticle{
			Title:       a.Title,
			Description: a.Description,
		})
	}
	return articles, nil
}
