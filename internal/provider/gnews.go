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

const defaultGNewsBaseURL = "https://gnews.io"

// GNewsProvider searches GNews for recent headlines. Used for the
// regulatory event feed and for grounding follow-up chat turns.
type GNewsProvider struct {
	tracer  trace.Tracer
	client  *http.Client
	apiKey  string
	baseURL string
}

func NewGNewsProvider(tracer trace.Tracer, apiKey string) *GNewsProvider {
	return NewGNewsProviderWithBaseURL(tracer, apiKey, defaultGNewsBaseURL)
}

func NewGNewsProviderWithBaseURL(tracer trace.Tracer, apiKey, baseURL string) *GNewsProvider {
	return &GNewsProvider{
		tracer: tracer,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

type gnewsResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"articles"`
}

// Search returns up to max headlines for query, newest-relevant first as
// returned by GNews. Order is preserved for the caller.
func (p *GNewsProvider) Search(ctx context.Context, query string, max int) ([]domain.NewsArticle, error) {
	ctx, span := p.tracer.Start(ctx, "gnews-provider.search")
	span.SetAttributes(attribute.String("query", query))
	defer span.End()

	if p.apiKey == "" {
		return nil, fmt.Errorf("gnews key not configured")
	}

	params := url.Values{}
	params.Add("q", query)
	params.Add("lang", "en")
	params.Add("country", "in")
	params.Add("max", strconv.Itoa(max))
	params.Add("apikey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/v4/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create gnews request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch gnews articles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gnews returned status %d: %s", resp.StatusCode, string(body))
	}

	var result gnewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse gnews response: %w", err)
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
