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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooProvider fetches historical daily closes from the Yahoo Finance v8
// chart API.
type YahooProvider struct {
	tracer  trace.Tracer
	client  *http.Client
	baseURL string
}

func NewYahooProvider(tracer trace.Tracer) *YahooProvider {
	return NewYahooProviderWithBaseURL(tracer, defaultYahooBaseURL)
}

func NewYahooProviderWithBaseURL(tracer trace.Tracer, baseURL string) *YahooProvider {
	return &YahooProvider{
		tracer: tracer,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: baseURL,
	}
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// DailyCloses returns the daily closes for symbol over a Yahoo range string
// (1d, 2d, 5d, 1mo, 1y, ...), oldest first. Null rows are skipped. An empty
// result is not an error; callers that need a minimum row count enforce it
// themselves.
func (p *YahooProvider) DailyCloses(ctx context.Context, symbol, rng string) ([]float64, error) {
	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("range", rng)
	return p.fetchCloses(ctx, symbol, params)
}

// ClosesBetween returns the daily closes for symbol in [start, end), oldest
// first.
func (p *YahooProvider) ClosesBetween(ctx context.Context, symbol string, start, end time.Time) ([]float64, error) {
	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("period1", strconv.FormatInt(start.Unix(), 10))
	params.Add("period2", strconv.FormatInt(end.Unix(), 10))
	return p.fetchCloses(ctx, symbol, params)
}

func (p *YahooProvider) fetchCloses(ctx context.Context, symbol string, params url.Values) ([]float64, error) {
	ctx, span := p.tracer.Start(ctx, "yahoo-provider.fetch-closes")
	span.SetAttributes(attribute.String("symbol", symbol))
	defer span.End()

	reqURL := p.baseURL + "/v8/finance/chart/" + url.QueryEscape(symbol) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", symbol, err)
	}
	// Yahoo rejects requests without a browser-ish user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("yahoo returned status %d for %s: %s", resp.StatusCode, symbol, string(body))
	}

	var chart yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("parse chart response for %s: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart error for %s: %v", symbol, chart.Chart.Error)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	raw := chart.Chart.Result[0].Indicators.Quote[0].Close
	closes := make([]float64, 0, len(raw))
	for _, c := range raw {
		if c == nil {
			continue
		}
		closes = append(closes, *c)
	}
	return closes, nil
}
