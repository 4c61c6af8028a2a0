package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"portfolio-advisor/internal/domain"
	"portfolio-advisor/internal/sentiment"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
)

const (
	sentimentPageSize   = 50
	regulatoryEventsMax = 20
	sectorLookbackDays  = 270
	closeCacheTTL       = 5 * time.Minute
)

// Frozen macro inputs. These are deliberately not live-fetched; reliable
// free sources for them don't exist, and the agent only needs the order of
// magnitude.
const (
	inflationRate    = 1.55
	unemploymentRate = 5.2
	interestRate     = 6.0
)

type CloseProvider interface {
	DailyCloses(ctx context.Context, symbol, rng string) ([]float64, error)
	ClosesBetween(ctx context.Context, symbol string, start, end time.Time) ([]float64, error)
}

type ArticleSearcher interface {
	Everything(ctx context.Context, query string, pageSize int) ([]domain.NewsArticle, error)
}

type HeadlineSearcher interface {
	Search(ctx context.Context, query string, max int) ([]domain.NewsArticle, error)
}

// MarketService assembles the point-in-time market snapshot that grounds a
// new portfolio session. Every sub-fetch is independent and best effort: a
// failure logs and leaves its field at the zero value instead of aborting
// the snapshot.
type MarketService struct {
	tracer    trace.Tracer
	closes    CloseProvider
	news      ArticleSearcher
	headlines HeadlineSearcher
	cache     *redis.Client
}

func NewMarketService(
	tracer trace.Tracer,
	closes CloseProvider,
	news ArticleSearcher,
	headlines HeadlineSearcher,
	cache *redis.Client,
) *MarketService {
	return &MarketService{
		tracer:    tracer,
		closes:    closes,
		news:      news,
		headlines: headlines,
		cache:     cache,
	}
}

// Snapshot aggregates all market data concurrently and returns whatever
// subset of fields succeeded.
func (s *MarketService) Snapshot(ctx context.Context) domain.MarketSnapshot {
	ctx, span := s.tracer.Start(ctx, "market-service.snapshot")
	defer span.End()

	snapshot := domain.MarketSnapshot{
		Timestamp: time.Now().UTC(),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	run := func(name string, fetch func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fetch(ctx); err != nil {
				log.Printf("snapshot: %s fetch failed: %v", name, err)
			}
		}()
	}

	run("market state", func(ctx context.Context) error {
		state, err := s.MarketState(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		snapshot.MarketConditions.MarketState = state
		mu.Unlock()
		return nil
	})

	run("volatility index", func(ctx context.Context) error {
		vix, err := s.VolatilityIndex(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		snapshot.MarketConditions.VolatilityIndex = vix
		mu.Unlock()
		return nil
	})

	run("macro indicators", func(ctx context.Context) error {
		// Constants survive even when the GDP proxy fetch fails.
		macro, err := s.MacroIndicators(ctx)
		mu.Lock()
		snapshot.MacroIndicators = macro
		mu.Unlock()
		return err
	})

	run("sector data", func(ctx context.Context) error {
		sectors, err := s.SectorData(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		snapshot.SectorData = sectors
		mu.Unlock()
		return nil
	})

	run("news sentiment", func(ctx context.Context) error {
		score, err := s.NewsSentiment(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		snapshot.SentimentAnalysis.NewsSentimentScore = score
		mu.Unlock()
		return nil
	})

	run("commodity prices", func(ctx context.Context) error {
		prices, err := s.latestPrices(ctx, domain.CommoditySymbols)
		if err != nil {
			return err
		}
		mu.Lock()
		snapshot.CommodityPrices = prices
		mu.Unlock()
		return nil
	})

	run("exchange rates", func(ctx context.Context) error {
		rates, err := s.latestPrices(ctx, domain.CurrencyPairs)
		if err != nil {
			return err
		}
		mu.Lock()
		snapshot.CurrencyExchangeRates = rates
		mu.Unlock()
		return nil
	})

	run("regulatory events", func(ctx context.Context) error {
		events, err := s.RegulatoryEvents(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		snapshot.RegulatoryEvents.Events = events
		mu.Unlock()
		return nil
	})

	wg.Wait()
	return snapshot
}

// MarketState classifies the market as bull or bear from the benchmark's
// two most recent daily closes. Fewer than two rows is a data failure, not
// a classification.
func (s *MarketService) MarketState(ctx context.Context) (string, error) {
	closes, err := s.cachedCloses(ctx, domain.BenchmarkIndex, "2d")
	if err != nil {
		return "", err
	}
	if len(closes) < 2 {
		return "", fmt.Errorf("benchmark history too short: %d rows", len(closes))
	}
	last, prev := closes[len(closes)-1], closes[len(closes)-2]
	if last > prev {
		return "bull", nil
	}
	return "bear", nil
}

// VolatilityIndex returns the latest volatility benchmark close, or nil
// when no data came back.
func (s *MarketService) VolatilityIndex(ctx context.Context) (*float64, error) {
	closes, err := s.cachedCloses(ctx, domain.VolatilityBenchmark, "1d")
	if err != nil {
		return nil, err
	}
	if len(closes) == 0 {
		return nil, nil
	}
	v := closes[len(closes)-1]
	return &v, nil
}

// MacroIndicators combines a trailing-year benchmark return (GDP growth
// proxy) with the frozen rate constants.
func (s *MarketService) MacroIndicators(ctx context.Context) (domain.MacroIndicators, error) {
	indicators := domain.MacroIndicators{
		InflationRate:    inflationRate,
		UnemploymentRate: unemploymentRate,
		InterestRate:     interestRate,
	}

	closes, err := s.cachedCloses(ctx, domain.BenchmarkIndex, "1y")
	if err != nil {
		return indicators, err
	}
	if len(closes) >= 2 && closes[0] != 0 {
		gdp := round2((closes[len(closes)-1] - closes[0]) / closes[0] * 100)
		indicators.GDPGrowthRate = &gdp
	}
	return indicators, nil
}

// SectorData computes per-sector performance, trend, and volatility from
// each sector's constituent tickers. Tickers that fail or return no rows
// are skipped; a sector with no usable tickers is omitted entirely.
func (s *MarketService) SectorData(ctx context.Context) (map[string]domain.SectorStats, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.sector-data")
	defer span.End()

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -sectorLookbackDays)

	sectors := make(map[string]domain.SectorStats, len(domain.SectorTickers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for sector, tickers := range domain.SectorTickers {
		wg.Add(1)
		go func(sector string, tickers []string) {
			defer wg.Done()

			var performances, volatilities []float64
			for _, ticker := range tickers {
				closes, err := s.closes.ClosesBetween(ctx, ticker, start, end)
				if err != nil {
					log.Printf("sector data: %s fetch failed: %v", ticker, err)
					continue
				}
				if len(closes) < 2 || closes[0] == 0 {
					continue
				}
				perf := (closes[len(closes)-1] - closes[0]) / closes[0] * 100
				performances = append(performances, perf)
				volatilities = append(volatilities, pctChangeStdDev(closes)*100)
			}
			if len(performances) == 0 {
				return
			}

			avgPerf := mean(performances)
			trend := "downward"
			if avgPerf > 0 {
				trend = "upward"
			}
			stats := domain.SectorStats{
				Performance: round2(avgPerf),
				Trend:       trend,
				Volatility:  round2(mean(volatilities)),
			}
			mu.Lock()
			sectors[sector] = stats
			mu.Unlock()
		}(sector, tickers)
	}

	wg.Wait()
	return sectors, nil
}

// NewsSentiment averages the compound sentiment over recent articles for
// the fixed sector query. No articles means a neutral 0, not an error.
func (s *MarketService) NewsSentiment(ctx context.Context) (float64, error) {
	articles, err := s.news.Everything(ctx, domain.SentimentQuery, sentimentPageSize)
	if err != nil {
		return 0, err
	}
	if len(articles) == 0 {
		return 0, nil
	}

	var total float64
	for _, a := range articles {
		total += sentiment.Score(a.Title + ". " + a.Description)
	}
	return round2(total / float64(len(articles))), nil
}

// RegulatoryEvents classifies recent regulatory/policy headlines by
// sentiment, preserving fetch order.
func (s *MarketService) RegulatoryEvents(ctx context.Context) ([]domain.RegulatoryEvent, error) {
	articles, err := s.headlines.Search(ctx, domain.RegulatoryQuery, regulatoryEventsMax)
	if err != nil {
		return nil, err
	}

	events := make([]domain.RegulatoryEvent, 0, len(articles))
	for _, a := range articles {
		score := sentiment.Score(a.Title + " " + a.Description)
		events = append(events, domain.RegulatoryEvent{
			Event:  a.Title,
			Impact: sentiment.Classify(score),
		})
	}
	return events, nil
}

func (s *MarketService) latestPrices(ctx context.Context, symbols map[string]string) (map[string]float64, error) {
	prices := make(map[string]float64, len(symbols))
	var firstErr error
	for name, symbol := range symbols {
		closes, err := s.cachedCloses(ctx, symbol, "1d")
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(closes) == 0 {
			continue
		}
		prices[name] = round2(closes[len(closes)-1])
	}
	if len(prices) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return prices, nil
}

// cachedCloses memoizes short-range close series in redis so repeated
// snapshots within a few minutes don't hammer the quote API. Only raw daily
// closes are memoized; the snapshot itself is assembled fresh per request.
// Cache errors fall through to a direct fetch.
func (s *MarketService) cachedCloses(ctx context.Context, symbol, rng string) ([]float64, error) {
	if s.cache == nil {
		return s.closes.DailyCloses(ctx, symbol, rng)
	}

	key := "closes:" + symbol + ":" + rng
	if raw, err := s.cache.Get(ctx, key).Result(); err == nil {
		var closes []float64
		if err := json.Unmarshal([]byte(raw), &closes); err == nil {
			return closes, nil
		}
	}

	closes, err := s.closes.DailyCloses(ctx, symbol, rng)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(closes); err == nil {
		if err := s.cache.Set(ctx, key, encoded, closeCacheTTL).Err(); err != nil {
			log.Printf("close cache set failed for %s: %v", key, err)
		}
	}
	return closes, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// pctChangeStdDev is the sample standard deviation of day-over-day
// fractional changes.
func pctChangeStdDev(closes []float64) float64 {
	if len(closes) < 3 {
		return 0
	}
	changes := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		changes = append(changes, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(changes) < 2 {
		return 0
	}
	m := mean(changes)
	var sum float64
	for _, c := range changes {
		d := c - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(changes)-1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
