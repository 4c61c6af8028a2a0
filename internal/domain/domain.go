package domain

import "time"

// PersonalInfo describes who the investor is.
type PersonalInfo struct {
	Name                 string `json:"name"`
	Age                  int    `json:"age"`
	Location             string `json:"location"`
	Occupation           string `json:"occupation"`
	InvestmentExperience string `json:"investment_experience"`
}

// FinancialGoals describes what the investor is saving for.
type FinancialGoals struct {
	GoalType     string  `json:"goal_type"`
	TargetAmount float64 `json:"target_amount"`
	TargetYears  int     `json:"target_years"`
}

type RiskProfile struct {
	RiskTolerance       string `json:"risk_tolerance"`
	VolatilityTolerance string `json:"volatility_tolerance"`
}

type InvestmentPreferences struct {
	PortfolioStyle        string   `json:"portfolio_style"`
	PreferredSectors      []string `json:"preferred_sectors"`
	ExcludedSectors       []string `json:"excluded_sectors"`
	PreferredAssetClasses []string `json:"preferred_asset_classes"`
	ExcludedAssetClasses  []string `json:"excluded_asset_classes"`
}

type Capital struct {
	InitialInvestment        float64 `json:"initial_investment"`
	LiquidityNeedsPercentage float64 `json:"liquidity_needs_percentage"`
}

// AllocationConstraints bounds per-asset and per-sector weights.
type AllocationConstraints struct {
	MaxAllocationPerAsset  float64 `json:"max_allocation_per_asset"`
	MinAllocationPerSector float64 `json:"min_allocation_per_sector"`
	MaxAllocationPerSector float64 `json:"max_allocation_per_sector"`
}

// UserProfile is the full investor profile submitted on a session's first
// turn. Immutable once submitted.
type UserProfile struct {
	PersonalInfo          PersonalInfo          `json:"personal_info"`
	FinancialGoals        FinancialGoals        `json:"financial_goals"`
	RiskProfile           RiskProfile           `json:"risk_profile"`
	InvestmentPreferences InvestmentPreferences `json:"investment_preferences"`
	Capital               Capital               `json:"capital"`
	Constraints           AllocationConstraints `json:"constraints"`
}

// MarketConditions holds the coarse market regime read. VolatilityIndex is
// nil when the fetch returned no data.
type MarketConditions struct {
	MarketState     string   `json:"market_state"`
	VolatilityIndex *float64 `json:"volatility_index"`
}

type MacroIndicators struct {
	GDPGrowthRate    *float64 `json:"GDP_growth_rate"`
	InflationRate    float64  `json:"inflation_rate"`
	UnemploymentRate float64  `json:"unemployment_rate"`
	InterestRate     float64  `json:"interest_rate"`
}

// SectorStats is the averaged view of one sector's constituent tickers.
type SectorStats struct {
	Performance float64 `json:"performance"`
	Trend       string  `json:"trend"`
	Volatility  float64 `json:"volatility"`
}

type SentimentAnalysis struct {
	NewsSentimentScore float64 `json:"news_sentiment_score"`
}

// RegulatoryEvent is one classified headline, fetch order preserved.
type RegulatoryEvent struct {
	Event  string `json:"event"`
	Impact string `json:"impact"`
}

// RegulatoryEvents wraps the event list to match the request document shape.
type RegulatoryEvents struct {
	Events []RegulatoryEvent `json:"regulatory_events"`
}

// MarketSnapshot is the aggregated point-in-time market view. Sub-fetches
// are best effort: a failed fetch leaves its field zero/empty rather than
// aborting the snapshot.
type MarketSnapshot struct {
	Timestamp             time.Time              `json:"timestamp"`
	MarketConditions      MarketConditions       `json:"market_conditions"`
	MacroIndicators       MacroIndicators        `json:"macro_economic_indicators"`
	SectorData            map[string]SectorStats `json:"sector_data"`
	SentimentAnalysis     SentimentAnalysis      `json:"sentiment_analysis"`
	CommodityPrices       map[string]float64     `json:"commodity_prices"`
	CurrencyExchangeRates map[string]float64     `json:"currency_exchange_rates"`
	RegulatoryEvents      RegulatoryEvents       `json:"regulatory_events"`
}

// PortfolioConstraints are the fixed risk bounds attached to every request.
type PortfolioConstraints struct {
	MaxTotalRisk                 float64 `json:"max_total_risk"`
	MinLiquidityPercentage       float64 `json:"min_liquidity_percentage"`
	SectorDiversification        bool    `json:"sector_diversification"`
	MaxIndividualAssetPercentage float64 `json:"max_individual_asset_percentage"`
}

type ModelPreferences struct {
	OptimizationGoal string `json:"optimization_goal"`
	TimeHorizon      string `json:"time_horizon"`
	ExplanationLevel string `json:"explanation_level"`
	Adaptation       bool   `json:"adaptation"`
}

// PortfolioRequest is the complete first-turn prompt payload: profile plus
// fresh market snapshot plus fixed constraints and preferences.
type PortfolioRequest struct {
	UserProfile          UserProfile          `json:"user_profile"`
	MarketData           MarketSnapshot       `json:"market_data"`
	PortfolioConstraints PortfolioConstraints `json:"portfolio_constraints"`
	ModelPreferences     ModelPreferences     `json:"model_preferences"`
}

// PortfolioSummary mirrors the agent's portfolio_summary block. The
// persisted session document stays the raw extracted JSON text; this typed
// shape is used by the Telegram and TUI pretty-printers.
type PortfolioSummary struct {
	TotalInvestment      float64 `json:"total_investment"`
	ExpectedAnnualReturn float64 `json:"expected_annual_return"`
	RiskLevel            string  `json:"risk_level"`
	MaxDrawdown          float64 `json:"max_drawdown"`
}

type Allocation struct {
	Asset                string  `json:"asset"`
	Sector               string  `json:"sector"`
	AllocationPercentage float64 `json:"allocation_percentage"`
}

// PortfolioDocument is the agent's structured output shape.
type PortfolioDocument struct {
	PortfolioSummary PortfolioSummary   `json:"portfolio_summary"`
	Allocations      []Allocation       `json:"allocations"`
	SectorAllocation map[string]float64 `json:"sector_allocation"`
	Strategy         string             `json:"strategy"`
}

// NewsArticle is one headline/description pair from a news provider.
type NewsArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ConversationMessage is one audited chat turn.
type ConversationMessage struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// ChatRequest is the canonical /agent/chat body. Whether Data.Message or
// Data.InitialPreferenceData is consumed depends on session existence.
type ChatRequest struct {
	SessionID string   `json:"sessionId"`
	UserID    string   `json:"userId"`
	Data      ChatData `json:"data"`
}

type ChatData struct {
	Message               string       `json:"message,omitempty"`
	InitialPreferenceData *UserProfile `json:"initialPreferenceData,omitempty"`
}

// ChatResponse is the /agent/chat reply. IsJSON is 1 iff Response contains
// a {...} span (heuristic, not a verified parse).
type ChatResponse struct {
	IsJSON   int    `json:"is_json"`
	Response string `json:"response"`
}

// BenchmarkIndex is the equity benchmark used for the market state read and
// the GDP growth proxy.
const BenchmarkIndex = "^GSPC"

// VolatilityBenchmark is the volatility index symbol.
const VolatilityBenchmark = "^VIX"

// SectorTickers maps each tracked sector to its constituent NSE tickers.
var SectorTickers = map[string][]string{
	"Information Technology":       {"INFY.NS", "TCS.NS", "WIPRO.NS", "HCLTECH.NS", "TECHM.NS"},
	"Pharmaceuticals":              {"SUNPHARMA.NS", "DRREDDY.NS", "CIPLA.NS", "DIVISLAB.NS", "GLENMARK.NS"},
	"Banking & Financial Services": {"HDFCBANK.NS", "ICICIBANK.NS", "KOTAKBANK.NS", "AXISBANK.NS", "SBIN.NS"},
	"Renewable Energy":             {"ADANIGREEN.NS", "TATAPOWER.NS", "JSWENERGY.NS", "NTPC.NS", "RELIANCE.NS"},
	"Automobile":                   {"MARUTI.NS", "TATAMOTORS.NS", "BAJAJ-AUTO.NS", "M&M.NS", "EICHERMOT.NS"},
	"Consumer Goods":               {"HINDUNILVR.NS", "ITC.NS", "DABUR.NS", "TATACONSUM.NS", "BRITANNIA.NS"},
	"Metals & Mining":              {"JSWSTEEL.NS", "TATASTEEL.NS", "HINDALCO.NS", "NMDC.NS", "SAIL.NS"},
}

// CommoditySymbols maps display names to Yahoo futures symbols.
var CommoditySymbols = map[string]string{
	"Gold":      "GC=F",
	"Silver":    "SI=F",
	"Crude Oil": "CL=F",
}

// CurrencyPairs maps display names to Yahoo FX symbols.
var CurrencyPairs = map[string]string{
	"USD to EUR": "EUR=X",
	"USD to INR": "INR=X",
}

// SentimentQuery feeds the aggregate news sentiment score.
const SentimentQuery = "Information Technology India"

// RegulatoryQuery feeds the regulatory/news event list.
const RegulatoryQuery = "India regulation OR policy OR interest rate OR ESG"
