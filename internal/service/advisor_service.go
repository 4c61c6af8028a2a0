package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"

	"portfolio-advisor/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const maxAgentAttempts = 10

const followUpNewsMax = 10

const agentSystemPrompt = "You are a master in portfolio management. Always return PortfolioOutput in JSON format."

const newSessionInstructions = `You are a master in portfolio management.
You are given a JSON describing a user's profile, market conditions, and constraints.
Generate a portfolio output in JSON matching the PortfolioOutput model. Do not give examples.
Give the exact stock or asset to invest in. Make sure the person's country matches the stock location as well. Give importance to the preferences of the user.
Remove all citations.

PortfolioOutput:
{
  "portfolio_summary": {
    "total_investment": float,
    "expected_annual_return": float,
    "risk_level": str,
    "max_drawdown": float
  },
  "allocations": [
    {
      "asset": str,
      "sector": str,
      "allocation_percentage": float
    }
  ],
  "sector_allocation": {
    "sector_name": float
  },
  "strategy": str
}

Include BOTH:
- Sector level allocations (ETFs or sector groupings)
- Individual stocks and other asset types (cash, bonds, commodities)

For each asset, provide:
- asset name
- allocation percentage
- expected return
- risk
- ESG rating (if available)
- rationale

Do not include extra text outside the JSON.
`

const followUpInstructions = `This is the user response: %s
If the user is asking you to make a new portfolio from suggestions or anything,
make it all over again USING ONLY THESE COMMANDS BELOW:

You are a master in portfolio management.
You already know the user's profile, market conditions, and constraints. Update this portfolio based on the user's new preference.
Generate a portfolio output in JSON matching the existing model. Do not give examples.
Give the exact stock or asset to invest in. Make sure the person's country matches the stock location as well. Give importance to the preferences of the user.
Remove all citations.

Current portfolio:
%s

Include BOTH:
- Sector level allocations (ETFs or sector groupings)
- Individual stocks and other asset types (cash, bonds, commodities)

For each asset, provide:
- asset name
- allocation percentage
- expected return
- risk
- ESG rating (if available)
- rationale

Do not include extra text outside the JSON.

ELSE,
if the user does not request an update and only needs an explanation,
give a response which is explained with facts and numbers. Do not say you do not have
real time data or access to something. Worst case, use historical data for justification.
Here are some recent news to help you out. Use these.
%s

DO NOT BOLD ANY OF YOUR ANSWERS USING **
DO NOT FOLLOW PORTFOLIO FORMAT IF THERE IS NO UPDATE.`

type AgentRunner interface {
	Run(ctx context.Context, apiKey, userID, sessionID, system, prompt string) (string, error)
}

type SessionStore interface {
	Exists(ctx context.Context, userID, sessionID string) (bool, error)
	Read(ctx context.Context, userID, sessionID string) (string, error)
	Write(ctx context.Context, userID, sessionID, document string) error
}

type SnapshotProvider interface {
	Snapshot(ctx context.Context) domain.MarketSnapshot
}

type ConversationAuditor interface {
	AppendMessage(ctx context.Context, userID, sessionID, role, content string) error
}

// AdvisorService drives the conversational portfolio agent. A session's
// first turn submits the user profile and produces the initial portfolio
// document; later turns either update the stored portfolio or answer in
// plain prose.
type AdvisorService struct {
	tracer    trace.Tracer
	runner    AgentRunner
	sessions  SessionStore
	market    SnapshotProvider
	headlines HeadlineSearcher
	audit     ConversationAuditor
	apiKeys   []string

	// pickIndex selects the credential for one attempt, overridable in tests.
	pickIndex func(n int) int
}

func NewAdvisorService(
	tracer trace.Tracer,
	runner AgentRunner,
	sessions SessionStore,
	market SnapshotProvider,
	headlines HeadlineSearcher,
	audit ConversationAuditor,
	apiKeys []string,
) *AdvisorService {
	return &AdvisorService{
		tracer:    tracer,
		runner:    runner,
		sessions:  sessions,
		market:    market,
		headlines: headlines,
		audit:     audit,
		apiKeys:   apiKeys,
		pickIndex: rand.IntN,
	}
}

// Chat handles one turn of an advisor conversation. Session existence, not
// the request shape, decides whether this is a first turn or a follow-up.
func (s *AdvisorService) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	ctx, span := s.tracer.Start(ctx, "advisor-service.chat")
	defer span.End()

	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.SessionID) == "" {
		return domain.ChatResponse{}, fmt.Errorf("%w: userId and sessionId are required", domain.ErrInvalidRequest)
	}

	exists, err := s.sessions.Exists(ctx, req.UserID, req.SessionID)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("check session: %w", err)
	}

	var response string
	var userTurn string
	if !exists {
		userTurn = "initial profile"
		response, err = s.newSession(ctx, req)
	} else {
		userTurn = req.Data.Message
		response, err = s.continueSession(ctx, req)
	}
	if err != nil {
		return domain.ChatResponse{}, err
	}

	s.auditTurn(ctx, req.UserID, req.SessionID, userTurn, response)

	isJSON := 0
	if _, ok := ExtractJSON(response); ok {
		isJSON = 1
	}
	return domain.ChatResponse{IsJSON: isJSON, Response: response}, nil
}

func (s *AdvisorService) newSession(ctx context.Context, req domain.ChatRequest) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor-service.new-session")
	defer span.End()

	if req.Data.InitialPreferenceData == nil {
		return "", fmt.Errorf("%w: initialPreferenceData is required for a new session", domain.ErrInvalidRequest)
	}
	// Reject an incomplete profile before paying for the market fetches.
	if err := validateProfile(*req.Data.InitialPreferenceData); err != nil {
		return "", err
	}

	snapshot := s.market.Snapshot(ctx)
	request, err := BuildPortfolioRequest(*req.Data.InitialPreferenceData, snapshot)
	if err != nil {
		return "", err
	}
	payload, err := json.MarshalIndent(request, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode portfolio request: %w", err)
	}

	raw, err := s.runWithRetry(ctx, req.UserID, req.SessionID, newSessionInstructions+string(payload))
	if err != nil {
		return "", err
	}

	document, ok := ExtractJSON(raw)
	if !ok {
		return "", domain.ErrNoStructuredOutput
	}
	if err := s.sessions.Write(ctx, req.UserID, req.SessionID, document); err != nil {
		return "", fmt.Errorf("persist portfolio: %w", err)
	}
	return document, nil
}

func (s *AdvisorService) continueSession(ctx context.Context, req domain.ChatRequest) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor-service.continue-session")
	defer span.End()

	if strings.TrimSpace(req.Data.Message) == "" {
		return "", fmt.Errorf("%w: message is required for an existing session", domain.ErrInvalidRequest)
	}

	current, err := s.sessions.Read(ctx, req.UserID, req.SessionID)
	if err != nil {
		return "", fmt.Errorf("read portfolio: %w", err)
	}

	news := s.recentNews(ctx, req.Data.Message)
	prompt := fmt.Sprintf(followUpInstructions, req.Data.Message, current, news)

	raw, err := s.runWithRetry(ctx, req.UserID, req.SessionID, prompt)
	if err != nil {
		return "", err
	}

	// A follow-up only updates the stored portfolio when the agent actually
	// produced a new document. The caller then gets the document itself, so
	// an is_json=1 response body always parses.
	if document, ok := ExtractJSON(raw); ok {
		if err := s.sessions.Write(ctx, req.UserID, req.SessionID, document); err != nil {
			return "", fmt.Errorf("persist portfolio: %w", err)
		}
		return document, nil
	}
	return raw, nil
}

// runWithRetry calls the agent up to maxAgentAttempts times, choosing a
// random credential for each attempt. Exhaustion is terminal.
func (s *AdvisorService) runWithRetry(ctx context.Context, userID, sessionID, prompt string) (string, error) {
	if len(s.apiKeys) == 0 {
		return "", errors.New("no agent API keys configured")
	}

	var lastErr error
	for attempt := 1; attempt <= maxAgentAttempts; attempt++ {
		key := s.apiKeys[s.pickIndex(len(s.apiKeys))]
		out, err := s.runner.Run(ctx, key, userID, sessionID, agentSystemPrompt, prompt)
		if err == nil && strings.TrimSpace(out) != "" {
			return out, nil
		}
		if err == nil {
			err = errors.New("empty agent response")
		}
		lastErr = err
		log.Printf("agent attempt %d/%d failed: %v", attempt, maxAgentAttempts, err)
	}
	return "", fmt.Errorf("%w: %v", domain.ErrAgentUnavailable, lastErr)
}

// recentNews fetches headlines matching the user's message as grounding for
// prose answers. Best effort: a failure yields an empty context block.
func (s *AdvisorService) recentNews(ctx context.Context, query string) string {
	if s.headlines == nil {
		return ""
	}
	articles, err := s.headlines.Search(ctx, query, followUpNewsMax)
	if err != nil {
		log.Printf("follow-up news fetch failed: %v", err)
		return ""
	}
	var b strings.Builder
	for _, a := range articles {
		b.WriteString("- ")
		b.WriteString(a.Title)
		if a.Description != "" {
			b.WriteString(": ")
			b.WriteString(a.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (s *AdvisorService) auditTurn(ctx context.Context, userID, sessionID, userTurn, response string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.AppendMessage(ctx, userID, sessionID, "user", userTurn); err != nil {
		log.Printf("conversation audit failed: %v", err)
		return
	}
	if err := s.audit.AppendMessage(ctx, userID, sessionID, "assistant", response); err != nil {
		log.Printf("conversation audit failed: %v", err)
	}
}

// ExtractJSON returns the span from the first '{' to the last '}' in s,
// mirroring how the agent's structured output is embedded in prose.
func ExtractJSON(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
