package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"portfolio-advisor/internal/domain"
)

type stubRunner struct {
	responses []string
	errs      []error
	calls     int
	keys      []string
	prompts   []string
}

func (s *stubRunner) Run(_ context.Context, apiKey, _, _, _, prompt string) (string, error) {
	i := s.calls
	s.calls++
	s.keys = append(s.keys, apiKey)
	s.prompts = append(s.prompts, prompt)
	var out string
	var err error
	if i < len(s.responses) {
		out = s.responses[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return out, err
}

type stubSessions struct {
	docs     map[string]string
	writeErr error
	writes   int
}

func newStubSessions() *stubSessions {
	return &stubSessions{docs: map[string]string{}}
}

func (s *stubSessions) Exists(_ context.Context, userID, sessionID string) (bool, error) {
	_, ok := s.docs[userID+"/"+sessionID]
	return ok, nil
}

func (s *stubSessions) Read(_ context.Context, userID, sessionID string) (string, error) {
	doc, ok := s.docs[userID+"/"+sessionID]
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	return doc, nil
}

func (s *stubSessions) Write(_ context.Context, userID, sessionID, document string) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes++
	s.docs[userID+"/"+sessionID] = document
	return nil
}

type stubSnapshot struct{}

func (stubSnapshot) Snapshot(context.Context) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		MarketConditions: domain.MarketConditions{MarketState: "bull"},
	}
}

type countingSnapshot struct{ calls int }

func (c *countingSnapshot) Snapshot(context.Context) domain.MarketSnapshot {
	c.calls++
	return domain.MarketSnapshot{}
}

type stubAudit struct {
	messages []string
	err      error
}

func (s *stubAudit) AppendMessage(_ context.Context, _, _, role, content string) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, role+": "+content)
	return nil
}

func validProfile() *domain.UserProfile {
	return &domain.UserProfile{
		PersonalInfo: domain.PersonalInfo{Name: "Asha", Age: 31, Location: "India"},
		FinancialGoals: domain.FinancialGoals{
			GoalType:     "long_term_growth",
			TargetAmount: 5000000,
			TargetYears:  15,
		},
		RiskProfile: domain.RiskProfile{RiskTolerance: "moderate"},
		Capital:     domain.Capital{InitialInvestment: 500000},
	}
}

func newTestAdvisor(runner *stubRunner, sessions *stubSessions, audit *stubAudit) *AdvisorService {
	var auditor ConversationAuditor
	if audit != nil {
		auditor = audit
	}
	svc := NewAdvisorService(
		testTracer(),
		runner,
		sessions,
		stubSnapshot{},
		&stubHeadlines{},
		auditor,
		[]string{"key-a", "key-b", "key-c"},
	)
	return svc
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`Here you go: {"a": 1} hope that helps`, `{"a": 1}`, true},
		{`{"outer": {"inner": 2}}`, `{"outer": {"inner": 2}}`, true},
		{"prefix {\"a\":1}\nsuffix {\"b\":2} tail", `{"a":1}` + "\nsuffix " + `{"b":2}`, true},
		{"no braces here", "", false},
		{"} backwards {", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractJSON(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ExtractJSON(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestChatNewSessionPersistsPortfolio(t *testing.T) {
	doc := `{"portfolio_summary": {"total_investment": 500000}, "allocations": []}`
	runner := &stubRunner{responses: []string{"Sure!\n" + doc + "\nDone."}}
	sessions := newStubSessions()
	audit := &stubAudit{}
	svc := newTestAdvisor(runner, sessions, audit)

	resp, err := svc.Chat(context.Background(), domain.ChatRequest{
		SessionID: "s1",
		UserID:    "u1",
		Data:      domain.ChatData{InitialPreferenceData: validProfile()},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.IsJSON != 1 {
		t.Errorf("expected is_json 1, got %d", resp.IsJSON)
	}
	if resp.Response != doc {
		t.Errorf("expected extracted document, got %q", resp.Response)
	}
	if sessions.docs["u1/s1"] != doc {
		t.Errorf("expected persisted document, got %q", sessions.docs["u1/s1"])
	}
	if len(audit.messages) != 2 {
		t.Errorf("expected 2 audited turns, got %d", len(audit.messages))
	}
	if !strings.Contains(runner.prompts[0], `"market_state": "bull"`) {
		t.Error("expected prompt to embed the market snapshot")
	}
	if !strings.Contains(runner.prompts[0], `"name": "Asha"`) {
		t.Error("expected prompt to embed the user profile")
	}
}

func TestChatNewSessionRequiresProfile(t *testing.T) {
	svc := newTestAdvisor(&stubRunner{}, newStubSessions(), nil)

	_, err := svc.Chat(context.Background(), domain.ChatRequest{
		SessionID: "s1",
		UserID:    "u1",
		Data:      domain.ChatData{Message: "hello"},
	})
	if err == nil {
		t.Fatal("expected error when first turn has no profile")
	}
}

func TestChatNewSessionInvalidProfileSkipsMarketFetch(t *testing.T) {
	market := &countingSnapshot{}
	runner := &stubRunner{}
	svc := NewAdvisorService(
		testTracer(),
		runner,
		newStubSessions(),
		market,
		&stubHeadlines{},
		nil,
		[]string{"key-a"},
	)

	profile := validProfile()
	profile.PersonalInfo.Name = ""
	_, err := svc.Chat(context.Background(), domain.ChatRequest{
		SessionID: "s1",
		UserID:    "u1",
		Data:      domain.ChatData{InitialPreferenceData: profile},
	})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if market.calls != 0 {
		t.Errorf("expected no snapshot fetch for an invalid profile, got %d", market.calls)
	}
	if runner.calls != 0 {
		t.Errorf("expected no agent call for an invalid profile, got %d", runner.calls)
	}
}

func TestChatNewSessionNoJSONIsTerminal(t *testing.T) {
	runner := &stubRunner{responses: []string{
		"plain text", "plain text", "plain text", "plain text", "plain text",
		"plain text", "plain text", "plain text", "plain text", "plain text",
	}}
	sessions := newStubSessions()
	svc := newTestAdvisor(runner, sessions, nil)

	_, err := svc.Chat(context.Background(), domain.ChatRequest{
		SessionID: "s1",
		UserID:    "u1",
		Data:      domain.ChatData{InitialPreferenceData: validProfile()},
	})
	if !errors.Is(err, domain.ErrNoStructuredOutput) {
		t.Fatalf("expected ErrNoStructuredOutput, got %v", err)
	}
	if sessions.writes != 0 {
		t.Errorf("expected no session write, got %d", sessions.writes)
	}
}

func TestChatContinueSessionProseAnswer(t *testing.T) {
	sessions := newStubSessions()
	sessions.docs["u1/s1"] = `{"strategy": "balanced"}`
	runner := &stubRunner{responses: []string{"Gold is up because rates eased."}}
	svc := newTestAdvisor(runner, sessions, nil)

	resp, err := svc.Chat(context.Background(), domain.ChatRequest{
		SessionID: "s1",
		UserID:    "u1",
		Data:      domain.ChatData{Message: "why gold?"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.IsJSON != 0 {
		t.Errorf("expected is_json 0, got %d", resp.IsJSON)
	}
	if resp.Response != "Gold is up because rates eased." {
		t.Errorf("unexpected response: %q", resp.Response)
	}
	if sessions.writes != 0 {
		t.Errorf("prose answer should not rewrite the portfolio, got %d writes", sessions.writes)
	}
	if !strings.Contains(runner.prompts[0], `{"strategy": "balanced"}`) {
		t.Error("expected prompt to carry the current portfolio")
	}
	if !strings.Contains(runner.prompts[0], "why gold?") {
		t.Error("expected prompt to carry the user message")
	}
}

func TestChatContinueSessionUpdatesPortfolio(t *testing.T) {
	sessions := newStubSessions()
	sessions.docs["u1/s1"] = `{"strategy": "balanced"}`
	updated := `{"strategy": "aggressive"}`
	runner := &stubRunner{responses: []string{"Updated: " + updated + " Enjoy!"}}
	svc := newTestAdvisor(runner, sessions, nil)

	resp, err := svc.Chat(context.Background(), domain.ChatRequest{
		SessionID: "s1",
		UserID:    "u1",
		Data:      domain.ChatData{Message: "make it aggressive"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.IsJSON != 1 {
		t.Errorf("expected is_json 1, got %d", resp.IsJSON)
	}
	if sessions.docs["u1/s1"] != updated {
		t.Errorf("expected updated document, got %q", sessions.docs["u1/s1"])
	}
	// The body must be the document itself, not the prose around it.
	if resp.Response != updated {
		t.Errorf("expected response %q, got %q", updated, resp.Response)
	}
}

func TestChatContinueSessionRequiresMessage(t *testing.T) {
	sessions := newStubSessions()
	sessions.docs["u1/s1"] = "{}"
	svc := newTestAdvisor(&stubRunner{}, sessions, nil)

	_, err := svc.Chat(context.Background(), domain.ChatRequest{
		SessionID: "s1",
		UserID:    "u1",
	})
	if err == nil {
		t.Fatal("expected error for empty follow-up message")
	}
}

func TestChatRequiresIdentifiers(t *testing.T) {
	svc := newTestAdvisor(&stubRunner{}, newStubSessions(), nil)

	if _, err := svc.Chat(context.Background(), domain.ChatRequest{SessionID: "s1"}); err == nil {
		t.Error("expected error for missing userId")
	}
	if _, err := svc.Chat(context.Background(), domain.ChatRequest{UserID: "u1"}); err == nil {
		t.Error("expected error for missing sessionId")
	}
}

func TestRunWithRetryRotatesKeys(t *testing.T) {
	errs := make([]error, maxAgentAttempts)
	for i := range errs {
		errs[i] = errors.New("503")
	}
	errs[2] = nil
	runner := &stubRunner{
		responses: []string{"", "", `{"ok": true}`},
		errs:      errs,
	}
	svc := newTestAdvisor(runner, newStubSessions(), nil)
	picks := []int{0, 1, 2}
	svc.pickIndex = func(int) int {
		p := picks[0]
		picks = picks[1:]
		return p
	}

	out, err := svc.runWithRetry(context.Background(), "u1", "s1", "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"ok": true}` {
		t.Errorf("unexpected output: %q", out)
	}
	if runner.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", runner.calls)
	}
	want := []string{"key-a", "key-b", "key-c"}
	for i, key := range want {
		if runner.keys[i] != key {
			t.Errorf("attempt %d: expected %s, got %s", i, key, runner.keys[i])
		}
	}
}

func TestRunWithRetryExhaustion(t *testing.T) {
	errs := make([]error, maxAgentAttempts+5)
	for i := range errs {
		errs[i] = errors.New("503")
	}
	runner := &stubRunner{errs: errs}
	svc := newTestAdvisor(runner, newStubSessions(), nil)

	_, err := svc.runWithRetry(context.Background(), "u1", "s1", "prompt")
	if !errors.Is(err, domain.ErrAgentUnavailable) {
		t.Fatalf("expected ErrAgentUnavailable, got %v", err)
	}
	if runner.calls != maxAgentAttempts {
		t.Errorf("expected exactly %d attempts, got %d", maxAgentAttempts, runner.calls)
	}
}

func TestRunWithRetryEmptyResponseRetries(t *testing.T) {
	runner := &stubRunner{responses: []string{"", "  \n", "answer"}}
	svc := newTestAdvisor(runner, newStubSessions(), nil)

	out, err := svc.runWithRetry(context.Background(), "u1", "s1", "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "answer" {
		t.Errorf("unexpected output: %q", out)
	}
	if runner.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", runner.calls)
	}
}

func TestRunWithRetryNoKeys(t *testing.T) {
	svc := NewAdvisorService(testTracer(), &stubRunner{}, newStubSessions(), stubSnapshot{}, nil, nil, nil)

	if _, err := svc.runWithRetry(context.Background(), "u1", "s1", "prompt"); err == nil {
		t.Fatal("expected error with no configured keys")
	}
}

func TestChatAuditFailureIsNonFatal(t *testing.T) {
	sessions := newStubSessions()
	sessions.docs["u1/s1"] = "{}"
	runner := &stubRunner{responses: []string{"fine"}}
	audit := &stubAudit{err: errors.New("db down")}
	svc := newTestAdvisor(runner, sessions, audit)

	resp, err := svc.Chat(context.Background(), domain.ChatRequest{
		SessionID: "s1",
		UserID:    "u1",
		Data:      domain.ChatData{Message: "status?"},
	})
	if err != nil {
		t.Fatalf("audit failure should not fail the chat: %v", err)
	}
	if resp.Response != "fine" {
		t.Errorf("unexpected response: %q", resp.Response)
	}
}

func TestChatNewSessionAllocationsSumToHundred(t *testing.T) {
	doc := `{"portfolio_summary":{"total_investment":500000,"expected_annual_return":12,"risk_level":"moderate","max_drawdown":15},` +
		`"allocations":[{"asset":"INFY","sector":"Information Technology","allocation_percentage":40},` +
		`{"asset":"HDFCBANK","sector":"Banking & Financial Services","allocation_percentage":35},` +
		`{"asset":"SUNPHARMA","sector":"Pharmaceuticals","allocation_percentage":25.05}],` +
		`"sector_allocation":{"Information Technology":40,"Banking & Financial Services":35,"Pharmaceuticals":25.05},` +
		`"strategy":"balanced growth"}`
	sessions := newStubSessions()
	runner := &stubRunner{responses: []string{"Here is your plan: " + doc}}
	svc := newTestAdvisor(runner, sessions, nil)

	resp, err := svc.Chat(context.Background(), domain.ChatRequest{
		SessionID: "s1",
		UserID:    "u1",
		Data:      domain.ChatData{InitialPreferenceData: validProfile()},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.IsJSON != 1 {
		t.Fatal("expected structured response")
	}

	var persisted domain.PortfolioDocument
	if err := json.Unmarshal([]byte(sessions.docs["u1/s1"]), &persisted); err != nil {
		t.Fatalf("persisted document does not parse: %v", err)
	}
	var sum float64
	for _, a := range persisted.Allocations {
		sum += a.AllocationPercentage
	}
	if math.Abs(sum-100) > 0.5 {
		t.Fatalf("allocation percentages sum to %.2f, want ~100", sum)
	}
}
