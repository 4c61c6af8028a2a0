package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"portfolio-advisor/internal/domain"

	tele "gopkg.in/telebot.v3"
)

// telegramSessionID keys each chat's advisor session. One portfolio per
// chat; /reset would need a session namespace first.
const telegramSessionID = "telegram"

const maxReplyLen = 4000

type ChatAdvisor interface {
	Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error)
}

type SnapshotQuerier interface {
	Snapshot(ctx context.Context) domain.MarketSnapshot
}

type PortfolioReader interface {
	Read(ctx context.Context, userID, sessionID string) (string, error)
}

func StartTelegramBot(token string, advisorService ChatAdvisor, marketService SnapshotQuerier, portfolios PortfolioReader) *DigestDispatcher {
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}
	digests := NewDigestDispatcher(b)

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/snapshot", func(c tele.Context) error {
		if marketService == nil {
			return c.Send("Market service unavailable")
		}
		snapshot := marketService.Snapshot(context.Background())
		return c.Send(formatSnapshot(snapshot))
	})

	b.Handle("/portfolio", func(c tele.Context) error {
		if portfolios == nil {
			return c.Send("Portfolio store unavailable")
		}
		chat := c.Chat()
		if chat == nil {
			return c.Send("Unable to detect chat")
		}
		document, err := portfolios.Read(context.Background(), chatUserID(chat.ID), telegramSessionID)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return c.Send("No portfolio yet. Create one with the web app or TUI first.")
		}
		if err != nil {
			return c.Send(fmt.Sprintf("Error reading portfolio: %v", err))
		}
		return c.Send(FormatPortfolio(document))
	})

	b.Handle("/digest", func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return c.Send("Unable to detect chat")
		}

		mode, err := parseDigestMode(c.Args())
		if err != nil {
			return c.Send("Usage: /digest on | /digest off | /digest status")
		}

		switch mode {
		case "on":
			if digests.Subscribe(chat.ID) {
				return c.Send("Market digests enabled for this chat.")
			}
			return c.Send("Market digests are already enabled for this chat.")
		case "off":
			if digests.Unsubscribe(chat.ID) {
				return c.Send("Market digests disabled for this chat.")
			}
			return c.Send("Market digests are already disabled for this chat.")
		default:
			if digests.IsSubscribed(chat.ID) {
				return c.Send("Digest status: ON")
			}
			return c.Send("Digest status: OFF")
		}
	})

	b.Handle("/ask", func(c tele.Context) error {
		if advisorService == nil {
			return c.Send("Advisor not configured. Set OPENAI_API_KEYS to enable.")
		}
		question := strings.TrimSpace(c.Message().Payload)
		if question == "" {
			return c.Send("Usage: /ask <question>\nExample: /ask Why so much gold in my portfolio?")
		}
		return handleAdvisorQuery(c, advisorService, question)
	})

	b.Handle(tele.OnText, func(c tele.Context) error {
		if advisorService == nil {
			return nil
		}
		text := strings.TrimSpace(c.Text())
		if text == "" {
			return nil
		}
		return handleAdvisorQuery(c, advisorService, text)
	})

	log.Println("Telegram bot started")
	go b.Start()
	return digests
}

func handleAdvisorQuery(c tele.Context, adv ChatAdvisor, question string) error {
	_ = c.Notify(tele.Typing)

	resp, err := adv.Chat(context.Background(), domain.ChatRequest{
		SessionID: telegramSessionID,
		UserID:    chatUserID(c.Chat().ID),
		Data:      domain.ChatData{Message: question},
	})
	if errors.Is(err, domain.ErrInvalidRequest) {
		return c.Send("This chat has no portfolio session yet. Create one with the web app or TUI, then ask away.")
	}
	if err != nil {
		log.Printf("advisor error for chat %d: %v", c.Chat().ID, err)
		return c.Send("Sorry, I'm having trouble right now. Try /snapshot for raw market data.")
	}

	reply := resp.Response
	if resp.IsJSON == 1 {
		reply = FormatPortfolio(reply)
	}
	if len(reply) > maxReplyLen {
		reply = reply[:maxReplyLen] + "\n\n[truncated]"
	}

	return c.Send(reply)
}

func chatUserID(chatID int64) string {
	return "tg-" + strconv.FormatInt(chatID, 10)
}

// FormatPortfolio renders a stored portfolio document as plain text. A
// document that does not parse is returned verbatim.
func FormatPortfolio(document string) string {
	var doc domain.PortfolioDocument
	if err := json.Unmarshal([]byte(document), &doc); err != nil {
		return document
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Portfolio (%s risk)\n", doc.PortfolioSummary.RiskLevel)
	fmt.Fprintf(&b, "Total investment: %.2f\n", doc.PortfolioSummary.TotalInvestment)
	fmt.Fprintf(&b, "Expected annual return: %.2f%%\n", doc.PortfolioSummary.ExpectedAnnualReturn)
	fmt.Fprintf(&b, "Max drawdown: %.2f%%\n", doc.PortfolioSummary.MaxDrawdown)

	if len(doc.Allocations) > 0 {
		b.WriteString("\nAllocations:\n")
		for _, a := range doc.Allocations {
			fmt.Fprintf(&b, "  %-24s %6.2f%%  (%s)\n", a.Asset, a.AllocationPercentage, a.Sector)
		}
	}
	if len(doc.SectorAllocation) > 0 {
		sectors := make([]string, 0, len(doc.SectorAllocation))
		for sector := range doc.SectorAllocation {
			sectors = append(sectors, sector)
		}
		sort.Strings(sectors)
		b.WriteString("\nSector split:\n")
		for _, sector := range sectors {
			fmt.Fprintf(&b, "  %-24s %6.2f%%\n", sector, doc.SectorAllocation[sector])
		}
	}
	if doc.Strategy != "" {
		b.WriteString("\nStrategy: " + doc.Strategy + "\n")
	}
	return b.String()
}

func formatSnapshot(s domain.MarketSnapshot) string {
	var b strings.Builder
	b.WriteString("Market snapshot\n")
	if s.MarketConditions.MarketState != "" {
		fmt.Fprintf(&b, "State: %s\n", s.MarketConditions.MarketState)
	}
	if s.MarketConditions.VolatilityIndex != nil {
		fmt.Fprintf(&b, "VIX: %.2f\n", *s.MarketConditions.VolatilityIndex)
	}
	fmt.Fprintf(&b, "News sentiment: %.2f\n", s.SentimentAnalysis.NewsSentimentScore)

	if len(s.SectorData) > 0 {
		sectors := make([]string, 0, len(s.SectorData))
		for sector := range s.SectorData {
			sectors = append(sectors, sector)
		}
		sort.Strings(sectors)
		b.WriteString("\nSectors:\n")
		for _, sector := range sectors {
			stats := s.SectorData[sector]
			fmt.Fprintf(&b, "  %-28s %+6.2f%% (%s)\n", sector, stats.Performance, stats.Trend)
		}
	}
	if len(s.CommodityPrices) > 0 {
		names := make([]string, 0, len(s.CommodityPrices))
		for name := range s.CommodityPrices {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("\nCommodities:\n")
		for _, name := range names {
			fmt.Fprintf(&b, "  %-12s %.2f\n", name, s.CommodityPrices[name])
		}
	}
	return b.String()
}

func parseDigestMode(args []string) (string, error) {
	if len(args) == 0 {
		return "status", nil
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "on":
		return "on", nil
	case "off":
		return "off", nil
	case "status":
		return "status", nil
	default:
		return "", fmt.Errorf("invalid mode")
	}
}
