package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"portfolio-advisor/internal/domain"
)

type marketSnapshotInput struct{}

type marketSnapshotOutput struct {
	Snapshot domain.MarketSnapshot `json:"snapshot"`
}

type sectorTickersInput struct{}

type sectorTickersOutput struct {
	Sectors map[string][]string `json:"sectors"`
}

type portfolioGetInput struct {
	UserID    string `json:"user_id" jsonschema:"user identifier owning the session"`
	SessionID string `json:"session_id" jsonschema:"portfolio session identifier"`
}

type portfolioGetOutput struct {
	Portfolio json.RawMessage `json:"portfolio"`
}

type advisorChatInput struct {
	UserID    string              `json:"user_id" jsonschema:"user identifier owning the session"`
	SessionID string              `json:"session_id" jsonschema:"portfolio session identifier"`
	Message   string              `json:"message,omitempty" jsonschema:"follow-up message for an existing session"`
	Profile   *domain.UserProfile `json:"profile,omitempty" jsonschema:"investor profile, required on a session's first turn"`
}

type advisorChatOutput struct {
	IsJSON   int    `json:"is_json"`
	Response string `json:"response"`
}

func normalizeID(name, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	if strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return "", fmt.Errorf("invalid %s: %s", name, id)
	}
	return id, nil
}
