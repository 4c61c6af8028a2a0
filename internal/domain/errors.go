package domain

import "errors"

var (
	// ErrNoStructuredOutput means the agent response held no extractable
	// {...} span on a turn that required one.
	ErrNoStructuredOutput = errors.New("no JSON found in agent response")

	// ErrAgentUnavailable means the agent retry budget was exhausted.
	ErrAgentUnavailable = errors.New("agent unavailable after retries")

	// ErrSessionNotFound means no persisted document exists for the
	// requested (user, session) key.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidRequest marks caller mistakes: missing identifiers, an
	// incomplete profile, a follow-up without a message.
	ErrInvalidRequest = errors.New("invalid request")
)
