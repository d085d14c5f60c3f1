package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/tatianab/narrator/internal/engine"
)

// FailureKind classifies a failed narrative pass.
type FailureKind string

const (
	FailureCommunication FailureKind = "communication"
	FailureCredentials   FailureKind = "credentials"
	FailureTimeout       FailureKind = "timeout"
	FailureRateLimit     FailureKind = "rate_limit"
	FailureGeneric       FailureKind = "generic"
)

var failureMessages = map[FailureKind]string{
	FailureCommunication: "The narrator cannot be reached right now. Please try again in a moment.",
	FailureCredentials:   "The narrator could not sign in to the story service. Check the API key and try again.",
	FailureTimeout:       "The narrator took too long to answer. Please try again.",
	FailureRateLimit:     "The narrator is getting too many requests. Wait a moment and try again.",
	FailureGeneric:       "Something went wrong while narrating that. Please try again.",
}

// Text markers checked when an error carries no typed class.
var failureMarkers = []struct {
	kind    FailureKind
	markers []string
}{
	{FailureCredentials, []string{"api key", "apikey", "unauthorized", "unauthenticated", "permission denied", "credential"}},
	{FailureRateLimit, []string{"rate limit", "quota", "too many requests", "resource exhausted"}},
	{FailureTimeout, []string{"timeout", "timed out", "deadline"}},
	{FailureCommunication, []string{"connection", "network", "unreachable", "unavailable", "no such host"}},
}

// ClassifyFailure maps a generation error to a FailureKind.
func ClassifyFailure(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, engine.ErrCredentials):
		return FailureCredentials
	case errors.Is(err, engine.ErrRateLimited):
		return FailureRateLimit
	case errors.Is(err, engine.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, engine.ErrUnavailable):
		return FailureCommunication
	}

	msg := strings.ToLower(err.Error())
	for _, fm := range failureMarkers {
		for _, m := range fm.markers {
			if strings.Contains(msg, m) {
				return fm.kind
			}
		}
	}
	return FailureGeneric
}

// FailureMessage is the narrative shown to the player for kind.
func FailureMessage(kind FailureKind) string {
	if msg, ok := failureMessages[kind]; ok {
		return msg
	}
	return failureMessages[FailureGeneric]
}
