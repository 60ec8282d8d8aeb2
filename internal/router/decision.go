package router

import (
	"strings"

	"github.com/cortexeval/cortex-router/internal/provider"
)

// LargeContextThreshold is the input size (characters across all supplied
// context) beyond which requests are forced to the smart lane.
const LargeContextThreshold = 100_000

// LocalProviderName is the fast-lane provider selected by IntentLocal.
const LocalProviderName = "ollama"

// Intent is the user's explicit routing preference. It never overrides a
// hard capability constraint.
type Intent string

const (
	IntentNone   Intent = ""
	IntentStrong Intent = "strong"
	IntentLocal  Intent = "local"
	IntentCheap  Intent = "cheap"
)

// ParseIntent normalizes an intent string, tolerating the CLI flag form
// ("--strong"). Unknown values map to IntentNone.
func ParseIntent(s string) Intent {
	switch Intent(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "--")) {
	case IntentStrong:
		return IntentStrong
	case IntentLocal:
		return IntentLocal
	case IntentCheap:
		return IntentCheap
	default:
		return IntentNone
	}
}

// Decision is the router's initial pick: which provider to try first, which
// lane drives the fallback order, and why. The reason is for logs and tests
// only, never control flow.
type Decision struct {
	Provider provider.Provider
	Lane     provider.Lane
	Reason   string
}

// Decide selects the starting lane and provider. Rules are evaluated in
// strict phase order and the first match wins: hard capability constraints,
// then user intent, then the default fast lane.
func (r *Router) Decide(sizeEstimate int, needsVision bool, intent Intent) Decision {
	// Phase 1: hard constraints.
	if sizeEstimate > LargeContextThreshold {
		return Decision{
			Provider: r.smartLane[0],
			Lane:     provider.LaneSmart,
			Reason:   "large context requires smart lane",
		}
	}

	if needsVision {
		// No fast-lane provider handles multimodal input.
		return Decision{
			Provider: r.smartLane[0],
			Lane:     provider.LaneSmart,
			Reason:   "vision capability required",
		}
	}

	// Phase 2: user intent.
	switch intent {
	case IntentStrong:
		return Decision{
			Provider: r.smartLane[0],
			Lane:     provider.LaneSmart,
			Reason:   "user requested strong analysis",
		}

	case IntentLocal:
		for _, p := range r.fastLane {
			if p.Name() == LocalProviderName {
				return Decision{
					Provider: p,
					Lane:     provider.LaneFast,
					Reason:   "user requested local provider",
				}
			}
		}
		// Local provider not configured: fall through to the default.

	case IntentCheap:
		return Decision{
			Provider: r.fastLane[0],
			Lane:     provider.LaneFast,
			Reason:   "user requested cheap provider",
		}
	}

	// Phase 3: default.
	return Decision{
		Provider: r.fastLane[0],
		Lane:     provider.LaneFast,
		Reason:   "default fast lane",
	}
}
