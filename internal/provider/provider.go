package provider

import (
	"context"

	"github.com/cortexeval/cortex-router/internal/circuitbreaker"
)

type Lane int

const (
	LaneFast  Lane = iota // cheap, low-latency providers
	LaneSmart             // high-capability, high-cost providers
)

func (l Lane) String() string {
	switch l {
	case LaneFast:
		return "fast"
	case LaneSmart:
		return "smart"
	default:
		return "unknown"
	}
}

// AnalysisRequest carries the user-facing inputs of a code analysis call.
type AnalysisRequest struct {
	Query     string
	SystemDoc string
	HasVision bool
}

// AnalysisResult is the minimal shape the router inspects. Vendor-specific
// richer fields pass through in Result opaquely.
type AnalysisResult struct {
	Success  bool   `json:"success"`
	Result   string `json:"result"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type Idea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Expansion struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Considerations []string `json:"considerations"`
	NextSteps      []string `json:"nextSteps"`
}

type ConnectionAnalysis struct {
	Synergy              string   `json:"synergy"`
	Conflicts            string   `json:"conflicts"`
	ComplementaryAspects []string `json:"complementary_aspects"`
	IntegrationApproach  string   `json:"integration_approach"`
	IsValid              bool     `json:"isValid"`
	BridgeConcept        string   `json:"bridgeConcept"`
}

// Provider is one AI-capability backend. Every operation goes through the
// provider's own circuit breaker before the vendor call executes, and each
// provider normalizes malformed vendor output into a best-effort result or
// an explicit error.
type Provider interface {
	Name() string
	Lane() Lane
	Breaker() *circuitbreaker.CircuitBreaker

	AnalyzeCode(ctx context.Context, codebase map[string]string, req AnalysisRequest) (*AnalysisResult, error)
	Brainstorm(ctx context.Context, topic string, constraints []string) ([]Idea, error)
	ExpandIdea(ctx context.Context, idea, ideaContext string) (*Expansion, error)
	ConnectIdeas(ctx context.Context, ideaA, ideaB, relationship string) (*ConnectionAnalysis, error)
}

// Settings holds the connection parameters for one vendor, mapped from
// configuration at construction time.
type Settings struct {
	APIKey  string
	BaseURL string
	Model   string
	Breaker circuitbreaker.Config
}
