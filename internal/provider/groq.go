package provider

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cortexeval/cortex-router/internal/circuitbreaker"
)

const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

// GroqProvider talks to Groq's OpenAI-compatible endpoint. Fast lane; the
// hosted models return loosely formatted text, so responses are parsed with
// the forgiving section parsers.
type GroqProvider struct {
	name    string
	model   string
	client  *openai.Client
	breaker *circuitbreaker.CircuitBreaker
}

func NewGroqProvider(settings Settings) *GroqProvider {
	cfg := settings.Breaker
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	return &GroqProvider{
		name:    "groq",
		model:   orDefault(settings.Model, "llama3-70b-8192"),
		client:  newOpenAIClient(settings.APIKey, orDefault(settings.BaseURL, defaultGroqBaseURL)),
		breaker: circuitbreaker.NewCircuitBreaker("groq", cfg),
	}
}

func (p *GroqProvider) Name() string                            { return p.name }
func (p *GroqProvider) Lane() Lane                              { return LaneFast }
func (p *GroqProvider) Breaker() *circuitbreaker.CircuitBreaker { return p.breaker }

func (p *GroqProvider) AnalyzeCode(ctx context.Context, codebase map[string]string, req AnalysisRequest) (*AnalysisResult, error) {
	var result *AnalysisResult

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf("Analyze:\n\n%s\n\nInput: %s", codeContext(codebase, 5, 2000), req.Query)

		text, err := chatText(ctx, p.client, openai.ChatCompletionRequest{
			Model:     p.model,
			MaxTokens: 2048,
			Messages: []openai.ChatCompletionMessage{
				systemMessage(orDefault(req.SystemDoc, "You are an expert code analyst.")),
				userMessage(prompt),
			},
		})
		if err != nil {
			return fmt.Errorf("groq analyze: %w", err)
		}

		result = &AnalysisResult{Success: true, Result: text, Provider: p.name, Model: p.model}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (p *GroqProvider) Brainstorm(ctx context.Context, topic string, constraints []string) ([]Idea, error) {
	var ideas []Idea

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf("Brainstorm 5 ideas for: %s\n\nConstraints:\n%s", topic, constraintList(constraints))

		text, err := chatText(ctx, p.client, openai.ChatCompletionRequest{
			Model:     p.model,
			MaxTokens: 1024,
			Messages:  []openai.ChatCompletionMessage{userMessage(prompt)},
		})
		if err != nil {
			return fmt.Errorf("groq brainstorm: %w", err)
		}

		ideas = parseIdeaLines(text, 5)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ideas, nil
}

func (p *GroqProvider) ExpandIdea(ctx context.Context, idea, ideaContext string) (*Expansion, error) {
	var expansion *Expansion

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf(`Expand on this idea with detailed analysis:

Idea: %s
%s
Provide:
1. TITLE: A clear title
2. DESCRIPTION: A detailed description (2-3 paragraphs)
3. CONSIDERATIONS: 3-5 key considerations (one per line, starting with -)
4. NEXT STEPS: 3-5 concrete next steps (one per line, starting with -)`, idea, contextLine(ideaContext))

		text, err := chatText(ctx, p.client, openai.ChatCompletionRequest{
			Model:     p.model,
			MaxTokens: 1024,
			Messages:  []openai.ChatCompletionMessage{userMessage(prompt)},
		})
		if err != nil {
			return fmt.Errorf("groq expand: %w", err)
		}

		expansion = parseExpansionText(text, idea)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return expansion, nil
}

func (p *GroqProvider) ConnectIdeas(ctx context.Context, ideaA, ideaB, relationship string) (*ConnectionAnalysis, error) {
	var conn *ConnectionAnalysis

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf(`Analyze the connection between these two ideas:

Idea A: %s
Idea B: %s
Relationship type: %s

Provide analysis in this exact format:
SYNERGY: How these ideas complement each other
CONFLICTS: Potential tensions or contradictions
COMPLEMENTARY_ASPECTS: List 3-5 ways they complement (one per line, starting with -)
INTEGRATION_APPROACH: How to combine them effectively
IS_VALID: true or false - is this a logical connection?
BRIDGE_CONCEPT: A concept that links both ideas together`, ideaA, ideaB, relationship)

		text, err := chatText(ctx, p.client, openai.ChatCompletionRequest{
			Model:     p.model,
			MaxTokens: 1024,
			Messages:  []openai.ChatCompletionMessage{userMessage(prompt)},
		})
		if err != nil {
			return fmt.Errorf("groq connect: %w", err)
		}

		conn = parseConnectionText(text)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return conn, nil
}
