package provider

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cortexeval/cortex-router/internal/circuitbreaker"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaProvider runs against a local Ollama server through its
// OpenAI-compatible /v1 endpoint. It is the designated local provider for
// the "--local" intent and needs no API key. Fast lane, tight context
// budget: local models get the smallest slice of the codebase.
type OllamaProvider struct {
	name    string
	model   string
	client  *openai.Client
	breaker *circuitbreaker.CircuitBreaker
}

func NewOllamaProvider(settings Settings) *OllamaProvider {
	cfg := settings.Breaker
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}

	base := strings.TrimSuffix(orDefault(settings.BaseURL, defaultOllamaBaseURL), "/")

	return &OllamaProvider{
		name:    "ollama",
		model:   orDefault(settings.Model, "llama3"),
		client:  newOpenAIClient("ollama", base+"/v1"),
		breaker: circuitbreaker.NewCircuitBreaker("ollama", cfg),
	}
}

func (p *OllamaProvider) Name() string                            { return p.name }
func (p *OllamaProvider) Lane() Lane                              { return LaneFast }
func (p *OllamaProvider) Breaker() *circuitbreaker.CircuitBreaker { return p.breaker }

func (p *OllamaProvider) AnalyzeCode(ctx context.Context, codebase map[string]string, req AnalysisRequest) (*AnalysisResult, error) {
	var result *AnalysisResult

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf("Analyze:\n\n%s\n\nInput: %s", codeContext(codebase, 3, 1500), req.Query)

		text, err := chatText(ctx, p.client, openai.ChatCompletionRequest{
			Model:     p.model,
			MaxTokens: 1024,
			Messages: []openai.ChatCompletionMessage{
				systemMessage(orDefault(req.SystemDoc, "You are a code analyst.")),
				userMessage(prompt),
			},
		})
		if err != nil {
			return fmt.Errorf("ollama analyze: %w", err)
		}

		result = &AnalysisResult{Success: true, Result: text, Provider: p.name, Model: p.model}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (p *OllamaProvider) Brainstorm(ctx context.Context, topic string, constraints []string) ([]Idea, error) {
	var ideas []Idea

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf("Brainstorm 5 ideas for: %s\n\nConstraints:\n%s", topic, constraintList(constraints))

		text, err := chatText(ctx, p.client, openai.ChatCompletionRequest{
			Model:     p.model,
			MaxTokens: 512,
			Messages:  []openai.ChatCompletionMessage{userMessage(prompt)},
		})
		if err != nil {
			return fmt.Errorf("ollama brainstorm: %w", err)
		}

		ideas = parseIdeaLines(text, 5)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ideas, nil
}

func (p *OllamaProvider) ExpandIdea(ctx context.Context, idea, ideaContext string) (*Expansion, error) {
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
			return fmt.Errorf("ollama expand: %w", err)
		}

		expansion = parseExpansionText(text, idea)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return expansion, nil
}

func (p *OllamaProvider) ConnectIdeas(ctx context.Context, ideaA, ideaB, relationship string) (*ConnectionAnalysis, error) {
	var conn *ConnectionAnalysis

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf(`Analyze the connection between these two ideas:

IDEA A: %s
IDEA B: %s

Provide:
SYNERGY: How well do these ideas work together?
CONFLICTS: Any potential conflicts? (or "None")
COMPLEMENTARY: List ways they complement each other (starting with -)
INTEGRATION: How to best combine them
VALID: Is this logical? (true/false)
BRIDGE: A concept that bridges both ideas`, ideaA, ideaB)

		text, err := chatText(ctx, p.client, openai.ChatCompletionRequest{
			Model:     p.model,
			MaxTokens: 512,
			Messages:  []openai.ChatCompletionMessage{userMessage(prompt)},
		})
		if err != nil {
			return fmt.Errorf("ollama connect: %w", err)
		}

		conn = parseConnectionText(text)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return conn, nil
}
