package provider

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cortexeval/cortex-router/internal/circuitbreaker"
)

// OpenAIProvider talks to the OpenAI chat completions API. It sits in the
// smart lane and uses the JSON response mode for structured operations.
type OpenAIProvider struct {
	name    string
	model   string
	client  *openai.Client
	breaker *circuitbreaker.CircuitBreaker
}

func NewOpenAIProvider(settings Settings) *OpenAIProvider {
	cfg := settings.Breaker
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	return &OpenAIProvider{
		name:    "openai",
		model:   orDefault(settings.Model, "gpt-4o"),
		client:  newOpenAIClient(settings.APIKey, settings.BaseURL),
		breaker: circuitbreaker.NewCircuitBreaker("openai", cfg),
	}
}

func (p *OpenAIProvider) Name() string                            { return p.name }
func (p *OpenAIProvider) Lane() Lane                              { return LaneSmart }
func (p *OpenAIProvider) Breaker() *circuitbreaker.CircuitBreaker { return p.breaker }

func (p *OpenAIProvider) AnalyzeCode(ctx context.Context, codebase map[string]string, req AnalysisRequest) (*AnalysisResult, error) {
	var result *AnalysisResult

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf("Analyze this codebase:\n\n%s\n\nUser input: %s",
			codeContext(codebase, 5, 2000), req.Query)

		text, err := chatText(ctx, p.client, openai.ChatCompletionRequest{
			Model:     p.model,
			MaxTokens: 2048,
			Messages: []openai.ChatCompletionMessage{
				systemMessage(orDefault(req.SystemDoc, "You are an expert code analyst.")),
				userMessage(prompt),
			},
		})
		if err != nil {
			return fmt.Errorf("openai analyze: %w", err)
		}

		result = &AnalysisResult{Success: true, Result: text, Provider: p.name, Model: p.model}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (p *OpenAIProvider) Brainstorm(ctx context.Context, topic string, constraints []string) ([]Idea, error) {
	var ideas []Idea

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf(
			"Brainstorm ideas for: %s\n\nConstraints:\n%s\n\nGenerate 5 ideas as a JSON object with an 'ideas' array of objects carrying 'title' and 'description' fields.",
			topic, constraintList(constraints))

		text, err := chatText(ctx, p.client, openai.ChatCompletionRequest{
			Model:    p.model,
			Messages: []openai.ChatCompletionMessage{userMessage(prompt)},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return fmt.Errorf("openai brainstorm: %w", err)
		}

		ideas, err = decodeIdeaJSON(text)
		if err != nil {
			return fmt.Errorf("openai brainstorm response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ideas, nil
}

func (p *OpenAIProvider) ExpandIdea(ctx context.Context, idea, ideaContext string) (*Expansion, error) {
	var expansion *Expansion

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf(`Expand on this idea with detailed analysis:

Idea: %s
%s
Provide a structured JSON response with:
- title: A clear title summarizing the expanded idea
- description: A detailed description (2-3 paragraphs) exploring the idea
- considerations: An array of 3-5 key considerations or potential challenges
- nextSteps: An array of 3-5 concrete next steps for implementation`, idea, contextLine(ideaContext))

		text, err := chatText(ctx, p.client, openai.ChatCompletionRequest{
			Model:     p.model,
			MaxTokens: 2048,
			Messages:  []openai.ChatCompletionMessage{userMessage(prompt)},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return fmt.Errorf("openai expand: %w", err)
		}

		expansion = decodeExpansionJSON(text, idea)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return expansion, nil
}

func (p *OpenAIProvider) ConnectIdeas(ctx context.Context, ideaA, ideaB, relationship string) (*ConnectionAnalysis, error) {
	var conn *ConnectionAnalysis

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf(`Analyze the connection between these two ideas:

IDEA A: %s
IDEA B: %s
RELATIONSHIP TYPE: %s

Return a JSON object with:
- synergy: How well do these ideas work together? (string)
- conflicts: Any potential conflicts? (string, or "None")
- complementary_aspects: Array of ways they complement each other
- integration_approach: How to best combine them (string)
- isValid: Is this a logical connection? (boolean)
- bridgeConcept: A concept that bridges both ideas (string)`, ideaA, ideaB, relationship)

		text, err := chatText(ctx, p.client, openai.ChatCompletionRequest{
			Model:     p.model,
			MaxTokens: 1024,
			Messages:  []openai.ChatCompletionMessage{userMessage(prompt)},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return fmt.Errorf("openai connect: %w", err)
		}

		conn = decodeConnectionJSON(text, ideaA, ideaB)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// decodeIdeaJSON accepts either a bare JSON array of ideas or an object
// wrapping one under "ideas".
func decodeIdeaJSON(text string) ([]Idea, error) {
	var wrapped struct {
		Ideas []Idea `json:"ideas"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err == nil && wrapped.Ideas != nil {
		return wrapped.Ideas, nil
	}

	var ideas []Idea
	if err := json.Unmarshal([]byte(text), &ideas); err != nil {
		return nil, fmt.Errorf("not an idea list: %w", err)
	}
	return ideas, nil
}

func contextLine(ideaContext string) string {
	if ideaContext == "" {
		return ""
	}
	return fmt.Sprintf("Context: %s\n", ideaContext)
}
