package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cortexeval/cortex-router/internal/circuitbreaker"
)

const (
	anthropicAPIVersion     = "2023-06-01"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
)

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Error   *anthropicError    `json:"error,omitempty"`
}

// ClaudeProvider talks to the Anthropic Messages API directly over HTTP.
// Smart lane; gets the largest slice of the codebase.
type ClaudeProvider struct {
	name       string
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

func NewClaudeProvider(settings Settings) *ClaudeProvider {
	cfg := settings.Breaker
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}

	return &ClaudeProvider{
		name:       "claude",
		model:      orDefault(settings.Model, "claude-3-opus-20240229"),
		apiKey:     settings.APIKey,
		baseURL:    strings.TrimSuffix(orDefault(settings.BaseURL, defaultAnthropicBaseURL), "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		breaker:    circuitbreaker.NewCircuitBreaker("claude", cfg),
	}
}

func (p *ClaudeProvider) Name() string                            { return p.name }
func (p *ClaudeProvider) Lane() Lane                              { return LaneSmart }
func (p *ClaudeProvider) Breaker() *circuitbreaker.CircuitBreaker { return p.breaker }

// message sends one user turn and returns the first text block of the reply.
func (p *ClaudeProvider) message(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     p.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	res, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read anthropic response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic status %d: %s", res.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded anthropicResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("anthropic error %s: %s", decoded.Error.Type, decoded.Error.Message)
	}
	if len(decoded.Content) == 0 {
		return "", fmt.Errorf("anthropic returned no content blocks")
	}

	return decoded.Content[0].Text, nil
}

func (p *ClaudeProvider) AnalyzeCode(ctx context.Context, codebase map[string]string, req AnalysisRequest) (*AnalysisResult, error) {
	var result *AnalysisResult

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf(
			"Analyze this codebase:\n\n%s\n\nUser input: %s\n\nProvide comprehensive analysis including strengths, weaknesses, and recommendations.",
			codeContext(codebase, 10, 3000), req.Query)

		text, err := p.message(ctx, orDefault(req.SystemDoc, "You are an expert code analyst."), prompt, 4096)
		if err != nil {
			return fmt.Errorf("claude analyze: %w", err)
		}

		result = &AnalysisResult{Success: true, Result: text, Provider: p.name, Model: p.model}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (p *ClaudeProvider) Brainstorm(ctx context.Context, topic string, constraints []string) ([]Idea, error) {
	var ideas []Idea

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf(`Brainstorm innovative ideas for: %s

Constraints:
%s

Provide 5 distinct ideas. Format as:
1. Idea Title
   [2-3 sentence description]

2. Idea Title
   [2-3 sentence description]`, topic, constraintList(constraints))

		text, err := p.message(ctx, "", prompt, 2048)
		if err != nil {
			return fmt.Errorf("claude brainstorm: %w", err)
		}

		ideas = parseIdeaBlocks(text, 5)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ideas, nil
}

func (p *ClaudeProvider) ExpandIdea(ctx context.Context, idea, ideaContext string) (*Expansion, error) {
	var expansion *Expansion

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf(`Expand on this idea with detailed analysis:

Idea: %s
%s
Provide a structured response in JSON format with:
- title: A clear title summarizing the expanded idea
- description: A detailed description (2-3 paragraphs) exploring the idea
- considerations: An array of 3-5 key considerations or potential challenges
- nextSteps: An array of 3-5 concrete next steps for implementation

Return ONLY valid JSON, no other text.`, idea, contextLine(ideaContext))

		text, err := p.message(ctx, "", prompt, 2048)
		if err != nil {
			return fmt.Errorf("claude expand: %w", err)
		}

		expansion = decodeExpansionJSON(text, idea)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return expansion, nil
}

func (p *ClaudeProvider) ConnectIdeas(ctx context.Context, ideaA, ideaB, relationship string) (*ConnectionAnalysis, error) {
	var conn *ConnectionAnalysis

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf(`Analyze the connection between these two ideas and return JSON:

IDEA A: %s
IDEA B: %s
RELATIONSHIP TYPE: %s

Return a JSON object with:
- synergy: How well do these ideas work together? (string)
- conflicts: Any potential conflicts? (string, or "None")
- complementary_aspects: Array of ways they complement each other
- integration_approach: How to best combine them (string)
- isValid: Is this a logical connection? (boolean)
- bridgeConcept: A concept that bridges both ideas (string)

Return ONLY valid JSON.`, ideaA, ideaB, relationship)

		text, err := p.message(ctx, "", prompt, 1024)
		if err != nil {
			return fmt.Errorf("claude connect: %w", err)
		}

		conn = decodeConnectionJSON(text, ideaA, ideaB)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return conn, nil
}
