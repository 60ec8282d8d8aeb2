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

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GeminiProvider talks to the Google generative language API over HTTP.
// Fast lane; section-formatted text responses.
type GeminiProvider struct {
	name       string
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

func NewGeminiProvider(settings Settings) *GeminiProvider {
	cfg := settings.Breaker
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	return &GeminiProvider{
		name:       "gemini",
		model:      orDefault(settings.Model, "gemini-1.5-pro"),
		apiKey:     settings.APIKey,
		baseURL:    strings.TrimSuffix(orDefault(settings.BaseURL, defaultGeminiBaseURL), "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		breaker:    circuitbreaker.NewCircuitBreaker("gemini", cfg),
	}
}

func (p *GeminiProvider) Name() string                            { return p.name }
func (p *GeminiProvider) Lane() Lane                              { return LaneFast }
func (p *GeminiProvider) Breaker() *circuitbreaker.CircuitBreaker { return p.breaker }

// generate sends one prompt and returns the first candidate's text.
func (p *GeminiProvider) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini status %d: %s", res.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded geminiResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("gemini error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

func (p *GeminiProvider) AnalyzeCode(ctx context.Context, codebase map[string]string, req AnalysisRequest) (*AnalysisResult, error) {
	var result *AnalysisResult

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf("Analyze this codebase:\n\n%s\n\nUser input: %s",
			codeContext(codebase, 5, 2000), req.Query)

		text, err := p.generate(ctx, prompt)
		if err != nil {
			return fmt.Errorf("gemini analyze: %w", err)
		}

		result = &AnalysisResult{Success: true, Result: text, Provider: p.name, Model: p.model}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (p *GeminiProvider) Brainstorm(ctx context.Context, topic string, constraints []string) ([]Idea, error) {
	var ideas []Idea

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf(`Brainstorm ideas for: %s

Constraints:
%s

Generate 5 ideas, each with a title and 2-3 sentence description.`, topic, constraintList(constraints))

		text, err := p.generate(ctx, prompt)
		if err != nil {
			return fmt.Errorf("gemini brainstorm: %w", err)
		}

		ideas = parseIdeaLines(text, 5)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ideas, nil
}

func (p *GeminiProvider) ExpandIdea(ctx context.Context, idea, ideaContext string) (*Expansion, error) {
	var expansion *Expansion

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf(`Expand on this idea with detailed analysis:

Idea: %s
%s
Provide a structured response with:
1. A clear title summarizing the expanded idea
2. A detailed description (2-3 paragraphs) exploring the idea
3. 3-5 key considerations or potential challenges
4. 3-5 concrete next steps for implementation

Format your response as:
TITLE: [expanded title]
DESCRIPTION: [detailed description]
CONSIDERATIONS:
- [consideration 1]
- [consideration 2]
- [consideration 3]
NEXT STEPS:
- [step 1]
- [step 2]
- [step 3]`, idea, contextLine(ideaContext))

		text, err := p.generate(ctx, prompt)
		if err != nil {
			return fmt.Errorf("gemini expand: %w", err)
		}

		expansion = parseExpansionText(text, idea)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return expansion, nil
}

func (p *GeminiProvider) ConnectIdeas(ctx context.Context, ideaA, ideaB, relationship string) (*ConnectionAnalysis, error) {
	var conn *ConnectionAnalysis

	err := p.breaker.Call(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf(`Analyze the connection between these two ideas:

IDEA A: %s
IDEA B: %s
RELATIONSHIP TYPE: %s

Provide a structured analysis:
1. SYNERGY: How well do these ideas work together? (1-2 sentences)
2. CONFLICTS: Any potential conflicts or contradictions? (1-2 sentences, or "None")
3. COMPLEMENTARY ASPECTS: List 2-3 ways they complement each other
4. INTEGRATION APPROACH: How to best combine or connect them (1-2 sentences)
5. IS VALID: Is this a logical/useful connection? (true/false)
6. BRIDGE CONCEPT: A single concept that bridges both ideas (1 sentence)

Format:
SYNERGY: [text]
CONFLICTS: [text]
COMPLEMENTARY:
- [aspect 1]
- [aspect 2]
INTEGRATION: [text]
VALID: [true/false]
BRIDGE: [bridging concept]`, ideaA, ideaB, relationship)

		text, err := p.generate(ctx, prompt)
		if err != nil {
			return fmt.Errorf("gemini connect: %w", err)
		}

		conn = parseConnectionText(text)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return conn, nil
}
