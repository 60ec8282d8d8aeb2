package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cortexeval/cortex-router/internal/circuitbreaker"
)

// chatCompletionFake serves the OpenAI chat completions wire format with a
// fixed reply, counting the requests it receives.
func chatCompletionFake(reply string, status int, hits *atomic.Int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}

		if status != http.StatusOK {
			http.Error(w, "upstream exploded", status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	}))
}

var _ = Describe("GroqProvider", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should use defaults for model and lane", func() {
		p := NewGroqProvider(Settings{APIKey: "gsk-test"})
		Expect(p.Name()).To(Equal("groq"))
		Expect(p.Lane()).To(Equal(LaneFast))
		Expect(p.model).To(Equal("llama3-70b-8192"))
	})

	It("should return a populated analysis result", func() {
		srv := chatCompletionFake("the code looks fine", http.StatusOK, nil)
		defer srv.Close()

		p := NewGroqProvider(Settings{APIKey: "gsk-test", BaseURL: srv.URL})
		result, err := p.AnalyzeCode(ctx, map[string]string{"main.go": "package main"}, AnalysisRequest{Query: "review"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Success).To(BeTrue())
		Expect(result.Result).To(Equal("the code looks fine"))
		Expect(result.Provider).To(Equal("groq"))
		Expect(result.Model).To(Equal("llama3-70b-8192"))
	})

	It("should parse brainstorm output line by line", func() {
		srv := chatCompletionFake("Rate limiting: protect the API\nBulkheads: isolate failures", http.StatusOK, nil)
		defer srv.Close()

		p := NewGroqProvider(Settings{APIKey: "gsk-test", BaseURL: srv.URL})
		ideas, err := p.Brainstorm(ctx, "resilience", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(ideas).To(HaveLen(2))
		Expect(ideas[0].Title).To(Equal("Rate limiting"))
	})

	It("should surface vendor errors wrapped with the operation", func() {
		srv := chatCompletionFake("", http.StatusInternalServerError, nil)
		defer srv.Close()

		p := NewGroqProvider(Settings{APIKey: "gsk-test", BaseURL: srv.URL})
		_, err := p.AnalyzeCode(ctx, nil, AnalysisRequest{})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("groq analyze"))
	})

	It("should stop calling the vendor once the breaker opens", func() {
		var hits atomic.Int64
		srv := chatCompletionFake("", http.StatusInternalServerError, &hits)
		defer srv.Close()

		p := NewGroqProvider(Settings{
			APIKey:  "gsk-test",
			BaseURL: srv.URL,
			Breaker: circuitbreaker.Config{FailureThreshold: 2, Timeout: time.Minute},
		})

		_, err := p.AnalyzeCode(ctx, nil, AnalysisRequest{})
		Expect(err).To(HaveOccurred())
		_, err = p.AnalyzeCode(ctx, nil, AnalysisRequest{})
		Expect(err).To(HaveOccurred())
		Expect(p.Breaker().State()).To(Equal(circuitbreaker.StateOpen))

		_, err = p.AnalyzeCode(ctx, nil, AnalysisRequest{})
		var openErr *circuitbreaker.OpenError
		Expect(errors.As(err, &openErr)).To(BeTrue())
		Expect(hits.Load()).To(Equal(int64(2)))
	})
})

var _ = Describe("OpenAIProvider", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should use defaults for model and lane", func() {
		p := NewOpenAIProvider(Settings{APIKey: "sk-test"})
		Expect(p.Name()).To(Equal("openai"))
		Expect(p.Lane()).To(Equal(LaneSmart))
		Expect(p.model).To(Equal("gpt-4o"))
	})

	It("should decode a wrapped ideas object from JSON mode", func() {
		srv := chatCompletionFake(`{"ideas":[{"title":"A","description":"a"},{"title":"B","description":"b"}]}`, http.StatusOK, nil)
		defer srv.Close()

		p := NewOpenAIProvider(Settings{APIKey: "sk-test", BaseURL: srv.URL})
		ideas, err := p.Brainstorm(ctx, "topic", []string{"constraint"})
		Expect(err).NotTo(HaveOccurred())
		Expect(ideas).To(HaveLen(2))
		Expect(ideas[1].Title).To(Equal("B"))
	})

	It("should decode a bare ideas array from JSON mode", func() {
		srv := chatCompletionFake(`[{"title":"A","description":"a"}]`, http.StatusOK, nil)
		defer srv.Close()

		p := NewOpenAIProvider(Settings{APIKey: "sk-test", BaseURL: srv.URL})
		ideas, err := p.Brainstorm(ctx, "topic", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(ideas).To(HaveLen(1))
	})
})

var _ = Describe("OllamaProvider", func() {
	It("should use local defaults and need no API key", func() {
		p := NewOllamaProvider(Settings{})
		Expect(p.Name()).To(Equal("ollama"))
		Expect(p.Lane()).To(Equal(LaneFast))
		Expect(p.model).To(Equal("llama3"))
	})

	It("should answer through a local OpenAI-compatible endpoint", func() {
		srv := chatCompletionFake("local answer", http.StatusOK, nil)
		defer srv.Close()

		p := NewOllamaProvider(Settings{BaseURL: srv.URL})
		result, err := p.AnalyzeCode(context.Background(), map[string]string{"a.go": "x"}, AnalysisRequest{Query: "q"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Result).To(Equal("local answer"))
		Expect(result.Provider).To(Equal("ollama"))
	})
})

var _ = Describe("ClaudeProvider", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	anthropicFake := func(reply string, capture *http.Header) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if capture != nil {
				*capture = r.Header.Clone()
			}

			Expect(r.URL.Path).To(Equal("/v1/messages"))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"content": []map[string]any{{"type": "text", "text": reply}},
			})
		}))
	}

	It("should use defaults for model and lane", func() {
		p := NewClaudeProvider(Settings{APIKey: "sk-ant"})
		Expect(p.Name()).To(Equal("claude"))
		Expect(p.Lane()).To(Equal(LaneSmart))
		Expect(p.model).To(Equal("claude-3-opus-20240229"))
	})

	It("should send the API key and version headers", func() {
		var headers http.Header
		srv := anthropicFake("deep analysis", &headers)
		defer srv.Close()

		p := NewClaudeProvider(Settings{APIKey: "sk-ant-test", BaseURL: srv.URL})
		result, err := p.AnalyzeCode(ctx, map[string]string{"a.go": "x"}, AnalysisRequest{Query: "q"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Result).To(Equal("deep analysis"))
		Expect(headers.Get("x-api-key")).To(Equal("sk-ant-test"))
		Expect(headers.Get("anthropic-version")).To(Equal("2023-06-01"))
	})

	It("should parse numbered idea blocks", func() {
		srv := anthropicFake("1. First idea\n   With detail.\n\n2. Second idea\n   More detail.", nil)
		defer srv.Close()

		p := NewClaudeProvider(Settings{APIKey: "sk-ant", BaseURL: srv.URL})
		ideas, err := p.Brainstorm(ctx, "topic", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(ideas).To(HaveLen(2))
		Expect(ideas[0].Title).To(Equal("First idea"))
	})

	It("should report non-200 responses as errors", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":{"type":"overloaded_error","message":"busy"}}`, http.StatusTooManyRequests)
		}))
		defer srv.Close()

		p := NewClaudeProvider(Settings{APIKey: "sk-ant", BaseURL: srv.URL})
		_, err := p.AnalyzeCode(ctx, nil, AnalysisRequest{})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("429"))
	})

	It("should wrap raw text replies into an expansion", func() {
		srv := anthropicFake("not json, just prose", nil)
		defer srv.Close()

		p := NewClaudeProvider(Settings{APIKey: "sk-ant", BaseURL: srv.URL})
		exp, err := p.ExpandIdea(ctx, "my idea", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(exp.Title).To(Equal("my idea"))
		Expect(exp.Description).To(Equal("not json, just prose"))
	})
})

var _ = Describe("GeminiProvider", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	geminiFake := func(reply string, capture *string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if capture != nil {
				*capture = r.URL.String()
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"candidates": []map[string]any{
					{"content": map[string]any{"parts": []map[string]any{{"text": reply}}}},
				},
			})
		}))
	}

	It("should use defaults for model and lane", func() {
		p := NewGeminiProvider(Settings{APIKey: "g-test"})
		Expect(p.Name()).To(Equal("gemini"))
		Expect(p.Lane()).To(Equal(LaneFast))
		Expect(p.model).To(Equal("gemini-1.5-pro"))
	})

	It("should address the model endpoint with the API key", func() {
		var url string
		srv := geminiFake("fast answer", &url)
		defer srv.Close()

		p := NewGeminiProvider(Settings{APIKey: "g-test", BaseURL: srv.URL})
		result, err := p.AnalyzeCode(ctx, map[string]string{"a.go": "x"}, AnalysisRequest{Query: "q"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Result).To(Equal("fast answer"))
		Expect(url).To(ContainSubstring("/v1beta/models/gemini-1.5-pro:generateContent"))
		Expect(url).To(ContainSubstring("key=g-test"))
	})

	It("should report an embedded error object", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": 429, "message": "quota exceeded"},
			})
		}))
		defer srv.Close()

		p := NewGeminiProvider(Settings{APIKey: "g-test", BaseURL: srv.URL})
		_, err := p.AnalyzeCode(ctx, nil, AnalysisRequest{})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("quota exceeded"))
	})
})
