package healthcheck_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cortexeval/cortex-router/internal/circuitbreaker"
	"github.com/cortexeval/cortex-router/internal/healthcheck"
	"github.com/cortexeval/cortex-router/internal/metrics"
	"github.com/cortexeval/cortex-router/internal/provider"
	"github.com/cortexeval/cortex-router/internal/router"
)

func TestHealthcheck(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Healthcheck Suite")
}

type stubProvider struct {
	name    string
	lane    provider.Lane
	breaker *circuitbreaker.CircuitBreaker
}

func newStub(name string, lane provider.Lane) *stubProvider {
	return &stubProvider{
		name:    name,
		lane:    lane,
		breaker: circuitbreaker.NewCircuitBreaker(name, circuitbreaker.Config{}),
	}
}

func (s *stubProvider) Name() string                            { return s.name }
func (s *stubProvider) Lane() provider.Lane                     { return s.lane }
func (s *stubProvider) Breaker() *circuitbreaker.CircuitBreaker { return s.breaker }

func (s *stubProvider) AnalyzeCode(ctx context.Context, codebase map[string]string, req provider.AnalysisRequest) (*provider.AnalysisResult, error) {
	return &provider.AnalysisResult{Success: true, Result: "ok"}, nil
}

func (s *stubProvider) Brainstorm(ctx context.Context, topic string, constraints []string) ([]provider.Idea, error) {
	return nil, nil
}

func (s *stubProvider) ExpandIdea(ctx context.Context, idea, ideaContext string) (*provider.Expansion, error) {
	return &provider.Expansion{}, nil
}

func (s *stubProvider) ConnectIdeas(ctx context.Context, ideaA, ideaB, relationship string) (*provider.ConnectionAnalysis, error) {
	return &provider.ConnectionAnalysis{}, nil
}

var _ = Describe("Monitor", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		collector *metrics.Collector
		rt        *router.Router
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(64, slog.Default())
		collector.Start(ctx)

		var err error
		rt, err = router.New(slog.Default(),
			[]provider.Provider{newStub("groq", provider.LaneFast)},
			[]provider.Provider{newStub("claude", provider.LaneSmart)},
			collector)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cancel()
	})

	It("should feed breaker state observations to the collector", func() {
		go healthcheck.Monitor(ctx, rt, collector, 10*time.Millisecond, slog.Default())

		Eventually(func() string {
			return collector.Snapshot().Providers["groq"].BreakerState
		}).Should(Equal("CLOSED"))
		Eventually(func() string {
			return collector.Snapshot().Providers["claude"].BreakerState
		}).Should(Equal("CLOSED"))
	})

	It("should observe an opened circuit", func() {
		opened := newStub("gemini", provider.LaneFast)
		opened.breaker = circuitbreaker.NewCircuitBreaker("gemini", circuitbreaker.Config{FailureThreshold: 1})
		opened.breaker.Call(ctx, func(context.Context) error { return context.DeadlineExceeded })

		var err error
		rt, err = router.New(slog.Default(),
			[]provider.Provider{opened},
			[]provider.Provider{newStub("claude", provider.LaneSmart)},
			collector)
		Expect(err).NotTo(HaveOccurred())

		go healthcheck.Monitor(ctx, rt, collector, 10*time.Millisecond, slog.Default())

		Eventually(func() string {
			return collector.Snapshot().Providers["gemini"].BreakerState
		}).Should(Equal("OPEN"))
	})

	It("should stop when the context is cancelled", func() {
		done := make(chan struct{})
		go func() {
			healthcheck.Monitor(ctx, rt, collector, 10*time.Millisecond, slog.Default())
			close(done)
		}()

		cancel()
		Eventually(done).Should(BeClosed())
	})
})
