package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cortexeval/cortex-router/internal/circuitbreaker"
	"github.com/cortexeval/cortex-router/internal/metrics"
	"github.com/cortexeval/cortex-router/internal/provider"
)

// Router owns the two provider lanes and drives routing and fallback.
// Lane membership and ordering are fixed at construction.
type Router struct {
	logger    *slog.Logger
	fastLane  []provider.Provider
	smartLane []provider.Provider
	collector *metrics.Collector
}

// New builds a Router over the given lanes. Both lanes need at least one
// provider and names must be unique across the router.
func New(logger *slog.Logger, fast, smart []provider.Provider, collector *metrics.Collector) (*Router, error) {
	if len(fast) == 0 {
		return nil, errors.New("fast lane needs at least one provider")
	}
	if len(smart) == 0 {
		return nil, errors.New("smart lane needs at least one provider")
	}

	seen := make(map[string]bool, len(fast)+len(smart))
	for _, p := range append(append([]provider.Provider{}, fast...), smart...) {
		if seen[p.Name()] {
			return nil, fmt.Errorf("duplicate provider name %q", p.Name())
		}
		seen[p.Name()] = true
	}

	logger.Info("Router initialized",
		slog.Int("fast_lane", len(fast)),
		slog.Int("smart_lane", len(smart)))

	return &Router{
		logger:    logger,
		fastLane:  fast,
		smartLane: smart,
		collector: collector,
	}, nil
}

// AnalyzeWithFallback routes a code analysis request. The size estimate for
// the routing decision is the total character count of the supplied codebase.
func (r *Router) AnalyzeWithFallback(ctx context.Context, codebase map[string]string, req provider.AnalysisRequest, intent Intent) (*provider.AnalysisResult, error) {
	size := 0
	for _, content := range codebase {
		size += len(content)
	}

	decision := r.Decide(size, req.HasVision, intent)

	return runFallback(ctx, r, "analyze", decision,
		func(ctx context.Context, p provider.Provider) (*provider.AnalysisResult, error) {
			return p.AnalyzeCode(ctx, codebase, req)
		},
		provider.Valid,
	)
}

// BrainstormWithFallback routes an idea generation request. An empty idea
// list from a provider still counts as success; emptiness is the caller's
// concern.
func (r *Router) BrainstormWithFallback(ctx context.Context, topic string, constraints []string, intent Intent) ([]provider.Idea, error) {
	decision := r.Decide(len(topic), false, intent)

	return runFallback(ctx, r, "brainstorm", decision,
		func(ctx context.Context, p provider.Provider) ([]provider.Idea, error) {
			return p.Brainstorm(ctx, topic, constraints)
		},
		func([]provider.Idea) bool { return true },
	)
}

// ExpandWithFallback routes an idea expansion request.
func (r *Router) ExpandWithFallback(ctx context.Context, idea, ideaContext string, intent Intent) (*provider.Expansion, error) {
	decision := r.Decide(len(idea)+len(ideaContext), false, intent)

	return runFallback(ctx, r, "expand", decision,
		func(ctx context.Context, p provider.Provider) (*provider.Expansion, error) {
			return p.ExpandIdea(ctx, idea, ideaContext)
		},
		func(exp *provider.Expansion) bool { return exp != nil },
	)
}

// ConnectWithFallback routes an idea-pair connection request.
func (r *Router) ConnectWithFallback(ctx context.Context, ideaA, ideaB, relationship string, intent Intent) (*provider.ConnectionAnalysis, error) {
	decision := r.Decide(len(ideaA)+len(ideaB), false, intent)

	return runFallback(ctx, r, "connect", decision,
		func(ctx context.Context, p provider.Provider) (*provider.ConnectionAnalysis, error) {
			return p.ConnectIdeas(ctx, ideaA, ideaB, relationship)
		},
		func(conn *provider.ConnectionAnalysis) bool { return conn != nil },
	)
}

// runFallback walks the decided lane in its fixed order, then the opposite
// lane, returning the first valid result. Attempts are sequential on
// purpose: the design trades latency for not burning redundant vendor
// calls. Only total exhaustion surfaces an error to the caller.
func runFallback[T any](
	ctx context.Context,
	r *Router,
	operation string,
	decision Decision,
	call func(context.Context, provider.Provider) (T, error),
	valid func(T) bool,
) (T, error) {
	var zero T

	r.emit(metrics.MetricEvent{
		Type:      metrics.EventRequestReceived,
		Timestamp: time.Now(),
		Operation: operation,
	})

	r.logger.Info("Routing decision",
		slog.String("operation", operation),
		slog.String("provider", decision.Provider.Name()),
		slog.String("lane", decision.Lane.String()),
		slog.String("reason", decision.Reason))

	primary, secondary := r.fastLane, r.smartLane
	if decision.Lane == provider.LaneSmart {
		primary, secondary = r.smartLane, r.fastLane
	}

	var attempts []Attempt

	for _, lane := range [][]provider.Provider{primary, secondary} {
		for _, p := range lane {
			r.emit(metrics.MetricEvent{
				Type:      metrics.EventProviderSelected,
				Timestamp: time.Now(),
				Operation: operation,
				Provider:  p.Name(),
			})

			start := time.Now()
			result, err := call(ctx, p)
			duration := time.Since(start)

			if err != nil {
				r.emit(metrics.MetricEvent{
					Type:      metrics.EventCallCompleted,
					Timestamp: time.Now(),
					Operation: operation,
					Provider:  p.Name(),
					Duration:  duration,
					Success:   false,
				})

				var openErr *circuitbreaker.OpenError
				if errors.As(err, &openErr) {
					r.logger.Warn("Circuit open, skipping provider",
						slog.String("operation", operation),
						slog.String("provider", p.Name()),
						slog.Duration("retry_after", openErr.RetryAfter))
				} else {
					r.logger.Warn("Provider call failed",
						slog.String("operation", operation),
						slog.String("provider", p.Name()),
						slog.Any("err", err))
				}

				attempts = append(attempts, Attempt{Provider: p.Name(), Err: err})
				continue
			}

			if !valid(result) {
				r.emit(metrics.MetricEvent{
					Type:      metrics.EventCallCompleted,
					Timestamp: time.Now(),
					Operation: operation,
					Provider:  p.Name(),
					Duration:  duration,
					Success:   false,
				})

				r.logger.Warn("Provider returned invalid result, skipping",
					slog.String("operation", operation),
					slog.String("provider", p.Name()))

				attempts = append(attempts, Attempt{
					Provider: p.Name(),
					Err:      fmt.Errorf("%s: %w", p.Name(), ErrInvalidResult),
				})
				continue
			}

			r.emit(metrics.MetricEvent{
				Type:      metrics.EventCallCompleted,
				Timestamp: time.Now(),
				Operation: operation,
				Provider:  p.Name(),
				Duration:  duration,
				Success:   true,
			})

			r.logger.Info("Provider call succeeded",
				slog.String("operation", operation),
				slog.String("provider", p.Name()),
				slog.Duration("duration", duration))

			return result, nil
		}
	}

	return zero, &AllFailedError{Operation: operation, Attempts: attempts}
}

// ProviderStatus is one row of the read-only health snapshot.
type ProviderStatus struct {
	Lane         string  `json:"lane"`
	CircuitState string  `json:"circuit_state"`
	FailureRate  float64 `json:"failure_rate"`
}

// Status reports lane, breaker state, and windowed failure rate for every
// provider in both lanes. Purely observational; never mutates a breaker.
func (r *Router) Status() map[string]ProviderStatus {
	status := make(map[string]ProviderStatus, len(r.fastLane)+len(r.smartLane))

	for _, lane := range [][]provider.Provider{r.fastLane, r.smartLane} {
		for _, p := range lane {
			status[p.Name()] = ProviderStatus{
				Lane:         p.Lane().String(),
				CircuitState: p.Breaker().State().String(),
				FailureRate:  math.Round(p.Breaker().FailureRate()*100) / 100,
			}
		}
	}

	return status
}

func (r *Router) emit(event metrics.MetricEvent) {
	if r.collector == nil {
		return
	}

	select {
	case r.collector.EventChannel() <- event:
	default:
	}
}
