package healthcheck

import (
	"context"
	"log/slog"
	"time"

	"github.com/cortexeval/cortex-router/internal/metrics"
	"github.com/cortexeval/cortex-router/internal/router"
)

// Monitor periodically snapshots every provider's circuit breaker and feeds
// the observations to the metrics collector. Breaker state transitions are
// logged once, on change, so an opened circuit shows up in the logs even if
// no request touches that provider again.
func Monitor(
	ctx context.Context,
	rt *router.Router,
	collector *metrics.Collector,
	interval time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastStates := make(map[string]string)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Breaker monitor stopped")
			return

		case <-ticker.C:
			for name, st := range rt.Status() {
				if collector != nil {
					select {
					case collector.EventChannel() <- metrics.MetricEvent{
						Type:         metrics.EventBreakerState,
						Timestamp:    time.Now(),
						Provider:     name,
						BreakerState: st.CircuitState,
						FailureRate:  st.FailureRate,
					}:
					default:
					}
				}

				last, seen := lastStates[name]
				if seen && last != st.CircuitState {
					if st.CircuitState == "CLOSED" {
						logger.Info("Provider circuit recovered",
							slog.String("provider", name),
							slog.String("state", st.CircuitState))
					} else {
						logger.Warn("Provider circuit degraded",
							slog.String("provider", name),
							slog.String("state", st.CircuitState),
							slog.Float64("failure_rate", st.FailureRate))
					}
				}
				lastStates[name] = st.CircuitState
			}
		}
	}
}
