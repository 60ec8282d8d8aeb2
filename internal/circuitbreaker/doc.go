// Package circuitbreaker implements the circuit breaker pattern for AI
// provider calls.
//
// A circuit breaker prevents cascading failures by temporarily blocking calls
// to a failing provider. It has three states:
//
//   - CLOSED: Normal operation, calls pass through
//   - OPEN: Provider failing, calls blocked until the timeout elapses
//   - HALF-OPEN: Trial period, closes again after enough successes
//
// Usage:
//
//	cb := circuitbreaker.NewCircuitBreaker("claude", circuitbreaker.Config{
//	    FailureThreshold: 3,
//	    SuccessThreshold: 2,
//	    Timeout:          60 * time.Second,
//	})
//	err := cb.Call(ctx, func(ctx context.Context) error {
//	    return vendorCall(ctx)
//	})
package circuitbreaker
