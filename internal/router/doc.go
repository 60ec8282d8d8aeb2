// Package router picks an AI provider for each request and walks the
// fallback chain when providers fail.
//
// Routing happens in two steps. Decide applies hard capability constraints
// (context size, vision), then user intent, then the default policy, and
// yields the lane to try first. The fallback engine then iterates that
// lane's providers in their fixed order, crosses to the opposite lane on
// exhaustion, and returns the first result that passes validation. Every
// call goes through the owning provider's circuit breaker, so a degraded
// vendor costs at most one failed round-trip before being skipped cheaply.
package router
