// Package provider defines the capability contract every AI backend
// implements and the concrete vendor clients.
//
// A Provider supports four operations (code analysis, brainstorming, idea
// expansion, idea connection), declares a routing lane, and owns exactly one
// circuit breaker that every vendor call passes through. The router only
// ever sees this interface; vendor request/response shapes stay inside the
// individual implementations.
package provider
