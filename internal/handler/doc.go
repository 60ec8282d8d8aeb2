// Package handler is the JSON HTTP surface over the router: one endpoint
// per operation plus provider status and liveness. Per-provider failure
// reasons are logged with a request ID and never leak to the caller.
package handler
