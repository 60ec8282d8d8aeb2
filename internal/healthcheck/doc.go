// Package healthcheck runs a background observer over the router's circuit
// breakers, logging state transitions and pushing periodic breaker
// snapshots into the metrics collector for the /metrics endpoint.
package healthcheck
