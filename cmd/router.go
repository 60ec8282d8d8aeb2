package main

import (
	"net/http"

	"github.com/cortexeval/cortex-router/internal/handler"
	"github.com/cortexeval/cortex-router/internal/metrics"
)

func setupRouter(routerHandler *handler.RouterHandler, metricsCollector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/analyze", routerHandler.Analyze)
	mux.HandleFunc("/v1/brainstorm", routerHandler.Brainstorm)
	mux.HandleFunc("/v1/expand", routerHandler.Expand)
	mux.HandleFunc("/v1/connect", routerHandler.Connect)
	mux.HandleFunc("/v1/providers/status", routerHandler.Status)
	mux.HandleFunc("/health", routerHandler.Health)
	mux.HandleFunc("/metrics", metricsCollector.Handler())

	return mux
}
