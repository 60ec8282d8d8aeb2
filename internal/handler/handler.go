package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/cortexeval/cortex-router/internal/provider"
	"github.com/cortexeval/cortex-router/internal/router"
)

// RouterHandler exposes the router over a thin JSON API. All error detail
// stays in the logs; callers see a uniform failure shape.
type RouterHandler struct {
	logger *slog.Logger
	router *router.Router
}

func NewRouterHandler(logger *slog.Logger, rt *router.Router) *RouterHandler {
	return &RouterHandler{
		logger: logger,
		router: rt,
	}
}

type analyzeRequest struct {
	Codebase  map[string]string `json:"codebase"`
	Query     string            `json:"query"`
	SystemDoc string            `json:"system_doc"`
	HasVision bool              `json:"has_vision"`
	Intent    string            `json:"intent"`
}

type brainstormRequest struct {
	Topic       string   `json:"topic"`
	Constraints []string `json:"constraints"`
	Intent      string   `json:"intent"`
}

type expandRequest struct {
	Idea    string `json:"idea"`
	Context string `json:"context"`
	Intent  string `json:"intent"`
}

type connectRequest struct {
	IdeaA        string `json:"idea_a"`
	IdeaB        string `json:"idea_b"`
	Relationship string `json:"relationship"`
	Intent       string `json:"intent"`
}

func (h *RouterHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	log := h.requestLogger(w, r, "analyze")

	var req analyzeRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if req.Query == "" {
		h.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.router.AnalyzeWithFallback(r.Context(), req.Codebase, provider.AnalysisRequest{
		Query:     req.Query,
		SystemDoc: req.SystemDoc,
		HasVision: req.HasVision,
	}, router.ParseIntent(req.Intent))
	if err != nil {
		h.writeRouterError(w, log, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *RouterHandler) Brainstorm(w http.ResponseWriter, r *http.Request) {
	log := h.requestLogger(w, r, "brainstorm")

	var req brainstormRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if req.Topic == "" {
		h.writeError(w, http.StatusBadRequest, "topic is required")
		return
	}

	ideas, err := h.router.BrainstormWithFallback(r.Context(), req.Topic, req.Constraints, router.ParseIntent(req.Intent))
	if err != nil {
		h.writeRouterError(w, log, err)
		return
	}

	if ideas == nil {
		ideas = []provider.Idea{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ideas": ideas})
}

func (h *RouterHandler) Expand(w http.ResponseWriter, r *http.Request) {
	log := h.requestLogger(w, r, "expand")

	var req expandRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if req.Idea == "" {
		h.writeError(w, http.StatusBadRequest, "idea is required")
		return
	}

	expansion, err := h.router.ExpandWithFallback(r.Context(), req.Idea, req.Context, router.ParseIntent(req.Intent))
	if err != nil {
		h.writeRouterError(w, log, err)
		return
	}

	h.writeJSON(w, http.StatusOK, expansion)
}

func (h *RouterHandler) Connect(w http.ResponseWriter, r *http.Request) {
	log := h.requestLogger(w, r, "connect")

	var req connectRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if req.IdeaA == "" || req.IdeaB == "" {
		h.writeError(w, http.StatusBadRequest, "idea_a and idea_b are required")
		return
	}
	if req.Relationship == "" {
		req.Relationship = "related"
	}

	conn, err := h.router.ConnectWithFallback(r.Context(), req.IdeaA, req.IdeaB, req.Relationship, router.ParseIntent(req.Intent))
	if err != nil {
		h.writeRouterError(w, log, err)
		return
	}

	h.writeJSON(w, http.StatusOK, conn)
}

// Status reports the lane, circuit state, and failure rate of every
// provider. Read-only.
func (h *RouterHandler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"providers": h.router.Status()})
}

func (h *RouterHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *RouterHandler) requestLogger(w http.ResponseWriter, r *http.Request, operation string) *slog.Logger {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)

	log := h.logger.With(
		slog.String("request_id", requestID),
		slog.String("operation", operation))

	log.Info("Received request",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote", r.RemoteAddr))

	return log
}

func (h *RouterHandler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, v any) bool {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Warn("Malformed request body", slog.Any("err", err))
		h.writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}

	return true
}

func (h *RouterHandler) writeRouterError(w http.ResponseWriter, log *slog.Logger, err error) {
	var allFailed *router.AllFailedError
	if errors.As(err, &allFailed) {
		log.Error("All providers failed",
			slog.String("operation", allFailed.Operation),
			slog.Int("attempts", len(allFailed.Attempts)))
		h.writeError(w, http.StatusBadGateway, "all providers failed")
		return
	}

	log.Error("Request failed", slog.Any("err", err))
	h.writeError(w, http.StatusInternalServerError, "internal error")
}

func (h *RouterHandler) writeError(w http.ResponseWriter, code int, msg string) {
	h.writeJSON(w, code, map[string]string{"error": msg})
}

func (h *RouterHandler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", slog.Any("err", err))
	}
}
