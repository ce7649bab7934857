package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	gojson "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	gp "github.com/reoring/goprojection"
	"github.com/reoring/goprojection/dsl"
	"github.com/reoring/goprojection/internal/logger"
)

// Error codes returned in error bodies.
const (
	codeBadRequest        = "bad_request"
	codeBodyTooLarge      = "body_too_large"
	codeInvalidProjection = "invalid_projection"
	codeInternal          = "internal"
)

// Server renders declarative projections over HTTP.
type Server struct {
	renderer gp.Renderer
	registry gp.Registry // used when a request carries no schema; may be nil
	logger   *zap.Logger
	maxBody  int64
}

const defaultMaxBody = 1 << 20

// New creates a Server. registry may be nil; a non-positive maxBody selects
// 1 MiB.
func New(renderer gp.Renderer, registry gp.Registry, logger *zap.Logger, maxBody int64) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	return &Server{renderer: renderer, registry: registry, logger: logger, maxBody: maxBody}
}

// Routes returns the HTTP handler. gatherer backs /metrics.
func (s *Server) Routes(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(requestID)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", s.health)
	r.Post("/v1/render", s.render)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

type renderResponse struct {
	Projection gp.Document `json:"projection"`
}

type issueBody struct {
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Issues  []issueBody `json:"issues,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// render handles POST /v1/render.
func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeBodyTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	prog, err := dsl.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	var reg gp.Registry
	if prog.Schema == nil {
		reg = s.registry
	}
	doc, err := prog.Render(s.renderer, reg)
	if err != nil {
		if iss, ok := gp.AsIssues(err); ok {
			resp := errorResponse{Code: codeInvalidProjection, Message: err.Error()}
			for _, it := range iss {
				resp.Issues = append(resp.Issues, issueBody{Code: it.Code, Path: it.Path, Message: it.Message})
			}
			writeJSON(w, http.StatusUnprocessableEntity, resp)
			return
		}
		logger.FromContext(r.Context()).Error("render failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternal, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, renderResponse{Projection: doc})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = gojson.NewEncoder(w).Encode(v)
}
