package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/reticula"
	"github.com/aretw0/reticula/pkg/newick"
)

// MaxBodyBytes bounds the size of an /infer request.
const MaxBodyBytes = 8 << 20

// Engine is the inference core served over HTTP.
type Engine interface {
	Infer(ctx context.Context, input string) (*reticula.Inference, error)
}

// CacheObserver is told whether each answer came from the cache.
type CacheObserver interface {
	ObserveCache(hit bool)
}

// Server handles the HTTP API.
type Server struct {
	Engine  Engine
	Cache   CacheObserver
	Metrics http.Handler
	Logger  *slog.Logger
}

// InferRequest is the JSON body of POST /infer.
type InferRequest struct {
	Newick string `json:"newick"`
}

// InferResponse is the JSON body of a successful POST /infer.
type InferResponse struct {
	Newick         string `json:"newick"`
	Trees          int    `json:"trees"`
	Taxa           int    `json:"taxa"`
	Reticulations  int    `json:"reticulations"`
	Irreconcilable int    `json:"irreconcilable"`
	Cached         bool   `json:"cached"`
	Key            string `json:"key"`
}

// ErrorResponse describes a failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Tree   *int   `json:"tree,omitempty"`
	Offset *int   `json:"offset,omitempty"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// NewHandler creates the router for s.
func NewHandler(s *Server) http.Handler {
	if s.Logger == nil {
		s.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/infer", s.Infer)
	r.Get("/healthz", s.Health)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Infer handles POST /infer. The body is either JSON ({"newick": "..."})
// or, for any other content type, the Newick text itself.
func (s *Server) Infer(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	input, err := readInput(r)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, ErrorResponse{Error: "invalid request body: " + err.Error()})
		s.Logger.Warn("infer: invalid request body", "error", err)
		return
	}

	inf, err := s.Engine.Infer(r.Context(), input)
	if err != nil {
		status, body := errorBody(err)
		writeJSON(w, status, body)
		if status >= http.StatusInternalServerError {
			s.Logger.Error("infer failed", "error", err)
		} else {
			s.Logger.Debug("infer rejected", "error", err, "kind", body.Kind)
		}
		return
	}
	if s.Cache != nil {
		s.Cache.ObserveCache(inf.Cached)
	}

	writeJSON(w, http.StatusOK, InferResponse{
		Newick:         inf.Newick,
		Trees:          inf.Trees,
		Taxa:           inf.Taxa,
		Reticulations:  inf.Reticulations,
		Irreconcilable: inf.Irreconcilable,
		Cached:         inf.Cached,
		Key:            inf.Key,
	})
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: reticula.Version})
}

func readInput(r *http.Request) (string, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		return string(data), nil
	}
	var req InferRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Newick) == "" {
		return "", errors.New("missing field \"newick\"")
	}
	return req.Newick, nil
}

func errorBody(err error) (int, ErrorResponse) {
	body := ErrorResponse{Error: err.Error(), Kind: reticula.Kind(err)}
	var se *newick.SyntaxError
	var ie *reticula.InputError
	switch {
	case errors.As(err, &se):
		body.Tree, body.Offset = &se.Tree, &se.Offset
	case errors.As(err, &ie):
		body.Tree, body.Offset = &ie.Tree, &ie.Offset
	}
	switch {
	case reticula.IsInputError(err):
		if body.Offset != nil {
			return http.StatusBadRequest, body
		}
		return http.StatusUnprocessableEntity, body
	case body.Kind == reticula.KindCanceled:
		return http.StatusServiceUnavailable, body
	}
	return http.StatusInternalServerError, body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
