// Package server exposes the rewrite pipeline over HTTP.
//
// Two endpoints carry the work: /v1/rewrite returns the authorized SQL
// without touching a database, and /v1/query additionally executes it
// against the configured adapter. Requester identity comes from the
// request body; authenticating the caller is the embedding service's job.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Hacker0x01/h1ql/pkg/adapter"
	"github.com/Hacker0x01/h1ql/pkg/authz"
	"github.com/Hacker0x01/h1ql/pkg/h1ql"
	"github.com/Hacker0x01/h1ql/pkg/parse"
	"github.com/Hacker0x01/h1ql/pkg/restrict"
)

// Server hosts the pipeline endpoints.
type Server struct {
	engine *h1ql.Engine
	exec   adapter.Adapter
	logger *slog.Logger
	router chi.Router
}

// New creates a Server. exec may be nil, in which case /v1/query reports
// that no executor is configured.
func New(engine *h1ql.Engine, exec adapter.Adapter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{engine: engine, exec: exec, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/rewrite", s.handleRewrite)
	r.Post("/v1/query", s.handleQuery)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

type requesterPayload struct {
	Subject    string         `json:"subject"`
	Attributes map[string]any `json:"attributes"`
}

type queryRequest struct {
	SQL       string           `json:"sql"`
	Requester requesterPayload `json:"requester"`
}

type rewriteResponse struct {
	SQL             string `json:"sql"`
	SnapshotVersion string `json:"snapshot_version"`
}

type queryResponse struct {
	SQL     string  `json:"sql"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRewrite(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	res, err := s.engine.Rewrite(r.Context(), req.SQL, authz.Requester{
		Subject:    req.Requester.Subject,
		Attributes: req.Requester.Attributes,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rewriteResponse{SQL: res.SQL, SnapshotVersion: res.SnapshotVersion})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	if s.exec == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Error: errorBody{Stage: "execute", Message: "no executor configured"},
		})
		return
	}

	res, err := s.engine.Rewrite(r.Context(), req.SQL, authz.Requester{
		Subject:    req.Requester.Subject,
		Attributes: req.Requester.Attributes,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	rows, err := s.exec.Query(r.Context(), res.SQL)
	if err != nil {
		s.logger.Error("query execution failed", "error", err)
		s.writeJSON(w, http.StatusBadGateway, errorResponse{
			Error: errorBody{Stage: "execute", Message: "query execution failed"},
		})
		return
	}
	columns, records, err := rows.ReadAll()
	if err != nil {
		s.logger.Error("result read failed", "error", err)
		s.writeJSON(w, http.StatusBadGateway, errorResponse{
			Error: errorBody{Stage: "execute", Message: "failed to read results"},
		})
		return
	}
	if records == nil {
		records = [][]any{}
	}
	s.writeJSON(w, http.StatusOK, queryResponse{SQL: res.SQL, Columns: columns, Rows: records})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (queryRequest, bool) {
	var req queryRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: errorBody{Stage: "request", Message: "malformed request body"},
		})
		return queryRequest{}, false
	}
	if req.SQL == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: errorBody{Stage: "request", Message: "sql is required"},
		})
		return queryRequest{}, false
	}
	return req, true
}

// writeError maps pipeline stage errors to HTTP statuses. Error text is
// safe to return: stage errors name constructs and resources, never query
// results.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		parseErr    *parse.ParseError
		unsupported *restrict.UnsupportedConstructError
		ctxErr      *authz.ContextError
	)
	switch {
	case errors.As(err, &parseErr):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: errorBody{Stage: "parse", Message: parseErr.Error()},
		})
	case errors.As(err, &unsupported):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: errorBody{Stage: "restrict", Message: unsupported.Error()},
		})
	case errors.As(err, &ctxErr):
		s.writeJSON(w, http.StatusForbidden, errorResponse{
			Error: errorBody{Stage: "authorize", Message: ctxErr.Error()},
		})
	default:
		s.logger.Error("rewrite failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: errorBody{Stage: "internal", Message: "internal error"},
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
