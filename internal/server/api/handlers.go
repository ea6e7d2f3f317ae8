package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/flood-ai/flood-memory/internal/memory"
	"github.com/flood-ai/flood-memory/internal/server/service"
	"github.com/flood-ai/flood-memory/internal/server/tools"
)

// Server holds the HTTP handler dependencies
type Server struct {
	svc    *service.Service
	logger *zap.Logger
}

// New creates a new API server
func New(svc *service.Service, logger *zap.Logger) *Server {
	return &Server{svc: svc, logger: logger}
}

// CreateNode handles POST /api/nodes
func (s *Server) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req service.RememberRequest
	if !decodeBody(w, r, &req) {
		return
	}

	node, err := s.svc.Remember(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

// ListNodes handles GET /api/nodes?query=...&tags=a,b&limit=N
func (s *Server) ListNodes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := service.RecallRequest{
		Query: query.Get("query"),
		Tags:  splitList(query["tags"]),
	}
	if l := query.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid limit parameter"})
			return
		}
		req.Limit = &limit
	}

	nodes, err := s.svc.Recall(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"nodes": nodes,
		"count": len(nodes),
	})
}

// GetConnections handles GET /api/nodes/{id}/connections?depth=N
func (s *Server) GetConnections(w http.ResponseWriter, r *http.Request) {
	req := service.ConnectionsRequest{NodeID: chi.URLParam(r, "id")}
	if d := r.URL.Query().Get("depth"); d != "" {
		depth, err := strconv.Atoi(d)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid depth parameter"})
			return
		}
		req.Depth = &depth
	}

	conns, err := s.svc.Connections(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connections": conns,
		"count":       len(conns),
	})
}

// UpdateNodeRequest is the body of PATCH /api/nodes/{id}; absent fields are
// left unchanged.
type UpdateNodeRequest struct {
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
	Links   *[]string `json:"links,omitempty"`
}

// UpdateNode handles PATCH /api/nodes/{id}
func (s *Server) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var body UpdateNodeRequest
	if !decodeBody(w, r, &body) {
		return
	}

	node, err := s.svc.Update(r.Context(), service.UpdateRequest{
		NodeID:  chi.URLParam(r, "id"),
		Content: body.Content,
		Tags:    body.Tags,
		Links:   body.Links,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// DeleteNode handles DELETE /api/nodes/{id}
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Forget(r.Context(), service.ForgetRequest{NodeID: chi.URLParam(r, "id")})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"server":  tools.ServerName,
		"version": tools.ServerVersion,
	})
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps service errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case service.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, memory.ErrNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, errorBody{Error: service.Message(err)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		msg := "invalid JSON body: " + err.Error()
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
		return false
	}
	return true
}

// splitList accepts both ?tags=a&tags=b and ?tags=a,b.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
