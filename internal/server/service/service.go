// Package service is the single entry point shared by the MCP tools, the REST
// API and the CLI. It validates typed requests, calls the memory store and
// records per-operation metrics.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flood-ai/flood-memory/internal/memory"
	"github.com/flood-ai/flood-memory/internal/observability"
	"github.com/flood-ai/flood-memory/internal/server/graph"
)

// Operation names used in logs and metrics.
const (
	OpRemember    = "remember"
	OpRecall      = "recall"
	OpConnections = "connections"
	OpForget      = "forget"
	OpUpdate      = "update"
)

type Service struct {
	store   *memory.Store
	logger  *zap.Logger
	metrics *observability.Collector
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(c *observability.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

func New(store *memory.Store, opts ...Option) *Service {
	s := &Service{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Remember(ctx context.Context, req RememberRequest) (*graph.Node, error) {
	return run(s, OpRemember, req, func() (*graph.Node, error) {
		return s.store.Remember(ctx, memory.RememberInput{
			Content: req.Content,
			Tags:    req.Tags,
			Links:   req.Links,
			Source:  req.Source,
		})
	})
}

func (s *Service) Recall(ctx context.Context, req RecallRequest) ([]*graph.Node, error) {
	return run(s, OpRecall, req, func() ([]*graph.Node, error) {
		if strings.TrimSpace(req.Query) == "" && len(req.Tags) == 0 {
			return nil, ErrQueryOrTagsRequired
		}
		return s.store.Recall(ctx, memory.RecallQuery{
			Query: req.Query,
			Tags:  req.Tags,
			Limit: req.Limit,
		})
	})
}

func (s *Service) Connections(ctx context.Context, req ConnectionsRequest) ([]*memory.Connection, error) {
	return run(s, OpConnections, req, func() ([]*memory.Connection, error) {
		depth := memory.DefaultDepth
		if req.Depth != nil {
			depth = *req.Depth
		}
		return s.store.Connections(ctx, req.NodeID, depth)
	})
}

func (s *Service) Forget(ctx context.Context, req ForgetRequest) (*memory.Deletion, error) {
	return run(s, OpForget, req, func() (*memory.Deletion, error) {
		return s.store.Forget(ctx, req.NodeID)
	})
}

func (s *Service) Update(ctx context.Context, req UpdateRequest) (*graph.Node, error) {
	return run(s, OpUpdate, req, func() (*graph.Node, error) {
		return s.store.Update(ctx, req.NodeID, memory.UpdateInput{
			Content: req.Content,
			Tags:    req.Tags,
			Links:   req.Links,
		})
	})
}

// run validates req, calls fn and records the outcome.
func run[T any](s *Service, op string, req any, fn func() (T, error)) (T, error) {
	start := time.Now()

	var result T
	err := validateRequest(req)
	if err == nil {
		result, err = fn()
	}

	status := Status(err)
	if s.metrics != nil {
		s.metrics.ObserveOperation(op, status, time.Since(start))
	}

	switch status {
	case observability.StatusError:
		s.logger.Error("operation failed", zap.String("operation", op), zap.Error(err))
	case observability.StatusInvalid:
		s.logger.Debug("invalid request", zap.String("operation", op), zap.Error(err))
	}
	return result, err
}

// Status classifies err for metrics.
func Status(err error) string {
	switch {
	case err == nil:
		return observability.StatusOK
	case IsValidation(err):
		return observability.StatusInvalid
	case errors.Is(err, memory.ErrNotFound):
		return observability.StatusNotFound
	default:
		return observability.StatusError
	}
}

// Message is the client-facing text for err.
func Message(err error) string {
	if errors.Is(err, memory.ErrNotFound) {
		return "Node not found"
	}
	return err.Error()
}
