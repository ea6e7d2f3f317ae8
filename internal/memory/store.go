// Package memory implements the operations of the memory graph on top of a
// graph.Repository: creating, recalling, traversing, updating and forgetting
// nodes while keeping links symmetric and the search index consistent.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/flood-ai/flood-memory/internal/server/events"
	"github.com/flood-ai/flood-memory/internal/server/graph"
)

const instrumentationName = "github.com/flood-ai/flood-memory/internal/memory"

// ErrNotFound is returned when the requested node does not exist.
var ErrNotFound = errors.New("node not found")

// Store is the memory graph. All operations are serialized and each one runs
// in a single repository transaction.
type Store struct {
	repo   graph.Repository
	logger *zap.Logger
	tracer trace.Tracer
	emit   events.Emitter
	now    func() time.Time
	newID  func() string

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for warnings such as dropped links.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) { s.tracer = tracer }
}

// WithEmitter receives change events after each committed operation.
func WithEmitter(emit events.Emitter) Option {
	return func(s *Store) { s.emit = emit }
}

// WithClock replaces time.Now for created_at and last_accessed stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString for new node ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New creates a Store over repo.
func New(repo graph.Repository, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		logger: zap.NewNop(),
		tracer: otel.Tracer(instrumentationName),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RememberInput describes a node to create.
type RememberInput struct {
	Content string
	Tags    []string
	Links   []string
	Source  string
}

// UpdateInput replaces the fields that are non-nil.
type UpdateInput struct {
	Content *string
	Tags    *[]string
	Links   *[]string
}

// Deletion is the result of Forget.
type Deletion struct {
	Deleted string `json:"deleted"`
}

// Remember creates a node. Requested links that do not resolve to an
// existing node are dropped with a warning; the rest become symmetric.
func (s *Store) Remember(ctx context.Context, in RememberInput) (*graph.Node, error) {
	ctx, span := s.tracer.Start(ctx, "memory.Remember")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	node := &graph.Node{
		ID:           s.newID(),
		Content:      in.Content,
		Tags:         copyTags(in.Tags),
		Source:       in.Source,
		CreatedAt:    now,
		LastAccessed: now,
	}
	span.SetAttributes(attribute.String("node.id", node.ID))

	var pending []events.Event
	err := s.repo.Update(ctx, func(tx graph.Tx) error {
		pending = []events.Event{events.NodeEvent(events.EventNodeCreated, node.ID, now)}

		links, err := s.resolveLinks(ctx, tx, node.ID, in.Links)
		if err != nil {
			return err
		}
		node.Links = links

		if err := tx.Insert(ctx, node); err != nil {
			return err
		}

		for _, neighbor := range links.IDs() {
			if _, err := addBackLink(ctx, tx, neighbor, node.ID); err != nil {
				return err
			}
			pending = append(pending, events.LinkEvent(events.EventLinkCreated, node.ID, neighbor, now))
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("remembering node: %w", err))
	}

	s.publish(pending)
	return node, nil
}

// Forget deletes a node and removes it from every neighbor's links.
func (s *Store) Forget(ctx context.Context, id string) (*Deletion, error) {
	ctx, span := s.tracer.Start(ctx, "memory.Forget", trace.WithAttributes(attribute.String("node.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	var pending []events.Event
	err := s.repo.Update(ctx, func(tx graph.Tx) error {
		pending = nil

		node, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if node == nil {
			return ErrNotFound
		}

		for _, neighbor := range node.Links.IDs() {
			if _, err := removeBackLink(ctx, tx, neighbor, id); err != nil {
				return err
			}
			pending = append(pending, events.LinkEvent(events.EventLinkDeleted, id, neighbor, now))
		}

		if err := tx.Delete(ctx, id); err != nil {
			return err
		}
		pending = append(pending, events.NodeEvent(events.EventNodeDeleted, id, now))
		return nil
	})
	if err != nil {
		return nil, s.fail(span, wrapOp("forgetting node", err))
	}

	s.publish(pending)
	return &Deletion{Deleted: id}, nil
}

// Update replaces the given fields of a node. When links are given, the
// node's link list becomes exactly the resolvable subset of them (without the
// node itself) and neighbors gain or lose back-links to match.
func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (*graph.Node, error) {
	ctx, span := s.tracer.Start(ctx, "memory.Update", trace.WithAttributes(attribute.String("node.id", id)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	var updated *graph.Node
	var pending []events.Event
	err := s.repo.Update(ctx, func(tx graph.Tx) error {
		pending = nil

		node, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if node == nil {
			return ErrNotFound
		}

		patch := graph.Patch{Content: in.Content}
		var fields []string
		if in.Content != nil {
			fields = append(fields, "content")
		}
		if in.Tags != nil {
			tags := copyTags(*in.Tags)
			patch.Tags = &tags
			fields = append(fields, "tags")
		}

		if in.Links != nil {
			links, err := s.resolveLinks(ctx, tx, id, *in.Links)
			if err != nil {
				return err
			}

			for _, neighbor := range node.Links.Difference(links) {
				if _, err := removeBackLink(ctx, tx, neighbor, id); err != nil {
					return err
				}
				pending = append(pending, events.LinkEvent(events.EventLinkDeleted, id, neighbor, now))
			}
			for _, neighbor := range links.Difference(node.Links) {
				if _, err := addBackLink(ctx, tx, neighbor, id); err != nil {
					return err
				}
				pending = append(pending, events.LinkEvent(events.EventLinkCreated, id, neighbor, now))
			}

			patch.Links = &links
			fields = append(fields, "links")
		}

		if err := tx.Replace(ctx, id, patch); err != nil {
			return err
		}

		updated, err = tx.Get(ctx, id)
		if err != nil {
			return err
		}

		e := events.NodeEvent(events.EventNodeUpdated, id, now)
		e.Meta = map[string]any{"fields": fields}
		pending = append([]events.Event{e}, pending...)
		return nil
	})
	if err != nil {
		return nil, s.fail(span, wrapOp("updating node", err))
	}

	s.publish(pending)
	return updated, nil
}

func (s *Store) publish(pending []events.Event) {
	if s.emit == nil {
		return
	}
	for _, e := range pending {
		s.emit(e)
	}
}

// fail records err on span and returns it.
func (s *Store) fail(span trace.Span, err error) error {
	if !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// wrapOp adds context to storage errors but leaves ErrNotFound bare.
func wrapOp(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func copyTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}
