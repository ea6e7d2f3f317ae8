package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flood-ai/flood-memory/internal/memory"
	"github.com/flood-ai/flood-memory/internal/observability"
	"github.com/flood-ai/flood-memory/internal/server/graph"
)

func newTestService(t *testing.T) (*Service, *observability.Collector) {
	t.Helper()
	ctx := context.Background()

	repo, err := graph.NewSQLite(ctx, filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close(ctx) })

	metrics := observability.NewCollector("flood_memory")
	return New(memory.New(repo), WithMetrics(metrics)), metrics
}

func intPtr(i int) *int { return &i }

func TestRememberRequiresContent(t *testing.T) {
	svc, metrics := newTestService(t)

	_, err := svc.Remember(context.Background(), RememberRequest{})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, "content is required", err.Error())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Operations.WithLabelValues(OpRemember, observability.StatusInvalid)))
}

func TestRecallRequiresQueryOrTags(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Recall(context.Background(), RecallRequest{Query: "  "})
	require.ErrorIs(t, err, ErrQueryOrTagsRequired)
	assert.Equal(t, "At least one of query or tags is required", Message(err))

	_, err = svc.Recall(context.Background(), RecallRequest{Query: "x", Limit: intPtr(-1)})
	require.Error(t, err)
	assert.Equal(t, "limit must be at least 0", err.Error())
}

func TestRecallLimit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.Remember(ctx, RememberRequest{Content: "alpha note"})
		require.NoError(t, err)
	}

	got, err := svc.Recall(ctx, RecallRequest{Query: "alpha"})
	require.NoError(t, err)
	assert.Len(t, got, memory.DefaultLimit)

	got, err = svc.Recall(ctx, RecallRequest{Query: "alpha", Limit: intPtr(0)})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.Recall(ctx, RecallRequest{Query: "alpha", Limit: intPtr(1 << 40)})
	require.NoError(t, err)
	assert.Len(t, got, 12)
}

func TestConnectionsDepth(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Remember(ctx, RememberRequest{Content: "A"})
	require.NoError(t, err)
	b, err := svc.Remember(ctx, RememberRequest{Content: "B", Links: []string{a.ID}})
	require.NoError(t, err)
	_, err = svc.Remember(ctx, RememberRequest{Content: "C", Links: []string{b.ID}})
	require.NoError(t, err)

	conns, err := svc.Connections(ctx, ConnectionsRequest{NodeID: a.ID})
	require.NoError(t, err)
	assert.Len(t, conns, 2)

	conns, err = svc.Connections(ctx, ConnectionsRequest{NodeID: a.ID, Depth: intPtr(0)})
	require.NoError(t, err)
	assert.Len(t, conns, 1)

	_, err = svc.Connections(ctx, ConnectionsRequest{NodeID: a.ID, Depth: intPtr(-1)})
	assert.True(t, IsValidation(err))

	_, err = svc.Connections(ctx, ConnectionsRequest{})
	require.Error(t, err)
	assert.Equal(t, "node_id is required", err.Error())
}

func TestNotFoundOutcomes(t *testing.T) {
	svc, metrics := newTestService(t)
	ctx := context.Background()

	_, err := svc.Forget(ctx, ForgetRequest{NodeID: "missing"})
	require.ErrorIs(t, err, memory.ErrNotFound)
	assert.Equal(t, "Node not found", Message(err))

	content := "x"
	_, err = svc.Update(ctx, UpdateRequest{NodeID: "missing", Content: &content})
	require.ErrorIs(t, err, memory.ErrNotFound)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Operations.WithLabelValues(OpForget, observability.StatusNotFound)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Operations.WithLabelValues(OpUpdate, observability.StatusNotFound)))
}

func TestRoundTrip(t *testing.T) {
	svc, metrics := newTestService(t)
	ctx := context.Background()

	n, err := svc.Remember(ctx, RememberRequest{Content: "service note", Tags: []string{"svc"}, Source: "test"})
	require.NoError(t, err)

	tags := []string{"svc", "edited"}
	updated, err := svc.Update(ctx, UpdateRequest{NodeID: n.ID, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "service note", updated.Content)
	assert.Equal(t, tags, updated.Tags)

	found, err := svc.Recall(ctx, RecallRequest{Tags: []string{"edited"}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, n.ID, found[0].ID)

	del, err := svc.Forget(ctx, ForgetRequest{NodeID: n.ID})
	require.NoError(t, err)
	assert.Equal(t, n.ID, del.Deleted)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Operations.WithLabelValues(OpRemember, observability.StatusOK)))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, observability.StatusOK, Status(nil))
	assert.Equal(t, observability.StatusInvalid, Status(ErrQueryOrTagsRequired))
	assert.Equal(t, observability.StatusNotFound, Status(fmt.Errorf("wrapped: %w", memory.ErrNotFound)))
	assert.Equal(t, observability.StatusError, Status(errors.New("disk full")))
}
