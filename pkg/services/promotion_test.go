package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicetree/voicetree/pkg/events"
	"github.com/voicetree/voicetree/pkg/models"
	"github.com/voicetree/voicetree/pkg/services"
	"github.com/voicetree/voicetree/pkg/testutil"
	"github.com/voicetree/voicetree/pkg/validation"
)

// createValidDraft opens a draft and fills it with a promotable graph.
func createValidDraft(t *testing.T, env *testEnv, flow *models.Flow) *models.FlowVersion {
	t.Helper()

	ctx := context.Background()

	draft, err := env.versions.CreateDraft(ctx, flow.TenantID, flow.ID, "")
	require.NoError(t, err)

	updated, err := env.versions.UpdateDraftGraph(ctx, flow.TenantID, draft.ID, testutil.CreateValidGraph())
	require.NoError(t, err)

	return updated
}

func TestPromotionServicePromoteToStaged(t *testing.T) {
	t.Parallel()

	env := setupServices(t)
	ctx := context.Background()
	flow := createFlow(t, env, "tenant-1")
	draft := createValidDraft(t, env, flow)

	record, err := env.promotions.Promote(ctx, "tenant-1", draft.ID, models.VersionStatusStaged, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.VersionStatusStaged, record.Version.Status)
	assert.Equal(t, models.VersionStatusDraft, record.PriorStatus)
	assert.Equal(t, "alice", record.Version.PromotedBy)
	assert.Nil(t, record.Demoted)
}

func TestPromotionServicePromoteToLive(t *testing.T) {
	t.Parallel()

	env := setupServices(t)
	ctx := context.Background()
	flow := createFlow(t, env, "tenant-1")
	draft := createValidDraft(t, env, flow)

	record, err := env.promotions.Promote(ctx, "tenant-1", draft.ID, models.VersionStatusLive, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.VersionStatusLive, record.Version.Status)
	assert.Nil(t, record.Demoted)
}

func TestPromotionServiceReplacingLiveArchivesPredecessor(t *testing.T) {
	t.Parallel()

	env := setupServices(t)
	ctx := context.Background()
	flow := createFlow(t, env, "tenant-1")

	first := createValidDraft(t, env, flow)
	_, err := env.promotions.Promote(ctx, "tenant-1", first.ID, models.VersionStatusLive, "alice")
	require.NoError(t, err)

	second := createValidDraft(t, env, flow)

	record, err := env.promotions.Promote(ctx, "tenant-1", second.ID, models.VersionStatusLive, "bob")
	require.NoError(t, err)
	require.NotNil(t, record.Demoted)
	assert.Equal(t, first.ID, record.Demoted.ID)
	assert.Equal(t, models.VersionStatusArchived, record.Demoted.Status)

	live, err := env.versions.GetLive(ctx, "tenant-1", flow.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, live.ID)
}

func TestPromotionServiceStagedReplacementArchivesPredecessor(t *testing.T) {
	t.Parallel()

	env := setupServices(t)
	ctx := context.Background()
	flow := createFlow(t, env, "tenant-1")

	first := createValidDraft(t, env, flow)
	_, err := env.promotions.Promote(ctx, "tenant-1", first.ID, models.VersionStatusStaged, "alice")
	require.NoError(t, err)

	// Staging a second candidate supersedes the first; at most one staged
	// version may exist per flow.
	second := createValidDraft(t, env, flow)

	record, err := env.promotions.Promote(ctx, "tenant-1", second.ID, models.VersionStatusStaged, "bob")
	require.NoError(t, err)
	require.NotNil(t, record.Demoted)
	assert.Equal(t, first.ID, record.Demoted.ID)
	assert.Equal(t, models.VersionStatusArchived, record.Demoted.Status)

	versions, err := env.versions.ListByFlow(ctx, "tenant-1", flow.ID)
	require.NoError(t, err)

	staged := 0

	for _, version := range versions {
		if version.Status == models.VersionStatusStaged {
			staged++
		}
	}

	assert.Equal(t, 1, staged, "at most one staged version per flow")
}

func TestPromotionServiceRequiresActor(t *testing.T) {
	t.Parallel()

	env := setupServices(t)
	ctx := context.Background()
	flow := createFlow(t, env, "tenant-1")
	draft := createValidDraft(t, env, flow)

	t.Run("promote without promoted_by", func(t *testing.T) {
		_, err := env.promotions.Promote(ctx, "tenant-1", draft.ID, models.VersionStatusStaged, "")
		require.Error(t, err)
		assert.True(t, services.IsValidationError(err))
		assert.ErrorIs(t, err, services.ErrPromotedByRequired)
	})

	t.Run("archive without archived_by", func(t *testing.T) {
		_, err := env.promotions.Archive(ctx, "tenant-1", draft.ID, "")
		require.Error(t, err)
		assert.True(t, services.IsValidationError(err))
		assert.ErrorIs(t, err, services.ErrArchivedByRequired)
	})
}

func TestPromotionServiceInvalidTarget(t *testing.T) {
	t.Parallel()

	env := setupServices(t)
	ctx := context.Background()
	flow := createFlow(t, env, "tenant-1")
	draft := createValidDraft(t, env, flow)

	for _, target := range []models.VersionStatus{
		models.VersionStatusDraft,
		models.VersionStatusArchived,
		models.VersionStatus("published"),
	} {
		_, err := env.promotions.Promote(ctx, "tenant-1", draft.ID, target, "alice")
		require.Error(t, err, "target %s", target)
		assert.True(t, services.IsValidationError(err))
		assert.ErrorIs(t, err, services.ErrInvalidTarget)
	}
}

func TestPromotionServiceMissingVersion(t *testing.T) {
	t.Parallel()

	env := setupServices(t)

	_, err := env.promotions.Promote(context.Background(), "tenant-1", "missing", models.VersionStatusStaged, "alice")
	require.Error(t, err)
	assert.True(t, services.IsNotFoundError(err))
}

func TestPromotionServiceInvalidGraphBlocksPromotion(t *testing.T) {
	t.Parallel()

	env := setupServices(t)
	ctx := context.Background()
	flow := createFlow(t, env, "tenant-1")

	// The fresh draft's skeleton graph has no nodes, which is a validation
	// error and must block both staged and live promotion.
	draft, err := env.versions.CreateDraft(ctx, "tenant-1", flow.ID, "")
	require.NoError(t, err)

	for _, target := range []models.VersionStatus{models.VersionStatusStaged, models.VersionStatusLive} {
		_, err := env.promotions.Promote(ctx, "tenant-1", draft.ID, target, "alice")
		require.Error(t, err, "target %s", target)
		assert.True(t, services.IsGraphValidationError(err))

		var graphErr *services.GraphValidationError

		require.True(t, errors.As(err, &graphErr))
		assert.False(t, graphErr.Result.Valid)
		require.NotEmpty(t, graphErr.Result.Errors)
		assert.Equal(t, validation.CodeEmptyGraph, graphErr.Result.Errors[0].Code)
	}
}

func TestPromotionServiceWarningsDoNotBlock(t *testing.T) {
	t.Parallel()

	env := setupServices(t)
	ctx := context.Background()
	flow := createFlow(t, env, "tenant-1")

	draft, err := env.versions.CreateDraft(ctx, "tenant-1", flow.ID, "")
	require.NoError(t, err)

	// start -> say loop with no end node: valid, but warns.
	graph := testutil.CreateTestGraph(
		testutil.CreateTestNode(
			testutil.WithID("start-1"),
			testutil.WithType(models.NodeTypeStart, models.StartConfig{Greeting: "Hello"}),
			testutil.WithConnections(testutil.Conn("next", "say-1")),
		),
		testutil.CreateTestNode(
			testutil.WithID("say-1"),
			testutil.WithConnections(testutil.Conn("", "say-1")),
		),
	)

	_, err = env.versions.UpdateDraftGraph(ctx, "tenant-1", draft.ID, graph)
	require.NoError(t, err)

	record, err := env.promotions.Promote(ctx, "tenant-1", draft.ID, models.VersionStatusStaged, "alice")
	require.NoError(t, err, "warnings must not block promotion")
	assert.Equal(t, models.VersionStatusStaged, record.Version.Status)
}

func TestPromotionServiceInvalidTransition(t *testing.T) {
	t.Parallel()

	env := setupServices(t)
	ctx := context.Background()
	flow := createFlow(t, env, "tenant-1")
	draft := createValidDraft(t, env, flow)

	_, err := env.promotions.Promote(ctx, "tenant-1", draft.ID, models.VersionStatusLive, "alice")
	require.NoError(t, err)

	_, err = env.promotions.Promote(ctx, "tenant-1", draft.ID, models.VersionStatusLive, "alice")
	require.Error(t, err)
	assert.True(t, services.IsInvalidStateError(err))
	assert.ErrorIs(t, err, services.ErrInvalidTransition)
}

func TestPromotionServiceArchive(t *testing.T) {
	t.Parallel()

	env := setupServices(t)
	ctx := context.Background()
	flow := createFlow(t, env, "tenant-1")
	draft := createValidDraft(t, env, flow)

	archived, err := env.promotions.Archive(ctx, "tenant-1", draft.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.VersionStatusArchived, archived.Status)

	t.Run("archiving twice fails", func(t *testing.T) {
		_, err := env.promotions.Archive(ctx, "tenant-1", draft.ID, "alice")
		require.Error(t, err)
		assert.True(t, services.IsInvalidStateError(err))
		assert.ErrorIs(t, err, services.ErrInvalidTransition)
	})

	t.Run("archiving a missing version fails", func(t *testing.T) {
		_, err := env.promotions.Archive(ctx, "tenant-1", "missing", "alice")
		require.Error(t, err)
		assert.True(t, services.IsNotFoundError(err))
	})
}

func TestPromotionServiceArchiveLiveFails(t *testing.T) {
	t.Parallel()

	env := setupServices(t)
	ctx := context.Background()
	flow := createFlow(t, env, "tenant-1")
	draft := createValidDraft(t, env, flow)

	_, err := env.promotions.Promote(ctx, "tenant-1", draft.ID, models.VersionStatusLive, "alice")
	require.NoError(t, err)

	_, err = env.promotions.Archive(ctx, "tenant-1", draft.ID, "alice")
	require.Error(t, err)
	assert.True(t, services.IsInvalidStateError(err))
	assert.ErrorIs(t, err, services.ErrVersionLive)
}

func TestPromotionServicePublishesAuditEvent(t *testing.T) {
	t.Parallel()

	env := setupServices(t)
	ctx := context.Background()
	flow := createFlow(t, env, "tenant-1")
	draft := createValidDraft(t, env, flow)

	received := make(chan any, 1)

	require.NoError(t, env.eventBus.Handle(events.VersionPromotedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))
	require.NoError(t, env.eventBus.Subscribe(ctx))

	_, err := env.promotions.Promote(ctx, "tenant-1", draft.ID, models.VersionStatusLive, "alice")
	require.NoError(t, err)

	select {
	case raw := <-received:
		event, ok := raw.(*events.VersionPromoted)
		require.True(t, ok, "unexpected event payload %T", raw)
		assert.Equal(t, draft.ID, event.VersionID)
		assert.Equal(t, models.VersionStatusLive, event.Target)
		assert.Equal(t, "alice", event.PromotedBy)
		assert.Equal(t, "tenant-1", event.TenantID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the promotion audit event")
	}
}

func TestPromotionServicePublishesArchiveAuditEvent(t *testing.T) {
	t.Parallel()

	env := setupServices(t)
	ctx := context.Background()
	flow := createFlow(t, env, "tenant-1")
	draft := createValidDraft(t, env, flow)

	received := make(chan any, 1)

	require.NoError(t, env.eventBus.Handle(events.VersionArchivedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))
	require.NoError(t, env.eventBus.Subscribe(ctx))

	_, err := env.promotions.Archive(ctx, "tenant-1", draft.ID, "carol")
	require.NoError(t, err)

	select {
	case raw := <-received:
		event, ok := raw.(*events.VersionArchived)
		require.True(t, ok, "unexpected event payload %T", raw)
		assert.Equal(t, draft.ID, event.VersionID)
		assert.Equal(t, models.VersionStatusDraft, event.PriorStatus)
		assert.Equal(t, "carol", event.ArchivedBy)
		assert.Equal(t, "tenant-1", event.TenantID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the archive audit event")
	}
}
