package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicetree/voicetree/pkg/models"
	"github.com/voicetree/voicetree/pkg/persistence"
	"github.com/voicetree/voicetree/pkg/persistence/file"
	"github.com/voicetree/voicetree/pkg/testutil"
)

func TestFlowRepositoryCreateAndGet(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	flow := testutil.CreateTestFlow("tenant-1")
	flow.ID = ""

	require.NoError(t, p.Flows().Create(ctx, flow))
	assert.NotEmpty(t, flow.ID, "create assigns an identifier")
	assert.False(t, flow.CreatedAt.IsZero())

	fetched, err := p.Flows().GetByID(ctx, "tenant-1", flow.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, flow.Name, fetched.Name)
	assert.Equal(t, "tenant-1", fetched.TenantID)
}

func TestFlowRepositoryGetMissing(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())

	flow, err := p.Flows().GetByID(context.Background(), "tenant-1", "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, flow, "missing flows are (nil, nil), not an error")
}

func TestFlowRepositoryTenantIsolation(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	flow := testutil.CreateTestFlow("tenant-1")
	require.NoError(t, p.Flows().Create(ctx, flow))

	other, err := p.Flows().GetByID(ctx, "tenant-2", flow.ID)
	require.NoError(t, err)
	assert.Nil(t, other, "flows must not leak across tenants")
}

func TestFlowRepositoryList(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		flow := testutil.CreateTestFlow("tenant-1")
		flow.Name = "Flow " + string(rune('A'+i))
		flow.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, p.Flows().Create(ctx, flow))
	}

	t.Run("returns newest first", func(t *testing.T) {
		result, err := p.Flows().List(ctx, "tenant-1", persistence.ListFlowsOptions{})
		require.NoError(t, err)
		assert.Equal(t, 5, result.Total)
		require.Len(t, result.Flows, 5)
		assert.Equal(t, "Flow E", result.Flows[0].Name)
		assert.Equal(t, "Flow A", result.Flows[4].Name)
	})

	t.Run("paginates", func(t *testing.T) {
		result, err := p.Flows().List(ctx, "tenant-1", persistence.ListFlowsOptions{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, result.Total)
		require.Len(t, result.Flows, 2)
		assert.Equal(t, "Flow C", result.Flows[0].Name)
	})

	t.Run("offset beyond the end is empty", func(t *testing.T) {
		result, err := p.Flows().List(ctx, "tenant-1", persistence.ListFlowsOptions{Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, 5, result.Total)
		assert.Empty(t, result.Flows)
	})

	t.Run("unknown tenant is empty", func(t *testing.T) {
		result, err := p.Flows().List(ctx, "tenant-9", persistence.ListFlowsOptions{})
		require.NoError(t, err)
		assert.Zero(t, result.Total)
		assert.Empty(t, result.Flows)
	})
}

func TestFlowRepositoryUpdate(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	flow := testutil.CreateTestFlow("tenant-1")
	require.NoError(t, p.Flows().Create(ctx, flow))

	flow.Name = "Renamed"
	flow.Description = "Updated description"
	require.NoError(t, p.Flows().Update(ctx, flow))

	fetched, err := p.Flows().GetByID(ctx, "tenant-1", flow.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "Renamed", fetched.Name)
	assert.Equal(t, "Updated description", fetched.Description)
}

func TestFlowRepositoryUpdateMissing(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())

	flow := testutil.CreateTestFlow("tenant-1")

	err := p.Flows().Update(context.Background(), flow)
	require.Error(t, err)
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestFlowRepositoryDelete(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	flow := testutil.CreateTestFlow("tenant-1")
	require.NoError(t, p.Flows().Create(ctx, flow))

	require.NoError(t, p.Flows().Delete(ctx, "tenant-1", flow.ID))

	fetched, err := p.Flows().GetByID(ctx, "tenant-1", flow.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched, "deleted flows are invisible")

	result, err := p.Flows().List(ctx, "tenant-1", persistence.ListFlowsOptions{})
	require.NoError(t, err)
	assert.Zero(t, result.Total, "deleted flows do not appear in listings")

	assert.NoError(t, p.Flows().Delete(ctx, "tenant-1", flow.ID), "deleting twice is not an error")
	assert.NoError(t, p.Flows().Delete(ctx, "tenant-1", "never-existed"))
}

func TestFlowPersistenceHealthCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := file.NewPersistence(dir)

	assert.NoError(t, p.HealthCheck(context.Background()))
	assert.NoError(t, p.Close(context.Background()))

	missing := file.NewPersistence(dir + "/nope")
	assert.Error(t, missing.HealthCheck(context.Background()))
}

func TestFlowRepositoryGraphRoundTrip(t *testing.T) {
	t.Parallel()

	p := file.NewPersistence(t.TempDir())
	ctx := context.Background()

	flow := testutil.CreateTestFlow("tenant-1")
	require.NoError(t, p.Flows().Create(ctx, flow))

	version := &models.FlowVersion{
		FlowID:   flow.ID,
		TenantID: "tenant-1",
		Graph:    testutil.CreateValidGraph(),
	}
	require.NoError(t, p.Versions().Create(ctx, version))

	fetched, err := p.Versions().GetByID(ctx, "tenant-1", version.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	require.NotNil(t, fetched.Graph)
	require.Len(t, fetched.Graph.Nodes, 3)

	start := fetched.Graph.Node("start-1")
	require.NotNil(t, start)

	config, ok := start.Config.(models.StartConfig)
	require.True(t, ok, "configs must round-trip as their concrete types, got %T", start.Config)
	assert.Equal(t, "Welcome!", config.Greeting)
}
