package postgres

import (
	"context"
	"encoding/json"
	"testing"

	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/internal/infra/storage"
)

func TestTaskStore_CreateAndGet(t *testing.T) {
	t.Parallel()

	pool, cleanup := storage.SetupTestContainer(t)
	defer cleanup()

	store := NewTaskStore(pool, storage.NoOpTracer())
	ctx := context.Background()

	task := scanning.NewTask("https://example.com", true, 100)
	require.NoError(t, store.CreateTask(ctx, task))

	loaded, err := store.GetTask(ctx, task.ID())
	require.NoError(t, err)
	assert.Equal(t, task.ID(), loaded.ID())
	assert.Equal(t, "https://example.com", loaded.SeedURL())
	assert.Equal(t, scanning.TaskStatusQueued, loaded.Status())
	assert.True(t, loaded.EnumerateSubdomains())
	assert.Equal(t, 100, loaded.AssetCap())
}

func TestTaskStore_UpdatePersistsStageResults(t *testing.T) {
	t.Parallel()

	pool, cleanup := storage.SetupTestContainer(t)
	defer cleanup()

	store := NewTaskStore(pool, storage.NoOpTracer())
	ctx := context.Background()

	task := scanning.NewTask("https://example.com", false, 0)
	require.NoError(t, store.CreateTask(ctx, task))

	require.NoError(t, task.UpdateStatus(scanning.TaskStatusRunning))
	task.SetStageResult(scanning.StageDiscovery, json.RawMessage(`{"assets":7}`))
	require.NoError(t, store.UpdateTask(ctx, task))

	loaded, err := store.GetTask(ctx, task.ID())
	require.NoError(t, err)
	assert.Equal(t, scanning.TaskStatusRunning, loaded.Status())

	res, ok := loaded.StageResult(scanning.StageDiscovery)
	require.True(t, ok)
	assert.JSONEq(t, `{"assets":7}`, string(res))
}

func TestTaskStore_GetMissingReturnsNotFound(t *testing.T) {
	t.Parallel()

	pool, cleanup := storage.SetupTestContainer(t)
	defer cleanup()

	store := NewTaskStore(pool, storage.NoOpTracer())

	task := scanning.NewTask("https://example.com", false, 0)
	_, err := store.GetTask(context.Background(), task.ID())
	assert.ErrorIs(t, err, scanning.ErrTaskNotFound)
}

func TestTaskStore_DeleteCascades(t *testing.T) {
	t.Parallel()

	pool, cleanup := storage.SetupTestContainer(t)
	defer cleanup()

	ctx := context.Background()
	taskStore := NewTaskStore(pool, storage.NoOpTracer())
	assetStore := NewAssetStore(pool, storage.NoOpTracer())

	task := scanning.NewTask("https://example.com", false, 0)
	require.NoError(t, taskStore.CreateTask(ctx, task))

	asset := scanning.NewExternalAsset(task.ID(), "https://example.com", "https://example.com/app.js", "var a = 1;")
	require.NoError(t, assetStore.CreateAsset(ctx, asset))

	require.NoError(t, taskStore.DeleteTask(ctx, task.ID()))

	count, err := assetStore.CountAssetsByTask(ctx, task.ID())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAssetStore_DedupeByContentHash(t *testing.T) {
	t.Parallel()

	pool, cleanup := storage.SetupTestContainer(t)
	defer cleanup()

	ctx := context.Background()
	taskStore := NewTaskStore(pool, storage.NoOpTracer())
	assetStore := NewAssetStore(pool, storage.NoOpTracer())

	task := scanning.NewTask("https://example.com", false, 0)
	require.NoError(t, taskStore.CreateTask(ctx, task))

	content := "console.log('hello');"
	a := scanning.NewExternalAsset(task.ID(), "https://example.com", "https://example.com/a.js", content)
	b := scanning.NewExternalAsset(task.ID(), "https://example.com/page", "https://example.com/b.js", content)
	require.NoError(t, assetStore.CreateAsset(ctx, a))
	require.NoError(t, assetStore.CreateAsset(ctx, b))

	count, err := assetStore.CountAssetsByTask(ctx, task.ID())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestFindingStore_EnrichmentRoundTrip(t *testing.T) {
	t.Parallel()

	pool, cleanup := storage.SetupTestContainer(t)
	defer cleanup()

	ctx := context.Background()
	taskStore := NewTaskStore(pool, storage.NoOpTracer())
	assetStore := NewAssetStore(pool, storage.NoOpTracer())
	findingStore := NewFindingStore(pool, storage.NoOpTracer())

	task := scanning.NewTask("https://example.com", false, 0)
	require.NoError(t, taskStore.CreateTask(ctx, task))
	asset := scanning.NewExternalAsset(task.ID(), "https://example.com", "https://example.com/app.js", "token")
	require.NoError(t, assetStore.CreateAsset(ctx, asset))

	finding := scanning.NewFinding(task.ID(), asset.ID(), "jwt-token", "JWT Token", "JWT",
		scanning.RuleSeverityHigh, scanning.DetectionMethodRegex,
		"eyJhbGciOiJIUzI1NiJ9.e30.sig", "ctx snippet", asset.SourcePath())
	require.NoError(t, findingStore.CreateFindings(ctx, []*scanning.Finding{finding}))

	// A retried detection run must not duplicate the finding.
	dup := scanning.NewFinding(task.ID(), asset.ID(), "jwt-token", "JWT Token", "JWT",
		scanning.RuleSeverityHigh, scanning.DetectionMethodRegex,
		"eyJhbGciOiJIUzI1NiJ9.e30.sig", "other snippet", asset.SourcePath())
	require.NoError(t, findingStore.CreateFindings(ctx, []*scanning.Finding{dup}))

	findings, err := findingStore.ListFindingsByTask(ctx, task.ID())
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Nil(t, findings[0].Validation())

	findings[0].ApplyValidation(scanning.ValidationResult{
		Label:      scanning.ValidationLabelValid,
		Confidence: 90,
		Reason:     "structurally valid JWT",
	})
	require.NoError(t, findingStore.UpdateEnrichment(ctx, findings[0]))

	reloaded, err := findingStore.ListFindingsByTask(ctx, task.ID())
	require.NoError(t, err)
	require.Len(t, reloaded, 1)
	require.NotNil(t, reloaded[0].Validation())
	assert.Equal(t, scanning.ValidationLabelValid, reloaded[0].Validation().Label)
	assert.Equal(t, 90, reloaded[0].Validation().Confidence)
}
