package scanning

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask_Defaults(t *testing.T) {
	task := NewTask("https://example.com", true, 0)

	assert.Equal(t, TaskStatusQueued, task.Status())
	assert.Equal(t, "https://example.com", task.SeedURL())
	assert.True(t, task.EnumerateSubdomains())
	assert.Equal(t, DefaultAssetCap, task.AssetCap())
	assert.False(t, task.CancelRequested())
	assert.Empty(t, task.StageResults())
}

func TestTask_UpdateStatus_EnforcesTransitions(t *testing.T) {
	task := NewTask("https://example.com", false, 50)

	require.NoError(t, task.UpdateStatus(TaskStatusRunning))
	require.NoError(t, task.UpdateStatus(TaskStatusScanning))

	err := task.UpdateStatus(TaskStatusRunning)
	assert.Error(t, err)
	assert.Equal(t, TaskStatusScanning, task.Status())

	require.NoError(t, task.UpdateStatus(TaskStatusStopped))
	assert.Error(t, task.UpdateStatus(TaskStatusFinished))
}

func TestTask_SetStageResult_Overwrites(t *testing.T) {
	task := NewTask("https://example.com", false, 0)

	task.SetStageResult(StageDiscovery, json.RawMessage(`{"assets":3}`))
	task.SetStageResult(StageDiscovery, json.RawMessage(`{"assets":5}`))

	res, ok := task.StageResult(StageDiscovery)
	require.True(t, ok)
	assert.JSONEq(t, `{"assets":5}`, string(res))
	assert.Len(t, task.StageResults(), 1)
}

func TestStage_NextChain(t *testing.T) {
	next, ok := StageDiscovery.Next()
	require.True(t, ok)
	assert.Equal(t, StageDetection, next)

	next, ok = StageCorrelation.Next()
	require.True(t, ok)
	assert.Equal(t, StageRisk, next)

	_, ok = StageRisk.Next()
	assert.False(t, ok)
}

func TestFinding_DedupeKey(t *testing.T) {
	task := NewTask("https://example.com", false, 0)
	asset := NewExternalAsset(task.ID(), "https://example.com", "https://example.com/app.js", "var x = 1;")

	a := NewFinding(task.ID(), asset.ID(), "jwt-token", "JWT Token", "JWT", RuleSeverityHigh,
		DetectionMethodRegex, "eyJhbGciOi...", "ctx", asset.SourcePath())
	b := NewFinding(task.ID(), asset.ID(), "jwt-token", "JWT Token", "JWT", RuleSeverityHigh,
		DetectionMethodAST, "eyJhbGciOi...", "other ctx", asset.SourcePath())
	c := NewFinding(task.ID(), asset.ID(), "jwt-token", "JWT Token", "JWT", RuleSeverityHigh,
		DetectionMethodRegex, "different-match", "ctx", asset.SourcePath())

	assert.Equal(t, a.DedupeKey(), b.DedupeKey(), "same rule, match and source should collide")
	assert.NotEqual(t, a.DedupeKey(), c.DedupeKey())
}

func TestFuseScores(t *testing.T) {
	tests := []struct {
		name      string
		ruleScore int
		mlScore   int
		want      int
	}{
		{name: "ml below rule keeps rule", ruleScore: 70, mlScore: 40, want: 70},
		{name: "ml within uplift window wins", ruleScore: 50, mlScore: 65, want: 65},
		{name: "ml uplift capped at 20", ruleScore: 50, mlScore: 95, want: 70},
		{name: "equal scores unchanged", ruleScore: 60, mlScore: 60, want: 60},
		{name: "result clamped to ceiling", ruleScore: 95, mlScore: 100, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FuseScores(tt.ruleScore, tt.mlScore))
		})
	}
}

func TestSeverityForScore(t *testing.T) {
	assert.Equal(t, RiskSeverityHigh, SeverityForScore(80))
	assert.Equal(t, RiskSeverityMedium, SeverityForScore(79))
	assert.Equal(t, RiskSeverityMedium, SeverityForScore(40))
	assert.Equal(t, RiskSeverityLow, SeverityForScore(39))
	assert.Equal(t, RiskSeverityLow, SeverityForScore(10))
}
