package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/SaTyAbHr2005/sentrix/internal/api/mux"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/events"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/rules"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
)

type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*scanning.Task
}

func newMemTaskRepo(tasks ...*scanning.Task) *memTaskRepo {
	repo := &memTaskRepo{tasks: make(map[uuid.UUID]*scanning.Task)}
	for _, t := range tasks {
		repo.tasks[t.ID()] = t
	}
	return repo
}

func (r *memTaskRepo) CreateTask(_ context.Context, task *scanning.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID()] = task
	return nil
}

func (r *memTaskRepo) GetTask(_ context.Context, id uuid.UUID) (*scanning.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, scanning.ErrTaskNotFound
	}
	return task, nil
}

func (r *memTaskRepo) UpdateTask(_ context.Context, task *scanning.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID()] = task
	return nil
}

func (r *memTaskRepo) ListTasks(_ context.Context, limit, offset int) ([]*scanning.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*scanning.Task
	for _, t := range r.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (r *memTaskRepo) DeleteTask(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return scanning.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *memTaskRepo) DeleteAllTasks(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.tasks))
	r.tasks = make(map[uuid.UUID]*scanning.Task)
	return n, nil
}

type memAssetRepo struct{ assets []*scanning.Asset }

func (r *memAssetRepo) CreateAsset(context.Context, *scanning.Asset) error { return nil }
func (r *memAssetRepo) GetAsset(context.Context, uuid.UUID) (*scanning.Asset, error) {
	return nil, nil
}
func (r *memAssetRepo) ListAssetsByTask(context.Context, uuid.UUID) ([]*scanning.Asset, error) {
	return r.assets, nil
}
func (r *memAssetRepo) CountAssetsByTask(context.Context, uuid.UUID) (int64, error) {
	return int64(len(r.assets)), nil
}

type memFindingRepo struct{ findings []*scanning.Finding }

func (r *memFindingRepo) CreateFindings(context.Context, []*scanning.Finding) error { return nil }
func (r *memFindingRepo) ListFindingsByTask(context.Context, uuid.UUID) ([]*scanning.Finding, error) {
	return r.findings, nil
}
func (r *memFindingRepo) UpdateEnrichment(context.Context, *scanning.Finding) error { return nil }
func (r *memFindingRepo) ListValidatedMatchesExcludingTask(context.Context, uuid.UUID) (map[string]struct{}, error) {
	return nil, nil
}

type memEndpointRepo struct{}

func (memEndpointRepo) CreateEndpoints(context.Context, []*scanning.Endpoint) error { return nil }
func (memEndpointRepo) ListEndpointsByTask(context.Context, uuid.UUID) ([]*scanning.Endpoint, error) {
	return nil, nil
}

type memLogRepo struct{}

func (memLogRepo) AppendLog(context.Context, *scanning.TaskLog) error { return nil }
func (memLogRepo) ListLogsByTask(context.Context, uuid.UUID) ([]*scanning.TaskLog, error) {
	return nil, nil
}

type memStatsRepo struct{}

func (memStatsRepo) CountTasksByStatus(context.Context) (map[scanning.TaskStatus]int64, error) {
	return map[scanning.TaskStatus]int64{scanning.TaskStatusFinished: 3}, nil
}
func (memStatsRepo) CountFindingsBySeverity(context.Context) (map[scanning.RiskSeverity]int64, error) {
	return map[scanning.RiskSeverity]int64{scanning.RiskSeverityHigh: 2}, nil
}
func (memStatsRepo) CountFindingsByCategory(context.Context) (map[string]int64, error) {
	return map[string]int64{"AWS": 2}, nil
}
func (memStatsRepo) CategorySeverityHeatmap(context.Context) ([]scanning.HeatmapCell, error) {
	return []scanning.HeatmapCell{{Category: "AWS", Severity: scanning.RiskSeverityHigh, Count: 2}}, nil
}

type memRuleRepo struct {
	mu    sync.Mutex
	rules map[string]rules.Rule
}

func newMemRuleRepo() *memRuleRepo {
	return &memRuleRepo{rules: make(map[string]rules.Rule)}
}

func (r *memRuleRepo) SaveRule(_ context.Context, rule rules.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.RuleID] = rule
	return nil
}

func (r *memRuleRepo) ListEnabledRules(ctx context.Context) ([]rules.Rule, error) {
	all, _ := r.ListRules(ctx)
	var out []rules.Rule
	for _, rule := range all {
		if rule.Enabled {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *memRuleRepo) ListRules(context.Context) ([]rules.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]rules.Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	return out, nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *memPublisher) PublishDomainEvent(_ context.Context, evt events.DomainEvent, _ ...events.PublishOption) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func newTestServer(t *testing.T, repo *memTaskRepo, pub *memPublisher) *httptest.Server {
	srv, _ := newTestServerWithRules(t, repo, pub)
	return srv
}

func newTestServerWithRules(t *testing.T, repo *memTaskRepo, pub *memPublisher) (*httptest.Server, *memRuleRepo) {
	t.Helper()

	ruleRepo := newMemRuleRepo()
	cfg := mux.Config{
		Build:     "test",
		Log:       logger.New(io.Discard, logger.LevelError, "test", nil),
		Tracer:    noop.NewTracerProvider().Tracer("test"),
		EventBus:  pub,
		Tasks:     repo,
		Assets:    &memAssetRepo{},
		Findings:  &memFindingRepo{},
		Endpoints: memEndpointRepo{},
		TaskLogs:  memLogRepo{},
		Stats:     memStatsRepo{},
		Rules:     ruleRepo,
	}

	srv := httptest.NewServer(mux.WebAPI(cfg, Routes()))
	t.Cleanup(srv.Close)
	return srv, ruleRepo
}

func TestSubmitEndpoint_AcceptsValidRequest(t *testing.T) {
	t.Parallel()

	repo := newMemTaskRepo()
	pub := &memPublisher{}
	srv := newTestServer(t, repo, pub)

	body := bytes.NewBufferString(`{"seed_url":"https://example.com","enumerate_subdomains":true}`)
	res, err := http.Post(srv.URL+"/v1/tasks", "application/json", body)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusAccepted, res.StatusCode)

	var resp struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	assert.Equal(t, scanning.TaskStatusQueued.String(), resp.Status)

	id, err := uuid.Parse(resp.ID)
	require.NoError(t, err)
	_, err = repo.GetTask(context.Background(), id)
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
}

func TestSubmitEndpoint_RejectsInvalidSeedURL(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newMemTaskRepo(), &memPublisher{})

	body := bytes.NewBufferString(`{"seed_url":"not a url"}`)
	res, err := http.Post(srv.URL+"/v1/tasks", "application/json", body)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestGetEndpoint_UnknownTaskIs404(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newMemTaskRepo(), &memPublisher{})

	res, err := http.Get(srv.URL + "/v1/tasks/" + uuid.NewString())
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestStopEndpoint_TerminalTaskIsConflict(t *testing.T) {
	t.Parallel()

	task := scanning.NewTask("https://example.com", false, 0)
	require.NoError(t, task.UpdateStatus(scanning.TaskStatusFinished))
	srv := newTestServer(t, newMemTaskRepo(task), &memPublisher{})

	res, err := http.Post(srv.URL+"/v1/tasks/"+task.ID().String()+"/stop", "application/json", nil)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestDeleteEndpoint_RemovesTask(t *testing.T) {
	t.Parallel()

	task := scanning.NewTask("https://example.com", false, 0)
	repo := newMemTaskRepo(task)
	srv := newTestServer(t, repo, &memPublisher{})

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/tasks/"+task.ID().String(), nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	_, err = repo.GetTask(context.Background(), task.ID())
	assert.ErrorIs(t, err, scanning.ErrTaskNotFound)
}

func TestStatsEndpoints_ReturnRollups(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newMemTaskRepo(), &memPublisher{})

	res, err := http.Get(srv.URL + "/v1/stats")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var stats struct {
		TasksByStatus      map[string]int64 `json:"tasks_by_status"`
		FindingsBySeverity map[string]int64 `json:"findings_by_severity"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&stats))
	assert.Equal(t, int64(3), stats.TasksByStatus["FINISHED"])
	assert.Equal(t, int64(2), stats.FindingsBySeverity[string(scanning.RiskSeverityHigh)])

	res2, err := http.Get(srv.URL + "/v1/stats/heatmap")
	require.NoError(t, err)
	defer res2.Body.Close()
	require.Equal(t, http.StatusOK, res2.StatusCode)

	var heatmap struct {
		Cells []scanning.HeatmapCell `json:"cells"`
	}
	require.NoError(t, json.NewDecoder(res2.Body).Decode(&heatmap))
	require.Len(t, heatmap.Cells, 1)
	assert.Equal(t, "AWS", heatmap.Cells[0].Category)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newMemTaskRepo(), &memPublisher{})

	res, err := http.Get(srv.URL + "/v1/health")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestPatternImportEndpoint_UpsertsAndBroadcasts(t *testing.T) {
	t.Parallel()

	pub := &memPublisher{}
	srv, ruleRepo := newTestServerWithRules(t, newMemTaskRepo(), pub)

	body := bytes.NewBufferString(`
patterns:
  - pattern:
      name: custom_aws_key
      regex: "AKIA[0-9A-Z]{16}"
      confidence: high
`)
	res, err := http.Post(srv.URL+"/v1/patterns/import", "application/x-yaml", body)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var resp struct {
		Imported int `json:"imported"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Imported)

	saved, err := ruleRepo.ListRules(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "custom_aws_key", saved[0].RuleID)
	assert.True(t, saved[0].Enabled)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.events, 1)

	list, err := http.Get(srv.URL + "/v1/patterns")
	require.NoError(t, err)
	defer list.Body.Close()
	require.Equal(t, http.StatusOK, list.StatusCode)

	var listing struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.NewDecoder(list.Body).Decode(&listing))
	assert.Equal(t, 1, listing.Total)
}

func TestPatternImportEndpoint_RejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, newMemTaskRepo(), &memPublisher{})

	body := bytes.NewBufferString(`{not yaml: [`)
	res, err := http.Post(srv.URL+"/v1/patterns/import", "application/x-yaml", body)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
