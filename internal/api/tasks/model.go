package tasks

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
)

// taskResponse is the wire representation of a scan task.
type taskResponse struct {
	ID                  string                     `json:"id"`
	SeedURL             string                     `json:"seed_url"`
	Status              string                     `json:"status"`
	EnumerateSubdomains bool                       `json:"enumerate_subdomains"`
	AssetCap            int                        `json:"asset_cap"`
	CancelRequested     bool                       `json:"cancel_requested"`
	StageResults        map[string]json.RawMessage `json:"stage_results,omitempty"`
	CreatedAt           time.Time                  `json:"created_at"`
	UpdatedAt           time.Time                  `json:"updated_at"`
}

// Encode implements the web.Encoder interface.
func (tr taskResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(tr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

func toTaskResponse(task *scanning.Task) taskResponse {
	var stageResults map[string]json.RawMessage
	if len(task.StageResults()) > 0 {
		stageResults = make(map[string]json.RawMessage, len(task.StageResults()))
		for stage, result := range task.StageResults() {
			stageResults[string(stage)] = result
		}
	}

	return taskResponse{
		ID:                  task.ID().String(),
		SeedURL:             task.SeedURL(),
		Status:              task.Status().String(),
		EnumerateSubdomains: task.EnumerateSubdomains(),
		AssetCap:            task.AssetCap(),
		CancelRequested:     task.CancelRequested(),
		StageResults:        stageResults,
		CreatedAt:           task.CreatedAt(),
		UpdatedAt:           task.UpdatedAt(),
	}
}

// submitResponse is returned when a scan is accepted for processing.
type submitResponse struct {
	taskResponse
}

// HTTPStatus implements the httpStatus interface to set the response status code.
func (sr submitResponse) HTTPStatus() int { return http.StatusAccepted }

// taskListResponse is a page of tasks, newest first.
type taskListResponse struct {
	Tasks  []taskResponse `json:"tasks"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// Encode implements the web.Encoder interface.
func (tlr taskListResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(tlr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// findingResponse is the wire representation of a finding and its stage
// enrichments. Enrichment sections are nil until the owning stage commits.
type findingResponse struct {
	ID           string                     `json:"id"`
	TaskID       string                     `json:"task_id"`
	AssetID      string                     `json:"asset_id"`
	RuleID       string                     `json:"rule_id"`
	RuleLabel    string                     `json:"rule_label"`
	Category     string                     `json:"category"`
	RuleSeverity string                     `json:"rule_severity"`
	Method       string                     `json:"method"`
	Match        string                     `json:"match"`
	Context      string                     `json:"context"`
	SourcePath   string                     `json:"source_path"`
	Validation   *scanning.ValidationResult `json:"validation,omitempty"`
	Osint        *scanning.OsintContext     `json:"osint,omitempty"`
	Risk         *scanning.RiskAssessment   `json:"risk,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`
}

func toFindingResponse(f *scanning.Finding) findingResponse {
	return findingResponse{
		ID:           f.ID().String(),
		TaskID:       f.TaskID().String(),
		AssetID:      f.AssetID().String(),
		RuleID:       f.RuleID(),
		RuleLabel:    f.RuleLabel(),
		Category:     f.Category(),
		RuleSeverity: string(f.RuleSeverity()),
		Method:       string(f.Method()),
		Match:        f.Match(),
		Context:      f.Context(),
		SourcePath:   f.SourcePath(),
		Validation:   f.Validation(),
		Osint:        f.Osint(),
		Risk:         f.Risk(),
		CreatedAt:    f.CreatedAt(),
	}
}

// findingListResponse is the set of findings for one task.
type findingListResponse struct {
	Findings []findingResponse `json:"findings"`
}

// Encode implements the web.Encoder interface.
func (flr findingListResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(flr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// assetResponse is the wire representation of a discovered asset. Content is
// omitted; only its size is reported.
type assetResponse struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"task_id"`
	PageURL      string    `json:"page_url"`
	SourceURL    string    `json:"source_url,omitempty"`
	Origin       string    `json:"origin"`
	ContentHash  string    `json:"content_hash"`
	ContentSize  int       `json:"content_size"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

func toAssetResponse(a *scanning.Asset) assetResponse {
	return assetResponse{
		ID:           a.ID().String(),
		TaskID:       a.TaskID().String(),
		PageURL:      a.PageURL(),
		SourceURL:    a.SourceURL(),
		Origin:       string(a.Origin()),
		ContentHash:  a.ContentHash(),
		ContentSize:  len(a.Content()),
		DiscoveredAt: a.DiscoveredAt(),
	}
}

// assetListResponse is the set of assets discovered for one task.
type assetListResponse struct {
	Assets []assetResponse `json:"assets"`
}

// Encode implements the web.Encoder interface.
func (alr assetListResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(alr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// endpointResponse is the wire representation of an extracted endpoint.
type endpointResponse struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	AssetID   string    `json:"asset_id"`
	Value     string    `json:"value"`
	Context   string    `json:"context,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// endpointListResponse is the set of endpoints extracted for one task.
type endpointListResponse struct {
	Endpoints []endpointResponse `json:"endpoints"`
}

// Encode implements the web.Encoder interface.
func (elr endpointListResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(elr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// logEntryResponse is the wire representation of a task progress entry.
type logEntryResponse struct {
	Stage     string    `json:"stage"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// logListResponse is a task's progress log in creation order.
type logListResponse struct {
	Logs []logEntryResponse `json:"logs"`
}

// Encode implements the web.Encoder interface.
func (llr logListResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(llr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// deleteAllResponse reports how many tasks a bulk delete removed.
type deleteAllResponse struct {
	Deleted int64 `json:"deleted"`
}

// Encode implements the web.Encoder interface.
func (dar deleteAllResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(dar)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

// statsResponse carries the status, severity and category rollups.
type statsResponse struct {
	TasksByStatus      map[string]int64 `json:"tasks_by_status"`
	FindingsBySeverity map[string]int64 `json:"findings_by_severity"`
	FindingsByCategory map[string]int64 `json:"findings_by_category"`
}

// Encode implements the web.Encoder interface.
func (sr statsResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(sr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}

func toStatsResponse(o Overview) statsResponse {
	resp := statsResponse{
		TasksByStatus:      make(map[string]int64, len(o.TasksByStatus)),
		FindingsBySeverity: make(map[string]int64, len(o.FindingsBySeverity)),
		FindingsByCategory: o.FindingsByCategory,
	}
	for status, count := range o.TasksByStatus {
		resp.TasksByStatus[string(status)] = count
	}
	for severity, count := range o.FindingsBySeverity {
		resp.FindingsBySeverity[string(severity)] = count
	}
	if resp.FindingsByCategory == nil {
		resp.FindingsByCategory = make(map[string]int64)
	}
	return resp
}

// heatmapResponse carries finding counts bucketed by category and severity.
type heatmapResponse struct {
	Cells []scanning.HeatmapCell `json:"cells"`
}

// Encode implements the web.Encoder interface.
func (hr heatmapResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(hr)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json", nil
}
