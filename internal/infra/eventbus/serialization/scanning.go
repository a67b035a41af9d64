package serialization

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/rules"
	"github.com/SaTyAbHr2005/sentrix/internal/domain/scanning"
)

// RegisterEventSerializers initializes the serialization system by registering
// handlers for all supported event types. Called once during package init,
// before any event processing can occur.
func RegisterEventSerializers() {
	RegisterSerializeFunc(scanning.EventTypeTaskCreated, serializeTaskCreated)
	RegisterDeserializeFunc(scanning.EventTypeTaskCreated, deserializeTaskCreated)

	for _, stage := range scanning.Stages() {
		et := scanning.StageEventType(stage)
		RegisterSerializeFunc(et, serializeStageCompleted)
		RegisterDeserializeFunc(et, deserializeStageCompleted)
	}

	RegisterSerializeFunc(scanning.EventTypeTaskFailed, serializeTaskFailed)
	RegisterDeserializeFunc(scanning.EventTypeTaskFailed, deserializeTaskFailed)

	RegisterSerializeFunc(scanning.EventTypeTaskCancelled, serializeTaskCancelled)
	RegisterDeserializeFunc(scanning.EventTypeTaskCancelled, deserializeTaskCancelled)

	RegisterSerializeFunc(rules.EventTypeRulesUpdated, serializeRuleUpdated)
	RegisterDeserializeFunc(rules.EventTypeRulesUpdated, deserializeRuleUpdated)
}

// Wire DTOs keep the domain event types free of JSON tags.

type taskCreatedWire struct {
	TaskID              uuid.UUID `json:"task_id"`
	SeedURL             string    `json:"seed_url"`
	EnumerateSubdomains bool      `json:"enumerate_subdomains"`
}

func serializeTaskCreated(payload any) ([]byte, error) {
	evt, ok := payload.(scanning.TaskCreatedEvent)
	if !ok {
		return nil, fmt.Errorf("serializeTaskCreated: payload is not TaskCreatedEvent")
	}
	return json.Marshal(taskCreatedWire{
		TaskID:              evt.TaskID,
		SeedURL:             evt.SeedURL,
		EnumerateSubdomains: evt.EnumerateSubdomains,
	})
}

func deserializeTaskCreated(data []byte) (any, error) {
	var w taskCreatedWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal TaskCreated: %w", err)
	}
	return scanning.NewTaskCreatedEvent(w.TaskID, w.SeedURL, w.EnumerateSubdomains), nil
}

type stageCompletedWire struct {
	TaskID uuid.UUID      `json:"task_id"`
	Stage  scanning.Stage `json:"stage"`
}

func serializeStageCompleted(payload any) ([]byte, error) {
	evt, ok := payload.(scanning.StageCompletedEvent)
	if !ok {
		return nil, fmt.Errorf("serializeStageCompleted: payload is not StageCompletedEvent")
	}
	return json.Marshal(stageCompletedWire{TaskID: evt.TaskID, Stage: evt.Stage})
}

func deserializeStageCompleted(data []byte) (any, error) {
	var w stageCompletedWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal StageCompleted: %w", err)
	}
	return scanning.NewStageCompletedEvent(w.TaskID, w.Stage), nil
}

type taskFailedWire struct {
	TaskID uuid.UUID      `json:"task_id"`
	Stage  scanning.Stage `json:"stage"`
	Reason string         `json:"reason"`
}

func serializeTaskFailed(payload any) ([]byte, error) {
	evt, ok := payload.(scanning.TaskFailedEvent)
	if !ok {
		return nil, fmt.Errorf("serializeTaskFailed: payload is not TaskFailedEvent")
	}
	return json.Marshal(taskFailedWire{TaskID: evt.TaskID, Stage: evt.Stage, Reason: evt.Reason})
}

func deserializeTaskFailed(data []byte) (any, error) {
	var w taskFailedWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal TaskFailed: %w", err)
	}
	return scanning.NewTaskFailedEvent(w.TaskID, w.Stage, w.Reason), nil
}

type taskCancelledWire struct {
	TaskID uuid.UUID      `json:"task_id"`
	Stage  scanning.Stage `json:"stage"`
}

func serializeTaskCancelled(payload any) ([]byte, error) {
	evt, ok := payload.(scanning.TaskCancelledEvent)
	if !ok {
		return nil, fmt.Errorf("serializeTaskCancelled: payload is not TaskCancelledEvent")
	}
	return json.Marshal(taskCancelledWire{TaskID: evt.TaskID, Stage: evt.Stage})
}

func deserializeTaskCancelled(data []byte) (any, error) {
	var w taskCancelledWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal TaskCancelled: %w", err)
	}
	return scanning.NewTaskCancelledEvent(w.TaskID, w.Stage), nil
}

type ruleUpdatedWire struct {
	RuleID   string `json:"rule_id"`
	Label    string `json:"label"`
	Pattern  string `json:"pattern"`
	Severity string `json:"severity"`
	Category string `json:"category"`
	Source   string `json:"source"`
	Enabled  bool   `json:"enabled"`
	Hash     string `json:"hash"`
}

func serializeRuleUpdated(payload any) ([]byte, error) {
	evt, ok := payload.(rules.RuleUpdatedEvent)
	if !ok {
		return nil, fmt.Errorf("serializeRuleUpdated: payload is not RuleUpdatedEvent")
	}
	return json.Marshal(ruleUpdatedWire{
		RuleID:   evt.Rule.RuleID,
		Label:    evt.Rule.Label,
		Pattern:  evt.Rule.Pattern,
		Severity: evt.Rule.Severity,
		Category: evt.Rule.Category,
		Source:   evt.Rule.Source,
		Enabled:  evt.Rule.Enabled,
		Hash:     evt.Rule.Hash,
	})
}

func deserializeRuleUpdated(data []byte) (any, error) {
	var w ruleUpdatedWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal RuleUpdated: %w", err)
	}
	msg := rules.RuleMessage{
		Rule: rules.Rule{
			RuleID:   w.RuleID,
			Label:    w.Label,
			Pattern:  w.Pattern,
			Severity: w.Severity,
			Category: w.Category,
			Source:   w.Source,
			Enabled:  w.Enabled,
		},
		Hash: w.Hash,
	}
	return rules.NewRuleUpdatedEvent(msg), nil
}
