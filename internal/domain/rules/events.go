package rules

import (
	"time"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/events"
)

const (
	EventTypeRulesUpdated events.EventType = "RulesUpdated"
)

// RuleUpdatedEvent is the strongly typed domain event indicating that a
// detection rule was added or updated. Workers invalidate their cached rule
// snapshot when they observe it.
type RuleUpdatedEvent struct {
	occurredAt time.Time
	Rule       RuleMessage
}

// NewRuleUpdatedEvent creates a new RuleUpdatedEvent, setting the occurrence time to now.
func NewRuleUpdatedEvent(msg RuleMessage) RuleUpdatedEvent {
	return RuleUpdatedEvent{occurredAt: time.Now(), Rule: msg}
}

func (e RuleUpdatedEvent) EventType() events.EventType { return EventTypeRulesUpdated }
func (e RuleUpdatedEvent) OccurredAt() time.Time       { return e.occurredAt }
