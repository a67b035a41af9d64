package rules

import (
	"context"
	"fmt"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/events"
	domain "github.com/SaTyAbHr2005/sentrix/internal/domain/rules"
	"github.com/SaTyAbHr2005/sentrix/pkg/common/logger"
)

// Listener applies rule updates broadcast on the rules topic: each update is
// persisted through the service and the compiled rule cache is invalidated so
// the next detection run picks the change up.
type Listener struct {
	service *Service
	cache   *Cache
	logger  *logger.Logger
}

// NewListener creates a rule update listener.
func NewListener(service *Service, cache *Cache, log *logger.Logger) *Listener {
	return &Listener{
		service: service,
		cache:   cache,
		logger:  log.With("component", "rule_listener"),
	}
}

// Subscribe registers the listener on the rule update stream.
func (l *Listener) Subscribe(ctx context.Context, bus events.EventBus) error {
	return bus.Subscribe(ctx, []events.EventType{domain.EventTypeRulesUpdated}, l.handleEvent)
}

func (l *Listener) handleEvent(ctx context.Context, evt events.EventEnvelope, ack events.AckFunc) error {
	ruleEvt, ok := evt.Payload.(domain.RuleUpdatedEvent)
	if !ok {
		err := fmt.Errorf("unexpected rule event payload %T", evt.Payload)
		ack(err)
		return err
	}

	if err := l.service.SaveRule(ctx, ruleEvt.Rule.Rule); err != nil {
		l.logger.Error(ctx, "Failed to apply rule update", "rule_id", ruleEvt.Rule.RuleID, "error", err)
		ack(err)
		return err
	}

	l.cache.Invalidate()
	l.logger.Info(ctx, "Applied rule update", "rule_id", ruleEvt.Rule.RuleID)
	ack(nil)
	return nil
}
