package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/SaTyAbHr2005/sentrix/internal/domain/events"
	domain "github.com/SaTyAbHr2005/sentrix/internal/domain/rules"
	"github.com/SaTyAbHr2005/sentrix/internal/infra/eventbus/memory"
)

type recordingRuleRepo struct {
	fakeRuleRepo
	saved []domain.Rule
}

func (r *recordingRuleRepo) SaveRule(_ context.Context, rule domain.Rule) error {
	r.saved = append(r.saved, rule)
	return nil
}

func TestListener_AppliesUpdateAndInvalidatesCache(t *testing.T) {
	t.Parallel()

	repo := &recordingRuleRepo{}
	cache := NewCache(repo, 0, testLogger())
	service := NewService(repo, nil, testLogger(), noop.NewTracerProvider().Tracer("test"))
	listener := NewListener(service, cache, testLogger())

	bus := memory.NewEventBus()
	require.NoError(t, listener.Subscribe(context.Background(), bus))

	// Prime the cache so invalidation is observable via a second repo hit.
	cache.Rules(context.Background())
	callsBefore := repo.calls

	msg := domain.RuleMessage{
		Rule: domain.Rule{
			RuleID:  "slack-webhook",
			Label:   "Slack Webhook",
			Pattern: `hooks\.slack\.com/services/[A-Za-z0-9/_-]+`,
			Enabled: true,
		},
	}
	msg.Hash = msg.Rule.GenerateHash()

	evt := domain.NewRuleUpdatedEvent(msg)
	err := bus.Publish(context.Background(), events.EventEnvelope{
		Type:    domain.EventTypeRulesUpdated,
		Payload: evt,
	})
	require.NoError(t, err)

	require.Len(t, repo.saved, 1)
	assert.Equal(t, "slack-webhook", repo.saved[0].RuleID)
	assert.NotEmpty(t, repo.saved[0].Category, "category derived when unset")

	cache.Rules(context.Background())
	assert.Greater(t, repo.calls, callsBefore, "cache refreshed after invalidation")
}

func TestListener_RejectsUnexpectedPayload(t *testing.T) {
	t.Parallel()

	repo := &recordingRuleRepo{}
	cache := NewCache(repo, 0, testLogger())
	service := NewService(repo, nil, testLogger(), noop.NewTracerProvider().Tracer("test"))
	listener := NewListener(service, cache, testLogger())

	bus := memory.NewEventBus()
	require.NoError(t, listener.Subscribe(context.Background(), bus))

	err := bus.Publish(context.Background(), events.EventEnvelope{
		Type:    domain.EventTypeRulesUpdated,
		Payload: "not a rule event",
	})
	require.Error(t, err)
	assert.Empty(t, repo.saved)
}
