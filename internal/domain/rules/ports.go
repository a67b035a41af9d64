package rules

import "context"

// RuleRepository defines the storage interface for persisting detection rules.
// Implementations provide durable storage so rule definitions survive service
// restarts and can be shared between workers.
type RuleRepository interface {
	// SaveRule persists a single rule, inserting or updating by rule ID.
	SaveRule(ctx context.Context, rule Rule) error

	// ListEnabledRules retrieves every enabled rule.
	ListEnabledRules(ctx context.Context) ([]Rule, error)

	// ListRules retrieves every rule regardless of enabled state.
	ListRules(ctx context.Context) ([]Rule, error)
}
