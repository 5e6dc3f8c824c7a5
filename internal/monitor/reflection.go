package monitor

import (
	"levee/internal/config"
	"levee/internal/logging"
)

// TriggerKind names a reflection trigger.
type TriggerKind string

const (
	// TriggerCrisis fires for every actor category after a crisis event
	// unless disabled in config.
	TriggerCrisis TriggerKind = "CRISIS"

	// TriggerPeriodic fires when the year is a positive multiple of the
	// configured interval. Year 0 never fires.
	TriggerPeriodic TriggerKind = "PERIODIC"

	// TriggerDecision fires when the latest decision's type appears in
	// the configured list.
	TriggerDecision TriggerKind = "DECISION"

	// TriggerInstitutional fires for designated institutional categories
	// when the policy-change magnitude exceeds the threshold.
	TriggerInstitutional TriggerKind = "INSTITUTIONAL"
)

// TriggerContext carries the per-check facts a trigger may consume.
type TriggerContext struct {
	// LastDecision is the actor's most recent decision type.
	LastDecision string

	// PolicyChangeMagnitude measures how much institutional policy moved
	// this step.
	PolicyChangeMagnitude float64
}

// ShouldReflectTriggered is the per-(actor, year) reflection predicate.
// Unknown trigger kinds never fire.
func ShouldReflectTriggered(actorID, actorCategory string, year int, kind TriggerKind, cfg config.ReflectionConfig, ctx TriggerContext) bool {
	fired := false
	switch kind {
	case TriggerCrisis:
		fired = cfg.Crisis
	case TriggerPeriodic:
		fired = cfg.PeriodicInterval > 0 && year > 0 && year%cfg.PeriodicInterval == 0
	case TriggerDecision:
		for _, t := range cfg.DecisionTypes {
			if t == ctx.LastDecision {
				fired = true
				break
			}
		}
	case TriggerInstitutional:
		for _, cat := range cfg.InstitutionalCategories {
			if cat == actorCategory {
				fired = ctx.PolicyChangeMagnitude > cfg.InstitutionalThreshold
				break
			}
		}
	}

	if fired {
		logging.Get(logging.CategoryReflection).Debug("%s trigger fired for %s (%s) year %d",
			kind, actorID, actorCategory, year)
	}
	return fired
}

// ShouldReflect is the legacy single-interval predicate for callers that
// do not use the multi-trigger configuration.
func ShouldReflect(actorID string, year, interval int) bool {
	return interval > 0 && year > 0 && year%interval == 0
}
