// Package governance runs the validate-retry-audit state machine around an
// external generation collaborator. Every failure mode inside the loop is
// data: a parse miss degrades to the default skill, a validation error
// feeds a corrective re-prompt, and retry exhaustion produces a REJECTED
// trace with the fallback skill, never a panic or an error return.
package governance

import (
	"context"
	"fmt"
	"strings"

	"levee/internal/audit"
	"levee/internal/config"
	"levee/internal/logging"
	"levee/internal/perception"
	"levee/internal/roles"
	"levee/internal/types"
)

// Generator produces raw model output for a prompt. Its latency and
// failure modes are outside this package's contract; the retry bound is
// the only circuit breaker around it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ContextBuilder assembles the bounded observable state for one actor.
// Implementations must never include hidden fields; the role table's
// readable scopes define the ceiling.
type ContextBuilder interface {
	Build(actorID string, observableScopes []string) map[string]interface{}
	FormatPrompt(state map[string]interface{}) string
	GetMemory(actorID string) []string
}

// Validator checks one proposal and returns findings. Findings accumulate;
// they are never thrown.
type Validator interface {
	Name() string
	Validate(proposal types.SkillProposal, category string) []audit.RawIssue
}

// Request identifies one decision to govern.
type Request struct {
	ActorID       string
	ActorCategory string
	Step          int

	// Elevated selects the legacy numeric-code table during parsing.
	Elevated bool
}

// Engine wires the adapter, enforcer, validators and audit writer into the
// bounded decision loop.
type Engine struct {
	cfg        config.GovernanceConfig
	generator  Generator
	builder    ContextBuilder
	adapter    *perception.Adapter
	enforcer   *roles.Enforcer
	validators []Validator
	writer     *audit.Writer
}

// NewEngine assembles a governance engine. Decide builds its own adapter
// from the enforcer's skill vocabulary; this constructor takes everything
// else.
func NewEngine(cfg config.GovernanceConfig, gen Generator, builder ContextBuilder, enforcer *roles.Enforcer, writer *audit.Writer, validators ...Validator) *Engine {
	return &Engine{
		cfg:        cfg,
		generator:  gen,
		builder:    builder,
		enforcer:   enforcer,
		validators: validators,
		writer:     writer,
	}
}

// Decide governs one decision end to end and returns the finalized trace.
// The trace is always well formed; callers inspect Outcome, not an error.
// The only error return is context cancellation, which aborts mid-loop.
func (e *Engine) Decide(ctx context.Context, req Request) (types.Trace, error) {
	spec, ok := e.enforcer.SpecFor(req.ActorCategory)
	if !ok {
		// Unknown category fails closed without consuming a generation.
		denied := e.enforcer.CheckSkillPermission(req.ActorCategory, "")
		return e.reject(req, nil, 0, "", []audit.RawIssue{{
			Level:   string(types.SeverityError),
			Tier:    "role",
			Rule:    "known_category",
			Message: denied.Reason,
		}}), nil
	}

	// The adapter recognizes the full skill vocabulary, not just the
	// category's subset; a recognizable but impermissible skill must reach
	// the permission check and drive a corrective retry, not vanish into
	// the parse fallback.
	adapter := perception.NewAdapter(e.enforcer.AllSkills(), e.cfg.FallbackSkill)
	state := e.builder.Build(req.ActorID, spec.CanReadState)
	prompt := e.builder.FormatPrompt(state)
	if memories := e.builder.GetMemory(req.ActorID); len(memories) > 0 {
		prompt = "Relevant memories:\n- " + strings.Join(memories, "\n- ") + "\n\n" + prompt
	}

	var (
		proposal types.SkillProposal
		issues   []audit.RawIssue
		rawOut   string
	)

	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return types.Trace{}, err
		}

		out, err := e.generator.Generate(ctx, prompt)
		if err != nil {
			logging.Governance("generation failed for %s attempt %d: %v", req.ActorID, attempt, err)
			issues = []audit.RawIssue{{
				Level:   string(types.SeverityError),
				Tier:    "generation",
				Rule:    "generator_available",
				Message: err.Error(),
			}}
			continue
		}
		rawOut = out

		proposal = adapter.ParseOutput(out, perception.ParseContext{
			ActorID:  req.ActorID,
			Elevated: req.Elevated,
		})

		issues = e.validate(proposal, req.ActorCategory)
		if !hasError(issues) {
			trace := types.Trace{
				Step:       req.Step,
				ActorID:    req.ActorID,
				Skill:      proposal.Skill,
				Outcome:    types.OutcomeApproved,
				RetryCount: attempt,
				Reasoning:  proposal.Reasoning,
				Prompt:     prompt,
				RawOutput:  proposal.RawOutput,
			}
			logging.Governance("approved %s for %s after %d retries", proposal.Skill, req.ActorID, attempt)
			return e.writer.WriteTrace(req.ActorCategory, trace, issues), nil
		}

		logging.GovernanceDebug("attempt %d for %s rejected: %d issues", attempt, req.ActorID, len(issues))
		prompt = perception.FormatRetryPrompt(prompt, audit.NormalizeIssues(issues))
	}

	return e.reject(req, proposal.Reasoning, e.cfg.MaxRetries, rawOut, issues), nil
}

// reject finalizes a terminal REJECTED trace with the fallback skill.
func (e *Engine) reject(req Request, reasoning map[string]string, retries int, rawOut string, issues []audit.RawIssue) types.Trace {
	trace := types.Trace{
		Step:       req.Step,
		ActorID:    req.ActorID,
		Skill:      e.cfg.FallbackSkill,
		Outcome:    types.OutcomeRejected,
		RetryCount: retries,
		Reasoning:  reasoning,
		RawOutput:  rawOut,
	}
	logging.Governance("rejected %s for %s, fallback %s", req.ActorCategory, req.ActorID, e.cfg.FallbackSkill)
	return e.writer.WriteTrace(req.ActorCategory, trace, issues)
}

// validate runs the permission check and every registered validator.
func (e *Engine) validate(proposal types.SkillProposal, category string) []audit.RawIssue {
	var issues []audit.RawIssue

	perm := e.enforcer.CheckSkillPermission(category, proposal.Skill)
	if !perm.Allowed {
		issues = append(issues, audit.RawIssue{
			Level:   string(types.SeverityError),
			Tier:    "role",
			Rule:    "skill_permitted",
			Message: perm.Reason,
		})
	}

	for _, v := range e.validators {
		for _, issue := range v.Validate(proposal, category) {
			if issue.Rule == "" {
				issue.Rule = v.Name()
			}
			issues = append(issues, issue)
		}
	}
	return issues
}

func hasError(issues []audit.RawIssue) bool {
	for _, is := range issues {
		if types.NormalizeSeverity(is.Level) == types.SeverityError {
			return true
		}
	}
	return false
}

// Describe returns a one-line summary of the engine's wiring for run
// manifests.
func (e *Engine) Describe() string {
	return fmt.Sprintf("governance engine: %d validators, max_retries=%d, fallback=%s",
		len(e.validators), e.cfg.MaxRetries, e.cfg.FallbackSkill)
}
