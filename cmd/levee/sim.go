package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"levee/internal/audit"
	"levee/internal/config"
	"levee/internal/governance"
	"levee/internal/logging"
	"levee/internal/monitor"
	"levee/internal/roles"
)

var (
	simYears      int
	simHouseholds int
	simWatch      bool
)

// scriptedGenerator produces deterministic model output keyed on the
// prompt, so the demonstration run is reproducible and still exercises
// parse fallbacks, legacy formats and retry corrections.
type scriptedGenerator struct{}

func (scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h := fnv.New32a()
	h.Write([]byte(prompt))
	seed := h.Sum32()

	flooded := strings.Contains(prompt, "flood depth: major") ||
		strings.Contains(prompt, "flood depth: extreme")

	// A retry prompt differs from the original, so its seed lands in a
	// different branch and the corrected attempt usually passes.
	switch seed % 11 {
	case 0:
		// Skill outside the household's permission set; forces a retry.
		return "Threat appraisal: severe flooding is certain\nCoping appraisal: M\nSkill: build_levee", nil
	case 1:
		// Legacy numeric format.
		return "Threat appraisal: flood risk remains low\nFinal Decision: 2", nil
	case 2:
		// Unparseable output; adapter falls back to the default skill.
		return "I am not sure what to do this year.", nil
	}

	skill := "do_nothing"
	threat := "flood risk remains low this year"
	if flooded {
		threat = "TP: H"
		switch seed % 3 {
		case 0:
			skill = "elevate_house"
		case 1:
			skill = "buy_insurance"
		default:
			skill = "relocate"
		}
	} else if seed%4 == 0 {
		skill = "buy_insurance"
	}

	return fmt.Sprintf("Threat appraisal: %s\nCoping appraisal: can afford protective measures\nSkill: %s\nConfidence: 0.8%d",
		threat, skill, seed%10), nil
}

// simBuilder assembles the observable slice of the scripted world for one
// actor. Scopes outside the actor's readable set are never included.
type simBuilder struct {
	world    map[string]interface{}
	year     int
	memories map[string][]string
}

func (b *simBuilder) Build(actorID string, observableScopes []string) map[string]interface{} {
	state := map[string]interface{}{
		"actor_id": actorID,
		"year":     b.year,
	}
	for _, scope := range observableScopes {
		if v, ok := b.world[scope]; ok {
			state[scope] = v
		}
	}
	return state
}

func (b *simBuilder) FormatPrompt(state map[string]interface{}) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %v deciding your flood adaptation for year %v.\n", state["actor_id"], state["year"])
	if flood, ok := state["flood"].(map[string]interface{}); ok {
		depth, _ := flood["depth"].(float64)
		fmt.Fprintf(&sb, "Observed flood depth: %s (%.1fm).\n", depthLabel(depth), depth)
	}
	sb.WriteString("Respond with a Skill: line naming one permitted action.\n")
	return sb.String()
}

func (b *simBuilder) GetMemory(actorID string) []string {
	return b.memories[actorID]
}

func depthLabel(depth float64) string {
	switch {
	case depth <= 0:
		return "flood depth: dry"
	case depth <= 0.5:
		return "flood depth: minor"
	case depth <= 2.0:
		return "flood depth: major"
	default:
		return "flood depth: extreme"
	}
}

// floodDepth is a fixed 12-year hydrograph; years past it repeat the tail.
var floodDepths = []float64{0, 0, 0.3, 0, 1.2, 0, 0, 2.8, 0.1, 0, 0.6, 0}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logging.Initialize(defaultLogDir(cfg), cfg.Logging.Debug || verbose, cfg.Logging.Level); err != nil {
		return err
	}

	table := roles.DefaultTable()
	if cfg.RoleTablePath != "" {
		if table, err = roles.LoadTable(cfg.RoleTablePath); err != nil {
			return err
		}
	}
	enforcer, err := roles.NewEnforcer(table)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if simWatch && cfg.RoleTablePath != "" {
		watcher, werr := config.NewPolicyWatcher([]string{cfg.RoleTablePath}, func(path string) {
			reloaded, lerr := roles.LoadTable(path)
			if lerr != nil {
				logger.Warn("role table reload failed, keeping previous", zap.Error(lerr))
				return
			}
			if rerr := enforcer.Replace(reloaded); rerr != nil {
				logger.Warn("reloaded role table rejected", zap.Error(rerr))
			}
		})
		if werr != nil {
			return werr
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	writer, err := audit.NewWriter(cfg.Audit)
	if err != nil {
		return err
	}
	defer writer.Close()

	builder := &simBuilder{memories: make(map[string][]string)}
	engine := governance.NewEngine(cfg.Governance, scriptedGenerator{}, builder, enforcer, writer,
		governance.ReasoningValidator{},
		governance.ConfidenceValidator{Floor: 0.5},
		governance.MutationValidator{Enforcer: enforcer, Effects: governance.DefaultSkillEffects()},
	)
	logger.Info("starting scripted run",
		zap.String("run_id", writer.RunID()),
		zap.Int("years", simYears),
		zap.Int("households", simHouseholds),
		zap.String("engine", engine.Describe()))

	ctxMonitor, err := monitor.NewContextMonitor(cfg.Monitor)
	if err != nil {
		return err
	}
	drift := monitor.NewDriftDetector(cfg.Drift)
	elevated := make(map[string]bool)

	for year := 1; year <= simYears; year++ {
		depth := floodDepths[(year-1)%len(floodDepths)]
		builder.year = year
		builder.world = map[string]interface{}{
			"flood": map[string]interface{}{"depth": depth},
			"insurance_offers": map[string]interface{}{
				"premium_rate": 0.03 + depth*0.02,
			},
		}

		obs := ctxMonitor.Observe(builder.world)
		logger.Debug("world observed",
			zap.Int("year", year),
			zap.Float64("surprise", obs.Surprise),
			zap.String("mode", string(obs.Mode)))

		for i := 0; i < simHouseholds; i++ {
			actorID := fmt.Sprintf("h%d", i)
			trace, derr := engine.Decide(ctx, governance.Request{
				ActorID:       actorID,
				ActorCategory: "household",
				Step:          year,
				Elevated:      elevated[actorID],
			})
			if derr != nil {
				return derr
			}
			if trace.Skill == "elevate_house" {
				elevated[actorID] = true
			}
			drift.Record(year, actorID, "household", trace.Skill)

			crisis := depth > 2.0
			if crisis && monitor.ShouldReflectTriggered(actorID, "household", year, monitor.TriggerCrisis, cfg.Reflection, monitor.TriggerContext{}) {
				builder.memories[actorID] = append(builder.memories[actorID],
					fmt.Sprintf("year %d: survived %.1fm flood, chose %s", year, depth, trace.Skill))
			}
			if monitor.ShouldReflectTriggered(actorID, "household", year, monitor.TriggerDecision, cfg.Reflection, monitor.TriggerContext{LastDecision: trace.Skill}) {
				builder.memories[actorID] = append(builder.memories[actorID],
					fmt.Sprintf("year %d: committed to %s", year, trace.Skill))
			}
		}

		for _, alert := range drift.Alerts(year) {
			logger.Warn("drift alert",
				zap.Int("year", alert.Year),
				zap.String("kind", alert.Kind),
				zap.String("subject", alert.Subject),
				zap.String("message", alert.Message))
		}
	}

	summary, err := writer.Finalize()
	if err != nil {
		return err
	}
	logger.Info("run complete",
		zap.String("run_id", summary.RunID),
		zap.Int("traces", summary.TotalTraces),
		zap.Int("errors", summary.ErrorCount),
		zap.Int("warnings", summary.WarningCount),
		zap.String("error_rate", summary.ErrorRate),
		zap.Int("distinct_contexts", ctxMonitor.DistinctSignatures()))
	return nil
}
