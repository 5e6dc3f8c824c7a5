package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"levee/internal/audit"
	"levee/internal/config"
	"levee/internal/logging"
	"levee/internal/roles"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "levee",
	Short: "levee - governance layer for LLM-driven social simulations",
	Long: `levee governs skill proposals from generative agents in multi-agent
social simulations: it parses raw model output into structured proposals,
enforces per-category role permissions, retries invalid proposals with
corrective prompts, and writes an auditable trace of every decision.

The simulation's financial arithmetic and the generation backend are
external collaborators; levee owns the validate-retry-audit loop between
them.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

// runCmd drives a scripted simulation through the full pipeline
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scripted demonstration simulation",
	Long: `Runs a small deterministic flood-adaptation simulation through the
full governance pipeline: context building, generation, parsing, role
enforcement, retries, drift detection, reflection triggers and audit
export. The generation backend is scripted, so runs are reproducible.`,
	RunE: runSimulation,
}

// exportCmd prints archive statistics
var exportCmd = &cobra.Command{
	Use:   "export [archive.db]",
	Short: "Print statistics from a SQLite trace archive",
	Args:  cobra.ExactArgs(1),
	RunE:  exportStats,
}

// rolesCmd prints and self-checks the active role table
var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Print the active role table and run permission self-checks",
	RunE:  showRoles,
}

func exportStats(cmd *cobra.Command, args []string) error {
	archive, err := audit.OpenArchive(args[0])
	if err != nil {
		return err
	}
	defer archive.Close()

	stats, err := archive.Stats()
	if err != nil {
		return fmt.Errorf("query archive stats: %w", err)
	}
	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	failures, err := archive.Failures(10)
	if err != nil {
		return err
	}
	if len(failures) > 0 {
		fmt.Printf("\nmost recent failures (%d shown):\n", len(failures))
		for _, t := range failures {
			fmt.Printf("  step %d %s/%s -> %s (%d issues)\n",
				t.Step, t.ActorCategory, t.ActorID, t.Outcome, len(t.Issues))
		}
	}
	return nil
}

func showRoles(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	table := roles.DefaultTable()
	if cfg.RoleTablePath != "" {
		table, err = roles.LoadTable(cfg.RoleTablePath)
		if err != nil {
			return err
		}
	}
	enforcer, err := roles.NewEnforcer(table)
	if err != nil {
		return err
	}

	categories := enforcer.Categories()
	sort.Strings(categories)
	for _, cat := range categories {
		spec, _ := enforcer.SpecFor(cat)
		fmt.Printf("%s (%s)\n", cat, spec.ArtifactType)
		fmt.Printf("  skills:   %v\n", spec.AllowedSkills)
		fmt.Printf("  reads:    %v\n", spec.CanReadState)
		fmt.Printf("  modifies: %v\n", spec.CanModify)
	}

	// Self-check: the table must fail closed for unknown categories.
	if res := enforcer.CheckSkillPermission("no_such_category", "do_nothing"); res.Allowed {
		return fmt.Errorf("self-check failed: unknown category was allowed")
	}
	fmt.Println("\nself-check passed: unknown categories are denied")
	return nil
}

func defaultLogDir(cfg config.Config) string {
	return filepath.Join(cfg.Audit.OutputDir, "logs")
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML or JSON)")

	runCmd.Flags().IntVar(&simYears, "years", 10, "number of simulated years")
	runCmd.Flags().IntVar(&simHouseholds, "households", 8, "number of household actors")
	runCmd.Flags().BoolVar(&simWatch, "watch", false, "hot-reload the role table while running")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(rolesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
