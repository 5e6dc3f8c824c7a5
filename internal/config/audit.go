package config

import "fmt"

// LogLevel controls which finalized traces the audit writer persists.
type LogLevel string

const (
	// LogLevelFull persists every finalized trace.
	LogLevelFull LogLevel = "full"

	// LogLevelSummary persists only traces that failed validation;
	// aggregate counters still cover every trace.
	LogLevelSummary LogLevel = "summary"

	// LogLevelErrorsOnly persists a trace iff it carries at least one
	// ERROR-level issue. Warning-only traces are counted but not written.
	LogLevelErrorsOnly LogLevel = "errors_only"
)

// AuditConfig configures the audit writer.
type AuditConfig struct {
	// OutputDir receives per-category trace logs, CSV exports and the
	// run summary.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// ExperimentName prefixes every file the writer creates.
	ExperimentName string `yaml:"experiment_name" json:"experiment_name"`

	// LogLevel is one of full, summary, errors_only.
	LogLevel LogLevel `yaml:"log_level" json:"log_level"`

	// ArchivePath optionally enables the SQLite trace archive.
	ArchivePath string `yaml:"archive_path" json:"archive_path"`

	// EmitFacts enables the Datalog fact log alongside the JSONL traces.
	EmitFacts bool `yaml:"emit_facts" json:"emit_facts"`
}

// DefaultAuditConfig returns sensible defaults for the audit writer.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		OutputDir:      "runs",
		ExperimentName: "experiment",
		LogLevel:       LogLevelFull,
		EmitFacts:      true,
	}
}

// Validate checks the audit configuration at construction time.
func (c AuditConfig) Validate() error {
	switch c.LogLevel {
	case LogLevelFull, LogLevelSummary, LogLevelErrorsOnly, "":
	default:
		return fmt.Errorf("audit.log_level must be full, summary or errors_only, got %q", c.LogLevel)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("audit.output_dir must not be empty")
	}
	return nil
}
