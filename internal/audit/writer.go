package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"levee/internal/config"
	"levee/internal/logging"
	"levee/internal/types"
)

const debugFieldLimit = 200

// RawIssue is a validation finding as upstream validators emit it, before
// severity normalization. Level may be a plain string ("error") or a
// stringified enum member ("Severity.ERROR").
type RawIssue struct {
	Level   string `json:"level"`
	Tier    string `json:"tier"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// NormalizeIssues maps raw findings onto canonical ValidationIssues.
func NormalizeIssues(raw []RawIssue) []types.ValidationIssue {
	issues := make([]types.ValidationIssue, 0, len(raw))
	for _, r := range raw {
		issues = append(issues, types.ValidationIssue{
			Level:   types.NormalizeSeverity(r.Level),
			Tier:    r.Tier,
			Rule:    r.Rule,
			Message: r.Message,
		})
	}
	return issues
}

// Writer owns the audit artifacts for one run: per-category JSONL trace
// files, in-memory buffers for CSV export, running counters and the
// optional fact log and SQLite archive. Each category's file has exactly
// one writer for the run; appends are sequential.
type Writer struct {
	cfg     config.AuditConfig
	runID   string
	archive *Archive

	mu         sync.Mutex
	files      map[string]*os.File
	factFile   *os.File
	buffers    map[string][]types.Trace
	histograms map[string]map[string]int
	errors     int
	warnings   int
	total      int
	written    int
}

// NewWriter creates the output directory and, if configured, opens the
// SQLite archive. Construction is the only point where audit setup may
// fail; per-trace I/O errors later are logged and swallowed.
func NewWriter(cfg config.AuditConfig) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create audit output dir: %w", err)
	}

	w := &Writer{
		cfg:        cfg,
		runID:      uuid.NewString(),
		files:      make(map[string]*os.File),
		buffers:    make(map[string][]types.Trace),
		histograms: make(map[string]map[string]int),
	}

	if cfg.ArchivePath != "" {
		archive, err := OpenArchive(cfg.ArchivePath)
		if err != nil {
			return nil, err
		}
		w.archive = archive
	}

	logging.Audit("audit writer ready: run=%s dir=%s level=%s", w.runID, cfg.OutputDir, cfg.LogLevel)
	return w, nil
}

// RunID returns the identifier stamped on every trace this writer emits.
func (w *Writer) RunID() string { return w.runID }

// WriteTrace finalizes one trace: stamps defaults, folds in validation
// results, updates counters and histograms, and persists the record
// subject to the log-level policy. I/O failures are logged, never
// propagated; a simulation step must not die on a full disk.
func (w *Writer) WriteTrace(category string, trace types.Trace, raw []RawIssue) types.Trace {
	w.mu.Lock()
	defer w.mu.Unlock()

	if trace.Timestamp.IsZero() {
		trace.Timestamp = time.Now().UTC()
	}
	if trace.ActorCategory == "" {
		trace.ActorCategory = category
	}
	if trace.TraceID == "" {
		trace.TraceID = uuid.NewString()
	}
	if trace.RunID == "" {
		trace.RunID = w.runID
	}
	if trace.Decision == "" {
		trace.Decision = trace.Skill
	}

	if raw != nil {
		trace.Issues = NormalizeIssues(raw)
	}
	if trace.Issues == nil {
		trace.Issues = []types.ValidationIssue{}
	}
	trace.Validated = !types.HasError(trace.Issues)

	errs, warns := types.CountBySeverity(trace.Issues)
	w.errors += errs
	w.warnings += warns
	w.total++

	if w.histograms[category] == nil {
		w.histograms[category] = make(map[string]int)
	}
	w.histograms[category][trace.Skill]++

	if w.shouldPersist(trace) {
		w.appendJSONL(category, trace)
		w.buffers[category] = append(w.buffers[category], trace)
		w.written++

		if w.cfg.EmitFacts {
			w.appendFact(trace)
		}
		if w.archive != nil {
			if err := w.archive.Insert(trace); err != nil {
				logging.AuditError("archive insert failed for %s: %v", trace.TraceID, err)
			}
		}
	}
	return trace
}

// shouldPersist applies the log-level policy. errors_only persists a
// record iff it carries at least one ERROR-level issue; warning-only
// traces are counted but not written.
func (w *Writer) shouldPersist(trace types.Trace) bool {
	switch w.cfg.LogLevel {
	case config.LogLevelSummary:
		return !trace.Validated
	case config.LogLevelErrorsOnly:
		return types.HasError(trace.Issues)
	default:
		return true
	}
}

func (w *Writer) appendJSONL(category string, trace types.Trace) {
	f, err := w.categoryFile(category)
	if err != nil {
		logging.AuditError("open trace log for %s: %v", category, err)
		return
	}
	data, err := json.Marshal(trace)
	if err != nil {
		logging.AuditError("marshal trace %s: %v", trace.TraceID, err)
		return
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		logging.AuditError("append trace %s: %v", trace.TraceID, err)
	}
}

func (w *Writer) appendFact(trace types.Trace) {
	fact := trace.ToFact()
	if _, err := fact.ToAtom(); err != nil {
		logging.AuditError("trace %s does not form a valid fact: %v", trace.TraceID, err)
		return
	}
	if w.factFile == nil {
		path := filepath.Join(w.cfg.OutputDir, w.cfg.ExperimentName+"_traces.mg")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logging.AuditError("open fact log: %v", err)
			return
		}
		w.factFile = f
	}
	if _, err := fmt.Fprintln(w.factFile, fact.String()); err != nil {
		logging.AuditError("append fact for %s: %v", trace.TraceID, err)
	}
}

func (w *Writer) categoryFile(category string) (*os.File, error) {
	if f, ok := w.files[category]; ok {
		return f, nil
	}
	path := w.categoryPath(category)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	w.files[category] = f
	return f, nil
}

func (w *Writer) categoryPath(category string) string {
	name := fmt.Sprintf("%s_%s_traces.jsonl", w.cfg.ExperimentName, category)
	return filepath.Join(w.cfg.OutputDir, name)
}

// Summary is the run-level rollup written by Finalize.
type Summary struct {
	RunID          string                    `json:"run_id"`
	Experiment     string                    `json:"experiment"`
	FinishedAt     time.Time                 `json:"finished_at"`
	TotalTraces    int                       `json:"total_traces"`
	WrittenTraces  int                       `json:"written_traces"`
	ErrorCount     int                       `json:"error_count"`
	WarningCount   int                       `json:"warning_count"`
	ErrorRate      string                    `json:"error_rate"`
	WarningRate    string                    `json:"warning_rate"`
	DecisionCounts map[string]map[string]int `json:"decision_counts"`
}

// Finalize writes the run summary and exports a flattened CSV (plus an
// error-row CSV) for every category with buffered traces. Category exports
// run concurrently; buffers are independent per category.
func (w *Writer) Finalize() (Summary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	summary := Summary{
		RunID:          w.runID,
		Experiment:     w.cfg.ExperimentName,
		FinishedAt:     time.Now().UTC(),
		TotalTraces:    w.total,
		WrittenTraces:  w.written,
		ErrorCount:     w.errors,
		WarningCount:   w.warnings,
		ErrorRate:      rateString(w.errors, w.total),
		WarningRate:    rateString(w.warnings, w.total),
		DecisionCounts: w.histograms,
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return summary, err
	}
	summaryPath := filepath.Join(w.cfg.OutputDir, w.cfg.ExperimentName+"_run_summary.json")
	if err := os.WriteFile(summaryPath, data, 0644); err != nil {
		return summary, fmt.Errorf("write run summary: %w", err)
	}

	var g errgroup.Group
	for category, traces := range w.buffers {
		if len(traces) == 0 {
			continue
		}
		g.Go(func() error {
			if err := w.exportCSV(category, traces, false); err != nil {
				return fmt.Errorf("export %s csv: %w", category, err)
			}
			return w.exportCSV(category, traces, true)
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	logging.Audit("finalized run %s: %d traces, %d errors, %d warnings",
		w.runID, w.total, w.errors, w.warnings)
	return summary, nil
}

// exportCSV flattens traces into a CSV: fixed core fields first, then
// alphabetically sorted reasoning-construct fields, then truncated debug
// fields last. errorsOnly restricts rows to rejected or invalid traces.
func (w *Writer) exportCSV(category string, traces []types.Trace, errorsOnly bool) error {
	rows := traces
	if errorsOnly {
		rows = nil
		for _, t := range traces {
			if t.Outcome != types.OutcomeApproved || !t.Validated {
				rows = append(rows, t)
			}
		}
		if len(rows) == 0 {
			return nil
		}
	}

	// Reasoning keys are discovered dynamically across the whole buffer so
	// every row shares one header.
	keySet := make(map[string]bool)
	for _, t := range rows {
		for k := range t.Reasoning {
			keySet[k] = true
		}
	}
	reasoningKeys := make([]string, 0, len(keySet))
	for k := range keySet {
		reasoningKeys = append(reasoningKeys, k)
	}
	sort.Strings(reasoningKeys)

	suffix := "_export.csv"
	if errorsOnly {
		suffix = "_errors.csv"
	}
	path := filepath.Join(w.cfg.OutputDir, fmt.Sprintf("%s_%s%s", w.cfg.ExperimentName, category, suffix))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := []string{"timestamp", "step", "actor_id", "outcome", "retry_count", "skill", "validated", "issues"}
	header = append(header, reasoningKeys...)
	header = append(header, "prompt", "raw_output")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, t := range rows {
		record := []string{
			t.Timestamp.Format(time.RFC3339),
			fmt.Sprintf("%d", t.Step),
			t.ActorID,
			string(t.Outcome),
			fmt.Sprintf("%d", t.RetryCount),
			t.Skill,
			fmt.Sprintf("%t", t.Validated),
			joinIssues(t.Issues),
		}
		for _, k := range reasoningKeys {
			record = append(record, t.Reasoning[k])
		}
		record = append(record, truncate(t.Prompt, debugFieldLimit), truncate(t.RawOutput, debugFieldLimit))
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Reset backs up existing per-category files with a timestamp suffix and
// clears all in-memory state, so a re-run never silently overwrites.
func (w *Writer) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, f := range w.files {
		f.Close()
	}
	if w.factFile != nil {
		w.factFile.Close()
		w.factFile = nil
	}

	stamp := time.Now().Format("20060102T150405")
	for category := range w.files {
		path := w.categoryPath(category)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		backup := fmt.Sprintf("%s.%s.bak", path, stamp)
		if err := os.Rename(path, backup); err != nil {
			return fmt.Errorf("back up %s: %w", path, err)
		}
		logging.Audit("backed up %s -> %s", path, backup)
	}

	w.files = make(map[string]*os.File)
	w.buffers = make(map[string][]types.Trace)
	w.histograms = make(map[string]map[string]int)
	w.errors, w.warnings, w.total, w.written = 0, 0, 0, 0
	return nil
}

// Close releases file handles and the archive connection.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, f := range w.files {
		f.Close()
	}
	w.files = make(map[string]*os.File)
	if w.factFile != nil {
		w.factFile.Close()
		w.factFile = nil
	}
	if w.archive != nil {
		return w.archive.Close()
	}
	return nil
}

func joinIssues(issues []types.ValidationIssue) string {
	parts := make([]string, 0, len(issues))
	for _, is := range issues {
		parts = append(parts, fmt.Sprintf("%s:%s:%s", is.Level, is.Rule, is.Message))
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func rateString(count, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(count)/float64(total))
}
