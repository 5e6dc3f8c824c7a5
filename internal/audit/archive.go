// Package audit persists finalized decision traces: per-category JSONL
// logs, CSV exports, a run summary and an optional SQLite archive for
// cross-run queries.
package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"levee/internal/logging"
	"levee/internal/types"
)

// Archive stores decision traces in SQLite for queries that span runs.
// Thread-safe with a read-write mutex; one archive owns its connection.
type Archive struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// OpenArchive opens (or creates) a trace archive at path.
func OpenArchive(path string) (*Archive, error) {
	logging.StoreDebug("Opening trace archive at %s", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open trace archive %s: %w", path, err)
	}

	a := &Archive{db: db, dbPath: path}
	if err := a.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure archive schema: %w", err)
	}
	return a, nil
}

func (a *Archive) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decision_traces (
		trace_id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		actor_id TEXT NOT NULL,
		actor_category TEXT NOT NULL,
		skill TEXT,
		outcome TEXT NOT NULL,
		retry_count INTEGER NOT NULL,
		validated BOOLEAN NOT NULL,
		issues TEXT,
		reasoning TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_traces_run ON decision_traces(run_id);
	CREATE INDEX IF NOT EXISTS idx_traces_category ON decision_traces(actor_category);
	CREATE INDEX IF NOT EXISTS idx_traces_outcome ON decision_traces(outcome);
	CREATE INDEX IF NOT EXISTS idx_traces_step ON decision_traces(step);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Insert persists one finalized trace.
func (a *Archive) Insert(t types.Trace) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	issuesJSON, _ := json.Marshal(t.Issues)
	reasoningJSON, _ := json.Marshal(t.Reasoning)

	_, err := a.db.Exec(`
		INSERT OR REPLACE INTO decision_traces
		(trace_id, run_id, step, actor_id, actor_category, skill, outcome,
		 retry_count, validated, issues, reasoning, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TraceID, t.RunID, t.Step, t.ActorID, t.ActorCategory, t.Skill,
		string(t.Outcome), t.RetryCount, t.Validated,
		string(issuesJSON), string(reasoningJSON), t.Timestamp.UnixNano(),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to archive trace %s: %v", t.TraceID, err)
	}
	return err
}

// ByCategory retrieves recent traces for one actor category.
func (a *Archive) ByCategory(category string, limit int) ([]types.Trace, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := a.db.Query(`
		SELECT trace_id, run_id, step, actor_id, actor_category, skill,
		       outcome, retry_count, validated, issues, reasoning, created_at
		FROM decision_traces
		WHERE actor_category = ?
		ORDER BY created_at DESC
		LIMIT ?`, category, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTraces(rows)
}

// Failures retrieves rejected or non-validated traces for post-hoc review.
func (a *Archive) Failures(limit int) ([]types.Trace, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := a.db.Query(`
		SELECT trace_id, run_id, step, actor_id, actor_category, skill,
		       outcome, retry_count, validated, issues, reasoning, created_at
		FROM decision_traces
		WHERE outcome != ? OR validated = 0
		ORDER BY created_at DESC
		LIMIT ?`, string(types.OutcomeApproved), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTraces(rows)
}

// Stats returns archive-wide counters for the export command.
func (a *Archive) Stats() (map[string]interface{}, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := make(map[string]interface{})

	var total int64
	if err := a.db.QueryRow("SELECT COUNT(*) FROM decision_traces").Scan(&total); err != nil {
		return nil, err
	}
	stats["total_traces"] = total

	var approved int64
	a.db.QueryRow("SELECT COUNT(*) FROM decision_traces WHERE outcome = ?",
		string(types.OutcomeApproved)).Scan(&approved)
	if total > 0 {
		stats["approval_rate"] = float64(approved) / float64(total)
	}

	byCategory := make(map[string]int64)
	rows, err := a.db.Query("SELECT actor_category, COUNT(*) FROM decision_traces GROUP BY actor_category")
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var cat string
			var count int64
			if rows.Scan(&cat, &count) == nil {
				byCategory[cat] = count
			}
		}
	}
	stats["by_category"] = byCategory

	bySkill := make(map[string]int64)
	rows2, err := a.db.Query("SELECT skill, COUNT(*) FROM decision_traces GROUP BY skill ORDER BY COUNT(*) DESC LIMIT 20")
	if err == nil {
		defer rows2.Close()
		for rows2.Next() {
			var skill string
			var count int64
			if rows2.Scan(&skill, &count) == nil {
				bySkill[skill] = count
			}
		}
	}
	stats["by_skill"] = bySkill

	return stats, nil
}

func scanTraces(rows *sql.Rows) ([]types.Trace, error) {
	var traces []types.Trace
	for rows.Next() {
		var t types.Trace
		var outcome, issuesJSON, reasoningJSON string
		var skill sql.NullString
		var createdAt int64

		err := rows.Scan(
			&t.TraceID, &t.RunID, &t.Step, &t.ActorID, &t.ActorCategory,
			&skill, &outcome, &t.RetryCount, &t.Validated,
			&issuesJSON, &reasoningJSON, &createdAt,
		)
		if err != nil {
			continue
		}
		t.Timestamp = time.Unix(0, createdAt).UTC()
		if skill.Valid {
			t.Skill = skill.String
		}
		t.Outcome = types.Outcome(outcome)
		if issuesJSON != "" {
			json.Unmarshal([]byte(issuesJSON), &t.Issues)
		}
		if reasoningJSON != "" {
			json.Unmarshal([]byte(reasoningJSON), &t.Reasoning)
		}
		traces = append(traces, t)
	}
	return traces, rows.Err()
}

// Close closes the archive's database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}
