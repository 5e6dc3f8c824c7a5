package monitor

import (
	"fmt"
	"math"
	"sort"

	"levee/internal/config"
	"levee/internal/logging"
)

// NormalizedEntropy computes base-2 Shannon entropy of the decision counts
// normalized by log2 of the number of distinct observed decisions, so a
// uniform split scores 1.0 and an all-identical population scores exactly
// 0.0. Fewer than two distinct decisions yields 0.0.
func NormalizedEntropy(counts map[string]int) float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 || len(counts) <= 1 {
		return 0.0
	}

	entropy := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy / math.Log2(float64(len(counts)))
}

// jaccard is |a∩b| / |a∪b| over decision sets. Two empty sets score 1.0.
func jaccard(a, b map[string]bool) float64 {
	union := make(map[string]bool, len(a)+len(b))
	inter := 0
	for k := range a {
		union[k] = true
	}
	for k := range b {
		if a[k] {
			inter++
		}
		union[k] = true
	}
	if len(union) == 0 {
		return 1.0
	}
	return float64(inter) / float64(len(union))
}

// Alert flags one drift finding for a simulated year.
type Alert struct {
	Year     int    `json:"year"`
	Kind     string `json:"kind"`
	Subject  string `json:"subject"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// PopulationReport summarizes one year's population-level decision spread.
type PopulationReport struct {
	Year          int     `json:"year"`
	Population    int     `json:"population"`
	Entropy       float64 `json:"entropy"`
	DominantSkill string  `json:"dominant_skill"`
	DominantShare float64 `json:"dominant_share"`
	Drifting      bool    `json:"drifting"`
}

// IndividualReport summarizes one actor's recent decision variety.
type IndividualReport struct {
	ActorID    string  `json:"actor_id"`
	WindowLen  int     `json:"window_len"`
	Distinct   int     `json:"distinct"`
	Similarity float64 `json:"similarity"`
	Stagnant   bool    `json:"stagnant"`
}

// DriftDetector watches for behavioral collapse at population and
// individual level. Windows are independent per actor.
type DriftDetector struct {
	cfg config.DriftConfig

	// year -> actorID -> decision
	byYear map[int]map[string]string
	// year -> actorID -> category
	categories map[int]map[string]string
	// actorID -> bounded recent-decision window
	windows map[string][]string
}

// NewDriftDetector builds a detector from config.
func NewDriftDetector(cfg config.DriftConfig) *DriftDetector {
	return &DriftDetector{
		cfg:        cfg,
		byYear:     make(map[int]map[string]string),
		categories: make(map[int]map[string]string),
		windows:    make(map[string][]string),
	}
}

// Record stores one actor's decision for a year and advances the actor's
// sliding window.
func (d *DriftDetector) Record(year int, actorID, category, decision string) {
	if d.byYear[year] == nil {
		d.byYear[year] = make(map[string]string)
		d.categories[year] = make(map[string]string)
	}
	d.byYear[year][actorID] = decision
	d.categories[year][actorID] = category

	w := append(d.windows[actorID], decision)
	if len(w) > d.cfg.WindowSize {
		w = w[len(w)-d.cfg.WindowSize:]
	}
	d.windows[actorID] = w
}

// Population computes the population-level report for one year. A year
// with no recorded decisions yields a zero report, not an error.
func (d *DriftDetector) Population(year int) PopulationReport {
	decisions := d.byYear[year]
	report := PopulationReport{Year: year, Population: len(decisions)}
	if len(decisions) == 0 {
		return report
	}

	counts := make(map[string]int)
	for _, dec := range decisions {
		counts[dec]++
	}
	report.Entropy = NormalizedEntropy(counts)

	for skill, c := range counts {
		share := float64(c) / float64(len(decisions))
		if share > report.DominantShare || (share == report.DominantShare && skill < report.DominantSkill) {
			report.DominantSkill = skill
			report.DominantShare = share
		}
	}

	report.Drifting = report.Entropy < d.cfg.EntropyThreshold ||
		report.DominantShare > d.cfg.DominanceRatio
	return report
}

// Individual computes one actor's stagnation report. The window's older
// and newer halves are compared as decision sets; high similarity plus low
// variety flags stagnation.
func (d *DriftDetector) Individual(actorID string) IndividualReport {
	w := d.windows[actorID]
	report := IndividualReport{ActorID: actorID, WindowLen: len(w)}

	distinct := make(map[string]bool)
	for _, dec := range w {
		distinct[dec] = true
	}
	report.Distinct = len(distinct)

	if len(w) < 4 {
		// Not enough history to call anything stagnant.
		return report
	}

	mid := len(w) / 2
	older := make(map[string]bool)
	newer := make(map[string]bool)
	for _, dec := range w[:mid] {
		older[dec] = true
	}
	for _, dec := range w[mid:] {
		newer[dec] = true
	}
	report.Similarity = jaccard(older, newer)
	report.Stagnant = report.Similarity >= d.cfg.SimilarityThreshold &&
		report.Distinct <= d.cfg.MinVariety
	return report
}

// Alerts aggregates population, per-category and individual alerts for a
// year. With no recorded data it returns an empty slice.
func (d *DriftDetector) Alerts(year int) []Alert {
	var alerts []Alert

	pop := d.Population(year)
	if pop.Population > 0 && pop.Drifting {
		alerts = append(alerts, Alert{
			Year:     year,
			Kind:     "population",
			Subject:  "all",
			Severity: "WARNING",
			Message: fmt.Sprintf("population converging on %s (share %.2f, entropy %.3f)",
				pop.DominantSkill, pop.DominantShare, pop.Entropy),
		})
	}

	// Per-category convergence uses the same thresholds over the
	// category's subpopulation.
	byCategory := make(map[string]map[string]int)
	for actorID, dec := range d.byYear[year] {
		cat := d.categories[year][actorID]
		if byCategory[cat] == nil {
			byCategory[cat] = make(map[string]int)
		}
		byCategory[cat][dec]++
	}
	cats := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	for _, cat := range cats {
		counts := byCategory[cat]
		total := 0
		dominant, dominantCount := "", 0
		for skill, c := range counts {
			total += c
			if c > dominantCount || (c == dominantCount && skill < dominant) {
				dominant, dominantCount = skill, c
			}
		}
		if total < 2 {
			continue
		}
		entropy := NormalizedEntropy(counts)
		share := float64(dominantCount) / float64(total)
		if entropy < d.cfg.EntropyThreshold || share > d.cfg.DominanceRatio {
			alerts = append(alerts, Alert{
				Year:     year,
				Kind:     "category",
				Subject:  cat,
				Severity: "WARNING",
				Message: fmt.Sprintf("%s actors converging on %s (share %.2f, entropy %.3f)",
					cat, dominant, share, entropy),
			})
		}
	}

	actors := make([]string, 0, len(d.byYear[year]))
	for actorID := range d.byYear[year] {
		actors = append(actors, actorID)
	}
	sort.Strings(actors)
	for _, actorID := range actors {
		ind := d.Individual(actorID)
		if ind.Stagnant {
			alerts = append(alerts, Alert{
				Year:     year,
				Kind:     "individual",
				Subject:  actorID,
				Severity: "WARNING",
				Message: fmt.Sprintf("actor %s stagnant (%d distinct decisions in window of %d)",
					actorID, ind.Distinct, ind.WindowLen),
			})
		}
	}

	if len(alerts) > 0 {
		logging.Drift("year %d: %d drift alerts", year, len(alerts))
	}
	return alerts
}

// Reset clears all recorded state.
func (d *DriftDetector) Reset() {
	d.byYear = make(map[int]map[string]string)
	d.categories = make(map[int]map[string]string)
	d.windows = make(map[string][]string)
}
