package monitor

import (
	"fmt"
	"math"
	"testing"

	"levee/internal/config"
)

func TestNormalizedEntropy(t *testing.T) {
	// All-identical populations score exactly 0.0.
	if got := NormalizedEntropy(map[string]int{"do_nothing": 10}); got != 0.0 {
		t.Errorf("identical population entropy = %v, want exactly 0.0", got)
	}

	// An exact 50/50 two-way split is 1.0 bit.
	if got := NormalizedEntropy(map[string]int{"a": 5, "b": 5}); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("50/50 entropy = %v, want 1.0", got)
	}

	// A uniform three-way split normalizes to 1.0 as well.
	if got := NormalizedEntropy(map[string]int{"a": 4, "b": 4, "c": 4}); math.Abs(got-1.0) > 1e-12 {
		t.Errorf("uniform 3-way entropy = %v, want 1.0", got)
	}

	if got := NormalizedEntropy(nil); got != 0.0 {
		t.Errorf("empty counts entropy = %v", got)
	}
}

func TestPopulationDriftNineToOne(t *testing.T) {
	d := NewDriftDetector(config.DefaultDriftConfig())
	for i := 0; i < 9; i++ {
		d.Record(1, fmt.Sprintf("h%d", i), "household", "elevate_house")
	}
	d.Record(1, "h9", "household", "do_nothing")

	report := d.Population(1)
	if !report.Drifting {
		t.Fatal("9/1 population must be flagged as drifting")
	}
	if report.DominantSkill != "elevate_house" {
		t.Errorf("dominant skill = %q", report.DominantSkill)
	}
	if math.Abs(report.DominantShare-0.9) > 1e-12 {
		t.Errorf("dominant share = %v, want 0.9", report.DominantShare)
	}
	if report.Entropy >= 0.5 {
		t.Errorf("entropy = %v, want below the 0.5 threshold", report.Entropy)
	}

	alerts := d.Alerts(1)
	found := false
	for _, a := range alerts {
		if a.Kind == "population" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a population alert, got %v", alerts)
	}
}

func TestPopulationBalancedIsNotDrifting(t *testing.T) {
	d := NewDriftDetector(config.DefaultDriftConfig())
	skills := []string{"do_nothing", "elevate_house", "buy_insurance", "relocate"}
	for i := 0; i < 12; i++ {
		d.Record(1, fmt.Sprintf("h%d", i), "household", skills[i%len(skills)])
	}
	if report := d.Population(1); report.Drifting {
		t.Errorf("balanced population flagged as drifting: %+v", report)
	}
}

func TestIndividualStagnation(t *testing.T) {
	cfg := config.DefaultDriftConfig()
	d := NewDriftDetector(cfg)

	for year := 1; year <= cfg.WindowSize; year++ {
		d.Record(year, "h1", "household", "do_nothing")
	}
	report := d.Individual("h1")
	if !report.Stagnant {
		t.Fatalf("constant decisions must flag stagnation: %+v", report)
	}
	if report.Similarity != 1.0 || report.Distinct != 1 {
		t.Errorf("similarity = %v distinct = %d", report.Similarity, report.Distinct)
	}

	// A varied actor is not stagnant.
	skills := []string{"do_nothing", "buy_insurance", "elevate_house", "relocate"}
	for year := 1; year <= cfg.WindowSize; year++ {
		d.Record(year, "h2", "household", skills[year%len(skills)])
	}
	if report := d.Individual("h2"); report.Stagnant {
		t.Errorf("varied actor flagged as stagnant: %+v", report)
	}
}

func TestIndividualWindowIsBounded(t *testing.T) {
	cfg := config.DefaultDriftConfig()
	d := NewDriftDetector(cfg)
	for year := 1; year <= cfg.WindowSize*3; year++ {
		d.Record(year, "h1", "household", "do_nothing")
	}
	if got := d.Individual("h1").WindowLen; got != cfg.WindowSize {
		t.Errorf("window length = %d, want %d", got, cfg.WindowSize)
	}
}

func TestShortHistoryIsNeverStagnant(t *testing.T) {
	d := NewDriftDetector(config.DefaultDriftConfig())
	d.Record(1, "h1", "household", "do_nothing")
	d.Record(2, "h1", "household", "do_nothing")
	if d.Individual("h1").Stagnant {
		t.Error("two observations are not enough to call stagnation")
	}
}

func TestAlertsWithNoDataIsEmpty(t *testing.T) {
	d := NewDriftDetector(config.DefaultDriftConfig())
	if alerts := d.Alerts(5); len(alerts) != 0 {
		t.Errorf("no data must yield no alerts, got %v", alerts)
	}
	report := d.Population(5)
	if report.Population != 0 || report.Drifting {
		t.Errorf("empty year report = %+v", report)
	}
}

func TestCategoryAlerts(t *testing.T) {
	d := NewDriftDetector(config.DefaultDriftConfig())
	// Households are balanced, insurers all converge.
	d.Record(1, "h1", "household", "do_nothing")
	d.Record(1, "h2", "household", "buy_insurance")
	d.Record(1, "i1", "insurance", "set_premium")
	d.Record(1, "i2", "insurance", "set_premium")
	d.Record(1, "i3", "insurance", "set_premium")

	var categorySubjects []string
	for _, a := range d.Alerts(1) {
		if a.Kind == "category" {
			categorySubjects = append(categorySubjects, a.Subject)
		}
	}
	if len(categorySubjects) != 1 || categorySubjects[0] != "insurance" {
		t.Errorf("category alerts = %v, want exactly [insurance]", categorySubjects)
	}
}

func TestDriftReset(t *testing.T) {
	d := NewDriftDetector(config.DefaultDriftConfig())
	d.Record(1, "h1", "household", "do_nothing")
	d.Reset()
	if d.Population(1).Population != 0 {
		t.Error("reset must clear recorded decisions")
	}
	if d.Individual("h1").WindowLen != 0 {
		t.Error("reset must clear windows")
	}
}
