package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDisabledLoggingIsSilent(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(filepath.Join(dir, "logs"), false, "info"); err != nil {
		t.Fatal(err)
	}
	defer CloseAll()

	Get(CategoryGovernance).Info("should go nowhere")
	Governance("convenience path too")

	if _, err := os.Stat(filepath.Join(dir, "logs")); !os.IsNotExist(err) {
		t.Error("disabled logging must not create the log directory")
	}
}

func TestDebugLoggingWritesCategoryFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(dir, true, "debug"); err != nil {
		t.Fatal(err)
	}
	defer func() {
		CloseAll()
		Initialize("", false, "info")
	}()

	Get(CategoryRoles).Info("permission check for %s", "h1")
	Get(CategoryRoles).Debug("details")
	CloseAll()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var rolesFile string
	for _, e := range entries {
		if strings.Contains(e.Name(), "_roles.log") {
			rolesFile = filepath.Join(dir, e.Name())
		}
	}
	if rolesFile == "" {
		t.Fatalf("no roles log file in %v", entries)
	}

	data, err := os.ReadFile(rolesFile)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "[INFO] permission check for h1") {
		t.Errorf("missing info line:\n%s", content)
	}
	if !strings.Contains(content, "[DEBUG] details") {
		t.Errorf("missing debug line:\n%s", content)
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := Initialize(dir, true, "warn"); err != nil {
		t.Fatal(err)
	}
	defer func() {
		CloseAll()
		Initialize("", false, "info")
	}()

	l := Get(CategoryAudit)
	l.Debug("filtered")
	l.Info("filtered")
	l.Warn("kept warn")
	l.Error("kept error")
	CloseAll()

	entries, _ := os.ReadDir(dir)
	var content string
	for _, e := range entries {
		if strings.Contains(e.Name(), "_audit.log") {
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				t.Fatal(err)
			}
			content = string(data)
		}
	}
	if strings.Contains(content, "filtered") {
		t.Errorf("below-level lines leaked:\n%s", content)
	}
	if !strings.Contains(content, "kept warn") || !strings.Contains(content, "kept error") {
		t.Errorf("expected warn and error lines:\n%s", content)
	}
}
