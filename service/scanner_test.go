package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lexscan/regtracker/config"
)

func newTestScanner(t *testing.T) (*Scanner, *Registry, *config.StoreConfig) {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.StoreConfig{
		ContractsDir:  filepath.Join(dir, "contracts"),
		UpdatesDir:    filepath.Join(dir, "updates"),
		ArchiveDir:    filepath.Join(dir, "archive"),
		RegUpdatesDir: filepath.Join(dir, "reg_updates"),
		RegistryFile:  filepath.Join(dir, "registry_db.json"),
		SnapshotLimit: 4000,
	}

	registry := NewRegistry(cfg.RegistryFile, cfg.SnapshotLimit)
	scanner := NewScanner(registry, ResolveExtractor(), ResolveRenderer("text"), nil, cfg)
	return scanner, registry, cfg
}

func writeContract(t *testing.T, cfg *config.StoreConfig, name, text string) string {
	t.Helper()
	if err := os.MkdirAll(cfg.ContractsDir, 0o755); err != nil {
		t.Fatalf("Failed to create contracts dir: %v", err)
	}
	path := filepath.Join(cfg.ContractsDir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("Failed to write contract: %v", err)
	}
	return path
}

func TestScanRegistersNewContracts(t *testing.T) {
	scanner, registry, cfg := newTestScanner(t)
	writeContract(t, cfg, "lease.txt", "Signed in 2021.\nConsent clause.")
	writeContract(t, cfg, "nda.md", "Mutual confidentiality terms.")

	result, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if result.Scanned != 2 {
		t.Errorf("Expected 2 scanned files, got %d", result.Scanned)
	}
	if len(result.New) != 2 {
		t.Fatalf("Expected 2 new contracts, got %v", result.New)
	}
	if len(result.Changed) != 0 || len(result.Moved) != 0 {
		t.Errorf("Expected no changes or moves on first scan, got %+v", result)
	}

	rec := registry.Get("lease")
	if rec == nil {
		t.Fatal("Expected lease record")
	}
	if rec.Version != 1 {
		t.Errorf("Expected version 1, got %d", rec.Version)
	}
	if rec.Date != "2021" {
		t.Errorf("Expected extracted date '2021', got %q", rec.Date)
	}

	if _, err := os.Stat(cfg.RegistryFile); err != nil {
		t.Errorf("Expected registry persisted: %v", err)
	}
}

func TestScanUnchangedIsNoOp(t *testing.T) {
	scanner, registry, cfg := newTestScanner(t)
	writeContract(t, cfg, "lease.txt", "Consent clause.")

	if _, err := scanner.Scan(context.Background()); err != nil {
		t.Fatalf("First scan failed: %v", err)
	}
	before := *registry.Get("lease")

	result, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Second scan failed: %v", err)
	}

	if len(result.New) != 0 || len(result.Changed) != 0 || len(result.Moved) != 0 {
		t.Errorf("Expected second scan of unchanged corpus to be a no-op, got %+v", result)
	}
	after := registry.Get("lease")
	if after.Version != before.Version || after.ContentHash != before.ContentHash || after.LastUpdated != before.LastUpdated {
		t.Errorf("Expected record untouched, before=%+v after=%+v", before, *after)
	}
}

func TestScanDetectsChange(t *testing.T) {
	scanner, registry, cfg := newTestScanner(t)
	path := writeContract(t, cfg, "lease.txt", "Payment within 30 days.")

	if _, err := scanner.Scan(context.Background()); err != nil {
		t.Fatalf("First scan failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("Payment within 14 days."), 0o644); err != nil {
		t.Fatalf("Failed to rewrite contract: %v", err)
	}

	result, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Second scan failed: %v", err)
	}

	if len(result.Changed) != 1 || result.Changed[0] != "lease" {
		t.Fatalf("Expected lease marked changed, got %v", result.Changed)
	}
	if len(result.Reports) != 1 {
		t.Fatalf("Expected 1 update report, got %v", result.Reports)
	}

	rec := registry.Get("lease")
	if rec.Version != 2 {
		t.Errorf("Expected version 2 after change, got %d", rec.Version)
	}
	if rec.LatestUpdateReport != result.Reports[0] {
		t.Errorf("Expected report reference on record, got %q", rec.LatestUpdateReport)
	}

	data, err := os.ReadFile(result.Reports[0])
	if err != nil {
		t.Fatalf("Failed to read update report: %v", err)
	}
	report := string(data)
	if !strings.Contains(report, "+ Payment within 14 days.") {
		t.Errorf("Expected added clause in report:\n%s", report)
	}
	if !strings.Contains(report, "- Payment within 30 days.") {
		t.Errorf("Expected removed clause in report:\n%s", report)
	}

	// In-place edit: the current file stays where it is
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected edited file left in place: %v", err)
	}
	if len(rec.ArchivedPaths) != 0 {
		t.Errorf("Expected no archive entry for in-place edit, got %v", rec.ArchivedPaths)
	}
}

func TestScanDetectsMove(t *testing.T) {
	scanner, registry, cfg := newTestScanner(t)
	text := "Consent clause."
	path := writeContract(t, cfg, "lease.txt", text)

	if _, err := scanner.Scan(context.Background()); err != nil {
		t.Fatalf("First scan failed: %v", err)
	}

	subDir := filepath.Join(cfg.ContractsDir, "renewed")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	newPath := filepath.Join(subDir, "lease.txt")
	if err := os.Rename(path, newPath); err != nil {
		t.Fatalf("Failed to move contract: %v", err)
	}

	result, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Second scan failed: %v", err)
	}

	if len(result.Moved) != 1 || result.Moved[0] != "lease" {
		t.Fatalf("Expected lease marked moved, got %v", result.Moved)
	}
	if len(result.Changed) != 0 {
		t.Errorf("Expected move not counted as change, got %v", result.Changed)
	}

	rec := registry.Get("lease")
	if rec.FilePath != newPath {
		t.Errorf("Expected path updated to %q, got %q", newPath, rec.FilePath)
	}
	if rec.Version != 1 {
		t.Errorf("Expected move to keep version 1, got %d", rec.Version)
	}
}

func TestScanMovedAndChangedArchivesOldFile(t *testing.T) {
	scanner, registry, cfg := newTestScanner(t)
	oldPath := writeContract(t, cfg, "lease.txt", "Old clause.")

	if _, err := scanner.Scan(context.Background()); err != nil {
		t.Fatalf("First scan failed: %v", err)
	}

	// A revised copy appears in a subdirectory under the same id stem while
	// the original is still present
	subDir := filepath.Join(cfg.ContractsDir, "v2")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	newPath := filepath.Join(subDir, "lease.txt")
	if err := os.WriteFile(newPath, []byte("New clause."), 0o644); err != nil {
		t.Fatalf("Failed to write revised contract: %v", err)
	}

	result, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Second scan failed: %v", err)
	}

	if len(result.Changed) != 1 {
		t.Fatalf("Expected 1 change, got %+v", result)
	}

	rec := registry.Get("lease")
	if rec.FilePath != newPath {
		t.Errorf("Expected path advanced to revised copy, got %q", rec.FilePath)
	}
	if len(rec.ArchivedPaths) != 1 {
		t.Fatalf("Expected prior artifact archived, got %v", rec.ArchivedPaths)
	}
	if _, err := os.Stat(rec.ArchivedPaths[0]); err != nil {
		t.Errorf("Expected archived file on disk: %v", err)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Error("Expected superseded file moved out of the contracts directory")
	}
}

func TestScanIgnoresUnsupportedExtensions(t *testing.T) {
	scanner, _, cfg := newTestScanner(t)
	writeContract(t, cfg, "lease.txt", "text")
	writeContract(t, cfg, "notes.docx", "binary")
	writeContract(t, cfg, "image.png", "binary")

	result, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if result.Scanned != 1 {
		t.Errorf("Expected only 1 file scanned, got %d", result.Scanned)
	}
}

func TestScanEmptyDirectory(t *testing.T) {
	scanner, _, _ := newTestScanner(t)

	result, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if result.Scanned != 0 {
		t.Errorf("Expected nothing scanned, got %d", result.Scanned)
	}
}
