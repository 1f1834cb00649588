package service

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexscan/regtracker/config"
)

// ScanResult summarizes one scan pass over the contract corpus.
type ScanResult struct {
	Scanned int      `json:"scanned"`
	New     []string `json:"new"`
	Changed []string `json:"changed"`
	Moved   []string `json:"moved"`
	Reports []string `json:"reports"`
}

// Scanner runs the change-detection pass: it reads every document in the
// contracts directory, registers unseen ones, and advances registry entries
// whose content hash no longer matches.
type Scanner struct {
	registry  *Registry
	extractor TextExtractor
	renderer  ReportRenderer
	mirror    *ArtifactMirror
	cfg       *config.StoreConfig
}

func NewScanner(registry *Registry, extractor TextExtractor, renderer ReportRenderer, mirror *ArtifactMirror, cfg *config.StoreConfig) *Scanner {
	return &Scanner{
		registry:  registry,
		extractor: extractor,
		renderer:  renderer,
		mirror:    mirror,
		cfg:       cfg,
	}
}

// contract document extensions considered by the scan; unsupported formats
// still extract to empty text.
var scanExtensions = map[string]bool{
	".txt": true,
	".md":  true,
	".pdf": true,
}

// Scan runs one pass to completion and persists the registry as a whole at
// the end. A persist failure is fatal to the pass; everything before it is
// per-file and never aborts the batch.
func (s *Scanner) Scan(ctx context.Context) (*ScanResult, error) {
	if err := os.MkdirAll(s.cfg.ContractsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create contracts directory: %w", err)
	}
	if err := os.MkdirAll(s.cfg.UpdatesDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create updates directory: %w", err)
	}

	result := &ScanResult{
		New:     []string{},
		Changed: []string{},
		Moved:   []string{},
		Reports: []string{},
	}

	files, err := findContractFiles(s.cfg.ContractsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}

	for _, path := range files {
		s.scanFile(ctx, path, result)
	}

	if err := s.registry.Persist(); err != nil {
		return nil, err
	}

	slog.Info("scan complete",
		"scanned", result.Scanned,
		"new", len(result.New),
		"changed", len(result.Changed),
		"moved", len(result.Moved),
	)
	return result, nil
}

func (s *Scanner) scanFile(ctx context.Context, path string, result *ScanResult) {
	result.Scanned++

	id := ContractID(path)
	text := s.extractor.ExtractText(path)
	hash := HashText(text)

	rec := s.registry.Get(id)
	if rec == nil {
		s.registry.RegisterNew(path, ExtractFirstDate(text), hash, text)
		slog.Info("contract registered", "contract_id", id, "path", path)
		result.New = append(result.New, id)
		return
	}

	if hash == rec.ContentHash {
		if path != rec.FilePath {
			// Same content at a new location: a move, not a revision.
			if err := s.registry.RecordMove(id, path); err != nil {
				slog.Warn("failed to record move", "contract_id", id, "error", err)
				return
			}
			result.Moved = append(result.Moved, id)
		}
		return
	}

	slog.Info("change detected", "contract_id", id, "path", path)

	oldText := ""
	if rec.FilePath != "" && rec.FilePath != path {
		oldText = s.extractor.ExtractText(rec.FilePath)
	}
	if oldText == "" {
		// No surviving previous artifact; the bounded snapshot is the
		// fallback previous-version source.
		oldText = rec.SnapshotText
	}

	changes := DetectChanges(oldText, text)
	report := BuildUpdateReport(changes, id, filepath.Base(path))
	ts := time.Now().UTC().Format("20060102150405")
	reportDest := filepath.Join(s.cfg.UpdatesDir, fmt.Sprintf("Updated_%s_%s", id, ts))
	reportPath := RenderOrFallback(s.renderer, report, reportDest)
	if reportPath != "" {
		result.Reports = append(result.Reports, reportPath)
		mirrorArtifact(ctx, s.mirror, reportPath)
	}

	archivedPath := ""
	if rec.FilePath != "" && rec.FilePath != path {
		if _, err := os.Stat(rec.FilePath); err == nil {
			archivedPath = archiveFile(s.cfg.ArchiveDir, rec.FilePath)
		} else {
			// The prior artifact is already gone; nothing to archive and
			// nothing to report. The snapshot covered the diff above.
			slog.Warn("previous contract file missing, skipping archive", "contract_id", id, "path", rec.FilePath)
		}
	}

	if err := s.registry.RecordChange(id, hash, path, text, reportPath, archivedPath); err != nil {
		slog.Warn("failed to record change", "contract_id", id, "error", err)
		return
	}
	result.Changed = append(result.Changed, id)
}

func findContractFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if scanExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
