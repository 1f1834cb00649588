package service

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// amendmentDelimiter separates the original contract text from the appended
// amendment section in a composed new version.
const amendmentDelimiter = "\n\n=== AMENDMENT ===\n"

// ApplyResult carries everything the caller needs to update the owning
// contract record. The applier itself never mutates the registry.
type ApplyResult struct {
	NewFilePath  string `json:"new_file"`
	RenderedPath string `json:"rendered,omitempty"`
	ArchivedPath string `json:"archived,omitempty"`
	NewVersion   int    `json:"version"`
}

// Applier materializes an approved amendment as a new document version and
// archives the superseded artifact.
type Applier struct {
	archiveDir string
	extractor  TextExtractor
	renderer   ReportRenderer
}

func NewApplier(archiveDir string, extractor TextExtractor, renderer ReportRenderer) *Applier {
	return &Applier{
		archiveDir: archiveDir,
		extractor:  extractor,
		renderer:   renderer,
	}
}

// Apply composes the contract's extracted text with the amendment, writes it
// as the next version artifact, renders a human-viewable copy, and moves the
// prior artifact into the archive. The original content is never lost: if
// the archive move degrades to a copy and even the copy fails, the prior
// artifact stays where it was.
func (a *Applier) Apply(contractPath, amendmentText string, currentVersion int) (*ApplyResult, error) {
	if _, err := os.Stat(contractPath); err != nil {
		return nil, fmt.Errorf("contract file %s: %w", contractPath, ErrNotFound)
	}

	curText := a.extractor.ExtractText(contractPath)
	newText := curText + amendmentDelimiter + amendmentText + "\n"

	ext := filepath.Ext(contractPath)
	stem := strings.TrimSuffix(filepath.Base(contractPath), ext)
	newVersion := currentVersion + 1
	newPath := filepath.Join(filepath.Dir(contractPath), fmt.Sprintf("%s_v%d%s", stem, newVersion, ext))

	if err := os.WriteFile(newPath, []byte(newText), 0o644); err != nil {
		// Retry as plain text before giving up on the new version.
		newPath = strings.TrimSuffix(newPath, ext) + ".txt"
		if err := os.WriteFile(newPath, []byte(newText), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write new version: %w", err)
		}
	}

	renderedDest := strings.TrimSuffix(newPath, filepath.Ext(newPath)) + "_view"
	renderedPath := RenderOrFallback(a.renderer, newText, renderedDest)

	archivedPath := archiveFile(a.archiveDir, contractPath)

	return &ApplyResult{
		NewFilePath:  newPath,
		RenderedPath: renderedPath,
		ArchivedPath: archivedPath,
		NewVersion:   newVersion,
	}, nil
}

// archiveFile moves a superseded artifact into the archive directory under a
// timestamped name. When an atomic rename is unavailable it degrades to
// copy-then-best-effort-delete; when even the copy fails the original is
// left in place and an empty path is returned.
func archiveFile(archiveDir, path string) string {
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		slog.Warn("failed to create archive directory", "dir", archiveDir, "error", err)
		return ""
	}

	ts := time.Now().UTC().Format("20060102150405")
	archivedPath := filepath.Join(archiveDir, fmt.Sprintf("%s.bak_%s", filepath.Base(path), ts))

	if err := os.Rename(path, archivedPath); err == nil {
		return archivedPath
	}

	if err := copyFile(path, archivedPath); err != nil {
		slog.Warn("failed to archive superseded file", "path", path, "error", err)
		return ""
	}
	if err := os.Remove(path); err != nil {
		slog.Warn("superseded file archived but not removed", "path", path, "error", err)
	}
	return archivedPath
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
