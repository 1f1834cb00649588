package service

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ReportRenderer writes a human-viewable artifact for the given text and
// returns the path it actually wrote.
type ReportRenderer interface {
	Render(text, destPath string) (string, error)
}

// TextRenderer writes reports as plain UTF-8 text files, forcing a .txt
// extension on the destination.
type TextRenderer struct{}

func (TextRenderer) Render(text, destPath string) (string, error) {
	out := forceExt(destPath, ".txt")
	if dir := filepath.Dir(out); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return out, nil
}

// ResolveRenderer picks the report renderer for the configured format.
// Unknown formats are a startup-time configuration fact, not a per-call
// error: they log a warning and fall back to plain text.
func ResolveRenderer(format string) ReportRenderer {
	switch format {
	case "", "text", "txt":
		return TextRenderer{}
	default:
		slog.Warn("unsupported report format, using text", "format", format)
		return TextRenderer{}
	}
}

// RenderOrFallback renders text to destPath and never lets a renderer
// failure escape this boundary: on error it degrades to writing a plain
// .txt at the same logical destination. Returns the written path, or an
// empty string when even the fallback failed.
func RenderOrFallback(r ReportRenderer, text, destPath string) string {
	out, err := r.Render(text, destPath)
	if err == nil {
		return out
	}
	slog.Warn("report rendering failed, falling back to plain text", "dest", destPath, "error", err)

	fallback := forceExt(destPath, ".txt")
	if werr := os.WriteFile(fallback, []byte(text), 0o644); werr != nil {
		slog.Error("plain-text report fallback failed", "dest", fallback, "error", werr)
		return ""
	}
	return fallback
}

// BuildUpdateReport formats a detected change set as the update report text
// attached to a contract revision.
func BuildUpdateReport(changes ChangeSet, contractID, filename string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Contract Update Report: %s\n", contractID)
	fmt.Fprintf(&b, "Source File: %s\n", filename)
	fmt.Fprintf(&b, "Generated: %s UTC\n\n", time.Now().UTC().Format(time.RFC3339))

	b.WriteString("ADDED CLAUSES:\n")
	if len(changes.Added) == 0 {
		b.WriteString(" (none)\n")
	}
	for _, a := range changes.Added {
		fmt.Fprintf(&b, "+ %s\n", a)
	}

	b.WriteString("\nREMOVED CLAUSES:\n")
	if len(changes.Removed) == 0 {
		b.WriteString(" (none)\n")
	}
	for _, r := range changes.Removed {
		fmt.Fprintf(&b, "- %s\n", r)
	}

	return b.String()
}

func forceExt(path, ext string) string {
	cur := filepath.Ext(path)
	if cur == ext {
		return path
	}
	return strings.TrimSuffix(path, cur) + ext
}
