package service

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// TextExtractor turns a document file into plain text. Extraction never
// fails loudly: unsupported formats, missing files, and read errors all
// degrade to an empty string.
type TextExtractor interface {
	ExtractText(path string) string
	Supports(ext string) bool
}

// PlainTextExtractor handles UTF-8 text documents (.txt, .md). Binary
// formats such as PDF are unsupported and extract to empty text.
type PlainTextExtractor struct{}

func (PlainTextExtractor) Supports(ext string) bool {
	switch strings.ToLower(ext) {
	case ".txt", ".md":
		return true
	default:
		return false
	}
}

func (e PlainTextExtractor) ExtractText(path string) string {
	if !e.Supports(filepath.Ext(path)) {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// ResolveExtractor picks the text extractor available to this process. The
// choice is made once at startup; per-file failures still degrade to empty
// text rather than surfacing here.
func ResolveExtractor() TextExtractor {
	slog.Info("text extractor resolved", "formats", ".txt,.md")
	return PlainTextExtractor{}
}

// HashText returns the content digest of extracted text. The digest is
// content-addressed: identical text hashes identically regardless of where
// the file lives. Empty text maps to the empty-string sentinel, which never
// equals the digest of non-empty text.
func HashText(text string) string {
	if text == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

var firstYearRe = regexp.MustCompile(`(19|20)\d{2}`)

// ExtractFirstDate returns the first four-digit year found in the text, or
// an empty string when the text carries no recognizable year.
func ExtractFirstDate(text string) string {
	return firstYearRe.FindString(text)
}
