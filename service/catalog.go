package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/lexscan/regtracker/model"
)

// demoRegulations seeds a fresh catalog so the engine has something to score
// against before a real feed is configured.
var demoRegulations = []model.Regulation{
	{
		ID:            "reg-2025-gdpr-consent",
		Title:         "GDPR: Consent Recordkeeping Update",
		Jurisdiction:  "EU",
		DatePublished: "2025-10-01",
		Summary:       "Requires explicit recording of consent metadata including timestamp and purpose.",
		Keywords:      []string{"consent", "personal data", "gdpr", "recordkeeping"},
	},
	{
		ID:            "reg-2025-data-localisation",
		Title:         "Data Localisation Advisory",
		Jurisdiction:  "IN",
		DatePublished: "2025-09-15",
		Summary:       "Advisory recommending storage of certain personal data within jurisdictional borders.",
		Keywords:      []string{"localis", "data localisation", "personal data", "cross-border"},
	},
}

// RegCatalog is the reloadable in-memory catalog of regulation records,
// backed by a JSON file.
type RegCatalog struct {
	mu   sync.RWMutex
	path string
	regs []model.Regulation
}

func NewRegCatalog(path string) *RegCatalog {
	return &RegCatalog{path: path}
}

// Load reads the catalog file, creating it with the demo default set when it
// does not exist. An unreadable catalog degrades to the demo set rather than
// failing the engine.
func (c *RegCatalog) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.path); os.IsNotExist(err) {
		c.regs = append([]model.Regulation(nil), demoRegulations...)
		if err := c.saveLocked(); err != nil {
			return fmt.Errorf("failed to seed regulation catalog: %w", err)
		}
		slog.Info("regulation catalog seeded", "path", c.path, "regulations", len(c.regs))
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		slog.Warn("regulation catalog unreadable, using demo set", "path", c.path, "error", err)
		c.regs = append([]model.Regulation(nil), demoRegulations...)
		return nil
	}
	var regs []model.Regulation
	if err := json.Unmarshal(data, &regs); err != nil {
		slog.Warn("regulation catalog malformed, using demo set", "path", c.path, "error", err)
		c.regs = append([]model.Regulation(nil), demoRegulations...)
		return nil
	}
	c.regs = regs
	slog.Info("regulation catalog loaded", "path", c.path, "regulations", len(regs))
	return nil
}

// Regulations returns a copy of the current catalog entries.
func (c *RegCatalog) Regulations() []model.Regulation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Regulation(nil), c.regs...)
}

// Save writes the catalog back to its file.
func (c *RegCatalog) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *RegCatalog) saveLocked() error {
	data, err := json.MarshalIndent(c.regs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	return nil
}

// Merge upserts fetched regulations into the catalog by id and returns the
// number of entries added or replaced.
func (c *RegCatalog) Merge(regs []model.Regulation) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := 0
	for _, reg := range regs {
		if reg.ID == "" {
			continue
		}
		replaced := false
		for i := range c.regs {
			if c.regs[i].ID == reg.ID {
				c.regs[i] = reg
				replaced = true
				break
			}
		}
		if !replaced {
			c.regs = append(c.regs, reg)
		}
		changed++
	}
	return changed
}
