package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lexscan/regtracker/model"
)

// Registry is the durable, keyed store of contract records. It is held
// entirely in memory during a pass and persisted as one atomic whole-file
// JSON write; concurrent passes against the same store must be serialized by
// the caller.
type Registry struct {
	mu            sync.RWMutex
	path          string
	records       map[string]*model.ContractRecord
	snapshotLimit int
}

// NewRegistry creates a registry backed by the given JSON file. snapshotLimit
// bounds the cached text excerpt kept per record as the fallback
// previous-version source.
func NewRegistry(path string, snapshotLimit int) *Registry {
	if snapshotLimit <= 0 {
		snapshotLimit = 4000
	}
	return &Registry{
		path:          path,
		records:       make(map[string]*model.ContractRecord),
		snapshotLimit: snapshotLimit,
	}
}

// Load reads the whole store from disk. A missing file is an empty registry,
// not an error.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.records = make(map[string]*model.ContractRecord)
			return nil
		}
		return fmt.Errorf("failed to read registry: %w", err)
	}

	records := make(map[string]*model.ContractRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse registry: %w", err)
	}
	for id, rec := range records {
		rec.ID = id
	}
	r.records = records
	slog.Info("registry loaded", "path", r.path, "contracts", len(records))
	return nil
}

// Persist writes the whole store to disk atomically (temp file + rename). A
// failed persist leaves the previous store file untouched and is fatal to
// the calling pass.
func (r *Registry) Persist() error {
	r.mu.RLock()
	data, err := json.MarshalIndent(r.records, "", "  ")
	r.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	dir := filepath.Dir(r.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create registry directory: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		return fmt.Errorf("failed to create registry temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace registry: %w", err)
	}
	return nil
}

// Get returns the record for the given contract id, or nil.
func (r *Registry) Get(id string) *model.ContractRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records[id]
}

// IDs returns all contract ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// List returns all records sorted by contract id.
func (r *Registry) List() []*model.ContractRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*model.ContractRecord, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID < records[j].ID
	})
	return records
}

// Count returns the number of tracked contracts.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// ContractID derives the registry key from a document path: the base name
// without its extension.
func ContractID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// RegisterNew creates a version-1 Active record for a previously unseen
// document. The hash is supplied by the caller, computed from extracted
// text; the registry itself never hashes or extracts.
func (r *Registry) RegisterNew(path, extractedDate, hash, text string) *model.ContractRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := &model.ContractRecord{
		ID:            ContractID(path),
		FilePath:      path,
		ContentHash:   hash,
		Date:          extractedDate,
		LastUpdated:   time.Now().UTC().Format(time.RFC3339),
		Status:        model.StatusActive,
		Version:       1,
		SnapshotText:  r.truncate(text),
		ArchivedPaths: []string{},
	}
	r.records[rec.ID] = rec
	return rec
}

// RecordChange advances an existing record to a new revision: version +1,
// hash/path/snapshot overwritten, the prior file location appended to the
// archive history, and a reference to the generated update report recorded.
// The physical move of the prior file is the caller's side effect.
func (r *Registry) RecordChange(id, newHash, newPath, text, reportRef, archivedPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("contract %s: %w", id, ErrNotFound)
	}

	rec.Version++
	rec.ContentHash = newHash
	rec.FilePath = newPath
	rec.SnapshotText = r.truncate(text)
	rec.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	if reportRef != "" {
		rec.LatestUpdateReport = reportRef
	}
	if archivedPath != "" {
		rec.ArchivedPaths = append(rec.ArchivedPaths, archivedPath)
	}
	return nil
}

// RecordMove updates a record's file path when the same content hash shows
// up at a new location. A move is not a revision: the version is unchanged.
func (r *Registry) RecordMove(id, newPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("contract %s: %w", id, ErrNotFound)
	}
	slog.Info("contract moved", "contract_id", id, "from", rec.FilePath, "to", newPath)
	rec.FilePath = newPath
	return nil
}

// RecordAmendment folds an applier result into the owning record.
func (r *Registry) RecordAmendment(id, regID string, res *ApplyResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("contract %s: %w", id, ErrNotFound)
	}

	rec.FilePath = res.NewFilePath
	rec.Version = res.NewVersion
	rec.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	if res.ArchivedPath != "" {
		rec.ArchivedPaths = append(rec.ArchivedPaths, res.ArchivedPath)
	}
	rec.AppliedAmendments = append(rec.AppliedAmendments, model.AppliedAmendment{
		RegID:        regID,
		AppliedAt:    time.Now().UTC().Format(time.RFC3339),
		NewFilePath:  res.NewFilePath,
		ArchivedPath: res.ArchivedPath,
		Version:      res.NewVersion,
	})
	return nil
}

// MarkProposalApplied transitions a proposal suggested -> applied. The
// transition is forward-only; an already-applied proposal is an error.
func (r *Registry) MarkProposalApplied(id string, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("contract %s: %w", id, ErrNotFound)
	}
	if index < 0 || index >= len(rec.Proposals) {
		return fmt.Errorf("proposal %d of contract %s: %w", index, id, ErrNotFound)
	}
	if rec.Proposals[index].Status == model.ProposalApplied {
		return fmt.Errorf("proposal %d of contract %s already applied", index, id)
	}
	rec.Proposals[index].Status = model.ProposalApplied
	return nil
}

// SetStatus sets the contract lifecycle status (operator action).
func (r *Registry) SetStatus(id, status string) error {
	return r.Update(id, func(rec *model.ContractRecord) {
		rec.Status = status
	})
}

// SetAutoApply toggles unattended amendment application for a contract.
func (r *Registry) SetAutoApply(id string, enabled bool) error {
	return r.Update(id, func(rec *model.ContractRecord) {
		rec.AutoApply = enabled
	})
}

// SetJurisdiction records the contract's jurisdiction used by risk scoring.
func (r *Registry) SetJurisdiction(id, jurisdiction string) error {
	return r.Update(id, func(rec *model.ContractRecord) {
		rec.Jurisdiction = jurisdiction
	})
}

// Update applies a keyed mutation under the write lock.
func (r *Registry) Update(id string, fn func(*model.ContractRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("contract %s: %w", id, ErrNotFound)
	}
	fn(rec)
	return nil
}

func (r *Registry) truncate(text string) string {
	if len(text) > r.snapshotLimit {
		return text[:r.snapshotLimit]
	}
	return text
}
