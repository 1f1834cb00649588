package handler

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/lexscan/regtracker/model"
	"github.com/lexscan/regtracker/service"
)

type ContractHandler struct {
	registry  *service.Registry
	extractor service.TextExtractor
	applier   *service.Applier
	passMu    *sync.Mutex
}

func NewContractHandler(registry *service.Registry, extractor service.TextExtractor, applier *service.Applier, passMu *sync.Mutex) *ContractHandler {
	return &ContractHandler{
		registry:  registry,
		extractor: extractor,
		applier:   applier,
		passMu:    passMu,
	}
}

// List returns a summary of every tracked contract
func (h *ContractHandler) List(c *gin.Context) {
	records := h.registry.List()

	result := make([]gin.H, len(records))
	for i, rec := range records {
		result[i] = gin.H{
			"id":                rec.ID,
			"file_path":         rec.FilePath,
			"status":            rec.Status,
			"version":           rec.Version,
			"regulatory_status": rec.RegulatoryStatus,
			"age_status":        rec.AgeStatus,
			"auto_apply":        rec.AutoApply,
			"proposals":         len(rec.Proposals),
			"last_updated":      rec.LastUpdated,
		}
	}

	c.JSON(http.StatusOK, gin.H{"contracts": result})
}

// Get returns a single contract record with full history
func (h *ContractHandler) Get(c *gin.Context) {
	id := c.Param("id")

	rec := h.registry.Get(id)
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// Diff returns the clause-level changes between the latest archived (or
// snapshot) text and the current document text
func (h *ContractHandler) Diff(c *gin.Context) {
	id := c.Param("id")

	rec := h.registry.Get(id)
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}

	curText := h.extractor.ExtractText(rec.FilePath)
	if curText == "" {
		curText = rec.SnapshotText
	}

	prevText := ""
	if n := len(rec.ArchivedPaths); n > 0 {
		prevText = h.extractor.ExtractText(rec.ArchivedPaths[n-1])
	}
	if prevText == "" {
		prevText = rec.SnapshotText
	}

	changes := service.DetectChanges(prevText, curText)
	c.JSON(http.StatusOK, gin.H{
		"id":      rec.ID,
		"version": rec.Version,
		"added":   changes.Added,
		"removed": changes.Removed,
	})
}

// Archive marks a contract as Archived (operator action; the core never
// deletes records)
func (h *ContractHandler) Archive(c *gin.Context) {
	id := c.Param("id")

	if err := h.registry.SetStatus(id, model.StatusArchived); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}
	if err := h.registry.Persist(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist registry: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Contract archived"})
}

type AutoApplyRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetAutoApply toggles unattended amendment application for a contract
func (h *ContractHandler) SetAutoApply(c *gin.Context) {
	id := c.Param("id")

	var req AutoApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.registry.SetAutoApply(id, *req.Enabled); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}
	if err := h.registry.Persist(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist registry: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "auto_apply": *req.Enabled})
}

type JurisdictionRequest struct {
	Jurisdiction string `json:"jurisdiction" binding:"required"`
}

// SetJurisdiction records the contract's jurisdiction used by risk scoring
func (h *ContractHandler) SetJurisdiction(c *gin.Context) {
	id := c.Param("id")

	var req JurisdictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.registry.SetJurisdiction(id, req.Jurisdiction); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}
	if err := h.registry.Persist(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist registry: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "jurisdiction": req.Jurisdiction})
}

// ApplyProposal applies a suggested amendment to its contract, producing a
// new document version and archiving the superseded one
func (h *ContractHandler) ApplyProposal(c *gin.Context) {
	id := c.Param("id")

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid proposal index"})
		return
	}

	h.passMu.Lock()
	defer h.passMu.Unlock()

	rec := h.registry.Get(id)
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return
	}
	if index < 0 || index >= len(rec.Proposals) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Proposal not found"})
		return
	}
	prop := rec.Proposals[index]
	if prop.Status == model.ProposalApplied {
		c.JSON(http.StatusConflict, gin.H{"error": "Proposal already applied"})
		return
	}

	amendment, err := os.ReadFile(prop.AmendmentTxt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Amendment draft missing: " + prop.AmendmentTxt})
		return
	}

	result, err := h.applier.Apply(rec.FilePath, string(amendment), rec.Version)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply amendment: " + err.Error()})
		return
	}

	if err := h.registry.RecordAmendment(id, prop.RegID, result); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record amendment: " + err.Error()})
		return
	}
	if err := h.registry.MarkProposalApplied(id, index); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update proposal: " + err.Error()})
		return
	}
	if err := h.registry.Persist(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to persist registry: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       id,
		"reg_id":   prop.RegID,
		"new_file": result.NewFilePath,
		"archived": result.ArchivedPath,
		"version":  result.NewVersion,
	})
}
