package handler

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/lexscan/regtracker/service"
)

// PassHandler exposes the batch passes: the contract scan and the regulatory
// cycle. Both run to completion under the shared pass mutex; concurrent
// passes against the same store are unsafe by design.
type PassHandler struct {
	scanner *service.Scanner
	engine  *service.RiskEngine
	catalog *service.RegCatalog
	feed    *service.RegFeedService
	passMu  *sync.Mutex
}

func NewPassHandler(scanner *service.Scanner, engine *service.RiskEngine, catalog *service.RegCatalog, feed *service.RegFeedService, passMu *sync.Mutex) *PassHandler {
	return &PassHandler{
		scanner: scanner,
		engine:  engine,
		catalog: catalog,
		feed:    feed,
		passMu:  passMu,
	}
}

// RunScan runs one change-detection pass over the contracts directory
func (h *PassHandler) RunScan(c *gin.Context) {
	h.passMu.Lock()
	defer h.passMu.Unlock()

	result, err := h.scanner.Scan(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Scan failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// RunRegulatory runs one full regulatory scoring pass
func (h *PassHandler) RunRegulatory(c *gin.Context) {
	h.passMu.Lock()
	defer h.passMu.Unlock()

	result, err := h.engine.RunFullCycle(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Regulatory pass failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListRegulations returns the current regulation catalog
func (h *PassHandler) ListRegulations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"regulations": h.catalog.Regulations()})
}

// ReloadRegulations re-reads the catalog file from disk
func (h *PassHandler) ReloadRegulations(c *gin.Context) {
	if err := h.catalog.Load(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload catalog: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"regulations": len(h.catalog.Regulations())})
}

// FetchRegulations pulls regulation updates from the configured feed and
// merges them into the catalog
func (h *PassHandler) FetchRegulations(c *gin.Context) {
	if h.feed == nil || !h.feed.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Regulation feed not configured"})
		return
	}

	regs, err := h.feed.FetchUpdates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch regulations: " + err.Error()})
		return
	}

	merged := h.catalog.Merge(regs)
	if err := h.catalog.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save catalog: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"fetched": len(regs), "merged": merged})
}
