package handlers

import (
	"net/http"
	"strconv"

	"payout-backend/internal/apperrors"
	"payout-backend/internal/repository"
	"payout-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LedgerHandler exposes the on-chain transfer ledger and the manual scan
// trigger.
type LedgerHandler struct {
	indexer *services.ChainIndexer
	ledger  repository.LedgerRepository
	logger  *logrus.Logger
}

// NewLedgerHandler creates a new LedgerHandler instance
func NewLedgerHandler(indexer *services.ChainIndexer, ledger repository.LedgerRepository, logger *logrus.Logger) *LedgerHandler {
	return &LedgerHandler{indexer: indexer, ledger: ledger, logger: logger}
}

// ListHandler lists ledger entries newest first. With refresh=true a scan
// pass runs before the listing; unreachable networks are skipped, not fatal.
// GET /api/v1/ledger?refresh=&limit=&offset=
func (h *LedgerHandler) ListHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	newEntries := 0
	if c.Query("refresh") == "true" {
		count, err := h.indexer.ScanAll(c.Request.Context())
		if err != nil {
			h.logger.WithError(err).Error("ledger refresh failed")
			c.JSON(apperrors.HTTPStatus(err), gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		newEntries = count
	}

	entries, err := h.ledger.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to list ledger entries",
		})
		return
	}

	total, err := h.ledger.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "failed to count ledger entries",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"data":        entries,
		"new_entries": newEntries,
		"saved_count": len(entries),
		"total":       total,
	})
}

// ScanHandler runs one scan pass for a single (network, contract) pair.
// POST /api/v1/ledger/scan
func (h *LedgerHandler) ScanHandler(c *gin.Context) {
	var req struct {
		Network         string `json:"network" binding:"required"`
		ContractAddress string `json:"contract_address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body",
			"message": err.Error(),
		})
		return
	}

	count, err := h.indexer.Scan(c.Request.Context(), req.Network, req.ContractAddress)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"network":  req.Network,
			"contract": req.ContractAddress,
		}).Error("scan failed")
		c.JSON(apperrors.HTTPStatus(err), gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"new_entries": count,
	})
}
