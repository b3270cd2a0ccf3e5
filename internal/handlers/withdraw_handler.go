package handlers

import (
	"net/http"
	"strconv"

	"payout-backend/internal/apperrors"
	"payout-backend/internal/models"
	"payout-backend/internal/repository"
	"payout-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// WithdrawHandler exposes the withdrawal lifecycle over HTTP.
type WithdrawHandler struct {
	service *services.WithdrawService
	repo    repository.WithdrawRequestRepository
	logger  *logrus.Logger
}

// NewWithdrawHandler creates a new WithdrawHandler instance
func NewWithdrawHandler(service *services.WithdrawService, repo repository.WithdrawRequestRepository, logger *logrus.Logger) *WithdrawHandler {
	return &WithdrawHandler{service: service, repo: repo, logger: logger}
}

type createWithdrawRequest struct {
	AccountID          string `json:"account_id" binding:"required"`
	Amount             string `json:"amount" binding:"required"`
	Currency           string `json:"currency" binding:"required"`
	Network            string `json:"network" binding:"required"`
	DestinationAddress string `json:"destination_address" binding:"required"`
	Memo               string `json:"memo"`
}

type transitionRequest struct {
	Status        string `json:"status" binding:"required"`
	FailureReason string `json:"failure_reason"`
}

// CreateHandler accepts a signed withdrawal submission.
// POST /api/v1/withdrawals
func (h *WithdrawHandler) CreateHandler(c *gin.Context) {
	var req createWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body",
			"message": err.Error(),
		})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid amount",
			"message": err.Error(),
		})
		return
	}

	request, err := h.service.Create(c.Request.Context(), services.CreateWithdrawParams{
		AccountID:          req.AccountID,
		Amount:             amount,
		Currency:           req.Currency,
		Network:            req.Network,
		DestinationAddress: req.DestinationAddress,
		Memo:               req.Memo,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    request,
	})
}

// TransitionHandler applies an operator status change.
// POST /api/v1/withdrawals/:id/status
func (h *WithdrawHandler) TransitionHandler(c *gin.Context) {
	id := c.Param("id")

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body",
			"message": err.Error(),
		})
		return
	}

	request, err := h.service.Transition(c.Request.Context(), id, services.TransitionParams{
		Status:        models.WithdrawStatus(req.Status),
		FailureReason: req.FailureReason,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    request,
	})
}

// GetHandler returns one withdrawal by id.
// GET /api/v1/withdrawals/:id
func (h *WithdrawHandler) GetHandler(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    request,
	})
}

// ListByAccountHandler lists an account's withdrawals, newest first.
// GET /api/v1/accounts/:id/withdrawals
func (h *WithdrawHandler) ListByAccountHandler(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	requests, total, err := h.repo.FindByAccount(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    requests,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *WithdrawHandler) writeError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("withdraw request failed")
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}
