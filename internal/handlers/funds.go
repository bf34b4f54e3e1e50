package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bolita-miniapp-backend/internal/models"
	"bolita-miniapp-backend/internal/services"
)

type FundsHandler struct {
	gateway      *services.FundRequestGateway
	redisService *services.RedisService
}

func NewFundsHandler(gateway *services.FundRequestGateway, redisService *services.RedisService) *FundsHandler {
	return &FundsHandler{
		gateway:      gateway,
		redisService: redisService,
	}
}

func (h *FundsHandler) GetPaymentMethods(c *gin.Context) {
	kind := models.FundDirection(c.DefaultQuery("kind", string(models.FundDeposit)))
	if kind != models.FundDeposit && kind != models.FundWithdraw {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown method kind"})
		return
	}

	methods, err := h.redisService.ListPaymentMethods(kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load methods"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"methods": methods,
	})
}

func (h *FundsHandler) RequestDeposit(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		MethodID string `json:"method_id" binding:"required"`
		Amount   string `json:"amount" binding:"required"` // e.g. "500 cup"
		ProofRef string `json:"proof_ref"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	request, err := h.gateway.CreateDepositRequest(userID, req.MethodID, req.Amount, req.ProofRef)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, models.ErrMethodNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":   "Failed to create deposit request",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"request": request,
	})
}

func (h *FundsHandler) RequestWithdraw(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		MethodID    string `json:"method_id" binding:"required"`
		Amount      string `json:"amount" binding:"required"`
		Currency    string `json:"currency" binding:"required"`
		AccountInfo string `json:"account_info" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}

	request, err := h.gateway.CreateWithdrawRequest(userID, req.MethodID,
		amount, models.Currency(req.Currency), req.AccountInfo)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, models.ErrMethodNotFound):
			status = http.StatusNotFound
		case errors.Is(err, models.ErrInsufficientFunds):
			status = http.StatusPaymentRequired
		}
		c.JSON(status, gin.H{
			"error":   "Failed to create withdraw request",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"request": request,
	})
}
