package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bolita-miniapp-backend/internal/models"
	"bolita-miniapp-backend/internal/services"
)

type AccountHandler struct {
	redisService *services.RedisService
	ledger       *services.Ledger
}

func NewAccountHandler(redisService *services.RedisService, ledger *services.Ledger) *AccountHandler {
	return &AccountHandler{
		redisService: redisService,
		ledger:       ledger,
	}
}

func accountResponse(account *models.Account) gin.H {
	return gin.H{
		"telegram_id": account.TelegramID,
		"first_name":  account.FirstName,
		"username":    account.Username,
		"cup":         account.CUP,
		"usd":         account.USD,
		"bonus_cup":   account.BonusCUP,
		"created_at":  account.CreatedAt,
	}
}

func (h *AccountHandler) GetCurrentAccount(c *gin.Context) {
	userID := c.GetInt64("user_id")

	account, err := h.redisService.GetAccount(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}

	referrals, _ := h.redisService.ReferralCount(userID)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"account":   accountResponse(account),
		"referrals": referrals,
	})
}

func (h *AccountHandler) Transfer(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		ToID     int64  `json:"to_id" binding:"required"`
		Currency string `json:"currency" binding:"required"`
		Amount   string `json:"amount" binding:"required"`
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

	if err := h.ledger.Transfer(userID, req.ToID, models.Currency(req.Currency), amount); err != nil {
		status := http.StatusBadRequest
		if err == models.ErrInsufficientFunds {
			status = http.StatusPaymentRequired
		}
		c.JSON(status, gin.H{
			"error":   "Transfer failed",
			"details": err.Error(),
		})
		return
	}

	account, _ := h.redisService.GetAccount(userID)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"account": accountResponse(account),
	})
}

func (h *AccountHandler) GetTransactions(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	transactions, err := h.redisService.GetUserTransactions(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": transactions,
	})
}
