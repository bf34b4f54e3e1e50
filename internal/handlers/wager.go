package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"bolita-miniapp-backend/internal/models"
	"bolita-miniapp-backend/internal/services"
)

type WagerHandler struct {
	wagerService *services.WagerService
	registry     *services.SessionRegistry
	schedule     *services.Schedule
	redisService *services.RedisService
}

func NewWagerHandler(wagerService *services.WagerService, registry *services.SessionRegistry, schedule *services.Schedule, redisService *services.RedisService) *WagerHandler {
	return &WagerHandler{
		wagerService: wagerService,
		registry:     registry,
		schedule:     schedule,
		redisService: redisService,
	}
}

func (h *WagerHandler) PlaceWager(c *gin.Context) {
	userID := c.GetInt64("user_id")

	var req struct {
		SessionID string `json:"session_id" binding:"required"`
		BetType   string `json:"bet_type" binding:"required"`
		Text      string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	betType := models.BetType(req.BetType)
	if !betType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown bet type"})
		return
	}

	wager, err := h.wagerService.PlaceWager(c.Request.Context(), userID, req.SessionID, betType, req.Text)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, models.ErrInsufficientFunds):
			status = http.StatusPaymentRequired
		case errors.Is(err, models.ErrSessionNotOpen):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{
			"error":   "Failed to place wager",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"wager": gin.H{
			"id":         wager.ID,
			"session_id": wager.SessionID,
			"bet_type":   wager.BetType,
			"items":      wager.Items,
			"total_cup":  wager.TotalCUP,
			"total_usd":  wager.TotalUSD,
			"placed_at":  wager.PlacedAt,
		},
	})
}

func (h *WagerHandler) CancelWager(c *gin.Context) {
	userID := c.GetInt64("user_id")
	wagerID := c.Param("id")

	if err := h.wagerService.CancelWager(c.Request.Context(), userID, wagerID); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, models.ErrWagerNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":   "Failed to cancel wager",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *WagerHandler) GetHistory(c *gin.Context) {
	userID := c.GetInt64("user_id")

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	wagers, err := h.wagerService.History(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"wagers":  wagers,
	})
}

// GetSessions lists today's sessions so the client can show what is open.
func (h *WagerHandler) GetSessions(c *gin.Context) {
	now := time.Now().In(h.schedule.Location())
	date := c.DefaultQuery("date", h.schedule.Today(now))

	sessions, err := h.registry.ListByDate(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sessions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"date":     date,
		"sessions": sessions,
	})
}

func (h *WagerHandler) GetWinningNumbers(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)

	wins, err := h.redisService.ListRecentWinningNumbers(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load winning numbers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"numbers": wins,
	})
}

func (h *WagerHandler) GetRates(c *gin.Context) {
	rates, err := h.redisService.GetExchangeRates()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rates"})
		return
	}

	prices, err := h.redisService.ListPlayPrices()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load prices"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rates":   rates,
		"prices":  prices,
	})
}
