package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"bolita-miniapp-backend/internal/models"
	"bolita-miniapp-backend/internal/services"
)

type AdminHandler struct {
	redisService *services.RedisService
	registry     *services.SessionRegistry
	payoutEngine *services.PayoutEngine
	gateway      *services.FundRequestGateway
	schedule     *services.Schedule
}

func NewAdminHandler(redisService *services.RedisService, registry *services.SessionRegistry, payoutEngine *services.PayoutEngine, gateway *services.FundRequestGateway, schedule *services.Schedule) *AdminHandler {
	return &AdminHandler{
		redisService: redisService,
		registry:     registry,
		payoutEngine: payoutEngine,
		gateway:      gateway,
		schedule:     schedule,
	}
}

// ========== Sessions ==========

func (h *AdminHandler) CreateSession(c *gin.Context) {
	var req struct {
		Lottery  string `json:"lottery" binding:"required"`
		TimeSlot string `json:"time_slot" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	now := time.Now().In(h.schedule.Location())
	session, err := h.registry.Create(req.Lottery, req.TimeSlot, now)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, models.ErrDuplicateSession):
			status = http.StatusConflict
		case errors.Is(err, models.ErrSlotExpired):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{
			"error":   "Failed to create session",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

func (h *AdminHandler) CloseSession(c *gin.Context) {
	session, err := h.registry.Close(c.Param("id"))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, models.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":   "Failed to close session",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": session,
	})
}

// ========== Settlement ==========

func (h *AdminHandler) PublishWinningNumber(c *gin.Context) {
	var req struct {
		Number string `json:"number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	win, winners, err := h.payoutEngine.Settle(c.Request.Context(), c.Param("id"), req.Number)
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, models.ErrAlreadySettled):
			status = http.StatusConflict
		case errors.Is(err, models.ErrSessionNotFound):
			status = http.StatusNotFound
		case errors.Is(err, models.ErrInvalidWinningNumber):
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error":   "Failed to settle session",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"number":  win,
		"winners": winnersResponse(winners),
	})
}

// ResumeSettlement finishes a credit pass that was interrupted mid-run.
func (h *AdminHandler) ResumeSettlement(c *gin.Context) {
	winners, err := h.payoutEngine.Resume(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to resume settlement",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"winners": winnersResponse(winners),
	})
}

func (h *AdminHandler) GetWinners(c *gin.Context) {
	win, winners, err := h.payoutEngine.Winners(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to load winners",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"number":  win,
		"winners": winnersResponse(winners),
	})
}

func winnersResponse(winners []*services.WagerPrize) []gin.H {
	out := make([]gin.H, 0, len(winners))
	for _, w := range winners {
		out = append(out, gin.H{
			"wager_id":  w.Wager.ID,
			"user_id":   w.Wager.UserID,
			"bet_type":  w.Wager.BetType,
			"prize_cup": w.PrizeCUP,
			"prize_usd": w.PrizeUSD,
		})
	}
	return out
}

// ========== Fund requests ==========

func (h *AdminHandler) ListPendingRequests(c *gin.Context) {
	direction := models.FundDirection(c.DefaultQuery("direction", string(models.FundDeposit)))
	if direction != models.FundDeposit && direction != models.FundWithdraw {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown direction"})
		return
	}

	requests, err := h.gateway.ListPending(direction)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"requests": requests,
	})
}

func (h *AdminHandler) ApproveRequest(c *gin.Context) {
	requestID := c.Param("id")

	request, err := h.gateway.GetRequest(requestID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	}

	if request.Direction == models.FundDeposit {
		request, err = h.gateway.ApproveDeposit(requestID)
	} else {
		request, err = h.gateway.ApproveWithdraw(requestID)
	}
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, models.ErrRequestAlreadyProcessed):
			status = http.StatusConflict
		case errors.Is(err, models.ErrMustReject):
			status = http.StatusPaymentRequired
		}
		c.JSON(status, gin.H{
			"error":   "Failed to approve request",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"request": request,
	})
}

func (h *AdminHandler) RejectRequest(c *gin.Context) {
	request, err := h.gateway.Reject(c.Param("id"))
	if err != nil {
		status := http.StatusBadRequest
		switch {
		case errors.Is(err, models.ErrRequestAlreadyProcessed):
			status = http.StatusConflict
		case errors.Is(err, models.ErrRequestNotFound):
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":   "Failed to reject request",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"request": request,
	})
}

// ========== Rates and prices ==========

func (h *AdminHandler) SetExchangeRate(c *gin.Context) {
	var req struct {
		Field string `json:"field" binding:"required"` // usd, usdt, trx
		Rate  string `json:"rate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	rate, err := decimal.NewFromString(req.Rate)
	if err != nil || !rate.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rate must be a positive number"})
		return
	}

	if err := h.redisService.SetExchangeRate(req.Field, rate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to set rate",
			"details": err.Error(),
		})
		return
	}

	rates, _ := h.redisService.GetExchangeRates()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"rates":   rates,
	})
}

func (h *AdminHandler) SetPlayPrice(c *gin.Context) {
	var price models.PlayPrice
	if err := c.ShouldBindJSON(&price); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if !price.BetType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown bet type"})
		return
	}
	if !price.PayoutMultiplier.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Multiplier must be positive"})
		return
	}

	if err := h.redisService.SetPlayPrice(&price); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save price"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"price":   price,
	})
}

// ========== Payment methods ==========

func (h *AdminHandler) CreatePaymentMethod(c *gin.Context) {
	var req struct {
		Kind      string `json:"kind" binding:"required"`
		Name      string `json:"name" binding:"required"`
		Card      string `json:"card"`
		Confirm   string `json:"confirm"`
		Currency  string `json:"currency" binding:"required"`
		MinAmount string `json:"min_amount"`
		MaxAmount string `json:"max_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	kind := models.FundDirection(req.Kind)
	if kind != models.FundDeposit && kind != models.FundWithdraw {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown method kind"})
		return
	}

	method := &models.PaymentMethod{
		ID:        models.GenerateMethodID(),
		Kind:      kind,
		Name:      req.Name,
		Card:      req.Card,
		Confirm:   req.Confirm,
		Currency:  models.Currency(req.Currency),
		CreatedAt: time.Now().Unix(),
		UpdatedAt: time.Now().Unix(),
	}

	if req.MinAmount != "" {
		min, err := decimal.NewFromString(req.MinAmount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid min_amount"})
			return
		}
		method.MinAmount = &min
	}
	if req.MaxAmount != "" {
		max, err := decimal.NewFromString(req.MaxAmount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid max_amount"})
			return
		}
		method.MaxAmount = &max
	}

	if err := h.redisService.SavePaymentMethod(method); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save method"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"method":  method,
	})
}

// UpdatePaymentMethod patches the editable fields. Omitted fields keep
// their value; the method's kind is fixed at creation.
func (h *AdminHandler) UpdatePaymentMethod(c *gin.Context) {
	method, err := h.redisService.GetPaymentMethod(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Method not found"})
		return
	}

	var req struct {
		Name      string `json:"name"`
		Card      string `json:"card"`
		Confirm   string `json:"confirm"`
		Currency  string `json:"currency"`
		MinAmount string `json:"min_amount"`
		MaxAmount string `json:"max_amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if req.Name != "" {
		method.Name = req.Name
	}
	if req.Card != "" {
		method.Card = req.Card
	}
	if req.Confirm != "" {
		method.Confirm = req.Confirm
	}
	if req.Currency != "" {
		method.Currency = models.Currency(req.Currency)
	}
	if req.MinAmount != "" {
		min, err := decimal.NewFromString(req.MinAmount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid min_amount"})
			return
		}
		method.MinAmount = &min
	}
	if req.MaxAmount != "" {
		max, err := decimal.NewFromString(req.MaxAmount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid max_amount"})
			return
		}
		method.MaxAmount = &max
	}
	method.UpdatedAt = time.Now().Unix()

	if err := h.redisService.SavePaymentMethod(method); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save method"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"method":  method,
	})
}

func (h *AdminHandler) DeletePaymentMethod(c *gin.Context) {
	method, err := h.redisService.GetPaymentMethod(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Method not found"})
		return
	}

	if err := h.redisService.DeletePaymentMethod(method); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete method"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
