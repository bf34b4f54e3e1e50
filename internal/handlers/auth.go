package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bolita-miniapp-backend/internal/services"
)

type AuthHandler struct {
	redisService *services.RedisService
	jwtService   *services.JWTService
	botToken     string
}

func NewAuthHandler(redisService *services.RedisService, jwtService *services.JWTService, botToken string) *AuthHandler {
	return &AuthHandler{
		redisService: redisService,
		jwtService:   jwtService,
		botToken:     botToken,
	}
}

type telegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Login validates Telegram WebApp initData and exchanges it for a JWT. The
// account is created on first login, with the welcome bonus attached.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		InitData   string `json:"init_data" binding:"required"`
		ReferredBy int64  `json:"referred_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	user, err := h.verifyInitData(req.InitData)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid init data"})
		return
	}

	account, err := h.redisService.GetOrCreateAccount(user.ID, user.FirstName, user.Username, req.ReferredBy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load account"})
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"account": accountResponse(account),
	})
}

// verifyInitData checks the Telegram WebApp signature: HMAC-SHA256 over the
// sorted data-check-string, keyed with HMAC("WebAppData", bot_token).
func (h *AuthHandler) verifyInitData(initData string) (*telegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse init data: %v", err)
	}

	receivedHash := values.Get("hash")
	if receivedHash == "" {
		return nil, fmt.Errorf("missing hash")
	}
	values.Del("hash")

	var pairs []string
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	secretKey := hmac.New(sha256.New, []byte("WebAppData"))
	secretKey.Write([]byte(h.botToken))

	mac := hmac.New(sha256.New, secretKey.Sum(nil))
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(receivedHash)) {
		return nil, fmt.Errorf("hash mismatch")
	}

	if authDate := values.Get("auth_date"); authDate != "" {
		ts, err := strconv.ParseInt(authDate, 10, 64)
		if err != nil || time.Since(time.Unix(ts, 0)) > 24*time.Hour {
			return nil, fmt.Errorf("init data expired")
		}
	}

	var user telegramUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil {
		return nil, fmt.Errorf("failed to parse user: %v", err)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("missing user id")
	}
	return &user, nil
}
