package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stampbot/internal/refresh"
)

type tokenView struct {
	UserID    string     `json:"user_id"`
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// AdminTokens lists registered users with their masked tokens.
func (h *Handler) AdminTokens(c *gin.Context) {
	if h.Tokens == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "token store not configured"})
		return
	}
	tokens, err := h.Tokens.FetchAll(c.Request.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("list tokens failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list tokens failed"})
		return
	}
	out := make([]tokenView, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, tokenView{UserID: t.UserID, Token: t.Masked(), ExpiresAt: t.ExpiresAt, CreatedAt: t.CreatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"tokens": out})
}

// AdminRefresh runs the refresh batch synchronously and reports its counters.
func (h *Handler) AdminRefresh(c *gin.Context) {
	if h.Refresher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "refresh not configured"})
		return
	}
	res, err := h.Refresher.Run(c.Request.Context())
	if errors.Is(err, refresh.ErrAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("refresh failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed", "result": res})
		return
	}
	c.JSON(http.StatusOK, res)
}
