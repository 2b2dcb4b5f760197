package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// SessionHeader lets non-browser clients carry the guest session explicitly
const SessionHeader = "X-Session-ID"

// Sessions issues and reads the guest session id
type Sessions struct {
	cookie string
	ttl    time.Duration
	secure bool
}

// NewSessions creates a session helper from config
func NewSessions(cfg *config.Config) *Sessions {
	return &Sessions{
		cookie: cfg.Cart.SessionCookie,
		ttl:    cfg.Cart.GuestTTL,
		secure: cfg.IsProduction(),
	}
}

// Identity resolves the caller, minting a session cookie when none exists
func (s *Sessions) Identity(c *gin.Context) cart.Identity {
	userID, _ := middleware.GetUserID(c)
	return cart.Identity{
		UserID:    userID,
		SessionID: s.sessionID(c),
	}
}

func (s *Sessions) sessionID(c *gin.Context) string {
	if id := c.GetHeader(SessionHeader); validSessionID(id) {
		return id
	}
	if id, err := c.Cookie(s.cookie); err == nil && validSessionID(id) {
		return id
	}

	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.cookie, id, int(s.ttl.Seconds()), "/", "", s.secure, true)
	c.Header(SessionHeader, id)
	return id
}

func validSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
