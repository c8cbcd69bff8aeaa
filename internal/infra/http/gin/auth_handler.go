package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"shortlet/internal/app/dto"
	authsvc "shortlet/internal/app/services/auth"
	domainuser "shortlet/internal/domain/user"
)

type AuthHTTP interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Me(c *gin.Context)
}

// AuthHandler exposes account registration and bearer sessions.
type AuthHandler struct {
	Service *authsvc.Service
	Logger  *slog.Logger
}

type registerRequest struct {
	Email     string `json:"email" binding:"required"`
	Name      string `json:"name"`
	Password  string `json:"password" binding:"required"`
	AsRealtor bool   `json:"as_realtor"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h AuthHandler) available(c *gin.Context) bool {
	if h.Service != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "auth service unavailable"})
	return false
}

func (h AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !h.available(c) || !bindJSON(c, &req) {
		return
	}
	result, err := h.Service.Register(c.Request.Context(), authsvc.RegisterParams(req))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewAuthResponse(result.User, result.Token))
}

func (h AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !h.available(c) || !bindJSON(c, &req) {
		return
	}
	result, err := h.Service.Login(c.Request.Context(), authsvc.LoginParams(req))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewAuthResponse(result.User, result.Token))
}

// Logout revokes the caller's current session only.
func (h AuthHandler) Logout(c *gin.Context) {
	if !h.available(c) {
		return
	}
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	if err := h.Service.Logout(c.Request.Context(), p.Token); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me reloads the account so role grants and blocks made after login show up.
func (h AuthHandler) Me(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok || !h.available(c) {
		return
	}
	user, err := h.Service.Users.ByID(c.Request.Context(), domainuser.ID(p.ID))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapUserProfile(user))
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}

var _ AuthHTTP = (*AuthHandler)(nil)
