package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/exact3design/soundcard/internal/apperr"
	"github.com/exact3design/soundcard/internal/config"
	apphttp "github.com/exact3design/soundcard/internal/http"
	"github.com/exact3design/soundcard/internal/models"
	"github.com/exact3design/soundcard/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
)

// AdminFinder loads operator accounts.
type AdminFinder interface {
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
}

// AuthHandler handles operator sign-in.
type AuthHandler struct {
	admins AdminFinder
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(admins AdminFinder, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{admins: admins, jwtCfg: jwtCfg}
}

// loginRequest defines the request body for password login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginTOTPRequest defines the request body for TOTP login.
type loginTOTPRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

// Login authenticates with a password. Accounts with TOTP enabled must use LoginTOTP.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apphttp.WriteError(c, apperr.InvalidInput("invalid json"))
		return
	}
	username := strings.TrimSpace(body.Username)
	password := strings.TrimSpace(body.Password)
	if username == "" || password == "" {
		apphttp.WriteError(c, apperr.InvalidInput("username and password are required"))
		return
	}

	admin, ok := h.loadActive(c, username)
	if !ok {
		return
	}
	if strings.TrimSpace(admin.TOTPSecret) != "" {
		apphttp.WriteError(c, denied("mfa required"))
		return
	}
	if !security.CheckPassword(admin.Password, password) {
		apphttp.WriteError(c, denied("invalid credentials"))
		return
	}

	h.respondWithAdminToken(c, admin)
}

// LoginTOTP authenticates with a TOTP code.
func (h *AuthHandler) LoginTOTP(c *gin.Context) {
	var body loginTOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apphttp.WriteError(c, apperr.InvalidInput("invalid json"))
		return
	}
	username := strings.TrimSpace(body.Username)
	code := strings.TrimSpace(body.Code)
	if username == "" || code == "" {
		apphttp.WriteError(c, apperr.InvalidInput("username and code are required"))
		return
	}

	admin, ok := h.loadActive(c, username)
	if !ok {
		return
	}
	if strings.TrimSpace(admin.TOTPSecret) == "" {
		apphttp.WriteError(c, denied("totp not enabled"))
		return
	}
	if !totp.Validate(code, admin.TOTPSecret) {
		apphttp.WriteError(c, denied("invalid code"))
		return
	}

	h.respondWithAdminToken(c, admin)
}

func (h *AuthHandler) loadActive(c *gin.Context, username string) (*models.Admin, bool) {
	admin, errFind := h.admins.FindByUsername(c.Request.Context(), username)
	if errFind != nil {
		apphttp.WriteError(c, denied("invalid credentials"))
		return nil, false
	}
	if !admin.Active {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "admin account is disabled"})
		return nil, false
	}
	return admin, true
}

// respondWithAdminToken issues a session JWT.
func (h *AuthHandler) respondWithAdminToken(c *gin.Context, admin *models.Admin) {
	token, errToken := security.GenerateAdminToken(h.jwtCfg.Secret, admin.ID, admin.Username, h.jwtCfg.Expiry)
	if errToken != nil {
		apphttp.WriteError(c, apperr.Unexpected(errToken))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{
			"id":       admin.ID,
			"username": admin.Username,
		},
	})
}

// denied builds an unauthorized error without claim lockout fields.
func denied(message string) *apperr.Error {
	return &apperr.Error{Kind: apperr.KindUnauthorized, Message: message}
}
