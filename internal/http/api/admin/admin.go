package admin

import (
	"context"
	"net/http"
	"strings"

	"github.com/exact3design/soundcard/internal/config"
	"github.com/exact3design/soundcard/internal/http/api/admin/handlers"
	"github.com/exact3design/soundcard/internal/models"
	"github.com/exact3design/soundcard/internal/production"
	"github.com/exact3design/soundcard/internal/security"
	"github.com/gin-gonic/gin"
)

// AdminStore loads operator accounts.
type AdminStore interface {
	handlers.AdminFinder
	FindByID(ctx context.Context, id uint64) (*models.Admin, error)
}

// Deps groups what the operator routes need.
type Deps struct {
	Admins AdminStore
	Orders handlers.OrderReader
	Links  production.PackLinker
	JWT    config.JWTConfig
}

// RegisterAdminRoutes registers operator login and the order back office.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.Admins == nil || deps.Orders == nil {
		return
	}

	group := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(deps.Admins, deps.JWT)
	group.POST("/login", authHandler.Login)
	group.POST("/login/totp", authHandler.LoginTOTP)

	authed := group.Group("")
	authed.Use(adminAuthMiddleware(deps.Admins, deps.JWT))

	orderHandler := handlers.NewOrderHandler(deps.Orders, deps.Links)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/:id", orderHandler.Get)
	authed.POST("/orders/:id/pack-link", orderHandler.PackLink)
}

// adminAuthMiddleware validates admin JWTs and loads the admin into context.
func adminAuthMiddleware(admins AdminStore, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			abortUnauthorized(c, "invalid authorization format")
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			abortUnauthorized(c, "empty token")
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		admin, errFind := admins.FindByID(c.Request.Context(), claims.AdminID)
		if errFind != nil {
			abortUnauthorized(c, "admin not found")
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "admin account is disabled"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Set("adminUsername", admin.Username)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": message})
}
