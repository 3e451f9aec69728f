package front

import (
	"time"

	apphttp "github.com/exact3design/soundcard/internal/http"
	"github.com/exact3design/soundcard/internal/http/api/front/handlers"
	"github.com/exact3design/soundcard/internal/production"
	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
)

// Deps groups what the public routes need.
type Deps struct {
	Cards     handlers.CardService
	Orders    handlers.OrderCreator
	Blobs     production.BlobStore
	JWTSecret string

	Redis      rd.Scripter // Nil disables rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// RegisterFrontRoutes registers the public card, order intake, and pack download routes.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil {
		return
	}

	limit := func(scope string) gin.HandlerFunc {
		return apphttp.RateLimit(deps.Redis, scope, deps.RateLimit, deps.RateWindow)
	}

	front := r.Group("/v0/front")

	cardHandler := handlers.NewCardHandler(deps.Cards)
	front.GET("/cards/:token", limit("read"), cardHandler.Get)
	front.POST("/cards/:token/claim", limit("claim"), cardHandler.Claim)
	front.POST("/cards/:token/change-link", limit("claim"), cardHandler.ChangeLink)

	setupHandler := handlers.NewSetupHandler(deps.Orders)
	front.POST("/setup", limit("setup"), setupHandler.Create)

	packHandler := handlers.NewPackHandler(deps.Blobs, deps.JWTSecret)
	r.GET(production.PackDownloadPath, limit("download"), packHandler.Download)
}
