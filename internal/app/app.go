// Package app wires configuration, storage, and the HTTP surface into the
// commands the CLI exposes.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/exact3design/soundcard/internal/claim"
	"github.com/exact3design/soundcard/internal/config"
	"github.com/exact3design/soundcard/internal/db"
	apphttp "github.com/exact3design/soundcard/internal/http"
	"github.com/exact3design/soundcard/internal/http/api/admin"
	"github.com/exact3design/soundcard/internal/http/api/front"
	"github.com/exact3design/soundcard/internal/logging"
	"github.com/exact3design/soundcard/internal/production"
	"github.com/exact3design/soundcard/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	rd "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if err = db.Migrate(conn.WithContext(ctx)); err != nil {
		return err
	}
	log.Infof("migrations applied (config=%s)", configPath)
	return nil
}

// RunServer boots the HTTP service and blocks until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	appCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logCloser, err := logging.Setup(appCfg.Logging)
	if err != nil {
		return err
	}
	if logCloser != nil {
		defer func() { _ = logCloser.Close() }()
	}

	if strings.TrimSpace(appCfg.JWT.Secret) == "" {
		secret, errSecret := randomSecret()
		if errSecret != nil {
			return errSecret
		}
		appCfg.JWT.Secret = secret
		log.Warn("jwt.secret not set; using an ephemeral secret, admin sessions and pack links will not survive a restart")
	}

	conn, err := db.Open(appCfg.Database.DSN)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	var rdb *rd.Client
	if addr := strings.TrimSpace(appCfg.Redis.Addr); addr != "" {
		rdb = rd.NewClient(&rd.Options{Addr: addr, DB: appCfg.Redis.DB})
		defer func() { _ = rdb.Close() }()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if errPing := rdb.Ping(pingCtx).Err(); errPing != nil {
			log.WithError(errPing).Warn("redis unreachable; rate limiting fails open until it recovers")
		}
		cancel()
	}

	engine, err := NewEngine(appCfg, conn, rdb)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              appCfg.App.Listen,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s (env=%s, config=%s)", appCfg.App.Listen, appCfg.App.Env, configPath)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
		close(errCh)
	}()

	select {
	case errServe := <-errCh:
		return errServe
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("shutdown: %w", errShutdown)
	}
	return nil
}

// NewEngine builds the gin engine with every route registered. rdb may be nil.
func NewEngine(cfg config.Config, conn *gorm.DB, rdb *rd.Client) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	blobs, err := production.NewLocalBlobStore(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}
	waves, err := production.WaveTemplates(cfg.Production.WavesDir)
	if err != nil {
		return nil, fmt.Errorf("load waveform templates: %w", err)
	}
	mailer, err := newMailer(cfg)
	if err != nil {
		return nil, err
	}

	cards := store.NewCards(conn)
	orders := store.NewOrders(conn)
	links := production.PackLinker{BaseURL: cfg.App.BaseURL, Secret: cfg.JWT.Secret, TTL: cfg.Production.PackLinkTTL}

	pipeline := production.NewPipeline(production.Deps{
		Orders: orders,
		Cards:  cards,
		Blobs:  blobs,
		Mailer: mailer,
		Links:  links,
		Waves:  waves,
	}, cfg)

	engine := gin.New()
	engine.Use(gin.Recovery(), apphttp.RequestLogger(), apphttp.Metrics())

	engine.GET("/healthz", func(c *gin.Context) {
		sqlDB, errDB := conn.DB()
		if errDB != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	frontDeps := front.Deps{
		Cards:      claim.NewService(cards, cfg.Claim),
		Orders:     pipeline,
		Blobs:      blobs,
		JWTSecret:  cfg.JWT.Secret,
		RateLimit:  cfg.Redis.RateLimit,
		RateWindow: cfg.Redis.RateWindow,
	}
	if rdb != nil {
		frontDeps.Redis = rdb
	}
	front.RegisterFrontRoutes(engine, frontDeps)

	admin.RegisterAdminRoutes(engine, admin.Deps{
		Admins: store.NewAdmins(conn),
		Orders: orders,
		Links:  links,
		JWT:    cfg.JWT,
	})

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Not found"})
	})
	return engine, nil
}

// newMailer picks Resend when an API key is configured and logs otherwise.
func newMailer(cfg config.Config) (production.Mailer, error) {
	if strings.TrimSpace(cfg.Production.ResendAPIKey) != "" {
		return production.NewResendMailer(cfg.Production.ResendAPIKey)
	}
	if cfg.IsProduction() {
		return nil, errors.New("resend api key is required in production")
	}
	log.Warn("production.resend_api_key not set; operator emails are logged instead of sent")
	return production.LogMailer{}, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
