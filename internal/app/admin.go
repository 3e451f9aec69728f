package app

import (
	"context"
	"errors"
	"strings"

	"github.com/exact3design/soundcard/internal/config"
	"github.com/exact3design/soundcard/internal/db"
	"github.com/exact3design/soundcard/internal/models"
	"github.com/exact3design/soundcard/internal/security"
	"github.com/exact3design/soundcard/internal/store"
	"github.com/pquerna/otp/totp"
)

// totpIssuer labels operator TOTP enrolments in authenticator apps.
const totpIssuer = "Exact3 Soundcard"

// CreateAdminParams holds inputs for operator creation.
type CreateAdminParams struct {
	Username string
	Password string
	TOTP     bool // Enrol TOTP; password login is then refused.
}

// CreateAdminResult reports the created operator.
type CreateAdminResult struct {
	ID         uint64
	Username   string
	TOTPSecret string
	TOTPURL    string
}

// CreateAdmin creates an operator account.
func CreateAdmin(ctx context.Context, cfg config.AppConfig, params CreateAdminParams) (CreateAdminResult, error) {
	username := strings.TrimSpace(params.Username)
	if username == "" {
		return CreateAdminResult{}, errors.New("username is required")
	}
	if len(params.Password) < 8 {
		return CreateAdminResult{}, errors.New("password must be at least 8 characters")
	}

	dsn, err := config.LoadDatabaseDSN(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return CreateAdminResult{}, err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return CreateAdminResult{}, err
	}
	if err = db.Migrate(conn); err != nil {
		return CreateAdminResult{}, err
	}
	return createAdmin(ctx, store.NewAdmins(conn), username, params)
}

func createAdmin(ctx context.Context, admins *store.Admins, username string, params CreateAdminParams) (CreateAdminResult, error) {
	hash, err := security.HashPassword(params.Password)
	if err != nil {
		return CreateAdminResult{}, err
	}
	admin := &models.Admin{Username: username, Password: hash, Active: true}

	var res CreateAdminResult
	if params.TOTP {
		key, errKey := totp.Generate(totp.GenerateOpts{Issuer: totpIssuer, AccountName: username})
		if errKey != nil {
			return CreateAdminResult{}, errKey
		}
		admin.TOTPSecret = key.Secret()
		res.TOTPSecret = key.Secret()
		res.TOTPURL = key.URL()
	}

	if err = admins.Create(ctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return CreateAdminResult{}, errors.New("admin " + username + " already exists")
		}
		return CreateAdminResult{}, err
	}
	res.ID = admin.ID
	res.Username = admin.Username
	return res, nil
}

// ListOrders returns recent orders for the CLI.
func ListOrders(ctx context.Context, cfg config.AppConfig, filter store.OrderFilter) ([]store.OrderSummary, error) {
	dsn, err := config.LoadDatabaseDSN(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return nil, err
	}
	return store.NewOrders(conn).List(ctx, filter)
}
