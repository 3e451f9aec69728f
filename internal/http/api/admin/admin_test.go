package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/exact3design/soundcard/internal/config"
	dbutil "github.com/exact3design/soundcard/internal/db"
	"github.com/exact3design/soundcard/internal/models"
	"github.com/exact3design/soundcard/internal/production"
	"github.com/exact3design/soundcard/internal/security"
	"github.com/exact3design/soundcard/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/pquerna/otp/totp"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

type adminFixture struct {
	router *gin.Engine
	conn   *gorm.DB
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:admin_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	sqlDB, _ := conn.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	jwtCfg := config.JWTConfig{Secret: "admin-test-secret", Expiry: time.Hour}
	router := gin.New()
	RegisterAdminRoutes(router, Deps{
		Admins: store.NewAdmins(conn),
		Orders: store.NewOrders(conn),
		Links:  production.PackLinker{BaseURL: "https://example.com", Secret: jwtCfg.Secret, TTL: time.Hour},
		JWT:    jwtCfg,
	})
	return &adminFixture{router: router, conn: conn}
}

func (f *adminFixture) createAdmin(t *testing.T, username, password, totpSecret string) {
	t.Helper()
	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	admin := &models.Admin{Username: username, Password: hash, Active: true, TOTPSecret: totpSecret}
	if err = store.NewAdmins(f.conn).Create(context.Background(), admin); err != nil {
		t.Fatalf("create admin: %v", err)
	}
}

func (f *adminFixture) do(t *testing.T, method, target, bearer string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)

	var decoded map[string]any
	_ = json.Unmarshal(recorder.Body.Bytes(), &decoded)
	return recorder.Code, decoded
}

func (f *adminFixture) login(t *testing.T) string {
	t.Helper()
	f.createAdmin(t, "ops", "correct horse", "")
	code, body := f.do(t, http.MethodPost, "/v0/admin/login", "", gin.H{"username": "ops", "password": "correct horse"})
	if code != http.StatusOK {
		t.Fatalf("login: status %d body %v", code, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("login returned no token: %v", body)
	}
	return token
}

func TestLogin(t *testing.T) {
	f := newAdminFixture(t)
	f.createAdmin(t, "ops", "correct horse", "")

	code, body := f.do(t, http.MethodPost, "/v0/admin/login", "", gin.H{"username": "ops", "password": "wrong"})
	if code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status %d body %v", code, body)
	}
	if _, ok := body["attempts_remaining"]; ok {
		t.Fatalf("admin login must not report claim attempts: %v", body)
	}

	code, _ = f.do(t, http.MethodPost, "/v0/admin/login", "", gin.H{"username": "ghost", "password": "x"})
	if code != http.StatusUnauthorized {
		t.Fatalf("unknown admin: status %d", code)
	}

	code, body = f.do(t, http.MethodPost, "/v0/admin/login", "", gin.H{"username": "ops", "password": "correct horse"})
	if code != http.StatusOK || body["token"] == "" {
		t.Fatalf("login: status %d body %v", code, body)
	}
}

func TestLoginTOTP(t *testing.T) {
	f := newAdminFixture(t)
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "soundcard", AccountName: "mfa"})
	if err != nil {
		t.Fatalf("generate totp: %v", err)
	}
	f.createAdmin(t, "mfa", "pw", key.Secret())

	code, body := f.do(t, http.MethodPost, "/v0/admin/login", "", gin.H{"username": "mfa", "password": "pw"})
	if code != http.StatusUnauthorized || body["message"] != "mfa required" {
		t.Fatalf("password login with totp: status %d body %v", code, body)
	}

	code, _ = f.do(t, http.MethodPost, "/v0/admin/login/totp", "", gin.H{"username": "mfa", "code": "000000"})
	if code != http.StatusUnauthorized {
		t.Fatalf("bad totp: status %d", code)
	}

	otp, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	code, body = f.do(t, http.MethodPost, "/v0/admin/login/totp", "", gin.H{"username": "mfa", "code": otp})
	if code != http.StatusOK || body["token"] == nil {
		t.Fatalf("totp login: status %d body %v", code, body)
	}
}

func TestOrdersRequireAuth(t *testing.T) {
	f := newAdminFixture(t)

	if code, _ := f.do(t, http.MethodGet, "/v0/admin/orders", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("no token: status %d", code)
	}
	if code, _ := f.do(t, http.MethodGet, "/v0/admin/orders", "not-a-jwt", nil); code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d", code)
	}

	pack, _, err := security.SignPackLink("admin-test-secret", "o", "p", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if code, _ := f.do(t, http.MethodGet, "/v0/admin/orders", pack, nil); code != http.StatusUnauthorized {
		t.Fatalf("pack link accepted as admin session")
	}
}

func TestOrderViews(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)
	ctx := context.Background()

	order := &models.Order{ID: "order-42", Source: "direct", BuyerName: "Buyer", Email: "buyer@example.com", ShippingAddress: datatypes.JSON(`{"country":"US","city":"Austin"}`)}
	if err := store.NewOrders(f.conn).Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := store.NewCards(f.conn).Insert(ctx, &models.Card{OrderID: order.ID, Token: "AAAA11111", SecretHash: "$2a$10$secret-hash", TemplateID: 5}); err != nil {
		t.Fatalf("insert card: %v", err)
	}

	code, body := f.do(t, http.MethodGet, "/v0/admin/orders?country=us", token, nil)
	if code != http.StatusOK {
		t.Fatalf("list: status %d body %v", code, body)
	}
	orders, _ := body["orders"].([]any)
	if len(orders) != 1 {
		t.Fatalf("orders = %v", body)
	}
	first, _ := orders[0].(map[string]any)
	if first["id"] != "order-42" || first["card_count"] != float64(1) || first["claimed_count"] != float64(0) {
		t.Fatalf("unexpected summary: %v", first)
	}

	code, _ = f.do(t, http.MethodGet, "/v0/admin/orders?limit=abc", token, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("bad limit: status %d", code)
	}

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v0/admin/orders/order-42", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	f.router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("get: status %d", recorder.Code)
	}
	if strings.Contains(recorder.Body.String(), "secret-hash") || strings.Contains(recorder.Body.String(), "secret_hash") {
		t.Fatalf("order detail leaks the setup code hash: %s", recorder.Body.String())
	}
	if !strings.Contains(recorder.Body.String(), "AAAA11111") {
		t.Fatalf("order detail missing card: %s", recorder.Body.String())
	}

	code, _ = f.do(t, http.MethodGet, "/v0/admin/orders/missing", token, nil)
	if code != http.StatusNotFound {
		t.Fatalf("missing order: status %d", code)
	}
}

func TestPackLink(t *testing.T) {
	f := newAdminFixture(t)
	token := f.login(t)
	ctx := context.Background()
	orders := store.NewOrders(f.conn)

	order := &models.Order{ID: "order-7", Source: "etsy", BuyerName: "B", Email: "b@example.com", ShippingAddress: datatypes.JSON(`{}`)}
	if err := orders.Create(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	code, _ := f.do(t, http.MethodPost, "/v0/admin/orders/order-7/pack-link", token, nil)
	if code != http.StatusConflict {
		t.Fatalf("no pack yet: status %d", code)
	}

	if err := orders.AttachPack(ctx, order.ID, production.PackPath(order.ID), time.Now()); err != nil {
		t.Fatalf("attach: %v", err)
	}
	code, body := f.do(t, http.MethodPost, "/v0/admin/orders/order-7/pack-link", token, nil)
	if code != http.StatusOK {
		t.Fatalf("pack link: status %d body %v", code, body)
	}
	link, _ := body["url"].(string)
	if !strings.HasPrefix(link, "https://example.com"+production.PackDownloadPath+"?sig=") {
		t.Fatalf("unexpected link %q", link)
	}
}
