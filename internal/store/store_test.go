package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	dbutil "github.com/exact3design/soundcard/internal/db"
	"github.com/exact3design/soundcard/internal/linkcheck"
	"github.com/exact3design/soundcard/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:store_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		t.Fatalf("sql db: %v", errDB)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if errMigrate := dbutil.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedOrder(t *testing.T, conn *gorm.DB, id, email, country string) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:              id,
		Source:          models.OrderSourceEtsy,
		BuyerName:       "Test Buyer",
		Email:           email,
		ShippingAddress: datatypes.JSON(fmt.Sprintf(`{"line1":"1 Main St","city":"Austin","state":"TX","zip":"78701","country":%q}`, country)),
	}
	if errCreate := NewOrders(conn).Create(context.Background(), order); errCreate != nil {
		t.Fatalf("create order: %v", errCreate)
	}
	return order
}

func seedCard(t *testing.T, conn *gorm.DB, orderID, token string) *models.Card {
	t.Helper()

	card := &models.Card{OrderID: orderID, Token: token, SecretHash: "hash", TemplateID: 3}
	if errInsert := NewCards(conn).Insert(context.Background(), card); errInsert != nil {
		t.Fatalf("insert card: %v", errInsert)
	}
	return card
}

func TestCardsFindByToken(t *testing.T) {
	conn := openTestDB(t)
	order := seedOrder(t, conn, "order-1", "a@example.com", "US")
	seedCard(t, conn, order.ID, "ABCD2345")

	cards := NewCards(conn)
	card, errFind := cards.FindByToken(context.Background(), "ABCD2345")
	if errFind != nil {
		t.Fatalf("find: %v", errFind)
	}
	if card.OrderID != order.ID || card.TemplateID != 3 {
		t.Fatalf("unexpected card: %+v", card)
	}
	if card.IsClaimed() {
		t.Fatalf("fresh card must be unclaimed")
	}

	if _, errFind = cards.FindByToken(context.Background(), "ZZZZ9999"); !errors.Is(errFind, ErrNotFound) {
		t.Fatalf("missing token error = %v, want ErrNotFound", errFind)
	}
}

func TestCardsInsertDuplicateToken(t *testing.T) {
	conn := openTestDB(t)
	order := seedOrder(t, conn, "order-1", "a@example.com", "US")
	seedCard(t, conn, order.ID, "ABCD2345")

	dup := &models.Card{OrderID: order.ID, Token: "ABCD2345", SecretHash: "hash", TemplateID: 1}
	if errInsert := NewCards(conn).Insert(context.Background(), dup); !errors.Is(errInsert, ErrDuplicate) {
		t.Fatalf("duplicate insert error = %v, want ErrDuplicate", errInsert)
	}
}

func TestCardsIncrementFailedAttemptsIsAtomic(t *testing.T) {
	conn := openTestDB(t)
	order := seedOrder(t, conn, "order-1", "a@example.com", "US")
	card := seedCard(t, conn, order.ID, "ABCD2345")
	cards := NewCards(conn)

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, errInc := cards.IncrementFailedAttempts(context.Background(), card.ID); errInc != nil {
				t.Errorf("increment: %v", errInc)
			}
		}()
	}
	wg.Wait()

	reloaded, errFind := cards.FindByToken(context.Background(), "ABCD2345")
	if errFind != nil {
		t.Fatalf("find: %v", errFind)
	}
	if reloaded.FailedAttempts != workers {
		t.Fatalf("failed attempts = %d, want %d", reloaded.FailedAttempts, workers)
	}

	if _, errInc := cards.IncrementFailedAttempts(context.Background(), 99999); !errors.Is(errInc, ErrNotFound) {
		t.Fatalf("increment missing card error = %v, want ErrNotFound", errInc)
	}
}

func TestCardsAssignLinkClaimThenChange(t *testing.T) {
	conn := openTestDB(t)
	order := seedOrder(t, conn, "order-1", "a@example.com", "US")
	card := seedCard(t, conn, order.ID, "ABCD2345")
	cards := NewCards(conn)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if _, errInc := cards.IncrementFailedAttempts(ctx, card.ID); errInc != nil {
		t.Fatalf("increment: %v", errInc)
	}
	if errLock := cards.LockUntil(ctx, card.ID, now.Add(-time.Minute)); errLock != nil {
		t.Fatalf("lock: %v", errLock)
	}

	if _, errAssign := cards.AssignLink(ctx, card.ID, linkcheck.Link{Kind: linkcheck.KindYouTube, VideoID: "dQw4w9WgXcQ"}, AssignChange, now); !errors.Is(errAssign, ErrStateChanged) {
		t.Fatalf("change on unclaimed error = %v, want ErrStateChanged", errAssign)
	}

	claimed, errAssign := cards.AssignLink(ctx, card.ID, linkcheck.Link{Kind: linkcheck.KindYouTube, VideoID: "dQw4w9WgXcQ"}, AssignClaim, now)
	if errAssign != nil {
		t.Fatalf("claim: %v", errAssign)
	}
	if claimed.ClaimedAt == nil || !claimed.ClaimedAt.Equal(now) {
		t.Fatalf("claimed_at = %v, want %v", claimed.ClaimedAt, now)
	}
	if claimed.LinkType == nil || *claimed.LinkType != models.LinkTypeYouTube {
		t.Fatalf("link type = %v, want youtube", claimed.LinkType)
	}
	if claimed.YouTubeID == nil || *claimed.YouTubeID != "dQw4w9WgXcQ" || claimed.AudioURL != nil {
		t.Fatalf("unexpected link fields: youtube=%v audio=%v", claimed.YouTubeID, claimed.AudioURL)
	}
	if claimed.FailedAttempts != 0 || claimed.LockedUntil != nil {
		t.Fatalf("claim must reset lockout state, got attempts=%d locked=%v", claimed.FailedAttempts, claimed.LockedUntil)
	}

	if _, errAssign = cards.AssignLink(ctx, card.ID, linkcheck.Link{Kind: linkcheck.KindYouTube, VideoID: "aaaaaaaaaaa"}, AssignClaim, now); !errors.Is(errAssign, ErrStateChanged) {
		t.Fatalf("second claim error = %v, want ErrStateChanged", errAssign)
	}

	later := now.Add(time.Hour)
	changed, errAssign := cards.AssignLink(ctx, card.ID, linkcheck.Link{Kind: linkcheck.KindAudio, URL: "https://cdn.example.com/song.mp3"}, AssignChange, later)
	if errAssign != nil {
		t.Fatalf("change: %v", errAssign)
	}
	if changed.ClaimedAt == nil || !changed.ClaimedAt.Equal(now) {
		t.Fatalf("change must keep claimed_at, got %v", changed.ClaimedAt)
	}
	if changed.YouTubeID != nil || changed.AudioURL == nil || *changed.AudioURL != "https://cdn.example.com/song.mp3" {
		t.Fatalf("unexpected link fields after change: youtube=%v audio=%v", changed.YouTubeID, changed.AudioURL)
	}
}

func TestCardsConcurrentClaimHasOneWinner(t *testing.T) {
	conn := openTestDB(t)
	order := seedOrder(t, conn, "order-1", "a@example.com", "US")
	card := seedCard(t, conn, order.ID, "ABCD2345")
	cards := NewCards(conn)

	const workers = 6
	var wins, lost atomic.Int32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, errAssign := cards.AssignLink(context.Background(), card.ID, linkcheck.Link{Kind: linkcheck.KindYouTube, VideoID: "dQw4w9WgXcQ"}, AssignClaim, time.Now())
			switch {
			case errAssign == nil:
				wins.Add(1)
			case errors.Is(errAssign, ErrStateChanged):
				lost.Add(1)
			default:
				t.Errorf("assign: %v", errAssign)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 || lost.Load() != workers-1 {
		t.Fatalf("wins=%d lost=%d, want 1 and %d", wins.Load(), lost.Load(), workers-1)
	}
}

func TestOrdersGetAndAttachPack(t *testing.T) {
	conn := openTestDB(t)
	order := seedOrder(t, conn, "order-1", "a@example.com", "US")
	seedCard(t, conn, order.ID, "BBBB2222")
	seedCard(t, conn, order.ID, "AAAA1111")
	orders := NewOrders(conn)
	ctx := context.Background()

	sentAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if errAttach := orders.AttachPack(ctx, order.ID, "orders/order-1/production-pack.zip", sentAt); errAttach != nil {
		t.Fatalf("attach: %v", errAttach)
	}
	if errAttach := orders.AttachPack(ctx, "missing", "x", sentAt); !errors.Is(errAttach, ErrNotFound) {
		t.Fatalf("attach missing error = %v, want ErrNotFound", errAttach)
	}

	got, errGet := orders.Get(ctx, order.ID)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if got.PackPath == nil || *got.PackPath != "orders/order-1/production-pack.zip" {
		t.Fatalf("pack path = %v", got.PackPath)
	}
	if got.EmailSentAt == nil || !got.EmailSentAt.Equal(sentAt) {
		t.Fatalf("email sent at = %v, want %v", got.EmailSentAt, sentAt)
	}
	if len(got.Cards) != 2 || got.Cards[0].Token != "BBBB2222" {
		t.Fatalf("cards not preloaded in insert order: %+v", got.Cards)
	}

	if _, errGet = orders.Get(ctx, "missing"); !errors.Is(errGet, ErrNotFound) {
		t.Fatalf("get missing error = %v, want ErrNotFound", errGet)
	}
}

func TestOrdersListFiltersAndCounts(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	us := seedOrder(t, conn, "order-us", "Alice@Example.com", "US")
	ca := seedOrder(t, conn, "order-ca", "bob@example.org", "CA")
	first := seedCard(t, conn, us.ID, "AAAA1111")
	seedCard(t, conn, us.ID, "AAAA2222")
	seedCard(t, conn, ca.ID, "CCCC1111")

	if _, errAssign := NewCards(conn).AssignLink(ctx, first.ID, linkcheck.Link{Kind: linkcheck.KindAudio, URL: "https://x.example/a.wav"}, AssignClaim, time.Now()); errAssign != nil {
		t.Fatalf("claim: %v", errAssign)
	}

	orders := NewOrders(conn)
	all, errList := orders.List(ctx, OrderFilter{})
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(all) != 2 {
		t.Fatalf("list len = %d, want 2", len(all))
	}

	byEmail, errList := orders.List(ctx, OrderFilter{Email: "alice"})
	if errList != nil {
		t.Fatalf("list by email: %v", errList)
	}
	if len(byEmail) != 1 || byEmail[0].Order.ID != us.ID {
		t.Fatalf("email filter returned %+v", byEmail)
	}
	if byEmail[0].CardCount != 2 || byEmail[0].ClaimedCount != 1 {
		t.Fatalf("counts = %d/%d, want 2/1", byEmail[0].CardCount, byEmail[0].ClaimedCount)
	}

	byCountry, errList := orders.List(ctx, OrderFilter{Country: "ca"})
	if errList != nil {
		t.Fatalf("list by country: %v", errList)
	}
	if len(byCountry) != 1 || byCountry[0].Order.ID != ca.ID {
		t.Fatalf("country filter returned %+v", byCountry)
	}
}

func TestAdminsCreateAndFind(t *testing.T) {
	conn := openTestDB(t)
	admins := NewAdmins(conn)
	ctx := context.Background()

	admin := &models.Admin{Username: "ops", Password: "hash", Active: true}
	if errCreate := admins.Create(ctx, admin); errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}
	if errCreate := admins.Create(ctx, &models.Admin{Username: "ops", Password: "other"}); !errors.Is(errCreate, ErrDuplicate) {
		t.Fatalf("duplicate create error = %v, want ErrDuplicate", errCreate)
	}

	got, errFind := admins.FindByUsername(ctx, " ops ")
	if errFind != nil {
		t.Fatalf("find: %v", errFind)
	}
	if got.ID != admin.ID {
		t.Fatalf("id = %d, want %d", got.ID, admin.ID)
	}
	if _, errFind = admins.FindByID(ctx, 42); !errors.Is(errFind, ErrNotFound) {
		t.Fatalf("find missing error = %v, want ErrNotFound", errFind)
	}
}
