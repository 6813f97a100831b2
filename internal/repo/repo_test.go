package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/clipr-io/clipr/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Unique DSN per call to avoid cross-test contamination
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(&domain.User{}, &domain.ShortLink{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// ---------- users ----------

func TestCreateUser_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if _, err := CreateUser(ctx, db, "Alice", "a@x.com", "hash", ""); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := CreateUser(ctx, db, "Other Alice", "a@x.com", "hash2", "")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate email: err = %v, want ErrDuplicate", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	created, err := CreateUser(ctx, db, "Bob", "b@x.com", "hash", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := GetUserByEmail(ctx, db, "b@x.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != created.ID || got.Name != "Bob" {
		t.Errorf("got %+v, want id=%s name=Bob", got, created.ID)
	}

	if _, err := GetUserByEmail(ctx, db, "nobody@x.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing email: err = %v, want ErrNotFound", err)
	}
}

func TestLinkGoogleID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	u, err := CreateUser(ctx, db, "Carol", "c@x.com", "hash", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := GetUserByGoogleID(ctx, db, "g-123"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("before link: err = %v, want ErrNotFound", err)
	}

	if err := LinkGoogleID(ctx, db, u.ID, "g-123"); err != nil {
		t.Fatalf("link: %v", err)
	}

	got, err := GetUserByGoogleID(ctx, db, "g-123")
	if err != nil {
		t.Fatalf("after link: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("linked user id = %s, want %s", got.ID, u.ID)
	}
}

// ---------- links ----------

func TestCreateShortLink_DuplicateCode(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if _, err := CreateShortLink(ctx, db, "https://example.com/a", "abc1234", ""); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := CreateShortLink(ctx, db, "https://example.com/b", "abc1234", "")
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("code collision: err = %v, want ErrDuplicate", err)
	}
}

func TestCodeExists(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	ok, err := CodeExists(ctx, db, "zzz9999")
	if err != nil || ok {
		t.Fatalf("fresh db: exists=%v err=%v, want false,nil", ok, err)
	}
	if _, err := CreateShortLink(ctx, db, "https://example.com", "zzz9999", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	ok, err = CodeExists(ctx, db, "zzz9999")
	if err != nil || !ok {
		t.Fatalf("after create: exists=%v err=%v, want true,nil", ok, err)
	}
}

func TestResolveAndCount(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	created, err := CreateShortLink(ctx, db, "https://example.com/page", "res0001", "u1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Clicks != 0 {
		t.Fatalf("fresh link clicks = %d, want 0", created.Clicks)
	}

	l1, err := ResolveAndCount(ctx, db, "res0001")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if l1.Clicks != 1 {
		t.Errorf("clicks after first resolve = %d, want 1", l1.Clicks)
	}
	if l1.OriginalURL != "https://example.com/page" {
		t.Errorf("OriginalURL = %q", l1.OriginalURL)
	}
	if l1.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", l1.UserID)
	}

	l2, err := ResolveAndCount(ctx, db, "res0001")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if l2.Clicks != 2 {
		t.Errorf("clicks after second resolve = %d, want 2", l2.Clicks)
	}

	if _, err := ResolveAndCount(ctx, db, "missing1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown code: err = %v, want ErrNotFound", err)
	}
}

func TestResolveAndCount_ConcurrentClicksAreExact(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	// Serialize connections so concurrent writers contend on the statement,
	// not on SQLITE_BUSY.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if _, err := CreateShortLink(ctx, db, "https://example.com", "conc001", ""); err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ResolveAndCount(ctx, db, "conc001"); err != nil {
				t.Errorf("resolve: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := GetByCode(ctx, db, "conc001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Clicks != n {
		t.Errorf("final clicks = %d, want %d", got.Clicks, n)
	}
}

func TestListByUser_OwnershipAndOrder(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	for i := 0; i < 3; i++ {
		if _, err := CreateShortLink(ctx, db, fmt.Sprintf("https://example.com/%d", i), fmt.Sprintf("owna%03d", i), "owner-a"); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := CreateShortLink(ctx, db, "https://example.com/b", "ownb000", "owner-b"); err != nil {
		t.Fatalf("create: %v", err)
	}

	links, err := ListByUser(ctx, db, "owner-a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(links) != 3 {
		t.Fatalf("len = %d, want 3", len(links))
	}
	for _, l := range links {
		if l.UserID != "owner-a" {
			t.Errorf("leaked link %q owned by %q", l.ShortCode, l.UserID)
		}
	}

	empty, err := ListByUser(ctx, db, "owner-c")
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("owner-c links = %d, want 0", len(empty))
	}
}

func TestCountLinks(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	n, err := CountLinks(ctx, db)
	if err != nil || n != 0 {
		t.Fatalf("fresh count = %d err=%v, want 0,nil", n, err)
	}
	if _, err := CreateShortLink(ctx, db, "https://example.com", "cnt0001", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	n, err = CountLinks(ctx, db)
	if err != nil || n != 1 {
		t.Fatalf("count = %d err=%v, want 1,nil", n, err)
	}
}

func TestIsDuplicate_Classification(t *testing.T) {
	if IsDuplicate(nil) {
		t.Error("nil classified as duplicate")
	}
	if !IsDuplicate(ErrDuplicate) {
		t.Error("sentinel not classified as duplicate")
	}
	if !IsDuplicate(errors.New("UNIQUE constraint failed: short_links.short_code")) {
		t.Error("sqlite message not classified as duplicate")
	}
	if IsDuplicate(errors.New("disk I/O error")) {
		t.Error("unrelated error classified as duplicate")
	}
}
