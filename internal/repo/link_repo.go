// Repository functions for the ShortLink model.
//
// Two operations carry the system's concurrency invariants and are worth
// reading carefully: CreateShortLink surfaces the unique-index violation on
// short_code as ErrDuplicate (the retry signal for code generation), and
// ResolveAndCount increments clicks and reads the row in one SQL statement
// so concurrent redirects can neither lose an increment nor observe a count
// and URL from different snapshots.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clipr-io/clipr/internal/domain"
)

// CreateShortLink inserts a new link row. userID may be empty for anonymous
// links. A code collision surfaces as ErrDuplicate, never as an overwrite.
func CreateShortLink(ctx context.Context, db *gorm.DB, originalURL, code, userID string) (*domain.ShortLink, error) {
	l := &domain.ShortLink{
		ID:          uuid.NewString(),
		OriginalURL: originalURL,
		ShortCode:   code,
		UserID:      userID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		if IsDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return l, nil
}

// CodeExists reports whether a link with the given code already exists.
// Used as the cheap pre-insert probe; the unique index remains the final
// arbiter for the check-then-insert race.
func CodeExists(ctx context.Context, db *gorm.DB, code string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ShortLink{}).
		Where("short_code = ?", code).
		Count(&n).Error
	return n > 0, err
}

// ResolveAndCount locates the link for code, increments its click counter,
// and returns the updated row, all as one indivisible UPDATE..RETURNING
// statement. No matching row yields ErrNotFound.
func ResolveAndCount(ctx context.Context, db *gorm.DB, code string) (*domain.ShortLink, error) {
	var l domain.ShortLink
	res := db.WithContext(ctx).Raw(
		`UPDATE short_links SET clicks = clicks + 1 WHERE short_code = ?
		 RETURNING id, original_url, short_code, clicks, user_id, created_at`,
		code,
	).Scan(&l)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &l, nil
}

// GetByCode fetches a link without touching its counter.
func GetByCode(ctx context.Context, db *gorm.DB, code string) (*domain.ShortLink, error) {
	var l domain.ShortLink
	if err := db.WithContext(ctx).Where("short_code = ?", code).First(&l).Error; err != nil {
		if IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// ListByUser returns all links owned by userID, newest first.
func ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.ShortLink, error) {
	var out []domain.ShortLink
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// CountLinks uses a raw COUNT so a missing table surfaces as an error.
func CountLinks(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM short_links").Scan(&total).Error
	return total, err
}
