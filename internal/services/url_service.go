// URLService: minting and resolving short links.
//
// Shorten implements collision-resistant code generation: generate a
// candidate, probe the store, insert, and treat the unique-index violation
// as the expected retry signal. Resolve delegates to the repository's
// atomic locate-and-increment. Neither operation ever performs an
// in-process read-modify-write on shared fields.
package services

import (
	"context"
	"net/url"
	"strings"

	"gorm.io/gorm"

	"github.com/clipr-io/clipr/internal/domain"
	"github.com/clipr-io/clipr/internal/shortcode"
)

// maxCodeAttempts bounds the generate/insert retry loop. With a 62^7 code
// space it is effectively never reached on a healthy store.
const maxCodeAttempts = 5

// LinkRepo is the persistence contract consumed by URLService. The repo
// package provides the production implementation; tests substitute stubs.
type LinkRepo interface {
	// CreateShortLink inserts a row, failing (not overwriting) on a code
	// collision.
	CreateShortLink(ctx context.Context, db *gorm.DB, originalURL, code, userID string) (*domain.ShortLink, error)
	// CodeExists probes for an existing code.
	CodeExists(ctx context.Context, db *gorm.DB, code string) (bool, error)
	// ResolveAndCount atomically increments clicks and returns the updated row.
	ResolveAndCount(ctx context.Context, db *gorm.DB, code string) (*domain.ShortLink, error)
	// ListByUser returns a user's links, newest first.
	ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.ShortLink, error)
	// IsDuplicate/IsNotFound classify repo errors.
	IsDuplicate(err error) bool
	IsNotFound(err error) bool
}

// URLService implements the use-cases around short links.
type URLService struct {
	// DB is the database handle used for all link operations.
	DB *gorm.DB
	// Repo is the persistence layer.
	Repo LinkRepo
	// Generate produces candidate codes; defaults to shortcode.Generate.
	// Tests inject deterministic generators to force collisions.
	Generate func() (string, error)
}

// NewURLService constructs a URLService with the default code generator.
func NewURLService(db *gorm.DB, repo LinkRepo) *URLService {
	return &URLService{DB: db, Repo: repo, Generate: shortcode.Generate}
}

// Shorten creates a new ShortLink for originalURL, owned by userID when
// non-empty.
//
// Algorithm: generate a candidate, probe the store, insert. The probe is an
// optimization only; the store's unique index on short_code is the final
// arbiter of the check-then-insert race, and a duplicate-key failure simply
// triggers another attempt with a fresh candidate. After maxCodeAttempts
// the operation fails with ErrCodeExhausted, which is reportable and
// non-fatal to the service.
func (s *URLService) Shorten(ctx context.Context, originalURL, userID string) (*domain.ShortLink, error) {
	originalURL = strings.TrimSpace(originalURL)
	if err := validateURL(originalURL); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.Generate()
		if err != nil {
			return nil, err
		}

		exists, err := s.Repo.CodeExists(ctx, s.DB, code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		link, err := s.Repo.CreateShortLink(ctx, s.DB, originalURL, code, userID)
		if err != nil {
			if s.Repo.IsDuplicate(err) {
				// Lost the check-then-insert race; retry with a new code.
				continue
			}
			return nil, err
		}
		return link, nil
	}
	return nil, ErrCodeExhausted
}

// Resolve returns the link for code with its click counter incremented by
// exactly one. The increment and the read happen in a single store
// operation, so the returned URL and count always belong to the same row
// version. Unknown or malformed codes yield ErrLinkNotFound.
func (s *URLService) Resolve(ctx context.Context, code string) (*domain.ShortLink, error) {
	if !shortcode.Valid(code) {
		return nil, ErrLinkNotFound
	}
	link, err := s.Repo.ResolveAndCount(ctx, s.DB, code)
	if err != nil {
		if s.Repo.IsNotFound(err) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return link, nil
}

// ListForUser returns userID's links, newest first. Requires an identity.
func (s *URLService) ListForUser(ctx context.Context, userID string) ([]domain.ShortLink, error) {
	if userID == "" {
		return nil, ErrAuthRequired
	}
	return s.Repo.ListByUser(ctx, s.DB, userID)
}

// validateURL accepts absolute http/https URLs with a host.
func validateURL(raw string) error {
	if raw == "" {
		return Validationf("Original URL is required.")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return Validationf("Invalid URL format.")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Validationf("Invalid URL format.")
	}
	return nil
}
