package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/clipr-io/clipr/internal/domain"
	"github.com/clipr-io/clipr/internal/token"
)

// googleUserInfoURL is where the Google profile is fetched after the code
// exchange. Overridable per-service for tests.
const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// UserRepo is the persistence contract consumed by AuthService.
type UserRepo interface {
	// CreateUser inserts a user, failing on a duplicate email.
	CreateUser(ctx context.Context, db *gorm.DB, name, email, passwordHash, googleID string) (*domain.User, error)
	// GetUserByEmail looks a user up by email.
	GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error)
	// GetUserByGoogleID looks a user up by linked Google account.
	GetUserByGoogleID(ctx context.Context, db *gorm.DB, googleID string) (*domain.User, error)
	// LinkGoogleID attaches a Google account to an existing user.
	LinkGoogleID(ctx context.Context, db *gorm.DB, userID, googleID string) error
	// IsDuplicate/IsNotFound classify repo errors.
	IsDuplicate(err error) bool
	IsNotFound(err error) bool
}

// AuthService implements registration, credential login, and Google OAuth
// sign-in. Successful logins mint signed bearer tokens via the token
// package.
type AuthService struct {
	// DB is the database handle used for all user operations.
	DB *gorm.DB
	// Repo is the persistence layer.
	Repo UserRepo
	// Secret signs issued tokens.
	Secret string
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration
	// OAuth is the Google OAuth2 configuration; nil disables Google sign-in.
	OAuth *oauth2.Config
	// UserInfoURL is the Google profile endpoint; tests point it at a stub.
	UserInfoURL string
	// Now is the clock used when issuing tokens; defaults to time.Now.
	Now func() time.Time
}

// NewAuthService constructs an AuthService with the real clock.
func NewAuthService(db *gorm.DB, repo UserRepo, secret string, ttl time.Duration, oauth *oauth2.Config) *AuthService {
	return &AuthService{
		DB:          db,
		Repo:        repo,
		Secret:      secret,
		TokenTTL:    ttl,
		OAuth:       oauth,
		UserInfoURL: googleUserInfoURL,
		Now:         time.Now,
	}
}

// Register creates a new account with a bcrypt-hashed password. The stored
// hash never leaves this layer; domain.User serializes the field as "-".
// A duplicate email yields ErrEmailTaken.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if len(name) < 3 {
		return nil, Validationf("Name must be at least 3 characters long.")
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, Validationf("A valid email address is required.")
	}
	if len(password) < 6 {
		return nil, Validationf("Password must be at least 6 characters long.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.Repo.CreateUser(ctx, s.DB, name, email, string(hash), "")
	if err != nil {
		if s.Repo.IsDuplicate(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// Login verifies email/password credentials and returns the user together
// with a freshly issued bearer token. Unknown emails and wrong passwords
// both collapse into ErrInvalidCredentials so responses never reveal which
// part failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = normalizeEmail(email)

	u, err := s.Repo.GetUserByEmail(ctx, s.DB, email)
	if err != nil {
		if s.Repo.IsNotFound(err) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	// Google-only accounts have no local password.
	if u.Password == "" {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	tok, err := s.issueToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, tok, nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (s *AuthService) GoogleEnabled() bool {
	return s.OAuth != nil && s.OAuth.ClientID != ""
}

// GoogleAuthURL returns the Google consent-screen URL for the given
// anti-forgery state.
func (s *AuthService) GoogleAuthURL(state string) string {
	return s.OAuth.AuthCodeURL(state)
}

// googleProfile is the subset of the Google userinfo payload we consume.
type googleProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GoogleCallback exchanges the authorization code, fetches the Google
// profile, and finds or creates the matching local account. A Google
// account whose email already exists locally is linked to that user rather
// than duplicated. Returns the user and a freshly issued bearer token.
func (s *AuthService) GoogleCallback(ctx context.Context, code string) (*domain.User, string, error) {
	oauthTok, err := s.OAuth.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("google code exchange: %w", err)
	}

	profile, err := s.fetchGoogleProfile(ctx, oauthTok)
	if err != nil {
		return nil, "", err
	}
	if profile.ID == "" || profile.Email == "" {
		return nil, "", fmt.Errorf("google userinfo: incomplete profile")
	}

	u, err := s.findOrCreateGoogleUser(ctx, profile)
	if err != nil {
		return nil, "", err
	}

	tok, err := s.issueToken(u)
	if err != nil {
		return nil, "", err
	}
	return u, tok, nil
}

func (s *AuthService) fetchGoogleProfile(ctx context.Context, tok *oauth2.Token) (*googleProfile, error) {
	client := s.OAuth.Client(ctx, tok)
	resp, err := client.Get(s.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("google userinfo: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var p googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("google userinfo: decode: %w", err)
	}
	return &p, nil
}

func (s *AuthService) findOrCreateGoogleUser(ctx context.Context, p *googleProfile) (*domain.User, error) {
	u, err := s.Repo.GetUserByGoogleID(ctx, s.DB, p.ID)
	if err == nil {
		return u, nil
	}
	if !s.Repo.IsNotFound(err) {
		return nil, err
	}

	email := normalizeEmail(p.Email)
	u, err = s.Repo.GetUserByEmail(ctx, s.DB, email)
	if err == nil {
		if err := s.Repo.LinkGoogleID(ctx, s.DB, u.ID, p.ID); err != nil {
			return nil, err
		}
		u.GoogleID = p.ID
		return u, nil
	}
	if !s.Repo.IsNotFound(err) {
		return nil, err
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = email
	}
	return s.Repo.CreateUser(ctx, s.DB, name, email, "", p.ID)
}

func (s *AuthService) issueToken(u *domain.User) (string, error) {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	return token.Issue(s.Secret, u.ID, u.Email, s.TokenTTL, now())
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
