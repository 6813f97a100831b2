// Package domain defines the persistence models for users and short links.
// These types are mapped with GORM and form the core data layer of the
// platform: the auth service owns User, the url service owns ShortLink.
package domain

import (
	"time"
)

// User represents an account held by the auth service. Accounts are created
// either by password registration or by Google federation; a federated
// account carries a GoogleID and may have no password hash.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: display name (3–255 chars, validated at the service layer).
//   - Email: login identifier, unique across all users.
//   - Password: bcrypt hash; never serialized to JSON.
//   - GoogleID: Google subject id when the account is federated.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"      gorm:"type:varchar(255);not null"`
	Email     string    `json:"email"     gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	Password  string    `json:"-"         gorm:"type:varchar(128)"`
	GoogleID  string    `json:"-"         gorm:"type:varchar(64);index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// ShortLink maps a short code to its original URL and accumulates redirect
// counts. The code column carries a unique index: it is the final arbiter
// for collision-free code generation under concurrent creation, and the
// clicks column is only ever mutated by a single-statement atomic increment.
//
// JSON field names follow the public API (originalUrl, shortCode, clicks,
// userId, createdAt). An anonymous link has an empty UserID, omitted from
// the serialized form.
type ShortLink struct {
	ID          string    `json:"id"               gorm:"type:char(36);primaryKey"`
	OriginalURL string    `json:"originalUrl"      gorm:"type:text;not null"`
	ShortCode   string    `json:"shortCode"        gorm:"type:varchar(16);not null;uniqueIndex:ux_short_links_code"`
	Clicks      int64     `json:"clicks"           gorm:"not null;default:0"`
	UserID      string    `json:"userId,omitempty" gorm:"type:char(36);index:idx_short_links_user"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TableName returns the database table name for ShortLink.
func (ShortLink) TableName() string { return "short_links" }
