package models

import (
	"time"
)

// User is an account that can own pages and sign in to the admin API.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:254;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	IsStaff   bool      `gorm:"not null;default:false" json:"is_staff"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Viewer identifies whoever is making the current request.
type Viewer struct {
	UserID        uint
	Authenticated bool
	IsStaff       bool
}

// Anonymous is the viewer for requests without a valid session.
var Anonymous = Viewer{}

// Owns reports whether the viewer is the page's owner.
func (v Viewer) Owns(p *Page) bool {
	return v.Authenticated && p != nil && v.UserID == p.OwnerID
}

// CanPreview reports whether the viewer may see unpublished pages.
func (v Viewer) CanPreview(p *Page) bool {
	return v.Authenticated && (v.IsStaff || v.Owns(p))
}
