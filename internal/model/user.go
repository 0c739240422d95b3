package model

import "time"

// User roles form a closed enumeration; anything else is rejected before it
// reaches the store.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether role belongs to the closed enumeration.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// User represents an authenticated user. Emails are stored lowercased and
// carry a unique index so duplicate registration is rejected at the storage
// layer, not just by the pre-insert check.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Role         string    `json:"role" gorm:"size:50;not null;default:'user'"`
	ProfileImage string    `json:"profileImage,omitempty" gorm:"size:1024"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
