package domain

import "time"

type UserRole string

const (
	RoleMember    UserRole = "member"
	RoleLibrarian UserRole = "librarian"
	RoleAdmin     UserRole = "admin"
)

type User struct {
	ID            int64      `json:"id" gorm:"primaryKey"`
	Username      string     `json:"username" gorm:"uniqueIndex;size:64;not null"`
	Email         string     `json:"email" gorm:"uniqueIndex;size:255;not null" validate:"required,email"`
	PasswordHash  string     `json:"-" gorm:"not null"`
	Role          UserRole   `json:"role" gorm:"size:32;default:member"`
	Name          string     `json:"name"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Roles returns the role list carried in token claims. Single-role today,
// but the claim shape is a list so adding scoped roles does not break clients.
func (u *User) Roles() []string {
	return []string{string(u.Role)}
}
