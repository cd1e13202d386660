package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole enumerates platform roles.
type UserRole string

const (
	RoleAdmin  UserRole = "ADMIN"
	RoleCoach  UserRole = "COACH"
	RoleClient UserRole = "CLIENT"
)

// User is a platform participant. Clients invited by a coach may exist
// without a linked login account; AccountID stays nil until the invite is
// accepted, and such clients cannot receive in-app reminders.
type User struct {
	ID             string     `db:"id" json:"id"`
	FullName       string     `db:"full_name" json:"fullName"`
	Email          *string    `db:"email" json:"email,omitempty"`
	Role           UserRole   `db:"role" json:"role"`
	ReminderOptOut bool       `db:"reminder_opt_out" json:"reminderOptOut"`
	AccountID      *string    `db:"account_id" json:"accountId,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updatedAt,omitempty"`
}

// JWTClaims carries the authenticated identity through request handling.
type JWTClaims struct {
	UserID string   `json:"uid"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
