package models

import (
	"database/sql"
	"time"
)

// ==============================================
// USER MODEL (Database mapping)
// ==============================================

// User represents a registered board member.
type User struct {
	ID           int          `db:"id"`
	Name         string       `db:"name"` // optional display name
	Username     string       `db:"username"`
	Email        string       `db:"email"`
	PasswordHash string       `db:"password_hash"`
	IsActive     bool         `db:"is_active"`
	IsStaff      bool         `db:"is_staff"` // may send newsletters
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
	LastLoginAt  sql.NullTime `db:"last_login_at"`
}

// DisplayName returns the name shown on pages: the optional display
// name when set, the username otherwise.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// ==============================================
// PROFILE MODEL
// ==============================================

// Profile holds contact info and counters for a user. One row per user,
// created in the same transaction as the user itself.
type Profile struct {
	UserID             int            `db:"user_id"`
	Bio                string         `db:"bio"`
	Phone              string         `db:"phone"`
	Website            string         `db:"website"`
	Discord            string         `db:"discord"`
	Steam              string         `db:"steam"`
	TotalAds           int            `db:"total_ads"`
	TotalResponses     int            `db:"total_responses"`
	EmailNotifications bool           `db:"email_notifications"`
	PasswordResetToken sql.NullString `db:"password_reset_token"`
	LastActivity       time.Time      `db:"last_activity"`
}

// HasResetToken reports whether a password reset is in progress.
func (p *Profile) HasResetToken() bool {
	return p.PasswordResetToken.Valid && p.PasswordResetToken.String != ""
}
