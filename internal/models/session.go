package models

import (
	"database/sql"
	"time"
)

// ==============================================
// SESSION MODEL
// ==============================================

// Session is a server-side browser session. The row carries the
// authenticated user (if any) plus a small JSON payload for state that
// must survive across requests: the pending registration and flash
// messages. Expired rows are treated as absent and evicted lazily.
type Session struct {
	ID        string        `db:"id"` // uuid
	UserID    sql.NullInt32 `db:"user_id"`
	Data      SessionData   `db:"data"`
	ExpiresAt time.Time     `db:"expires_at"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

// SessionData is the JSON payload stored with a session.
type SessionData struct {
	RegisterData *RegisterData `json:"register_data,omitempty"`
	Flashes      []Flash       `json:"flashes,omitempty"`
}

// Flash is a one-shot status message rendered on the next page view.
type Flash struct {
	Level string `json:"level"` // "success" or "error"
	Text  string `json:"text"`
}

// IsAuthenticated reports whether the session is bound to a user.
func (s *Session) IsAuthenticated() bool {
	return s.UserID.Valid
}

// LogIn binds the session to the given identity.
func (s *Session) LogIn(userID int) {
	s.UserID = sql.NullInt32{Int32: int32(userID), Valid: true}
}

// LogOut unbinds the session from its user.
func (s *Session) LogOut() {
	s.UserID = sql.NullInt32{}
}

// IsExpired reports whether the session row itself has passed its TTL.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// ==============================================
// PENDING REGISTRATION
// ==============================================

// RegisterData stages an unconfirmed registration between step 1
// (form submission) and step 2 (code verification). At most one is
// staged per session; a new step-1 submission overwrites it. The
// password stays plaintext until the account is finalized.
type RegisterData struct {
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Password string    `json:"password"`
	OTP      string    `json:"otp"`
	OTPTime  time.Time `json:"otp_time"`
}

// IsExpired reports whether the staged code is older than the OTP window.
func (d *RegisterData) IsExpired() bool {
	return time.Since(d.OTPTime) > OTPExpiry
}

// ==============================================
// SESSION / OTP CONFIGURATION
// ==============================================
const (
	OTPLength  = 6                // 6-digit code
	OTPExpiry  = 10 * time.Minute // staged code lifetime
	SessionTTL = 14 * 24 * time.Hour
)
