package models

import "time"

// ==============================================
// CATEGORY MODEL
// ==============================================

type Category struct {
	ID   int    `db:"id"`
	Name string `db:"name"`
}

// ==============================================
// AD MODEL
// ==============================================

// Ad is an advertisement posted by a user in a category.
type Ad struct {
	ID         int       `db:"id"`
	Title      string    `db:"title"`
	Content    string    `db:"content"`
	AuthorID   int       `db:"author_id"`
	CategoryID int       `db:"category_id"`
	IsActive   bool      `db:"is_active"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`

	// Joined columns, populated by list/detail queries.
	AuthorUsername string `db:"author_username"`
	CategoryName   string `db:"category_name"`
}

// ==============================================
// RESPONSE MODEL
// ==============================================

// Response is a reply to an ad. A user may respond to a given ad at
// most once (unique constraint on from_user_id, ad_id).
type Response struct {
	ID         int       `db:"id"`
	Text       string    `db:"text"`
	FromUserID int       `db:"from_user_id"`
	AdID       int       `db:"ad_id"`
	IsAccepted bool      `db:"is_accepted"`
	CreatedAt  time.Time `db:"created_at"`

	// Joined columns.
	FromUsername string `db:"from_username"`
	FromEmail    string `db:"from_email"`
	AdTitle      string `db:"ad_title"`
	AdAuthorID   int    `db:"ad_author_id"`
}

// ==============================================
// RESPONSE FILTERS
// ==============================================

// Filters for the "my responses" page.
const (
	ResponseFilterAll      = "all"      // responses to the caller's ads
	ResponseFilterAccepted = "accepted" // accepted responses to the caller's ads
	ResponseFilterPending  = "pending"  // pending responses to the caller's ads
	ResponseFilterMine     = "my"       // responses the caller sent
)
