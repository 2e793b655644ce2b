package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mmoboard/board/internal/models"
)

// ==============================================
// USER REPOSITORY
// ==============================================

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// ==============================================
// CREATE USER
// ==============================================

// CreateUser inserts a user and its profile in one transaction. The
// insert itself is the source of truth for uniqueness: a violated
// unique constraint comes back as the matching duplicate error instead
// of relying on a prior existence check.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO users (name, username, email, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRow(ctx, query,
		user.Name,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO profiles (user_id) VALUES ($1)`, user.ID)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user creation: %w", err)
	}

	return nil
}

// mapUniqueViolation translates a unique-constraint violation on the
// users table into the corresponding duplicate error, nil otherwise.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch pgErr.ConstraintName {
	case "users_email_key":
		return models.ErrEmailAlreadyExists
	case "users_username_key":
		return models.ErrUsernameAlreadyExists
	}
	return nil
}

// ==============================================
// GET USER (Read Operations)
// ==============================================

const userColumns = `id, name, username, email, password_hash,
	is_active, is_staff, created_at, updated_at, last_login_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.IsStaff,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, userID int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, userID))
}

// GetUserByEmail retrieves a user by email
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// GetUserByUsername retrieves a user by username
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRow(ctx, query, username))
}

// ExistsByEmail reports whether a user with the given email exists.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// ExistsByUsername reports whether a user with the given username exists.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// ==============================================
// UPDATE USER
// ==============================================

// UpdateLastLogin stamps a successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID int) error {
	query := `
		UPDATE users
		SET last_login_at = now(), updated_at = now()
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

// UpdatePassword updates user's password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, updated_at = now()
		WHERE id = $2
	`

	_, err := r.db.Exec(ctx, query, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// UpdateName sets the optional display name.
func (r *UserRepository) UpdateName(ctx context.Context, userID int, name string) error {
	query := `
		UPDATE users
		SET name = $1, updated_at = now()
		WHERE id = $2
	`

	_, err := r.db.Exec(ctx, query, name, userID)
	if err != nil {
		return fmt.Errorf("failed to update name: %w", err)
	}

	return nil
}

// ==============================================
// PROFILE
// ==============================================

// GetProfile retrieves the profile for a user.
func (r *UserRepository) GetProfile(ctx context.Context, userID int) (*models.Profile, error) {
	query := `
		SELECT user_id, bio, phone, website, discord, steam,
		       total_ads, total_responses, email_notifications,
		       password_reset_token, last_activity
		FROM profiles
		WHERE user_id = $1
	`

	var p models.Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.Bio,
		&p.Phone,
		&p.Website,
		&p.Discord,
		&p.Steam,
		&p.TotalAds,
		&p.TotalResponses,
		&p.EmailNotifications,
		&p.PasswordResetToken,
		&p.LastActivity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &p, nil
}

// UpdateProfile saves the editable profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, p *models.Profile) error {
	query := `
		UPDATE profiles
		SET bio = $1, phone = $2, website = $3, discord = $4, steam = $5,
		    email_notifications = $6, last_activity = now()
		WHERE user_id = $7
	`

	_, err := r.db.Exec(ctx, query,
		p.Bio, p.Phone, p.Website, p.Discord, p.Steam,
		p.EmailNotifications, p.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}

// UpdateProfileCounters refreshes the denormalized ad/response counts.
func (r *UserRepository) UpdateProfileCounters(ctx context.Context, userID, totalAds, totalResponses int) error {
	query := `
		UPDATE profiles
		SET total_ads = $1, total_responses = $2, last_activity = now()
		WHERE user_id = $3
	`

	_, err := r.db.Exec(ctx, query, totalAds, totalResponses, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile counters: %w", err)
	}

	return nil
}

// SetPasswordResetToken stores a reset token on the profile.
func (r *UserRepository) SetPasswordResetToken(ctx context.Context, userID int, token string) error {
	query := `
		UPDATE profiles
		SET password_reset_token = $1
		WHERE user_id = $2
	`

	_, err := r.db.Exec(ctx, query, token, userID)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}

	return nil
}

// ClearPasswordResetToken invalidates any stored reset token.
func (r *UserRepository) ClearPasswordResetToken(ctx context.Context, userID int) error {
	query := `
		UPDATE profiles
		SET password_reset_token = NULL
		WHERE user_id = $1
	`

	_, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to clear reset token: %w", err)
	}

	return nil
}

// ==============================================
// NEWSLETTER
// ==============================================

// ListNewsletterRecipients returns active users who opted into email
// notifications.
func (r *UserRepository) ListNewsletterRecipients(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT u.id, u.name, u.username, u.email, u.password_hash,
		       u.is_active, u.is_staff, u.created_at, u.updated_at, u.last_login_at
		FROM users u
		JOIN profiles p ON p.user_id = u.id
		WHERE u.is_active = TRUE AND p.email_notifications = TRUE
		ORDER BY u.id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list newsletter recipients: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Username,
			&user.Email,
			&user.PasswordHash,
			&user.IsActive,
			&user.IsStaff,
			&user.CreatedAt,
			&user.UpdatedAt,
			&user.LastLoginAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipients: %w", err)
	}

	return users, nil
}
