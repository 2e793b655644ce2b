package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mmoboard/board/internal/auth"
	"github.com/mmoboard/board/internal/models"
)

// ==============================================
// STORE INTERFACES (for testing)
// ==============================================

// AccountUserStore is the slice of the user repository the account
// service needs.
type AccountUserStore interface {
	GetUserByID(ctx context.Context, userID int) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID int) error
	UpdatePassword(ctx context.Context, userID int, passwordHash string) error
	UpdateName(ctx context.Context, userID int, name string) error
	GetProfile(ctx context.Context, userID int) (*models.Profile, error)
	UpdateProfile(ctx context.Context, p *models.Profile) error
	UpdateProfileCounters(ctx context.Context, userID, totalAds, totalResponses int) error
	SetPasswordResetToken(ctx context.Context, userID int, token string) error
	ClearPasswordResetToken(ctx context.Context, userID int) error
}

// AccountBoardStore is the slice of the board repository used for
// profile counters and recent activity.
type AccountBoardStore interface {
	CountAdsByAuthor(ctx context.Context, authorID int) (int, error)
	CountResponsesByUser(ctx context.Context, userID int) (int, error)
	ListAdsByAuthor(ctx context.Context, authorID int, activeOnly bool, limit int) ([]models.Ad, error)
	ListResponsesByUser(ctx context.Context, userID int, search string) ([]models.Response, error)
}

// ==============================================
// ACCOUNT SERVICE
// ==============================================

// AccountService covers login/logout, profiles and password reset.
type AccountService struct {
	users    AccountUserStore
	board    AccountBoardStore
	sessions SessionStore
	email    *EmailService
	siteURL  string
}

func NewAccountService(
	users AccountUserStore,
	board AccountBoardStore,
	sessions SessionStore,
	email *EmailService,
	siteURL string,
) *AccountService {
	return &AccountService{
		users:    users,
		board:    board,
		sessions: sessions,
		email:    email,
		siteURL:  siteURL,
	}
}

// ==============================================
// LOGIN / LOGOUT
// ==============================================

// Login checks the credentials and binds the session to the user.
func (s *AccountService) Login(ctx context.Context, sess *models.Session, username, password string) (*models.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.IsActive {
		return nil, models.ErrAccountInactive
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, models.ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	sess.LogIn(user.ID)
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to bind session: %w", err)
	}

	return user, nil
}

// Logout unbinds the session from its user.
func (s *AccountService) Logout(ctx context.Context, sess *models.Session) error {
	sess.LogOut()
	if err := s.sessions.Update(ctx, sess); err != nil {
		return fmt.Errorf("failed to unbind session: %w", err)
	}
	return nil
}

// CurrentUser resolves the session's user.
func (s *AccountService) CurrentUser(ctx context.Context, sess *models.Session) (*models.User, error) {
	if !sess.IsAuthenticated() {
		return nil, models.ErrUserNotFound
	}
	return s.users.GetUserByID(ctx, int(sess.UserID.Int32))
}

// ==============================================
// PROFILE
// ==============================================

// ProfileData is everything the profile page shows.
type ProfileData struct {
	User            *models.User
	Profile         *models.Profile
	RecentAds       []models.Ad
	RecentResponses []models.Response
}

// ProfileOverview refreshes the profile counters from the board and
// returns the profile with recent activity.
func (s *AccountService) ProfileOverview(ctx context.Context, userID int) (*ProfileData, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	totalAds, err := s.board.CountAdsByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	totalResponses, err := s.board.CountResponsesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateProfileCounters(ctx, userID, totalAds, totalResponses); err != nil {
		return nil, err
	}

	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	recentAds, err := s.board.ListAdsByAuthor(ctx, userID, false, 5)
	if err != nil {
		return nil, err
	}
	recentResponses, err := s.board.ListResponsesByUser(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	if len(recentResponses) > 5 {
		recentResponses = recentResponses[:5]
	}

	return &ProfileData{
		User:            user,
		Profile:         profile,
		RecentAds:       recentAds,
		RecentResponses: recentResponses,
	}, nil
}

// PublicProfile returns the public view of a user: profile plus
// active ads only.
func (s *AccountService) PublicProfile(ctx context.Context, username string) (*ProfileData, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	profile, err := s.users.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	ads, err := s.board.ListAdsByAuthor(ctx, user.ID, true, 10)
	if err != nil {
		return nil, err
	}

	return &ProfileData{
		User:      user,
		Profile:   profile,
		RecentAds: ads,
	}, nil
}

// ProfileForm is the editable part of a profile.
type ProfileForm struct {
	Name               string
	Bio                string
	Phone              string
	Website            string
	Discord            string
	Steam              string
	EmailNotifications bool
}

// UpdateProfile saves the profile edit form.
func (s *AccountService) UpdateProfile(ctx context.Context, userID int, form ProfileForm) error {
	if err := s.users.UpdateName(ctx, userID, form.Name); err != nil {
		return err
	}

	return s.users.UpdateProfile(ctx, &models.Profile{
		UserID:             userID,
		Bio:                form.Bio,
		Phone:              form.Phone,
		Website:            form.Website,
		Discord:            form.Discord,
		Steam:              form.Steam,
		EmailNotifications: form.EmailNotifications,
	})
}

// ==============================================
// PASSWORD RESET
// ==============================================

// RequestPasswordReset stores a one-time token on the profile and
// mails a reset link. Unknown emails are reported to the caller; a
// transport failure is fatal, the same policy as registration codes.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	token := uuid.NewString()
	if err := s.users.SetPasswordResetToken(ctx, user.ID, token); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/password-reset/%d/%s/", s.siteURL, user.ID, token)
	if err := s.email.SendPasswordResetLink(user.Email, link); err != nil {
		return fmt.Errorf("failed to send reset link: %w", err)
	}

	return nil
}

// ResetPassword finishes a reset begun by RequestPasswordReset. The
// token must match the one stored on the profile; it is cleared on
// success.
func (s *AccountService) ResetPassword(ctx context.Context, userID int, token, password, passwordConfirm string) error {
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return err
	}

	if !profile.HasResetToken() || profile.PasswordResetToken.String != token {
		return models.ErrInvalidResetToken
	}

	if utf8.RuneCountInString(password) < 8 {
		return models.ErrPasswordTooShort
	}
	if password != passwordConfirm {
		return models.ErrPasswordMismatch
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return err
	}

	return s.users.ClearPasswordResetToken(ctx, userID)
}
