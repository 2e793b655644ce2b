package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmoboard/board/internal/auth"
	"github.com/mmoboard/board/internal/models"
)

// ==============================================
// STORE INTERFACES (for testing)
// ==============================================

// RegistrationUserStore is the slice of the user repository the
// registration flow needs.
type RegistrationUserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// SessionStore persists session mutations made by services.
type SessionStore interface {
	Update(ctx context.Context, session *models.Session) error
}

// ==============================================
// REGISTRATION SERVICE
// ==============================================

// RegistrationService runs the three-step email OTP registration:
// step 1 stages the candidate account in the session and mails a code,
// step 2 verifies the code and finalizes, resend replaces the code.
type RegistrationService struct {
	users    RegistrationUserStore
	sessions SessionStore
	email    *EmailService
}

func NewRegistrationService(users RegistrationUserStore, sessions SessionStore, email *EmailService) *RegistrationService {
	return &RegistrationService{
		users:    users,
		sessions: sessions,
		email:    email,
	}
}

// StartForm is the step-1 submission.
type StartForm struct {
	Email           string
	Username        string
	Password        string
	PasswordConfirm string
}

// ==============================================
// STEP 1
// ==============================================

// Start validates the step-1 form, stages a pending registration in
// the session and mails the confirmation code. Checks run in order and
// the first failure wins; exactly one message is reported per
// submission. A prior pending registration is overwritten.
//
// A code-delivery transport failure is returned to the caller: the
// flow cannot proceed without the code.
func (s *RegistrationService) Start(ctx context.Context, sess *models.Session, form StartForm) error {
	email := strings.TrimSpace(form.Email)
	username := strings.TrimSpace(form.Username)

	if _, err := mail.ParseAddress(email); err != nil {
		return models.ErrInvalidEmail
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return models.ErrEmailAlreadyExists
	}

	if utf8.RuneCountInString(username) < 3 {
		return models.ErrUsernameTooShort
	}

	exists, err = s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return models.ErrUsernameAlreadyExists
	}

	if utf8.RuneCountInString(form.Password) < 8 {
		return models.ErrPasswordTooShort
	}

	if form.Password != form.PasswordConfirm {
		return models.ErrPasswordMismatch
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return err
	}

	sess.Data.RegisterData = &models.RegisterData{
		Email:    email,
		Username: username,
		Password: form.Password,
		OTP:      code,
		OTPTime:  time.Now(),
	}

	if err := s.sessions.Update(ctx, sess); err != nil {
		return fmt.Errorf("failed to stage registration: %w", err)
	}

	if err := s.email.SendRegistrationCode(email, code); err != nil {
		return fmt.Errorf("failed to send confirmation code: %w", err)
	}

	return nil
}

// ==============================================
// STEP 2
// ==============================================

// Pending returns the staged registration for the session. A missing
// record yields ErrNoPendingRegistration; a code past its 10-minute
// window is discarded on the spot (lazy eviction, there is no
// background sweep) and yields ErrOTPExpired.
func (s *RegistrationService) Pending(ctx context.Context, sess *models.Session) (*models.RegisterData, error) {
	rd := sess.Data.RegisterData
	if rd == nil {
		return nil, models.ErrNoPendingRegistration
	}

	if rd.IsExpired() {
		sess.Data.RegisterData = nil
		if err := s.sessions.Update(ctx, sess); err != nil {
			return nil, fmt.Errorf("failed to discard expired registration: %w", err)
		}
		return nil, models.ErrOTPExpired
	}

	return rd, nil
}

// Resend replaces the staged code and timestamp with fresh ones and
// re-mails the code. The previous code no longer verifies.
func (s *RegistrationService) Resend(ctx context.Context, sess *models.Session) error {
	rd, err := s.Pending(ctx, sess)
	if err != nil {
		return err
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return err
	}

	rd.OTP = code
	rd.OTPTime = time.Now()

	if err := s.sessions.Update(ctx, sess); err != nil {
		return fmt.Errorf("failed to restage registration: %w", err)
	}

	if err := s.email.SendRegistrationCode(rd.Email, code); err != nil {
		return fmt.Errorf("failed to send confirmation code: %w", err)
	}

	return nil
}

// Verify checks the submitted code against the staged one and, on a
// match, finalizes the account: the user row is created (the insert
// itself arbitrates uniqueness against anything registered since step
// 1), the session is bound to the new identity and the pending
// registration is discarded.
//
// A mismatch leaves the pending state untouched; attempts are not
// counted. A duplicate discovered at finalize discards the pending
// registration and forces a restart from step 1.
func (s *RegistrationService) Verify(ctx context.Context, sess *models.Session, code string) (*models.User, error) {
	rd, err := s.Pending(ctx, sess)
	if err != nil {
		return nil, err
	}

	if !auth.ValidOTPFormat(code) {
		return nil, models.ErrOTPFormat
	}

	if code != rd.OTP {
		return nil, models.ErrOTPMismatch
	}

	passwordHash, err := auth.HashPassword(rd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     rd.Username,
		Email:        rd.Email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrEmailAlreadyExists) || errors.Is(err, models.ErrUsernameAlreadyExists) {
			sess.Data.RegisterData = nil
			if uerr := s.sessions.Update(ctx, sess); uerr != nil {
				return nil, fmt.Errorf("failed to discard pending registration: %w", uerr)
			}
		}
		return nil, err
	}

	sess.LogIn(user.ID)
	sess.Data.RegisterData = nil
	if err := s.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to log in new user: %w", err)
	}

	if err := s.email.SendWelcome(user); err != nil {
		log.Printf("welcome email to %s failed: %v", user.Email, err)
	}

	return user, nil
}
