package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmoboard/board/internal/models"
	"github.com/mmoboard/board/internal/service"
)

// ==============================================
// SERVICE INTERFACES (for testing)
// ==============================================

type RegistrationFlow interface {
	Start(ctx context.Context, sess *models.Session, form service.StartForm) error
	Pending(ctx context.Context, sess *models.Session) (*models.RegisterData, error)
	Resend(ctx context.Context, sess *models.Session) error
	Verify(ctx context.Context, sess *models.Session, code string) (*models.User, error)
}

type AccountFlow interface {
	Login(ctx context.Context, sess *models.Session, username, password string) (*models.User, error)
	Logout(ctx context.Context, sess *models.Session) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, userID int, token, password, passwordConfirm string) error
}

// ==============================================
// AUTH HANDLER (HTTP Layer ONLY)
// ==============================================

type AuthHandler struct {
	registration RegistrationFlow
	accounts     AccountFlow
	sm           *SessionManager
}

func NewAuthHandler(registration RegistrationFlow, accounts AccountFlow, sm *SessionManager) *AuthHandler {
	return &AuthHandler{
		registration: registration,
		accounts:     accounts,
		sm:           sm,
	}
}

// ==============================================
// REGISTRATION STEP 1
// ==============================================

// RegisterStep1 handles GET/POST /register/
func (h *AuthHandler) RegisterStep1(c *gin.Context) {
	if CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/profile/")
		return
	}

	if c.Request.Method != http.MethodPost {
		render(c, h.sm, http.StatusOK, "register_step1.html", nil)
		return
	}

	form := service.StartForm{
		Email:           c.PostForm("email"),
		Username:        c.PostForm("username"),
		Password:        c.PostForm("password1"),
		PasswordConfirm: c.PostForm("password2"),
	}

	if err := h.registration.Start(c.Request.Context(), Session(c), form); err != nil {
		if models.IsValidationError(err) {
			h.sm.Flash(c, "error", err.Error())
			render(c, h.sm, http.StatusOK, "register_step1.html", gin.H{
				"Email":    form.Email,
				"Username": form.Username,
			})
			return
		}
		internalError(c, h.sm)
		return
	}

	h.sm.Flash(c, "success", fmt.Sprintf("A confirmation code has been sent to %s", form.Email))
	c.Redirect(http.StatusFound, "/register/code/")
}

// ==============================================
// REGISTRATION STEP 2
// ==============================================

// RegisterStep2 handles GET/POST /register/code/ including the resend
// action (resend_code form field present).
func (h *AuthHandler) RegisterStep2(c *gin.Context) {
	if CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/profile/")
		return
	}

	sess := Session(c)

	pending, err := h.registration.Pending(c.Request.Context(), sess)
	if err != nil {
		h.redirectExpired(c, err)
		return
	}

	if c.Request.Method != http.MethodPost {
		render(c, h.sm, http.StatusOK, "register_step2.html", gin.H{"Email": pending.Email})
		return
	}

	if _, resend := c.GetPostForm("resend_code"); resend {
		if err := h.registration.Resend(c.Request.Context(), sess); err != nil {
			if models.IsSessionExpiredError(err) {
				h.redirectExpired(c, err)
				return
			}
			internalError(c, h.sm)
			return
		}
		h.sm.Flash(c, "success", "A new code has been sent!")
		c.Redirect(http.StatusFound, "/register/code/")
		return
	}

	user, err := h.registration.Verify(c.Request.Context(), sess, c.PostForm("token"))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrOTPFormat) || errors.Is(err, models.ErrOTPMismatch):
			h.sm.Flash(c, "error", err.Error())
			c.Redirect(http.StatusFound, "/register/code/")
		case models.IsSessionExpiredError(err):
			h.redirectExpired(c, err)
		case errors.Is(err, models.ErrEmailAlreadyExists) || errors.Is(err, models.ErrUsernameAlreadyExists):
			// Someone registered the identity between step 1 and now.
			h.sm.Flash(c, "error", err.Error())
			c.Redirect(http.StatusFound, "/register/")
		default:
			internalError(c, h.sm)
		}
		return
	}

	h.sm.Flash(c, "success", fmt.Sprintf("Registration complete! Welcome, %s!", user.Username))
	c.Redirect(http.StatusFound, "/profile/")
}

// RegisterFinalize handles GET /register/finalize/ which always
// redirects to step 2 (legacy endpoint).
func (h *AuthHandler) RegisterFinalize(c *gin.Context) {
	c.Redirect(http.StatusFound, "/register/code/")
}

func (h *AuthHandler) redirectExpired(c *gin.Context, err error) {
	if models.IsSessionExpiredError(err) {
		h.sm.Flash(c, "error", err.Error())
		c.Redirect(http.StatusFound, "/register/")
		return
	}
	internalError(c, h.sm)
}

// ==============================================
// LOGIN / LOGOUT
// ==============================================

// Login handles GET/POST /login/
func (h *AuthHandler) Login(c *gin.Context) {
	if CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/profile/")
		return
	}

	if c.Request.Method != http.MethodPost {
		render(c, h.sm, http.StatusOK, "login.html", gin.H{"Next": c.Query("next")})
		return
	}

	username := c.PostForm("username")
	password := c.PostForm("password")

	user, err := h.accounts.Login(c.Request.Context(), Session(c), username, password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) || errors.Is(err, models.ErrAccountInactive) {
			h.sm.Flash(c, "error", err.Error())
			render(c, h.sm, http.StatusOK, "login.html", gin.H{
				"Username": username,
				"Next":     c.PostForm("next"),
			})
			return
		}
		internalError(c, h.sm)
		return
	}

	h.sm.Flash(c, "success", fmt.Sprintf("Welcome, %s!", user.Username))

	// Only same-site paths are followed. "//host" is a
	// protocol-relative URL, not a local path.
	next := c.PostForm("next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/profile/"
	}
	c.Redirect(http.StatusFound, next)
}

// Logout handles GET /logout/
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), Session(c)); err != nil {
		internalError(c, h.sm)
		return
	}
	h.sm.Flash(c, "success", "You have been logged out.")
	c.Redirect(http.StatusFound, "/")
}

// ==============================================
// PASSWORD RESET
// ==============================================

// PasswordResetRequest handles GET/POST /password-reset/
func (h *AuthHandler) PasswordResetRequest(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		render(c, h.sm, http.StatusOK, "password_reset.html", nil)
		return
	}

	email := c.PostForm("email")

	if err := h.accounts.RequestPasswordReset(c.Request.Context(), email); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			h.sm.Flash(c, "error", "No user found with this email.")
			render(c, h.sm, http.StatusOK, "password_reset.html", gin.H{"Email": email})
			return
		}
		internalError(c, h.sm)
		return
	}

	h.sm.Flash(c, "success", "Password reset instructions have been sent to your email.")
	c.Redirect(http.StatusFound, "/login/")
}

// PasswordResetConfirm handles GET/POST /password-reset/:user_id/:token/
func (h *AuthHandler) PasswordResetConfirm(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil || userID <= 0 {
		renderError(c, h.sm, http.StatusNotFound, "User not found.")
		return
	}
	token := c.Param("token")

	if c.Request.Method != http.MethodPost {
		render(c, h.sm, http.StatusOK, "password_reset_confirm.html", gin.H{
			"UserID": userID,
			"Token":  token,
		})
		return
	}

	err = h.accounts.ResetPassword(c.Request.Context(), userID, token,
		c.PostForm("new_password1"), c.PostForm("new_password2"))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUserNotFound) || errors.Is(err, models.ErrInvalidResetToken):
			h.sm.Flash(c, "error", "Invalid or expired reset link.")
			c.Redirect(http.StatusFound, "/login/")
		case errors.Is(err, models.ErrPasswordTooShort) || errors.Is(err, models.ErrPasswordMismatch):
			h.sm.Flash(c, "error", err.Error())
			render(c, h.sm, http.StatusOK, "password_reset_confirm.html", gin.H{
				"UserID": userID,
				"Token":  token,
			})
		default:
			internalError(c, h.sm)
		}
		return
	}

	h.sm.Flash(c, "success", "Your password has been changed.")
	c.Redirect(http.StatusFound, "/login/")
}

// ==============================================
// ROUTE REGISTRATION
// ==============================================

func (h *AuthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/register/", h.RegisterStep1)
	router.POST("/register/", h.RegisterStep1)
	router.GET("/register/code/", h.RegisterStep2)
	router.POST("/register/code/", h.RegisterStep2)
	router.GET("/register/finalize/", h.RegisterFinalize)

	router.GET("/login/", h.Login)
	router.POST("/login/", h.Login)
	router.GET("/logout/", h.Logout)

	router.GET("/password-reset/", h.PasswordResetRequest)
	router.POST("/password-reset/", h.PasswordResetRequest)
	router.GET("/password-reset/:user_id/:token/", h.PasswordResetConfirm)
	router.POST("/password-reset/:user_id/:token/", h.PasswordResetConfirm)
}
