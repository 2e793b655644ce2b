package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmoboard/board/internal/models"
	"github.com/mmoboard/board/internal/service"
)

// ==============================================
// SERVICE INTERFACE (for testing)
// ==============================================

type ProfileFlow interface {
	ProfileOverview(ctx context.Context, userID int) (*service.ProfileData, error)
	PublicProfile(ctx context.Context, username string) (*service.ProfileData, error)
	UpdateProfile(ctx context.Context, userID int, form service.ProfileForm) error
}

// ==============================================
// PROFILE HANDLER
// ==============================================

type ProfileHandler struct {
	accounts ProfileFlow
	sm       *SessionManager
}

func NewProfileHandler(accounts ProfileFlow, sm *SessionManager) *ProfileHandler {
	return &ProfileHandler{accounts: accounts, sm: sm}
}

// Profile handles GET /profile/
func (h *ProfileHandler) Profile(c *gin.Context) {
	user := CurrentUser(c)

	data, err := h.accounts.ProfileOverview(c.Request.Context(), user.ID)
	if err != nil {
		internalError(c, h.sm)
		return
	}

	render(c, h.sm, http.StatusOK, "profile.html", gin.H{
		"Profile":         data.Profile,
		"RecentAds":       data.RecentAds,
		"RecentResponses": data.RecentResponses,
	})
}

// ProfileEdit handles GET/POST /profile/edit/
func (h *ProfileHandler) ProfileEdit(c *gin.Context) {
	user := CurrentUser(c)

	if c.Request.Method != http.MethodPost {
		data, err := h.accounts.ProfileOverview(c.Request.Context(), user.ID)
		if err != nil {
			internalError(c, h.sm)
			return
		}
		render(c, h.sm, http.StatusOK, "profile_edit.html", gin.H{"Profile": data.Profile})
		return
	}

	form := service.ProfileForm{
		Name:               c.PostForm("name"),
		Bio:                c.PostForm("bio"),
		Phone:              c.PostForm("phone"),
		Website:            c.PostForm("website"),
		Discord:            c.PostForm("discord"),
		Steam:              c.PostForm("steam"),
		EmailNotifications: c.PostForm("email_notifications") != "",
	}

	if err := h.accounts.UpdateProfile(c.Request.Context(), user.ID, form); err != nil {
		internalError(c, h.sm)
		return
	}

	h.sm.Flash(c, "success", "Profile updated successfully!")
	c.Redirect(http.StatusFound, "/profile/")
}

// PublicProfile handles GET /user/:username/
func (h *ProfileHandler) PublicProfile(c *gin.Context) {
	data, err := h.accounts.PublicProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			renderError(c, h.sm, http.StatusNotFound, "User not found.")
			return
		}
		internalError(c, h.sm)
		return
	}

	viewer := CurrentUser(c)
	render(c, h.sm, http.StatusOK, "public_profile.html", gin.H{
		"ProfileUser": data.User,
		"Profile":     data.Profile,
		"UserAds":     data.RecentAds,
		"IsOwner":     viewer != nil && viewer.ID == data.User.ID,
	})
}

// ==============================================
// ROUTE REGISTRATION
// ==============================================

func (h *ProfileHandler) RegisterRoutes(router *gin.Engine) {
	authed := router.Group("/", RequireAuth())
	{
		authed.GET("/profile/", h.Profile)
		authed.GET("/profile/edit/", h.ProfileEdit)
		authed.POST("/profile/edit/", h.ProfileEdit)
	}

	router.GET("/user/:username/", h.PublicProfile)
}
