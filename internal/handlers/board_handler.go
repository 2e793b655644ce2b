package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmoboard/board/internal/models"
	"github.com/mmoboard/board/internal/service"
)

// ==============================================
// SERVICE INTERFACE (for testing)
// ==============================================

type BoardFlow interface {
	ListAds(ctx context.Context, categoryID, page, perPage int) (*service.AdPage, error)
	Categories(ctx context.Context) ([]models.Category, error)
	GetAd(ctx context.Context, id int) (*service.AdDetail, error)
	CreateAd(ctx context.Context, author *models.User, form service.AdForm) (*models.Ad, error)
	UpdateAd(ctx context.Context, userID, adID int, form service.AdForm) error
	DeleteAd(ctx context.Context, userID, adID int) error
	Respond(ctx context.Context, from *models.User, adID int, text string) (*models.Response, error)
	MyResponses(ctx context.Context, userID int, filter, search string) ([]models.Response, error)
	AcceptResponse(ctx context.Context, userID, responseID int) error
	DeleteResponse(ctx context.Context, userID, responseID int) error
	SendNewsletter(ctx context.Context, sender *models.User, subject, body string) (int, error)
}

// ==============================================
// BOARD HANDLER
// ==============================================

type BoardHandler struct {
	board BoardFlow
	sm    *SessionManager
}

func NewBoardHandler(board BoardFlow, sm *SessionManager) *BoardHandler {
	return &BoardHandler{board: board, sm: sm}
}

// ==============================================
// AD PAGES
// ==============================================

// AdList handles GET /
func (h *BoardHandler) AdList(c *gin.Context) {
	categoryID, _ := strconv.Atoi(c.DefaultQuery("category", "0"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	adPage, err := h.board.ListAds(c.Request.Context(), categoryID, page, perPage)
	if err != nil {
		internalError(c, h.sm)
		return
	}

	categories, err := h.board.Categories(c.Request.Context())
	if err != nil {
		internalError(c, h.sm)
		return
	}

	render(c, h.sm, http.StatusOK, "ad_list.html", gin.H{
		"Page":       adPage,
		"Categories": categories,
	})
}

// AdDetail handles GET /ads/:id/
func (h *BoardHandler) AdDetail(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		renderError(c, h.sm, http.StatusNotFound, "Ad not found.")
		return
	}

	detail, err := h.board.GetAd(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrAdNotFound) {
			renderError(c, h.sm, http.StatusNotFound, "Ad not found.")
			return
		}
		internalError(c, h.sm)
		return
	}

	viewer := CurrentUser(c)
	render(c, h.sm, http.StatusOK, "ad_detail.html", gin.H{
		"Ad":        detail.Ad,
		"Responses": detail.Responses,
		"IsOwner":   viewer != nil && viewer.ID == detail.Ad.AuthorID,
	})
}

// AdCreate handles GET/POST /ads/create/
func (h *BoardHandler) AdCreate(c *gin.Context) {
	user := CurrentUser(c)

	if c.Request.Method != http.MethodPost {
		h.renderAdForm(c, http.StatusOK, nil)
		return
	}

	form := adFormFromRequest(c)
	form.IsActive = true

	ad, err := h.board.CreateAd(c.Request.Context(), user, form)
	if err != nil {
		if errors.Is(err, models.ErrMissingFields) || errors.Is(err, models.ErrCategoryNotFound) {
			h.sm.Flash(c, "error", err.Error())
			h.renderAdForm(c, http.StatusOK, &form)
			return
		}
		internalError(c, h.sm)
		return
	}

	h.sm.Flash(c, "success", fmt.Sprintf("Your ad %q has been published!", ad.Title))
	c.Redirect(http.StatusFound, fmt.Sprintf("/ads/%d/", ad.ID))
}

// AdEdit handles GET/POST /ads/:id/edit/
func (h *BoardHandler) AdEdit(c *gin.Context) {
	user := CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		renderError(c, h.sm, http.StatusNotFound, "Ad not found.")
		return
	}

	if c.Request.Method != http.MethodPost {
		detail, err := h.board.GetAd(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, models.ErrAdNotFound) {
				renderError(c, h.sm, http.StatusNotFound, "Ad not found.")
				return
			}
			internalError(c, h.sm)
			return
		}
		if detail.Ad.AuthorID != user.ID {
			renderError(c, h.sm, http.StatusForbidden, "Only the ad owner may edit it.")
			return
		}
		h.renderAdForm(c, http.StatusOK, &service.AdForm{
			Title:      detail.Ad.Title,
			Content:    detail.Ad.Content,
			CategoryID: detail.Ad.CategoryID,
			IsActive:   detail.Ad.IsActive,
		}, id)
		return
	}

	form := adFormFromRequest(c)
	form.IsActive = c.PostForm("is_active") != ""

	if err := h.board.UpdateAd(c.Request.Context(), user.ID, id, form); err != nil {
		switch {
		case errors.Is(err, models.ErrAdNotFound):
			renderError(c, h.sm, http.StatusNotFound, "Ad not found.")
		case errors.Is(err, models.ErrNotAdOwner):
			renderError(c, h.sm, http.StatusForbidden, "Only the ad owner may edit it.")
		case errors.Is(err, models.ErrMissingFields) || errors.Is(err, models.ErrCategoryNotFound):
			h.sm.Flash(c, "error", err.Error())
			h.renderAdForm(c, http.StatusOK, &form, id)
		default:
			internalError(c, h.sm)
		}
		return
	}

	h.sm.Flash(c, "success", "Ad updated.")
	c.Redirect(http.StatusFound, fmt.Sprintf("/ads/%d/", id))
}

// AdDelete handles POST /ads/:id/delete/
func (h *BoardHandler) AdDelete(c *gin.Context) {
	user := CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		renderError(c, h.sm, http.StatusNotFound, "Ad not found.")
		return
	}

	if err := h.board.DeleteAd(c.Request.Context(), user.ID, id); err != nil {
		switch {
		case errors.Is(err, models.ErrAdNotFound):
			renderError(c, h.sm, http.StatusNotFound, "Ad not found.")
		case errors.Is(err, models.ErrNotAdOwner):
			renderError(c, h.sm, http.StatusForbidden, "Only the ad owner may delete it.")
		default:
			internalError(c, h.sm)
		}
		return
	}

	h.sm.Flash(c, "success", "Ad deleted.")
	c.Redirect(http.StatusFound, "/")
}

func (h *BoardHandler) renderAdForm(c *gin.Context, status int, form *service.AdForm, adID ...int) {
	categories, err := h.board.Categories(c.Request.Context())
	if err != nil {
		internalError(c, h.sm)
		return
	}

	data := gin.H{"Categories": categories}
	if form != nil {
		data["Form"] = form
	}
	if len(adID) > 0 {
		data["AdID"] = adID[0]
	}
	render(c, h.sm, status, "ad_form.html", data)
}

func adFormFromRequest(c *gin.Context) service.AdForm {
	categoryID, _ := strconv.Atoi(c.PostForm("category"))
	return service.AdForm{
		Title:      c.PostForm("title"),
		Content:    c.PostForm("content"),
		CategoryID: categoryID,
	}
}

// ==============================================
// RESPONSES
// ==============================================

// Respond handles POST /ads/:id/respond/
func (h *BoardHandler) Respond(c *gin.Context) {
	user := CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		renderError(c, h.sm, http.StatusNotFound, "Ad not found.")
		return
	}

	_, err = h.board.Respond(c.Request.Context(), user, id, c.PostForm("text"))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAdNotFound):
			renderError(c, h.sm, http.StatusNotFound, "Ad not found.")
			return
		case errors.Is(err, models.ErrMissingFields) || errors.Is(err, models.ErrDuplicateResponse):
			h.sm.Flash(c, "error", err.Error())
		default:
			internalError(c, h.sm)
			return
		}
	} else {
		h.sm.Flash(c, "success", "Your response has been sent!")
	}

	c.Redirect(http.StatusFound, fmt.Sprintf("/ads/%d/", id))
}

// MyResponses handles GET /responses/
func (h *BoardHandler) MyResponses(c *gin.Context) {
	user := CurrentUser(c)
	filter := c.DefaultQuery("filter", models.ResponseFilterAll)
	search := c.Query("search")

	responses, err := h.board.MyResponses(c.Request.Context(), user.ID, filter, search)
	if err != nil {
		internalError(c, h.sm)
		return
	}

	render(c, h.sm, http.StatusOK, "my_responses.html", gin.H{
		"Responses": responses,
		"Filter":    filter,
		"Search":    search,
	})
}

// AcceptResponse handles POST /responses/:id/accept/
func (h *BoardHandler) AcceptResponse(c *gin.Context) {
	user := CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		renderError(c, h.sm, http.StatusNotFound, "Response not found.")
		return
	}

	if err := h.board.AcceptResponse(c.Request.Context(), user.ID, id); err != nil {
		switch {
		case errors.Is(err, models.ErrResponseNotFound):
			renderError(c, h.sm, http.StatusNotFound, "Response not found.")
		case errors.Is(err, models.ErrNotAdOwner):
			renderError(c, h.sm, http.StatusForbidden, "Only the ad owner may accept responses.")
		default:
			internalError(c, h.sm)
		}
		return
	}

	h.sm.Flash(c, "success", "Response accepted.")
	c.Redirect(http.StatusFound, "/responses/")
}

// DeleteResponse handles POST /responses/:id/delete/
func (h *BoardHandler) DeleteResponse(c *gin.Context) {
	user := CurrentUser(c)

	id, err := parseID(c, "id")
	if err != nil {
		renderError(c, h.sm, http.StatusNotFound, "Response not found.")
		return
	}

	if err := h.board.DeleteResponse(c.Request.Context(), user.ID, id); err != nil {
		switch {
		case errors.Is(err, models.ErrResponseNotFound):
			renderError(c, h.sm, http.StatusNotFound, "Response not found.")
		case errors.Is(err, models.ErrNotAdOwner):
			renderError(c, h.sm, http.StatusForbidden, "Only the ad owner may delete responses.")
		default:
			internalError(c, h.sm)
		}
		return
	}

	h.sm.Flash(c, "success", "Response deleted.")
	c.Redirect(http.StatusFound, "/responses/")
}

// ==============================================
// NEWSLETTER
// ==============================================

// Newsletter handles GET/POST /newsletter/ (staff only).
func (h *BoardHandler) Newsletter(c *gin.Context) {
	user := CurrentUser(c)
	if !user.IsStaff {
		renderError(c, h.sm, http.StatusForbidden, "Staff access required.")
		return
	}

	if c.Request.Method != http.MethodPost {
		render(c, h.sm, http.StatusOK, "newsletter.html", nil)
		return
	}

	sent, err := h.board.SendNewsletter(c.Request.Context(), user,
		c.PostForm("subject"), c.PostForm("body"))
	if err != nil {
		if errors.Is(err, models.ErrMissingFields) {
			h.sm.Flash(c, "error", err.Error())
			render(c, h.sm, http.StatusOK, "newsletter.html", gin.H{
				"Subject": c.PostForm("subject"),
				"Body":    c.PostForm("body"),
			})
			return
		}
		internalError(c, h.sm)
		return
	}

	h.sm.Flash(c, "success", fmt.Sprintf("Newsletter sent to %d users.", sent))
	c.Redirect(http.StatusFound, "/newsletter/")
}

// ==============================================
// ROUTE REGISTRATION
// ==============================================

func (h *BoardHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.AdList)
	router.GET("/ads/:id/", h.AdDetail)

	authed := router.Group("/", RequireAuth())
	{
		authed.GET("/ads/create/", h.AdCreate)
		authed.POST("/ads/create/", h.AdCreate)
		authed.GET("/ads/:id/edit/", h.AdEdit)
		authed.POST("/ads/:id/edit/", h.AdEdit)
		authed.POST("/ads/:id/delete/", h.AdDelete)
		authed.POST("/ads/:id/respond/", h.Respond)

		authed.GET("/responses/", h.MyResponses)
		authed.POST("/responses/:id/accept/", h.AcceptResponse)
		authed.POST("/responses/:id/delete/", h.DeleteResponse)

		authed.GET("/newsletter/", h.Newsletter)
		authed.POST("/newsletter/", h.Newsletter)
	}
}

// ==============================================
// HELPER FUNCTIONS
// ==============================================

// parseID extracts and validates a numeric URL parameter.
func parseID(c *gin.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, errors.New(name + " must be a number")
	}
	if id <= 0 {
		return 0, errors.New(name + " must be positive")
	}
	return id, nil
}
