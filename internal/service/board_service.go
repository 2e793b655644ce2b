package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mmoboard/board/internal/models"
)

// ==============================================
// STORE INTERFACES (for testing)
// ==============================================

// BoardStore is the slice of the board repository the board service
// needs.
type BoardStore interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id int) (*models.Category, error)
	CreateAd(ctx context.Context, ad *models.Ad) error
	GetAdByID(ctx context.Context, id int) (*models.Ad, error)
	ListAds(ctx context.Context, categoryID, limit, offset int) ([]models.Ad, error)
	CountAds(ctx context.Context, categoryID int) (int, error)
	UpdateAd(ctx context.Context, ad *models.Ad) error
	DeleteAd(ctx context.Context, id int) error
	CreateResponse(ctx context.Context, resp *models.Response) error
	GetResponseByID(ctx context.Context, id int) (*models.Response, error)
	ListResponsesByAd(ctx context.Context, adID int) ([]models.Response, error)
	ListResponsesToAuthor(ctx context.Context, authorID int, accepted *bool, search string) ([]models.Response, error)
	ListResponsesByUser(ctx context.Context, userID int, search string) ([]models.Response, error)
	AcceptResponse(ctx context.Context, id int) (bool, error)
	DeleteResponse(ctx context.Context, id int) error
}

// BoardUserStore resolves users for notification mail and newsletter
// fan-out.
type BoardUserStore interface {
	GetUserByID(ctx context.Context, userID int) (*models.User, error)
	ListNewsletterRecipients(ctx context.Context) ([]models.User, error)
}

// ==============================================
// BOARD SERVICE
// ==============================================

// BoardService covers ads, responses and the newsletter.
type BoardService struct {
	board BoardStore
	users BoardUserStore
	email *EmailService
}

func NewBoardService(board BoardStore, users BoardUserStore, email *EmailService) *BoardService {
	return &BoardService{
		board: board,
		users: users,
		email: email,
	}
}

// ==============================================
// AD LISTING
// ==============================================

const (
	defaultPerPage = 10
	maxPerPage     = 50
)

// AdPage is one page of the ad list.
type AdPage struct {
	Ads        []models.Ad
	Total      int
	Page       int
	PerPage    int
	TotalPages int
	CategoryID int
}

// ListAds returns one page of active ads, newest first, optionally
// filtered to a category (0 means all).
func (s *BoardService) ListAds(ctx context.Context, categoryID, page, perPage int) (*AdPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	total, err := s.board.CountAds(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	ads, err := s.board.ListAds(ctx, categoryID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, err
	}

	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}

	return &AdPage{
		Ads:        ads,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		CategoryID: categoryID,
	}, nil
}

// Categories lists all categories for filter and form selects.
func (s *BoardService) Categories(ctx context.Context) ([]models.Category, error) {
	return s.board.ListCategories(ctx)
}

// AdDetail is an ad with its responses.
type AdDetail struct {
	Ad        *models.Ad
	Responses []models.Response
}

// GetAd returns an ad with its responses.
func (s *BoardService) GetAd(ctx context.Context, id int) (*AdDetail, error) {
	ad, err := s.board.GetAdByID(ctx, id)
	if err != nil {
		return nil, err
	}

	responses, err := s.board.ListResponsesByAd(ctx, id)
	if err != nil {
		return nil, err
	}

	return &AdDetail{Ad: ad, Responses: responses}, nil
}

// ==============================================
// AD MUTATIONS
// ==============================================

// AdForm is the create/edit ad submission.
type AdForm struct {
	Title      string
	Content    string
	CategoryID int
	IsActive   bool
}

// CreateAd publishes a new ad and mails the author a confirmation
// (best effort).
func (s *BoardService) CreateAd(ctx context.Context, author *models.User, form AdForm) (*models.Ad, error) {
	title := strings.TrimSpace(form.Title)
	content := strings.TrimSpace(form.Content)
	if title == "" || content == "" {
		return nil, models.ErrMissingFields
	}

	category, err := s.board.GetCategory(ctx, form.CategoryID)
	if err != nil {
		return nil, err
	}

	ad := &models.Ad{
		Title:          title,
		Content:        content,
		AuthorID:       author.ID,
		CategoryID:     category.ID,
		IsActive:       true,
		AuthorUsername: author.Username,
		CategoryName:   category.Name,
	}

	if err := s.board.CreateAd(ctx, ad); err != nil {
		return nil, err
	}

	if err := s.email.SendAdCreated(ad, author); err != nil {
		log.Printf("ad-created email to %s failed: %v", author.Email, err)
	}

	return ad, nil
}

// UpdateAd saves an edit. Only the ad owner may edit.
func (s *BoardService) UpdateAd(ctx context.Context, userID, adID int, form AdForm) error {
	ad, err := s.board.GetAdByID(ctx, adID)
	if err != nil {
		return err
	}
	if ad.AuthorID != userID {
		return models.ErrNotAdOwner
	}

	title := strings.TrimSpace(form.Title)
	content := strings.TrimSpace(form.Content)
	if title == "" || content == "" {
		return models.ErrMissingFields
	}

	if _, err := s.board.GetCategory(ctx, form.CategoryID); err != nil {
		return err
	}

	ad.Title = title
	ad.Content = content
	ad.CategoryID = form.CategoryID
	ad.IsActive = form.IsActive

	return s.board.UpdateAd(ctx, ad)
}

// DeleteAd removes an ad. Only the ad owner may delete.
func (s *BoardService) DeleteAd(ctx context.Context, userID, adID int) error {
	ad, err := s.board.GetAdByID(ctx, adID)
	if err != nil {
		return err
	}
	if ad.AuthorID != userID {
		return models.ErrNotAdOwner
	}

	return s.board.DeleteAd(ctx, adID)
}

// ==============================================
// RESPONSES
// ==============================================

// Respond creates a response to an ad and notifies the ad author
// (best effort). A second response from the same user to the same ad
// is rejected by the store's unique constraint.
func (s *BoardService) Respond(ctx context.Context, from *models.User, adID int, text string) (*models.Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.ErrMissingFields
	}

	ad, err := s.board.GetAdByID(ctx, adID)
	if err != nil {
		return nil, err
	}

	resp := &models.Response{
		Text:         text,
		FromUserID:   from.ID,
		AdID:         ad.ID,
		FromUsername: from.Username,
		FromEmail:    from.Email,
		AdTitle:      ad.Title,
		AdAuthorID:   ad.AuthorID,
	}

	if err := s.board.CreateResponse(ctx, resp); err != nil {
		return nil, err
	}

	author, err := s.users.GetUserByID(ctx, ad.AuthorID)
	if err != nil {
		log.Printf("could not resolve ad author %d for notification: %v", ad.AuthorID, err)
		return resp, nil
	}
	if err := s.email.SendNewResponse(ad, resp, author); err != nil {
		log.Printf("new-response email to %s failed: %v", author.Email, err)
	}

	return resp, nil
}

// MyResponses lists responses for the personal responses page,
// according to the selected filter.
func (s *BoardService) MyResponses(ctx context.Context, userID int, filter, search string) ([]models.Response, error) {
	search = strings.TrimSpace(search)

	switch filter {
	case models.ResponseFilterMine:
		return s.board.ListResponsesByUser(ctx, userID, search)
	case models.ResponseFilterAccepted:
		accepted := true
		return s.board.ListResponsesToAuthor(ctx, userID, &accepted, search)
	case models.ResponseFilterPending:
		accepted := false
		return s.board.ListResponsesToAuthor(ctx, userID, &accepted, search)
	default:
		return s.board.ListResponsesToAuthor(ctx, userID, nil, search)
	}
}

// AcceptResponse marks a response accepted and, on the first accept,
// mails the responder (best effort). Accepting twice is a no-op.
// Only the owner of the responded-to ad may accept.
func (s *BoardService) AcceptResponse(ctx context.Context, userID, responseID int) error {
	resp, err := s.board.GetResponseByID(ctx, responseID)
	if err != nil {
		return err
	}
	if resp.AdAuthorID != userID {
		return models.ErrNotAdOwner
	}

	changed, err := s.board.AcceptResponse(ctx, responseID)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	resp.IsAccepted = true

	author, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		log.Printf("could not resolve ad author %d for notification: %v", userID, err)
		return nil
	}
	if err := s.email.SendResponseAccepted(resp, author); err != nil {
		log.Printf("response-accepted email to %s failed: %v", resp.FromEmail, err)
	}

	return nil
}

// DeleteResponse removes a response. Only the owner of the
// responded-to ad may delete it.
func (s *BoardService) DeleteResponse(ctx context.Context, userID, responseID int) error {
	resp, err := s.board.GetResponseByID(ctx, responseID)
	if err != nil {
		return err
	}
	if resp.AdAuthorID != userID {
		return models.ErrNotAdOwner
	}

	return s.board.DeleteResponse(ctx, responseID)
}

// ==============================================
// NEWSLETTER
// ==============================================

// SendNewsletter mails subject/body to every active, opted-in user and
// returns the number of messages sent. Staff only.
func (s *BoardService) SendNewsletter(ctx context.Context, sender *models.User, subject, body string) (int, error) {
	if !sender.IsStaff {
		return 0, models.ErrNotStaff
	}

	subject = strings.TrimSpace(subject)
	if subject == "" || strings.TrimSpace(body) == "" {
		return 0, models.ErrMissingFields
	}

	recipients, err := s.users.ListNewsletterRecipients(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list recipients: %w", err)
	}

	return s.email.SendNewsletter(subject, body, recipients), nil
}
