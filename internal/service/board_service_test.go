package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mmoboard/board/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==============================================
// MOCK STORES
// ==============================================

type MockBoardStore struct {
	ListCategoriesFunc        func(ctx context.Context) ([]models.Category, error)
	GetCategoryFunc           func(ctx context.Context, id int) (*models.Category, error)
	CreateAdFunc              func(ctx context.Context, ad *models.Ad) error
	GetAdByIDFunc             func(ctx context.Context, id int) (*models.Ad, error)
	ListAdsFunc               func(ctx context.Context, categoryID, limit, offset int) ([]models.Ad, error)
	CountAdsFunc              func(ctx context.Context, categoryID int) (int, error)
	UpdateAdFunc              func(ctx context.Context, ad *models.Ad) error
	DeleteAdFunc              func(ctx context.Context, id int) error
	CreateResponseFunc        func(ctx context.Context, resp *models.Response) error
	GetResponseByIDFunc       func(ctx context.Context, id int) (*models.Response, error)
	ListResponsesByAdFunc     func(ctx context.Context, adID int) ([]models.Response, error)
	ListResponsesToAuthorFunc func(ctx context.Context, authorID int, accepted *bool, search string) ([]models.Response, error)
	ListResponsesByUserFunc   func(ctx context.Context, userID int, search string) ([]models.Response, error)
	AcceptResponseFunc        func(ctx context.Context, id int) (bool, error)
	DeleteResponseFunc        func(ctx context.Context, id int) error
}

func (m *MockBoardStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx)
	}
	return []models.Category{{ID: 1, Name: "Tanks"}}, nil
}

func (m *MockBoardStore) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	if m.GetCategoryFunc != nil {
		return m.GetCategoryFunc(ctx, id)
	}
	if id == 1 {
		return &models.Category{ID: 1, Name: "Tanks"}, nil
	}
	return nil, models.ErrCategoryNotFound
}

func (m *MockBoardStore) CreateAd(ctx context.Context, ad *models.Ad) error {
	if m.CreateAdFunc != nil {
		return m.CreateAdFunc(ctx, ad)
	}
	ad.ID = 101 // Simulate auto-increment
	return nil
}

func (m *MockBoardStore) GetAdByID(ctx context.Context, id int) (*models.Ad, error) {
	if m.GetAdByIDFunc != nil {
		return m.GetAdByIDFunc(ctx, id)
	}
	return nil, models.ErrAdNotFound
}

func (m *MockBoardStore) ListAds(ctx context.Context, categoryID, limit, offset int) ([]models.Ad, error) {
	if m.ListAdsFunc != nil {
		return m.ListAdsFunc(ctx, categoryID, limit, offset)
	}
	return nil, nil
}

func (m *MockBoardStore) CountAds(ctx context.Context, categoryID int) (int, error) {
	if m.CountAdsFunc != nil {
		return m.CountAdsFunc(ctx, categoryID)
	}
	return 0, nil
}

func (m *MockBoardStore) UpdateAd(ctx context.Context, ad *models.Ad) error {
	if m.UpdateAdFunc != nil {
		return m.UpdateAdFunc(ctx, ad)
	}
	return nil
}

func (m *MockBoardStore) DeleteAd(ctx context.Context, id int) error {
	if m.DeleteAdFunc != nil {
		return m.DeleteAdFunc(ctx, id)
	}
	return nil
}

func (m *MockBoardStore) CreateResponse(ctx context.Context, resp *models.Response) error {
	if m.CreateResponseFunc != nil {
		return m.CreateResponseFunc(ctx, resp)
	}
	resp.ID = 201
	return nil
}

func (m *MockBoardStore) GetResponseByID(ctx context.Context, id int) (*models.Response, error) {
	if m.GetResponseByIDFunc != nil {
		return m.GetResponseByIDFunc(ctx, id)
	}
	return nil, models.ErrResponseNotFound
}

func (m *MockBoardStore) ListResponsesByAd(ctx context.Context, adID int) ([]models.Response, error) {
	if m.ListResponsesByAdFunc != nil {
		return m.ListResponsesByAdFunc(ctx, adID)
	}
	return nil, nil
}

func (m *MockBoardStore) ListResponsesToAuthor(ctx context.Context, authorID int, accepted *bool, search string) ([]models.Response, error) {
	if m.ListResponsesToAuthorFunc != nil {
		return m.ListResponsesToAuthorFunc(ctx, authorID, accepted, search)
	}
	return nil, nil
}

func (m *MockBoardStore) ListResponsesByUser(ctx context.Context, userID int, search string) ([]models.Response, error) {
	if m.ListResponsesByUserFunc != nil {
		return m.ListResponsesByUserFunc(ctx, userID, search)
	}
	return nil, nil
}

func (m *MockBoardStore) AcceptResponse(ctx context.Context, id int) (bool, error) {
	if m.AcceptResponseFunc != nil {
		return m.AcceptResponseFunc(ctx, id)
	}
	return true, nil
}

func (m *MockBoardStore) DeleteResponse(ctx context.Context, id int) error {
	if m.DeleteResponseFunc != nil {
		return m.DeleteResponseFunc(ctx, id)
	}
	return nil
}

type MockBoardUserStore struct {
	GetUserByIDFunc              func(ctx context.Context, userID int) (*models.User, error)
	ListNewsletterRecipientsFunc func(ctx context.Context) ([]models.User, error)
}

func (m *MockBoardUserStore) GetUserByID(ctx context.Context, userID int) (*models.User, error) {
	if m.GetUserByIDFunc != nil {
		return m.GetUserByIDFunc(ctx, userID)
	}
	return &models.User{ID: userID, Username: "ironwall", Email: "tank@example.com"}, nil
}

func (m *MockBoardUserStore) ListNewsletterRecipients(ctx context.Context) ([]models.User, error) {
	if m.ListNewsletterRecipientsFunc != nil {
		return m.ListNewsletterRecipientsFunc(ctx)
	}
	return nil, nil
}

func newBoardService(board *MockBoardStore, users *MockBoardUserStore, mailer *MockMailer) *BoardService {
	return NewBoardService(board, users, NewEmailService(mailer, "http://board.test"))
}

// ==============================================
// LISTING TESTS
// ==============================================

func TestListAds_Paging(t *testing.T) {
	ctx := context.Background()

	var gotLimit, gotOffset int
	board := &MockBoardStore{
		CountAdsFunc: func(ctx context.Context, categoryID int) (int, error) { return 25, nil },
		ListAdsFunc: func(ctx context.Context, categoryID, limit, offset int) ([]models.Ad, error) {
			gotLimit, gotOffset = limit, offset
			return []models.Ad{{ID: 1}}, nil
		},
	}
	svc := newBoardService(board, &MockBoardUserStore{}, &MockMailer{})

	page, err := svc.ListAds(ctx, 0, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, gotLimit)
	assert.Equal(t, 20, gotOffset)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.TotalPages)

	// Out-of-range inputs are clamped, not rejected.
	page, err = svc.ListAds(ctx, 0, -1, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 50, page.PerPage)
	assert.Equal(t, 0, gotOffset)
}

func TestListAds_EmptyBoard(t *testing.T) {
	ctx := context.Background()
	svc := newBoardService(&MockBoardStore{}, &MockBoardUserStore{}, &MockMailer{})

	page, err := svc.ListAds(ctx, 0, 1, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalPages, "an empty board still has one page")
	assert.Empty(t, page.Ads)
}

// ==============================================
// AD MUTATION TESTS
// ==============================================

func TestCreateAd_Success(t *testing.T) {
	ctx := context.Background()
	mailer := &MockMailer{}
	svc := newBoardService(&MockBoardStore{}, &MockBoardUserStore{}, mailer)

	author := &models.User{ID: 7, Username: "ironwall", Email: "tank@example.com"}
	ad, err := svc.CreateAd(ctx, author, AdForm{
		Title:      "  WTS epic shield  ",
		Content:    "Barely used, +10 defense.",
		CategoryID: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, 101, ad.ID)
	assert.Equal(t, "WTS epic shield", ad.Title, "title is trimmed")
	assert.Equal(t, 7, ad.AuthorID)
	assert.True(t, ad.IsActive, "new ads start active")

	require.Len(t, mailer.Sent, 1)
	assert.Contains(t, mailer.Sent[0].Subject, "WTS epic shield")
	assert.Equal(t, []string{"tank@example.com"}, mailer.Sent[0].To)
	assert.Contains(t, mailer.Sent[0].Body, "http://board.test/ads/101/")
}

func TestCreateAd_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newBoardService(&MockBoardStore{}, &MockBoardUserStore{}, &MockMailer{})
	author := &models.User{ID: 7}

	_, err := svc.CreateAd(ctx, author, AdForm{Title: "   ", Content: "text", CategoryID: 1})
	assert.ErrorIs(t, err, models.ErrMissingFields)

	_, err = svc.CreateAd(ctx, author, AdForm{Title: "title", Content: "", CategoryID: 1})
	assert.ErrorIs(t, err, models.ErrMissingFields)

	_, err = svc.CreateAd(ctx, author, AdForm{Title: "title", Content: "text", CategoryID: 99})
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)
}

func TestCreateAd_MailFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	mailer := &MockMailer{
		SendFunc: func(subject, body string, to []string) error {
			return errors.New("smtp: connection refused")
		},
	}
	svc := newBoardService(&MockBoardStore{}, &MockBoardUserStore{}, mailer)

	ad, err := svc.CreateAd(ctx, &models.User{ID: 7}, AdForm{Title: "title", Content: "text", CategoryID: 1})

	require.NoError(t, err, "the ad is published either way")
	assert.NotNil(t, ad)
}

func TestUpdateAd_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	board := &MockBoardStore{
		GetAdByIDFunc: func(ctx context.Context, id int) (*models.Ad, error) {
			return &models.Ad{ID: id, AuthorID: 7, Title: "old", Content: "old"}, nil
		},
	}
	svc := newBoardService(board, &MockBoardUserStore{}, &MockMailer{})

	err := svc.UpdateAd(ctx, 8, 101, AdForm{Title: "new", Content: "new", CategoryID: 1})
	assert.ErrorIs(t, err, models.ErrNotAdOwner)

	var saved *models.Ad
	board.UpdateAdFunc = func(ctx context.Context, ad *models.Ad) error {
		saved = ad
		return nil
	}
	err = svc.UpdateAd(ctx, 7, 101, AdForm{Title: "new", Content: "new", CategoryID: 1, IsActive: false})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "new", saved.Title)
	assert.False(t, saved.IsActive, "the owner may deactivate the ad")
}

func TestDeleteAd_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	deleted := false
	board := &MockBoardStore{
		GetAdByIDFunc: func(ctx context.Context, id int) (*models.Ad, error) {
			return &models.Ad{ID: id, AuthorID: 7}, nil
		},
		DeleteAdFunc: func(ctx context.Context, id int) error {
			deleted = true
			return nil
		},
	}
	svc := newBoardService(board, &MockBoardUserStore{}, &MockMailer{})

	assert.ErrorIs(t, svc.DeleteAd(ctx, 8, 101), models.ErrNotAdOwner)
	assert.False(t, deleted)

	require.NoError(t, svc.DeleteAd(ctx, 7, 101))
	assert.True(t, deleted)
}

// ==============================================
// RESPONSE TESTS
// ==============================================

func TestRespond_NotifiesAuthor(t *testing.T) {
	ctx := context.Background()
	board := &MockBoardStore{
		GetAdByIDFunc: func(ctx context.Context, id int) (*models.Ad, error) {
			return &models.Ad{ID: id, AuthorID: 7, Title: "WTS epic shield"}, nil
		},
	}
	users := &MockBoardUserStore{
		GetUserByIDFunc: func(ctx context.Context, userID int) (*models.User, error) {
			return &models.User{ID: userID, Username: "ironwall", Email: "tank@example.com"}, nil
		},
	}
	mailer := &MockMailer{}
	svc := newBoardService(board, users, mailer)

	from := &models.User{ID: 8, Username: "lightbearer", Email: "healer@example.com"}
	resp, err := svc.Respond(ctx, from, 101, "  I'll take it!  ")

	require.NoError(t, err)
	assert.Equal(t, "I'll take it!", resp.Text, "text is trimmed")
	assert.Equal(t, 8, resp.FromUserID)
	assert.Equal(t, 7, resp.AdAuthorID)

	require.Len(t, mailer.Sent, 1)
	assert.Contains(t, mailer.Sent[0].Subject, "WTS epic shield")
	assert.Equal(t, []string{"tank@example.com"}, mailer.Sent[0].To)
	assert.Contains(t, mailer.Sent[0].Body, "lightbearer")
}

func TestRespond_EmptyText(t *testing.T) {
	ctx := context.Background()
	svc := newBoardService(&MockBoardStore{}, &MockBoardUserStore{}, &MockMailer{})

	_, err := svc.Respond(ctx, &models.User{ID: 8}, 101, "   ")

	assert.ErrorIs(t, err, models.ErrMissingFields)
}

func TestRespond_DuplicateRejected(t *testing.T) {
	ctx := context.Background()
	board := &MockBoardStore{
		GetAdByIDFunc: func(ctx context.Context, id int) (*models.Ad, error) {
			return &models.Ad{ID: id, AuthorID: 7}, nil
		},
		CreateResponseFunc: func(ctx context.Context, resp *models.Response) error {
			return models.ErrDuplicateResponse
		},
	}
	mailer := &MockMailer{}
	svc := newBoardService(board, &MockBoardUserStore{}, mailer)

	_, err := svc.Respond(ctx, &models.User{ID: 8}, 101, "again")

	assert.ErrorIs(t, err, models.ErrDuplicateResponse)
	assert.Empty(t, mailer.Sent, "no notification for a rejected response")
}

func TestRespond_NotificationFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	board := &MockBoardStore{
		GetAdByIDFunc: func(ctx context.Context, id int) (*models.Ad, error) {
			return &models.Ad{ID: id, AuthorID: 7}, nil
		},
	}
	mailer := &MockMailer{
		SendFunc: func(subject, body string, to []string) error {
			return errors.New("smtp: connection refused")
		},
	}
	svc := newBoardService(board, &MockBoardUserStore{}, mailer)

	resp, err := svc.Respond(ctx, &models.User{ID: 8}, 101, "hello")

	require.NoError(t, err)
	assert.NotNil(t, resp)
}

func TestMyResponses_FilterDispatch(t *testing.T) {
	ctx := context.Background()

	var gotAccepted *bool
	var mineCalled bool
	board := &MockBoardStore{
		ListResponsesToAuthorFunc: func(ctx context.Context, authorID int, accepted *bool, search string) ([]models.Response, error) {
			gotAccepted = accepted
			return nil, nil
		},
		ListResponsesByUserFunc: func(ctx context.Context, userID int, search string) ([]models.Response, error) {
			mineCalled = true
			return nil, nil
		},
	}
	svc := newBoardService(board, &MockBoardUserStore{}, &MockMailer{})

	_, err := svc.MyResponses(ctx, 7, models.ResponseFilterAll, "")
	require.NoError(t, err)
	assert.Nil(t, gotAccepted)

	_, err = svc.MyResponses(ctx, 7, models.ResponseFilterAccepted, "")
	require.NoError(t, err)
	require.NotNil(t, gotAccepted)
	assert.True(t, *gotAccepted)

	_, err = svc.MyResponses(ctx, 7, models.ResponseFilterPending, "")
	require.NoError(t, err)
	require.NotNil(t, gotAccepted)
	assert.False(t, *gotAccepted)

	_, err = svc.MyResponses(ctx, 7, models.ResponseFilterMine, "")
	require.NoError(t, err)
	assert.True(t, mineCalled)
}

func TestAcceptResponse_NotifiesOnFirstAcceptOnly(t *testing.T) {
	ctx := context.Background()

	accepted := false
	board := &MockBoardStore{
		GetResponseByIDFunc: func(ctx context.Context, id int) (*models.Response, error) {
			return &models.Response{
				ID:         id,
				AdAuthorID: 7,
				IsAccepted: accepted,
				FromEmail:  "healer@example.com",
				AdTitle:    "WTS epic shield",
			}, nil
		},
		AcceptResponseFunc: func(ctx context.Context, id int) (bool, error) {
			if accepted {
				return false, nil
			}
			accepted = true
			return true, nil
		},
	}
	mailer := &MockMailer{}
	svc := newBoardService(board, &MockBoardUserStore{}, mailer)

	require.NoError(t, svc.AcceptResponse(ctx, 7, 201))
	require.Len(t, mailer.Sent, 1)
	assert.Equal(t, []string{"healer@example.com"}, mailer.Sent[0].To)
	assert.Contains(t, mailer.Sent[0].Subject, "accepted")

	// Accepting again is a no-op and sends nothing.
	require.NoError(t, svc.AcceptResponse(ctx, 7, 201))
	assert.Len(t, mailer.Sent, 1)
}

func TestAcceptResponse_AdOwnerOnly(t *testing.T) {
	ctx := context.Background()
	board := &MockBoardStore{
		GetResponseByIDFunc: func(ctx context.Context, id int) (*models.Response, error) {
			return &models.Response{ID: id, AdAuthorID: 7}, nil
		},
	}
	mailer := &MockMailer{}
	svc := newBoardService(board, &MockBoardUserStore{}, mailer)

	err := svc.AcceptResponse(ctx, 8, 201)

	assert.ErrorIs(t, err, models.ErrNotAdOwner)
	assert.Empty(t, mailer.Sent)
}

func TestDeleteResponse_AdOwnerOnly(t *testing.T) {
	ctx := context.Background()
	deleted := false
	board := &MockBoardStore{
		GetResponseByIDFunc: func(ctx context.Context, id int) (*models.Response, error) {
			return &models.Response{ID: id, AdAuthorID: 7}, nil
		},
		DeleteResponseFunc: func(ctx context.Context, id int) error {
			deleted = true
			return nil
		},
	}
	svc := newBoardService(board, &MockBoardUserStore{}, &MockMailer{})

	assert.ErrorIs(t, svc.DeleteResponse(ctx, 8, 201), models.ErrNotAdOwner)
	assert.False(t, deleted)

	require.NoError(t, svc.DeleteResponse(ctx, 7, 201))
	assert.True(t, deleted)
}

// ==============================================
// NEWSLETTER TESTS
// ==============================================

func TestSendNewsletter_StaffOnly(t *testing.T) {
	ctx := context.Background()
	svc := newBoardService(&MockBoardStore{}, &MockBoardUserStore{}, &MockMailer{})

	_, err := svc.SendNewsletter(ctx, &models.User{ID: 7, IsStaff: false}, "News", "Body")

	assert.ErrorIs(t, err, models.ErrNotStaff)
}

func TestSendNewsletter_CountsDeliveries(t *testing.T) {
	ctx := context.Background()
	users := &MockBoardUserStore{
		ListNewsletterRecipientsFunc: func(ctx context.Context) ([]models.User, error) {
			return []models.User{
				{ID: 1, Email: "one@example.com"},
				{ID: 2, Email: "two@example.com"},
				{ID: 3, Email: "three@example.com"},
			}, nil
		},
	}
	mailer := &MockMailer{
		SendFunc: func(subject, body string, to []string) error {
			if to[0] == "two@example.com" {
				return errors.New("smtp: mailbox unavailable")
			}
			return nil
		},
	}
	svc := newBoardService(&MockBoardStore{}, users, mailer)

	sent, err := svc.SendNewsletter(ctx, &models.User{ID: 7, IsStaff: true}, "News", "Body")

	require.NoError(t, err, "per-recipient failures do not fail the batch")
	assert.Equal(t, 2, sent)
	assert.Len(t, mailer.Sent, 2)
}

func TestSendNewsletter_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newBoardService(&MockBoardStore{}, &MockBoardUserStore{}, &MockMailer{})
	staff := &models.User{ID: 7, IsStaff: true}

	_, err := svc.SendNewsletter(ctx, staff, "  ", "Body")
	assert.ErrorIs(t, err, models.ErrMissingFields)

	_, err = svc.SendNewsletter(ctx, staff, "News", "  ")
	assert.ErrorIs(t, err, models.ErrMissingFields)
}
