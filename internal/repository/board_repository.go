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
// BOARD REPOSITORY
// ==============================================

// BoardRepository covers categories, ads and responses.
type BoardRepository struct {
	db *pgxpool.Pool
}

func NewBoardRepository(db *pgxpool.Pool) *BoardRepository {
	return &BoardRepository{db: db}
}

// ==============================================
// CATEGORIES
// ==============================================

func (r *BoardRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *BoardRepository) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	var c models.Category
	err := r.db.QueryRow(ctx, `SELECT id, name FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// ==============================================
// ADS
// ==============================================

const adColumns = `a.id, a.title, a.content, a.author_id, a.category_id,
	a.is_active, a.created_at, a.updated_at, u.username, c.name`

func scanAd(row pgx.Row) (*models.Ad, error) {
	var ad models.Ad
	err := row.Scan(
		&ad.ID,
		&ad.Title,
		&ad.Content,
		&ad.AuthorID,
		&ad.CategoryID,
		&ad.IsActive,
		&ad.CreatedAt,
		&ad.UpdatedAt,
		&ad.AuthorUsername,
		&ad.CategoryName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrAdNotFound
		}
		return nil, fmt.Errorf("failed to get ad: %w", err)
	}
	return &ad, nil
}

// CreateAd inserts an ad.
func (r *BoardRepository) CreateAd(ctx context.Context, ad *models.Ad) error {
	query := `
		INSERT INTO ads (title, content, author_id, category_id, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		ad.Title,
		ad.Content,
		ad.AuthorID,
		ad.CategoryID,
		ad.IsActive,
	).Scan(&ad.ID, &ad.CreatedAt, &ad.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ad: %w", err)
	}

	return nil
}

// GetAdByID retrieves an ad with its author and category names joined.
func (r *BoardRepository) GetAdByID(ctx context.Context, id int) (*models.Ad, error) {
	query := `
		SELECT ` + adColumns + `
		FROM ads a
		JOIN users u ON u.id = a.author_id
		JOIN categories c ON c.id = a.category_id
		WHERE a.id = $1
	`
	return scanAd(r.db.QueryRow(ctx, query, id))
}

// ListAds returns active ads, newest first. categoryID 0 means all
// categories.
func (r *BoardRepository) ListAds(ctx context.Context, categoryID, limit, offset int) ([]models.Ad, error) {
	query := `
		SELECT ` + adColumns + `
		FROM ads a
		JOIN users u ON u.id = a.author_id
		JOIN categories c ON c.id = a.category_id
		WHERE a.is_active = TRUE AND ($1 = 0 OR a.category_id = $1)
		ORDER BY a.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, categoryID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list ads: %w", err)
	}
	defer rows.Close()

	return collectAds(rows)
}

// CountAds returns the number of active ads, optionally per category.
func (r *BoardRepository) CountAds(ctx context.Context, categoryID int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM ads WHERE is_active = TRUE AND ($1 = 0 OR category_id = $1)`,
		categoryID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ads: %w", err)
	}
	return count, nil
}

// ListAdsByAuthor returns an author's ads, newest first. activeOnly
// filters to published ads (public profile view).
func (r *BoardRepository) ListAdsByAuthor(ctx context.Context, authorID int, activeOnly bool, limit int) ([]models.Ad, error) {
	query := `
		SELECT ` + adColumns + `
		FROM ads a
		JOIN users u ON u.id = a.author_id
		JOIN categories c ON c.id = a.category_id
		WHERE a.author_id = $1 AND (NOT $2 OR a.is_active = TRUE)
		ORDER BY a.created_at DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, authorID, activeOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ads by author: %w", err)
	}
	defer rows.Close()

	return collectAds(rows)
}

// CountAdsByAuthor counts all ads by an author.
func (r *BoardRepository) CountAdsByAuthor(ctx context.Context, authorID int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ads WHERE author_id = $1`, authorID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ads by author: %w", err)
	}
	return count, nil
}

// UpdateAd saves the editable ad fields.
func (r *BoardRepository) UpdateAd(ctx context.Context, ad *models.Ad) error {
	query := `
		UPDATE ads
		SET title = $1, content = $2, category_id = $3, is_active = $4, updated_at = now()
		WHERE id = $5
	`

	_, err := r.db.Exec(ctx, query, ad.Title, ad.Content, ad.CategoryID, ad.IsActive, ad.ID)
	if err != nil {
		return fmt.Errorf("failed to update ad: %w", err)
	}

	return nil
}

// DeleteAd removes an ad and, via cascade, its responses.
func (r *BoardRepository) DeleteAd(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM ads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ad: %w", err)
	}
	return nil
}

func collectAds(rows pgx.Rows) ([]models.Ad, error) {
	var ads []models.Ad
	for rows.Next() {
		var ad models.Ad
		if err := rows.Scan(
			&ad.ID,
			&ad.Title,
			&ad.Content,
			&ad.AuthorID,
			&ad.CategoryID,
			&ad.IsActive,
			&ad.CreatedAt,
			&ad.UpdatedAt,
			&ad.AuthorUsername,
			&ad.CategoryName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ad: %w", err)
		}
		ads = append(ads, ad)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ads: %w", err)
	}

	return ads, nil
}

// ==============================================
// RESPONSES
// ==============================================

const responseColumns = `r.id, r.text, r.from_user_id, r.ad_id, r.is_accepted,
	r.created_at, u.username, u.email, a.title, a.author_id`

// CreateResponse inserts a response. The unique constraint rejects a
// second response from the same user to the same ad.
func (r *BoardRepository) CreateResponse(ctx context.Context, resp *models.Response) error {
	query := `
		INSERT INTO responses (text, from_user_id, ad_id)
		VALUES ($1, $2, $3)
		RETURNING id, is_accepted, created_at
	`

	err := r.db.QueryRow(ctx, query, resp.Text, resp.FromUserID, resp.AdID).
		Scan(&resp.ID, &resp.IsAccepted, &resp.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrDuplicateResponse
		}
		return fmt.Errorf("failed to create response: %w", err)
	}

	return nil
}

// GetResponseByID retrieves a response with its responder and ad joined.
func (r *BoardRepository) GetResponseByID(ctx context.Context, id int) (*models.Response, error) {
	query := `
		SELECT ` + responseColumns + `
		FROM responses r
		JOIN users u ON u.id = r.from_user_id
		JOIN ads a ON a.id = r.ad_id
		WHERE r.id = $1
	`

	var resp models.Response
	err := r.db.QueryRow(ctx, query, id).Scan(
		&resp.ID,
		&resp.Text,
		&resp.FromUserID,
		&resp.AdID,
		&resp.IsAccepted,
		&resp.CreatedAt,
		&resp.FromUsername,
		&resp.FromEmail,
		&resp.AdTitle,
		&resp.AdAuthorID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrResponseNotFound
		}
		return nil, fmt.Errorf("failed to get response: %w", err)
	}

	return &resp, nil
}

// ListResponsesByAd returns all responses to an ad, oldest first.
func (r *BoardRepository) ListResponsesByAd(ctx context.Context, adID int) ([]models.Response, error) {
	query := `
		SELECT ` + responseColumns + `
		FROM responses r
		JOIN users u ON u.id = r.from_user_id
		JOIN ads a ON a.id = r.ad_id
		WHERE r.ad_id = $1
		ORDER BY r.created_at
	`

	rows, err := r.db.Query(ctx, query, adID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses by ad: %w", err)
	}
	defer rows.Close()

	return collectResponses(rows)
}

// ListResponsesToAuthor returns responses to the given author's ads,
// newest first. accepted filters by acceptance state when non-nil;
// search matches response text or ad title.
func (r *BoardRepository) ListResponsesToAuthor(ctx context.Context, authorID int, accepted *bool, search string) ([]models.Response, error) {
	query := `
		SELECT ` + responseColumns + `
		FROM responses r
		JOIN users u ON u.id = r.from_user_id
		JOIN ads a ON a.id = r.ad_id
		WHERE a.author_id = $1
		  AND ($2::boolean IS NULL OR r.is_accepted = $2)
		  AND ($3 = '' OR r.text ILIKE '%' || $3 || '%' OR a.title ILIKE '%' || $3 || '%')
		ORDER BY r.created_at DESC
	`

	rows, err := r.db.Query(ctx, query, authorID, accepted, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses to author: %w", err)
	}
	defer rows.Close()

	return collectResponses(rows)
}

// ListResponsesByUser returns responses the user sent, newest first.
func (r *BoardRepository) ListResponsesByUser(ctx context.Context, userID int, search string) ([]models.Response, error) {
	query := `
		SELECT ` + responseColumns + `
		FROM responses r
		JOIN users u ON u.id = r.from_user_id
		JOIN ads a ON a.id = r.ad_id
		WHERE r.from_user_id = $1
		  AND ($2 = '' OR r.text ILIKE '%' || $2 || '%' OR a.title ILIKE '%' || $2 || '%')
		ORDER BY r.created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses by user: %w", err)
	}
	defer rows.Close()

	return collectResponses(rows)
}

// CountResponsesByUser counts responses the user sent.
func (r *BoardRepository) CountResponsesByUser(ctx context.Context, userID int) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM responses WHERE from_user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count responses by user: %w", err)
	}
	return count, nil
}

// AcceptResponse marks a response accepted. Returns true only on the
// pending-to-accepted transition, so the caller can notify once.
func (r *BoardRepository) AcceptResponse(ctx context.Context, id int) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE responses SET is_accepted = TRUE WHERE id = $1 AND is_accepted = FALSE`, id)
	if err != nil {
		return false, fmt.Errorf("failed to accept response: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteResponse removes a response.
func (r *BoardRepository) DeleteResponse(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM responses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete response: %w", err)
	}
	return nil
}

func collectResponses(rows pgx.Rows) ([]models.Response, error) {
	var responses []models.Response
	for rows.Next() {
		var resp models.Response
		if err := rows.Scan(
			&resp.ID,
			&resp.Text,
			&resp.FromUserID,
			&resp.AdID,
			&resp.IsAccepted,
			&resp.CreatedAt,
			&resp.FromUsername,
			&resp.FromEmail,
			&resp.AdTitle,
			&resp.AdAuthorID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, resp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating responses: %w", err)
	}

	return responses, nil
}
