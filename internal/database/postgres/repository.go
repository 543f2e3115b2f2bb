package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ilyakochetov/shortener/internal/database"
	"github.com/ilyakochetov/shortener/internal/models"
)

type urlRecord struct {
	ID          int64        `db:"id"`
	OriginalURL string       `db:"original_url"`
	ShortCode   string       `db:"short_code"`
	ClickCount  int64        `db:"click_count"`
	CreatedAt   time.Time    `db:"created_at"`
	ExpiresAt   sql.NullTime `db:"expires_at"`
}

func (r *urlRecord) ToURL() *models.URL {
	url := &models.URL{
		ID:          r.ID,
		OriginalURL: r.OriginalURL,
		ShortCode:   r.ShortCode,
		ClickCount:  r.ClickCount,
		CreatedAt:   r.CreatedAt,
	}

	if r.ExpiresAt.Valid {
		expiresAt := r.ExpiresAt.Time
		url.ExpiresAt = &expiresAt
	}

	return url
}

type urlStatsRecord struct {
	urlRecord
	TotalClicks int64 `db:"total_clicks"`
}

func (r *urlStatsRecord) ToURLStats() *models.URLStats {
	return &models.URLStats{
		URL:         *r.ToURL(),
		TotalClicks: r.TotalClicks,
	}
}

// URLRepository executes parameterized queries against the urls and clicks
// tables. It is the only component that talks to the durable store.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{
		db: db,
	}
}

func (r *URLRepository) Create(ctx context.Context, shortCode, originalURL string, expiresAt *time.Time) (*models.URL, error) {
	const op = "database.postgres.URLRepository.Create"

	rec := new(urlRecord)
	query := `INSERT INTO urls(short_code, original_url, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, original_url, short_code, click_count, created_at, expires_at`

	err := r.db.GetContext(ctx, rec, query, shortCode, originalURL, expiresAt)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to create url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByShortCode"

	rec := new(urlRecord)
	query := `SELECT id, original_url, short_code, click_count, created_at, expires_at
		FROM urls
		WHERE short_code = $1`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error) {
	const op = "database.postgres.URLRepository.GetByOriginalURL"

	rec := new(urlRecord)
	query := `SELECT id, original_url, short_code, click_count, created_at, expires_at
		FROM urls
		WHERE original_url = $1
		LIMIT 1`

	err := r.db.GetContext(ctx, rec, query, originalURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url record: %w", op, err)
	}

	return rec.ToURL(), nil
}

func (r *URLRepository) CodeExists(ctx context.Context, shortCode string) (bool, error) {
	const op = "database.postgres.URLRepository.CodeExists"

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM urls WHERE short_code = $1)`

	err := r.db.GetContext(ctx, &exists, query, shortCode)
	if err != nil {
		return false, fmt.Errorf("%s: failed to check short code existence: %w", op, err)
	}

	return exists, nil
}

func (r *URLRepository) GetStats(ctx context.Context, shortCode string) (*models.URLStats, error) {
	const op = "database.postgres.URLRepository.GetStats"

	rec := new(urlStatsRecord)
	query := `SELECT u.id, u.original_url, u.short_code, u.click_count, u.created_at, u.expires_at,
			COUNT(c.id) AS total_clicks
		FROM urls u
		LEFT JOIN clicks c ON c.url_id = u.id
		WHERE u.short_code = $1
		GROUP BY u.id`

	err := r.db.GetContext(ctx, rec, query, shortCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	return rec.ToURLStats(), nil
}

// InsertClick appends a click event row, resolving the url id from the short
// code in a single statement. Empty metadata fields are stored as NULL.
func (r *URLRepository) InsertClick(ctx context.Context, shortCode string, meta models.ClickMeta) error {
	const op = "database.postgres.URLRepository.InsertClick"

	query := `INSERT INTO clicks(url_id, referrer, user_agent, ip_address)
		SELECT id, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, '')
		FROM urls
		WHERE short_code = $1`

	res, err := r.db.ExecContext(ctx, query, shortCode, meta.Referrer, meta.UserAgent, meta.IPAddress)
	if err != nil {
		return fmt.Errorf("%s: failed to insert click record: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return nil
}

// AddClicks folds a batch of volatile click counts into the durable total.
// The update is a single atomic statement.
func (r *URLRepository) AddClicks(ctx context.Context, shortCode string, delta int64) error {
	const op = "database.postgres.URLRepository.AddClicks"

	query := `UPDATE urls
		SET click_count = click_count + $1
		WHERE short_code = $2`

	res, err := r.db.ExecContext(ctx, query, delta, shortCode)
	if err != nil {
		return fmt.Errorf("%s: failed to update click count: %w", op, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get affected rows: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, database.ErrURLNotFound)
	}

	return nil
}
