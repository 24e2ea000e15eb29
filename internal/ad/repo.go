package ad

import (
	"context"
	"database/sql"
	"errors"
	"time"

	myErr "vape-market/internal/types/errors"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const adColumns = `id, seller_id, seller_name, title, description, price, category, created_at, likes, dislikes, photo_urls, photos`

// AdDBRepository - окно объявлений в Postgres. Порядок вставки хранится в seq.
type AdDBRepository struct {
	DB       *sql.DB
	Logger   *zap.SugaredLogger
	capacity int
	now      func() time.Time
}

func NewAdDBRepository(db *sql.DB, capacity int, l *zap.SugaredLogger) *AdDBRepository {
	return &AdDBRepository{
		DB:       db,
		Logger:   l,
		capacity: capacity,
		now:      time.Now,
	}
}

func (ar *AdDBRepository) ListAll(ctx context.Context) ([]Ad, error) {
	query := `SELECT ` + adColumns + ` FROM ads ORDER BY seq DESC`

	rows, err := ar.DB.QueryContext(ctx, query)
	if err != nil {
		ar.Logger.Errorf("Error listing ads: %v", err)
		return nil, myErr.ErrDBInternal
	}
	defer rows.Close()

	return ar.scanAds(rows)
}

func (ar *AdDBRepository) ListByUser(ctx context.Context, sellerID string) ([]Ad, error) {
	query := `SELECT ` + adColumns + ` FROM ads WHERE seller_id = $1 ORDER BY seq DESC`

	rows, err := ar.DB.QueryContext(ctx, query, sellerID)
	if err != nil {
		ar.Logger.Errorw("Error listing ads of seller", zap.Error(err), zap.String("sellerID", sellerID))
		return nil, myErr.ErrDBInternal
	}
	defer rows.Close()

	return ar.scanAds(rows)
}

func (ar *AdDBRepository) Insert(ctx context.Context, a Ad) (*Ad, int, error) {
	ApplyDefaults(&a, ar.now())

	tx, err := ar.DB.BeginTx(ctx, nil)
	if err != nil {
		ar.Logger.Errorf("Error starting insert transaction: %v", err)
		return nil, 0, myErr.ErrDBInternal
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err = tx.ExecContext(ctx, `DELETE FROM ads WHERE id = $1`, a.ID); err != nil {
		ar.Logger.Errorw("Error replacing ad", zap.Error(err), zap.String("adID", a.ID))
		return nil, 0, myErr.ErrDBInternal
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO ads (`+adColumns+`)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		a.ID,
		a.SellerID,
		a.SellerName,
		a.Title,
		a.Description,
		a.Price,
		a.Category,
		a.CreatedAt,
		a.Likes,
		a.Dislikes,
		pq.Array(a.PhotoURLs),
		a.Photos,
	)
	if err != nil {
		ar.Logger.Errorw("Error inserting ad", zap.Error(err), zap.String("adID", a.ID))
		return nil, 0, myErr.ErrDBInternal
	}

	if ar.capacity > 0 {
		_, err = tx.ExecContext(ctx, `
		DELETE FROM ads
		WHERE seq NOT IN (SELECT seq FROM ads ORDER BY seq DESC LIMIT $1)
		`, ar.capacity)
		if err != nil {
			ar.Logger.Errorf("Error trimming ads window: %v", err)
			return nil, 0, myErr.ErrDBInternal
		}
	}

	total, err := countAds(ctx, tx)
	if err != nil {
		ar.Logger.Errorf("Error counting ads: %v", err)
		return nil, 0, myErr.ErrDBInternal
	}

	if err = tx.Commit(); err != nil {
		ar.Logger.Errorf("Error committing ad insert: %v", err)
		return nil, 0, myErr.ErrDBInternal
	}

	return &a, total, nil
}

func (ar *AdDBRepository) Remove(ctx context.Context, adID, requesterID string) (*Ad, int, error) {
	tx, err := ar.DB.BeginTx(ctx, nil)
	if err != nil {
		ar.Logger.Errorf("Error starting delete transaction: %v", err)
		return nil, 0, myErr.ErrDBInternal
	}
	defer tx.Rollback() // nolint:errcheck

	row := tx.QueryRowContext(ctx, `
	DELETE FROM ads
	WHERE id = $1 AND seller_id = $2
	RETURNING `+adColumns,
		adID,
		requesterID,
	)

	deleted, err := scanAd(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, myErr.ErrAdNotFoundOrForbidden
		}
		ar.Logger.Errorw("Error deleting ad", zap.Error(err), zap.String("adID", adID))
		return nil, 0, myErr.ErrDBInternal
	}

	total, err := countAds(ctx, tx)
	if err != nil {
		ar.Logger.Errorf("Error counting ads: %v", err)
		return nil, 0, myErr.ErrDBInternal
	}

	if err = tx.Commit(); err != nil {
		ar.Logger.Errorf("Error committing ad delete: %v", err)
		return nil, 0, myErr.ErrDBInternal
	}

	return deleted, total, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAd(row rowScanner) (*Ad, error) {
	var a Ad
	err := row.Scan(
		&a.ID,
		&a.SellerID,
		&a.SellerName,
		&a.Title,
		&a.Description,
		&a.Price,
		&a.Category,
		&a.CreatedAt,
		&a.Likes,
		&a.Dislikes,
		pq.Array(&a.PhotoURLs),
		&a.Photos,
	)
	if err != nil {
		return nil, err
	}
	if a.PhotoURLs == nil {
		a.PhotoURLs = []string{}
	}

	return &a, nil
}

func (ar *AdDBRepository) scanAds(rows *sql.Rows) ([]Ad, error) {
	ads := []Ad{}
	for rows.Next() {
		a, err := scanAd(rows)
		if err != nil {
			ar.Logger.Errorf("Error scanning ad row: %v", err)
			return nil, myErr.ErrDBInternal
		}
		ads = append(ads, *a)
	}

	if err := rows.Err(); err != nil {
		ar.Logger.Errorf("Error iterating ad rows: %v", err)
		return nil, myErr.ErrDBInternal
	}

	return ads, nil
}

func countAds(ctx context.Context, tx *sql.Tx) (int, error) {
	var total int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM ads`).Scan(&total)

	return total, err
}
