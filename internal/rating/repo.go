package rating

import (
	"context"
	"database/sql"

	myErr "vape-market/internal/types/errors"

	"go.uber.org/zap"
)

type RatingDBRepository struct {
	DB     *sql.DB
	Logger *zap.SugaredLogger
}

func NewRatingDBRepository(db *sql.DB, logger *zap.SugaredLogger) *RatingDBRepository {
	return &RatingDBRepository{
		DB:     db,
		Logger: logger,
	}
}

func (rr *RatingDBRepository) GetAll(ctx context.Context) (Ratings, error) {
	query :=
		`
		SELECT seller_id, rater_id, rating
		FROM seller_ratings
		`

	rows, err := rr.DB.QueryContext(ctx, query)
	if err != nil {
		rr.Logger.Error("Failed to get ratings from DB", zap.Error(err))

		return nil, myErr.ErrDBInternal
	}
	defer rows.Close()

	ratings := make(Ratings)
	for rows.Next() {
		var (
			sellerID string
			raterID  string
			value    int
		)
		if err := rows.Scan(&sellerID, &raterID, &value); err != nil {
			rr.Logger.Error("Failed to scan rating row from DB", zap.Error(err))

			return nil, myErr.ErrDBInternal
		}

		ratings.Set(sellerID, raterID, value)
	}

	if err := rows.Err(); err != nil {
		rr.Logger.Error("Error occurred while iterating over rating rows", zap.Error(err))

		return nil, myErr.ErrDBInternal
	}

	return ratings, nil
}

func (rr *RatingDBRepository) Set(ctx context.Context, sellerID, raterID string, value int) error {
	query :=
		`
		INSERT INTO seller_ratings (seller_id, rater_id, rating)
		VALUES ($1, $2, $3)
		ON CONFLICT (seller_id, rater_id)
		DO UPDATE SET rating = EXCLUDED.rating
		`

	_, err := rr.DB.ExecContext(ctx, query, sellerID, raterID, value)
	if err != nil {
		rr.Logger.Error(
			"Failed to save rating",
			zap.Error(err),
			zap.String("sellerID", sellerID),
			zap.String("raterID", raterID),
		)

		return myErr.ErrDBInternal
	}

	return nil
}
