package rating

import (
	"context"
	"errors"
	"regexp"
	"testing"

	myErr "vape-market/internal/types/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestMemoryRepository_SetOverwrites(t *testing.T) {
	repo := NewMemoryRepository(zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	assert.NoError(t, repo.Set(ctx, "u1", "u2", 3))
	assert.NoError(t, repo.Set(ctx, "u1", "u2", 5))
	assert.NoError(t, repo.Set(ctx, "u1", "u3", 1))

	ratings, err := repo.GetAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, ratings["u1"], 2)
	assert.Equal(t, 5, ratings["u1"]["u2"])
	assert.Equal(t, 1, ratings["u1"]["u3"])
}

func TestMemoryRepository_GetAllReturnsCopy(t *testing.T) {
	repo := NewMemoryRepository(zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	_ = repo.Set(ctx, "u1", "u2", 4)

	ratings, _ := repo.GetAll(ctx)
	ratings["u1"]["u2"] = 1
	ratings["u9"] = map[string]int{"x": 1}

	again, _ := repo.GetAll(ctx)
	assert.Equal(t, 4, again["u1"]["u2"])
	assert.NotContains(t, again, "u9")
}

func setupDBRepo(t *testing.T) (*RatingDBRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}

	return NewRatingDBRepository(db, zaptest.NewLogger(t).Sugar()), mock, func() { db.Close() }
}

func TestRatingDBRepository_GetAll(t *testing.T) {
	tests := []struct {
		name     string
		mockFunc func(mock sqlmock.Sqlmock)
		want     Ratings
		wantErr  error
	}{
		{
			name: "success",
			mockFunc: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"seller_id", "rater_id", "rating"}).
					AddRow("u1", "u2", 5).
					AddRow("u1", "u3", 2).
					AddRow("u4", "u2", 4)
				mock.ExpectQuery(regexp.QuoteMeta("SELECT seller_id, rater_id, rating FROM seller_ratings")).
					WillReturnRows(rows)
			},
			want: Ratings{
				"u1": {"u2": 5, "u3": 2},
				"u4": {"u2": 4},
			},
		},
		{
			name: "db error",
			mockFunc: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT seller_id, rater_id, rating FROM seller_ratings")).
					WillReturnError(errors.New("db error"))
			},
			wantErr: myErr.ErrDBInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, teardown := setupDBRepo(t)
			defer teardown()

			tt.mockFunc(mock)

			got, err := repo.GetAll(context.Background())
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRatingDBRepository_Set(t *testing.T) {
	tests := []struct {
		name     string
		mockFunc func(mock sqlmock.Sqlmock)
		wantErr  error
	}{
		{
			name: "success",
			mockFunc: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (seller_id, rater_id) DO UPDATE SET rating = EXCLUDED.rating")).
					WithArgs("u1", "u2", 5).
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
		},
		{
			name: "db error",
			mockFunc: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO seller_ratings").
					WillReturnError(errors.New("db error"))
			},
			wantErr: myErr.ErrDBInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, teardown := setupDBRepo(t)
			defer teardown()

			tt.mockFunc(mock)

			err := repo.Set(context.Background(), "u1", "u2", 5)
			assert.Equal(t, tt.wantErr, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
