package ad

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	myErr "vape-market/internal/types/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

var adRowColumns = []string{
	"id", "seller_id", "seller_name", "title", "description", "price",
	"category", "created_at", "likes", "dislikes", "photo_urls", "photos",
}

func setupDBRepo(t *testing.T, capacity int) (*AdDBRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("ошибка при создании mock db: %s", err)
	}

	repo := NewAdDBRepository(db, capacity, zaptest.NewLogger(t).Sugar())

	return repo, mock, func() { db.Close() }
}

func TestAdDBRepository_ListAll(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name         string
		mockBehavior func(mock sqlmock.Sqlmock)
		wantLen      int
		wantErr      error
	}{
		{
			name: "успешный возврат",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(adRowColumns).
					AddRow("ad_2", "u1", "", "Pod kit", "", 10.0, "devices", created, 0, 0, "{a.jpg,b.jpg}", 2).
					AddRow("ad_1", "u2", "Bob", "Liquid", "mint", 5.5, "liquids", created, 1, 0, "{}", 0)
				mock.ExpectQuery(regexp.QuoteMeta("FROM ads ORDER BY seq DESC")).WillReturnRows(rows)
			},
			wantLen: 2,
		},
		{
			name: "ошибка БД",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("FROM ads ORDER BY seq DESC")).
					WillReturnError(errors.New("db failure"))
			},
			wantErr: myErr.ErrDBInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupDBRepo(t, 100)
			defer cleanup()

			tt.mockBehavior(mock)

			ads, err := repo.ListAll(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, ads, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, []string{"a.jpg", "b.jpg"}, ads[0].PhotoURLs)
				assert.Equal(t, "ad_1", ads[1].ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdDBRepository_ListByUser(t *testing.T) {
	repo, mock, cleanup := setupDBRepo(t, 100)
	defer cleanup()

	rows := sqlmock.NewRows(adRowColumns).
		AddRow("ad_1", "u1", "", "Pod kit", "", 10.0, "devices", time.Now(), 0, 0, "{}", 0)
	mock.ExpectQuery(regexp.QuoteMeta("FROM ads WHERE seller_id = $1 ORDER BY seq DESC")).
		WithArgs("u1").
		WillReturnRows(rows)

	ads, err := repo.ListByUser(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Len(t, ads, 1)
	assert.Equal(t, "u1", ads[0].SellerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdDBRepository_Insert(t *testing.T) {
	tests := []struct {
		name         string
		mockBehavior func(mock sqlmock.Sqlmock)
		wantTotal    int
		wantErr      error
	}{
		{
			name: "успешная вставка с обрезкой окна",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ads WHERE id = $1")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ads")).
					WithArgs(sqlmock.AnyArg(), "u1", "", "Pod kit", "", 10.0, "devices",
						sqlmock.AnyArg(), 0, 0, sqlmock.AnyArg(), 0).
					WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec(regexp.QuoteMeta("WHERE seq NOT IN (SELECT seq FROM ads ORDER BY seq DESC LIMIT $1)")).
					WithArgs(100).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ads")).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(100))
				mock.ExpectCommit()
			},
			wantTotal: 100,
		},
		{
			name: "ошибка вставки",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ads WHERE id = $1")).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ads")).
					WillReturnError(errors.New("insert failed"))
				mock.ExpectRollback()
			},
			wantErr: myErr.ErrDBInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupDBRepo(t, 100)
			defer cleanup()

			tt.mockBehavior(mock)

			stored, total, err := repo.Insert(context.Background(), validAd("u1", "Pod kit"))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantTotal, total)
			if tt.wantErr == nil {
				assert.Regexp(t, idPattern, stored.ID)
				assert.NotNil(t, stored.PhotoURLs)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdDBRepository_Remove(t *testing.T) {
	tests := []struct {
		name         string
		mockBehavior func(mock sqlmock.Sqlmock)
		wantErr      error
		wantTotal    int
	}{
		{
			name: "владелец удаляет",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM ads WHERE id = $1 AND seller_id = $2 RETURNING")).
					WithArgs("x", "u1").
					WillReturnRows(sqlmock.NewRows(adRowColumns).
						AddRow("x", "u1", "", "Pod kit", "", 10.0, "devices", time.Now(), 0, 0, "{}", 0))
				mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ads")).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
				mock.ExpectCommit()
			},
			wantTotal: 3,
		},
		{
			name: "не найдено или не владелец",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM ads WHERE id = $1 AND seller_id = $2 RETURNING")).
					WithArgs("x", "u1").
					WillReturnRows(sqlmock.NewRows(adRowColumns))
				mock.ExpectRollback()
			},
			wantErr: myErr.ErrAdNotFoundOrForbidden,
		},
		{
			name: "ошибка БД",
			mockBehavior: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM ads WHERE id = $1 AND seller_id = $2 RETURNING")).
					WithArgs("x", "u1").
					WillReturnError(errors.New("delete failed"))
				mock.ExpectRollback()
			},
			wantErr: myErr.ErrDBInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupDBRepo(t, 100)
			defer cleanup()

			tt.mockBehavior(mock)

			deleted, total, err := repo.Remove(context.Background(), "x", "u1")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantTotal, total)
			if tt.wantErr == nil {
				assert.Equal(t, "x", deleted.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
