package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiraku/food-sns/internal/model"
)

func newPostRepo(t *testing.T) (*PostRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostRepo(db), mock
}

func feedColumns() []string {
	return []string{
		"id", "user_id", "content", "image", "category", "shop_category",
		"shop_name", "shop_address", "shop_url", "shop_hours", "shop_phone",
		"shop_price_range", "shop_lat", "shop_lng", "likes", "created_at",
		"username",
	}
}

func TestLikeUnknownPost(t *testing.T) {
	repo, mock := newPostRepo(t)

	mock.ExpectExec(`UPDATE posts SET likes = likes \+ 1 WHERE id=\?`).
		WithArgs(uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Like(context.Background(), 99)
	assert.ErrorIs(t, err, ErrPostNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikeIncrements(t *testing.T) {
	repo, mock := newPostRepo(t)

	mock.ExpectExec(`UPDATE posts SET likes = likes \+ 1`).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Like(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedCombinesFilters(t *testing.T) {
	repo, mock := newPostRepo(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM posts p WHERE p\.content LIKE \? AND p\.category = \?`).
		WithArgs("%ラーメン%", model.CategoryShopIntro).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`ORDER BY p\.created_at DESC\s+LIMIT \? OFFSET \?`).
		WithArgs("%ラーメン%", model.CategoryShopIntro, 6, 6).
		WillReturnRows(sqlmock.NewRows(feedColumns()).AddRow(
			1, 2, "最高のラーメン", nil, "shop_intro", "ラーメン",
			"麺屋テスト", nil, nil, nil, nil, nil, 35.69, 139.70, 3, now,
			"@hanako"))

	rows, total, err := repo.Feed(context.Background(), "ラーメン", model.CategoryShopIntro, 2, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	require.Len(t, rows, 1)
	assert.Equal(t, "@hanako", rows[0].Username)
	require.NotNil(t, rows[0].ShopLat)
	assert.Equal(t, 35.69, *rows[0].ShopLat)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedNoFilters(t *testing.T) {
	repo, mock := newPostRepo(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM posts p WHERE 1=1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`LIMIT \? OFFSET \?`).
		WithArgs(6, 0).
		WillReturnRows(sqlmock.NewRows(feedColumns()))

	rows, total, err := repo.Feed(context.Background(), "", "", 1, 6)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTextSearchShopMatchesNameOrContent(t *testing.T) {
	repo, mock := newPostRepo(t)

	mock.ExpectQuery(`p\.category = \? AND \(p\.shop_name LIKE \? OR p\.content LIKE \?\)`).
		WithArgs(model.CategoryShopIntro, "%テスト%", "%テスト%").
		WillReturnRows(sqlmock.NewRows(feedColumns()))

	_, err := repo.TextSearch(context.Background(), "テスト", "shop")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShopPostsWithCoordsFiltersNullCoordinates(t *testing.T) {
	repo, mock := newPostRepo(t)

	now := time.Now()
	mock.ExpectQuery(`WHERE p\.category = \? AND p\.shop_lat IS NOT NULL AND p\.shop_lng IS NOT NULL`).
		WithArgs(model.CategoryShopIntro).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "username", "content", "shop_category",
			"shop_name", "shop_address", "shop_lat", "shop_lng", "likes", "created_at",
		}).AddRow(1, 2, "@hanako", "旨い", "ラーメン", "麺屋テスト", "", 35.69, 139.70, 3, now))

	rows, err := repo.ShopPostsWithCoords(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 35.69, rows[0].Lat)
	assert.Equal(t, "麺屋テスト", rows[0].ShopName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRemovesPostAndBookmarks(t *testing.T) {
	repo, mock := newPostRepo(t)

	mock.ExpectExec(`DELETE FROM bookmarks WHERE post_id=\?`).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM posts WHERE id=\?`).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}
