package bookmark

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiraku/food-sns/internal/repository"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, repository.NewBookmarkRepo(db)), mock
}

func TestToggleAddAppendsPastMax(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM bookmarks WHERE user_id=\? AND post_id=\? FOR UPDATE`).
		WithArgs(uint64(1), uint64(42)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(position\), 0\) FROM bookmarks WHERE user_id=\? FOR UPDATE`).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(3))
	mock.ExpectExec(`INSERT INTO bookmarks`).
		WithArgs(uint64(1), uint64(42), sqlmock.AnyArg(), int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Toggle(context.Background(), 1, 42)
	require.NoError(t, err)
	assert.Equal(t, Added, res.State)
	assert.Equal(t, int64(4), res.Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleAddIntoEmptyCollection(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM bookmarks`).
		WithArgs(uint64(1), uint64(42)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(position\), 0\)`).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(0))
	mock.ExpectExec(`INSERT INTO bookmarks`).
		WithArgs(uint64(1), uint64(42), sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Toggle(context.Background(), 1, 42)
	require.NoError(t, err)
	assert.Equal(t, Added, res.State)
	assert.Equal(t, int64(1), res.Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleRemovesExistingBookmark(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT 1 FROM bookmarks`).
		WithArgs(uint64(1), uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(`DELETE FROM bookmarks WHERE user_id=\? AND post_id=\?`).
		WithArgs(uint64(1), uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Toggle(context.Background(), 1, 42)
	require.NoError(t, err)
	assert.Equal(t, Removed, res.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveRequiresPremium(t *testing.T) {
	svc, mock := newMockService(t)

	res, err := svc.Move(context.Background(), 1, 42, DirUp, false)
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.Equal(t, NoOp, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveUnknownBookmarkIsNoOp(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT position FROM bookmarks WHERE user_id=\? AND post_id=\? FOR UPDATE`).
		WithArgs(uint64(1), uint64(42)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	res, err := svc.Move(context.Background(), 1, 42, DirUp, true)
	require.NoError(t, err)
	assert.Equal(t, NoOp, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveAtTopIsNoOp(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT position FROM bookmarks`).
		WithArgs(uint64(1), uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(1))
	mock.ExpectQuery(`SELECT post_id, position FROM bookmarks WHERE user_id=\? AND position < \? ORDER BY position DESC LIMIT 1 FOR UPDATE`).
		WithArgs(uint64(1), int64(1)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	res, err := svc.Move(context.Background(), 1, 42, DirUp, true)
	require.NoError(t, err)
	assert.Equal(t, NoOp, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveUpSwapsWithNearestSmallerPosition(t *testing.T) {
	svc, mock := newMockService(t)

	// Post 42 sits at position 5; its upward neighbor is post 41 at
	// position 3 (gaps from earlier removals are expected).
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT position FROM bookmarks`).
		WithArgs(uint64(1), uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(5))
	mock.ExpectQuery(`SELECT post_id, position FROM bookmarks WHERE user_id=\? AND position < \?`).
		WithArgs(uint64(1), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "position"}).AddRow(41, 3))
	mock.ExpectExec(`UPDATE bookmarks SET position=\? WHERE user_id=\? AND post_id=\?`).
		WithArgs(int64(3), uint64(1), uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE bookmarks SET position=\? WHERE user_id=\? AND post_id=\?`).
		WithArgs(int64(5), uint64(1), uint64(41)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Move(context.Background(), 1, 42, DirUp, true)
	require.NoError(t, err)
	assert.Equal(t, Moved, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveDownSwapsWithNearestLargerPosition(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT position FROM bookmarks`).
		WithArgs(uint64(1), uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"position"}).AddRow(3))
	mock.ExpectQuery(`SELECT post_id, position FROM bookmarks WHERE user_id=\? AND position > \? ORDER BY position ASC LIMIT 1 FOR UPDATE`).
		WithArgs(uint64(1), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "position"}).AddRow(43, 5))
	mock.ExpectExec(`UPDATE bookmarks SET position=\?`).
		WithArgs(int64(5), uint64(1), uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE bookmarks SET position=\?`).
		WithArgs(int64(3), uint64(1), uint64(43)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Move(context.Background(), 1, 42, DirDown, true)
	require.NoError(t, err)
	assert.Equal(t, Moved, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func bookmarkListRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "content", "image", "category", "shop_category",
		"shop_name", "shop_address", "shop_url", "shop_hours", "shop_phone",
		"shop_price_range", "shop_lat", "shop_lng", "likes", "created_at",
		"username", "folder", "position", "b_created_at",
	}).AddRow(
		42, 2, "うますぎるラーメン", nil, "shop_intro", "ラーメン",
		"麺屋テスト", "東京都新宿区", nil, nil, nil,
		nil, 35.69, 139.7, 12, time.Now(),
		"@hanako", "ramen", 1, time.Now(),
	)
}

func TestListCoercesSortForNonPremium(t *testing.T) {
	svc, mock := newMockService(t)

	// likes_desc requested, but non-premium listings always come back in
	// created_desc order.
	mock.ExpectQuery(`ORDER BY b\.created_at DESC`).
		WithArgs(uint64(1)).
		WillReturnRows(bookmarkListRows())

	rows, effective, err := svc.List(context.Background(), 1, repository.SortLikesDesc, false)
	require.NoError(t, err)
	assert.Equal(t, repository.SortCreatedDesc, effective)
	require.Len(t, rows, 1)
	assert.Equal(t, "@hanako", rows[0].Username)
	require.NotNil(t, rows[0].Folder)
	assert.Equal(t, "ramen", *rows[0].Folder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPremiumKeepsRequestedSort(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`ORDER BY p\.likes DESC`).
		WithArgs(uint64(1)).
		WillReturnRows(bookmarkListRows())

	_, effective, err := svc.List(context.Background(), 1, repository.SortLikesDesc, true)
	require.NoError(t, err)
	assert.Equal(t, repository.SortLikesDesc, effective)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUnknownSortFallsBackToPosition(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery(`ORDER BY b\.position ASC, b\.created_at DESC`).
		WithArgs(uint64(1)).
		WillReturnRows(bookmarkListRows())

	_, effective, err := svc.List(context.Background(), 1, "likes_squared", true)
	require.NoError(t, err)
	assert.Equal(t, repository.SortPosition, effective)
	assert.NoError(t, mock.ExpectationsWereMet())
}
