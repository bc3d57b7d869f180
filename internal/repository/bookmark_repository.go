package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hiraku/food-sns/internal/model"
)

// BookmarkRow is a bookmark joined with the saved post and its author, as
// rendered on the bookmark listing.
type BookmarkRow struct {
	model.Post
	Username string    `json:"username"`
	Folder   *string   `json:"folder"`
	Position int64     `json:"position"`
	SavedAt  time.Time `json:"saved_at"`
}

// Sort modes accepted by ListWithPosts.  Position is the manual order;
// the others are derived orders available to premium accounts.
const (
	SortPosition    = "position"
	SortCreatedAsc  = "created_asc"
	SortCreatedDesc = "created_desc"
	SortLikesDesc   = "likes_desc"
	SortCategory    = "category"
)

// BookmarkRepo provides data access to the bookmarks table.  Mutations
// that touch more than one row (the position swap) or that read before
// writing (toggle) expose ...Tx variants so the service layer can scope
// them to a transaction; concurrent operations for the same user then
// serialize on the row locks instead of interleaving.
type BookmarkRepo struct{ DB *sql.DB }

func NewBookmarkRepo(db *sql.DB) *BookmarkRepo { return &BookmarkRepo{DB: db} }

// ExistsTx reports whether the (user, post) pair is bookmarked.  The row,
// when present, is locked for the duration of the transaction.
func (r *BookmarkRepo) ExistsTx(ctx context.Context, tx *sql.Tx, userID, postID uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		"SELECT 1 FROM bookmarks WHERE user_id=? AND post_id=? FOR UPDATE",
		userID, postID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MaxPositionTx returns the highest position among a user's bookmarks, or
// 0 when there are none.  The scanned rows are locked so that two inserts
// for the same user cannot both read the same maximum.
func (r *BookmarkRepo) MaxPositionTx(ctx context.Context, tx *sql.Tx, userID uint64) (int64, error) {
	var max int64
	err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position), 0) FROM bookmarks WHERE user_id=? FOR UPDATE",
		userID).Scan(&max)
	return max, err
}

// InsertTx creates a bookmark at the given position with no folder.
func (r *BookmarkRepo) InsertTx(ctx context.Context, tx *sql.Tx, userID, postID uint64, position int64, createdAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO bookmarks (user_id, post_id, created_at, folder, position) VALUES (?,?,?,NULL,?)",
		userID, postID, createdAt.UTC(), position)
	return err
}

// DeleteTx removes a bookmark.  Remaining positions are left untouched;
// gaps in the sequence are expected and harmless.
func (r *BookmarkRepo) DeleteTx(ctx context.Context, tx *sql.Tx, userID, postID uint64) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM bookmarks WHERE user_id=? AND post_id=?", userID, postID)
	return err
}

// PositionTx returns the position of a bookmark, locking the row.  Returns
// sql.ErrNoRows when the pair is not bookmarked by this user.
func (r *BookmarkRepo) PositionTx(ctx context.Context, tx *sql.Tx, userID, postID uint64) (int64, error) {
	var pos int64
	err := tx.QueryRowContext(ctx,
		"SELECT position FROM bookmarks WHERE user_id=? AND post_id=? FOR UPDATE",
		userID, postID).Scan(&pos)
	return pos, err
}

// NeighborTx finds the adjacent bookmark on one side of the given position:
// the nearest smaller position when up is true, the nearest larger when
// false.  The neighbor row is locked together with the current one so the
// subsequent swap cannot race a concurrent move.  Returns sql.ErrNoRows
// when the bookmark is already at that end of the sequence.
func (r *BookmarkRepo) NeighborTx(ctx context.Context, tx *sql.Tx, userID uint64, position int64, up bool) (uint64, int64, error) {
	q := "SELECT post_id, position FROM bookmarks WHERE user_id=? AND position > ? ORDER BY position ASC LIMIT 1 FOR UPDATE"
	if up {
		q = "SELECT post_id, position FROM bookmarks WHERE user_id=? AND position < ? ORDER BY position DESC LIMIT 1 FOR UPDATE"
	}
	var (
		postID uint64
		pos    int64
	)
	err := tx.QueryRowContext(ctx, q, userID, position).Scan(&postID, &pos)
	return postID, pos, err
}

// SetPositionTx rewrites the position of a single bookmark.
func (r *BookmarkRepo) SetPositionTx(ctx context.Context, tx *sql.Tx, userID, postID uint64, position int64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE bookmarks SET position=? WHERE user_id=? AND post_id=?",
		position, userID, postID)
	return err
}

// SetFolder sets or clears the folder label of a bookmark.  A nil folder
// clears the label.  Returns false when the user does not own such a
// bookmark, which callers treat as a silent no-op.
func (r *BookmarkRepo) SetFolder(ctx context.Context, userID, postID uint64, folder *string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE bookmarks SET folder=? WHERE user_id=? AND post_id=?",
		folder, userID, postID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListWithPosts returns the user's bookmarks joined with the saved posts,
// ordered by the given sort mode.  Unknown modes fall back to the manual
// position order with newest-saved-first as tiebreak.  The mode string is
// mapped to a fixed clause here, never interpolated from user input.
func (r *BookmarkRepo) ListWithPosts(ctx context.Context, userID uint64, sort string) ([]BookmarkRow, error) {
	var order string
	switch sort {
	case SortCreatedAsc:
		order = "b.created_at ASC"
	case SortCreatedDesc:
		order = "b.created_at DESC"
	case SortLikesDesc:
		order = "p.likes DESC"
	case SortCategory:
		order = "p.category ASC, b.created_at DESC"
	default:
		order = "b.position ASC, b.created_at DESC"
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+postColumns+`, u.username, b.folder, b.position, b.created_at
		 FROM bookmarks b
		 JOIN posts p ON p.id = b.post_id
		 JOIN users u ON u.id = p.user_id
		 WHERE b.user_id = ?
		 ORDER BY `+order, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BookmarkRow
	for rows.Next() {
		var (
			row    BookmarkRow
			folder sql.NullString
		)
		p, err := scanPost(func(dest ...any) error {
			return rows.Scan(append(dest, &row.Username, &folder, &row.Position, &row.SavedAt)...)
		})
		if err != nil {
			return nil, err
		}
		row.Post = p
		if folder.Valid {
			f := folder.String
			row.Folder = &f
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
