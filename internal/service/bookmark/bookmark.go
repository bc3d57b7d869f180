// Package bookmark implements the per-user ordered bookmark collection:
// save/unsave toggling, sorted listing with tier coercion, pairwise
// position swaps and folder labels.  Mutations that read before writing
// run inside a transaction with row locks so concurrent requests for the
// same user serialize instead of losing updates.
package bookmark

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hiraku/food-sns/internal/repository"
)

// ToggleState reports what a Toggle call did.
type ToggleState int

const (
	Added ToggleState = iota
	Removed
)

// ToggleResult carries the new state and, for Added, the assigned position.
type ToggleResult struct {
	State    ToggleState
	Position int64
}

// MoveResult reports the outcome of a Move call.  NoOp covers both a
// bookmark that is already at the requested end and a post the user never
// bookmarked; the distinction is deliberately not surfaced.
type MoveResult int

const (
	Moved MoveResult = iota
	NoOp
)

// Directions accepted by Move.
const (
	DirUp   = "up"
	DirDown = "down"
)

type Service struct {
	db   *sql.DB
	repo *repository.BookmarkRepo
}

func NewService(db *sql.DB, repo *repository.BookmarkRepo) *Service {
	return &Service{db: db, repo: repo}
}

// Toggle saves the post when it is not bookmarked and removes the bookmark
// otherwise.  A new bookmark is appended past the current maximum position
// (1 when the collection is empty); removal leaves the remaining positions
// untouched, so gaps accumulate and are expected.  The whole
// read-then-write runs in one transaction: the existence probe and the
// max-position read lock the user's rows, keeping two concurrent toggles
// from assigning the same position.
func (s *Service) Toggle(ctx context.Context, userID, postID uint64) (ToggleResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ToggleResult{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	exists, err := s.repo.ExistsTx(ctx, tx, userID, postID)
	if err != nil {
		return ToggleResult{}, err
	}
	var res ToggleResult
	if exists {
		if err := s.repo.DeleteTx(ctx, tx, userID, postID); err != nil {
			return ToggleResult{}, err
		}
		res = ToggleResult{State: Removed}
	} else {
		max, err := s.repo.MaxPositionTx(ctx, tx, userID)
		if err != nil {
			return ToggleResult{}, err
		}
		pos := max + 1
		if err := s.repo.InsertTx(ctx, tx, userID, postID, pos, time.Now().UTC()); err != nil {
			return ToggleResult{}, err
		}
		res = ToggleResult{State: Added, Position: pos}
	}
	if err := tx.Commit(); err != nil {
		return ToggleResult{}, err
	}
	committed = true
	return res, nil
}

// List returns the user's bookmarks in the requested sort order and the
// sort that was actually applied.  Non-premium accounts are coerced to
// created_desc regardless of the requested mode; that is the tier
// restriction, not an error.
func (s *Service) List(ctx context.Context, userID uint64, sort string, premium bool) ([]repository.BookmarkRow, string, error) {
	if !premium {
		sort = repository.SortCreatedDesc
	}
	switch sort {
	case repository.SortPosition, repository.SortCreatedAsc, repository.SortCreatedDesc,
		repository.SortLikesDesc, repository.SortCategory:
	default:
		sort = repository.SortPosition
	}
	rows, err := s.repo.ListWithPosts(ctx, userID, sort)
	return rows, sort, err
}

// Move swaps the bookmark's position with its neighbor on the requested
// side.  Non-premium callers get ErrForbidden; an unknown bookmark or a
// bookmark already at the end of the sequence is a NoOp.  Both rows are
// locked before either write, so two concurrent moves for the same user
// serialize; moves for different users touch disjoint rows and do not
// block each other.  This is a pairwise swap: the rest of the sequence is
// never renumbered.
func (s *Service) Move(ctx context.Context, userID, postID uint64, direction string, premium bool) (MoveResult, error) {
	if !premium {
		return NoOp, repository.ErrForbidden
	}
	up := direction != DirDown

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NoOp, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	cur, err := s.repo.PositionTx(ctx, tx, userID, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return NoOp, nil
	}
	if err != nil {
		return NoOp, err
	}
	neighborID, neighborPos, err := s.repo.NeighborTx(ctx, tx, userID, cur, up)
	if errors.Is(err, sql.ErrNoRows) {
		return NoOp, nil // already at that end
	}
	if err != nil {
		return NoOp, err
	}
	if err := s.repo.SetPositionTx(ctx, tx, userID, postID, neighborPos); err != nil {
		return NoOp, err
	}
	if err := s.repo.SetPositionTx(ctx, tx, userID, neighborID, cur); err != nil {
		return NoOp, err
	}
	if err := tx.Commit(); err != nil {
		return NoOp, err
	}
	committed = true
	return Moved, nil
}

// SetFolder sets or clears the folder label on a bookmark the user owns.
// An empty folder clears the label.  Non-premium callers get ErrForbidden;
// a bookmark that does not belong to the user is a silent no-op.
func (s *Service) SetFolder(ctx context.Context, userID, postID uint64, folder string, premium bool) error {
	if !premium {
		return repository.ErrForbidden
	}
	var f *string
	if folder != "" {
		f = &folder
	}
	_, err := s.repo.SetFolder(ctx, userID, postID, f)
	return err
}
