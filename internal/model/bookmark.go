package model

import "time"

// Bookmark links a user to a saved post.  The pair (UserID, PostID)
// is the primary key, so a post can be bookmarked at most once per
// user.  Position is the manual ordering key: unique per user but
// not necessarily contiguous, because deleting a bookmark leaves a
// gap and reordering only ever swaps two positions.
//
// Fields:
//  UserID    – owner of the bookmark.
//  PostID    – bookmarked post.
//  CreatedAt – when the post was first saved.
//  Folder    – optional grouping label, premium-only (nullable).
//  Position  – manual ordering key within the owner's collection.
type Bookmark struct {
	UserID    uint64    // bookmarks.user_id
	PostID    uint64    // bookmarks.post_id
	CreatedAt time.Time // bookmarks.created_at
	Folder    *string   // bookmarks.folder (nullable)
	Position  int64     // bookmarks.position
}
