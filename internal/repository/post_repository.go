package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hiraku/food-sns/internal/model"
)

// FeedRow is a post joined with its author's handle, as rendered in the
// feed, text search and profile listings.
type FeedRow struct {
	model.Post
	Username string `json:"username"`
}

// GeoPostRow is the read model consumed by proximity search: shop posts
// that carry a coordinate pair.  Lat/Lng are non-pointer because the query
// filters out rows with NULL coordinates.
type GeoPostRow struct {
	ID           uint64    `json:"id"`
	UserID       uint64    `json:"user_id"`
	Username     string    `json:"username"`
	Content      string    `json:"content"`
	ShopCategory string    `json:"shop_category"`
	ShopName     string    `json:"shop_name"`
	ShopAddress  string    `json:"shop_address,omitempty"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Likes        uint64    `json:"likes"`
	CreatedAt    time.Time `json:"created_at"`
}

type PostRepo struct{ DB *sql.DB }

func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{DB: db} }

const postColumns = `p.id, p.user_id, p.content, p.image, p.category, p.shop_category,
	p.shop_name, p.shop_address, p.shop_url, p.shop_hours, p.shop_phone,
	p.shop_price_range, p.shop_lat, p.shop_lng, p.likes, p.created_at`

// Create inserts a post and returns its ID.
func (r *PostRepo) Create(ctx context.Context, p model.Post) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO posts (user_id, content, image, category, shop_category, shop_name,
			shop_address, shop_url, shop_hours, shop_phone, shop_price_range,
			shop_lat, shop_lng, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.UserID, p.Content, p.Image, p.Category, p.ShopCategory, p.ShopName,
		p.ShopAddress, p.ShopURL, p.ShopHours, p.ShopPhone, p.ShopPriceRange,
		p.ShopLat, p.ShopLng, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func scanPost(scan func(dest ...any) error) (model.Post, error) {
	var (
		p     model.Post
		image sql.NullString
		sCat  sql.NullString
		sName sql.NullString
		sAddr sql.NullString
		sURL  sql.NullString
		sHrs  sql.NullString
		sTel  sql.NullString
		sPrc  sql.NullString
		lat   sql.NullFloat64
		lng   sql.NullFloat64
	)
	err := scan(&p.ID, &p.UserID, &p.Content, &image, &p.Category, &sCat, &sName,
		&sAddr, &sURL, &sHrs, &sTel, &sPrc, &lat, &lng, &p.Likes, &p.CreatedAt)
	if err != nil {
		return model.Post{}, err
	}
	strPtr := func(v sql.NullString) *string {
		if v.Valid {
			s := v.String
			return &s
		}
		return nil
	}
	p.Image = strPtr(image)
	p.ShopCategory = strPtr(sCat)
	p.ShopName = strPtr(sName)
	p.ShopAddress = strPtr(sAddr)
	p.ShopURL = strPtr(sURL)
	p.ShopHours = strPtr(sHrs)
	p.ShopPhone = strPtr(sTel)
	p.ShopPriceRange = strPtr(sPrc)
	if lat.Valid {
		v := lat.Float64
		p.ShopLat = &v
	}
	if lng.Valid {
		v := lng.Float64
		p.ShopLng = &v
	}
	return p, nil
}

// GetByID fetches a single post.  Returns ErrPostNotFound when no row matches.
func (r *PostRepo) GetByID(ctx context.Context, id uint64) (model.Post, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+postColumns+" FROM posts p WHERE p.id=? LIMIT 1", id)
	p, err := scanPost(row.Scan)
	if err == sql.ErrNoRows {
		return model.Post{}, ErrPostNotFound
	}
	return p, err
}

// Update rewrites the mutable columns of a post.  Ownership is checked by
// the caller; the repository applies the change unconditionally.
func (r *PostRepo) Update(ctx context.Context, p model.Post) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE posts SET content=?, image=?, category=?, shop_category=?, shop_name=?,
			shop_address=?, shop_url=?, shop_hours=?, shop_phone=?, shop_price_range=?,
			shop_lat=?, shop_lng=?
		 WHERE id=?`,
		p.Content, p.Image, p.Category, p.ShopCategory, p.ShopName, p.ShopAddress,
		p.ShopURL, p.ShopHours, p.ShopPhone, p.ShopPriceRange, p.ShopLat, p.ShopLng, p.ID)
	return err
}

// Delete removes a post.  Bookmarks referencing it are removed as well so
// that no dangling rows keep positions occupied.
func (r *PostRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM bookmarks WHERE post_id=?", id); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx, "DELETE FROM posts WHERE id=?", id)
	return err
}

// Like increments the like counter.  Returns ErrPostNotFound when the post
// does not exist.
func (r *PostRepo) Like(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE posts SET likes = likes + 1 WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Feed returns the newest-first feed page together with the total row
// count.  Both the free-text filter and the category filter are optional
// and combined when present.
func (r *PostRepo) Feed(ctx context.Context, q, category string, page, pageSize int) ([]FeedRow, int64, error) {
	where := []string{}
	args := []any{}

	if q != "" {
		where = append(where, "p.content LIKE ?")
		args = append(args, "%"+q+"%")
	}
	if category != "" {
		where = append(where, "p.category = ?")
		args = append(args, category)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	countSQL := "SELECT COUNT(*) FROM posts p WHERE " + cond
	if err := r.DB.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := pageSize
	offset := (page - 1) * pageSize
	dataSQL := `SELECT ` + postColumns + `, u.username
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE ` + cond + `
		ORDER BY p.created_at DESC
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.DB.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]FeedRow, 0, limit)
	for rows.Next() {
		var f FeedRow
		p, err := scanFeedRow(rows, &f.Username)
		if err != nil {
			return nil, 0, err
		}
		f.Post = p
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanFeedRow(rows *sql.Rows, username *string) (model.Post, error) {
	return scanPost(func(dest ...any) error {
		return rows.Scan(append(dest, username)...)
	})
}

// TextSearch filters posts by content (and shop name for shop posts).
// kind selects the searched category: "shop", "recipe" or anything else
// for all categories.  Results are newest first.
func (r *PostRepo) TextSearch(ctx context.Context, q, kind string) ([]FeedRow, error) {
	like := "%" + q + "%"
	var (
		cond string
		args []any
	)
	switch kind {
	case "shop":
		cond = "p.category = ? AND (p.shop_name LIKE ? OR p.content LIKE ?)"
		args = []any{model.CategoryShopIntro, like, like}
	case "recipe":
		cond = "p.category = ? AND p.content LIKE ?"
		args = []any{model.CategoryRecipeIntro, like}
	default:
		cond = "p.content LIKE ?"
		args = []any{like}
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+postColumns+`, u.username
		 FROM posts p JOIN users u ON u.id = p.user_id
		 WHERE `+cond+`
		 ORDER BY p.created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FeedRow
	for rows.Next() {
		var f FeedRow
		p, err := scanFeedRow(rows, &f.Username)
		if err != nil {
			return nil, err
		}
		f.Post = p
		out = append(out, f)
	}
	return out, rows.Err()
}

// ByUser returns a user's posts, newest first, with the total count for
// pagination.
func (r *PostRepo) ByUser(ctx context.Context, userID uint64, page, pageSize int) ([]model.Post, int64, error) {
	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM posts p WHERE p.user_id=?", userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts p WHERE p.user_id=?
		 ORDER BY p.created_at DESC LIMIT ? OFFSET ?`,
		userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []model.Post
	for rows.Next() {
		p, err := scanPost(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// ShopPostsWithCoords returns every shop introduction post that carries a
// coordinate pair, newest first.  Proximity search filters this set by
// distance in memory; the repository's creation order is deliberately
// preserved through the filter.
func (r *PostRepo) ShopPostsWithCoords(ctx context.Context) ([]GeoPostRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT p.id, p.user_id, u.username, p.content, COALESCE(p.shop_category, ''),
			COALESCE(p.shop_name, ''), COALESCE(p.shop_address, ''),
			p.shop_lat, p.shop_lng, p.likes, p.created_at
		 FROM posts p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.category = ? AND p.shop_lat IS NOT NULL AND p.shop_lng IS NOT NULL
		 ORDER BY p.created_at DESC`, model.CategoryShopIntro)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GeoPostRow
	for rows.Next() {
		var g GeoPostRow
		if err := rows.Scan(&g.ID, &g.UserID, &g.Username, &g.Content, &g.ShopCategory,
			&g.ShopName, &g.ShopAddress, &g.Lat, &g.Lng, &g.Likes, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
