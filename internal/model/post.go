package model

import "time"

// Post categories.  Every post belongs to exactly one category;
// shop fields are only populated for CategoryShopIntro posts.
const (
	CategoryFoodPhoto   = "food_photo"
	CategoryShopIntro   = "shop_intro"
	CategoryRecipeIntro = "recipe_intro"
)

// ShopCategories lists the accepted sub-categories for shop
// introduction posts.
var ShopCategories = []string{"和食", "洋食", "中華", "カフェ", "居酒屋", "ラーメン", "スイーツ"}

// Post represents a row in the `posts` table.  Shop fields are
// nullable and only carry values for shop introduction posts; the
// latitude/longitude pair is what proximity search filters on.
//
// Fields:
//  ID             – primary key identifier.
//  UserID         – author of the post.
//  Content        – free-form body text.
//  Image          – stored image file name (nullable; no processing here).
//  Category       – one of the Category* constants.
//  ShopCategory   – sub-category label for shop posts (nullable).
//  ShopName       – shop name, required for shop posts (nullable column).
//  ShopAddress    – postal address (nullable).
//  ShopURL        – web site (nullable).
//  ShopHours      – opening hours (nullable).
//  ShopPhone      – phone number (nullable).
//  ShopPriceRange – price range label (nullable).
//  ShopLat        – latitude in [-90, 90] (nullable).
//  ShopLng        – longitude in [-180, 180] (nullable).
//  Likes          – like counter.
//  CreatedAt      – timestamp of creation.
type Post struct {
	ID             uint64     // posts.id
	UserID         uint64     // posts.user_id
	Content        string     // posts.content
	Image          *string    // posts.image (nullable)
	Category       string     // posts.category
	ShopCategory   *string    // posts.shop_category (nullable)
	ShopName       *string    // posts.shop_name (nullable)
	ShopAddress    *string    // posts.shop_address (nullable)
	ShopURL        *string    // posts.shop_url (nullable)
	ShopHours      *string    // posts.shop_hours (nullable)
	ShopPhone      *string    // posts.shop_phone (nullable)
	ShopPriceRange *string    // posts.shop_price_range (nullable)
	ShopLat        *float64   // posts.shop_lat (nullable)
	ShopLng        *float64   // posts.shop_lng (nullable)
	Likes          uint64     // posts.likes
	CreatedAt      time.Time  // posts.created_at
}
