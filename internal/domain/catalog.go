package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// UncategorizedName is the name of the per-seller fallback category that
// receives the products of a deleted category.
const UncategorizedName = "Uncategorized"

// MaxImagesPerOwner caps the image slots of a product or seller gallery.
const MaxImagesPerOwner = 4

// Category belongs to the seller that created it and optionally to a parent
// category of the same seller.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	SellerID  int64     `json:"seller_id"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsSentinel reports whether c is its seller's "Uncategorized" bucket.
func (c *Category) IsSentinel() bool {
	return c.Name == UncategorizedName
}

// Product is listed by exactly one seller.
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   *string         `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	SizeUnit      *string         `json:"size_unit,omitempty"`
	StockQuantity int32           `json:"stock_quantity"`
	SellerID      int64           `json:"seller_id"`
	CategoryID    *int64          `json:"category_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProductImage is one of up to four ordered images of a product.
type ProductImage struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	ImageURL    string    `json:"image_url"`
	PublicID    *string   `json:"-"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// SellerImage is one of up to four ordered gallery images of a seller profile.
type SellerImage struct {
	ID              int64     `json:"id"`
	SellerProfileID int64     `json:"seller_profile_id"`
	ImageURL        string    `json:"image_url"`
	PublicID        *string   `json:"-"`
	Description     *string   `json:"description,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
