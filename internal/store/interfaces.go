package store

import (
	"context"

	"marketplace-service/internal/domain"
)

// UserStorer defines the database operations for accounts and profiles.
type UserStorer interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	TouchLastSeen(ctx context.Context, id int64) error
	ListSellersWithStock(ctx context.Context) ([]domain.SellerSummary, error)

	GetOrCreateSellerProfile(ctx context.Context, userID int64) (*domain.SellerProfile, error)
	UpdateSellerProfile(ctx context.Context, profile *domain.SellerProfile) (*domain.SellerProfile, error)
	ListSellerImages(ctx context.Context, profileID int64) ([]domain.SellerImage, error)
	CreateSellerImage(ctx context.Context, image *domain.SellerImage) (*domain.SellerImage, error)
	UpdateSellerImage(ctx context.Context, image *domain.SellerImage) error

	GetOrCreateBuyerProfile(ctx context.Context, userID int64) (*domain.BuyerProfile, error)
	UpdateBuyerProfile(ctx context.Context, profile *domain.BuyerProfile) (*domain.BuyerProfile, error)
}

// CategoryStorer defines the database operations for categories.
type CategoryStorer interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	ListCategoriesBySeller(ctx context.Context, sellerID int64) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	// GetOrCreateSentinelCategory returns the seller's lowest-id "Uncategorized"
	// category, inserting one only when none exists.
	GetOrCreateSentinelCategory(ctx context.Context, sellerID int64) (*domain.Category, error)
	ReassignProducts(ctx context.Context, fromCategoryID, toCategoryID int64) (int64, error)
	ReparentChildren(ctx context.Context, fromParentID int64, toParentID *int64) (int64, error)
}

// ProductStorer defines the database operations for products and their images.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	ListProductsBySeller(ctx context.Context, sellerID int64) ([]domain.Product, error)
	ListProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListProductImages(ctx context.Context, productID int64) ([]domain.ProductImage, error)
	GetProductImageByID(ctx context.Context, id int64) (*domain.ProductImage, error)
	CreateProductImage(ctx context.Context, image *domain.ProductImage) (*domain.ProductImage, error)
	UpdateProductImage(ctx context.Context, image *domain.ProductImage) error
	DeleteProductImage(ctx context.Context, id int64) error
}

// MessageStorer defines the database operations for messages.
type MessageStorer interface {
	CreateMessage(ctx context.Context, message *domain.Message) (*domain.Message, error)
	// ListProductMessages returns every message scoped to a product, newest first.
	ListProductMessages(ctx context.Context, productID int64) ([]domain.Message, error)
	CountUnread(ctx context.Context, productID, receiverID int64) (int, error)
	// ListUserMessages returns every message sent or received by a user, newest first.
	ListUserMessages(ctx context.Context, userID int64) ([]domain.Message, error)
	// ListConversation returns the product-scoped messages between two users, oldest first.
	ListConversation(ctx context.Context, productID, userA, userB int64) ([]domain.Message, error)
	MarkRead(ctx context.Context, ids []int64) (int64, error)
}

// Repository groups every storer and runs functions inside a transaction.
type Repository interface {
	UserStorer
	CategoryStorer
	ProductStorer
	MessageStorer

	// WithTx runs fn against a repository bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Repository) error) error
	// LockSeller serializes writes to one seller's catalog and gallery. Inside
	// WithTx the lock is held until the transaction ends.
	LockSeller(ctx context.Context, sellerID int64) error
}
