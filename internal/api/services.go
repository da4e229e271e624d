package api

import (
	"context"

	"marketplace-service/internal/domain"
	"marketplace-service/internal/service"
)

// CatalogService is the catalog behavior the handlers depend on.
type CatalogService interface {
	ListCategoriesForDashboard(ctx context.Context, sellerID int64) ([]service.CategoryNode, error)
	ListAsParentChoices(ctx context.Context, sellerID int64, excludeID *int64) ([]service.ParentChoice, error)
	CreateCategory(ctx context.Context, actor domain.Actor, in service.CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, actor domain.Actor, id int64, in service.CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, actor domain.Actor, id int64) (*service.CategoryDeletion, error)

	CreateProduct(ctx context.Context, actor domain.Actor, in service.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, actor domain.Actor, id int64, in service.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, actor domain.Actor, id int64) error
	SetProductImage(ctx context.Context, actor domain.Actor, productID int64, slot int, upload service.Upload) (*domain.ProductImage, error)
	DeleteProductImage(ctx context.Context, actor domain.Actor, imageID int64) error

	GetDashboard(ctx context.Context, actor domain.Actor) (*service.Dashboard, error)
	GetStorefront(ctx context.Context, sellerID int64) (*service.Storefront, error)
	GetProductDetail(ctx context.Context, viewer *domain.Actor, productID int64) (*service.ProductDetail, error)
}

// MessagingService is the messaging behavior the handlers depend on.
type MessagingService interface {
	BuildInbox(ctx context.Context, actor domain.Actor) (service.InboxView, error)
	PostMessage(ctx context.Context, actor domain.Actor, productID, counterpartID int64, content string) (*domain.Message, error)
	SendToSeller(ctx context.Context, actor domain.Actor, productID int64, content string) (*domain.Message, error)
	GetConversation(ctx context.Context, actor domain.Actor, productID, counterpartID int64) ([]domain.Message, error)
}

// AccountService is the account behavior the handlers depend on.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	ListSellers(ctx context.Context) ([]domain.SellerSummary, error)

	GetSellerProfile(ctx context.Context, viewer *domain.Actor, sellerID int64) (*service.SellerProfileView, error)
	UpdateSellerProfile(ctx context.Context, actor domain.Actor, in service.SellerProfileInput) (*domain.SellerProfile, error)
	SetShopLogo(ctx context.Context, actor domain.Actor, upload service.Upload) (*domain.SellerProfile, error)
	SetSellerImage(ctx context.Context, actor domain.Actor, slot int, upload service.Upload) (*domain.SellerImage, error)

	GetBuyerProfile(ctx context.Context, actor domain.Actor) (*domain.BuyerProfile, error)
	UpdateBuyerProfile(ctx context.Context, actor domain.Actor, in service.BuyerProfileInput) (*domain.BuyerProfile, error)
	SetBuyerProfileImage(ctx context.Context, actor domain.Actor, upload service.Upload) (*domain.BuyerProfile, error)
}

var (
	_ CatalogService   = (*service.CatalogService)(nil)
	_ MessagingService = (*service.MessagingService)(nil)
	_ AccountService   = (*service.AccountService)(nil)
)
