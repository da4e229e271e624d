package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"marketplace-service/internal/domain"
	"marketplace-service/internal/service"
)

// MockCatalogService is a mock implementation of CatalogService
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) ListCategoriesForDashboard(ctx context.Context, sellerID int64) ([]service.CategoryNode, error) {
	args := m.Called(ctx, sellerID)
	nodes, _ := args.Get(0).([]service.CategoryNode)
	return nodes, args.Error(1)
}

func (m *MockCatalogService) ListAsParentChoices(ctx context.Context, sellerID int64, excludeID *int64) ([]service.ParentChoice, error) {
	args := m.Called(ctx, sellerID, excludeID)
	choices, _ := args.Get(0).([]service.ParentChoice)
	return choices, args.Error(1)
}

func (m *MockCatalogService) CreateCategory(ctx context.Context, actor domain.Actor, in service.CategoryInput) (*domain.Category, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCatalogService) UpdateCategory(ctx context.Context, actor domain.Actor, id int64, in service.CategoryInput) (*domain.Category, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *MockCatalogService) DeleteCategory(ctx context.Context, actor domain.Actor, id int64) (*service.CategoryDeletion, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CategoryDeletion), args.Error(1)
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, actor domain.Actor, in service.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockCatalogService) UpdateProduct(ctx context.Context, actor domain.Actor, id int64, in service.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, actor, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockCatalogService) DeleteProduct(ctx context.Context, actor domain.Actor, id int64) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockCatalogService) SetProductImage(ctx context.Context, actor domain.Actor, productID int64, slot int, upload service.Upload) (*domain.ProductImage, error) {
	args := m.Called(ctx, actor, productID, slot, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProductImage), args.Error(1)
}

func (m *MockCatalogService) DeleteProductImage(ctx context.Context, actor domain.Actor, imageID int64) error {
	return m.Called(ctx, actor, imageID).Error(0)
}

func (m *MockCatalogService) GetDashboard(ctx context.Context, actor domain.Actor) (*service.Dashboard, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Dashboard), args.Error(1)
}

func (m *MockCatalogService) GetStorefront(ctx context.Context, sellerID int64) (*service.Storefront, error) {
	args := m.Called(ctx, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Storefront), args.Error(1)
}

func (m *MockCatalogService) GetProductDetail(ctx context.Context, viewer *domain.Actor, productID int64) (*service.ProductDetail, error) {
	args := m.Called(ctx, viewer, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProductDetail), args.Error(1)
}

// MockMessagingService is a mock implementation of MessagingService
type MockMessagingService struct {
	mock.Mock
}

func (m *MockMessagingService) BuildInbox(ctx context.Context, actor domain.Actor) (service.InboxView, error) {
	args := m.Called(ctx, actor)
	view, _ := args.Get(0).(service.InboxView)
	return view, args.Error(1)
}

func (m *MockMessagingService) PostMessage(ctx context.Context, actor domain.Actor, productID, counterpartID int64, content string) (*domain.Message, error) {
	args := m.Called(ctx, actor, productID, counterpartID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessagingService) SendToSeller(ctx context.Context, actor domain.Actor, productID int64, content string) (*domain.Message, error) {
	args := m.Called(ctx, actor, productID, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessagingService) GetConversation(ctx context.Context, actor domain.Actor, productID, counterpartID int64) ([]domain.Message, error) {
	args := m.Called(ctx, actor, productID, counterpartID)
	msgs, _ := args.Get(0).([]domain.Message)
	return msgs, args.Error(1)
}

// MockAccountService is a mock implementation of AccountService
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Register(ctx context.Context, in service.RegisterInput) (*domain.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAccountService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAccountService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAccountService) ListSellers(ctx context.Context) ([]domain.SellerSummary, error) {
	args := m.Called(ctx)
	sellers, _ := args.Get(0).([]domain.SellerSummary)
	return sellers, args.Error(1)
}

func (m *MockAccountService) GetSellerProfile(ctx context.Context, viewer *domain.Actor, sellerID int64) (*service.SellerProfileView, error) {
	args := m.Called(ctx, viewer, sellerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SellerProfileView), args.Error(1)
}

func (m *MockAccountService) UpdateSellerProfile(ctx context.Context, actor domain.Actor, in service.SellerProfileInput) (*domain.SellerProfile, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SellerProfile), args.Error(1)
}

func (m *MockAccountService) SetShopLogo(ctx context.Context, actor domain.Actor, upload service.Upload) (*domain.SellerProfile, error) {
	args := m.Called(ctx, actor, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SellerProfile), args.Error(1)
}

func (m *MockAccountService) SetSellerImage(ctx context.Context, actor domain.Actor, slot int, upload service.Upload) (*domain.SellerImage, error) {
	args := m.Called(ctx, actor, slot, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SellerImage), args.Error(1)
}

func (m *MockAccountService) GetBuyerProfile(ctx context.Context, actor domain.Actor) (*domain.BuyerProfile, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BuyerProfile), args.Error(1)
}

func (m *MockAccountService) UpdateBuyerProfile(ctx context.Context, actor domain.Actor, in service.BuyerProfileInput) (*domain.BuyerProfile, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BuyerProfile), args.Error(1)
}

func (m *MockAccountService) SetBuyerProfileImage(ctx context.Context, actor domain.Actor, upload service.Upload) (*domain.BuyerProfile, error) {
	args := m.Called(ctx, actor, upload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BuyerProfile), args.Error(1)
}
