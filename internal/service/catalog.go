package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketplace-service/internal/domain"
	"marketplace-service/internal/media"
	"marketplace-service/internal/store"
)

const (
	maxNameLength        = 140
	maxDescriptionLength = 500
	maxSizeUnitLength    = 20
)

var maxPrice = decimal.RequireFromString("9999999999.99")

// Upload is an image file received from a client.
type Upload struct {
	Body     io.Reader
	Filename string
}

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// objectKey returns a random media key keeping the upload's image extension.
func (u Upload) objectKey() (string, error) {
	ext := strings.ToLower(path.Ext(u.Filename))
	if !imageExtensions[ext] {
		return "", validationErrorf("unsupported image type %q", ext)
	}
	return uuid.NewString() + ext, nil
}

// CategoryInput carries the editable fields of a category.
type CategoryInput struct {
	Name     string
	ParentID *int64
}

// ProductInput carries the editable fields of a product.
type ProductInput struct {
	Name          string
	Description   *string
	Price         decimal.Decimal
	SizeUnit      *string
	StockQuantity int32
	CategoryID    *int64
}

func (in *ProductInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return validationErrorf("product name is required")
	case utf8.RuneCountInString(in.Name) > maxNameLength:
		return validationErrorf("product name exceeds %d characters", maxNameLength)
	case in.Price.IsNegative():
		return validationErrorf("price must not be negative")
	case in.Price.GreaterThan(maxPrice):
		return validationErrorf("price exceeds %s", maxPrice)
	case in.StockQuantity < 0:
		return validationErrorf("stock quantity must not be negative")
	case in.Description != nil && utf8.RuneCountInString(*in.Description) > maxDescriptionLength:
		return validationErrorf("description exceeds %d characters", maxDescriptionLength)
	case in.SizeUnit != nil && utf8.RuneCountInString(*in.SizeUnit) > maxSizeUnitLength:
		return validationErrorf("size unit exceeds %d characters", maxSizeUnitLength)
	}
	in.Price = in.Price.Round(2)
	return nil
}

// CategoryDeletion reports what DeleteCategory changed.
type CategoryDeletion struct {
	DeletedID          int64 `json:"deleted_id"`
	SentinelID         int64 `json:"sentinel_id"`
	MovedProducts      int64 `json:"moved_products"`
	ReparentedChildren int64 `json:"reparented_children"`
}

// Dashboard is everything a seller's management page shows.
type Dashboard struct {
	Products      []domain.Product `json:"products"`
	Categories    []CategoryNode   `json:"categories"`
	ParentChoices []ParentChoice   `json:"parent_choices"`
}

// Storefront is a seller's public page.
type Storefront struct {
	Seller     domain.User           `json:"seller"`
	Profile    *domain.SellerProfile `json:"profile"`
	Products   []domain.Product      `json:"products"`
	Categories []CategoryNode        `json:"categories"`
}

// ProductDetail is a product with its seller and images.
type ProductDetail struct {
	Product      domain.Product        `json:"product"`
	Seller       domain.User           `json:"seller"`
	Images       []domain.ProductImage `json:"images"`
	IsSellerView bool                  `json:"is_seller_view"`
}

// CatalogService manages categories, products and product images.
type CatalogService struct {
	repo  store.Repository
	media media.Store
}

func NewCatalogService(repo store.Repository, mediaStore media.Store) *CatalogService {
	return &CatalogService{repo: repo, media: mediaStore}
}

// --- Categories ---

// ListCategoriesForDashboard returns the seller's categories in tree order.
func (s *CatalogService) ListCategoriesForDashboard(ctx context.Context, sellerID int64) ([]CategoryNode, error) {
	categories, err := s.repo.ListCategoriesBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return buildCategoryTree(categories), nil
}

// ListAsParentChoices returns the categories that may become a parent of
// excludeID: everything except excludeID and its descendants.
func (s *CatalogService) ListAsParentChoices(ctx context.Context, sellerID int64, excludeID *int64) ([]ParentChoice, error) {
	categories, err := s.repo.ListCategoriesBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return parentChoices(categories, excludeID), nil
}

func validateCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", validationErrorf("category name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", validationErrorf("category name exceeds %d characters", maxNameLength)
	}
	return name, nil
}

// checkParent verifies that parentID may become the parent of categoryID
// (zero for a new category) within the seller's tree.
func checkParent(ctx context.Context, repo store.Repository, sellerID, categoryID int64, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	if *parentID == categoryID {
		return invalidOperationf("a category cannot be its own parent")
	}
	parent, err := repo.GetCategoryByID(ctx, *parentID)
	if err != nil {
		return fmt.Errorf("load parent category: %w", err)
	}
	if parent.SellerID != sellerID {
		return invalidOperationf("parent category %d belongs to another seller", parent.ID)
	}
	if categoryID == 0 {
		return nil
	}
	categories, err := repo.ListCategoriesBySeller(ctx, sellerID)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	if subtree(categories, categoryID)[*parentID] {
		return invalidOperationf("category %d is a descendant of %d", *parentID, categoryID)
	}
	return nil
}

func mapCategoryConflict(err error) error {
	if errors.Is(err, store.ErrCategoryNameExists) {
		return invalidOperationf("seller already has an %q category", domain.UncategorizedName)
	}
	return err
}

func (s *CatalogService) CreateCategory(ctx context.Context, actor domain.Actor, in CategoryInput) (*domain.Category, error) {
	if err := requireSeller(actor); err != nil {
		return nil, err
	}
	name, err := validateCategoryName(in.Name)
	if err != nil {
		return nil, err
	}
	var created *domain.Category
	err = s.repo.WithTx(ctx, func(tx store.Repository) error {
		if err := tx.LockSeller(ctx, actor.ID); err != nil {
			return err
		}
		if err := checkParent(ctx, tx, actor.ID, 0, in.ParentID); err != nil {
			return err
		}
		created, err = tx.CreateCategory(ctx, &domain.Category{Name: name, SellerID: actor.ID, ParentID: in.ParentID})
		return mapCategoryConflict(err)
	})
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	log.Info("category created", "category_id", created.ID, "seller_id", actor.ID)
	return created, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, actor domain.Actor, id int64, in CategoryInput) (*domain.Category, error) {
	if err := requireSeller(actor); err != nil {
		return nil, err
	}
	name, err := validateCategoryName(in.Name)
	if err != nil {
		return nil, err
	}
	var updated *domain.Category
	err = s.repo.WithTx(ctx, func(tx store.Repository) error {
		if err := tx.LockSeller(ctx, actor.ID); err != nil {
			return err
		}
		category, err := tx.GetCategoryByID(ctx, id)
		if err != nil {
			return err
		}
		if category.SellerID != actor.ID {
			return permissionDeniedf("category %d belongs to another seller", id)
		}
		if category.IsSentinel() && name != domain.UncategorizedName {
			return invalidOperationf("the %q category cannot be renamed", domain.UncategorizedName)
		}
		if err := checkParent(ctx, tx, actor.ID, id, in.ParentID); err != nil {
			return err
		}
		category.Name = name
		category.ParentID = in.ParentID
		updated, err = tx.UpdateCategory(ctx, category)
		return mapCategoryConflict(err)
	})
	if err != nil {
		return nil, fmt.Errorf("update category %d: %w", id, err)
	}
	return updated, nil
}

// DeleteCategory removes a category owned by actor. Its products move to the
// seller's "Uncategorized" category and its direct children move up to its
// parent, all in one transaction.
func (s *CatalogService) DeleteCategory(ctx context.Context, actor domain.Actor, id int64) (*CategoryDeletion, error) {
	if err := requireSeller(actor); err != nil {
		return nil, err
	}
	result := &CategoryDeletion{DeletedID: id}
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		if err := tx.LockSeller(ctx, actor.ID); err != nil {
			return err
		}
		category, err := tx.GetCategoryByID(ctx, id)
		if err != nil {
			return err
		}
		if category.SellerID != actor.ID {
			return permissionDeniedf("category %d belongs to another seller", id)
		}
		if category.IsSentinel() {
			return invalidOperationf("the %q category cannot be deleted", domain.UncategorizedName)
		}
		sentinel, err := tx.GetOrCreateSentinelCategory(ctx, actor.ID)
		if err != nil {
			return err
		}
		result.SentinelID = sentinel.ID
		if result.MovedProducts, err = tx.ReassignProducts(ctx, id, sentinel.ID); err != nil {
			return err
		}
		if result.ReparentedChildren, err = tx.ReparentChildren(ctx, id, category.ParentID); err != nil {
			return err
		}
		return tx.DeleteCategory(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("delete category %d: %w", id, err)
	}
	log.Info("category deleted",
		"category_id", id, "sentinel_id", result.SentinelID,
		"moved_products", result.MovedProducts, "reparented", result.ReparentedChildren)
	return result, nil
}

// --- Products ---

// resolveCategory returns the category a product of sellerID should use:
// the sentinel when none is given on create.
func resolveCategory(ctx context.Context, tx store.Repository, sellerID int64, categoryID *int64, defaultToSentinel bool) (*int64, error) {
	if categoryID == nil {
		if !defaultToSentinel {
			return nil, nil
		}
		sentinel, err := tx.GetOrCreateSentinelCategory(ctx, sellerID)
		if err != nil {
			return nil, err
		}
		return &sentinel.ID, nil
	}
	category, err := tx.GetCategoryByID(ctx, *categoryID)
	if err != nil {
		return nil, err
	}
	if category.SellerID != sellerID {
		return nil, invalidOperationf("category %d belongs to another seller", category.ID)
	}
	return &category.ID, nil
}

func (s *CatalogService) loadOwnedProduct(ctx context.Context, repo store.Repository, actor domain.Actor, id int64) (*domain.Product, error) {
	if err := requireSeller(actor); err != nil {
		return nil, err
	}
	product, err := repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.SellerID != actor.ID {
		return nil, permissionDeniedf("product %d belongs to another seller", id)
	}
	return product, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor domain.Actor, in ProductInput) (*domain.Product, error) {
	if err := requireSeller(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	var created *domain.Product
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		categoryID, err := resolveCategory(ctx, tx, actor.ID, in.CategoryID, true)
		if err != nil {
			return err
		}
		created, err = tx.CreateProduct(ctx, &domain.Product{
			Name:          in.Name,
			Description:   in.Description,
			Price:         in.Price,
			SizeUnit:      in.SizeUnit,
			StockQuantity: in.StockQuantity,
			SellerID:      actor.ID,
			CategoryID:    categoryID,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	log.Info("product created", "product_id", created.ID, "seller_id", actor.ID)
	return created, nil
}

// UpdateProduct replaces the editable fields; a nil CategoryID clears it.
func (s *CatalogService) UpdateProduct(ctx context.Context, actor domain.Actor, id int64, in ProductInput) (*domain.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var updated *domain.Product
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		product, err := s.loadOwnedProduct(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		categoryID, err := resolveCategory(ctx, tx, actor.ID, in.CategoryID, false)
		if err != nil {
			return err
		}
		product.Name = in.Name
		product.Description = in.Description
		product.Price = in.Price
		product.SizeUnit = in.SizeUnit
		product.StockQuantity = in.StockQuantity
		product.CategoryID = categoryID
		updated, err = tx.UpdateProduct(ctx, product)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	return updated, nil
}

// DeleteProduct removes the product and its images. Remote image objects are
// removed after the rows are gone; failures there are only logged.
func (s *CatalogService) DeleteProduct(ctx context.Context, actor domain.Actor, id int64) error {
	var images []domain.ProductImage
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		if _, err := s.loadOwnedProduct(ctx, tx, actor, id); err != nil {
			return err
		}
		var err error
		if images, err = tx.ListProductImages(ctx, id); err != nil {
			return err
		}
		return tx.DeleteProduct(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	for _, img := range images {
		s.discardMedia(ctx, img.PublicID)
	}
	log.Info("product deleted", "product_id", id, "images", len(images))
	return nil
}

// SetProductImage stores upload in image slot (0-based). An occupied slot is
// replaced; a free slot appends while the product has fewer than four images.
func (s *CatalogService) SetProductImage(ctx context.Context, actor domain.Actor, productID int64, slot int, upload Upload) (*domain.ProductImage, error) {
	if slot < 0 || slot >= domain.MaxImagesPerOwner {
		return nil, validationErrorf("image slot must be between 0 and %d", domain.MaxImagesPerOwner-1)
	}
	key, err := upload.objectKey()
	if err != nil {
		return nil, err
	}
	if _, err := s.loadOwnedProduct(ctx, s.repo, actor, productID); err != nil {
		return nil, fmt.Errorf("set product image: %w", err)
	}
	images, err := s.repo.ListProductImages(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("set product image: %w", err)
	}
	if slot >= len(images) && len(images) >= domain.MaxImagesPerOwner {
		return nil, invalidOperationf("product %d already has %d images", productID, domain.MaxImagesPerOwner)
	}

	obj, err := s.media.Put(ctx, upload.Body, "products", key)
	if err != nil {
		return nil, fmt.Errorf("set product image: %w", err)
	}

	var (
		saved    *domain.ProductImage
		replaced *string
	)
	err = s.repo.WithTx(ctx, func(tx store.Repository) error {
		if err := tx.LockSeller(ctx, actor.ID); err != nil {
			return err
		}
		current, err := tx.ListProductImages(ctx, productID)
		if err != nil {
			return err
		}
		if slot < len(current) {
			img := current[slot]
			replaced = img.PublicID
			img.ImageURL = obj.URL
			img.PublicID = &obj.Handle
			if err := tx.UpdateProductImage(ctx, &img); err != nil {
				return err
			}
			saved = &img
			return nil
		}
		if len(current) >= domain.MaxImagesPerOwner {
			return invalidOperationf("product %d already has %d images", productID, domain.MaxImagesPerOwner)
		}
		saved, err = tx.CreateProductImage(ctx, &domain.ProductImage{
			ProductID: productID,
			ImageURL:  obj.URL,
			PublicID:  &obj.Handle,
		})
		return err
	})
	if err != nil {
		s.discardMedia(ctx, &obj.Handle)
		return nil, fmt.Errorf("set product image: %w", err)
	}
	s.discardMedia(ctx, replaced)
	return saved, nil
}

func (s *CatalogService) DeleteProductImage(ctx context.Context, actor domain.Actor, imageID int64) error {
	var publicID *string
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		img, err := tx.GetProductImageByID(ctx, imageID)
		if err != nil {
			return err
		}
		if _, err := s.loadOwnedProduct(ctx, tx, actor, img.ProductID); err != nil {
			return err
		}
		publicID = img.PublicID
		return tx.DeleteProductImage(ctx, imageID)
	})
	if err != nil {
		return fmt.Errorf("delete product image %d: %w", imageID, err)
	}
	s.discardMedia(ctx, publicID)
	return nil
}

// discardMedia deletes a remote object, logging instead of failing.
func (s *CatalogService) discardMedia(ctx context.Context, handle *string) {
	if handle == nil || *handle == "" {
		return
	}
	if err := s.media.Delete(ctx, *handle); err != nil {
		log.Warn("failed to delete media object", "handle", *handle, "err", err)
	}
}

// --- Read models ---

func (s *CatalogService) GetDashboard(ctx context.Context, actor domain.Actor) (*Dashboard, error) {
	if err := requireSeller(actor); err != nil {
		return nil, err
	}
	products, err := s.repo.ListProductsBySeller(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	categories, err := s.repo.ListCategoriesBySeller(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return &Dashboard{
		Products:      products,
		Categories:    buildCategoryTree(categories),
		ParentChoices: parentChoices(categories, nil),
	}, nil
}

func (s *CatalogService) GetStorefront(ctx context.Context, sellerID int64) (*Storefront, error) {
	seller, err := s.repo.GetUserByID(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("storefront: %w", err)
	}
	if seller.Role != domain.RoleSeller {
		return nil, fmt.Errorf("storefront: user %d is not a seller: %w", sellerID, domain.ErrNotFound)
	}
	profile, err := s.repo.GetOrCreateSellerProfile(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("storefront: %w", err)
	}
	products, err := s.repo.ListProductsBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("storefront: %w", err)
	}
	categories, err := s.repo.ListCategoriesBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("storefront: %w", err)
	}
	return &Storefront{
		Seller:     *seller,
		Profile:    profile,
		Products:   products,
		Categories: buildCategoryTree(categories),
	}, nil
}

// GetProductDetail loads a product for viewer, which is nil for anonymous visitors.
func (s *CatalogService) GetProductDetail(ctx context.Context, viewer *domain.Actor, productID int64) (*ProductDetail, error) {
	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product detail: %w", err)
	}
	seller, err := s.repo.GetUserByID(ctx, product.SellerID)
	if err != nil {
		return nil, fmt.Errorf("product detail: %w", err)
	}
	images, err := s.repo.ListProductImages(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product detail: %w", err)
	}
	return &ProductDetail{
		Product:      *product,
		Seller:       *seller,
		Images:       images,
		IsSellerView: viewer != nil && viewer.ID == product.SellerID,
	}, nil
}
