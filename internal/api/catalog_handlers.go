package api

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"marketplace-service/internal/service"
)

// --- Browse Handlers ---

func (h *HTTPHandler) ListSellers(w http.ResponseWriter, r *http.Request) {
	sellers, err := h.accounts.ListSellers(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to retrieve sellers")
		return
	}
	respondWithJSON(w, http.StatusOK, sellers)
}

func (h *HTTPHandler) GetStorefront(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := urlParamID(w, r, "sellerId")
	if !ok {
		return
	}
	storefront, err := h.catalog.GetStorefront(r.Context(), sellerID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to retrieve storefront")
		return
	}
	respondWithJSON(w, http.StatusOK, storefront)
}

func (h *HTTPHandler) GetProductDetail(w http.ResponseWriter, r *http.Request) {
	productID, ok := urlParamID(w, r, "productId")
	if !ok {
		return
	}
	detail, err := h.catalog.GetProductDetail(r.Context(), optionalActor(r.Context()), productID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to retrieve product")
		return
	}
	respondWithJSON(w, http.StatusOK, detail)
}

func (h *HTTPHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	dashboard, err := h.catalog.GetDashboard(r.Context(), actor)
	if err != nil {
		respondWithServiceError(w, err, "Failed to load dashboard")
		return
	}
	respondWithJSON(w, http.StatusOK, dashboard)
}

// --- Category Handlers ---

// CategoryInput defines the expected input for creating or updating a category.
type CategoryInput struct {
	Name     string `json:"name" validate:"required,max=140"`
	ParentID *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	nodes, err := h.catalog.ListCategoriesForDashboard(r.Context(), actor.ID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to retrieve categories")
		return
	}
	respondWithJSON(w, http.StatusOK, nodes)
}

// ListParentChoices serves the parent options for a category form. The
// optional "exclude" query parameter names the category being edited.
func (h *HTTPHandler) ListParentChoices(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	var exclude *int64
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid exclude parameter")
			return
		}
		exclude = &id
	}
	choices, err := h.catalog.ListAsParentChoices(r.Context(), actor.ID, exclude)
	if err != nil {
		respondWithServiceError(w, err, "Failed to retrieve parent choices")
		return
	}
	respondWithJSON(w, http.StatusOK, choices)
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	actor, _ := ActorFromContext(r.Context())

	category, err := h.catalog.CreateCategory(r.Context(), actor, service.CategoryInput{Name: input.Name, ParentID: input.ParentID})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create category")
		return
	}
	respondWithJSON(w, http.StatusCreated, category)
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := urlParamID(w, r, "categoryId")
	if !ok {
		return
	}
	var input CategoryInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	actor, _ := ActorFromContext(r.Context())

	category, err := h.catalog.UpdateCategory(r.Context(), actor, categoryID, service.CategoryInput{Name: input.Name, ParentID: input.ParentID})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update category")
		return
	}
	respondWithJSON(w, http.StatusOK, category)
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := urlParamID(w, r, "categoryId")
	if !ok {
		return
	}
	actor, _ := ActorFromContext(r.Context())

	result, err := h.catalog.DeleteCategory(r.Context(), actor, categoryID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to delete category")
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// --- Product Handlers ---

// ProductInput defines the expected input for creating or updating a product.
type ProductInput struct {
	Name          string          `json:"name" validate:"required,max=140"`
	Description   *string         `json:"description" validate:"omitempty,max=500"`
	Price         decimal.Decimal `json:"price"`
	SizeUnit      *string         `json:"size_unit" validate:"omitempty,max=20"`
	StockQuantity int32           `json:"stock_quantity" validate:"gte=0"`
	CategoryID    *int64          `json:"category_id" validate:"omitempty,gt=0"`
}

func (in ProductInput) toService() service.ProductInput {
	return service.ProductInput{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		SizeUnit:      in.SizeUnit,
		StockQuantity: in.StockQuantity,
		CategoryID:    in.CategoryID,
	}
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	actor, _ := ActorFromContext(r.Context())

	product, err := h.catalog.CreateProduct(r.Context(), actor, input.toService())
	if err != nil {
		respondWithServiceError(w, err, "Failed to create product")
		return
	}
	respondWithJSON(w, http.StatusCreated, product)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := urlParamID(w, r, "productId")
	if !ok {
		return
	}
	var input ProductInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	actor, _ := ActorFromContext(r.Context())

	product, err := h.catalog.UpdateProduct(r.Context(), actor, productID, input.toService())
	if err != nil {
		respondWithServiceError(w, err, "Failed to update product")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := urlParamID(w, r, "productId")
	if !ok {
		return
	}
	actor, _ := ActorFromContext(r.Context())

	if err := h.catalog.DeleteProduct(r.Context(), actor, productID); err != nil {
		respondWithServiceError(w, err, "Failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) SetProductImage(w http.ResponseWriter, r *http.Request) {
	productID, ok := urlParamID(w, r, "productId")
	if !ok {
		return
	}
	slot, ok := urlParamSlot(w, r)
	if !ok {
		return
	}
	upload, cleanup, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()
	actor, _ := ActorFromContext(r.Context())

	image, err := h.catalog.SetProductImage(r.Context(), actor, productID, slot, upload)
	if err != nil {
		respondWithServiceError(w, err, "Failed to store product image")
		return
	}
	respondWithJSON(w, http.StatusOK, image)
}

func (h *HTTPHandler) DeleteProductImage(w http.ResponseWriter, r *http.Request) {
	imageID, ok := urlParamID(w, r, "imageId")
	if !ok {
		return
	}
	actor, _ := ActorFromContext(r.Context())

	if err := h.catalog.DeleteProductImage(r.Context(), actor, imageID); err != nil {
		respondWithServiceError(w, err, "Failed to delete product image")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
