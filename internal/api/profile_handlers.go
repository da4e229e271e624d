package api

import (
	"net/http"

	"marketplace-service/internal/service"
)

// --- Seller Profile Handlers ---

func (h *HTTPHandler) GetSellerProfile(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := urlParamID(w, r, "sellerId")
	if !ok {
		return
	}
	view, err := h.accounts.GetSellerProfile(r.Context(), optionalActor(r.Context()), sellerID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to retrieve seller profile")
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

type SellerProfileInput struct {
	ShopName    string `json:"shop_name" validate:"required,max=140"`
	About       string `json:"about" validate:"max=200"`
	PhoneNumber string `json:"phone_number" validate:"max=16"`
	Location    string `json:"location" validate:"required,max=140"`
	OpenHours   string `json:"open_hours" validate:"max=50"`
}

func (h *HTTPHandler) UpdateSellerProfile(w http.ResponseWriter, r *http.Request) {
	var input SellerProfileInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	actor, _ := ActorFromContext(r.Context())

	profile, err := h.accounts.UpdateSellerProfile(r.Context(), actor, service.SellerProfileInput{
		ShopName:    input.ShopName,
		About:       input.About,
		PhoneNumber: input.PhoneNumber,
		Location:    input.Location,
		OpenHours:   input.OpenHours,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update seller profile")
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

func (h *HTTPHandler) SetShopLogo(w http.ResponseWriter, r *http.Request) {
	upload, cleanup, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()
	actor, _ := ActorFromContext(r.Context())

	profile, err := h.accounts.SetShopLogo(r.Context(), actor, upload)
	if err != nil {
		respondWithServiceError(w, err, "Failed to store shop logo")
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

func (h *HTTPHandler) SetSellerImage(w http.ResponseWriter, r *http.Request) {
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

	image, err := h.accounts.SetSellerImage(r.Context(), actor, slot, upload)
	if err != nil {
		respondWithServiceError(w, err, "Failed to store seller image")
		return
	}
	respondWithJSON(w, http.StatusOK, image)
}

// --- Buyer Profile Handlers ---

func (h *HTTPHandler) GetBuyerProfile(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	profile, err := h.accounts.GetBuyerProfile(r.Context(), actor)
	if err != nil {
		respondWithServiceError(w, err, "Failed to retrieve buyer profile")
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

type BuyerProfileInput struct {
	FullName       string `json:"full_name" validate:"max=140"`
	BillingAddress string `json:"billing_address" validate:"max=255"`
	City           string `json:"city" validate:"max=100"`
	PostalCode     string `json:"postal_code" validate:"max=20"`
	Country        string `json:"country" validate:"max=100"`
	PaymentMethod  string `json:"payment_method" validate:"max=50"`
}

func (h *HTTPHandler) UpdateBuyerProfile(w http.ResponseWriter, r *http.Request) {
	var input BuyerProfileInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	actor, _ := ActorFromContext(r.Context())

	profile, err := h.accounts.UpdateBuyerProfile(r.Context(), actor, service.BuyerProfileInput{
		FullName:       input.FullName,
		BillingAddress: input.BillingAddress,
		City:           input.City,
		PostalCode:     input.PostalCode,
		Country:        input.Country,
		PaymentMethod:  input.PaymentMethod,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update buyer profile")
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

func (h *HTTPHandler) SetBuyerProfileImage(w http.ResponseWriter, r *http.Request) {
	upload, cleanup, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()
	actor, _ := ActorFromContext(r.Context())

	profile, err := h.accounts.SetBuyerProfileImage(r.Context(), actor, upload)
	if err != nil {
		respondWithServiceError(w, err, "Failed to store profile image")
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}
