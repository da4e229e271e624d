package api

import (
	"net/http"

	"marketplace-service/internal/domain"
	"marketplace-service/internal/service"
)

// InboxResponse is the JSON shape of an inbox for either role.
type InboxResponse struct {
	Role     domain.Role `json:"role"`
	Products interface{} `json:"products"`
}

func inboxResponse(view service.InboxView) InboxResponse {
	switch v := view.(type) {
	case *service.SellerInboxView:
		return InboxResponse{Role: v.Role(), Products: v.Threads}
	case *service.BuyerInboxView:
		return InboxResponse{Role: v.Role(), Products: v.Threads}
	default:
		return InboxResponse{Role: view.Role(), Products: []struct{}{}}
	}
}

func (h *HTTPHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	view, err := h.messaging.BuildInbox(r.Context(), actor)
	if err != nil {
		respondWithServiceError(w, err, "Failed to build inbox")
		return
	}
	respondWithJSON(w, http.StatusOK, inboxResponse(view))
}

func (h *HTTPHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	productID, ok := urlParamID(w, r, "productId")
	if !ok {
		return
	}
	counterpartID, ok := urlParamID(w, r, "userId")
	if !ok {
		return
	}
	actor, _ := ActorFromContext(r.Context())

	messages, err := h.messaging.GetConversation(r.Context(), actor, productID, counterpartID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to retrieve conversation")
		return
	}
	respondWithJSON(w, http.StatusOK, messages)
}

// MessageInput defines the expected input for sending a message.
type MessageInput struct {
	Content string `json:"content" validate:"required,max=1000"`
}

func (h *HTTPHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	productID, ok := urlParamID(w, r, "productId")
	if !ok {
		return
	}
	counterpartID, ok := urlParamID(w, r, "userId")
	if !ok {
		return
	}
	var input MessageInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	actor, _ := ActorFromContext(r.Context())

	msg, err := h.messaging.PostMessage(r.Context(), actor, productID, counterpartID, input.Content)
	if err != nil {
		respondWithServiceError(w, err, "Failed to send message")
		return
	}
	respondWithJSON(w, http.StatusCreated, msg)
}

func (h *HTTPHandler) SendToSeller(w http.ResponseWriter, r *http.Request) {
	productID, ok := urlParamID(w, r, "productId")
	if !ok {
		return
	}
	var input MessageInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	actor, _ := ActorFromContext(r.Context())

	msg, err := h.messaging.SendToSeller(r.Context(), actor, productID, input.Content)
	if err != nil {
		respondWithServiceError(w, err, "Failed to send message")
		return
	}
	respondWithJSON(w, http.StatusCreated, msg)
}
