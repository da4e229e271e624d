package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"

	"marketplace-service/internal/domain"
	"marketplace-service/internal/service"
)

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	accounts    AccountService
	catalog     CatalogService
	messaging   MessagingService
	sessions    sessions.Store
	sessionName string
	maxUpload   int64
	ping        func(ctx context.Context) error
	validate    *validator.Validate
}

// HandlerOptions configures an HTTPHandler.
type HandlerOptions struct {
	SessionName    string
	MaxUploadBytes int64
	// Ping reports database health for /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(accounts AccountService, catalog CatalogService, messaging MessagingService, store sessions.Store, opts HandlerOptions) *HTTPHandler {
	if opts.SessionName == "" {
		opts.SessionName = "marketplace-session"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &HTTPHandler{
		accounts:    accounts,
		catalog:     catalog,
		messaging:   messaging,
		sessions:    store,
		sessionName: opts.SessionName,
		maxUpload:   opts.MaxUploadBytes,
		ping:        opts.Ping,
		validate:    validator.New(),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Error("failed to encode JSON response", "err", err)
		}
	}
}

// respondWithServiceError maps the domain error kinds onto HTTP statuses.
// Unknown errors are logged and reported as a generic 500 with fallback.
func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrValidation):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidOperation):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		log.Error(fallback, "err", err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *HTTPHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}

func urlParamID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid "+name+" format")
		return 0, false
	}
	return id, true
}

func urlParamSlot(w http.ResponseWriter, r *http.Request) (int, bool) {
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil || slot < 0 || slot >= domain.MaxImagesPerOwner {
		respondWithError(w, http.StatusBadRequest, "Invalid image slot")
		return 0, false
	}
	return slot, true
}

// readUpload extracts the "image" file of a multipart request. The caller
// must close the returned closer.
func (h *HTTPHandler) readUpload(w http.ResponseWriter, r *http.Request) (service.Upload, func(), bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return service.Upload{}, nil, false
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing image file")
		return service.Upload{}, nil, false
	}
	cleanup := func() {
		file.Close()
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}
	return service.Upload{Body: file, Filename: header.Filename}, cleanup, true
}

// --- Misc Handlers ---

func (h *HTTPHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			log.Error("health check: database ping failed", "err", err)
			respondWithError(w, http.StatusServiceUnavailable, "Database connection error")
			return
		}
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) Cart(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"items": []interface{}{}, "mode": "demo"})
}

func (h *HTTPHandler) PaymentMethod(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"method": "demo"})
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.LoadActor)

		r.Get("/healthz", h.Healthz)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.With(h.RequireActor).Get("/me", h.Me)
		})

		r.Get("/sellers", h.ListSellers)
		r.Route("/sellers/{sellerId}", func(r chi.Router) {
			r.Get("/", h.GetStorefront)
			r.Get("/profile", h.GetSellerProfile)
		})
		r.Get("/products/{productId}", h.GetProductDetail)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireActor)

			r.Get("/inbox", h.Inbox)
			r.Route("/messages/{productId}/{userId}", func(r chi.Router) {
				r.Get("/", h.GetConversation)
				r.Post("/", h.PostMessage)
			})
			r.Get("/cart", h.Cart)
			r.Get("/payment-method", h.PaymentMethod)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireRole(domain.RoleBuyer))

			r.Post("/products/{productId}/message-seller", h.SendToSeller)
			r.Route("/buyer/profile", func(r chi.Router) {
				r.Get("/", h.GetBuyerProfile)
				r.Put("/", h.UpdateBuyerProfile)
				r.Put("/image", h.SetBuyerProfileImage)
			})
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(h.RequireRole(domain.RoleSeller))

			r.Get("/dashboard", h.Dashboard)
			r.Route("/profile", func(r chi.Router) {
				r.Put("/", h.UpdateSellerProfile)
				r.Put("/logo", h.SetShopLogo)
				r.Put("/images/{slot}", h.SetSellerImage)
			})
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.ListCategories)
				r.Post("/", h.CreateCategory)
				r.Get("/parent-choices", h.ListParentChoices)
				r.Route("/{categoryId}", func(r chi.Router) {
					r.Put("/", h.UpdateCategory)
					r.Delete("/", h.DeleteCategory)
				})
			})
			r.Route("/products", func(r chi.Router) {
				r.Post("/", h.CreateProduct)
				r.Route("/{productId}", func(r chi.Router) {
					r.Put("/", h.UpdateProduct)
					r.Delete("/", h.DeleteProduct)
					r.Put("/images/{slot}", h.SetProductImage)
				})
			})
			r.Delete("/product-images/{imageId}", h.DeleteProductImage)
		})
	})
}
