package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"marketplace-service/internal/domain"
	"marketplace-service/internal/service"
)

const sessionUserKey = "userID"

type actorKey struct{}

// ActorFromContext returns the authenticated actor stored by LoadActor.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}

func optionalActor(ctx context.Context) *domain.Actor {
	if actor, ok := ActorFromContext(ctx); ok {
		return &actor
	}
	return nil
}

// LoadActor resolves the session cookie into an actor. Requests without a
// valid session pass through anonymously.
func (h *HTTPHandler) LoadActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := h.sessions.Get(r, h.sessionName)
		if err != nil {
			log.Debug("discarding unreadable session", "err", err)
			next.ServeHTTP(w, r)
			return
		}
		id, ok := session.Values[sessionUserKey].(int64)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		user, err := h.accounts.GetUser(r.Context(), id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				respondWithServiceError(w, err, "Failed to load session user")
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), actorKey{}, user.Actor())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActor rejects anonymous requests.
func (h *HTTPHandler) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ActorFromContext(r.Context()); !ok {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects anonymous requests and actors of any other role.
func (h *HTTPHandler) RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				respondWithError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if actor.Role != role {
				respondWithError(w, http.StatusForbidden, "Only "+string(role)+"s can access this resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// --- Account Handlers ---

type RegisterInput struct {
	Username        string `json:"username" validate:"required,min=3,max=25"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=seller buyer"`
}

func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input RegisterInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	user, err := h.accounts.Register(r.Context(), service.RegisterInput{
		Username:        input.Username,
		Email:           input.Email,
		Password:        input.Password,
		ConfirmPassword: input.ConfirmPassword,
		Role:            domain.Role(input.Role),
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to register")
		return
	}

	respondWithJSON(w, http.StatusCreated, user)
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), input.Email, input.Password)
	if err != nil {
		respondWithServiceError(w, err, "Failed to log in")
		return
	}

	// A stale or tampered cookie still yields a fresh session to write into.
	session, _ := h.sessions.Get(r, h.sessionName)
	session.Values[sessionUserKey] = user.ID
	if err := session.Save(r, w); err != nil {
		log.Error("failed to save session", "user_id", user.ID, "err", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	respondWithJSON(w, http.StatusOK, user)
}

func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, h.sessionName)
	delete(session.Values, sessionUserKey)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		log.Error("failed to clear session", "err", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	user, err := h.accounts.GetUser(r.Context(), actor.ID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to retrieve user")
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}
