package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hongminglow/story-be/internal/auth"
	"github.com/hongminglow/story-be/internal/http/respond"
	"github.com/hongminglow/story-be/internal/middleware"
	"github.com/hongminglow/story-be/internal/models/dto"
	"github.com/hongminglow/story-be/internal/storage"
)

const invalidCredentialsMessage = "Invalid credentials"

// AuthHandler owns the sign-in, sign-up and profile endpoints.
type AuthHandler struct {
	authn   *auth.Authenticator
	bearer  *middleware.Bearer
	limiter *middleware.RateLimit
	logger  *slog.Logger
}

// NewAuthHandler constructs the handler. limiter may be nil.
func NewAuthHandler(authn *auth.Authenticator, bearer *middleware.Bearer, limiter *middleware.RateLimit, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authn: authn, bearer: bearer, limiter: limiter, logger: logger}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/signin", h.limiter.Wrap("signin", h.handleSignIn))
	mux.HandleFunc("POST /auth/signup", h.limiter.Wrap("signup", h.handleSignUp))
	mux.HandleFunc("GET /auth/profile", h.bearer.Require(h.handleProfile))
}

func (h *AuthHandler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req dto.SignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	token, err := h.authn.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		var credErr *auth.CredentialsError
		switch {
		case errors.Is(err, auth.ErrMissingCredentials):
			respond.Error(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &credErr):
			h.logger.Warn("sign-in rejected", "reason", credErr.Reason)
			respond.Error(w, http.StatusUnauthorized, invalidCredentialsMessage)
		default:
			h.logger.Error("sign-in failed", "error", err)
			respond.Error(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	respond.JSON(w, http.StatusOK, dto.SignInResponse{AccessToken: token.AccessToken})
}

func (h *AuthHandler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req dto.SignUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	account, err := h.authn.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidRegistration):
			respond.Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, storage.ErrAlreadyExists):
			respond.Error(w, http.StatusConflict, "account already exists")
		default:
			h.logger.Error("sign-up failed", "error", err)
			respond.Error(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	respond.JSON(w, http.StatusCreated, account)
}

func (h *AuthHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	respond.JSON(w, http.StatusOK, claims.User)
}
