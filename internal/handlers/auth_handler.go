package handlers

import (
	"net/http"
	"strings"

	"visualroutine/internal/models"
	"visualroutine/internal/security"
	"visualroutine/internal/service"
)

// AuthHandler handles caregiver sign-up and sign-in
type AuthHandler struct {
	authService          *service.AuthService
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	states               *security.StateSigner
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string, states *security.StateSigner) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		states:               states,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	HasChildPIN bool   `json:"hasChildPin"`
}

type sessionResponse struct {
	*service.Session
	User userResponse `json:"user"`
}

func newUserResponse(user *models.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		HasChildPIN: user.HasChildPIN(),
	}
}

func newSessionResponse(session *service.Session, user *models.User) sessionResponse {
	return sessionResponse{Session: session, User: newUserResponse(user)}
}

// Register creates a caregiver account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	session, user, err := h.authService.Register(r.Context(), strings.TrimSpace(req.Email), req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		respondWithServiceError(w, "Error registering user", err, nil)
		return
	}

	respondJSON(w, http.StatusCreated, newSessionResponse(session, user))
}

// Login signs a caregiver in
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	session, user, err := h.authService.Login(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		respondWithServiceError(w, "Error logging in", err, nil)
		return
	}

	respondJSON(w, http.StatusOK, newSessionResponse(session, user))
}

// Me returns the signed-in caregiver
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	respondJSON(w, http.StatusOK, newUserResponse(user))
}
