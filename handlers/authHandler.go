package handlers

import (
	"context"
	"net/http"

	"coursequiz/models"
	"coursequiz/services"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type AuthHandler struct {
	service *services.AuthService
	auth    *Authenticator
}

func NewAuthHandler(service *services.AuthService, auth *Authenticator) *AuthHandler {
	return &AuthHandler{service: service, auth: auth}
}

func (h *AuthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/register", h.Register).Methods("POST")
	router.HandleFunc("/auth/admin-register", h.RegisterAdmin).Methods("POST")
	router.HandleFunc("/auth/login", h.Login).Methods("POST")
	router.Handle("/auth/me", h.auth.RequireUser(http.HandlerFunc(h.Me))).Methods("GET")
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.service.Register)
}

func (h *AuthHandler) RegisterAdmin(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.service.RegisterAdmin)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, create func(context.Context, *models.RegisterRequest) (*models.User, error)) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	token, err := h.service.IssueToken(user)
	if err != nil {
		log.Errorf("Failed to issue token for user %s: %v", user.ID, err)
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	writeJSONResponse(w, http.StatusCreated, models.TokenResponse{AccessToken: token, TokenType: "bearer", User: user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.service.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, token)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), userIDFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, user)
}
