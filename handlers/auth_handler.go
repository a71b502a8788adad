package handlers

import (
	"errors"
	"net/http"

	"github.com/jacoblam121/tournament-arc/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		AdminKey string `json:"admin_key"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.AdminKey == "" {
		badRequestResponse(w, r, errors.New("admin_key is required"))
		return
	}

	token, err := h.authService.Login(r.Context(), input.AdminKey)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"token": token}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
