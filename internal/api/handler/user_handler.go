package handler

import (
	"encoding/json"
	"net/http"
	"trailwise/internal/api/middleware"
	"trailwise/internal/app/service"
	"trailwise/internal/common"

	"github.com/go-chi/chi/v5"
)

// UserHandler serves the routes that require an authenticated session.
type UserHandler struct {
	authService *service.AuthService
}

func NewUserHandler(authService *service.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.me)
	r.Patch("/update-password", h.updatePassword)
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}
	user.HashedPassword = ""
	common.RespondWithJSON(w, http.StatusOK, common.SuccessResponse{
		Status: "success",
		Data:   map[string]interface{}{"user": user},
	})
}

func (h *UserHandler) updatePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	resp, err := h.authService.UpdatePassword(r.Context(), user.ID, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.SuccessResponse{
		Status: "success",
		Token:  resp.Token,
	})
}
