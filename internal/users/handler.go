package users

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mycrm-app/mycrm/internal/platform/httpx"
	"github.com/mycrm-app/mycrm/internal/rbac"
	"github.com/mycrm-app/mycrm/internal/shared"
)

// Handler exposes user management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   *rbac.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *rbac.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(shared.PermViewUser))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
	})
}

type userResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	IsSuperuser bool   `json:"is_superuser"`
	IsActive    bool   `json:"is_active"`
	CompanyID   *int64 `json:"company_id"`
	CreatedAt   string `json:"created_at"`
}

func toUserResponse(user User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		IsSuperuser: user.IsSuperuser,
		IsActive:    user.IsActive,
		CompanyID:   user.CompanyID,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	companyID := scopeFor(r)
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", 20)
	users, pagination, err := h.service.ListUsers(r.Context(), companyID, page, perPage)
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, user := range users {
		out = append(out, toUserResponse(user))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users": out,
		"pagination": map[string]int{
			"page":        pagination.Page,
			"per_page":    pagination.PerPage,
			"total":       pagination.Total,
			"total_pages": pagination.TotalPages,
		},
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(user))
}

// scopeFor narrows listings to the actor's company unless the actor is a
// superuser, who sees across tenants.
func scopeFor(r *http.Request) *int64 {
	actor, ok := rbac.ActorFromContext(r.Context())
	if !ok || actor.IsSuperuser {
		return nil
	}
	return actor.CompanyID
}
