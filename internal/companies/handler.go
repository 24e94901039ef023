package companies

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mycrm-app/mycrm/internal/platform/httpx"
	"github.com/mycrm-app/mycrm/internal/rbac"
	"github.com/mycrm-app/mycrm/internal/shared"
)

// Handler exposes company endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   *rbac.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *rbac.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers company routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(shared.PermViewCompanyProfile))
		r.Get("/", h.listCompanies)
		r.Get("/{id}", h.getCompany)
	})
}

type companyResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	IsActive bool   `json:"is_active"`
}

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.ListCompanies(r.Context())
	if err != nil {
		h.logger.Error("list companies failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]companyResponse, 0, len(companies))
	for _, company := range companies {
		out = append(out, companyResponse{
			ID:       company.ID,
			Name:     company.Name,
			Email:    company.Email,
			Phone:    company.Phone,
			Address:  company.Address,
			IsActive: company.IsActive,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"companies": out})
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid company id")
		return
	}
	company, err := h.service.GetCompany(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, companyResponse{
		ID:       company.ID,
		Name:     company.Name,
		Email:    company.Email,
		Phone:    company.Phone,
		Address:  company.Address,
		IsActive: company.IsActive,
	})
}
