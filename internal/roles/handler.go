package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mycrm-app/mycrm/internal/platform/httpx"
	"github.com/mycrm-app/mycrm/internal/rbac"
	"github.com/mycrm-app/mycrm/internal/shared"
)

// Handler exposes the role management endpoints. Reads about the caller's own
// access only need authentication; everything that touches other users sits
// behind the company admin rank.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     *rbac.Guard
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *rbac.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers role management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuth)
		r.Get("/my-access", h.myAccess)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireMinRank(rbac.RoleCompanyAdmin))
		r.Get("/", h.listRoles)
		r.Get("/overview", h.overview)
		r.Get("/{type}/users", h.usersWithRole)
		r.Get("/history", h.history)
		r.Post("/assignments", h.assign)
		r.Post("/assignments/revoke", h.revoke)
	})
}

type roleResponse struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"role_type"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

type assignmentResponse struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	CompanyID  int64  `json:"company_id"`
	RoleType   string `json:"role_type"`
	AssignedBy *int64 `json:"assigned_by,omitempty"`
	AssignedAt string `json:"assigned_at"`
	IsActive   bool   `json:"is_active"`
	ExpiresAt  string `json:"expires_at,omitempty"`
}

func toAssignmentResponse(a rbac.Assignment) assignmentResponse {
	out := assignmentResponse{
		ID:         a.ID,
		UserID:     a.UserID,
		CompanyID:  a.CompanyID,
		RoleType:   string(a.RoleType),
		AssignedBy: a.AssignedBy,
		AssignedAt: a.AssignedAt.Format(time.RFC3339),
		IsActive:   a.IsActive,
	}
	if a.ExpiresAt != nil {
		out.ExpiresAt = a.ExpiresAt.Format(time.RFC3339)
	}
	return out
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleResponse{
			ID:          role.ID,
			Name:        role.Name,
			Type:        string(role.Type),
			Description: role.Description,
			Permissions: role.Permissions,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

type assignRequest struct {
	UserID    int64  `json:"user_id" validate:"required"`
	CompanyID int64  `json:"company_id" validate:"required"`
	RoleType  string `json:"role_type" validate:"required"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "expires_at must be RFC3339")
			return
		}
		expiresAt = &parsed
	}

	var assignedBy *int64
	if actor, ok := rbac.ActorFromContext(r.Context()); ok {
		assignedBy = &actor.ID
	}

	assignment, created, err := h.service.Assign(r.Context(), req.UserID, req.CompanyID, rbac.RoleType(req.RoleType), assignedBy, expiresAt)
	if err != nil {
		if errors.Is(err, rbac.ErrRoleNotFound) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role type")
			return
		}
		h.logger.Error("assign role failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, toAssignmentResponse(assignment))
}

type revokeRequest struct {
	UserID    int64  `json:"user_id" validate:"required"`
	CompanyID int64  `json:"company_id" validate:"required"`
	RoleType  string `json:"role_type" validate:"required"`
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	var revokedBy *int64
	if actor, ok := rbac.ActorFromContext(r.Context()); ok {
		revokedBy = &actor.ID
	}

	assignment, err := h.service.Revoke(r.Context(), req.UserID, req.CompanyID, rbac.RoleType(req.RoleType), revokedBy)
	if err != nil {
		h.logger.Error("revoke role failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if assignment == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"revoked": false})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"revoked": true, "assignment": toAssignmentResponse(*assignment)})
}

func (h *Handler) usersWithRole(w http.ResponseWriter, r *http.Request) {
	t := rbac.RoleType(chi.URLParam(r, "type"))
	assignments, err := h.service.UsersWithRole(r.Context(), t, h.scopeFor(r))
	if err != nil {
		if errors.Is(err, rbac.ErrRoleNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown role type")
			return
		}
		h.logger.Error("users with role failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]assignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, toAssignmentResponse(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assignments": out})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	entries, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("role history failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	type historyResponse struct {
		ActorID    *int64         `json:"actor_id,omitempty"`
		Action     string         `json:"action"`
		EntityID   string         `json:"entity_id"`
		Meta       map[string]any `json:"meta,omitempty"`
		OccurredAt string         `json:"occurred_at"`
	}
	out := make([]historyResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, historyResponse{
			ActorID:    entry.ActorID,
			Action:     entry.Action,
			EntityID:   entry.EntityID,
			Meta:       entry.Meta,
			OccurredAt: entry.At.Format(time.RFC3339),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (h *Handler) myAccess(w http.ResponseWriter, r *http.Request) {
	actor, ok := rbac.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", rbac.ErrAuthenticationRequired.Error())
		return
	}
	access, err := h.service.MyAccess(r.Context(), actor, h.companyScope(r, actor))
	if err != nil {
		h.logger.Error("my access failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	assignments := make([]assignmentResponse, 0, len(access.Assignments))
	for _, a := range access.Assignments {
		assignments = append(assignments, toAssignmentResponse(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"permissions": access.Permissions,
		"assignments": assignments,
		"max_rank":    access.MaxRank,
	})
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.Overview(r.Context(), h.scopeFor(r))
	if err != nil {
		h.logger.Error("roles overview failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	type summaryResponse struct {
		Type            string `json:"role_type"`
		Name            string `json:"name"`
		Rank            int    `json:"rank"`
		PermissionCount int    `json:"permission_count"`
		ActiveHolders   int    `json:"active_holders"`
	}
	out := make([]summaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, summaryResponse{
			Type:            string(s.Type),
			Name:            s.Name,
			Rank:            s.Rank,
			PermissionCount: s.PermissionCount,
			ActiveHolders:   s.ActiveHolders,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": out})
}

// scopeFor narrows listings to the actor's company unless the actor is a
// superuser.
func (h *Handler) scopeFor(r *http.Request) *int64 {
	actor, ok := rbac.ActorFromContext(r.Context())
	if !ok || actor.IsSuperuser {
		return nil
	}
	return h.companyScope(r, actor)
}

func (h *Handler) companyScope(r *http.Request, actor rbac.Actor) *int64 {
	if id, ok := shared.CompanyFromContext(r.Context()); ok {
		return &id
	}
	return actor.CompanyID
}
