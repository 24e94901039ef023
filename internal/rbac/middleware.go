package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mycrm-app/mycrm/internal/observability"
	"github.com/mycrm-app/mycrm/internal/platform/httpx"
	"github.com/mycrm-app/mycrm/internal/shared"
)

// ActorSource resolves an authenticated user ID into an Actor.
type ActorSource interface {
	ActorByID(ctx context.Context, userID int64) (Actor, error)
}

// Guard enforces authorization on HTTP routes. Every middleware it produces
// resolves the session user into an Actor, answers through the evaluator, and
// either stores the actor in the request context or responds with a problem
// document.
type Guard struct {
	actors  ActorSource
	eval    *Evaluator
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewGuard constructs a Guard. metrics may be nil.
func NewGuard(actors ActorSource, eval *Evaluator, metrics *observability.Metrics, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{actors: actors, eval: eval, metrics: metrics, logger: logger}
}

type actorContextKey struct{}

// ContextWithActor stores the resolved actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor resolved by a Guard middleware upstream.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// RequireAuth resolves the session user into an actor without any further
// check. Routes behind it can rely on ActorFromContext.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := g.resolveActor(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
	})
}

// RequirePermission guards a route behind one qualified permission. Superusers
// pass before any tenant resolution; everyone else is checked within the
// request's company scope.
func (g *Guard) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := g.resolveActor(w, r)
			if !ok {
				return
			}
			if actor.IsSuperuser {
				g.metrics.AuthzDecision("permission", "allowed")
				next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
				return
			}
			companyID, ok := g.resolveCompany(w, r, actor)
			if !ok {
				g.metrics.AuthzDecision("permission", "denied")
				return
			}
			allowed, err := g.eval.IsAllowed(r.Context(), actor, permission, companyID)
			if err != nil {
				g.fail(w, r, err)
				return
			}
			if !allowed {
				g.metrics.AuthzDecision("permission", "denied")
				g.deny(w, r, actor, &PermissionDeniedError{Permission: permission})
				return
			}
			g.metrics.AuthzDecision("permission", "allowed")
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}

// RequireRole guards a route behind holding one of the given role types.
func (g *Guard) RequireRole(types ...RoleType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := g.resolveActor(w, r)
			if !ok {
				return
			}
			if actor.IsSuperuser {
				g.metrics.AuthzDecision("role", "allowed")
				next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
				return
			}
			companyID, ok := g.resolveCompany(w, r, actor)
			if !ok {
				g.metrics.AuthzDecision("role", "denied")
				return
			}
			for _, t := range types {
				held, err := g.eval.HasRole(r.Context(), actor, t, companyID)
				if err != nil {
					g.fail(w, r, err)
					return
				}
				if held {
					g.metrics.AuthzDecision("role", "allowed")
					next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
					return
				}
			}
			g.metrics.AuthzDecision("role", "denied")
			var want RoleType
			if len(types) > 0 {
				want = types[0]
			}
			g.deny(w, r, actor, &InsufficientRoleError{Role: want})
		})
	}
}

// RequireMinRank guards a route behind "this role or above" in the hierarchy.
func (g *Guard) RequireMinRank(t RoleType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := g.resolveActor(w, r)
			if !ok {
				return
			}
			if actor.IsSuperuser {
				g.metrics.AuthzDecision("rank", "allowed")
				next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
				return
			}
			companyID, ok := g.resolveCompany(w, r, actor)
			if !ok {
				g.metrics.AuthzDecision("rank", "denied")
				return
			}
			held, err := g.eval.HasMinRank(r.Context(), actor, t, companyID)
			if err != nil {
				g.fail(w, r, err)
				return
			}
			if !held {
				g.metrics.AuthzDecision("rank", "denied")
				g.deny(w, r, actor, &InsufficientRoleError{Role: t})
				return
			}
			g.metrics.AuthzDecision("rank", "allowed")
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}

// resolveActor maps the session to an Actor, responding 401 when no
// authenticated user is present.
func (g *Guard) resolveActor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", ErrAuthenticationRequired.Error())
		return Actor{}, false
	}
	userID, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", ErrAuthenticationRequired.Error())
		return Actor{}, false
	}
	actor, err := g.actors.ActorByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", ErrAuthenticationRequired.Error())
			return Actor{}, false
		}
		g.fail(w, r, err)
		return Actor{}, false
	}
	return actor, true
}

// resolveCompany establishes the tenant scope for a check: an explicit scope
// on the request context wins, the actor's own company binding is the
// fallback. Non-superusers with neither are refused.
func (g *Guard) resolveCompany(w http.ResponseWriter, r *http.Request, actor Actor) (*int64, bool) {
	if id, ok := shared.CompanyFromContext(r.Context()); ok {
		return &id, true
	}
	if actor.CompanyID != nil {
		return actor.CompanyID, true
	}
	httpx.Problem(w, http.StatusForbidden, "Forbidden", ErrCompanyContextRequired.Error())
	return nil, false
}

func (g *Guard) deny(w http.ResponseWriter, r *http.Request, actor Actor, reason error) {
	g.logger.Info("access denied",
		slog.Int64("user_id", actor.ID),
		slog.String("path", r.URL.Path),
		slog.String("reason", reason.Error()))
	httpx.Problem(w, http.StatusForbidden, "Forbidden", reason.Error())
}

func (g *Guard) fail(w http.ResponseWriter, r *http.Request, err error) {
	g.logger.Error("authorization check failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	httpx.RespondError(w, err)
}
