package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/mycrm-app/mycrm/internal/auth"
	"github.com/mycrm-app/mycrm/internal/shared"
	_ "github.com/mycrm-app/mycrm/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type commitWriter struct {
	http.ResponseWriter
	commit    func() error
	committed bool
	err       error
}

func (w *commitWriter) WriteHeader(statusCode int) {
	if !w.committed {
		w.committed = true
		w.err = w.commit()
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *commitWriter) Write(data []byte) (int, error) {
	if !w.committed {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

func newAuthServer(t *testing.T, repo auth.Repository) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	handler := auth.NewHandler(nil, auth.NewService(repo), sessionManager, shared.NewCSRFManager("csrf-secret"))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessionManager.Load(req.Context(), req)
			if err != nil {
				t.Fatalf("load session: %v", err)
			}
			ctx := shared.ContextWithSession(req.Context(), sess)
			req = req.WithContext(ctx)
			// Commit before the first header write so Set-Cookie reaches
			// the client, matching the app's session middleware.
			wrapped := &commitWriter{
				ResponseWriter: w,
				commit: func() error {
					return sessionManager.Commit(ctx, w, req, sess)
				},
			}
			next.ServeHTTP(wrapped, req)
			if !wrapped.committed {
				wrapped.err = sessionManager.Commit(ctx, w, req, sess)
			}
			if wrapped.err != nil {
				t.Fatalf("commit session: %v", wrapped.err)
			}
		})
	})
	handler.MountRoutes(r)
	return r, sessionManager
}

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{ID: 1, Email: "user@test.local", Name: "Test User", PasswordHash: string(hashed), IsActive: true}
}

func TestLoginSuccess(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correctpass")}
	server, _ := newAuthServer(t, repo)

	body := strings.NewReader(`{"email":"user@test.local","password":"correctpass"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	res := httptest.NewRecorder()
	server.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", res.Code, res.Body.String())
	}
	var payload struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ID != 1 || payload.Email != "user@test.local" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if len(res.Result().Cookies()) == 0 {
		t.Fatalf("expected session cookie to be set")
	}
	if len(repo.sessions) != 1 {
		t.Fatalf("expected session record, got %d", len(repo.sessions))
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	server, _ := newAuthServer(t, &stubRepo{user: activeUser(t, "correctpass")})

	body := strings.NewReader(`{"email":"user@test.local","password":"wrongpass1"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	res := httptest.NewRecorder()
	server.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	user := activeUser(t, "correctpass")
	user.IsActive = false
	server, _ := newAuthServer(t, &stubRepo{user: user})

	body := strings.NewReader(`{"email":"user@test.local","password":"correctpass"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	res := httptest.NewRecorder()
	server.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", res.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	server, _ := newAuthServer(t, &stubRepo{})

	body := strings.NewReader(`{"email":"not-an-email","password":"short"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	res := httptest.NewRecorder()
	server.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}
}

func TestCSRFTokenIsStable(t *testing.T) {
	server, _ := newAuthServer(t, &stubRepo{})

	first := httptest.NewRecorder()
	server.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/csrf", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", first.Code)
	}
	var payload struct {
		Token string `json:"csrf_token"`
	}
	if err := json.Unmarshal(first.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Token == "" {
		t.Fatal("expected a csrf token")
	}

	second := httptest.NewRequest(http.MethodGet, "/csrf", nil)
	for _, cookie := range first.Result().Cookies() {
		second.AddCookie(cookie)
	}
	res := httptest.NewRecorder()
	server.ServeHTTP(res, second)
	var repeat struct {
		Token string `json:"csrf_token"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &repeat); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if repeat.Token != payload.Token {
		t.Fatalf("expected the same token for the same session, got %q then %q", payload.Token, repeat.Token)
	}
}

func TestLogout(t *testing.T) {
	server, _ := newAuthServer(t, &stubRepo{user: activeUser(t, "correctpass")})

	login := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"user@test.local","password":"correctpass"}`))
	loginRes := httptest.NewRecorder()
	server.ServeHTTP(loginRes, login)
	if loginRes.Code != http.StatusOK {
		t.Fatalf("login failed: %d", loginRes.Code)
	}

	logout := httptest.NewRequest(http.MethodPost, "/logout", nil)
	for _, cookie := range loginRes.Result().Cookies() {
		logout.AddCookie(cookie)
	}
	logoutRes := httptest.NewRecorder()
	server.ServeHTTP(logoutRes, logout)

	if logoutRes.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", logoutRes.Code)
	}
}
