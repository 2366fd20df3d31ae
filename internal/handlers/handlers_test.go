package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fleets-server/internal/auth"
	"fleets-server/internal/catalog"
	"fleets-server/internal/middleware"
	"fleets-server/internal/models"
	"fleets-server/internal/shared/config"
	"fleets-server/internal/shared/cookies"
	"fleets-server/internal/shared/logger"
	"fleets-server/internal/store"
	"fleets-server/internal/store/memory"
	"fleets-server/internal/user"
)

const testCatalog = `
factions:
  - id: 1
    name: Terran
    initial_primary_resource: 500
    initial_secondary_resource: 250
    max_planets: 3
unit_types:
  - id: 1
    name: Ships
units:
  - id: 1
    name: Fighter
    type_id: 1
    health: 10
`

func setup(t *testing.T) (*user.Service, *auth.Service, *config.Config) {
	t.Helper()
	c, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("catalog.Parse() error = %v", err)
	}
	log := logger.Discard()
	st := memory.New(log)
	ctx := context.Background()
	if err := st.InTx(ctx, func(tx store.Tx) error {
		return tx.Planets().Save(ctx, &models.Planet{Name: "Terra"})
	}); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	cfg := &config.Config{
		Auth:     config.AuthConfig{JWTSecret: "0123456789abcdef0123456789abcdef", TokenExpiration: time.Hour, CookieSameSite: "lax"},
		Frontend: config.FrontendConfig{URL: "http://localhost:3000"},
	}
	return user.NewService(c, st, log), auth.NewService(cfg.Auth, log), cfg
}

func TestSignupThenMe(t *testing.T) {
	users, authService, cfg := setup(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(`{"username":"ada","faction_id":1,"home_planet_id":1}`))
	NewSignupHandler(users, authService, cfg).ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, want 201, body %s", w.Code, w.Body.String())
	}

	var signup SignupResponse
	if err := json.NewDecoder(w.Body).Decode(&signup); err != nil {
		t.Fatalf("decode signup: %v", err)
	}
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == cookies.AuthCookieName {
			session = c
		}
	}
	if session == nil || session.Value != signup.Token {
		t.Fatalf("auth cookie = %+v, want the issued token", session)
	}

	me := middleware.NewAuthMiddleware(authService).Require(NewMeHandler(users))
	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	r.AddCookie(session)
	me.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d, want 200", w.Code)
	}
	var u models.User
	if err := json.NewDecoder(w.Body).Decode(&u); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if u.ID != signup.User.ID || u.PrimaryResource < 500 {
		t.Errorf("me = %+v, want user %d with starting resources", u, signup.User.ID)
	}
}

func TestSignupRejectsTakenPlanet(t *testing.T) {
	users, authService, cfg := setup(t)
	h := NewSignupHandler(users, authService, cfg)

	codes := make([]int, 0, 2)
	for _, name := range []string{"ada", "bob"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/users",
			strings.NewReader(`{"username":"`+name+`","faction_id":1,"home_planet_id":1}`)))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusConflict {
		t.Fatalf("codes = %v, want [201 409]", codes)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	_, _, cfg := setup(t)

	w := httptest.NewRecorder()
	NewLogoutHandler(cfg).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == cookies.AuthCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("auth cookie not cleared")
	}
}
