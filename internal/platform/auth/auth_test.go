package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/apperr"
	"github.com/medrec/medrec/internal/platform/authz"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Str0ngPass!word", false},
		{"too short", "Sh0rt!pw", true},
		{"no upper", "l0ngpassword!here", true},
		{"no lower", "L0NGPASSWORD!HERE", true},
		{"no digit", "LongPassword!Here", true},
		{"no special", "L0ngPasswordHere", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if tc.wantErr {
				if !apperr.Is(err, apperr.KindValidation) {
					t.Errorf("expected validation error, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Str0ngPass!word")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "Str0ngPass!word" {
		t.Fatal("hash must not equal the password")
	}
	if !VerifyPassword(hash, "Str0ngPass!word") {
		t.Error("correct password must verify")
	}
	if VerifyPassword(hash, "WrongPass!word1") {
		t.Error("wrong password must not verify")
	}
}

func testIdentity() Identity {
	facility := uuid.New()
	return Identity{
		ID:         uuid.New(),
		Email:      "dr.dupont@example.org",
		Role:       authz.RoleClinician,
		GivenName:  "Jean",
		FamilyName: "Dupont",
		FacilityID: &facility,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	id := testIdentity()

	token, err := issuer.Issue(id)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	actor, err := claims.Actor()
	if err != nil {
		t.Fatalf("actor: %v", err)
	}
	if actor.ID != id.ID {
		t.Errorf("actor ID = %s, want %s", actor.ID, id.ID)
	}
	if actor.Role != authz.RoleClinician {
		t.Errorf("actor role = %s, want clinician", actor.Role)
	}
	if actor.FacilityID == nil || *actor.FacilityID != *id.FacilityID {
		t.Error("actor facility must match the issued identity")
	}
	if claims.Email != id.Email || claims.GivenName != "Jean" || claims.FamilyName != "Dupont" {
		t.Error("identity claims must survive the round trip")
	}
}

func TestTokenVerifyFailures(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	id := testIdentity()

	t.Run("wrong secret", func(t *testing.T) {
		token, err := issuer.Issue(id)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		other := NewTokenIssuer("another-secret", time.Hour)
		if _, err := other.Verify(token); err == nil {
			t.Fatal("expected verification failure under a different secret")
		}
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewTokenIssuer("test-secret", -time.Minute)
		token, err := expired.Issue(id)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if _, err := issuer.Verify(token); err == nil {
			t.Fatal("expected verification failure for expired token")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := issuer.Verify("not.a.token"); err == nil {
			t.Fatal("expected verification failure for malformed token")
		}
	})
}

func TestMiddleware(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	e := echo.New()

	handler := func(c echo.Context) error {
		actor, ok := ActorFrom(c)
		if !ok {
			t.Fatal("expected actor on context")
		}
		return c.String(http.StatusOK, actor.Email)
	}

	t.Run("valid token", func(t *testing.T) {
		token, err := issuer.Issue(testIdentity())
		if err != nil {
			t.Fatalf("issue: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := Middleware(issuer)(handler)(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		c := e.NewContext(req, httptest.NewRecorder())

		err := Middleware(issuer)(handler)(c)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer bogus")
		c := e.NewContext(req, httptest.NewRecorder())

		err := Middleware(issuer)(handler)(c)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	newCtx := func(actor *authz.Actor) echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		if actor != nil {
			c.Set(actorKey, *actor)
		}
		return c
	}

	t.Run("admin passes", func(t *testing.T) {
		c := newCtx(&authz.Actor{ID: uuid.New(), Role: authz.RoleAdmin})
		if err := RequireAdmin()(handler)(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("clinician is rejected", func(t *testing.T) {
		c := newCtx(&authz.Actor{ID: uuid.New(), Role: authz.RoleClinician})
		err := RequireAdmin()(handler)(c)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %v", err)
		}
	})

	t.Run("unauthenticated is rejected", func(t *testing.T) {
		c := newCtx(nil)
		err := RequireAdmin()(handler)(c)
		he, ok := err.(*echo.HTTPError)
		if !ok || he.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %v", err)
		}
	})
}
