package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edugenius/edugenius-api/internal/apperror"
	"github.com/edugenius/edugenius-api/internal/event"
	"github.com/edugenius/edugenius-api/internal/middleware"
	"github.com/edugenius/edugenius-api/internal/model"
	"github.com/edugenius/edugenius-api/internal/provider"
	"github.com/edugenius/edugenius-api/internal/repository"
	"github.com/edugenius/edugenius-api/internal/service"
	"github.com/edugenius/edugenius-api/internal/token"
)

type noopUsers struct{}

func (noopUsers) Create(ctx context.Context, u model.User) (model.User, error) {
	return u, nil
}
func (noopUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return model.User{}, repository.ErrNotFound
}
func (noopUsers) UpdatePassword(ctx context.Context, email, hash string) error { return nil }

type noopMailer struct{}

func (noopMailer) SendResetCode(name, email, code string) error { return nil }

type noopEvents struct{}

func (noopEvents) Publish(ctx context.Context, ev event.AuthEvent) error { return nil }

type guardFixture struct {
	guard  *middleware.Guard
	codec  *token.Codec
	ledger *repository.TokenLedger
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	codec := token.NewCodec("test-access-secret", "test-refresh-secret")
	ledger := repository.NewTokenLedger(rdb)

	auth := service.NewAuthService(service.AuthServiceDeps{
		Users:        noopUsers{},
		Ledger:       ledger,
		Codec:        codec,
		Providers:    provider.NewRegistry(),
		Mailer:       noopMailer{},
		Events:       noopEvents{},
		Logger:       zerolog.Nop(),
		AccessTTL:    15 * time.Minute,
		RefreshTTL:   7 * 24 * time.Hour,
		ResetCodeTTL: 15 * time.Minute,
		BcryptCost:   4,
	})

	return &guardFixture{
		guard:  middleware.NewGuard(codec, ledger, auth, false, 7*24*time.Hour),
		codec:  codec,
		ledger: ledger,
	}
}

// openSession issues a pair with the given access TTL and records it.
func (f *guardFixture) openSession(t *testing.T, email string, accessTTL time.Duration) (access, refresh, jit string) {
	t.Helper()
	jit = uuid.NewString()
	claims := token.Claims{Email: email, Role: "user", RegisterProvider: "local", Jit: jit}

	access, err := f.codec.Issue(claims, token.Access, accessTTL)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	refresh, err = f.codec.Issue(claims, token.Refresh, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if err := f.ledger.Record(context.Background(), email, access, refresh, jit); err != nil {
		t.Fatalf("record: %v", err)
	}
	return access, refresh, jit
}

func runGuard(f *guardFixture, cookies ...*http.Cookie) (echo.Context, *httptest.ResponseRecorder, bool, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	err := f.guard.Authenticate()(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})(c)
	return c, rec, called, err
}

func wantAppError(t *testing.T, err error, kind apperror.Kind, message string) {
	t.Helper()
	var ae *apperror.Error
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want *apperror.Error", err)
	}
	if ae.Kind != kind || ae.Message != message {
		t.Fatalf("got kind=%v msg=%q, want kind=%v msg=%q", ae.Kind, ae.Message, kind, message)
	}
}

func TestGuardAllowsLiveToken(t *testing.T) {
	f := newGuardFixture(t)
	access, _, jit := f.openSession(t, "alice@example.com", 15*time.Minute)

	c, _, called, err := runGuard(f, &http.Cookie{Name: middleware.AccessCookie, Value: access})
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	if !called {
		t.Fatal("handler not reached")
	}

	id, ok := middleware.CurrentUser(c)
	if !ok {
		t.Fatal("no identity attached")
	}
	if id.Email != "alice@example.com" || id.Jit != jit {
		t.Fatalf("identity = %+v", id)
	}
}

func TestGuardRejectsMissingCookie(t *testing.T) {
	f := newGuardFixture(t)
	_, _, called, err := runGuard(f)
	if called {
		t.Fatal("handler reached without a token")
	}
	wantAppError(t, err, apperror.Unauthorized, "Access token is required")
}

func TestGuardRejectsRevokedToken(t *testing.T) {
	f := newGuardFixture(t)
	access, refresh, jit := f.openSession(t, "alice@example.com", 15*time.Minute)
	if err := f.ledger.RevokeSession(context.Background(), "alice@example.com", access, refresh, jit); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	_, _, called, err := runGuard(f, &http.Cookie{Name: middleware.AccessCookie, Value: access})
	if called {
		t.Fatal("handler reached with a revoked token")
	}
	wantAppError(t, err, apperror.Unauthorized, "Access token is revoked")
}

func TestGuardRejectsGarbageToken(t *testing.T) {
	f := newGuardFixture(t)
	_, _, called, err := runGuard(f, &http.Cookie{Name: middleware.AccessCookie, Value: "not-a-token"})
	if called {
		t.Fatal("handler reached with a garbage token")
	}
	wantAppError(t, err, apperror.Unauthorized, "Invalid access token")
}

func TestGuardSilentlyRefreshesExpiredToken(t *testing.T) {
	f := newGuardFixture(t)
	access, refresh, jit := f.openSession(t, "alice@example.com", -time.Minute)

	c, rec, called, err := runGuard(f,
		&http.Cookie{Name: middleware.AccessCookie, Value: access},
		&http.Cookie{Name: middleware.RefreshCookie, Value: refresh})
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	if !called {
		t.Fatal("handler not reached after silent refresh")
	}

	id, ok := middleware.CurrentUser(c)
	if !ok {
		t.Fatal("no identity attached")
	}
	if id.Jit == jit {
		t.Fatal("refresh kept the old jit")
	}

	// Fresh cookies for both tokens.
	var sawAccess, sawRefresh bool
	for _, ck := range rec.Result().Cookies() {
		switch ck.Name {
		case middleware.AccessCookie:
			sawAccess = true
			if ck.Value == access {
				t.Fatal("access cookie was not rotated")
			}
		case middleware.RefreshCookie:
			sawRefresh = true
			if ck.Value == refresh {
				t.Fatal("refresh cookie was not rotated")
			}
		}
	}
	if !sawAccess || !sawRefresh {
		t.Fatal("rotated cookies not set")
	}

	// The old pair is revoked.
	if ok, _ := f.ledger.Exists(context.Background(), "alice@example.com", refresh, jit); ok {
		t.Fatal("stale refresh token still authorized")
	}
}

func TestGuardRejectsExpiredTokenWithoutRefreshCookie(t *testing.T) {
	f := newGuardFixture(t)
	access, _, _ := f.openSession(t, "alice@example.com", -time.Minute)

	_, _, called, err := runGuard(f, &http.Cookie{Name: middleware.AccessCookie, Value: access})
	if called {
		t.Fatal("handler reached without a refresh token")
	}
	wantAppError(t, err, apperror.Unauthorized, "Invalid refresh token")
}

func TestGuardRejectsRevokedRefreshToken(t *testing.T) {
	f := newGuardFixture(t)
	access, refresh, jit := f.openSession(t, "alice@example.com", -time.Minute)
	if err := f.ledger.RevokeSession(context.Background(), "alice@example.com", access, refresh, jit); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	_, _, called, err := runGuard(f,
		&http.Cookie{Name: middleware.AccessCookie, Value: access},
		&http.Cookie{Name: middleware.RefreshCookie, Value: refresh})
	if called {
		t.Fatal("handler reached with a revoked refresh token")
	}
	wantAppError(t, err, apperror.Unauthorized, "Refresh token is revoked")
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	run := func(identity *middleware.Identity, roles ...string) (bool, error) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if identity != nil {
			c.Set("auth_identity", *identity)
		}
		called := false
		err := middleware.RequireRole(roles...)(func(c echo.Context) error {
			called = true
			return c.NoContent(http.StatusOK)
		})(c)
		return called, err
	}

	// Matching role passes.
	called, err := run(&middleware.Identity{Email: "a@b.c", Role: "admin"}, "admin")
	if err != nil || !called {
		t.Fatalf("admin rejected: called=%v err=%v", called, err)
	}

	// Wrong role is forbidden.
	called, err = run(&middleware.Identity{Email: "a@b.c", Role: "user"}, "admin")
	if called {
		t.Fatal("handler reached with the wrong role")
	}
	wantAppError(t, err, apperror.Forbidden, "You do not have permission to access this resource.")

	// No identity at all.
	called, err = run(nil, "admin")
	if called {
		t.Fatal("handler reached without an identity")
	}
	wantAppError(t, err, apperror.Unauthorized, "Authentication is needed before authorization")
}
