package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only!!")

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := NewIssuer(testSigningKey, time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return iss
}

func runGuard(t *testing.T, iss *Issuer, header, draftID string) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(draftID)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, DraftIDFromContext(c.Request().Context()))
	}
	return c, RequireDraftSession(iss, "id")(handler)(c)
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %d, got nil error", code)
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestNewIssuer_ShortKey(t *testing.T) {
	if _, err := NewIssuer([]byte("short"), time.Hour); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestIssueAndParse(t *testing.T) {
	iss := newTestIssuer(t)
	tok, exp, err := iss.Issue("draft-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry in the past: %v", exp)
	}

	claims, err := iss.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.DraftID != "draft-1" || claims.Subject != "draft-1" {
		t.Errorf("unexpected claims %+v", claims)
	}
	if claims.ID == "" {
		t.Error("expected a token id")
	}
}

func TestParse_Expired(t *testing.T) {
	iss := newTestIssuer(t)
	issued := time.Now().Add(-2 * time.Hour)
	iss.now = func() time.Time { return issued }
	tok, _, err := iss.Issue("draft-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	iss.now = time.Now
	if _, err := iss.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParse_WrongKeyOrMethod(t *testing.T) {
	iss := newTestIssuer(t)
	other, _ := NewIssuer([]byte(strings.Repeat("k", 40)), time.Hour)
	tok, _, _ := other.Issue("draft-1")
	if _, err := iss.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong key: expected ErrInvalidToken, got %v", err)
	}

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		DraftID: "draft-1",
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := iss.Parse(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("alg none: expected ErrInvalidToken, got %v", err)
	}
}

func TestParse_MissingDraftID(t *testing.T) {
	iss := newTestIssuer(t)
	claims := SessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    DefaultIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	if _, err := iss.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRequireDraftSession_MissingHeader(t *testing.T) {
	_, err := runGuard(t, newTestIssuer(t), "", "draft-1")
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestRequireDraftSession_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
	}

	iss := newTestIssuer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runGuard(t, iss, tt.header, "draft-1")
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestRequireDraftSession_OtherDraft(t *testing.T) {
	iss := newTestIssuer(t)
	tok, _, _ := iss.Issue("draft-1")
	_, err := runGuard(t, iss, "Bearer "+tok, "draft-2")
	expectStatus(t, err, http.StatusForbidden)
}

func TestRequireDraftSession_Valid(t *testing.T) {
	iss := newTestIssuer(t)
	tok, _, _ := iss.Issue("draft-1")
	c, err := runGuard(t, iss, "bearer "+tok, "draft-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.Get("draft_id"); got != "draft-1" {
		t.Errorf("expected draft_id on context, got %v", got)
	}
	rec := c.Response().Writer.(*httptest.ResponseRecorder)
	if rec.Body.String() != "draft-1" {
		t.Errorf("expected draft id in request context, got %q", rec.Body.String())
	}
}
