package db

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTenantContext(target string) (echo.Context, *http.Request) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), req
}

func TestExtractTenantID_FromHeader(t *testing.T) {
	c, req := newTenantContext("/")
	req.Header.Set(ClinicHeader, "smile_dental")

	tid := extractTenantID(c, "default")
	if tid != "smile_dental" {
		t.Errorf("expected smile_dental, got %s", tid)
	}
}

func TestExtractTenantID_FromQuery(t *testing.T) {
	c, _ := newTenantContext("/?clinic_id=north")

	tid := extractTenantID(c, "default")
	if tid != "north" {
		t.Errorf("expected north, got %s", tid)
	}
}

func TestExtractTenantID_FromJWT(t *testing.T) {
	c, _ := newTenantContext("/")
	c.Set("jwt_tenant_id", "jwt_clinic")

	tid := extractTenantID(c, "default")
	if tid != "jwt_clinic" {
		t.Errorf("expected jwt_clinic, got %s", tid)
	}
}

func TestExtractTenantID_Default(t *testing.T) {
	c, _ := newTenantContext("/")

	tid := extractTenantID(c, "default")
	if tid != "default" {
		t.Errorf("expected default, got %s", tid)
	}
}

func TestExtractTenantID_Priority(t *testing.T) {
	c, req := newTenantContext("/?clinic_id=query")
	req.Header.Set(ClinicHeader, "header")
	c.Set("jwt_tenant_id", "jwt")

	// JWT takes highest priority
	if tid := extractTenantID(c, "default"); tid != "jwt" {
		t.Errorf("expected jwt (highest priority), got %s", tid)
	}
}

func TestExtractTenantID_HeaderPriorityOverQuery(t *testing.T) {
	c, req := newTenantContext("/?clinic_id=query_clinic")
	req.Header.Set(ClinicHeader, "header_clinic")

	if tid := extractTenantID(c, "default"); tid != "header_clinic" {
		t.Errorf("expected header_clinic, got %s", tid)
	}
}

func TestExtractTenantID_EmptyJWT(t *testing.T) {
	c, req := newTenantContext("/")
	req.Header.Set(ClinicHeader, "header_clinic")
	c.Set("jwt_tenant_id", "")

	if tid := extractTenantID(c, "default"); tid != "header_clinic" {
		t.Errorf("expected header_clinic when JWT is empty, got %s", tid)
	}
}

func TestTenantIDPattern(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"abc", true},
		{"ABC", true},
		{"clinic_1", true},
		{"A1B2C3", true},
		{"a-b", false},
		{"a.b", false},
		{"a b", false},
		{"a/b", false},
		{"", false},
		{"'; DROP TABLE", false},
		{"clinic@1", false},
	}

	for _, tt := range tests {
		got := tenantIDPattern.MatchString(tt.input)
		if got != tt.valid {
			t.Errorf("tenantIDPattern.MatchString(%q) = %v, want %v", tt.input, got, tt.valid)
		}
	}
}

func TestSchemaName(t *testing.T) {
	if got := SchemaName("smile"); got != "clinic_smile" {
		t.Errorf("expected clinic_smile, got %s", got)
	}
}

func TestConnFromContext_Nil(t *testing.T) {
	if conn := ConnFromContext(context.Background()); conn != nil {
		t.Error("expected nil conn from empty context")
	}
}

func TestConnFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBConnKey, "not-a-conn")
	if conn := ConnFromContext(ctx); conn != nil {
		t.Error("expected nil when context value is wrong type")
	}
}

func TestTenantFromContext(t *testing.T) {
	ctx := WithTenant(context.Background(), "test_clinic")
	if tid := TenantFromContext(ctx); tid != "test_clinic" {
		t.Errorf("expected test_clinic, got %s", tid)
	}
	if empty := TenantFromContext(context.Background()); empty != "" {
		t.Errorf("expected empty string, got %s", empty)
	}
	wrong := context.WithValue(context.Background(), TenantIDKey, 12345)
	if tid := TenantFromContext(wrong); tid != "" {
		t.Errorf("expected empty string for wrong type, got %q", tid)
	}
}

func TestCreateTenantSchema_InvalidIDs(t *testing.T) {
	for _, id := range []string{"invalid-id!", "clinic.with.dot", "cli nic", "drop;table"} {
		if err := CreateTenantSchema(context.Background(), nil, id, nil); err == nil {
			t.Errorf("expected error for invalid clinic ID %q", id)
		}
	}
}

func TestStaticTenant(t *testing.T) {
	c, req := newTenantContext("/")
	req.Header.Set(ClinicHeader, "smile")

	var seen string
	h := StaticTenant("default")(func(c echo.Context) error {
		seen = TenantFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "smile" {
		t.Errorf("expected smile, got %q", seen)
	}
}

func TestStaticTenant_RejectsInvalid(t *testing.T) {
	c, req := newTenantContext("/")
	req.Header.Set(ClinicHeader, "bad-id")

	h := StaticTenant("default")(func(c echo.Context) error { return nil })
	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHealthSkipper(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/health", true},
		{"/health/db", true},
		{"/healthz", false},
		{"/api/v1/auth/login", false},
		{"/api/v1/auth/otp/request", false},
		{"/api/v1/appointments", false},
	}
	for _, tt := range tests {
		c, _ := newTenantContext(tt.path)
		if got := HealthSkipper(c); got != tt.want {
			t.Errorf("HealthSkipper(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestTenantMiddleware_SkipsHealthOnly(t *testing.T) {
	mw := TenantMiddleware(nil, "default", HealthSkipper)

	c, _ := newTenantContext("/health")
	called := false
	if err := mw(func(c echo.Context) error { called = true; return nil })(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected /health to bypass clinic resolution")
	}

	// A public auth route still resolves its clinic, so a bad identifier is
	// rejected before any connection is taken.
	c, req := newTenantContext("/api/v1/auth/login")
	req.Header.Set(ClinicHeader, "bad-id")
	called = false
	err := mw(func(c echo.Context) error { called = true; return nil })(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
	if called {
		t.Error("login must not reach the handler without a clinic")
	}
}
