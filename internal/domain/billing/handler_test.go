package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/dentalcare/clinic/internal/platform/auth"
	"github.com/dentalcare/clinic/pkg/pagination"
)

func newTestRouter(env *testEnv, roles ...string) *echo.Echo {
	e := echo.New()
	api := e.Group("/api/v1", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), auth.UserRolesKey, roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(env.svc).RegisterRoutes(api)
	return e
}

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_ReceiptFlow(t *testing.T) {
	env := newTestEnv()
	appt := env.book(t)
	e := newTestRouter(env, auth.RoleReceptionist)

	rec := serve(e, http.MethodPost, "/api/v1/receipts", `{"appointmentId":"`+appt.ID.String()+`","amount":750,"paymentMode":"card"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var r Receipt
	json.Unmarshal(rec.Body.Bytes(), &r)
	if r.ReceiptNumber != "RCT-00001" {
		t.Errorf("receiptNumber = %q", r.ReceiptNumber)
	}

	rec = serve(e, http.MethodGet, "/api/v1/appointments/"+appt.ID.String()+"/receipts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var page pagination.Response
	json.Unmarshal(rec.Body.Bytes(), &page)
	if page.Total != 1 {
		t.Errorf("total = %d, want 1", page.Total)
	}

	if rec := serve(e, http.MethodGet, "/api/v1/receipts/number/RCT-00001", ""); rec.Code != http.StatusOK {
		t.Errorf("by number: expected 200, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodDelete, "/api/v1/receipts/"+r.ID.String(), ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", rec.Code)
	}
}

func TestHandler_DentistCannotBill(t *testing.T) {
	env := newTestEnv()
	appt := env.book(t)
	e := newTestRouter(env, auth.RoleDentist)

	rec := serve(e, http.MethodPost, "/api/v1/invoices",
		`{"appointmentId":"`+appt.ID.String()+`","items":[{"description":"Scaling","unitPrice":500}]}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/api/v1/invoices", ""); rec.Code != http.StatusOK {
		t.Errorf("list: expected 200, got %d", rec.Code)
	}
}

func TestHandler_InvoiceErrors(t *testing.T) {
	env := newTestEnv()
	e := newTestRouter(env, auth.RoleAdmin)

	if rec := serve(e, http.MethodPost, "/api/v1/invoices", `{"items":[{"description":"Scaling","unitPrice":500}]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing appointment: expected 400, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/api/v1/invoices/INV-1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/api/v1/invoices/number/INV-00404", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown number: expected 404, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/api/v1/invoices?appointment_id=x", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad filter: expected 400, got %d", rec.Code)
	}
}
