package scheduling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentalcare/clinic/internal/platform/auth"
	"github.com/dentalcare/clinic/pkg/pagination"
)

func newTestRouter(roles ...string) (*echo.Echo, *Service) {
	svc, _, _ := newTestService()
	e := echo.New()
	api := e.Group("/api/v1", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := context.WithValue(c.Request().Context(), auth.UserRolesKey, roles)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(svc).RegisterRoutes(api)
	return e, svc
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_AddAppointmentAlias(t *testing.T) {
	e, _ := newTestRouter(auth.RoleReceptionist)
	rec := doJSON(e, http.MethodPost, "/api/v1/appointments/addAppointment",
		`{"patientName":"Asha Rao","appointmentType":"New","phone":"9800000001"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var a Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.UHID != "UHID-001" || a.AppID != "1" {
		t.Errorf("got uhid=%q appId=%q", a.UHID, a.AppID)
	}
	if a.Receipts == nil || a.Invoices == nil {
		t.Error("expected empty, non-null back-reference arrays")
	}
}

func TestHandler_CreateAppointment_ValidationIs400(t *testing.T) {
	e, _ := newTestRouter(auth.RoleReceptionist)
	rec := doJSON(e, http.MethodPost, "/api/v1/appointments",
		`{"appointmentType":"Revisited","uhid":"UHID-404"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_StaffCannotBook(t *testing.T) {
	e, _ := newTestRouter(auth.RoleStaff)
	rec := doJSON(e, http.MethodPost, "/api/v1/appointments", `{"patientName":"Asha Rao"}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestHandler_AppointmentListAlias(t *testing.T) {
	e, svc := newTestRouter(auth.RoleStaff)
	for _, name := range []string{"A", "B", "C"} {
		svc.CreateAppointment(context.Background(), &Appointment{PatientName: name})
	}

	rec := doJSON(e, http.MethodGet, "/api/v1/appointments/appointmentList?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp pagination.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 3 || !resp.HasMore {
		t.Errorf("total=%d hasMore=%v", resp.Total, resp.HasMore)
	}
	if items, ok := resp.Data.([]interface{}); !ok || len(items) != 2 {
		t.Errorf("expected a page of 2, got %v", resp.Data)
	}
}

func TestHandler_ListAppointments_BadFilter(t *testing.T) {
	e, _ := newTestRouter(auth.RoleDentist)
	for _, q := range []string{"branch_id=nope", "date=15-03-2024", "status=bogus"} {
		rec := doJSON(e, http.MethodGet, "/api/v1/appointments?"+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestHandler_GetAppointment(t *testing.T) {
	e, svc := newTestRouter(auth.RoleDentist)
	a := &Appointment{PatientName: "Asha Rao"}
	svc.CreateAppointment(context.Background(), a)

	if rec := doJSON(e, http.MethodGet, "/api/v1/appointments/"+a.ID.String(), ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodGet, "/api/v1/appointments/app/"+a.AppID, ""); rec.Code != http.StatusOK {
		t.Errorf("by appId: expected 200, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodGet, "/api/v1/appointments/"+uuid.New().String(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodGet, "/api/v1/appointments/not-a-uuid", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_PatientLookupAndHistory(t *testing.T) {
	e, svc := newTestRouter(auth.RoleReceptionist)
	a := &Appointment{PatientName: "Asha Rao", Phone: "9800000001"}
	svc.CreateAppointment(context.Background(), a)

	rec := doJSON(e, http.MethodGet, "/api/v1/patients/"+a.UHID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got Appointment
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Phone != "9800000001" {
		t.Errorf("phone = %q", got.Phone)
	}

	if rec := doJSON(e, http.MethodGet, "/api/v1/patients/"+a.UHID+"/history", ""); rec.Code != http.StatusOK {
		t.Errorf("history: expected 200, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodGet, "/api/v1/patients/UHID-404/history", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown history: expected 404, got %d", rec.Code)
	}
}

func TestHandler_UpdateVitals(t *testing.T) {
	e, svc := newTestRouter(auth.RoleDentist)
	a := &Appointment{PatientName: "Asha Rao"}
	svc.CreateAppointment(context.Background(), a)

	rec := doJSON(e, http.MethodPatch, "/api/v1/appointments/"+a.ID.String()+"/vitals",
		`{"bloodPressure":"118/76","pulse":70}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got, _ := svc.GetAppointment(context.Background(), a.ID)
	if got.BloodPressure != "118/76" {
		t.Errorf("bloodPressure = %q", got.BloodPressure)
	}
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	e, svc := newTestRouter(auth.RoleAdmin)
	a := &Appointment{PatientName: "Asha Rao"}
	svc.CreateAppointment(context.Background(), a)

	rec := doJSON(e, http.MethodPut, "/api/v1/appointments/"+a.ID.String(),
		`{"patientName":"Asha R.","status":"completed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec := doJSON(e, http.MethodDelete, "/api/v1/appointments/"+a.ID.String(), ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodDelete, "/api/v1/appointments/"+a.ID.String(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rec.Code)
	}
}
