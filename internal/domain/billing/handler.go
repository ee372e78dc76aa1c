package billing

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentalcare/clinic/internal/platform/auth"
	"github.com/dentalcare/clinic/pkg/apperr"
	"github.com/dentalcare/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RoleReceptionist, auth.RoleDentist, auth.RoleStaff))
	readGroup.GET("/receipts", h.ListReceipts)
	readGroup.GET("/receipts/number/:number", h.GetReceiptByNumber)
	readGroup.GET("/receipts/:id", h.GetReceipt)
	readGroup.GET("/appointments/:id/receipts", h.ListAppointmentReceipts)
	readGroup.GET("/invoices", h.ListInvoices)
	readGroup.GET("/invoices/number/:number", h.GetInvoiceByNumber)
	readGroup.GET("/invoices/:id", h.GetInvoice)
	readGroup.GET("/appointments/:id/invoices", h.ListAppointmentInvoices)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleReceptionist))
	writeGroup.POST("/receipts", h.CreateReceipt)
	writeGroup.DELETE("/receipts/:id", h.DeleteReceipt)
	writeGroup.POST("/invoices", h.CreateInvoice)
	writeGroup.DELETE("/invoices/:id", h.DeleteInvoice)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func filterFromQuery(c echo.Context) (ListFilter, error) {
	f := ListFilter{UHID: c.QueryParam("uhid")}
	if v := c.QueryParam("appointment_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid appointment_id")
		}
		f.AppointmentID = &id
	}
	return f, nil
}

// -- Receipt Handlers --

func (h *Handler) CreateReceipt(c echo.Context) error {
	var r Receipt
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateReceipt(c.Request().Context(), &r); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetReceipt(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.GetReceipt(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) GetReceiptByNumber(c echo.Context) error {
	r, err := h.svc.GetReceiptByNumber(c.Request().Context(), c.Param("number"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListReceipts(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	return h.listReceipts(c, f)
}

func (h *Handler) ListAppointmentReceipts(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	return h.listReceipts(c, ListFilter{AppointmentID: &id})
}

func (h *Handler) listReceipts(c echo.Context, f ListFilter) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListReceipts(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteReceipt(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteReceipt(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Invoice Handlers --

func (h *Handler) CreateInvoice(c echo.Context) error {
	var inv Invoice
	if err := c.Bind(&inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateInvoice(c.Request().Context(), &inv); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) GetInvoice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) GetInvoiceByNumber(c echo.Context) error {
	inv, err := h.svc.GetInvoiceByNumber(c.Request().Context(), c.Param("number"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	return h.listInvoices(c, f)
}

func (h *Handler) ListAppointmentInvoices(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	return h.listInvoices(c, ListFilter{AppointmentID: &id})
}

func (h *Handler) listInvoices(c echo.Context, f ListFilter) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListInvoices(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteInvoice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteInvoice(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
