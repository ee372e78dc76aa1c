package sequence

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dentalcare/clinic/internal/platform/auth"
	"github.com/dentalcare/clinic/pkg/apperr"
)

type Handler struct {
	gen *Generator
}

func NewHandler(gen *Generator) *Handler {
	return &Handler{gen: gen}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/sequences", auth.RequireRole(auth.RoleReceptionist, auth.RoleDentist, auth.RoleStaff))
	g.GET("/:kind/peek", h.Peek)
}

// Peek lets booking forms pre-fill the identifier the next record will get.
func (h *Handler) Peek(c echo.Context) error {
	kind, err := ParseKind(c.Param("kind"))
	if err != nil {
		return apperr.HTTPError(err)
	}
	id, err := h.gen.Peek(c.Request().Context(), kind)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"kind": string(kind), "next": id})
}
