package blobstore

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	store ImageStore
}

func NewHandler(store ImageStore) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts GET /media/:id on the root router. Image ids are
// unguessable uuids, so the route is public like the CDN URLs it replaces.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/media/:id", h.Serve)
}

func (h *Handler) Serve(c echo.Context) error {
	rc, meta, err := h.store.Open(c.Request().Context(), c.Param("id"))
	if err != nil {
		return HTTPError(err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(meta.Size, 10))
	return c.Stream(http.StatusOK, meta.ContentType, rc)
}

// FromForm stores the multipart file in field and returns its record.
func FromForm(c echo.Context, store ImageStore, field, purpose string) (*Stored, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s: file is required", field))
	}
	if fh.Size > MaxImageSize {
		return nil, HTTPError(ErrFileTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	defer f.Close()

	stored, err := store.Upload(c.Request().Context(), Image{FileName: fh.Filename, Purpose: purpose}, f)
	if err != nil {
		return nil, HTTPError(err)
	}
	return stored, nil
}

// HTTPError maps store errors onto HTTP status codes.
func HTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrImageNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ErrInvalidContentType), errors.Is(err, ErrEmptyFile):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
