package admin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentalcare/clinic/internal/platform/auth"
	"github.com/dentalcare/clinic/internal/platform/blobstore"
	"github.com/dentalcare/clinic/pkg/apperr"
	"github.com/dentalcare/clinic/pkg/pagination"
)

type Handler struct {
	svc    *Service
	images blobstore.ImageStore
}

func NewHandler(svc *Service, images blobstore.ImageStore) *Handler {
	return &Handler{svc: svc, images: images}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Public: the auth skipper lets these through without a token.
	api.POST("/auth/login", h.Login)
	api.POST("/auth/otp/request", h.RequestOTP)
	api.POST("/auth/otp/verify", h.VerifyOTP)

	api.GET("/auth/me", h.Me)
	api.POST("/auth/logout", h.Logout)
	api.POST("/users/:id/photo", h.UploadPhoto)

	readGroup := api.Group("", auth.RequireRole(auth.RoleDentist, auth.RoleReceptionist, auth.RoleStaff))
	readGroup.GET("/branches", h.ListBranches)
	readGroup.GET("/branches/:id", h.GetBranch)
	readGroup.GET("/services", h.ListClinicServices)
	readGroup.GET("/services/:id", h.GetClinicService)
	readGroup.GET("/users", h.ListUsers)
	readGroup.GET("/users/:id", h.GetUser)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.POST("/branches", h.CreateBranch)
	adminGroup.PUT("/branches/:id", h.UpdateBranch)
	adminGroup.DELETE("/branches/:id", h.DeleteBranch)
	adminGroup.POST("/branches/:id/letterhead", h.UploadLetterhead)
	adminGroup.POST("/services", h.CreateClinicService)
	adminGroup.PUT("/services/:id", h.UpdateClinicService)
	adminGroup.DELETE("/services/:id", h.DeleteClinicService)
	adminGroup.POST("/users", h.RegisterUser)
	adminGroup.PUT("/users/:id", h.UpdateUser)
	adminGroup.PUT("/users/:id/status", h.SetStatus)
	adminGroup.DELETE("/users/:id", h.DeleteUser)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// signInError maps credential failures to 401/403 and everything else
// through the usual taxonomy.
func signInError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrAccountInactive):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	return apperr.HTTPError(err)
}

func activeOnly(c echo.Context) bool {
	v, _ := strconv.ParseBool(c.QueryParam("active"))
	return v
}

// -- Auth Handlers --

type loginRequest struct {
	// Login is an email address or an account id.
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Login == "" {
		req.Login = req.Email
	}
	sess, err := h.svc.Login(c.Request().Context(), req.Login, req.Password)
	if err != nil {
		return signInError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

type otpRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) RequestOTP(c echo.Context) error {
	var req otpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.RequestOTP(c.Request().Context(), req.Email); err != nil {
		return signInError(err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "sent"})
}

func (h *Handler) VerifyOTP(c echo.Context) error {
	var req otpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.VerifyOTP(c.Request().Context(), req.Email, req.Code, req.NewPassword)
	if err != nil {
		return signInError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) Me(c echo.Context) error {
	u, err := h.svc.Me(c.Request().Context())
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) Logout(c echo.Context) error {
	h.svc.Logout(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

// -- Branch Handlers --

func (h *Handler) CreateBranch(c echo.Context) error {
	var b Branch
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateBranch(c.Request().Context(), &b); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) GetBranch(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	b, err := h.svc.GetBranch(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) ListBranches(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBranches(c.Request().Context(), activeOnly(c), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateBranch(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var b Branch
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b.ID = id
	if err := h.svc.UpdateBranch(c.Request().Context(), &b); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBranch(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteBranch(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UploadLetterhead(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	img, err := blobstore.FromForm(c, h.images, "letterhead", "letterhead")
	if err != nil {
		return err
	}
	b, err := h.svc.SetLetterhead(c.Request().Context(), id, img)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, b)
}

// -- Clinic Service Handlers --

func (h *Handler) CreateClinicService(c echo.Context) error {
	var cs ClinicService
	if err := c.Bind(&cs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateClinicService(c.Request().Context(), &cs); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, cs)
}

func (h *Handler) GetClinicService(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	cs, err := h.svc.GetClinicService(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) ListClinicServices(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListClinicServices(c.Request().Context(), activeOnly(c), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateClinicService(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var cs ClinicService
	if err := c.Bind(&cs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cs.ID = id
	if err := h.svc.UpdateClinicService(c.Request().Context(), &cs); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) DeleteClinicService(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteClinicService(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- User Handlers --

type registerRequest struct {
	User
	Password string `json:"password"`
}

func (h *Handler) RegisterUser(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u := req.User
	if err := h.svc.RegisterUser(c.Request().Context(), &u, req.Password); err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) GetUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) ListUsers(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := UserFilter{Role: c.QueryParam("role"), Status: c.QueryParam("status")}
	if v := c.QueryParam("branch_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid branch_id")
		}
		f.BranchID = &id
	}
	items, total, err := h.svc.ListUsers(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var u User
	if err := c.Bind(&u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u.ID = id
	updated, err := h.svc.UpdateUser(c.Request().Context(), &u)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	u, err := h.svc.SetStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.Request().Context(), id); err != nil {
		return apperr.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadPhoto is open to admins and to the user the photo belongs to.
func (h *Handler) UploadPhoto(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if auth.UserIDFromContext(ctx) != id.String() && !hasRole(auth.RolesFromContext(ctx), auth.RoleAdmin) {
		return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
	}
	img, err := blobstore.FromForm(c, h.images, "photo", "photo")
	if err != nil {
		return err
	}
	u, err := h.svc.SetPhoto(ctx, id, img)
	if err != nil {
		return apperr.HTTPError(err)
	}
	return c.JSON(http.StatusOK, u)
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
