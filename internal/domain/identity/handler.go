package identity

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/scheduler/internal/domain/slot"
	"github.com/clinic/scheduler/internal/platform/apperr"
	"github.com/clinic/scheduler/internal/platform/auth"
	"github.com/clinic/scheduler/pkg/pagination"
)

type Handler struct {
	svc  *Service
	gate *auth.Gate
}

func NewHandler(svc *Service, gate *auth.Gate) *Handler {
	return &Handler{svc: svc, gate: gate}
}

// RegisterRoutes mounts the identity endpoints. loginLimit guards the
// credential-accepting routes.
func (h *Handler) RegisterRoutes(api *echo.Group, loginLimit echo.MiddlewareFunc) {
	api.POST("/auth/:role/login", h.Login, loginLimit)
	api.POST("/patients", h.SignupPatient, loginLimit)

	api.GET("/doctors", h.SearchDoctors)
	api.GET("/doctors/:id", h.GetDoctor)

	session := api.Group("", auth.RequireRole(h.gate, auth.RoleAdmin, auth.RoleDoctor, auth.RolePatient))
	session.POST("/auth/logout", h.Logout)

	admin := api.Group("", auth.RequireRole(h.gate, auth.RoleAdmin))
	admin.POST("/doctors", h.CreateDoctor)
	admin.PUT("/doctors/:id", h.UpdateDoctor)
	admin.DELETE("/doctors/:id", h.DeleteDoctor)

	patient := api.Group("", auth.RequireRole(h.gate, auth.RolePatient))
	patient.GET("/patients/me", h.GetCurrentPatient)
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	role, err := auth.ParseRole(c.Param("role"))
	if err != nil {
		return apperr.NotFound("unknown login endpoint")
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Malformed("invalid request body")
	}
	session, err := h.svc.Login(c.Request().Context(), role, req.Identifier, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) Logout(c echo.Context) error {
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	h.gate.Revoke(p)
	return c.NoContent(http.StatusNoContent)
}

// -- Doctors --

func (h *Handler) CreateDoctor(c echo.Context) error {
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return apperr.Malformed("invalid request body")
	}
	if err := h.svc.CreateDoctor(c.Request().Context(), &d); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Malformed("invalid id")
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Malformed("invalid id")
	}
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return apperr.Malformed("invalid request body")
	}
	d.ID = id
	if err := h.svc.UpdateDoctor(c.Request().Context(), &d); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeleteDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Malformed("invalid id")
	}
	if err := h.svc.DeleteDoctor(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SearchDoctors supports ?name=, ?specialty= and ?time=AM|PM.
func (h *Handler) SearchDoctors(c echo.Context) error {
	period, err := slot.ParsePeriod(c.QueryParam("time"))
	if err != nil {
		return apperr.Malformed(err.Error())
	}
	f := DoctorFilter{
		Name:      c.QueryParam("name"),
		Specialty: c.QueryParam("specialty"),
		Period:    period,
	}
	pg := pagination.FromContext(c)
	doctors, total, err := h.svc.SearchDoctors(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if doctors == nil {
		doctors = []*Doctor{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(doctors, total, pg))
}

// -- Patients --

func (h *Handler) SignupPatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return apperr.Malformed("invalid request body")
	}
	if err := h.svc.SignupPatient(c.Request().Context(), &p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetCurrentPatient(c echo.Context) error {
	principal, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.Unauthorized()
	}
	p, err := h.svc.GetPatient(c.Request().Context(), principal.SubjectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
