package prescription

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/scheduler/internal/platform/apperr"
	"github.com/clinic/scheduler/internal/platform/auth"
)

type Handler struct {
	svc  *Service
	gate *auth.Gate
}

func NewHandler(svc *Service, gate *auth.Gate) *Handler {
	return &Handler{svc: svc, gate: gate}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	doctor := api.Group("/prescriptions", auth.RequireRole(h.gate, auth.RoleDoctor))
	doctor.POST("", h.Save)
	doctor.GET("/:appointmentId", h.GetByAppointment)
}

func (h *Handler) Save(c echo.Context) error {
	var rx Prescription
	if err := c.Bind(&rx); err != nil {
		return apperr.Malformed("invalid request body")
	}
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	if err := h.svc.Save(c.Request().Context(), p, &rx); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rx)
}

func (h *Handler) GetByAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("appointmentId"))
	if err != nil {
		return apperr.Malformed("invalid appointment id")
	}
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	out, err := h.svc.GetByAppointment(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
