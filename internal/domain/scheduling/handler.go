package scheduling

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/scheduler/internal/platform/apperr"
	"github.com/clinic/scheduler/internal/platform/auth"
)

const dateLayout = "2006-01-02"

type Handler struct {
	svc  *Service
	gate *auth.Gate
}

func NewHandler(svc *Service, gate *auth.Gate) *Handler {
	return &Handler{svc: svc, gate: gate}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	session := api.Group("", auth.RequireRole(h.gate, auth.RoleAdmin, auth.RoleDoctor, auth.RolePatient))
	session.GET("/doctors/:id/availability", h.Availability)

	patient := api.Group("", auth.RequireRole(h.gate, auth.RolePatient))
	patient.POST("/appointments", h.Book)
	patient.PUT("/appointments/:id", h.Update)
	patient.DELETE("/appointments/:id", h.Cancel)
	patient.GET("/patients/me/appointments", h.PatientAppointments)

	doctor := api.Group("", auth.RequireRole(h.gate, auth.RoleDoctor))
	doctor.GET("/appointments", h.DayView)
	doctor.PATCH("/appointments/:id/status", h.SetStatus)
}

type appointmentRequest struct {
	DoctorID        uuid.UUID `json:"doctor_id"`
	PatientID       uuid.UUID `json:"patient_id"`
	AppointmentTime time.Time `json:"appointment_time"`
}

func (r appointmentRequest) appointment() *Appointment {
	return &Appointment{
		DoctorID:        r.DoctorID,
		PatientID:       r.PatientID,
		AppointmentTime: r.AppointmentTime,
	}
}

type statusRequest struct {
	Status *int `json:"status"`
}

func principal(c echo.Context) *auth.Principal {
	p, _ := auth.PrincipalFromContext(c.Request().Context())
	return p
}

// parseDate reads a YYYY-MM-DD query value in the clinic zone.
func (h *Handler) parseDate(c echo.Context) (time.Time, error) {
	raw := c.QueryParam("date")
	if raw == "" {
		return time.Time{}, apperr.Malformed("date is required")
	}
	d, err := time.ParseInLocation(dateLayout, raw, h.svc.Location())
	if err != nil {
		return time.Time{}, apperr.Malformed("date must be YYYY-MM-DD")
	}
	return d, nil
}

func (h *Handler) Availability(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Malformed("invalid id")
	}
	date, err := h.parseDate(c)
	if err != nil {
		return err
	}
	slots, err := h.svc.Availability(c.Request().Context(), id, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"doctor_id": id,
		"date":      date.Format(dateLayout),
		"slots":     slots,
	})
}

func (h *Handler) Book(c echo.Context) error {
	var req appointmentRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Malformed("invalid request body")
	}
	a := req.appointment()
	if err := h.svc.Book(c.Request().Context(), principal(c), a); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Malformed("invalid id")
	}
	var req appointmentRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Malformed("invalid request body")
	}
	a := req.appointment()
	a.ID = id
	if err := h.svc.Update(c.Request().Context(), principal(c), a); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Malformed("invalid id")
	}
	if err := h.svc.Cancel(c.Request().Context(), principal(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// DayView supports ?date=YYYY-MM-DD (required) and ?patient=.
func (h *Handler) DayView(c echo.Context) error {
	date, err := h.parseDate(c)
	if err != nil {
		return err
	}
	appts, err := h.svc.DayView(c.Request().Context(), principal(c), date, c.QueryParam("patient"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appts)
}

// PatientAppointments supports ?condition=past|future and ?doctor=.
func (h *Handler) PatientAppointments(c echo.Context) error {
	cond, err := ParseCondition(c.QueryParam("condition"))
	if err != nil {
		return apperr.Malformed(err.Error())
	}
	f := PatientFilter{Condition: cond, DoctorName: c.QueryParam("doctor")}
	appts, err := h.svc.PatientAppointments(c.Request().Context(), principal(c), f)
	if err != nil {
		return err
	}
	if appts == nil {
		appts = []*Appointment{}
	}
	return c.JSON(http.StatusOK, appts)
}

func (h *Handler) SetStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Malformed("invalid id")
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil || req.Status == nil {
		return apperr.Malformed("status is required")
	}
	if err := h.svc.SetStatus(c.Request().Context(), principal(c), id, *req.Status); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":     id,
		"status": *req.Status,
	})
}
