package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/appointment"
	"github.com/jwalitptl/clinic-api/internal/validation"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id/status", h.UpdateStatus)
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req validation.AppointmentInput
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}

	a, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(a))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	order, err := handler.Order(c)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	var list []*model.Appointment
	if raw := c.Query("patient_id"); raw != "" {
		patientID, perr := uuid.Parse(raw)
		if perr != nil {
			handler.Abort(c, errors.BadRequest("invalid patient_id", perr))
			return
		}
		list, err = h.service.ListByPatient(c.Request.Context(), patientID, order)
	} else {
		list, err = h.service.List(c.Request.Context(), order)
	}
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(list))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	a, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(a))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}
	var req statusRequest
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}

	a, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(a))
}
