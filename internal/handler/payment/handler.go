package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/payment"
	"github.com/jwalitptl/clinic-api/internal/validation"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

type Handler struct {
	service *payment.Service
}

func NewHandler(service *payment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	payments := r.Group("/payments")
	{
		payments.POST("", h.CreatePayment)
		payments.GET("", h.ListPayments)
		payments.GET("/:id", h.GetPayment)
	}
}

func (h *Handler) CreatePayment(c *gin.Context) {
	var req validation.PaymentInput
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}

	p, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(p))
}

// ListPayments narrows to one patient with ?patient_id=.
func (h *Handler) ListPayments(c *gin.Context) {
	order, err := handler.Order(c)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	var payments []*model.Payment
	if raw := c.Query("patient_id"); raw != "" {
		patientID, perr := uuid.Parse(raw)
		if perr != nil {
			handler.Abort(c, errors.BadRequest("invalid patient_id", perr))
			return
		}
		payments, err = h.service.ListByPatient(c.Request.Context(), patientID, order)
	} else {
		payments, err = h.service.List(c.Request.Context(), order)
	}
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(payments))
}

func (h *Handler) GetPayment(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}
