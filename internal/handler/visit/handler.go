package visit

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/service/visit"
	"github.com/jwalitptl/clinic-api/internal/validation"
)

type Handler struct {
	service *visit.Service
}

func NewHandler(service *visit.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/patients/:id/visits", h.CreateVisit)
	r.GET("/patients/:id/visits", h.ListVisits)
	r.GET("/visits/:id", h.GetVisit)
}

// CreateVisit takes the patient from the path; a patient_id in the body is ignored.
func (h *Handler) CreateVisit(c *gin.Context) {
	patientID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}
	var req validation.VisitInput
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}
	req.PatientID = patientID.String()

	v, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(v))
}

func (h *Handler) ListVisits(c *gin.Context) {
	patientID, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}
	order, err := handler.Order(c)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	visits, err := h.service.ListByPatient(c.Request.Context(), patientID, order)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(visits))
}

func (h *Handler) GetVisit(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	v, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(v))
}
