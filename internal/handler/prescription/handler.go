package prescription

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/composer"
	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/prescription"
	"github.com/jwalitptl/clinic-api/pkg/errors"
)

type Handler struct {
	service *prescription.Service
}

func NewHandler(service *prescription.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	rx := r.Group("/prescriptions")
	{
		rx.GET("", h.ListPrescriptions)
		rx.GET("/formulary", h.Formulary)
		rx.GET("/:id", h.GetPrescription)

		rx.POST("/drafts", h.CreateDraft)
		rx.GET("/drafts/:id", h.GetDraft)
		rx.DELETE("/drafts/:id", h.DeleteDraft)
		rx.POST("/drafts/:id/medications", h.AddMedication)
		rx.PATCH("/drafts/:id/medications/:index", h.EditMedication)
		rx.DELETE("/drafts/:id/medications/:index", h.RemoveMedication)
		rx.POST("/drafts/:id/submit", h.Submit)
	}
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	order, err := handler.Order(c)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	var list []*model.Prescription
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

func (h *Handler) GetPrescription(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	rx, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(rx))
}

func (h *Handler) Formulary(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.service.Formulary()))
}

func (h *Handler) CreateDraft(c *gin.Context) {
	var req prescription.DraftInput
	if err := handler.BindJSON(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}

	d, err := h.service.CreateDraft(c.Request.Context(), req)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(d))
}

func (h *Handler) GetDraft(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	d, err := h.service.GetDraft(id)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(d))
}

func (h *Handler) DeleteDraft(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	if err := h.service.DeleteDraft(id); err != nil {
		handler.Abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddMedication appends an entry. The body is optional and pre-fills the entry.
func (h *Handler) AddMedication(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	var patch *composer.MedicationPatch
	if c.Request.ContentLength != 0 {
		patch = &composer.MedicationPatch{}
		if err := handler.BindJSON(c, patch); err != nil {
			handler.Abort(c, err)
			return
		}
	}

	d, err := h.service.AddMedication(id, patch)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(d))
}

func (h *Handler) EditMedication(c *gin.Context) {
	id, index, ok := draftEntry(c)
	if !ok {
		return
	}
	var patch composer.MedicationPatch
	if err := handler.BindJSON(c, &patch); err != nil {
		handler.Abort(c, err)
		return
	}

	d, err := h.service.EditMedication(id, index, patch)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(d))
}

func (h *Handler) RemoveMedication(c *gin.Context) {
	id, index, ok := draftEntry(c)
	if !ok {
		return
	}

	d, err := h.service.RemoveMedication(id, index)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(d))
}

func (h *Handler) Submit(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	var req prescription.SubmitInput
	if c.Request.ContentLength != 0 {
		if err := handler.BindJSON(c, &req); err != nil {
			handler.Abort(c, err)
			return
		}
	}

	res, err := h.service.Submit(c.Request.Context(), id, req)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(res))
}

func draftEntry(c *gin.Context) (uuid.UUID, int, bool) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return uuid.Nil, 0, false
	}
	index, err := handler.IndexParam(c, "index")
	if err != nil {
		handler.Abort(c, err)
		return uuid.Nil, 0, false
	}
	return id, index, true
}
