package handler

import (
	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/gin-gonic/gin"
)

// AgencyHandler handles ad agency maintenance
type AgencyHandler struct {
	BaseHandler
	service *appsettlement.AgencyService
}

// NewAgencyHandler creates a new AgencyHandler
func NewAgencyHandler(service *appsettlement.AgencyService) *AgencyHandler {
	return &AgencyHandler{service: service}
}

// List returns all agencies
func (h *AgencyHandler) List(c *gin.Context) {
	agencies, err := h.service.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, agencies)
}

// GetByID returns one agency
func (h *AgencyHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	agency, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, agency)
}

// Create registers an agency
func (h *AgencyHandler) Create(c *gin.Context) {
	var req appsettlement.AgencyInput
	if !h.bind(c, &req) {
		return
	}
	agency, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, agency)
}
