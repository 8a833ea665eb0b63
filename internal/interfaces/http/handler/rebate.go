package handler

import (
	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/gin-gonic/gin"
)

// RebateHandler exposes the rebate receivable sub-ledger
type RebateHandler struct {
	BaseHandler
	service *appsettlement.RebateService
}

// NewRebateHandler creates a new RebateHandler
func NewRebateHandler(service *appsettlement.RebateService) *RebateHandler {
	return &RebateHandler{service: service}
}

// List returns a page of rebate receivables
func (h *RebateHandler) List(c *gin.Context) {
	var filter appsettlement.RebateListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	var ok bool
	if filter.AgencyID, ok = h.queryUUID(c, "agency_id"); !ok {
		return
	}
	rebates, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, rebates, total, filter.Page, filter.PageSize)
}

// GetByID returns one receivable with its write-off history
func (h *RebateHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	rebate, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rebate)
}

// ApplyConsumption spreads one ad-spend consumption over the agency's open
// receivables, oldest first. Replaying the same consumption id is a no-op.
func (h *RebateHandler) ApplyConsumption(c *gin.Context) {
	var req appsettlement.ConsumptionInput
	if !h.bind(c, &req) {
		return
	}
	result, err := h.service.ApplyConsumption(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// WriteOff records a write-off against one receivable
func (h *RebateHandler) WriteOff(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appsettlement.WriteOffInput
	if !h.bind(c, &req) {
		return
	}
	rebate, err := h.service.WriteOff(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rebate)
}

// Adjust applies a manual balance adjustment
func (h *RebateHandler) Adjust(c *gin.Context) {
	id, actor, ok := h.target(c)
	if !ok {
		return
	}
	var req appsettlement.AdjustInput
	if !h.bind(c, &req) {
		return
	}
	rebate, err := h.service.Adjust(c.Request.Context(), id, actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rebate)
}
