package handler

import (
	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/gin-gonic/gin"
)

// PendingEntryHandler handles the finance inbox of approved receivables
type PendingEntryHandler struct {
	BaseHandler
	service *appsettlement.PendingEntryService
}

// NewPendingEntryHandler creates a new PendingEntryHandler
func NewPendingEntryHandler(service *appsettlement.PendingEntryService) *PendingEntryHandler {
	return &PendingEntryHandler{service: service}
}

// List returns pending entries, optionally filtered by ?status=
func (h *PendingEntryHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Complete books the entry into an account and settles the source document
func (h *PendingEntryHandler) Complete(c *gin.Context) {
	id, actor, ok := h.target(c)
	if !ok {
		return
	}
	var req appsettlement.CompleteEntryInput
	if !h.bind(c, &req) {
		return
	}
	entry, err := h.service.Complete(c.Request.Context(), id, actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Reconcile recreates entries missing for approved receivable documents
func (h *PendingEntryHandler) Reconcile(c *gin.Context) {
	result, err := h.service.Reconcile(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
