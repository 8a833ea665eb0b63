package handler

import (
	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/gin-gonic/gin"
)

// RequestHandler handles expense and income request endpoints
type RequestHandler struct {
	BaseHandler
	service *appsettlement.RequestService
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(service *appsettlement.RequestService) *RequestHandler {
	return &RequestHandler{service: service}
}

// List returns a page of expense and income requests
func (h *RequestHandler) List(c *gin.Context) {
	var filter appsettlement.RequestListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	requests, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, requests, total, filter.Page, filter.PageSize)
}

// GetByID returns one request
func (h *RequestHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	req, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, req)
}

// Create creates a DRAFT request
func (h *RequestHandler) Create(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	var in appsettlement.RequestInput
	if !h.bind(c, &in) {
		return
	}

	req, err := h.service.Create(c.Request.Context(), actor, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, req)
}

// Update edits a DRAFT request
func (h *RequestHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var in appsettlement.RequestInput
	if !h.bind(c, &in) {
		return
	}

	req, err := h.service.Update(c.Request.Context(), id, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, req)
}

// Submit sends a DRAFT request to finance review
func (h *RequestHandler) Submit(c *gin.Context) {
	id, actor, ok := h.target(c)
	if !ok {
		return
	}
	var req appsettlement.SubmitInput
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	h.respond(c)(h.service.SubmitForReview(c.Request.Context(), id, actor, req.Voucher))
}

// FinanceApprove moves a request from finance review to manager approval
func (h *RequestHandler) FinanceApprove(c *gin.Context) {
	id, actor, ok := h.target(c)
	if !ok {
		return
	}
	h.respond(c)(h.service.FinanceApprove(c.Request.Context(), id, actor))
}

// FinanceReject returns a request under finance review to DRAFT
func (h *RequestHandler) FinanceReject(c *gin.Context) {
	id, actor, ok := h.target(c)
	if !ok {
		return
	}
	var req appsettlement.RejectInput
	if !h.bind(c, &req) {
		return
	}
	h.respond(c)(h.service.FinanceReject(c.Request.Context(), id, actor, req.Reason))
}

// Reject rejects a request awaiting approval
func (h *RequestHandler) Reject(c *gin.Context) {
	id, actor, ok := h.target(c)
	if !ok {
		return
	}
	var req appsettlement.RejectInput
	if !h.bind(c, &req) {
		return
	}
	h.respond(c)(h.service.Reject(c.Request.Context(), id, actor, req.Reason))
}

// Approve approves a request; approved income also gets a pending entry
func (h *RequestHandler) Approve(c *gin.Context) {
	id, actor, ok := h.target(c)
	if !ok {
		return
	}
	h.respond(c)(h.service.Approve(c.Request.Context(), id, actor))
}

// Pay settles an approved expense, or records an approved income as received
func (h *RequestHandler) Pay(c *gin.Context) {
	id, actor, ok := h.target(c)
	if !ok {
		return
	}
	var req appsettlement.PayInput
	if !h.bind(c, &req) {
		return
	}
	h.respond(c)(h.service.Pay(c.Request.Context(), id, actor, req))
}

func (h *RequestHandler) respond(c *gin.Context) func(*appsettlement.RequestResponse, error) {
	return func(req *appsettlement.RequestResponse, err error) {
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, req)
	}
}
