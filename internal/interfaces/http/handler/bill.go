package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BillHandler handles bill API endpoints
type BillHandler struct {
	BaseHandler
	service *appsettlement.BillService
}

// NewBillHandler creates a new BillHandler
func NewBillHandler(service *appsettlement.BillService) *BillHandler {
	return &BillHandler{service: service}
}

// BatchBillsRequest is the body of PUT /bills/batch
type BatchBillsRequest struct {
	Bills []appsettlement.BillInput `json:"bills" binding:"required,min=1,max=500,dive"`
}

// List returns a page of bills
func (h *BillHandler) List(c *gin.Context) {
	var filter appsettlement.BillListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	var ok bool
	if filter.AgencyID, ok = h.queryUUID(c, "agency_id"); !ok {
		return
	}

	bills, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, bills, total, filter.Page, filter.PageSize)
}

// PendingPayment lists approved payable bills waiting to be paid
func (h *BillHandler) PendingPayment(c *gin.Context) {
	bills, err := h.service.PendingPayment(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bills)
}

// GetByID returns one bill
func (h *BillHandler) GetByID(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	bill, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}

// Create creates a DRAFT bill
func (h *BillHandler) Create(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	var req appsettlement.BillInput
	if !h.bind(c, &req) {
		return
	}

	bill, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, bill)
}

// Update edits a DRAFT bill
func (h *BillHandler) Update(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req appsettlement.BillInput
	if !h.bind(c, &req) {
		return
	}

	bill, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bill)
}

// SaveBatch creates or updates many DRAFT bills in one transaction
func (h *BillHandler) SaveBatch(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	var req BatchBillsRequest
	if !h.bind(c, &req) {
		return
	}

	bills, err := h.service.SaveBatch(c.Request.Context(), actor, req.Bills)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bills)
}

// ImportCSV saves the bills of a CSV upload, sent either as a multipart
// "file" field or as the raw request body
func (h *BillHandler) ImportCSV(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}

	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			h.BadRequest(c, "Missing CSV file")
			return
		}
		file, err := header.Open()
		if err != nil {
			h.BadRequest(c, "Unreadable CSV file")
			return
		}
		defer file.Close()
		body = file
	}

	result, err := h.service.ImportCSV(c.Request.Context(), actor, body)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Failed() {
		details := make([]dto.ValidationDetail, 0, len(result.Errors))
		for _, e := range result.Errors {
			details = append(details, dto.ValidationDetail{
				Field:   fmt.Sprintf("row %d: %s", e.Row, e.Column),
				Message: e.Message,
			})
		}
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			fmt.Sprintf("%d error(s) found in %d rows", result.TotalErrors, result.TotalRows),
			getRequestID(c), details))
		return
	}
	h.Created(c, result)
}

// Submit sends a DRAFT bill to finance review
func (h *BillHandler) Submit(c *gin.Context) {
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

// FinanceApprove moves a bill from finance review to manager approval
func (h *BillHandler) FinanceApprove(c *gin.Context) {
	id, actor, ok := h.target(c)
	if !ok {
		return
	}
	h.respond(c)(h.service.FinanceApprove(c.Request.Context(), id, actor))
}

// FinanceReject returns a bill under finance review to DRAFT
func (h *BillHandler) FinanceReject(c *gin.Context) {
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

// Reject rejects a bill awaiting approval
func (h *BillHandler) Reject(c *gin.Context) {
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

// Approve approves a bill and triggers its follow-up records
func (h *BillHandler) Approve(c *gin.Context) {
	id, actor, ok := h.target(c)
	if !ok {
		return
	}
	h.respond(c)(h.service.Approve(c.Request.Context(), id, actor))
}

// Pay settles an approved payable bill against an account
func (h *BillHandler) Pay(c *gin.Context) {
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

func (h *BillHandler) respond(c *gin.Context) func(*appsettlement.BillResponse, error) {
	return func(bill *appsettlement.BillResponse, err error) {
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, bill)
	}
}
