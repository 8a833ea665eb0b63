package handler

import (
	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/gin-gonic/gin"
)

// AccountHandler handles accounts, the cash-flow ledger and exchange rates
type AccountHandler struct {
	BaseHandler
	service *appsettlement.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(service *appsettlement.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// SaveAccountsRequest is the body of PUT /accounts
type SaveAccountsRequest struct {
	Accounts []appsettlement.AccountInput `json:"accounts" binding:"required,dive"`
}

// List returns every account
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.service.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// SaveAll replaces the account set, validating the hierarchy
func (h *AccountHandler) SaveAll(c *gin.Context) {
	var req SaveAccountsRequest
	if !h.bind(c, &req) {
		return
	}
	accounts, err := h.service.SaveAll(c.Request.Context(), req.Accounts)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// Balances returns per-account and total balances in the base currency
func (h *AccountHandler) Balances(c *gin.Context) {
	balances, err := h.service.Balances(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balances)
}

// Recalculate rebuilds the cached balances from the ledger
func (h *AccountHandler) Recalculate(c *gin.Context) {
	balances, err := h.service.Recalculate(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balances)
}

// ListCashFlows returns ledger events
func (h *AccountHandler) ListCashFlows(c *gin.Context) {
	var filter appsettlement.CashFlowListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	var ok bool
	if filter.AccountID, ok = h.queryUUID(c, "account_id"); !ok {
		return
	}
	flows, err := h.service.ListCashFlows(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, flows)
}

// PostCashFlow books a manual cash-flow event
func (h *AccountHandler) PostCashFlow(c *gin.Context) {
	actor, ok := h.actorID(c)
	if !ok {
		return
	}
	var req appsettlement.CashFlowInput
	if !h.bind(c, &req) {
		return
	}
	flow, err := h.service.PostCashFlow(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, flow)
}

// ReverseCashFlow voids a confirmed event and refreshes balances
func (h *AccountHandler) ReverseCashFlow(c *gin.Context) {
	id, actor, ok := h.target(c)
	if !ok {
		return
	}
	var req appsettlement.ReverseInput
	if !h.bind(c, &req) {
		return
	}
	flow, err := h.service.ReverseCashFlow(c.Request.Context(), id, actor, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, flow)
}

// ExchangeRates returns the live rates in effect
func (h *AccountHandler) ExchangeRates(c *gin.Context) {
	rates, err := h.service.ExchangeRates(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rates)
}

// SetExchangeRates stores caller-resolved rates
func (h *AccountHandler) SetExchangeRates(c *gin.Context) {
	var req appsettlement.ExchangeRatesInput
	if !h.bind(c, &req) {
		return
	}
	rates, err := h.service.SetExchangeRates(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rates)
}
