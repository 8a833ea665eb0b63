package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/erp/settlement/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	c, _ := newTestContext("/")
	assert.Empty(t, getRequestID(c))

	c.Request.Header.Set(middleware.RequestIDHeader, "from-header")
	assert.Equal(t, "from-header", getRequestID(c))

	c.Set(middleware.RequestIDContextKey, "from-context")
	assert.Equal(t, "from-context", getRequestID(c))
}

func TestHandleError_DomainCodes(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{shared.NewValidationError("amount must be positive"), http.StatusBadRequest, dto.ErrCodeValidation},
		{shared.NewStateConflictError("approve", "DRAFT"), http.StatusConflict, dto.ErrCodeStateConflict},
		{shared.ErrConcurrencyConflict, http.StatusConflict, dto.ErrCodeStateConflict},
		{shared.NewNotFoundError("bill", "42"), http.StatusNotFound, dto.ErrCodeNotFound},
		{shared.NewInsufficientBalanceError("a", "1", "2"), http.StatusUnprocessableEntity, dto.ErrCodeInsufficientBalance},
		{fmt.Errorf("pay: %w", shared.NewNotFoundError("account", "7")), http.StatusNotFound, dto.ErrCodeNotFound},
	}
	for _, tc := range cases {
		c, w := newTestContext("/")
		c.Set(middleware.RequestIDContextKey, "req-1")
		(&BaseHandler{}).HandleError(c, tc.err)

		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, tc.code, resp.Error.Code)
		assert.Equal(t, "req-1", resp.Error.RequestID)
	}
}

func TestHandleError_UnknownErrorIsHidden(t *testing.T) {
	c, w := newTestContext("/")
	(&BaseHandler{}).HandleError(c, errors.New("connection reset by peer"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "connection reset")
	assert.Len(t, c.Errors, 1)
}

func TestPathAndQueryIDs(t *testing.T) {
	h := &BaseHandler{}
	id := uuid.New()

	c, _ := newTestContext("/?agency_id=" + id.String())
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	got, ok := h.pathID(c)
	assert.True(t, ok)
	assert.Equal(t, id, got)
	agency, ok := h.queryUUID(c, "agency_id")
	assert.True(t, ok)
	assert.Equal(t, id, *agency)
	missing, ok := h.queryUUID(c, "account_id")
	assert.True(t, ok)
	assert.Nil(t, missing)

	c, w := newTestContext("/?agency_id=nope")
	_, ok = h.queryUUID(c, "agency_id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext("/")
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	_, ok = h.pathID(c)
	assert.False(t, ok)
	assert.Equal(t, dto.ErrCodeValidationFormat, decodeResponse(t, w).Error.Code)
}

func TestActorID(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext("/")
	_, ok := h.actorID(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	actor := uuid.New()
	c, _ = newTestContext("/")
	c.Set(middleware.JWTActorIDKey, actor.String())
	got, ok := h.actorID(c)
	assert.True(t, ok)
	assert.Equal(t, actor, got)
}
