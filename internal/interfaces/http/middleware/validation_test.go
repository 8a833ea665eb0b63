package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type billPayload struct {
	Month    string `json:"month" binding:"required,yearmonth"`
	Currency string `json:"currency" binding:"required,currency"`
	Remark   string `json:"remark" binding:"max=5"`
}

func validationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.Use(RequestID())
	router.POST("/bills", func(c *gin.Context) {
		var in billPayload
		if err := c.ShouldBindJSON(&in); err != nil {
			HandleBindError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/bills", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSetupValidator_CustomTags(t *testing.T) {
	router := validationRouter()

	assert.Equal(t, http.StatusOK, postJSON(router, `{"month":"2026-03","currency":"usd"}`).Code)
	assert.Equal(t, http.StatusOK, postJSON(router, `{"month":"2026-12","currency":"RMB"}`).Code)

	rec := postJSON(router, `{"month":"2026/03","currency":"XYZ","remark":"too long"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errInfo := decodeError(t, rec)
	assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
	assert.NotEmpty(t, errInfo.RequestID)

	messages := map[string]string{}
	for _, d := range errInfo.Details {
		messages[d.Field] = d.Message
	}
	assert.Equal(t, "Must be a YYYY-MM month", messages["month"])
	assert.Equal(t, "Must be an ISO 4217 currency code", messages["currency"])
	assert.Equal(t, "Must be at most 5 characters", messages["remark"])
}

func TestSetupValidator_RejectsBadMonths(t *testing.T) {
	router := validationRouter()
	for _, month := range []string{"2026-13", "2026-3", "26-03", "2026-03-01"} {
		assert.Equal(t, http.StatusBadRequest, postJSON(router, `{"month":"`+month+`","currency":"CNY"}`).Code, month)
	}
}

func TestHandleBindError_MalformedJSON(t *testing.T) {
	rec := postJSON(validationRouter(), `{"month":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.ErrCodeInvalidJSON, decodeError(t, rec).Code)
}
