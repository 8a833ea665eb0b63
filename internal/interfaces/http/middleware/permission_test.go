package middleware

import (
	"net/http"
	"testing"

	"github.com/erp/settlement/internal/infrastructure/auth"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func permissionRouter(svc *auth.JWTService, guard gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), JWTAuthMiddleware(svc))
	router.POST("/api/v1/bills/:id/pay", guard, func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestRequirePermission(t *testing.T) {
	svc := newTestJWTService()
	router := permissionRouter(svc, RequirePermission(auth.PermFinancePay))

	cashier, _ := issueToken(t, svc, auth.PermFinancePay)
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/api/v1/bills/1/pay", cashier).Code)

	reviewer, _ := issueToken(t, svc, auth.PermFinanceReview)
	rec := doRequest(router, http.MethodPost, "/api/v1/bills/1/pay", reviewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, dto.ErrCodeForbidden, decodeError(t, rec).Code)
}

func TestRequireAnyPermission(t *testing.T) {
	svc := newTestJWTService()
	router := permissionRouter(svc, RequireAnyPermission(auth.PermFinanceReview, auth.PermFinanceApprove))

	approver, _ := issueToken(t, svc, auth.PermFinanceApprove)
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, "/api/v1/bills/1/pay", approver).Code)

	none, _ := issueToken(t, svc)
	assert.Equal(t, http.StatusForbidden, doRequest(router, http.MethodPost, "/api/v1/bills/1/pay", none).Code)
}

func TestRequirePermission_WithoutClaims(t *testing.T) {
	router := gin.New()
	router.GET("/x", RequirePermission(auth.PermAccountManage), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusForbidden, doRequest(router, http.MethodGet, "/x", "").Code)
}

func TestRequireAnyPermissionWithConfig_LogsDenial(t *testing.T) {
	svc := newTestJWTService()
	core, recorded := observer.New(zapcore.WarnLevel)
	guard := RequireAnyPermissionWithConfig(PermissionConfig{Logger: zap.New(core)}, auth.PermRebateManage)
	router := permissionRouter(svc, guard)

	token, actor := issueToken(t, svc, auth.PermBillCreate)
	doRequest(router, http.MethodPost, "/api/v1/bills/1/pay", token)

	entries := recorded.FilterMessage("Permission denied").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, actor.String(), entries[0].ContextMap()["actor_id"])
	}
}

func TestRequireAnyPermissionWithConfig_OnDenied(t *testing.T) {
	svc := newTestJWTService()
	var denied []string
	guard := RequireAnyPermissionWithConfig(PermissionConfig{OnDenied: func(c *gin.Context, perms []string) {
		denied = perms
		c.AbortWithStatus(http.StatusTeapot)
	}}, auth.PermAccountManage)
	router := permissionRouter(svc, guard)

	token, _ := issueToken(t, svc)
	assert.Equal(t, http.StatusTeapot, doRequest(router, http.MethodPost, "/api/v1/bills/1/pay", token).Code)
	assert.Equal(t, []string{auth.PermAccountManage}, denied)
}
