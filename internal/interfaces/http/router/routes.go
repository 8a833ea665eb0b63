package router

import (
	"github.com/erp/settlement/internal/infrastructure/auth"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/interfaces/http/handler"
	"github.com/erp/settlement/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers served under /api/v1
type Handlers struct {
	Bills          *handler.BillHandler
	Requests       *handler.RequestHandler
	Rebates        *handler.RebateHandler
	PendingEntries *handler.PendingEntryHandler
	Accounts       *handler.AccountHandler
	Agencies       *handler.AgencyHandler
	Auth           *handler.AuthHandler
	System         *handler.SystemHandler
}

// EngineConfig configures the gin engine and its middleware chain
type EngineConfig struct {
	Logger         *zap.Logger
	JWT            middleware.JWTMiddlewareConfig
	CORS           middleware.CORSConfig
	Tracing        middleware.TracingConfig
	Meter          metric.Meter
	MaxBodySize    int64
	TrustedProxies []string
}

// readers may look at any settlement data
var readers = []string{
	auth.PermBillCreate,
	auth.PermFinanceReview,
	auth.PermFinanceApprove,
	auth.PermFinancePay,
	auth.PermRebateManage,
	auth.PermAccountManage,
}

// NewEngine builds the gin engine with the global middleware chain, the public
// health endpoints and the JWT-protected settlement API.
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(cfg.Tracing),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(cfg.Meter, log),
		middleware.Secure(),
		middleware.CORSWithConfig(cfg.CORS),
		middleware.BodyLimit(cfg.MaxBodySize),
	)

	engine.GET("/health", h.System.Health)

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(NewDomainGroup("system", "").
		GET("/health", h.System.Health))

	jwtCfg := cfg.JWT
	if jwtCfg.Logger == nil {
		jwtCfg.Logger = log
	}
	permCfg := middleware.PermissionConfig{Logger: log}
	read := middleware.RequireAnyPermissionWithConfig(permCfg, readers...)
	perm := func(p string) gin.HandlerFunc {
		return middleware.RequireAnyPermissionWithConfig(permCfg, p)
	}

	api := NewDomainGroup("api", "").
		Use(middleware.JWTAuthMiddlewareWithConfig(jwtCfg), middleware.EnrichSpan())

	api.Group("auth", "/auth").
		POST("/logout", h.Auth.Logout).
		GET("/me", h.Auth.Me)

	api.Group("bills", "/bills").
		GET("", read, h.Bills.List).
		GET("/pending-payment", read, h.Bills.PendingPayment).
		GET("/:id", read, h.Bills.GetByID).
		POST("", perm(auth.PermBillCreate), h.Bills.Create).
		PUT("/batch", perm(auth.PermBillCreate), h.Bills.SaveBatch).
		POST("/import", perm(auth.PermBillCreate), h.Bills.ImportCSV).
		PUT("/:id", perm(auth.PermBillCreate), h.Bills.Update).
		POST("/:id/submit", perm(auth.PermBillCreate), h.Bills.Submit).
		POST("/:id/finance-approve", perm(auth.PermFinanceReview), h.Bills.FinanceApprove).
		POST("/:id/finance-reject", perm(auth.PermFinanceReview), h.Bills.FinanceReject).
		POST("/:id/reject", perm(auth.PermFinanceApprove), h.Bills.Reject).
		POST("/:id/approve", perm(auth.PermFinanceApprove), h.Bills.Approve).
		POST("/:id/pay", perm(auth.PermFinancePay), h.Bills.Pay)

	api.Group("requests", "/requests").
		GET("", read, h.Requests.List).
		GET("/:id", read, h.Requests.GetByID).
		POST("", perm(auth.PermBillCreate), h.Requests.Create).
		PUT("/:id", perm(auth.PermBillCreate), h.Requests.Update).
		POST("/:id/submit", perm(auth.PermBillCreate), h.Requests.Submit).
		POST("/:id/finance-approve", perm(auth.PermFinanceReview), h.Requests.FinanceApprove).
		POST("/:id/finance-reject", perm(auth.PermFinanceReview), h.Requests.FinanceReject).
		POST("/:id/reject", perm(auth.PermFinanceApprove), h.Requests.Reject).
		POST("/:id/approve", perm(auth.PermFinanceApprove), h.Requests.Approve).
		POST("/:id/pay", perm(auth.PermFinancePay), h.Requests.Pay)

	api.Group("rebates", "/rebates").
		GET("", read, h.Rebates.List).
		GET("/:id", read, h.Rebates.GetByID).
		POST("/consumptions", perm(auth.PermRebateManage), h.Rebates.ApplyConsumption).
		POST("/:id/writeoffs", perm(auth.PermRebateManage), h.Rebates.WriteOff).
		POST("/:id/adjustments", perm(auth.PermRebateManage), h.Rebates.Adjust)

	api.Group("pending-entries", "/pending-entries").
		GET("", read, h.PendingEntries.List).
		POST("/reconcile", perm(auth.PermFinanceApprove), h.PendingEntries.Reconcile).
		POST("/:id/complete", perm(auth.PermFinancePay), h.PendingEntries.Complete)

	api.Group("accounts", "/accounts").
		GET("", read, h.Accounts.List).
		PUT("", perm(auth.PermAccountManage), h.Accounts.SaveAll).
		GET("/balances", read, h.Accounts.Balances).
		POST("/recalculate", perm(auth.PermAccountManage), h.Accounts.Recalculate)

	api.Group("cash-flows", "/cash-flows").
		GET("", read, h.Accounts.ListCashFlows).
		POST("", perm(auth.PermFinancePay), h.Accounts.PostCashFlow).
		POST("/:id/reverse", perm(auth.PermFinancePay), h.Accounts.ReverseCashFlow)

	api.Group("exchange-rates", "/exchange-rates").
		GET("", read, h.Accounts.ExchangeRates).
		PUT("", perm(auth.PermAccountManage), h.Accounts.SetExchangeRates)

	api.Group("agencies", "/agencies").
		GET("", read, h.Agencies.List).
		GET("/:id", read, h.Agencies.GetByID).
		POST("", perm(auth.PermRebateManage), h.Agencies.Create)

	api.Group("system", "/system").
		GET("/info", read, h.System.GetSystemInfo)

	r.Register(api)
	r.Setup()
	return engine, nil
}
