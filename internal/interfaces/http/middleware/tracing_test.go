package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/erp/settlement/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracing_RecordsServerSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	svc := newTestJWTService()
	token, actor := issueToken(t, svc, auth.PermBillCreate)

	router := gin.New()
	router.Use(RequestID(), Tracing(TracingConfig{ServiceName: "settlement", Enabled: true, TracerProvider: tp}))
	router.Use(JWTAuthMiddleware(svc), EnrichSpan())
	router.GET("/api/v1/bills/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := doRequest(router, http.MethodGet, "/api/v1/bills/42", token)
	require.Equal(t, http.StatusOK, rec.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Name(), "/api/v1/bills/:id")

	attrs := map[attribute.Key]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, actor.String(), attrs["actor_id"])
	assert.Equal(t, rec.Header().Get(RequestIDHeader), attrs["request_id"])
}

func TestTracing_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(Tracing(TracingConfig{Enabled: false}), EnrichSpan())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/x", "").Code)
}
