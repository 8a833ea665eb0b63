package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemHandler_Health(t *testing.T) {
	h := NewSystemHandler("settlement", "1.2.0",
		HealthCheck{Name: "database", Check: func(context.Context) error { return nil }},
	)
	c, w := newTestContext("/health")
	h.Health(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, map[string]string{"database": "ok"}, resp.Checks)
}

func TestSystemHandler_HealthReportsFailingCheck(t *testing.T) {
	h := NewSystemHandler("settlement", "1.2.0",
		HealthCheck{Name: "database", Check: func(context.Context) error { return nil }},
		HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("dial tcp: refused") }},
	)
	c, w := newTestContext("/health")
	h.Health(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"])
	assert.Equal(t, "error", resp.Checks["redis"])
}

func TestSystemHandler_Info(t *testing.T) {
	c, w := newTestContext("/system/info")
	NewSystemHandler("settlement", "1.2.0").GetSystemInfo(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data SystemInfoResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "settlement", resp.Data.Name)
	assert.Equal(t, "1.2.0", resp.Data.Version)
	assert.NotEmpty(t, resp.Data.GoVersion)
}
