package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ledgerRow struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"size:32"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ledgerRow{}))
	return db
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func metricByName(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func counterFor(rm metricdata.ResourceMetrics, name string, kv attribute.KeyValue) int64 {
	m, ok := metricByName(rm, name)
	if !ok {
		return 0
	}
	set := attribute.NewSet(kv)
	for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
		if dp.Attributes.Equals(&set) {
			return dp.Value
		}
	}
	return 0
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := NewDBMetrics(provider.Meter("db"), nil, DBMetricsConfig{SlowQueryThreshold: 50 * time.Millisecond}, zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordQuery(ctx, "select", "bills", 10*time.Millisecond)
	m.RecordQuery(ctx, "SELECT", "bills", 80*time.Millisecond)
	m.RecordQuery(ctx, "", "", 90*time.Millisecond)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), counterFor(rm, "db_query_total", AttrDBOperation.String("SELECT")))
	assert.Equal(t, int64(1), counterFor(rm, "db_query_total", AttrDBOperation.String("UNKNOWN")))
	assert.Equal(t, int64(1), counterFor(rm, "db_slow_query_total", AttrDBTable.String("bills")))
	assert.Equal(t, int64(1), counterFor(rm, "db_slow_query_total", AttrDBTable.String("unknown")))
}

func TestDBMetrics_PluginAndPool(t *testing.T) {
	db := setupTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := NewDBMetrics(provider.Meter("db"), sqlDB, DBMetricsConfig{}, zap.NewNop())
	require.NoError(t, err)
	defer m.Stop()
	require.NoError(t, db.Use(NewDBMetricsPlugin(m)))

	require.NoError(t, db.Create(&ledgerRow{Code: "1122"}).Error)
	var rows []ledgerRow
	require.NoError(t, db.Find(&rows).Error)
	require.NoError(t, db.Exec("DELETE FROM ledger_rows WHERE code = ?", "1122").Error)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), counterFor(rm, "db_query_total", AttrDBOperation.String("INSERT")))
	assert.Equal(t, int64(1), counterFor(rm, "db_query_total", AttrDBOperation.String("SELECT")))
	assert.Equal(t, int64(1), counterFor(rm, "db_query_total", AttrDBOperation.String("DELETE")))

	_, ok := metricByName(rm, "db_pool_connections")
	assert.True(t, ok)
	_, ok = metricByName(rm, "db_pool_connections_max")
	assert.True(t, ok)
}

func TestDetectOperationType(t *testing.T) {
	cases := map[string]string{
		"  select * from bills":   "SELECT",
		"INSERT INTO bills":       "INSERT",
		"update bills set x = 1":  "UPDATE",
		"DELETE FROM bills":       "DELETE",
		"CREATE TABLE cash_flows": "OTHER",
	}
	for sql, want := range cases {
		assert.Equal(t, want, detectOperationType(sql), sql)
	}
}

func TestRegisterDBMetrics_Disabled(t *testing.T) {
	db := setupTestDB(t)

	m, err := RegisterDBMetrics(db, nil, DBMetricsConfig{Enabled: true}, zap.NewNop())
	assert.NoError(t, err)
	assert.Nil(t, m)

	mp := &MeterProvider{logger: zap.NewNop()}
	m, err = RegisterDBMetrics(db, mp, DBMetricsConfig{Enabled: true}, zap.NewNop())
	assert.NoError(t, err)
	assert.Nil(t, m)
}
