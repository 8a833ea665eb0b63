package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeS3 answers HEAD requests for a path-style bucket
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]bool
	status  int
	heads   []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	f.heads = append(f.heads, r.URL.Path)
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	if f.objects[r.URL.Path] {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func newTestStore(t *testing.T, fake *fakeS3) *S3VoucherStore {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	store, err := NewS3VoucherStore(context.Background(), &config.StorageConfig{
		Bucket:          "vouchers",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Endpoint:        server.URL,
		UsePathStyle:    true,
	}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return store
}

func TestNewS3VoucherStore_Validation(t *testing.T) {
	ctx := context.Background()
	cases := map[string]*config.StorageConfig{
		"configuration is required": nil,
		"bucket is required":        {AccessKeyID: "k", SecretAccessKey: "s"},
		"access key is required":    {Bucket: "b", SecretAccessKey: "s"},
		"secret key is required":    {Bucket: "b", AccessKeyID: "k"},
	}
	for msg, cfg := range cases {
		_, err := NewS3VoucherStore(ctx, cfg)
		require.Error(t, err, msg)
		assert.Contains(t, err.Error(), msg)
	}

	store, err := NewS3VoucherStore(ctx, &config.StorageConfig{
		Bucket:          "vouchers",
		AccessKeyID:     "k",
		SecretAccessKey: "s",
		Endpoint:        "minio:9000",
	})
	require.NoError(t, err)
	assert.Equal(t, "vouchers", store.GetBucket())
}

func TestS3VoucherStore_Verify(t *testing.T) {
	fake := &fakeS3{objects: map[string]bool{"/vouchers/2026/03/pay-001.pdf": true}}
	store := newTestStore(t, fake)
	ctx := context.Background()

	assert.NoError(t, store.Verify(ctx, "2026/03/pay-001.pdf"))
	assert.NoError(t, store.Verify(ctx, "s3://vouchers/2026/03/pay-001.pdf"))

	err := store.Verify(ctx, "2026/03/missing.pdf")
	assert.True(t, shared.IsValidation(err))
	assert.Contains(t, err.Error(), "was not uploaded")
}

func TestS3VoucherStore_VerifyRejectsForeignReferences(t *testing.T) {
	fake := &fakeS3{objects: map[string]bool{}}
	store := newTestStore(t, fake)
	ctx := context.Background()

	for _, ref := range []string{"", "  ", "s3://other-bucket/a.pdf", "s3://vouchers/"} {
		err := store.Verify(ctx, ref)
		assert.True(t, shared.IsValidation(err), "reference %q", ref)
	}
	assert.Empty(t, fake.heads)
}

func TestS3VoucherStore_StorageFailure(t *testing.T) {
	fake := &fakeS3{status: http.StatusForbidden}
	store := newTestStore(t, fake)

	err := store.Verify(context.Background(), "a.pdf")
	require.Error(t, err)
	assert.False(t, shared.IsValidation(err))
	assert.True(t, strings.Contains(err.Error(), "failed to check object existence"))
}

func TestS3VoucherStore_ObjectExistsRequiresKey(t *testing.T) {
	store := newTestStore(t, &fakeS3{})
	_, err := store.ObjectExists(context.Background(), "")
	assert.Error(t, err)
}
