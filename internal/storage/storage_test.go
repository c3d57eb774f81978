// AngelaMos | 2026
// storage_test.go

package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/printshop/internal/config"
	"github.com/carterperez-dev/printshop/internal/core"
)

func TestPrintJobKey(t *testing.T) {
	tests := []struct {
		name       string
		owner      string
		filename   string
		wantPrefix string
		wantSuffix string
	}{
		{"keeps extension", "u1", "Thesis Final.PDF", "print-jobs/u1/", ".pdf"},
		{"no extension", "u1", "scan", "print-jobs/u1/", ""},
		{"anonymous owner", "", "a.png", "print-jobs/anonymous/", ".png"},
		{"path stripped", "u2", "../../etc/passwd.txt", "print-jobs/u2/", ".txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := PrintJobKey(tt.owner, tt.filename)

			assert.True(t, strings.HasPrefix(key, tt.wantPrefix), key)
			assert.True(t, strings.HasSuffix(key, tt.wantSuffix), key)
			assert.Len(t, strings.TrimSuffix(strings.TrimPrefix(key, tt.wantPrefix), tt.wantSuffix), 36)
		})
	}

	assert.NotEqual(t, PrintJobKey("u", "a.pdf"), PrintJobKey("u", "a.pdf"))
}

type fakeS3 struct {
	mu       sync.Mutex
	requests []string
	fail     bool
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.mu.Unlock()

	if f.fail {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	switch r.Method {
	case http.MethodPut:
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func newFakeClient(t *testing.T, s3 *fakeS3, publicBase string) *Client {
	t.Helper()
	srv := httptest.NewServer(s3)
	t.Cleanup(srv.Close)

	c, err := New(config.StorageConfig{
		Endpoint:      strings.TrimPrefix(srv.URL, "http://"),
		Region:        "us-east-1",
		AccessKey:     "test",
		SecretKey:     "test-secret",
		Bucket:        "prints",
		PublicBaseURL: publicBase,
	})
	require.NoError(t, err)
	return c
}

func TestPutAndDelete(t *testing.T) {
	s3 := &fakeS3{}
	c := newFakeClient(t, s3, "https://cdn.example.com/")

	url, err := c.Put(context.Background(), "print-jobs/u1/abc.pdf", strings.NewReader("%PDF-1.4"), 8, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/print-jobs/u1/abc.pdf", url)

	require.NoError(t, c.Delete(context.Background(), "print-jobs/u1/abc.pdf"))

	assert.Equal(t, []string{
		"PUT /prints/print-jobs/u1/abc.pdf",
		"DELETE /prints/print-jobs/u1/abc.pdf",
	}, s3.requests)
}

func TestPutFailureIsUpstream(t *testing.T) {
	c := newFakeClient(t, &fakeS3{fail: true}, "")

	_, err := c.Put(context.Background(), "k", strings.NewReader("x"), 1, "")
	assert.ErrorIs(t, err, core.ErrUpstream)
}

func TestDefaultURLUsesEndpointAndBucket(t *testing.T) {
	c, err := New(config.StorageConfig{Endpoint: "localhost:9000", Bucket: "prints", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/prints/print-jobs/u/my%20file.pdf", c.URL("print-jobs/u/my file.pdf"))
}
