package breach

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// "password" hashes to 5BAA61E4C9B93F3F0682250B6CF8331B7EE68FD8.
const (
	passwordPrefix = "5BAA6"
	passwordSuffix = "1E4C9B93F3F0682250B6CF8331B7EE68FD8"
)

func rangeServer(t *testing.T, hits *int32, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/range/"+passwordPrefix, r.URL.Path)
		assert.Equal(t, "true", r.Header.Get("Add-Padding"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHashPrefix(t *testing.T) {
	prefix, suffix := HashPrefix("password")
	assert.Equal(t, passwordPrefix, prefix)
	assert.Equal(t, passwordSuffix, suffix)
}

func TestClient_Check(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "found",
			body: "0018A45C4D1DEF81644B54AB7F969B88D65:1\r\n" + passwordSuffix + ":3861493\r\n",
			want: 3861493,
		},
		{
			name: "lower-case suffix in response",
			body: strings.ToLower(passwordSuffix) + ":7\n",
			want: 7,
		},
		{
			name: "not found",
			body: "0018A45C4D1DEF81644B54AB7F969B88D65:1\n",
			want: 0,
		},
		{
			name: "padding lines ignored",
			body: "00000000000000000000000000000000000:0\nFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF:0\n",
			want: 0,
		},
		{
			name: "empty body",
			body: "",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			server := rangeServer(t, &hits, tt.body)
			client := NewClient(WithBaseURL(server.URL))

			count, err := client.Check(context.Background(), "password")
			require.NoError(t, err)
			assert.Equal(t, tt.want, count)
			assert.Equal(t, int32(1), hits)
		})
	}
}

func TestClient_CheckErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := NewClient(WithBaseURL(server.URL)).Check(context.Background(), "password")
		require.ErrorIs(t, err, ErrUnavailable)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := NewClient(WithBaseURL(url)).Check(context.Background(), "password")
		require.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		client := NewClient(WithBaseURL(server.URL), WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
		_, err := client.Check(context.Background(), "password")
		require.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("malformed count", func(t *testing.T) {
		var hits int32
		server := rangeServer(t, &hits, passwordSuffix+":lots\n")
		_, err := NewClient(WithBaseURL(server.URL)).Check(context.Background(), "password")
		require.Error(t, err)
	})
}

func TestClient_InvalidPrefix(t *testing.T) {
	client := NewClient()
	for _, prefix := range []string{"", "5BAA", "5BAA61", "5baa6", "ZZZZZ"} {
		_, err := client.Range(context.Background(), prefix)
		assert.ErrorIs(t, err, ErrInvalidPrefix, "prefix %q", prefix)
	}
}

func TestClient_UsesCache(t *testing.T) {
	var hits int32
	server := rangeServer(t, &hits, passwordSuffix+":42\n")

	cache, err := OpenSQLiteCache(filepath.Join(t.TempDir(), "hibp.db"), time.Hour)
	require.NoError(t, err)
	defer cache.Close()

	client := NewClient(WithBaseURL(server.URL), WithCache(cache))
	for i := 0; i < 3; i++ {
		count, err := client.Check(context.Background(), "password")
		require.NoError(t, err)
		assert.Equal(t, 42, count)
	}
	assert.Equal(t, int32(1), hits, "range should be fetched once")
}
