package httplog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"framelift/internal/domain"
)

func TestReadTail(t *testing.T) {
	t.Run("returns transcript body", func(t *testing.T) {
		var gotPath, gotQuery string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.RawQuery
			_, _ = w.Write([]byte("booting\nFRAMELIFT_JOB_COMPLETE\n"))
		}))
		defer srv.Close()

		src := NewSource(srv.URL, 5*time.Second)
		text, err := src.ReadTail(context.Background(), "inst-42", 500)

		require.NoError(t, err)
		assert.Equal(t, "booting\nFRAMELIFT_JOB_COMPLETE\n", text)
		assert.Equal(t, "/instances/inst-42/logs", gotPath)
		assert.Equal(t, "tail=500", gotQuery)
	})

	t.Run("non-200 is transient", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		src := NewSource(srv.URL, 5*time.Second)
		_, err := src.ReadTail(context.Background(), "inst-42", 500)

		assert.Error(t, err)
		assert.True(t, domain.IsTransient(err))
	})

	t.Run("connection failure is transient", func(t *testing.T) {
		src := NewSource("http://127.0.0.1:1", 500*time.Millisecond)
		_, err := src.ReadTail(context.Background(), "inst-42", 500)

		assert.Error(t, err)
		assert.True(t, domain.IsTransient(err))
	})

	t.Run("trailing slash in base URL is tolerated", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/instances/i/logs", r.URL.Path)
			_, _ = w.Write([]byte("ok"))
		}))
		defer srv.Close()

		src := NewSource(srv.URL+"/", 5*time.Second)
		text, err := src.ReadTail(context.Background(), "i", 10)

		require.NoError(t, err)
		assert.Equal(t, "ok", text)
	})
}
