package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	srv := New(":8080", handler)

	require.NotNil(t, srv)
	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	// The write timeout must outlast the 60s request timeout applied
	// by the handler middleware.
	assert.Greater(t, srv.WriteTimeout, 60*time.Second)
	assert.NotZero(t, srv.IdleTimeout)
}
