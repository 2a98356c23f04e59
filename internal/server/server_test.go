package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg *Config) *Server {
	t.Helper()
	logger := log.New(io.Discard)
	return NewServer(cfg, logger, quartz.NewMock(t))
}

func originRequest(origin, host string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Host = host
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestCheckOrigin(t *testing.T) {
	cfg := DefaultConfig()
	s := newTestServer(t, cfg)

	t.Run("no origin header is allowed", func(t *testing.T) {
		assert.True(t, s.checkOrigin(originRequest("", "example.com")))
	})

	t.Run("dev origins are allowed outside production", func(t *testing.T) {
		assert.True(t, s.checkOrigin(originRequest("http://localhost:5173", "example.com")))
		assert.False(t, s.checkOrigin(originRequest("http://evil.example", "example.com")))
	})

	t.Run("production allows same-origin only", func(t *testing.T) {
		prod := DefaultConfig()
		prod.Server.Production = true
		s := newTestServer(t, prod)

		assert.True(t, s.checkOrigin(originRequest("https://example.com", "example.com")))
		assert.False(t, s.checkOrigin(originRequest("http://localhost:5173", "example.com")))
	})
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestSendToUnknownSession(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	msg, err := NewMessage(MessageTypeGameEnded, nil)
	require.NoError(t, err)
	assert.Error(t, s.SendToSession("nobody", msg))
	assert.Equal(t, 0, s.SessionCount())
}
