package logx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-pkgz/requester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestChain_RequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	lg := slog.New(NewChain(slog.HandlerOptions{}.NewTextHandler(buf), RequestID))

	lg.InfoCtx(ContextWithRequestID(context.Background(), "abc"), "hello")
	assert.Contains(t, buf.String(), "request_id=abc")

	buf.Reset()
	lg.With(slog.String("prefix", "test")).InfoCtx(context.Background(), "no id")
	assert.NotContains(t, buf.String(), "request_id")
	assert.Contains(t, buf.String(), "prefix=test")
}

func TestNoOp(t *testing.T) {
	lg := slog.New(NoOp())
	assert.False(t, lg.Handler().Enabled(context.Background(), slog.LevelError))
	lg.Error("discarded")
}

func TestLoggingRoundTripper(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, `{"comment":"nice"}`, string(body), "body must reach the server intact")
		w.Header().Set("X-Secret", "s3cr3t")
		_, err = w.Write([]byte(strings.Repeat("x", 20)))
		require.NoError(t, err)
	}))
	defer ts.Close()

	buf := &bytes.Buffer{}
	lg := slog.New(slog.HandlerOptions{Level: slog.LevelDebug}.NewTextHandler(buf))

	rq := requester.New(http.Client{}, LoggingRoundTripper(lg, RoundTripperOpts{
		Level:         slog.LevelDebug,
		SecretHeaders: []string{"X-Secret"},
		TrimBodyAt:    10,
	}))

	req, err := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader(`{"comment":"nice"}`))
	require.NoError(t, err)

	resp, err := rq.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 20), string(body), "response body must be readable in full")

	logs := buf.String()
	assert.Contains(t, logs, "request sent")
	assert.Contains(t, logs, "response received")
	assert.Contains(t, logs, "***")
	assert.NotContains(t, logs, "s3cr3t")
}
