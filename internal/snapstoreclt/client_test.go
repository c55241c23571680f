package snapstoreclt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/simplesurance/snapbump/internal/snaperr"
)

const infoResponseFixture = `{
  "channel-map": [
    {
      "channel": {"architecture": "arm64", "name": "1.32-classic/stable", "risk": "stable", "track": "1.32-classic"},
      "revision": 7411
    },
    {
      "channel": {"architecture": "amd64", "name": "1.32-classic/edge", "risk": "edge", "track": "1.32-classic"},
      "revision": 7499
    },
    {
      "channel": {"architecture": "amd64", "name": "1.31-classic/stable", "risk": "stable", "track": "1.31-classic"},
      "revision": 7020
    },
    {
      "channel": {"architecture": "amd64", "name": "1.32-classic/stable", "risk": "stable", "track": "1.32-classic"},
      "revision": 7433
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func mustChannel(t *testing.T, track, risk string) Channel {
	t.Helper()

	ch, err := NewChannel(track, risk)
	require.NoError(t, err)

	return ch
}

func TestRevision(t *testing.T) {
	var gotReq *http.Request

	clt := newTestClient(t, func(w http.ResponseWriter, req *http.Request) {
		gotReq = req.Clone(context.Background())
		_, _ = w.Write([]byte(infoResponseFixture))
	})

	info, err := clt.Revision(context.Background(), "k8s", "amd64", mustChannel(t, "1.32-classic", "stable"))
	require.NoError(t, err)

	assert.Equal(t, "7433", info.Revision)
	assert.Equal(t, "1.32-classic/stable", info.ChannelName)

	require.NotNil(t, gotReq)
	assert.Equal(t, "/v2/snaps/info/k8s", gotReq.URL.Path)
	assert.Equal(t, "amd64", gotReq.URL.Query().Get("architecture"))
	assert.Equal(t, "revision", gotReq.URL.Query().Get("fields"))
	assert.Equal(t, "16", gotReq.Header.Get("Snap-Device-Series"))
}

func TestRevisionChannelNotFound(t *testing.T) {
	clt := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(infoResponseFixture))
	})

	_, err := clt.Revision(context.Background(), "k8s", "amd64", mustChannel(t, "1.33-classic", "stable"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChannelNotFound)

	var retryableErr *snaperr.RetryableError
	assert.False(t, errors.As(err, &retryableErr), "channel not found must not be retryable")
}

func TestRevisionSnapNotFound(t *testing.T) {
	clt := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error-list": [{"code": "resource-not-found"}]}`, http.StatusNotFound)
	})

	_, err := clt.Revision(context.Background(), "nosuchsnap", "amd64", mustChannel(t, "1.32", "stable"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSnapNotFound)
}

func TestRevisionServerErrorsAreRetryable(t *testing.T) {
	clt := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := clt.Revision(context.Background(), "k8s", "amd64", mustChannel(t, "1.32-classic", "stable"))
	require.Error(t, err)

	var retryableErr *snaperr.RetryableError
	assert.ErrorAs(t, err, &retryableErr)
}

func TestRevisionThrottlingIsRetryableAfterGivenTime(t *testing.T) {
	clt := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	before := time.Now()

	_, err := clt.Revision(context.Background(), "k8s", "amd64", mustChannel(t, "1.32-classic", "stable"))
	require.Error(t, err)

	var retryableErr *snaperr.RetryableError
	require.ErrorAs(t, err, &retryableErr)

	assert.WithinDuration(t, before.Add(30*time.Second), retryableErr.After, 5*time.Second)
}

func TestRevisionInvalidStoreRevision(t *testing.T) {
	clt := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
  "channel-map": [
    {
      "channel": {"architecture": "amd64", "name": "1.32/stable", "risk": "stable", "track": "1.32"},
      "revision": 0
    }
  ]
}`))
	})

	_, err := clt.Revision(context.Background(), "k8s", "amd64", mustChannel(t, "1.32", "stable"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid revision")
}

func TestNewChannelValidation(t *testing.T) {
	for _, risk := range Risks {
		ch, err := NewChannel("1.32-classic", risk)
		require.NoError(t, err)
		assert.Equal(t, "1.32-classic/"+risk, ch.String())
	}

	_, err := NewChannel("1.32-classic", "rock-solid")
	require.Error(t, err)

	_, err = NewChannel("", "stable")
	require.Error(t, err)
}
