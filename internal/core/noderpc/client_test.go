package noderpc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newBlockedClient points a client at a server that never answers, so
// only context cancellation can end a call.
func newBlockedClient(t *testing.T) *Client {
	t.Helper()

	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-blocked
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{
		Host:   strings.TrimPrefix(srv.URL, "http://"),
		User:   "user",
		Pass:   "pass",
		Params: &chaincfg.RegressionNetParams,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)
	t.Cleanup(func() { close(blocked) })

	return c
}

func TestClient_CallsHonorContextDeadline(t *testing.T) {
	c := newBlockedClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.GetBlockCount(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = c.GetBalance(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = c.NewAddress(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = c.GetBlockChainInfo(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.ErrorIs(t, c.CreateWallet(ctx, "miner"), context.DeadlineExceeded)
	require.ErrorIs(t, c.LoadWallet(ctx, "miner"), context.DeadlineExceeded)
}
