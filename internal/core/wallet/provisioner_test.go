package wallet

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGateway struct {
	onDisk  []string
	loaded  []string
	creates int
	loads   int

	listErr error
}

func (f *fakeGateway) ListWallets(context.Context) ([]string, error) {
	return f.loaded, f.listErr
}

func (f *fakeGateway) ListWalletDir(context.Context) ([]string, error) {
	return f.onDisk, f.listErr
}

func (f *fakeGateway) CreateWallet(_ context.Context, name string) error {
	f.creates++
	f.onDisk = append(f.onDisk, name)
	f.loaded = append(f.loaded, name)
	return nil
}

func (f *fakeGateway) LoadWallet(_ context.Context, name string) error {
	f.loads++
	f.loaded = append(f.loaded, name)
	return nil
}

func TestProvisioner_Ensure(t *testing.T) {
	ctx := context.Background()

	t.Run("creates missing wallet", func(t *testing.T) {
		gw := &fakeGateway{}
		p := NewProvisioner(gw, zap.NewNop())

		status, err := p.Ensure(ctx, "miner")
		require.NoError(t, err)
		require.Equal(t, StatusCreated, status)
		require.Equal(t, 1, gw.creates)
		require.Equal(t, 0, gw.loads)
	})

	t.Run("loads unloaded wallet", func(t *testing.T) {
		gw := &fakeGateway{onDisk: []string{"miner"}}
		p := NewProvisioner(gw, zap.NewNop())

		status, err := p.Ensure(ctx, "miner")
		require.NoError(t, err)
		require.Equal(t, StatusLoaded, status)
		require.Equal(t, 0, gw.creates)
		require.Equal(t, 1, gw.loads)
	})

	t.Run("second call is a no-op", func(t *testing.T) {
		gw := &fakeGateway{}
		p := NewProvisioner(gw, zap.NewNop())

		_, err := p.Ensure(ctx, "miner")
		require.NoError(t, err)

		status, err := p.Ensure(ctx, "miner")
		require.NoError(t, err)
		require.Equal(t, StatusUsable, status)
		require.Equal(t, 1, gw.creates)
		require.Equal(t, 0, gw.loads)
	})

	t.Run("surfaces list errors", func(t *testing.T) {
		gw := &fakeGateway{listErr: errors.New("node unreachable")}
		p := NewProvisioner(gw, zap.NewNop())

		_, err := p.Ensure(ctx, "miner")
		require.Error(t, err)
		require.Zero(t, gw.creates)
	})
}
