package main

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

func TestResolveMaturity(t *testing.T) {
	params := &chaincfg.RegressionNetParams

	t.Run("defaults to network rule", func(t *testing.T) {
		m, err := resolveMaturity(params, nil)
		require.NoError(t, err)
		require.EqualValues(t, params.CoinbaseMaturity, m)
	})

	t.Run("explicit zero passes through", func(t *testing.T) {
		zero := int64(0)
		m, err := resolveMaturity(params, &zero)
		require.NoError(t, err)
		require.Zero(t, m)
	})

	t.Run("explicit value passes through", func(t *testing.T) {
		one := int64(1)
		m, err := resolveMaturity(params, &one)
		require.NoError(t, err)
		require.EqualValues(t, 1, m)
	})

	t.Run("rejects negative", func(t *testing.T) {
		neg := int64(-1)
		_, err := resolveMaturity(params, &neg)
		require.Error(t, err)
	})
}

func TestNetworkParams(t *testing.T) {
	p, err := networkParams("regtest")
	require.NoError(t, err)
	require.Equal(t, &chaincfg.RegressionNetParams, p)

	_, err = networkParams("moonnet")
	require.Error(t, err)
}
