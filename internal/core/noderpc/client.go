package noderpc

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/hashbeam/settler/internal/core/chainmodels"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	Host   string
	User   string
	Pass   string
	Params *chaincfg.Params
}

// Client is a thin synchronous gateway to the node's JSON-RPC control
// interface. Every other component talks to the node through it. Calls
// block until the node responds; errors are surfaced as-is, never retried.
type Client struct {
	cli    *rpcclient.Client
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*Client, error) {
	connCfg := &rpcclient.ConnConfig{
		HTTPPostMode: true,
		DisableTLS:   true, // Bitcoin Core does not support HTTPS for RPC by default
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		Params:       cfg.Params.Name,
	}

	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, err
	}

	return &Client{cli: client, cfg: cfg, logger: logger}, nil
}

// ForWallet derives a client scoped to a named wallet endpoint, the way
// bitcoind routes wallet RPCs (<host>/wallet/<name>).
func (c *Client) ForWallet(name string) (*Client, error) {
	cfg := c.cfg
	cfg.Host = c.cfg.Host + "/wallet/" + name

	return New(cfg, c.logger.With(zap.String("wallet", name)))
}

func (c *Client) Params() *chaincfg.Params {
	return c.cfg.Params
}

func (c *Client) Shutdown() {
	c.cli.Shutdown()
	c.cli.WaitForShutdown()
}

func (c *Client) GetBlockChainInfo(ctx context.Context) (*btcjson.GetBlockChainInfoResult, error) {
	result := c.cli.GetBlockChainInfoAsync()

	select {
	case res := <-result.Response:
		result.Response <- res
		info, err := result.Receive()
		if err != nil {
			return nil, errors.Wrap(err, "getblockchaininfo failed")
		}

		// Core reports "main"/"test" where chaincfg says "mainnet"/"testnet3".
		if !strings.HasPrefix(c.cfg.Params.Name, info.Chain) {
			return nil, errors.Errorf("node runs chain %q, configured for %q",
				info.Chain, c.cfg.Params.Name)
		}

		return info, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) GetBlockCount(ctx context.Context) (int64, error) {
	result := c.cli.GetBlockCountAsync()

	select {
	case res := <-result:
		result <- res
		count, err := result.Receive()
		return count, errors.Wrap(err, "getblockcount failed")
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// ListWallets reports the wallets loaded in the running process.
func (c *Client) ListWallets(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.rawRequest(ctx, "listwallets", nil, &names); err != nil {
		return nil, errors.Wrap(err, "listwallets failed")
	}

	return names, nil
}

// ListWalletDir reports the wallets known to the node's storage
// directory, loaded or not.
func (c *Client) ListWalletDir(ctx context.Context) ([]string, error) {
	var result struct {
		Wallets []struct {
			Name string `json:"name"`
		} `json:"wallets"`
	}
	if err := c.rawRequest(ctx, "listwalletdir", nil, &result); err != nil {
		return nil, errors.Wrap(err, "listwalletdir failed")
	}

	names := make([]string, 0, len(result.Wallets))
	for _, w := range result.Wallets {
		names = append(names, w.Name)
	}

	return names, nil
}

func (c *Client) CreateWallet(ctx context.Context, name string) error {
	result := c.cli.CreateWalletAsync(name)

	select {
	case res := <-result:
		result <- res
		_, err := result.Receive()
		return errors.Wrapf(err, "creating wallet %q", name)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) LoadWallet(ctx context.Context, name string) error {
	result := c.cli.LoadWalletAsync(name)

	select {
	case res := <-result:
		result <- res
		_, err := result.Receive()
		return errors.Wrapf(err, "loading wallet %q", name)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewAddress generates a fresh address from the wallet this client is
// scoped to and validates it against the configured network.
func (c *Client) NewAddress(ctx context.Context) (btcutil.Address, error) {
	var encoded string
	if err := c.rawRequest(ctx, "getnewaddress", nil, &encoded); err != nil {
		return nil, errors.Wrap(err, "getnewaddress failed")
	}

	addr, err := btcutil.DecodeAddress(encoded, c.cfg.Params)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding address %q", encoded)
	}
	if !addr.IsForNet(c.cfg.Params) {
		return nil, errors.Errorf("address %s is not valid for network %s",
			addr.EncodeAddress(), c.cfg.Params.Name)
	}

	return addr, nil
}

func (c *Client) GenerateToAddress(ctx context.Context, numBlocks int64, addr btcutil.Address) ([]*chainhash.Hash, error) {
	result := c.cli.GenerateToAddressAsync(numBlocks, addr, nil)

	select {
	case res := <-result:
		result <- res
		hashes, err := result.Receive()
		return hashes, errors.Wrapf(err, "generating %d blocks", numBlocks)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) GetBalance(ctx context.Context) (btcutil.Amount, error) {
	result := c.cli.GetBalanceAsync("*")

	select {
	case res := <-result:
		result <- res
		amount, err := result.Receive()
		return amount, errors.Wrap(err, "getbalance failed")
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (c *Client) SendToAddress(ctx context.Context, addr btcutil.Address, amount btcutil.Amount) (*chainhash.Hash, error) {
	result := c.cli.SendToAddressAsync(addr, amount)

	select {
	case res := <-result:
		result <- res
		hash, err := result.Receive()
		return hash, errors.Wrapf(err, "sending %s to %s", amount, addr.EncodeAddress())
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) GetMempoolEntry(ctx context.Context, txid string) (*btcjson.GetMempoolEntryResult, error) {
	result := c.cli.GetMempoolEntryAsync(txid)

	select {
	case res := <-result:
		result <- res
		entry, err := result.Receive()
		return entry, errors.Wrapf(err, "mempool entry for %s", txid)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetRawTransaction fetches the verbose decoded form of a transaction.
func (c *Client) GetRawTransaction(ctx context.Context, txid string) (*chainmodels.TxView, error) {
	params := []json.RawMessage{mustMarshal(txid), mustMarshal(true)}

	var view chainmodels.TxView
	if err := c.rawRequest(ctx, "getrawtransaction", params, &view); err != nil {
		return nil, errors.Wrapf(err, "getrawtransaction %s", txid)
	}

	return &view, nil
}

// GetWalletTransaction fetches the wallet-side view of a transaction,
// which carries the signed fee and confirmation info.
func (c *Client) GetWalletTransaction(ctx context.Context, txid string) (*chainmodels.WalletTx, error) {
	params := []json.RawMessage{mustMarshal(txid)}

	var view chainmodels.WalletTx
	if err := c.rawRequest(ctx, "gettransaction", params, &view); err != nil {
		return nil, errors.Wrapf(err, "gettransaction %s", txid)
	}

	return &view, nil
}

// GetBlockHeight resolves a block hash to its height.
func (c *Client) GetBlockHeight(ctx context.Context, blockHash string) (int64, error) {
	hash, err := chainhash.NewHashFromStr(blockHash)
	if err != nil {
		return 0, errors.Wrapf(err, "bad block hash %s", blockHash)
	}

	result := c.cli.GetBlockVerboseAsync(hash)

	select {
	case res := <-result.Response:
		result.Response <- res
		block, err := result.Receive()
		if err != nil {
			return 0, errors.Wrapf(err, "getblock %s", blockHash)
		}

		return block.Height, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// rawRequest issues a generic RPC call and decodes the result into out,
// honoring ctx cancellation while the call is in flight.
func (c *Client) rawRequest(ctx context.Context, method string, params []json.RawMessage, out any) error {
	result := c.cli.RawRequestAsync(method, params)

	select {
	case res := <-result:
		result <- res
		raw, err := result.Receive()
		if err != nil {
			return err
		}

		return json.Unmarshal(raw, out)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return data
}
