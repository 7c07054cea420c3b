package noderest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Rest talks to bitcoind's unauthenticated REST interface (-rest). It is
// a secondary, advisory view of the node: the workflow uses it for a
// preflight probe and for cross-checking the confirming block of a
// reconstructed transaction. RPC stays authoritative.
type Rest struct {
	cli    *resty.Client
	logger *zap.Logger
}

type RestOpts struct {
	HttpClient *http.Client
}

func NewRest(baseURL string, logger *zap.Logger, opts ...func(*RestOpts)) *Rest {
	var options RestOpts
	for _, opt := range opts {
		opt(&options)
	}

	cli := resty.New()
	if options.HttpClient != nil {
		cli = resty.NewWithClient(options.HttpClient)
	}
	cli.SetBaseURL(baseURL)

	return &Rest{cli: cli, logger: logger}
}

func WithHttpClient(hc *http.Client) func(*RestOpts) {
	return func(o *RestOpts) { o.HttpClient = hc }
}

type ChainInfo struct {
	Chain         string `json:"chain"`
	Blocks        int64  `json:"blocks"`
	BestBlockHash string `json:"bestblockhash"`
}

func (r *Rest) ChainInfo(ctx context.Context) (*ChainInfo, error) {
	var info ChainInfo
	result, err := r.cli.R().
		SetContext(ctx).
		SetResult(&info).
		Get("/rest/chaininfo.json")

	if err != nil {
		return nil, err
	}
	if result.StatusCode() != 200 {
		return nil, errors.New(fmt.Sprintf("unexpected status code: %d", result.StatusCode()))
	}

	return &info, nil
}

type TxStatus struct {
	TxID      string `json:"txid"`
	BlockHash string `json:"blockhash"`
}

func (r *Rest) Tx(ctx context.Context, txid string) (*TxStatus, error) {
	var status TxStatus
	result, err := r.cli.R().
		SetContext(ctx).
		SetPathParam("txid", txid).
		SetResult(&status).
		Get("/rest/tx/{txid}.json")

	if err != nil {
		return nil, err
	}
	if result.StatusCode() != 200 {
		return nil, errors.New(fmt.Sprintf("unexpected status code: %d", result.StatusCode()))
	}

	return &status, nil
}

// CrossCheck compares the REST view of a confirmed transaction against
// the block hash the reconstruction derived. Mismatches and REST
// failures are reported as warnings by the caller, never as run
// failures.
func (r *Rest) CrossCheck(ctx context.Context, txid, blockHash string) error {
	status, err := r.Tx(ctx, txid)
	if err != nil {
		return errors.Wrap(err, "rest tx lookup")
	}

	if status.BlockHash != blockHash {
		return errors.Errorf("rest reports block %s, reconstruction derived %s",
			status.BlockHash, blockHash)
	}

	r.logger.Info("rest cross-check passed",
		zap.String("txid", txid), zap.String("block", blockHash))

	return nil
}
