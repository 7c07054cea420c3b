package wallet

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Gateway is the slice of the node surface the provisioner needs.
type Gateway interface {
	ListWallets(ctx context.Context) ([]string, error)
	ListWalletDir(ctx context.Context) ([]string, error)
	CreateWallet(ctx context.Context, name string) error
	LoadWallet(ctx context.Context, name string) error
}

// Status reports what Ensure had to do for a wallet.
type Status int

const (
	// StatusUsable means the wallet was already loaded; nothing was touched.
	StatusUsable Status = iota
	// StatusCreated means the wallet was created (which also loads it).
	StatusCreated
	// StatusLoaded means the wallet existed on disk and was loaded.
	StatusLoaded
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusLoaded:
		return "loaded"
	default:
		return "already-loaded"
	}
}

// Provisioner makes named wallets exist and be loaded, idempotently.
// Wallets are never deleted; an already-loaded wallet is left untouched.
type Provisioner struct {
	gw     Gateway
	logger *zap.Logger
}

func NewProvisioner(gw Gateway, logger *zap.Logger) *Provisioner {
	return &Provisioner{gw: gw, logger: logger}
}

// Ensure applies the first matching rule: absent on disk -> create,
// on disk but unloaded -> load, otherwise no-op. Any node error aborts;
// there are no retries.
func (p *Provisioner) Ensure(ctx context.Context, name string) (Status, error) {
	onDisk, err := p.gw.ListWalletDir(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "listing wallet dir")
	}
	loaded, err := p.gw.ListWallets(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "listing loaded wallets")
	}

	switch {
	case !contains(onDisk, name):
		p.logger.Info("creating wallet", zap.String("name", name))
		if err := p.gw.CreateWallet(ctx, name); err != nil {
			return 0, err
		}

		return StatusCreated, nil
	case !contains(loaded, name):
		p.logger.Info("loading wallet", zap.String("name", name))
		if err := p.gw.LoadWallet(ctx, name); err != nil {
			return 0, err
		}

		return StatusLoaded, nil
	default:
		p.logger.Info("wallet already loaded", zap.String("name", name))
		return StatusUsable, nil
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}

	return false
}
