package gonka

import (
	"log/slog"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/gonkalabs/langextract-go/internal/config"
)

// Wallet holds a signer and its associated requester address.
type Wallet struct {
	Signer  *Signer
	Address string
}

// Pool hands out wallets round-robin.
type Pool struct {
	wallets []Wallet
	counter atomic.Uint64
}

// NewPool creates a Pool. At least one wallet is required.
func NewPool(wallets []Wallet) (*Pool, error) {
	if len(wallets) == 0 {
		return nil, errors.New("wallet pool: at least one wallet is required")
	}
	slog.Info("wallet pool initialised", "wallets", len(wallets))
	return &Pool{wallets: wallets}, nil
}

// PoolFromConfig builds signers for every configured wallet.
func PoolFromConfig(cfgs []config.WalletCfg) (*Pool, error) {
	wallets := make([]Wallet, 0, len(cfgs))
	for i, wc := range cfgs {
		s, err := NewSigner(wc.PrivateKey)
		if err != nil {
			return nil, errors.Wrapf(err, "wallet %d", i+1)
		}
		wallets = append(wallets, Wallet{Signer: s, Address: wc.Address})
	}
	return NewPool(wallets)
}

// Next returns the next wallet. Safe for concurrent use.
func (p *Pool) Next() *Wallet {
	idx := p.counter.Add(1) - 1
	return &p.wallets[idx%uint64(len(p.wallets))]
}

// Len returns the number of wallets in the pool.
func (p *Pool) Len() int { return len(p.wallets) }
