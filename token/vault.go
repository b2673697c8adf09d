package token

import (
	"errors"
	"sync"

	"github.com/colorfulnotion/merkledrop/common"
	"github.com/colorfulnotion/merkledrop/log"
	"github.com/holiman/uint256"
)

var ErrInsufficientBalance = errors.New("insufficient custody balance")

// Custody is the fungible-asset collaborator: a transfer primitive with
// success/failure signaling and standard balance semantics. The distributor
// depends on this interface, never on a concrete asset.
type Custody interface {
	Transfer(to common.Address, amount *uint256.Int) error
	BalanceOf(addr common.Address) *uint256.Int
}

// Vault is an in-memory custody pool with uint256 balance bookkeeping.
// It is funded once and then only drained by transfers.
type Vault struct {
	mu       sync.Mutex
	asset    common.Address
	pool     *uint256.Int
	balances map[common.Address]*uint256.Int
}

// NewVault creates a custody pool for the given asset identifier, funded
// with the given balance.
func NewVault(asset common.Address, funding *uint256.Int) *Vault {
	return &Vault{
		asset:    asset,
		pool:     new(uint256.Int).Set(funding),
		balances: make(map[common.Address]*uint256.Int),
	}
}

// Asset returns the identifier of the held asset.
func (v *Vault) Asset() common.Address {
	return v.asset
}

// Transfer moves amount from the pool to the recipient. Fails without any
// state change when the pool cannot cover the amount.
func (v *Vault) Transfer(to common.Address, amount *uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.pool.Lt(amount) {
		return ErrInsufficientBalance
	}
	v.pool.Sub(v.pool, amount)
	bal, ok := v.balances[to]
	if !ok {
		bal = new(uint256.Int)
		v.balances[to] = bal
	}
	bal.Add(bal, amount)
	log.Trace(log.VaultMonitoring, "custody transfer", "to", to.Hex(), "amount", amount.Dec())
	return nil
}

// BalanceOf returns a copy of the recipient's accumulated balance.
func (v *Vault) BalanceOf(addr common.Address) *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()

	bal, ok := v.balances[addr]
	if !ok {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(bal)
}

// PoolBalance returns a copy of the remaining undistributed balance.
func (v *Vault) PoolBalance() *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return new(uint256.Int).Set(v.pool)
}
