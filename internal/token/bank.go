package token

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"launchpad/internal/state"
)

// ReceiveHook runs after an address has been credited native currency. A
// non-nil error rejects the transfer.
type ReceiveHook func(ctx context.Context, from common.Address, amount *uint256.Int) error

// Bank is an in-memory native-currency ledger. Transfers to an address with a
// receive hook invoke the hook after the credit, the way a payable contract is
// called on value transfer.
type Bank struct {
	journal  *state.Journal
	balances map[common.Address]uint256.Int
	hooks    map[common.Address]ReceiveHook
}

// NewBank creates a bank writing undo entries to journal.
func NewBank(journal *state.Journal) *Bank {
	if journal == nil {
		journal = state.NewJournal()
	}
	return &Bank{
		journal:  journal,
		balances: make(map[common.Address]uint256.Int),
		hooks:    make(map[common.Address]ReceiveHook),
	}
}

// BalanceOf returns a copy of the balance of addr.
func (b *Bank) BalanceOf(addr common.Address) *uint256.Int {
	bal := b.balances[addr]
	return &bal
}

// Mint credits amount to addr out of thin air. Used for genesis balances.
func (b *Bank) Mint(addr common.Address, amount *uint256.Int) {
	b.setBalance(addr, new(uint256.Int).Add(b.BalanceOf(addr), amount))
}

// SetReceiveHook installs or clears (nil hook) the receive hook for addr.
func (b *Bank) SetReceiveHook(addr common.Address, hook ReceiveHook) {
	if hook == nil {
		delete(b.hooks, addr)
		return
	}
	b.hooks[addr] = hook
}

// Transfer moves amount from one address to another. If the recipient hook
// fails the whole transfer, including anything the hook itself changed, is
// reverted.
func (b *Bank) Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	fromBal := b.BalanceOf(from)
	if fromBal.Lt(amount) {
		return fmt.Errorf("transfer %s from %s: %w", amount.Dec(), from.Hex(), ErrInsufficientBalance)
	}

	snap := b.journal.Snapshot()
	b.setBalance(from, fromBal.Sub(fromBal, amount))
	b.setBalance(to, new(uint256.Int).Add(b.BalanceOf(to), amount))

	hook, ok := b.hooks[to]
	if !ok {
		return nil
	}
	if err := hook(ctx, from, amount); err != nil {
		b.journal.RevertToSnapshot(snap)
		return fmt.Errorf("%w by %s: %w", ErrReceiveRejected, to.Hex(), err)
	}
	return nil
}

func (b *Bank) setBalance(addr common.Address, value *uint256.Int) {
	prev, existed := b.balances[addr]
	b.balances[addr] = *value
	b.journal.Append(func() {
		if existed {
			b.balances[addr] = prev
		} else {
			delete(b.balances, addr)
		}
	})
}
