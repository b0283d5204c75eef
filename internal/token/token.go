package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"launchpad/internal/state"
)

// Info is the immutable metadata of a token.
type Info struct {
	Address     common.Address
	Name        string
	Symbol      string
	Description string
	Creator     common.Address
	// Authority holds the initial supply and is the only address allowed to
	// toggle the approvable flag or receive allowances before it is set.
	Authority common.Address
}

// Token is an in-memory fungible asset with an approvable extension.
type Token struct {
	info        Info
	journal     *state.Journal
	totalSupply uint256.Int
	approvable  bool
	balances    map[common.Address]uint256.Int
	allowances  map[common.Address]map[common.Address]uint256.Int
}

// New creates a token and mints the full supply to the authority.
func New(journal *state.Journal, info Info, supply *uint256.Int) *Token {
	if journal == nil {
		journal = state.NewJournal()
	}
	t := &Token{
		info:        info,
		journal:     journal,
		totalSupply: *supply,
		balances:    make(map[common.Address]uint256.Int),
		allowances:  make(map[common.Address]map[common.Address]uint256.Int),
	}
	t.balances[info.Authority] = *supply
	return t
}

func (t *Token) Address() common.Address   { return t.info.Address }
func (t *Token) Name() string              { return t.info.Name }
func (t *Token) Symbol() string            { return t.info.Symbol }
func (t *Token) Description() string       { return t.info.Description }
func (t *Token) Creator() common.Address   { return t.info.Creator }
func (t *Token) Info() Info                { return t.info }
func (t *Token) Approvable() bool          { return t.approvable }
func (t *Token) TotalSupply() *uint256.Int { return new(uint256.Int).Set(&t.totalSupply) }

// BalanceOf returns a copy of the balance of addr.
func (t *Token) BalanceOf(addr common.Address) *uint256.Int {
	bal := t.balances[addr]
	return &bal
}

// Allowance returns how much spender may move on behalf of owner.
func (t *Token) Allowance(owner, spender common.Address) *uint256.Int {
	allowed := t.allowances[owner][spender]
	return &allowed
}

// Transfer moves amount from one holder to another.
func (t *Token) Transfer(from, to common.Address, amount *uint256.Int) error {
	fromBal := t.BalanceOf(from)
	if fromBal.Lt(amount) {
		return fmt.Errorf("%s transfer %s from %s: %w", t.info.Symbol, amount.Dec(), from.Hex(), ErrInsufficientBalance)
	}
	if amount.IsZero() || from == to {
		return nil
	}
	t.setBalance(from, fromBal.Sub(fromBal, amount))
	t.setBalance(to, new(uint256.Int).Add(t.BalanceOf(to), amount))
	return nil
}

// Approve sets the allowance of spender over owner's balance. Until the token
// is approvable only the authority may be granted an allowance.
func (t *Token) Approve(owner, spender common.Address, amount *uint256.Int) error {
	if !t.approvable && spender != t.info.Authority {
		return fmt.Errorf("%s approve %s: %w", t.info.Symbol, spender.Hex(), ErrNotApprovable)
	}
	t.setAllowance(owner, spender, amount)
	return nil
}

// TransferFrom moves amount from one holder to another using spender's allowance.
func (t *Token) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	allowed := t.Allowance(from, spender)
	if allowed.Lt(amount) {
		return fmt.Errorf("%s transferFrom %s by %s: %w", t.info.Symbol, from.Hex(), spender.Hex(), ErrInsufficientAllowance)
	}
	if err := t.Transfer(from, to, amount); err != nil {
		return err
	}
	t.setAllowance(from, spender, allowed.Sub(allowed, amount))
	return nil
}

// SetApprovable toggles the allowance restriction. Only the authority may call it.
func (t *Token) SetApprovable(caller common.Address, approvable bool) error {
	if caller != t.info.Authority {
		return fmt.Errorf("%s set approvable by %s: %w", t.info.Symbol, caller.Hex(), ErrUnauthorized)
	}
	prev := t.approvable
	t.approvable = approvable
	t.journal.Append(func() { t.approvable = prev })
	return nil
}

func (t *Token) setBalance(addr common.Address, value *uint256.Int) {
	prev, existed := t.balances[addr]
	t.balances[addr] = *value
	t.journal.Append(func() {
		if existed {
			t.balances[addr] = prev
		} else {
			delete(t.balances, addr)
		}
	})
}

func (t *Token) setAllowance(owner, spender common.Address, value *uint256.Int) {
	byOwner, ok := t.allowances[owner]
	if !ok {
		byOwner = make(map[common.Address]uint256.Int)
		t.allowances[owner] = byOwner
	}
	prev, existed := byOwner[spender]
	byOwner[spender] = *value
	t.journal.Append(func() {
		if existed {
			byOwner[spender] = prev
		} else {
			delete(byOwner, spender)
		}
	})
}
