// Package ledger implements the balance ledgers at the heart of the
// tokenization system: the StableUnit funding currency, the arena of
// per-asset fractional tokens, and the pooled portfolio token.
//
// Every ledger is a plain single-threaded data structure. The host layer
// (internal/service) serializes access, so no ledger carries its own lock.
// Accounts are opaque string ids; components (allocator, registry, asset
// tokens, the pool) hold balances under their own component ids.
package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitScale is the number of decimal places carried by every balance and
// token-unit amount. Waterfall splits round down to this scale.
const UnitScale = 6

// StableUnit is the fungible unit-of-account ledger used for funding and
// payouts. Minting is restricted to registered minters; the deployment
// grants those rights to the allocator and to the registry (the latter as
// the redemption backstop).
type StableUnit struct {
	id          string
	owner       string
	minters     map[string]struct{}
	balances    map[string]decimal.Decimal
	allowances  map[string]map[string]decimal.Decimal
	totalSupply decimal.Decimal
}

// NewStableUnit creates an empty ledger. The owner is the initial minter.
func NewStableUnit(owner string) *StableUnit {
	return &StableUnit{
		id:         uuid.New().String(),
		owner:      owner,
		minters:    map[string]struct{}{owner: {}},
		balances:   make(map[string]decimal.Decimal),
		allowances: make(map[string]map[string]decimal.Decimal),
	}
}

// ID returns the ledger's component id as recorded in the address book.
func (s *StableUnit) ID() string { return s.id }

// Owner returns the account that deployed the ledger.
func (s *StableUnit) Owner() string { return s.owner }

// IsMinter reports whether account holds minting rights.
func (s *StableUnit) IsMinter(account string) bool {
	_, ok := s.minters[account]
	return ok
}

// AddMinter grants minting rights to account. Owner-only wiring.
func (s *StableUnit) AddMinter(caller, account string) error {
	if caller != s.owner {
		return fmt.Errorf("add minter: %w", ErrUnauthorized)
	}
	s.minters[account] = struct{}{}
	return nil
}

// Mint issues amount new units to the given account.
func (s *StableUnit) Mint(caller, to string, amount decimal.Decimal) error {
	if !s.IsMinter(caller) {
		return fmt.Errorf("mint: caller %s: %w", caller, ErrUnauthorized)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("mint: amount must be positive: %w", ErrInvalidState)
	}
	s.balances[to] = s.balances[to].Add(amount)
	s.totalSupply = s.totalSupply.Add(amount)
	return nil
}

// Transfer moves amount from one account to another.
func (s *StableUnit) Transfer(from, to string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("transfer: amount must be positive: %w", ErrInvalidState)
	}
	if s.balances[from].LessThan(amount) {
		return fmt.Errorf("transfer: account %s holds %s, needs %s: %w",
			from, s.balances[from], amount, ErrInsufficientBalance)
	}
	s.balances[from] = s.balances[from].Sub(amount)
	s.balances[to] = s.balances[to].Add(amount)
	return nil
}

// Approve lets spender move up to amount from the owner's account via
// TransferFrom. A later call replaces the previous allowance.
func (s *StableUnit) Approve(account, spender string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("approve: amount must not be negative: %w", ErrInvalidState)
	}
	if s.allowances[account] == nil {
		s.allowances[account] = make(map[string]decimal.Decimal)
	}
	s.allowances[account][spender] = amount
	return nil
}

// Allowance returns the remaining amount spender may move from account.
func (s *StableUnit) Allowance(account, spender string) decimal.Decimal {
	return s.allowances[account][spender]
}

// TransferFrom moves amount from one account to another on the strength of
// a prior approval, consuming the spender's allowance.
func (s *StableUnit) TransferFrom(spender, from, to string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("transfer from: amount must be positive: %w", ErrInvalidState)
	}
	if s.Allowance(from, spender).LessThan(amount) {
		return fmt.Errorf("transfer from: allowance of %s for %s is %s, needs %s: %w",
			from, spender, s.Allowance(from, spender), amount, ErrInsufficientBalance)
	}
	if err := s.Transfer(from, to, amount); err != nil {
		return err
	}
	s.allowances[from][spender] = s.allowances[from][spender].Sub(amount)
	return nil
}

// Burn destroys amount from the given account.
func (s *StableUnit) Burn(from string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("burn: amount must be positive: %w", ErrInvalidState)
	}
	if s.balances[from].LessThan(amount) {
		return fmt.Errorf("burn: account %s holds %s, needs %s: %w",
			from, s.balances[from], amount, ErrInsufficientBalance)
	}
	s.balances[from] = s.balances[from].Sub(amount)
	s.totalSupply = s.totalSupply.Sub(amount)
	return nil
}

// BalanceOf returns the balance of account (zero for unknown accounts).
func (s *StableUnit) BalanceOf(account string) decimal.Decimal {
	return s.balances[account]
}

// TotalSupply returns the total minted, net of burns.
func (s *StableUnit) TotalSupply() decimal.Decimal {
	return s.totalSupply
}
