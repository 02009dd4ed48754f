package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PooledToken is the fungible ledger representing proportional ownership
// across every asset the allocator has invested in on the pool's behalf.
// Asset-token units bought for the pool are held under the pool's own
// account id; investedUnits caches those balances and must stay in lockstep
// with every asset-token transfer involving the pool.
type PooledToken struct {
	id      string
	owner   string
	minters map[string]struct{}
	arena   *TokenArena

	balances    map[string]decimal.Decimal
	totalSupply decimal.Decimal

	investedUnits map[string]decimal.Decimal
	hasInvestment map[string]bool
	tokenOrder    []string
}

// NewPooledToken creates an empty pool over the given arena. The owner is
// the initial minter and grants further minting rights during deployment.
func NewPooledToken(owner string, arena *TokenArena) *PooledToken {
	return &PooledToken{
		id:            uuid.New().String(),
		owner:         owner,
		minters:       map[string]struct{}{owner: {}},
		arena:         arena,
		balances:      make(map[string]decimal.Decimal),
		investedUnits: make(map[string]decimal.Decimal),
		hasInvestment: make(map[string]bool),
	}
}

// ID returns the pool's component account id.
func (p *PooledToken) ID() string { return p.id }

// AddMinter grants minting rights to account. Owner-only wiring.
func (p *PooledToken) AddMinter(caller, account string) error {
	if caller != p.owner {
		return fmt.Errorf("pool add minter: %w", ErrUnauthorized)
	}
	p.minters[account] = struct{}{}
	return nil
}

// Mint issues amount pooled tokens to the given account.
func (p *PooledToken) Mint(caller, to string, amount decimal.Decimal) error {
	if _, ok := p.minters[caller]; !ok {
		return fmt.Errorf("pool mint: caller %s: %w", caller, ErrUnauthorized)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("pool mint: amount must be positive: %w", ErrInvalidState)
	}
	p.balances[to] = p.balances[to].Add(amount)
	p.totalSupply = p.totalSupply.Add(amount)
	return nil
}

// BalanceOf returns the pooled tokens held by account.
func (p *PooledToken) BalanceOf(account string) decimal.Decimal {
	return p.balances[account]
}

// TotalSupply returns the pooled tokens in circulation.
func (p *PooledToken) TotalSupply() decimal.Decimal {
	return p.totalSupply
}

// InvestedUnits returns the recorded asset-token units the pool holds for
// the given token handle.
func (p *PooledToken) InvestedUnits(tokenID string) decimal.Decimal {
	return p.investedUnits[tokenID]
}

// HasInvestment reports whether the pool currently holds units of the given
// asset token.
func (p *PooledToken) HasInvestment(tokenID string) bool {
	return p.hasInvestment[tokenID]
}

// InvestedTokens returns the handles of every asset token the pool holds,
// in first-investment order.
func (p *PooledToken) InvestedTokens() []string {
	out := make([]string, 0, len(p.tokenOrder))
	for _, id := range p.tokenOrder {
		if p.hasInvestment[id] {
			out = append(out, id)
		}
	}
	return out
}

// AddInvestment records units the allocator has just minted into the pool
// on behalf of investor. The mint must already have happened: the entry is
// a cache of the pool's asset-token balance and may never exceed it.
func (p *PooledToken) AddInvestment(caller, tokenID, investor string, units decimal.Decimal) error {
	if _, ok := p.minters[caller]; !ok {
		return fmt.Errorf("pool add investment: caller %s: %w", caller, ErrUnauthorized)
	}
	if !units.IsPositive() {
		return fmt.Errorf("pool add investment: units must be positive: %w", ErrInvalidState)
	}
	if !p.balances[investor].IsPositive() {
		return fmt.Errorf("pool add investment: investor %s holds no pooled tokens: %w",
			investor, ErrInsufficientBalance)
	}
	token, err := p.arena.Get(tokenID)
	if err != nil {
		return fmt.Errorf("pool add investment: %w", err)
	}
	held, err := token.BalanceOf(p.id)
	if err != nil {
		return fmt.Errorf("pool add investment: %w", err)
	}
	if held.LessThan(p.investedUnits[tokenID].Add(units)) {
		return fmt.Errorf("pool add investment: pool holds %s of token %s, recording %s: %w",
			held, tokenID, p.investedUnits[tokenID].Add(units), ErrInsufficientBalance)
	}
	if !p.hasInvestment[tokenID] {
		p.hasInvestment[tokenID] = true
		p.tokenOrder = append(p.tokenOrder, tokenID)
	}
	p.investedUnits[tokenID] = p.investedUnits[tokenID].Add(units)
	return nil
}

// OwnershipPercentage returns the holder's share of total pooled supply as
// a percentage. The holder must have a nonzero balance.
func (p *PooledToken) OwnershipPercentage(holder string) (decimal.Decimal, error) {
	balance := p.balances[holder]
	if !balance.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("ownership: holder %s has no pooled tokens: %w",
			holder, ErrInsufficientBalance)
	}
	return balance.Div(p.totalSupply).Mul(decimal.NewFromInt(100)), nil
}

// TotalProjectedValueOwned sums, over every asset token the pool holds, the
// holder's share of the pool-attributable projected value.
func (p *PooledToken) TotalProjectedValueOwned(holder string) (decimal.Decimal, error) {
	return p.totalValueOwned(holder, func(t *AssetToken, units decimal.Decimal) decimal.Decimal {
		return t.ProjectedValueOfUnits(units)
	})
}

// TotalCurrentValueOwned sums, over every asset token the pool holds, the
// holder's share of the pool-attributable principal plus accrued profit.
func (p *PooledToken) TotalCurrentValueOwned(holder string) (decimal.Decimal, error) {
	return p.totalValueOwned(holder, func(t *AssetToken, units decimal.Decimal) decimal.Decimal {
		return t.CurrentValueOfUnits(units)
	})
}

func (p *PooledToken) totalValueOwned(holder string, valueOf func(*AssetToken, decimal.Decimal) decimal.Decimal) (decimal.Decimal, error) {
	balance := p.balances[holder]
	if !balance.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("value owned: holder %s has no pooled tokens: %w",
			holder, ErrInsufficientBalance)
	}
	share := balance.Div(p.totalSupply)
	total := decimal.Zero
	for _, tokenID := range p.InvestedTokens() {
		token, err := p.arena.Get(tokenID)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("value owned: %w", err)
		}
		total = total.Add(share.Mul(valueOf(token, p.investedUnits[tokenID])))
	}
	return total, nil
}

// ClaimFundsAndBurn redeems amount pooled tokens: the holder receives their
// proportional slice of the pool's balance in every asset token (becoming a
// direct asset-token holder) and the pooled tokens are burned. Entries that
// reach zero are cleared from the lookup.
func (p *PooledToken) ClaimFundsAndBurn(holder string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("pool claim: amount must be positive: %w", ErrInvalidState)
	}
	if p.balances[holder].LessThan(amount) {
		return fmt.Errorf("pool claim: holder %s holds %s, redeeming %s: %w",
			holder, p.balances[holder], amount, ErrInsufficientBalance)
	}

	full := amount.Equal(p.totalSupply)
	ratio := amount.Div(p.totalSupply)
	for _, tokenID := range p.InvestedTokens() {
		token, err := p.arena.Get(tokenID)
		if err != nil {
			return fmt.Errorf("pool claim: %w", err)
		}
		units := p.investedUnits[tokenID].Mul(ratio).RoundDown(UnitScale)
		if full {
			// Full unwind hands over the exact holding so no dust is stranded.
			units = p.investedUnits[tokenID]
		}
		if !units.IsPositive() {
			continue
		}
		if err := token.Transfer(p.id, holder, units); err != nil {
			return fmt.Errorf("pool claim: %w", err)
		}
		p.investedUnits[tokenID] = p.investedUnits[tokenID].Sub(units)
		if p.investedUnits[tokenID].IsZero() {
			delete(p.investedUnits, tokenID)
			p.hasInvestment[tokenID] = false
		}
	}

	p.balances[holder] = p.balances[holder].Sub(amount)
	if p.balances[holder].IsZero() {
		delete(p.balances, holder)
	}
	p.totalSupply = p.totalSupply.Sub(amount)
	return nil
}
