// Package allocator orchestrates investment: it routes stable funds into a
// single asset token directly, or across many partially-filled asset tokens
// via the waterfall algorithm on behalf of the pooled portfolio token.
package allocator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asset-tokenizer/internal/ledger"
	"github.com/asset-tokenizer/internal/registry"
)

// Investment is the immutable audit record appended on every investment
// event. Records are never mutated once written.
type Investment struct {
	ID             int             `json:"id"`
	Owner          string          `json:"owner"`
	TokenID        string          `json:"tokenId"`
	AmountInvested decimal.Decimal `json:"amountInvested"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// Allocator owns the cross-cutting linkage between the registry, the stable
// unit, and the pooled token. Collaborators are wired once after deployment
// via the owner-only setters.
type Allocator struct {
	owner   string
	account string

	stable   *ledger.StableUnit
	arena    *ledger.TokenArena
	registry *registry.AssetRegistry
	pool     *ledger.PooledToken
	clock    ledger.Clock

	investments []*Investment
}

// New creates an allocator bound to the stable ledger and token arena. The
// registry and pooled token are wired afterwards, mirroring deployment
// order.
func New(owner string, stable *ledger.StableUnit, arena *ledger.TokenArena, clock ledger.Clock) *Allocator {
	return &Allocator{
		owner:   owner,
		account: uuid.New().String(),
		stable:  stable,
		arena:   arena,
		clock:   clock,
	}
}

// Owner returns the deploying account.
func (a *Allocator) Owner() string { return a.owner }

// Account returns the allocator's component account id. Investors approve
// this account to move their stable funds; asset tokens accept mints only
// from it.
func (a *Allocator) Account() string { return a.account }

// SetAssetRegistry wires the registry. Owner-only, one-time.
func (a *Allocator) SetAssetRegistry(caller string, r *registry.AssetRegistry) error {
	if caller != a.owner {
		return fmt.Errorf("set asset registry: caller %s: %w", caller, ledger.ErrUnauthorized)
	}
	if a.registry != nil {
		return fmt.Errorf("set asset registry: already wired: %w", ledger.ErrInvalidState)
	}
	a.registry = r
	return nil
}

// SetPortfolioToken wires the pooled token. Owner-only, one-time.
func (a *Allocator) SetPortfolioToken(caller string, p *ledger.PooledToken) error {
	if caller != a.owner {
		return fmt.Errorf("set portfolio token: caller %s: %w", caller, ledger.ErrUnauthorized)
	}
	if a.pool != nil {
		return fmt.Errorf("set portfolio token: already wired: %w", ledger.ErrInvalidState)
	}
	a.pool = p
	return nil
}

func (a *Allocator) record(owner, tokenID string, amount decimal.Decimal) *Investment {
	inv := &Investment{
		ID:             len(a.investments) + 1,
		Owner:          owner,
		TokenID:        tokenID,
		AmountInvested: amount,
		CreatedAt:      a.clock.Now(),
	}
	a.investments = append(a.investments, inv)
	return inv
}

// InvestmentByID returns the audit record with the given 1-based id.
func (a *Allocator) InvestmentByID(id int) (*Investment, error) {
	if id < 1 || id > len(a.investments) {
		return nil, fmt.Errorf("investment %d: %w", id, ledger.ErrNotFound)
	}
	return a.investments[id-1], nil
}

// InvestmentsCount returns the number of audit records.
func (a *Allocator) InvestmentsCount() int {
	return len(a.investments)
}

// InvestVehicle routes amount of the investor's stable funds into one asset
// token and mints the corresponding fractional units to the investor. The
// investor must hold and have approved at least the amount; the purchase
// must fit the asset's remaining capacity.
func (a *Allocator) InvestVehicle(investor string, amount decimal.Decimal, tokenID string) ([]*Investment, error) {
	if a.registry == nil {
		return nil, fmt.Errorf("invest vehicle: registry not wired: %w", ledger.ErrInvalidState)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("invest vehicle: amount must be positive: %w", ledger.ErrInvalidState)
	}
	asset, err := a.registry.AssetByToken(tokenID)
	if err != nil {
		return nil, fmt.Errorf("invest vehicle: %w", err)
	}
	token, err := a.arena.Get(tokenID)
	if err != nil {
		return nil, fmt.Errorf("invest vehicle: %w", err)
	}

	units := amount.Div(asset.PricePerUnit).RoundDown(ledger.UnitScale)
	if !units.IsPositive() {
		return nil, fmt.Errorf("invest vehicle: amount %s buys no units at price %s: %w",
			amount, asset.PricePerUnit, ledger.ErrInvalidState)
	}
	remaining, err := token.RemainingCapacity()
	if err != nil {
		return nil, fmt.Errorf("invest vehicle: %w", err)
	}
	if units.GreaterThan(remaining) {
		return nil, fmt.Errorf("invest vehicle: %s units exceeds remaining capacity %s: %w",
			units, remaining, ledger.ErrCapacityExceeded)
	}

	// Every check that can still fail ran above: the state and capacity
	// checks cover the mint, so the transfer is the last fallible step.
	charged := units.Mul(asset.PricePerUnit)
	if err := a.stable.TransferFrom(a.account, investor, tokenID, charged); err != nil {
		return nil, fmt.Errorf("invest vehicle: %w", err)
	}
	if err := token.Mint(a.account, investor, units); err != nil {
		return nil, fmt.Errorf("invest vehicle: %w", err)
	}
	inv := a.record(investor, tokenID, charged)

	if units.Equal(remaining) {
		if err := a.registry.MarkFilled(a.account, asset.ID); err != nil {
			return nil, fmt.Errorf("invest vehicle: %w", err)
		}
	} else {
		a.registry.RecomputeIndex()
	}
	return []*Investment{inv}, nil
}

// InvestPortfolio spreads amount of the investor's stable funds across every
// fillable asset via the waterfall, minting asset-token units to the pooled
// token and pooled tokens to the investor one-to-one for the stable value
// actually allocated. Funds beyond total fillable capacity, or below the
// unit grid, stay with the investor.
func (a *Allocator) InvestPortfolio(investor string, amount decimal.Decimal) ([]*Investment, error) {
	if a.registry == nil || a.pool == nil {
		return nil, fmt.Errorf("invest portfolio: collaborators not wired: %w", ledger.ErrInvalidState)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("invest portfolio: amount must be positive: %w", ledger.ErrInvalidState)
	}
	if a.registry.FillableCount() == 0 {
		return nil, fmt.Errorf("invest portfolio: no fillable assets: %w", ledger.ErrInvalidState)
	}

	targets := make([]fillTarget, 0, a.registry.FillableCount())
	for _, asset := range a.registry.FillableAssets() {
		remaining, err := a.registry.RemainingCapacityStable(asset)
		if err != nil {
			return nil, fmt.Errorf("invest portfolio: %w", err)
		}
		targets = append(targets, fillTarget{
			AssetID:   asset.ID,
			TokenID:   asset.TokenID,
			Remaining: remaining,
			Price:     asset.PricePerUnit,
		})
	}

	plan := planWaterfall(targets, amount)
	total := decimal.Zero
	for _, alloc := range plan {
		total = total.Add(alloc.Amount)
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("invest portfolio: amount %s buys no units: %w", amount, ledger.ErrInvalidState)
	}

	// Validate funds up front so applying the plan cannot fail part-way.
	if a.stable.BalanceOf(investor).LessThan(total) {
		return nil, fmt.Errorf("invest portfolio: investor holds %s, needs %s: %w",
			a.stable.BalanceOf(investor), total, ledger.ErrInsufficientBalance)
	}
	if a.stable.Allowance(investor, a.account).LessThan(total) {
		return nil, fmt.Errorf("invest portfolio: allowance %s below %s: %w",
			a.stable.Allowance(investor, a.account), total, ledger.ErrInsufficientBalance)
	}

	// Pooled tokens are minted before the per-asset bookkeeping: the pool
	// rejects AddInvestment for investors holding no pooled balance.
	if err := a.pool.Mint(a.account, investor, total); err != nil {
		return nil, fmt.Errorf("invest portfolio: %w", err)
	}

	records := make([]*Investment, 0, len(plan))
	for _, alloc := range plan {
		if err := a.stable.TransferFrom(a.account, investor, alloc.TokenID, alloc.Amount); err != nil {
			return nil, fmt.Errorf("invest portfolio: %w", err)
		}
		token, err := a.arena.Get(alloc.TokenID)
		if err != nil {
			return nil, fmt.Errorf("invest portfolio: %w", err)
		}
		if err := token.Mint(a.account, a.pool.ID(), alloc.Units); err != nil {
			return nil, fmt.Errorf("invest portfolio: %w", err)
		}
		if err := a.pool.AddInvestment(a.account, alloc.TokenID, investor, alloc.Units); err != nil {
			return nil, fmt.Errorf("invest portfolio: %w", err)
		}
		records = append(records, a.record(investor, alloc.TokenID, alloc.Amount))
	}

	for _, alloc := range plan {
		if alloc.Fills {
			if err := a.registry.MarkFilled(a.account, alloc.AssetID); err != nil {
				return nil, fmt.Errorf("invest portfolio: %w", err)
			}
		}
	}
	a.registry.RecomputeIndex()
	return records, nil
}
