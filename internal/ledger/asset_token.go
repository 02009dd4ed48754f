package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TokenState represents the lifecycle state of an asset token.
type TokenState string

const (
	// StateActive represents a token accepting investment and accruing profit.
	StateActive TokenState = "active"
	// StatePartiallyRedeemed represents a token some holders have claimed against.
	StatePartiallyRedeemed TokenState = "partially_redeemed"
	// StateTerminated represents a fully unwound token; its slot refuses all access.
	StateTerminated TokenState = "terminated"
)

// accrualMonth is the fixed month length used by the linear accrual clock.
const accrualMonth = 30 * 24 * time.Hour

// AssetEconomics carries the economic parameters an asset token is created
// with. Values are USD denominated in stable units.
type AssetEconomics struct {
	Name              string
	ValueUSD          decimal.Decimal
	Cap               decimal.Decimal
	AnnualizedROI     decimal.Decimal
	ProjectedValueUSD decimal.Decimal
	TimeframeMonths   int
	PricePerUnit      decimal.Decimal
}

// Validate checks the parameters an asset token cannot be created without.
func (e AssetEconomics) Validate() error {
	if !e.Cap.IsPositive() {
		return fmt.Errorf("economics: cap must be positive: %w", ErrInvalidState)
	}
	if e.TimeframeMonths <= 0 {
		return fmt.Errorf("economics: timeframe must be positive: %w", ErrInvalidState)
	}
	if !e.PricePerUnit.IsPositive() {
		return fmt.Errorf("economics: price per unit must be positive: %w", ErrInvalidState)
	}
	return nil
}

// ProjectedProfitTotal returns the profit the whole asset is projected to
// yield over its timeframe.
func (e AssetEconomics) ProjectedProfitTotal() decimal.Decimal {
	return e.ProjectedValueUSD.Sub(e.ValueUSD)
}

// AssetToken is the fungible fractional-ownership ledger of one registered
// asset. Each token lives in an arena slot keyed by its id; the id doubles
// as the token's own StableUnit account, which holds invested funds and the
// owner-posted payout reserve.
type AssetToken struct {
	id       string
	econ     AssetEconomics
	minter   string
	backstop string
	state    TokenState

	balances    map[string]decimal.Decimal
	totalSupply decimal.Decimal

	funded   bool
	fundedAt time.Time

	stable *StableUnit
	clock  Clock
}

// ID returns the token's arena handle.
func (t *AssetToken) ID() string { return t.id }

// State returns the token's lifecycle state.
func (t *AssetToken) State() TokenState { return t.state }

// Economics returns the token's economic parameters.
func (t *AssetToken) Economics() AssetEconomics { return t.econ }

// Cap returns the maximum number of fractional units the token may issue.
func (t *AssetToken) Cap() decimal.Decimal { return t.econ.Cap }

// Funded reports whether the asset owner has posted the projected payout.
func (t *AssetToken) Funded() bool { return t.funded }

func (t *AssetToken) checkLive() error {
	if t.state == StateTerminated {
		return fmt.Errorf("token %s is terminated: %w", t.id, ErrInvalidState)
	}
	return nil
}

// TotalSupply returns the units issued so far.
func (t *AssetToken) TotalSupply() (decimal.Decimal, error) {
	if err := t.checkLive(); err != nil {
		return decimal.Decimal{}, err
	}
	return t.totalSupply, nil
}

// BalanceOf returns the units held by account.
func (t *AssetToken) BalanceOf(account string) (decimal.Decimal, error) {
	if err := t.checkLive(); err != nil {
		return decimal.Decimal{}, err
	}
	return t.balances[account], nil
}

// RemainingCapacity returns cap minus issued supply, in units.
func (t *AssetToken) RemainingCapacity() (decimal.Decimal, error) {
	if err := t.checkLive(); err != nil {
		return decimal.Decimal{}, err
	}
	return t.econ.Cap.Sub(t.totalSupply), nil
}

// Mint issues amount units to the given account. Restricted to the
// allocator the token was created with. Partial redemption does not close
// the book: any live token accepts new units up to its cap.
func (t *AssetToken) Mint(caller, to string, amount decimal.Decimal) error {
	if caller != t.minter {
		return fmt.Errorf("mint on token %s: caller %s: %w", t.id, caller, ErrUnauthorized)
	}
	if err := t.checkLive(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("mint on token %s: amount must be positive: %w", t.id, ErrInvalidState)
	}
	if t.totalSupply.Add(amount).GreaterThan(t.econ.Cap) {
		return fmt.Errorf("mint on token %s: supply %s + %s exceeds cap %s: %w",
			t.id, t.totalSupply, amount, t.econ.Cap, ErrCapacityExceeded)
	}
	t.balances[to] = t.balances[to].Add(amount)
	t.totalSupply = t.totalSupply.Add(amount)
	return nil
}

// Transfer moves units between holders. Used by the pool when investors
// redeem pooled tokens into direct asset-token holdings.
func (t *AssetToken) Transfer(from, to string, amount decimal.Decimal) error {
	if err := t.checkLive(); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return fmt.Errorf("transfer on token %s: amount must be positive: %w", t.id, ErrInvalidState)
	}
	if t.balances[from].LessThan(amount) {
		return fmt.Errorf("transfer on token %s: account %s holds %s, needs %s: %w",
			t.id, from, t.balances[from], amount, ErrInsufficientBalance)
	}
	t.balances[from] = t.balances[from].Sub(amount)
	t.balances[to] = t.balances[to].Add(amount)
	return nil
}

// MarkFunded records the funding instant the accrual clock runs from.
// Funded is monotonic; refunding only moves the clock forward once.
func (t *AssetToken) MarkFunded(at time.Time) {
	if t.funded {
		return
	}
	t.funded = true
	t.fundedAt = at
}

// accrualRatio returns min(elapsed, timeframe)/timeframe as a decimal in
// [0, 1]. Accrual starts at the funding instant; an unfunded asset has not
// started accruing.
func (t *AssetToken) accrualRatio() decimal.Decimal {
	if !t.funded {
		return decimal.Zero
	}
	timeframe := time.Duration(t.econ.TimeframeMonths) * accrualMonth
	elapsed := t.clock.Now().Sub(t.fundedAt)
	if elapsed <= 0 {
		return decimal.Zero
	}
	if elapsed >= timeframe {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(elapsed.Seconds())).
		Div(decimal.NewFromInt(int64(timeframe.Seconds())))
}

// ProjectedProfitOfUnits returns the projected profit attributable to the
// given number of units over the full timeframe.
func (t *AssetToken) ProjectedProfitOfUnits(units decimal.Decimal) decimal.Decimal {
	return units.Div(t.econ.Cap).Mul(t.econ.ProjectedProfitTotal())
}

// ProjectedValueOfUnits returns principal plus full projected profit for
// the given number of units.
func (t *AssetToken) ProjectedValueOfUnits(units decimal.Decimal) decimal.Decimal {
	return units.Div(t.econ.Cap).Mul(t.econ.ProjectedValueUSD)
}

// CurrentValueOfUnits returns principal plus profit accrued so far for the
// given number of units.
func (t *AssetToken) CurrentValueOfUnits(units decimal.Decimal) decimal.Decimal {
	share := units.Div(t.econ.Cap)
	principal := share.Mul(t.econ.ValueUSD)
	accrued := share.Mul(t.econ.ProjectedProfitTotal()).Mul(t.accrualRatio())
	return principal.Add(accrued)
}

// ProjectedProfit returns the caller's share of the asset's projected
// profit. The caller must hold a nonzero balance.
func (t *AssetToken) ProjectedProfit(holder string) (decimal.Decimal, error) {
	if err := t.checkLive(); err != nil {
		return decimal.Decimal{}, err
	}
	balance := t.balances[holder]
	if !balance.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("projected profit on token %s: holder %s has no balance: %w",
			t.id, holder, ErrInsufficientBalance)
	}
	return t.ProjectedProfitOfUnits(balance), nil
}

// CurrentProfit returns the caller's projected profit scaled by linear time
// accrual, capped once the timeframe has fully elapsed.
func (t *AssetToken) CurrentProfit(holder string) (decimal.Decimal, error) {
	profit, err := t.ProjectedProfit(holder)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return profit.Mul(t.accrualRatio()), nil
}

// ClaimFundsAndBurn pays the holder their proportional share of principal
// plus accrued profit in StableUnit, then burns their entire balance. If the
// token's own stable reserve is short, the shortfall is minted under the
// registry's backstop rights. Burning the last unit terminates the slot.
func (t *AssetToken) ClaimFundsAndBurn(holder string) (decimal.Decimal, error) {
	if err := t.checkLive(); err != nil {
		return decimal.Decimal{}, err
	}
	balance := t.balances[holder]
	if !balance.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("claim on token %s: holder %s has no balance: %w",
			t.id, holder, ErrInsufficientBalance)
	}

	payout := t.CurrentValueOfUnits(balance).RoundDown(UnitScale)
	if reserve := t.stable.BalanceOf(t.id); reserve.LessThan(payout) {
		if err := t.stable.Mint(t.backstop, t.id, payout.Sub(reserve)); err != nil {
			return decimal.Decimal{}, fmt.Errorf("claim on token %s: backstop mint: %w", t.id, err)
		}
	}
	if err := t.stable.Transfer(t.id, holder, payout); err != nil {
		return decimal.Decimal{}, fmt.Errorf("claim on token %s: payout: %w", t.id, err)
	}

	delete(t.balances, holder)
	t.totalSupply = t.totalSupply.Sub(balance)
	if t.totalSupply.IsZero() {
		t.terminate()
	} else {
		t.state = StatePartiallyRedeemed
	}
	return payout, nil
}

// terminate clears the slot. Subsequent reads fail rather than returning
// stale or zero data.
func (t *AssetToken) terminate() {
	t.state = StateTerminated
	t.balances = nil
	t.totalSupply = decimal.Zero
}

// TokenArena owns every asset token ever created, keyed by opaque handle.
// Terminated slots stay in the arena so that access keeps failing with a
// definite state instead of a missing record.
type TokenArena struct {
	tokens map[string]*AssetToken
	stable *StableUnit
	clock  Clock
}

// NewTokenArena creates an empty arena backed by the given stable ledger.
func NewTokenArena(stable *StableUnit, clock Clock) *TokenArena {
	return &TokenArena{
		tokens: make(map[string]*AssetToken),
		stable: stable,
		clock:  clock,
	}
}

// Create allocates a new active token slot. minter is the only account
// allowed to issue units; backstop is the account whose StableUnit minting
// rights cover redemption shortfalls.
func (a *TokenArena) Create(econ AssetEconomics, minter, backstop string) (*AssetToken, error) {
	if err := econ.Validate(); err != nil {
		return nil, err
	}
	t := &AssetToken{
		id:       uuid.New().String(),
		econ:     econ,
		minter:   minter,
		backstop: backstop,
		state:    StateActive,
		balances: make(map[string]decimal.Decimal),
		stable:   a.stable,
		clock:    a.clock,
	}
	a.tokens[t.id] = t
	return t, nil
}

// Get returns the token for the given handle.
func (a *TokenArena) Get(id string) (*AssetToken, error) {
	t, ok := a.tokens[id]
	if !ok {
		return nil, fmt.Errorf("token %s: %w", id, ErrNotFound)
	}
	return t, nil
}

// SetEconomics replaces a token's economic parameters. Only permitted while
// the token has issued no units; the registry enforces its own owner check
// before calling.
func (a *TokenArena) SetEconomics(id string, econ AssetEconomics) error {
	t, err := a.Get(id)
	if err != nil {
		return err
	}
	if err := econ.Validate(); err != nil {
		return err
	}
	if t.state != StateActive || t.totalSupply.IsPositive() {
		return fmt.Errorf("set economics on token %s: %w", id, ErrInvalidState)
	}
	t.econ = econ
	return nil
}
