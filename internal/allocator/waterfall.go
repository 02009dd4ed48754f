package allocator

import (
	"github.com/shopspring/decimal"

	"github.com/asset-tokenizer/internal/ledger"
)

// fillTarget is the waterfall planner's view of one fillable asset:
// remaining capacity in stable-unit terms and the per-unit price.
type fillTarget struct {
	AssetID   int
	TokenID   string
	Remaining decimal.Decimal
	Price     decimal.Decimal
}

// allocation is one planned routing of stable funds into one asset.
// Amount is always Units times the asset's price, so applying the plan can
// never break the cap.
type allocation struct {
	AssetID int
	TokenID string
	Amount  decimal.Decimal
	Units   decimal.Decimal
	Fills   bool
}

// snapToGrid rounds a stable amount down to the asset's unit grid: the
// largest multiple of price, at unit precision, not exceeding amount.
func snapToGrid(amount, price decimal.Decimal) decimal.Decimal {
	return amount.Div(price).RoundDown(ledger.UnitScale).Mul(price)
}

// planWaterfall spreads funds across the fillable targets: while the funds
// can fully fill every target at the current minimum remaining capacity,
// route that minimum to each and drop the filled ones; once they cannot,
// split what is left evenly across the survivors. Shares are rounded down
// to each asset's unit grid; sub-grid dust stays with the investor. The
// plan is pure so the whole investment applies all-or-nothing.
func planWaterfall(targets []fillTarget, funds decimal.Decimal) []allocation {
	type slot struct {
		fillTarget
		granted decimal.Decimal
	}
	active := make([]*slot, 0, len(targets))
	for _, tgt := range targets {
		if tgt.Remaining.IsPositive() {
			active = append(active, &slot{fillTarget: tgt})
		}
	}
	all := active

	remaining := funds
	for remaining.IsPositive() && len(active) > 0 {
		minRemaining := active[0].Remaining
		for _, s := range active[1:] {
			if s.Remaining.LessThan(minRemaining) {
				minRemaining = s.Remaining
			}
		}
		need := minRemaining.Mul(decimal.NewFromInt(int64(len(active))))

		if remaining.LessThan(need) {
			// Final round: an even split across everything still fillable.
			share := remaining.Div(decimal.NewFromInt(int64(len(active))))
			for _, s := range active {
				grant := snapToGrid(share, s.Price)
				if !grant.IsPositive() {
					continue
				}
				s.granted = s.granted.Add(grant)
				s.Remaining = s.Remaining.Sub(grant)
			}
			break
		}

		// Full round: every target absorbs the current minimum, which by
		// construction fills at least the asset holding it.
		next := active[:0]
		for _, s := range active {
			grant := snapToGrid(minRemaining, s.Price)
			if grant.IsPositive() {
				s.granted = s.granted.Add(grant)
				s.Remaining = s.Remaining.Sub(grant)
				remaining = remaining.Sub(grant)
			}
			if s.Remaining.IsPositive() {
				next = append(next, s)
			}
		}
		active = next
	}

	plan := make([]allocation, 0, len(all))
	for _, s := range all {
		if !s.granted.IsPositive() {
			continue
		}
		plan = append(plan, allocation{
			AssetID: s.AssetID,
			TokenID: s.TokenID,
			Amount:  s.granted,
			Units:   s.granted.Div(s.Price),
			Fills:   s.Remaining.IsZero(),
		})
	}
	return plan
}
