package allocator

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

// genCapacities produces non-empty slices of remaining capacities.
func genCapacities() gopter.Gen {
	return gen.SliceOf(gen.Int64Range(1, 1000)).
		SuchThat(func(v []int64) bool { return len(v) > 0 })
}

func TestWaterfallProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("never allocates more than the incoming funds", prop.ForAll(
		func(caps []int64, funds int64) bool {
			plan := planWaterfall(targetsFromRemaining(caps...), decimal.NewFromInt(funds))
			total := decimal.Zero
			for _, a := range plan {
				total = total.Add(a.Amount)
			}
			return total.LessThanOrEqual(decimal.NewFromInt(funds))
		},
		genCapacities(),
		gen.Int64Range(1, 10000),
	))

	properties.Property("never exceeds any asset's remaining capacity", prop.ForAll(
		func(caps []int64, funds int64) bool {
			plan := planWaterfall(targetsFromRemaining(caps...), decimal.NewFromInt(funds))
			for _, a := range plan {
				if a.Amount.GreaterThan(decimal.NewFromInt(caps[a.AssetID-1])) {
					return false
				}
			}
			return true
		},
		genCapacities(),
		gen.Int64Range(1, 10000),
	))

	properties.Property("amount is always units times price", prop.ForAll(
		func(caps []int64, funds int64) bool {
			plan := planWaterfall(targetsFromRemaining(caps...), decimal.NewFromInt(funds))
			for _, a := range plan {
				if !a.Amount.Equal(a.Units) { // price is 1 in these targets
					return false
				}
			}
			return true
		},
		genCapacities(),
		gen.Int64Range(1, 10000),
	))

	properties.Property("an unfilled asset implies every smaller asset was filled", prop.ForAll(
		func(caps []int64, funds int64) bool {
			plan := planWaterfall(targetsFromRemaining(caps...), decimal.NewFromInt(funds))
			// If any asset remains unfilled after the plan, then every
			// asset with strictly smaller remaining capacity must be
			// filled: the waterfall drains the smallest first.
			minUnfilled := decimal.NewFromInt(-1)
			for i, c := range caps {
				a, ok := planned(plan, i+1)
				remaining := decimal.NewFromInt(c)
				if ok {
					remaining = remaining.Sub(a.Amount)
				}
				if remaining.IsPositive() {
					if minUnfilled.IsNegative() || decimal.NewFromInt(c).LessThan(minUnfilled) {
						minUnfilled = decimal.NewFromInt(c)
					}
				}
			}
			if minUnfilled.IsNegative() {
				return true // everything filled
			}
			for i, c := range caps {
				if decimal.NewFromInt(c).LessThan(minUnfilled) {
					a, ok := planned(plan, i+1)
					if !ok || !a.Fills {
						return false
					}
				}
			}
			return true
		},
		genCapacities(),
		gen.Int64Range(1, 10000),
	))

	properties.Property("funds covering total capacity fill everything", prop.ForAll(
		func(caps []int64) bool {
			var total int64
			for _, c := range caps {
				total += c
			}
			plan := planWaterfall(targetsFromRemaining(caps...), decimal.NewFromInt(total))
			for i := range caps {
				a, ok := planned(plan, i+1)
				if !ok || !a.Fills {
					return false
				}
			}
			return true
		},
		genCapacities(),
	))

	properties.TestingRun(t)
}
