package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMinter   = "allocator"
	testBackstop = "registry"
)

// testEconomics mirrors the canonical fixture: a 100k USD vehicle split
// into 10k units of 10 USD, projected to yield 15% over 12 months.
func testEconomics() AssetEconomics {
	return AssetEconomics{
		Name:              "BMW 2019",
		ValueUSD:          decimal.NewFromInt(100000),
		Cap:               decimal.NewFromInt(10000),
		AnnualizedROI:     decimal.NewFromInt(15),
		ProjectedValueUSD: decimal.NewFromInt(115000),
		TimeframeMonths:   12,
		PricePerUnit:      decimal.NewFromInt(10),
	}
}

func newTestArena(t *testing.T) (*StableUnit, *TokenArena, *ManualClock) {
	t.Helper()
	clock := NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	su := NewStableUnit("owner")
	require.NoError(t, su.AddMinter("owner", testBackstop))
	return su, NewTokenArena(su, clock), clock
}

func TestTokenArenaCreateValidation(t *testing.T) {
	_, arena, _ := newTestArena(t)

	tests := []struct {
		name   string
		mutate func(*AssetEconomics)
	}{
		{"zero cap", func(e *AssetEconomics) { e.Cap = decimal.Zero }},
		{"zero timeframe", func(e *AssetEconomics) { e.TimeframeMonths = 0 }},
		{"zero price", func(e *AssetEconomics) { e.PricePerUnit = decimal.Zero }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			econ := testEconomics()
			tt.mutate(&econ)
			_, err := arena.Create(econ, testMinter, testBackstop)
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}
}

func TestAssetTokenMint(t *testing.T) {
	_, arena, _ := newTestArena(t)
	token, err := arena.Create(testEconomics(), testMinter, testBackstop)
	require.NoError(t, err)

	err = token.Mint("mallory", "alice", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = token.Mint(testMinter, "alice", decimal.NewFromInt(10001))
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	require.NoError(t, token.Mint(testMinter, "alice", decimal.NewFromInt(10000)))
	supply, err := token.TotalSupply()
	require.NoError(t, err)
	assert.True(t, supply.Equal(token.Cap()))

	// Cap reached: one more unit must fail.
	err = token.Mint(testMinter, "bob", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestAssetTokenProjectedProfit(t *testing.T) {
	_, arena, _ := newTestArena(t)
	token, err := arena.Create(testEconomics(), testMinter, testBackstop)
	require.NoError(t, err)

	_, err = token.ProjectedProfit("alice")
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	// 1000 of 10000 units: a tenth of the 15k projected profit.
	require.NoError(t, token.Mint(testMinter, "alice", decimal.NewFromInt(1000)))
	profit, err := token.ProjectedProfit("alice")
	require.NoError(t, err)
	assert.True(t, profit.Equal(decimal.NewFromInt(1500)), "got %s", profit)
}

func TestAssetTokenCurrentProfitAccrual(t *testing.T) {
	_, arena, clock := newTestArena(t)
	token, err := arena.Create(testEconomics(), testMinter, testBackstop)
	require.NoError(t, err)
	require.NoError(t, token.Mint(testMinter, "alice", decimal.NewFromInt(10000)))

	// Accrual has not started before funding.
	profit, err := token.CurrentProfit("alice")
	require.NoError(t, err)
	assert.True(t, profit.IsZero())

	token.MarkFunded(clock.Now())

	// Half the timeframe elapsed: half the projected profit.
	clock.Advance(6 * 30 * 24 * time.Hour)
	profit, err = token.CurrentProfit("alice")
	require.NoError(t, err)
	assert.True(t, profit.Equal(decimal.NewFromInt(7500)), "got %s", profit)

	// Beyond the timeframe the accrual caps at the full projection.
	clock.Advance(24 * 30 * 24 * time.Hour)
	profit, err = token.CurrentProfit("alice")
	require.NoError(t, err)
	assert.True(t, profit.Equal(decimal.NewFromInt(15000)), "got %s", profit)
}

func TestAssetTokenClaimFundsAndBurnSoleHolder(t *testing.T) {
	su, arena, clock := newTestArena(t)
	token, err := arena.Create(testEconomics(), testMinter, testBackstop)
	require.NoError(t, err)

	require.NoError(t, token.Mint(testMinter, "alice", decimal.NewFromInt(10000)))
	token.MarkFunded(clock.Now())

	// The owner's posted reserve sits on the token's own stable account.
	require.NoError(t, su.Mint("owner", token.ID(), decimal.NewFromInt(115000)))

	clock.Advance(12 * 30 * 24 * time.Hour)

	payout, err := token.ClaimFundsAndBurn("alice")
	require.NoError(t, err)
	assert.True(t, payout.Equal(decimal.NewFromInt(115000)), "got %s", payout)
	assert.True(t, su.BalanceOf("alice").Equal(decimal.NewFromInt(115000)))

	// Fully unwound: the slot terminates and refuses further reads.
	assert.Equal(t, StateTerminated, token.State())
	_, err = token.BalanceOf("alice")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = token.TotalSupply()
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAssetTokenClaimLeavesOtherHoldersIntact(t *testing.T) {
	su, arena, clock := newTestArena(t)
	token, err := arena.Create(testEconomics(), testMinter, testBackstop)
	require.NoError(t, err)

	require.NoError(t, token.Mint(testMinter, "alice", decimal.NewFromInt(6000)))
	require.NoError(t, token.Mint(testMinter, "bob", decimal.NewFromInt(4000)))
	token.MarkFunded(clock.Now())
	require.NoError(t, su.Mint("owner", token.ID(), decimal.NewFromInt(115000)))

	_, err = token.ClaimFundsAndBurn("alice")
	require.NoError(t, err)

	assert.Equal(t, StatePartiallyRedeemed, token.State())
	balance, err := token.BalanceOf("bob")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(4000)))

	// A second claim by the same holder fails.
	_, err = token.ClaimFundsAndBurn("alice")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestAssetTokenClaimBackstopMint(t *testing.T) {
	su, arena, clock := newTestArena(t)
	token, err := arena.Create(testEconomics(), testMinter, testBackstop)
	require.NoError(t, err)

	require.NoError(t, token.Mint(testMinter, "alice", decimal.NewFromInt(10000)))
	token.MarkFunded(clock.Now())

	// Reserve covers only part of the principal; the shortfall is minted
	// under the backstop's rights.
	require.NoError(t, su.Mint("owner", token.ID(), decimal.NewFromInt(40000)))

	payout, err := token.ClaimFundsAndBurn("alice")
	require.NoError(t, err)
	assert.True(t, payout.Equal(decimal.NewFromInt(100000)), "got %s", payout)
	assert.True(t, su.BalanceOf("alice").Equal(decimal.NewFromInt(100000)))
}

func TestAssetTokenMintContinuesAfterPartialClaim(t *testing.T) {
	_, arena, _ := newTestArena(t)
	token, err := arena.Create(testEconomics(), testMinter, testBackstop)
	require.NoError(t, err)

	require.NoError(t, token.Mint(testMinter, "alice", decimal.NewFromInt(6000)))
	require.NoError(t, token.Mint(testMinter, "bob", decimal.NewFromInt(1000)))

	_, err = token.ClaimFundsAndBurn("alice")
	require.NoError(t, err)
	require.Equal(t, StatePartiallyRedeemed, token.State())

	// Partial redemption does not close the book: the remaining capacity
	// can still be subscribed.
	require.NoError(t, token.Mint(testMinter, "carol", decimal.NewFromInt(9000)))
	balance, err := token.BalanceOf("carol")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(9000)))

	// The cap still binds against the live supply.
	err = token.Mint(testMinter, "dave", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestTokenArenaGetUnknown(t *testing.T) {
	_, arena, _ := newTestArena(t)
	_, err := arena.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenArenaSetEconomicsAfterMint(t *testing.T) {
	_, arena, _ := newTestArena(t)
	token, err := arena.Create(testEconomics(), testMinter, testBackstop)
	require.NoError(t, err)

	econ := testEconomics()
	econ.ValueUSD = decimal.NewFromInt(90000)
	require.NoError(t, arena.SetEconomics(token.ID(), econ))

	require.NoError(t, token.Mint(testMinter, "alice", decimal.NewFromInt(1)))
	err = arena.SetEconomics(token.ID(), econ)
	assert.ErrorIs(t, err, ErrInvalidState)
}
