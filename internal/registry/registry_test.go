package registry

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asset-tokenizer/internal/ledger"
)

const (
	regOwner  = "owner"
	allocAcct = "allocator"
)

type fixture struct {
	stable *ledger.StableUnit
	arena  *ledger.TokenArena
	reg    *AssetRegistry
	clock  *ledger.ManualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := ledger.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	stable := ledger.NewStableUnit(regOwner)
	arena := ledger.NewTokenArena(stable, clock)
	reg := New(regOwner, stable, arena, allocAcct, clock)
	require.NoError(t, stable.AddMinter(regOwner, reg.Account()))
	return &fixture{stable: stable, arena: arena, reg: reg, clock: clock}
}

func (f *fixture) addAsset(t *testing.T, owner string, valueUSD int64) *Asset {
	t.Helper()
	value := decimal.NewFromInt(valueUSD)
	price := decimal.NewFromInt(10)
	asset, err := f.reg.AddAsset(regOwner, owner, "BMW 2019",
		value,
		value.Div(price),
		decimal.NewFromInt(15),
		value.Mul(decimal.NewFromFloat(1.15)),
		12,
		price,
	)
	require.NoError(t, err)
	return asset
}

func TestAddAsset(t *testing.T) {
	f := newFixture(t)

	asset := f.addAsset(t, "amy", 100000)
	assert.Equal(t, 1, asset.ID)
	assert.Equal(t, 1, f.reg.AssetsCount())
	assert.NotEmpty(t, asset.TokenID)
	assert.False(t, asset.Funded)
	assert.False(t, asset.Filled)

	// The token exists in the arena with the asset's economics.
	token, err := f.arena.Get(asset.TokenID)
	require.NoError(t, err)
	assert.True(t, token.Cap().Equal(decimal.NewFromInt(10000)))

	// Fillable index covers the new asset at full capacity.
	assert.Equal(t, 1, f.reg.FillableCount())
	assert.True(t, f.reg.MinFillableAmount().Equal(decimal.NewFromInt(100000)))
}

func TestAddAssetRestrictedToOwner(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.AddAsset("mallory", "amy", "BMW 2019",
		decimal.NewFromInt(100000), decimal.NewFromInt(10000), decimal.NewFromInt(15),
		decimal.NewFromInt(115000), 12, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
}

func TestAddAssetRejectsBadParameters(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.AddAsset(regOwner, "amy", "BMW 2019",
		decimal.NewFromInt(100000), decimal.Zero, decimal.NewFromInt(15),
		decimal.NewFromInt(115000), 12, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	_, err = f.reg.AddAsset(regOwner, "amy", "BMW 2019",
		decimal.NewFromInt(100000), decimal.NewFromInt(10000), decimal.NewFromInt(15),
		decimal.NewFromInt(115000), 0, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestMinFillableTracksTheSmallestAsset(t *testing.T) {
	f := newFixture(t)
	small := f.addAsset(t, "amy", 50000)
	f.addAsset(t, "ben", 100000)

	assert.Equal(t, 2, f.reg.FillableCount())
	assert.True(t, f.reg.MinFillableAmount().Equal(decimal.NewFromInt(50000)))

	// Filling the small asset moves the minimum to the other one; the
	// index is recomputed, not decremented.
	token, err := f.arena.Get(small.TokenID)
	require.NoError(t, err)
	require.NoError(t, token.Mint(allocAcct, "carol", decimal.NewFromInt(5000)))
	require.NoError(t, f.reg.MarkFilled(allocAcct, small.ID))

	assert.Equal(t, 1, f.reg.FillableCount())
	assert.True(t, f.reg.MinFillableAmount().Equal(decimal.NewFromInt(100000)))
	filled, err := f.reg.AssetByID(small.ID)
	require.NoError(t, err)
	assert.True(t, filled.Filled)
}

func TestFillableIndexDropsTerminatedAsset(t *testing.T) {
	f := newFixture(t)
	small := f.addAsset(t, "amy", 50000)
	big := f.addAsset(t, "ben", 100000)

	// The small asset's sole holder claims out before the cap is
	// reached; the token terminates with capacity left on the books.
	token, err := f.arena.Get(small.TokenID)
	require.NoError(t, err)
	require.NoError(t, token.Mint(allocAcct, "carol", decimal.NewFromInt(2000)))
	_, err = token.ClaimFundsAndBurn("carol")
	require.NoError(t, err)
	require.Equal(t, ledger.StateTerminated, token.State())

	// The dead slot no longer counts as fillable even before the index
	// is refreshed.
	assert.Equal(t, 1, f.reg.FillableCount())
	fillable := f.reg.FillableAssets()
	require.Len(t, fillable, 1)
	assert.Equal(t, big.ID, fillable[0].ID)

	// Refreshing evicts the slot and the minimum moves to the survivor.
	f.reg.RecomputeIndex()
	assert.Equal(t, 1, f.reg.FillableCount())
	assert.True(t, f.reg.MinFillableAmount().Equal(decimal.NewFromInt(100000)))
}

func TestMarkFilledRestrictedToAllocator(t *testing.T) {
	f := newFixture(t)
	asset := f.addAsset(t, "amy", 100000)
	err := f.reg.MarkFilled("mallory", asset.ID)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
}

func TestFundAsset(t *testing.T) {
	f := newFixture(t)
	asset := f.addAsset(t, "amy", 100000)
	amount := decimal.NewFromInt(115000)

	// Not the asset owner.
	err := f.reg.FundAsset("mallory", amount, asset.ID)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	// Amount below the projected value.
	err = f.reg.FundAsset("amy", decimal.NewFromInt(1000), asset.ID)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// No balance yet.
	err = f.reg.FundAsset("amy", amount, asset.ID)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	// Balance but no approval.
	require.NoError(t, f.stable.Mint(regOwner, "amy", amount))
	err = f.reg.FundAsset("amy", amount, asset.ID)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	require.NoError(t, f.stable.Approve("amy", f.reg.Account(), amount))
	require.NoError(t, f.reg.FundAsset("amy", amount, asset.ID))

	funded, err := f.reg.AssetByID(asset.ID)
	require.NoError(t, err)
	assert.True(t, funded.Funded)
	assert.True(t, f.stable.BalanceOf(asset.TokenID).Equal(amount))

	token, err := f.arena.Get(asset.TokenID)
	require.NoError(t, err)
	assert.True(t, token.Funded())
}

func TestFundAssetUnknownID(t *testing.T) {
	f := newFixture(t)
	err := f.reg.FundAsset("amy", decimal.NewFromInt(1), 42)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestEditAsset(t *testing.T) {
	f := newFixture(t)
	asset := f.addAsset(t, "amy", 100000)

	err := f.reg.EditAsset("mallory", asset.TokenID,
		decimal.NewFromInt(90000), decimal.NewFromInt(12), decimal.NewFromInt(100800), 10, decimal.NewFromInt(9))
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	require.NoError(t, f.reg.EditAsset(regOwner, asset.TokenID,
		decimal.NewFromInt(90000), decimal.NewFromInt(12), decimal.NewFromInt(100800), 10, decimal.NewFromInt(9)))

	edited, err := f.reg.AssetByID(asset.ID)
	require.NoError(t, err)
	assert.True(t, edited.ValueUSD.Equal(decimal.NewFromInt(90000)))
	assert.Equal(t, 10, edited.TimeframeMonths)

	// Once any units exist the economics are frozen.
	token, err := f.arena.Get(asset.TokenID)
	require.NoError(t, err)
	require.NoError(t, token.Mint(allocAcct, "carol", decimal.NewFromInt(1)))
	err = f.reg.EditAsset(regOwner, asset.TokenID,
		decimal.NewFromInt(80000), decimal.NewFromInt(12), decimal.NewFromInt(89600), 10, decimal.NewFromInt(9))
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestAssetLookups(t *testing.T) {
	f := newFixture(t)
	asset := f.addAsset(t, "amy", 100000)

	_, err := f.reg.AssetByID(0)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = f.reg.AssetByID(2)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	_, err = f.reg.AssetByToken("missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	got, err := f.reg.AssetByToken(asset.TokenID)
	require.NoError(t, err)
	assert.Equal(t, asset.ID, got.ID)
}
