package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asset-tokenizer/internal/bootstrap"
	"github.com/asset-tokenizer/internal/ledger"
	"github.com/asset-tokenizer/internal/models"
	"github.com/asset-tokenizer/internal/storage"
)

const owner = "owner"

// In-memory fakes for the storage interfaces

type memAssetStore struct {
	records map[int]*models.AssetRecord
}

func (m *memAssetStore) Upsert(_ context.Context, a *models.AssetRecord) error {
	if m.records == nil {
		m.records = make(map[int]*models.AssetRecord)
	}
	copied := *a
	m.records[a.ID] = &copied
	return nil
}

type memInvestmentStore struct {
	records map[int]*models.InvestmentRecord
}

func (m *memInvestmentStore) Insert(_ context.Context, inv *models.InvestmentRecord) error {
	if m.records == nil {
		m.records = make(map[int]*models.InvestmentRecord)
	}
	copied := *inv
	m.records[inv.ID] = &copied
	return nil
}

type memEventSink struct {
	events []*models.InvestmentEvent
}

func (m *memEventSink) Append(_ context.Context, ev *models.InvestmentEvent) error {
	copied := *ev
	m.events = append(m.events, &copied)
	return nil
}

type fixture struct {
	svc         *TokenizationService
	dep         *bootstrap.Deployment
	clock       *ledger.ManualClock
	assets      *memAssetStore
	investments *memInvestmentStore
	events      *memEventSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := ledger.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	dep, err := bootstrap.Deploy(owner, clock)
	require.NoError(t, err)

	assets := &memAssetStore{}
	investments := &memInvestmentStore{}
	events := &memEventSink{}

	svc := NewTokenizationService(dep, assets, investments, events, nil, nil)

	return &fixture{
		svc:         svc,
		dep:         dep,
		clock:       clock,
		assets:      assets,
		investments: investments,
		events:      events,
	}
}

func (f *fixture) addAsset(t *testing.T) *AssetView {
	t.Helper()
	view, err := f.svc.AddAsset(context.Background(), owner, AddAssetInput{
		Owner:             "amy",
		Name:              "BMW 2019",
		ValueUSD:          decimal.NewFromInt(100000),
		Cap:               decimal.NewFromInt(10000),
		AnnualizedROI:     decimal.NewFromInt(15),
		ProjectedValueUSD: decimal.NewFromInt(115000),
		TimeframeMonths:   12,
		PricePerUnit:      decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	return view
}

func (f *fixture) fundInvestor(t *testing.T, investor string, amount int64) {
	t.Helper()
	a := decimal.NewFromInt(amount)
	require.NoError(t, f.dep.Stable.Mint(owner, investor, a))
	require.NoError(t, f.dep.Stable.Approve(investor, f.dep.Allocator.Account(), a))
}

func TestAddAssetPersistsRecord(t *testing.T) {
	f := newFixture(t)
	view := f.addAsset(t)

	assert.Equal(t, 1, view.ID)
	assert.Equal(t, "BMW 2019", view.Name)
	assert.Equal(t, string(ledger.StateActive), view.State)
	assert.True(t, view.RemainingCapacity.Equal(decimal.NewFromInt(10000)))

	record, ok := f.assets.records[1]
	require.True(t, ok)
	assert.Equal(t, view.TokenID, record.TokenID)
	assert.False(t, record.Funded)
}

func TestAddAssetRequiresRegistryOwner(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddAsset(context.Background(), "mallory", AddAssetInput{
		Owner:             "amy",
		Name:              "BMW 2019",
		ValueUSD:          decimal.NewFromInt(100000),
		Cap:               decimal.NewFromInt(10000),
		AnnualizedROI:     decimal.NewFromInt(15),
		ProjectedValueUSD: decimal.NewFromInt(115000),
		TimeframeMonths:   12,
		PricePerUnit:      decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
	assert.Empty(t, f.assets.records)
}

func TestGetAssetNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetAsset(context.Background(), 42)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestFundAssetRecordsEvent(t *testing.T) {
	f := newFixture(t)
	view := f.addAsset(t)

	amount := decimal.NewFromInt(115000)
	require.NoError(t, f.dep.Stable.Mint(owner, "amy", amount))
	require.NoError(t, f.dep.Stable.Approve("amy", f.dep.Registry.Account(), amount))

	funded, err := f.svc.FundAsset(context.Background(), "amy", view.ID, amount)
	require.NoError(t, err)
	assert.True(t, funded.Funded)

	record := f.assets.records[view.ID]
	require.NotNil(t, record)
	assert.True(t, record.Funded)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventFund, f.events.events[0].EventType)
	assert.Equal(t, "amy", f.events.events[0].Account)
}

func TestInvestVehicleMirrorsInvestment(t *testing.T) {
	f := newFixture(t)
	view := f.addAsset(t)
	f.fundInvestor(t, "carol", 5000)

	investments, err := f.svc.InvestVehicle(context.Background(), "carol", decimal.NewFromInt(5000), view.TokenID)
	require.NoError(t, err)
	require.Len(t, investments, 1)
	assert.Equal(t, "carol", investments[0].Owner)

	record := f.investments.records[investments[0].ID]
	require.NotNil(t, record)
	assert.True(t, record.AmountInvested.Equal(decimal.NewFromInt(5000)))

	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventInvestVehicle, f.events.events[0].EventType)

	// Asset mirror reflects the partial fill.
	assert.False(t, f.assets.records[view.ID].Filled)

	balance, err := f.svc.TokenBalance(context.Background(), view.TokenID, "carol")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(500)))
}

func TestInvestPortfolioAndRedeem(t *testing.T) {
	f := newFixture(t)
	view := f.addAsset(t)
	f.fundInvestor(t, "carol", 50000)

	investments, err := f.svc.InvestPortfolio(context.Background(), "carol", decimal.NewFromInt(50000))
	require.NoError(t, err)
	require.Len(t, investments, 1)

	portfolio, err := f.svc.Portfolio(context.Background(), "carol")
	require.NoError(t, err)
	assert.True(t, portfolio.Balance.Equal(decimal.NewFromInt(50000)))
	assert.True(t, portfolio.OwnershipPercentage.Equal(decimal.NewFromInt(100)))
	require.Len(t, portfolio.Holdings, 1)
	assert.Equal(t, view.TokenID, portfolio.Holdings[0].TokenID)

	after, err := f.svc.RedeemPortfolio(context.Background(), "carol", decimal.NewFromInt(50000))
	require.NoError(t, err)
	assert.True(t, after.Balance.IsZero())
	assert.Empty(t, after.Holdings)

	// Redemption converted the pooled position into a direct holding.
	balance, err := f.svc.TokenBalance(context.Background(), view.TokenID, "carol")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(5000)))

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, models.EventRedeemPortfolio, last.EventType)
}

func TestPortfolioEmptyAccount(t *testing.T) {
	f := newFixture(t)

	portfolio, err := f.svc.Portfolio(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, portfolio.Balance.IsZero())
	assert.Empty(t, portfolio.Holdings)
}

func TestClaimFundsFullLifecycle(t *testing.T) {
	f := newFixture(t)
	view := f.addAsset(t)

	// carol buys every unit
	f.fundInvestor(t, "carol", 100000)
	_, err := f.svc.InvestVehicle(context.Background(), "carol", decimal.NewFromInt(100000), view.TokenID)
	require.NoError(t, err)

	// amy posts the payout reserve
	amount := decimal.NewFromInt(115000)
	require.NoError(t, f.dep.Stable.Mint(owner, "amy", amount))
	require.NoError(t, f.dep.Stable.Approve("amy", f.dep.Registry.Account(), amount))
	_, err = f.svc.FundAsset(context.Background(), "amy", view.ID, amount)
	require.NoError(t, err)

	f.clock.Advance(12 * 30 * 24 * time.Hour)

	result, err := f.svc.ClaimFunds(context.Background(), "carol", view.TokenID)
	require.NoError(t, err)
	assert.True(t, result.Payout.Equal(decimal.NewFromInt(115000)), "payout was %s", result.Payout)
	assert.Equal(t, string(ledger.StateTerminated), result.State)

	balance := f.svc.StableBalance(context.Background(), "carol")
	assert.True(t, balance.Equal(decimal.NewFromInt(115000)))

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, models.EventClaim, last.EventType)
	assert.True(t, last.Units.Equal(decimal.NewFromInt(10000)))
}

func TestEditAssetFrozenAfterSale(t *testing.T) {
	f := newFixture(t)
	view := f.addAsset(t)
	f.fundInvestor(t, "carol", 100)

	_, err := f.svc.InvestVehicle(context.Background(), "carol", decimal.NewFromInt(100), view.TokenID)
	require.NoError(t, err)

	_, err = f.svc.EditAsset(context.Background(), owner, view.TokenID, EditAssetInput{
		ValueUSD:          decimal.NewFromInt(90000),
		AnnualizedROI:     decimal.NewFromInt(10),
		ProjectedValueUSD: decimal.NewFromInt(99000),
		TimeframeMonths:   12,
		PricePerUnit:      decimal.NewFromInt(9),
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestFillableStats(t *testing.T) {
	f := newFixture(t)
	f.addAsset(t)

	stats, err := f.svc.FillableStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, "100000", stats.MinFillableAmount)
}

var _ ViewCache = (*storage.AssetCache)(nil)
