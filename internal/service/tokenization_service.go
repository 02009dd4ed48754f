// Package service hosts the in-memory ledger deployment behind a serialized
// operation surface and mirrors state changes into storage.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/asset-tokenizer/internal/allocator"
	"github.com/asset-tokenizer/internal/bootstrap"
	"github.com/asset-tokenizer/internal/ledger"
	"github.com/asset-tokenizer/internal/logging"
	"github.com/asset-tokenizer/internal/models"
	"github.com/asset-tokenizer/internal/registry"
	"github.com/asset-tokenizer/internal/storage"
)

// Repository interfaces for dependency injection

// AssetStore persists asset records
type AssetStore interface {
	Upsert(ctx context.Context, a *models.AssetRecord) error
}

// InvestmentStore persists investment records
type InvestmentStore interface {
	Insert(ctx context.Context, inv *models.InvestmentRecord) error
}

// EventAppender records investment events in the audit sink
type EventAppender interface {
	Append(ctx context.Context, ev *models.InvestmentEvent) error
}

// ViewCache caches read-side views
type ViewCache interface {
	GetAsset(ctx context.Context, id int, dest interface{}) error
	SetAsset(ctx context.Context, id int, view interface{}) error
	InvalidateAsset(ctx context.Context, id int) error
	GetFillableStats(ctx context.Context) (*storage.FillableStats, error)
	SetFillableStats(ctx context.Context, stats *storage.FillableStats) error
}

// TokenizationService serializes all ledger operations behind a single
// mutex. The ledger is authoritative; Postgres, ClickHouse and Redis are
// write-behind mirrors, and persistence failures are logged without
// failing the operation.
type TokenizationService struct {
	mu sync.Mutex

	dep *bootstrap.Deployment

	assetStore      AssetStore
	investmentStore InvestmentStore
	events          EventAppender
	cache           ViewCache

	logger *logging.Logger
}

// NewTokenizationService creates a new tokenization service. Any of the
// storage dependencies may be nil; the corresponding mirroring is skipped.
func NewTokenizationService(
	dep *bootstrap.Deployment,
	assetStore AssetStore,
	investmentStore InvestmentStore,
	events EventAppender,
	cache ViewCache,
	logger *logging.Logger,
) *TokenizationService {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &TokenizationService{
		dep:             dep,
		assetStore:      assetStore,
		investmentStore: investmentStore,
		events:          events,
		cache:           cache,
		logger:          logger,
	}
}

// Input types

// AddAssetInput represents input for registering an asset
type AddAssetInput struct {
	Owner             string          `json:"owner"`
	Name              string          `json:"name"`
	ValueUSD          decimal.Decimal `json:"valueUsd"`
	Cap               decimal.Decimal `json:"cap"`
	AnnualizedROI     decimal.Decimal `json:"annualizedRoi"`
	ProjectedValueUSD decimal.Decimal `json:"projectedValueUsd"`
	TimeframeMonths   int             `json:"timeframeMonths"`
	PricePerUnit      decimal.Decimal `json:"pricePerUnit"`
}

// EditAssetInput represents input for updating an unsold asset's economics
type EditAssetInput struct {
	ValueUSD          decimal.Decimal `json:"valueUsd"`
	AnnualizedROI     decimal.Decimal `json:"annualizedRoi"`
	ProjectedValueUSD decimal.Decimal `json:"projectedValueUsd"`
	TimeframeMonths   int             `json:"timeframeMonths"`
	PricePerUnit      decimal.Decimal `json:"pricePerUnit"`
}

// View types

// AssetView is the read-side representation of an asset
type AssetView struct {
	registry.Asset
	State             string          `json:"state"`
	TotalSupply       decimal.Decimal `json:"totalSupply"`
	RemainingCapacity decimal.Decimal `json:"remainingCapacity"`
}

// PortfolioHolding is one asset position held through the pooled token
type PortfolioHolding struct {
	TokenID       string          `json:"tokenId"`
	InvestedUnits decimal.Decimal `json:"investedUnits"`
}

// PortfolioView summarizes an account's pooled-token position
type PortfolioView struct {
	Account             string             `json:"account"`
	Balance             decimal.Decimal    `json:"balance"`
	OwnershipPercentage decimal.Decimal    `json:"ownershipPercentage"`
	TotalProjectedValue decimal.Decimal    `json:"totalProjectedValue"`
	TotalCurrentValue   decimal.Decimal    `json:"totalCurrentValue"`
	Holdings            []PortfolioHolding `json:"holdings"`
}

// ClaimResult reports the payout of a claim-and-burn
type ClaimResult struct {
	TokenID string          `json:"tokenId"`
	Account string          `json:"account"`
	Payout  decimal.Decimal `json:"payout"`
	State   string          `json:"state"`
}

// AddAsset registers an asset and creates its token.
func (s *TokenizationService) AddAsset(ctx context.Context, caller string, input AddAssetInput) (*AssetView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, err := s.dep.Registry.AddAsset(
		caller, input.Owner, input.Name,
		input.ValueUSD, input.Cap, input.AnnualizedROI, input.ProjectedValueUSD,
		input.TimeframeMonths, input.PricePerUnit,
	)
	if err != nil {
		return nil, err
	}

	s.mirrorAsset(ctx, asset)

	return s.assetView(asset)
}

// GetAsset returns the read-side view of an asset, served from cache when
// fresh.
func (s *TokenizationService) GetAsset(ctx context.Context, id int) (*AssetView, error) {
	if s.cache != nil {
		var view AssetView
		if err := s.cache.GetAsset(ctx, id, &view); err == nil {
			return &view, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	asset, err := s.dep.Registry.AssetByID(id)
	if err != nil {
		return nil, err
	}

	view, err := s.assetView(asset)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetAsset(ctx, id, view); err != nil {
			s.logger.WithError(err).Warnf("failed to cache asset %d", id)
		}
	}

	return view, nil
}

// ListAssets returns all registered assets.
func (s *TokenizationService) ListAssets(ctx context.Context) ([]*AssetView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assets := s.dep.Registry.Assets()
	views := make([]*AssetView, 0, len(assets))
	for _, a := range assets {
		view, err := s.assetView(a)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// FillableStats returns the count of not-yet-filled assets and the smallest
// remaining capacity among them.
func (s *TokenizationService) FillableStats(ctx context.Context) (*storage.FillableStats, error) {
	if s.cache != nil {
		if stats, err := s.cache.GetFillableStats(ctx); err == nil {
			return stats, nil
		}
	}

	s.mu.Lock()
	stats := &storage.FillableStats{
		Count:             s.dep.Registry.FillableCount(),
		MinFillableAmount: s.dep.Registry.MinFillableAmount().String(),
	}
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.SetFillableStats(ctx, stats); err != nil {
			s.logger.WithError(err).Warn("failed to cache fillable stats")
		}
	}

	return stats, nil
}

// EditAsset updates the economics of an asset no one has invested in yet.
func (s *TokenizationService) EditAsset(ctx context.Context, caller, tokenID string, input EditAssetInput) (*AssetView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.dep.Registry.EditAsset(
		caller, tokenID,
		input.ValueUSD, input.AnnualizedROI, input.ProjectedValueUSD,
		input.TimeframeMonths, input.PricePerUnit,
	)
	if err != nil {
		return nil, err
	}

	asset, err := s.dep.Registry.AssetByToken(tokenID)
	if err != nil {
		return nil, err
	}

	s.mirrorAsset(ctx, asset)

	return s.assetView(asset)
}

// FundAsset posts the projected-value payout reserve for an asset.
func (s *TokenizationService) FundAsset(ctx context.Context, caller string, assetID int, amount decimal.Decimal) (*AssetView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dep.Registry.FundAsset(caller, amount, assetID); err != nil {
		return nil, err
	}

	asset, err := s.dep.Registry.AssetByID(assetID)
	if err != nil {
		return nil, err
	}

	s.mirrorAsset(ctx, asset)
	s.appendEvent(ctx, &models.InvestmentEvent{
		EventType: models.EventFund,
		Account:   caller,
		TokenID:   asset.TokenID,
		Amount:    amount,
		Timestamp: s.now(),
	})

	return s.assetView(asset)
}

// InvestVehicle invests directly into one asset token.
func (s *TokenizationService) InvestVehicle(ctx context.Context, investor string, amount decimal.Decimal, tokenID string) ([]*allocator.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	investments, err := s.dep.Allocator.InvestVehicle(investor, amount, tokenID)
	if err != nil {
		return nil, err
	}

	s.mirrorInvestments(ctx, investments, models.EventInvestVehicle)
	s.mirrorAssetByToken(ctx, tokenID)

	return investments, nil
}

// InvestPortfolio spreads funds across fillable assets via the waterfall.
func (s *TokenizationService) InvestPortfolio(ctx context.Context, investor string, amount decimal.Decimal) ([]*allocator.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	investments, err := s.dep.Allocator.InvestPortfolio(investor, amount)
	if err != nil {
		return nil, err
	}

	s.mirrorInvestments(ctx, investments, models.EventInvestPortfolio)
	for _, inv := range investments {
		s.mirrorAssetByToken(ctx, inv.TokenID)
	}

	return investments, nil
}

// GetInvestment returns a recorded investment by id.
func (s *TokenizationService) GetInvestment(ctx context.Context, id int) (*allocator.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dep.Allocator.InvestmentByID(id)
}

// Portfolio summarizes an account's position in the pooled token.
func (s *TokenizationService) Portfolio(ctx context.Context, account string) (*PortfolioView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.portfolioViewLocked(account)
}

// RedeemPortfolio burns pooled tokens and converts the proportional share
// of pooled holdings into direct asset token positions.
func (s *TokenizationService) RedeemPortfolio(ctx context.Context, account string, amount decimal.Decimal) (*PortfolioView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dep.Pool.ClaimFundsAndBurn(account, amount); err != nil {
		return nil, err
	}

	s.appendEvent(ctx, &models.InvestmentEvent{
		EventType: models.EventRedeemPortfolio,
		Account:   account,
		Amount:    amount,
		Timestamp: s.now(),
	})

	return s.portfolioViewLocked(account)
}

// ClaimFunds pays out an asset token holder and burns their units.
func (s *TokenizationService) ClaimFunds(ctx context.Context, caller, tokenID string) (*ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.dep.Arena.Get(tokenID)
	if err != nil {
		return nil, err
	}

	units, err := token.BalanceOf(caller)
	if err != nil {
		return nil, err
	}

	payout, err := token.ClaimFundsAndBurn(caller)
	if err != nil {
		return nil, err
	}

	// A claim can terminate an unfilled asset's token, shrinking the
	// fillable set.
	s.dep.Registry.RecomputeIndex()

	s.appendEvent(ctx, &models.InvestmentEvent{
		EventType: models.EventClaim,
		Account:   caller,
		TokenID:   tokenID,
		Amount:    payout,
		Units:     units,
		Timestamp: s.now(),
	})
	if s.cache != nil {
		if asset, aerr := s.dep.Registry.AssetByToken(tokenID); aerr == nil {
			if cerr := s.cache.InvalidateAsset(ctx, asset.ID); cerr != nil {
				s.logger.WithError(cerr).Warnf("failed to invalidate asset %d", asset.ID)
			}
		}
	}

	return &ClaimResult{
		TokenID: tokenID,
		Account: caller,
		Payout:  payout,
		State:   string(token.State()),
	}, nil
}

// TokenBalance returns an account's balance on one asset token.
func (s *TokenizationService) TokenBalance(ctx context.Context, tokenID, account string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.dep.Arena.Get(tokenID)
	if err != nil {
		return decimal.Zero, err
	}
	return token.BalanceOf(account)
}

// StableBalance returns an account's stable unit balance.
func (s *TokenizationService) StableBalance(ctx context.Context, account string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dep.Stable.BalanceOf(account)
}

// internal helpers; callers hold s.mu

func (s *TokenizationService) now() time.Time {
	return s.dep.Clock.Now()
}

func (s *TokenizationService) assetView(asset *registry.Asset) (*AssetView, error) {
	token, err := s.dep.Arena.Get(asset.TokenID)
	if err != nil {
		return nil, err
	}

	view := &AssetView{
		Asset: *asset,
		State: string(token.State()),
	}

	// Terminated tokens refuse reads; their supply is zero by definition.
	if token.State() != ledger.StateTerminated {
		supply, err := token.TotalSupply()
		if err != nil {
			return nil, err
		}
		remaining, err := token.RemainingCapacity()
		if err != nil {
			return nil, err
		}
		view.TotalSupply = supply
		view.RemainingCapacity = remaining
	}

	return view, nil
}

func (s *TokenizationService) portfolioViewLocked(account string) (*PortfolioView, error) {
	pool := s.dep.Pool

	// Accounts with no pooled tokens get an all-zero view rather than an
	// insufficient balance error.
	if !pool.BalanceOf(account).IsPositive() {
		return &PortfolioView{Account: account, Holdings: []PortfolioHolding{}}, nil
	}

	pct, err := pool.OwnershipPercentage(account)
	if err != nil {
		return nil, err
	}
	projected, err := pool.TotalProjectedValueOwned(account)
	if err != nil {
		return nil, err
	}
	current, err := pool.TotalCurrentValueOwned(account)
	if err != nil {
		return nil, err
	}

	tokens := pool.InvestedTokens()
	holdings := make([]PortfolioHolding, 0, len(tokens))
	for _, tokenID := range tokens {
		holdings = append(holdings, PortfolioHolding{
			TokenID:       tokenID,
			InvestedUnits: pool.InvestedUnits(tokenID),
		})
	}

	return &PortfolioView{
		Account:             account,
		Balance:             pool.BalanceOf(account),
		OwnershipPercentage: pct,
		TotalProjectedValue: projected,
		TotalCurrentValue:   current,
		Holdings:            holdings,
	}, nil
}

func (s *TokenizationService) mirrorAsset(ctx context.Context, asset *registry.Asset) {
	if s.assetStore != nil {
		record := &models.AssetRecord{
			ID:                asset.ID,
			Owner:             asset.Owner,
			Name:              asset.Name,
			ValueUSD:          asset.ValueUSD,
			Cap:               asset.Cap,
			AnnualizedROI:     asset.AnnualizedROI,
			ProjectedValueUSD: asset.ProjectedValueUSD,
			TimeframeMonths:   asset.TimeframeMonths,
			PricePerUnit:      asset.PricePerUnit,
			TokenID:           asset.TokenID,
			Funded:            asset.Funded,
			Filled:            asset.Filled,
			CreatedAt:         asset.CreatedAt,
		}
		if err := s.assetStore.Upsert(ctx, record); err != nil {
			s.logger.WithError(err).Warnf("failed to persist asset %d", asset.ID)
		}
	}

	if s.cache != nil {
		if err := s.cache.InvalidateAsset(ctx, asset.ID); err != nil {
			s.logger.WithError(err).Warnf("failed to invalidate asset %d", asset.ID)
		}
	}
}

func (s *TokenizationService) mirrorAssetByToken(ctx context.Context, tokenID string) {
	asset, err := s.dep.Registry.AssetByToken(tokenID)
	if err != nil {
		s.logger.WithError(err).Warnf("failed to resolve asset for token %s", tokenID)
		return
	}
	s.mirrorAsset(ctx, asset)
}

func (s *TokenizationService) mirrorInvestments(ctx context.Context, investments []*allocator.Investment, eventType string) {
	for _, inv := range investments {
		if s.investmentStore != nil {
			record := &models.InvestmentRecord{
				ID:             inv.ID,
				Owner:          inv.Owner,
				TokenID:        inv.TokenID,
				AmountInvested: inv.AmountInvested,
				CreatedAt:      inv.CreatedAt,
			}
			if err := s.investmentStore.Insert(ctx, record); err != nil {
				s.logger.WithError(err).Warnf("failed to persist investment %d", inv.ID)
			}
		}

		s.appendEvent(ctx, &models.InvestmentEvent{
			EventType: eventType,
			Account:   inv.Owner,
			TokenID:   inv.TokenID,
			Amount:    inv.AmountInvested,
			Timestamp: inv.CreatedAt,
		})
	}
}

func (s *TokenizationService) appendEvent(ctx context.Context, ev *models.InvestmentEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, ev); err != nil {
		s.logger.WithError(err).Warnf("failed to append %s event", ev.EventType)
	}
}
