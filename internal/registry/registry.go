// Package registry owns the catalog of registered assets and the fillable
// index the waterfall allocator plans against.
package registry

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asset-tokenizer/internal/ledger"
)

// Asset is one registered real-world item. Ids are sequential and 1-based.
// Funded and Filled are monotonic: once true they never reset.
type Asset struct {
	ID                int             `json:"id"`
	Owner             string          `json:"owner"`
	Name              string          `json:"name"`
	ValueUSD          decimal.Decimal `json:"valueUsd"`
	Cap               decimal.Decimal `json:"cap"`
	AnnualizedROI     decimal.Decimal `json:"annualizedRoi"`
	ProjectedValueUSD decimal.Decimal `json:"projectedValueUsd"`
	TimeframeMonths   int             `json:"timeframeMonths"`
	PricePerUnit      decimal.Decimal `json:"pricePerUnit"`
	TokenID           string          `json:"tokenId"`
	Funded            bool            `json:"funded"`
	Filled            bool            `json:"filled"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// AssetRegistry creates one asset token per registered asset and maintains
// the fillable index: the set of not-yet-filled assets, their count, and
// the single smallest remaining capacity among them in stable-unit terms.
type AssetRegistry struct {
	owner   string
	account string

	stable    *ledger.StableUnit
	arena     *ledger.TokenArena
	allocator string
	clock     ledger.Clock

	assets  []*Asset
	byToken map[string]*Asset

	fillable    map[int]struct{}
	minFillable decimal.Decimal
}

// New creates a registry. allocator is the component account allowed to
// mint on the asset tokens this registry creates and to mark assets filled.
func New(owner string, stable *ledger.StableUnit, arena *ledger.TokenArena, allocator string, clock ledger.Clock) *AssetRegistry {
	return &AssetRegistry{
		owner:     owner,
		account:   uuid.New().String(),
		stable:    stable,
		arena:     arena,
		allocator: allocator,
		clock:     clock,
		byToken:   make(map[string]*Asset),
		fillable:  make(map[int]struct{}),
	}
}

// Owner returns the registry owner account.
func (r *AssetRegistry) Owner() string { return r.owner }

// Account returns the registry's component account id. The deployment
// grants this account StableUnit minting rights as the redemption backstop.
func (r *AssetRegistry) Account() string { return r.account }

// AddAsset registers a new asset and creates its token. Restricted to the
// registry owner.
func (r *AssetRegistry) AddAsset(caller, owner, name string, valueUSD, cap, roi, projectedValueUSD decimal.Decimal, timeframeMonths int, pricePerUnit decimal.Decimal) (*Asset, error) {
	if caller != r.owner {
		return nil, fmt.Errorf("add asset: caller %s: %w", caller, ledger.ErrUnauthorized)
	}
	econ := ledger.AssetEconomics{
		Name:              name,
		ValueUSD:          valueUSD,
		Cap:               cap,
		AnnualizedROI:     roi,
		ProjectedValueUSD: projectedValueUSD,
		TimeframeMonths:   timeframeMonths,
		PricePerUnit:      pricePerUnit,
	}
	token, err := r.arena.Create(econ, r.allocator, r.account)
	if err != nil {
		return nil, fmt.Errorf("add asset: %w", err)
	}
	asset := &Asset{
		ID:                len(r.assets) + 1,
		Owner:             owner,
		Name:              name,
		ValueUSD:          valueUSD,
		Cap:               cap,
		AnnualizedROI:     roi,
		ProjectedValueUSD: projectedValueUSD,
		TimeframeMonths:   timeframeMonths,
		PricePerUnit:      pricePerUnit,
		TokenID:           token.ID(),
		CreatedAt:         r.clock.Now(),
	}
	r.assets = append(r.assets, asset)
	r.byToken[asset.TokenID] = asset
	r.fillable[asset.ID] = struct{}{}
	r.recomputeIndex()
	return asset, nil
}

// EditAsset changes an asset's economic parameters in place. Restricted to
// the registry owner and rejected once any units have been issued.
func (r *AssetRegistry) EditAsset(caller, tokenID string, valueUSD, roi, projectedValueUSD decimal.Decimal, timeframeMonths int, pricePerUnit decimal.Decimal) error {
	if caller != r.owner {
		return fmt.Errorf("edit asset: caller %s: %w", caller, ledger.ErrUnauthorized)
	}
	asset, err := r.AssetByToken(tokenID)
	if err != nil {
		return fmt.Errorf("edit asset: %w", err)
	}
	token, err := r.arena.Get(tokenID)
	if err != nil {
		return fmt.Errorf("edit asset: %w", err)
	}
	supply, err := token.TotalSupply()
	if err != nil {
		return fmt.Errorf("edit asset: %w", err)
	}
	if supply.IsPositive() {
		return fmt.Errorf("edit asset %d: investment has begun: %w", asset.ID, ledger.ErrInvalidState)
	}
	econ := token.Economics()
	econ.ValueUSD = valueUSD
	econ.AnnualizedROI = roi
	econ.ProjectedValueUSD = projectedValueUSD
	econ.TimeframeMonths = timeframeMonths
	econ.PricePerUnit = pricePerUnit
	if err := econ.Validate(); err != nil {
		return fmt.Errorf("edit asset %d: %w", asset.ID, err)
	}
	if err := r.arena.SetEconomics(tokenID, econ); err != nil {
		return fmt.Errorf("edit asset %d: %w", asset.ID, err)
	}
	asset.ValueUSD = valueUSD
	asset.AnnualizedROI = roi
	asset.ProjectedValueUSD = projectedValueUSD
	asset.TimeframeMonths = timeframeMonths
	asset.PricePerUnit = pricePerUnit
	r.recomputeIndex()
	return nil
}

// FundAsset transfers the owner-posted payout reserve into the asset
// token's stable account and marks the asset funded. The caller must be the
// asset owner, the amount must cover the projected value, and the transfer
// must have been approved beforehand.
func (r *AssetRegistry) FundAsset(caller string, amount decimal.Decimal, assetID int) error {
	asset, err := r.AssetByID(assetID)
	if err != nil {
		return fmt.Errorf("fund asset: %w", err)
	}
	if caller != asset.Owner {
		return fmt.Errorf("fund asset %d: caller %s is not the asset owner: %w",
			assetID, caller, ledger.ErrUnauthorized)
	}
	if amount.LessThan(asset.ProjectedValueUSD) {
		return fmt.Errorf("fund asset %d: amount %s below projected value %s: %w",
			assetID, amount, asset.ProjectedValueUSD, ledger.ErrInsufficientBalance)
	}
	if err := r.stable.TransferFrom(r.account, caller, asset.TokenID, amount); err != nil {
		return fmt.Errorf("fund asset %d: %w", assetID, err)
	}
	token, err := r.arena.Get(asset.TokenID)
	if err != nil {
		return fmt.Errorf("fund asset %d: %w", assetID, err)
	}
	token.MarkFunded(r.clock.Now())
	asset.Funded = true
	return nil
}

// AssetByID returns the asset with the given 1-based id.
func (r *AssetRegistry) AssetByID(id int) (*Asset, error) {
	if id < 1 || id > len(r.assets) {
		return nil, fmt.Errorf("asset %d: %w", id, ledger.ErrNotFound)
	}
	return r.assets[id-1], nil
}

// AssetByToken returns the asset owning the given token handle.
func (r *AssetRegistry) AssetByToken(tokenID string) (*Asset, error) {
	asset, ok := r.byToken[tokenID]
	if !ok {
		return nil, fmt.Errorf("asset with token %s: %w", tokenID, ledger.ErrNotFound)
	}
	return asset, nil
}

// AssetsCount returns the number of registered assets.
func (r *AssetRegistry) AssetsCount() int {
	return len(r.assets)
}

// Assets returns every registered asset in id order.
func (r *AssetRegistry) Assets() []*Asset {
	out := make([]*Asset, len(r.assets))
	copy(out, r.assets)
	return out
}

// MarkFilled records that an asset's cap has been fully subscribed and
// removes it from the fillable index. Restricted to the allocator.
func (r *AssetRegistry) MarkFilled(caller string, assetID int) error {
	if caller != r.allocator {
		return fmt.Errorf("mark filled: caller %s: %w", caller, ledger.ErrUnauthorized)
	}
	asset, err := r.AssetByID(assetID)
	if err != nil {
		return fmt.Errorf("mark filled: %w", err)
	}
	asset.Filled = true
	delete(r.fillable, assetID)
	r.recomputeIndex()
	return nil
}

// FillableAssets returns the assets whose caps are not yet fully
// subscribed and whose tokens still accept investment, in id order. A
// token that terminated before its cap was reached (every holder claimed
// out) can never absorb funds again and is excluded.
func (r *AssetRegistry) FillableAssets() []*Asset {
	out := make([]*Asset, 0, len(r.fillable))
	for _, asset := range r.assets {
		if _, ok := r.fillable[asset.ID]; !ok {
			continue
		}
		if !r.investable(asset) {
			continue
		}
		out = append(out, asset)
	}
	return out
}

// FillableCount returns the number of assets in the fillable set.
func (r *AssetRegistry) FillableCount() int {
	return len(r.FillableAssets())
}

// investable reports whether the asset's token can still issue units.
func (r *AssetRegistry) investable(asset *Asset) bool {
	token, err := r.arena.Get(asset.TokenID)
	if err != nil {
		return false
	}
	return token.State() != ledger.StateTerminated
}

// MinFillableAmount returns the smallest remaining capacity across the
// fillable set, in stable-unit terms. Zero when the set is empty.
func (r *AssetRegistry) MinFillableAmount() decimal.Decimal {
	return r.minFillable
}

// RemainingCapacityStable returns how much stable value the asset can still
// absorb: remaining units times the per-unit price.
func (r *AssetRegistry) RemainingCapacityStable(asset *Asset) (decimal.Decimal, error) {
	token, err := r.arena.Get(asset.TokenID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	remaining, err := token.RemainingCapacity()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return remaining.Mul(asset.PricePerUnit), nil
}

// RecomputeIndex refreshes minFillableAmount from the current fillable set.
// The allocator calls this after every fill: the minimum must be derived
// from scratch because a different asset may now hold it.
func (r *AssetRegistry) RecomputeIndex() {
	r.recomputeIndex()
}

func (r *AssetRegistry) recomputeIndex() {
	r.minFillable = decimal.Zero
	first := true
	for id := range r.fillable {
		asset := r.assets[id-1]
		if !r.investable(asset) {
			// Terminated before filling; the slot can never absorb
			// funds again, so evict it.
			delete(r.fillable, id)
			continue
		}
		remaining, err := r.RemainingCapacityStable(asset)
		if err != nil {
			continue
		}
		if first || remaining.LessThan(r.minFillable) {
			r.minFillable = remaining
			first = false
		}
	}
}
