// Package bootstrap constructs the ledger components in dependency order,
// wires their collaborator references, and grants the minting rights the
// core assumes are in place before any investment runs.
package bootstrap

import (
	"fmt"

	"github.com/asset-tokenizer/internal/allocator"
	"github.com/asset-tokenizer/internal/ledger"
	"github.com/asset-tokenizer/internal/registry"
)

// Component names used in the persisted address book.
const (
	ComponentStableUnit     = "StableUnit"
	ComponentAllocator      = "Allocator"
	ComponentAssetRegistry  = "AssetRegistry"
	ComponentPortfolioToken = "PortfolioToken"
)

// Deployment bundles one fully wired instance of the system.
type Deployment struct {
	Owner     string
	Stable    *ledger.StableUnit
	Arena     *ledger.TokenArena
	Pool      *ledger.PooledToken
	Registry  *registry.AssetRegistry
	Allocator *allocator.Allocator
	Clock     ledger.Clock
}

// Deploy instantiates StableUnit, PortfolioToken, Allocator and
// AssetRegistry in dependency order, wires the allocator's collaborators,
// and grants minting rights: the allocator on the pooled token, the
// registry on the stable unit (the redemption backstop).
func Deploy(owner string, clock ledger.Clock) (*Deployment, error) {
	if clock == nil {
		clock = ledger.SystemClock{}
	}

	stable := ledger.NewStableUnit(owner)
	arena := ledger.NewTokenArena(stable, clock)
	pool := ledger.NewPooledToken(owner, arena)
	alloc := allocator.New(owner, stable, arena, clock)
	reg := registry.New(owner, stable, arena, alloc.Account(), clock)

	if err := alloc.SetAssetRegistry(owner, reg); err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	if err := alloc.SetPortfolioToken(owner, pool); err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	if err := pool.AddMinter(owner, alloc.Account()); err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	if err := stable.AddMinter(owner, reg.Account()); err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}

	return &Deployment{
		Owner:     owner,
		Stable:    stable,
		Arena:     arena,
		Pool:      pool,
		Registry:  reg,
		Allocator: alloc,
		Clock:     clock,
	}, nil
}

// Addresses returns the component name to account-id mapping persisted in
// the address book.
func (d *Deployment) Addresses() map[string]string {
	return map[string]string{
		ComponentStableUnit:     d.Stable.ID(),
		ComponentAllocator:      d.Allocator.Account(),
		ComponentAssetRegistry:  d.Registry.Account(),
		ComponentPortfolioToken: d.Pool.ID(),
	}
}
