package bootstrap

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asset-tokenizer/internal/ledger"
)

func TestDeployWiresComponents(t *testing.T) {
	d, err := Deploy("owner", nil)
	require.NoError(t, err)

	// The registry holds backstop minting rights on the stable unit.
	assert.True(t, d.Stable.IsMinter(d.Registry.Account()))

	// A portfolio investment exercises the full wiring end to end.
	_, err = d.Registry.AddAsset("owner", "amy", "BMW 2019",
		decimal.NewFromInt(100), decimal.NewFromInt(100), decimal.NewFromInt(15),
		decimal.NewFromInt(115), 12, decimal.NewFromInt(1))
	require.NoError(t, err)

	require.NoError(t, d.Stable.Mint("owner", "carol", decimal.NewFromInt(100)))
	require.NoError(t, d.Stable.Approve("carol", d.Allocator.Account(), decimal.NewFromInt(100)))
	_, err = d.Allocator.InvestPortfolio("carol", decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, d.Pool.BalanceOf("carol").Equal(decimal.NewFromInt(100)))
}

func TestDeploymentAddresses(t *testing.T) {
	d, err := Deploy("owner", ledger.SystemClock{})
	require.NoError(t, err)

	addresses := d.Addresses()
	for _, name := range []string{ComponentStableUnit, ComponentAllocator, ComponentAssetRegistry, ComponentPortfolioToken} {
		assert.NotEmpty(t, addresses[name], "missing %s", name)
	}
}

func TestAddressBookRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contracts.json")
	book := NewAddressBook(path)

	_, err := book.Load("development")
	assert.Error(t, err)

	require.NoError(t, book.Save("development", map[string]string{"Allocator": "abc"}))
	require.NoError(t, book.Save("staging", map[string]string{"Allocator": "def"}))

	got, err := book.Load("development")
	require.NoError(t, err)
	assert.Equal(t, "abc", got["Allocator"])

	// Saving one network leaves the others untouched.
	got, err = book.Load("staging")
	require.NoError(t, err)
	assert.Equal(t, "def", got["Allocator"])
}
