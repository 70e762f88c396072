package circuitbreaker

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mselser95/arbengine/pkg/wallet"
)

// mockWalletClient is a BalanceFetcher stand-in for tests: it never touches
// an RPC endpoint, just returns whatever balance or error was last set.
type mockWalletClient struct {
	mu       sync.Mutex
	balances *wallet.Balances
	err      error
	calls    int
}

func newMockWalletClient() *mockWalletClient {
	return &mockWalletClient{
		balances: &wallet.Balances{
			MATIC:         big.NewInt(0),
			USDC:          big.NewInt(0),
			USDCAllowance: big.NewInt(0),
		},
	}
}

func (m *mockWalletClient) GetBalances(_ context.Context, _ common.Address) (*wallet.Balances, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &wallet.Balances{
		MATIC:         new(big.Int).Set(m.balances.MATIC),
		USDC:          new(big.Int).Set(m.balances.USDC),
		USDCAllowance: new(big.Int).Set(m.balances.USDCAllowance),
	}, nil
}

func (m *mockWalletClient) SetUSDCBalance(usdc *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances.USDC = usdc
}

func (m *mockWalletClient) SetGetBalancesError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *mockWalletClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// newUSDCBigInt converts a dollar amount into 6-decimal USDC base units.
func newUSDCBigInt(dollars float64) *big.Int {
	scaled := big.NewFloat(dollars * 1e6)
	i, _ := scaled.Int(nil)
	return i
}
