package eth

import (
	"context"
	"fmt"

	"github.com/pixlmixr/minting-service/common"
	eth "github.com/pixlmixr/minting-service/eth/client"
	"github.com/pixlmixr/minting-service/models"
)

// ChainMinter mints one token for ownerAddress pointing at tokenURI and
// returns once the transaction has the configured number of confirmations.
type ChainMinter interface {
	Mint(ctx context.Context, ownerAddress string, tokenURI string) (*models.MintResult, error)
	Strategy() string
	// Address is the account paying for gas, empty if unknown.
	Address() string
}

type MinterDeps struct {
	Client eth.EthereumClient
	Signer common.Signer
	Waiter *ConfirmationWaiter
}

// NewChainMinter picks the strategy once at startup.
func NewChainMinter(config models.Config, deps MinterDeps) (ChainMinter, error) {
	switch config.Minter.Strategy {
	case models.MinterStrategyDirect:
		return NewDirectMinter(deps.Client, deps.Signer, deps.Waiter, config.Ethereum)
	case models.MinterStrategyEngine:
		return NewEngineMinter(deps.Waiter, config.Minter.Engine, config.Ethereum), nil
	default:
		return nil, fmt.Errorf("unsupported minter strategy %q", config.Minter.Strategy)
	}
}
