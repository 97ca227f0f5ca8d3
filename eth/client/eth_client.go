package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	log "github.com/sirupsen/logrus"

	"github.com/pixlmixr/minting-service/models"
)

// ChainReader is the read only view of the chain. Every call is idempotent and safe to retry.
type ChainReader interface {
	GetBlockNumber(ctx context.Context) (uint64, error)
	GetChainID(ctx context.Context) (*big.Int, error)
	GetTransactionByHash(ctx context.Context, txHash string) (*types.Transaction, bool, error)
	GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error)
	GetBalance(ctx context.Context, address common.Address) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

type EthereumClient interface {
	ChainReader
	ValidateNetwork()
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	GetBaseFee(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, address common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	Close()
}

type ethereumClient struct {
	client  *ethclient.Client
	config  models.EthereumConfig
	timeout time.Duration
}

var _ EthereumClient = &ethereumClient{}

func (c *ethereumClient) context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.timeout)
}

func wrapNotFound(err error) error {
	if errors.Is(err, ethereum.NotFound) {
		return fmt.Errorf("%w: %s", models.ErrNotFound, err.Error())
	}
	return err
}

func (c *ethereumClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := c.context(ctx)
	defer cancel()

	blockNumber, err := c.client.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}

	return blockNumber, nil
}

func (c *ethereumClient) GetChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.context(ctx)
	defer cancel()

	chainID, err := c.client.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	return chainID, nil
}

func (c *ethereumClient) ValidateNetwork() {
	log.Debugln("[ETH]", "Validating network")
	log.Debugln("[ETH]", "uri", c.config.RPCURL)

	chainID, err := c.GetChainID(context.Background())
	if err != nil {
		log.Fatalln("[ETH]", "Failed to get chain ID:", err)
	}
	blockNumber, err := c.GetBlockNumber(context.Background())
	if err != nil {
		log.Fatalln("[ETH]", "Failed to get block number:", err)
	}

	log.Debugln("[ETH]", "chainID", chainID.Uint64())

	if chainID.String() != c.config.ChainID {
		log.Fatalln("[ETH]", "Chain ID Mismatch", "expected", c.config.ChainID, "got", chainID.Uint64())
	}

	log.Debugln("[ETH]", "blockNumber", blockNumber)

	log.Infoln("[ETH]", "Validated network")
}

func (c *ethereumClient) GetTransactionByHash(ctx context.Context, txHash string) (*types.Transaction, bool, error) {
	ctx, cancel := c.context(ctx)
	defer cancel()

	tx, isPending, err := c.client.TransactionByHash(ctx, common.HexToHash(txHash))
	return tx, isPending, wrapNotFound(err)
}

func (c *ethereumClient) GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	ctx, cancel := c.context(ctx)
	defer cancel()

	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	return receipt, wrapNotFound(err)
}

func (c *ethereumClient) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	ctx, cancel := c.context(ctx)
	defer cancel()

	return c.client.BalanceAt(ctx, address, nil)
}

func (c *ethereumClient) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	ctx, cancel := c.context(ctx)
	defer cancel()

	return c.client.CallContract(ctx, msg, nil)
}

func (c *ethereumClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	ctx, cancel := c.context(ctx)
	defer cancel()

	return c.client.EstimateGas(ctx, msg)
}

func (c *ethereumClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.context(ctx)
	defer cancel()

	return c.client.SuggestGasTipCap(ctx)
}

func (c *ethereumClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.context(ctx)
	defer cancel()

	return c.client.SuggestGasPrice(ctx)
}

// GetBaseFee returns the latest block's base fee, nil on chains without EIP-1559.
func (c *ethereumClient) GetBaseFee(ctx context.Context) (*big.Int, error) {
	ctx, cancel := c.context(ctx)
	defer cancel()

	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, err
	}
	return header.BaseFee, nil
}

func (c *ethereumClient) PendingNonceAt(ctx context.Context, address common.Address) (uint64, error) {
	ctx, cancel := c.context(ctx)
	defer cancel()

	return c.client.PendingNonceAt(ctx, address)
}

func (c *ethereumClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := c.context(ctx)
	defer cancel()

	return c.client.SendTransaction(ctx, tx)
}

func (c *ethereumClient) Close() {
	c.client.Close()
}

func NewClient(config models.EthereumConfig) (EthereumClient, error) {
	client, err := ethclient.Dial(config.RPCURL)
	if err != nil {
		return nil, err
	}
	return &ethereumClient{
		client:  client,
		config:  config,
		timeout: time.Duration(config.RPCTimeoutMillis) * time.Millisecond,
	}, nil
}
