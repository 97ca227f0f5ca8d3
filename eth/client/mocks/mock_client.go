package mocks

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"
)

// MockEthereumClient is a testify double for client.EthereumClient
type MockEthereumClient struct {
	mock.Mock
}

func (m *MockEthereumClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockEthereumClient) GetChainID(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	chainID, _ := args.Get(0).(*big.Int)
	return chainID, args.Error(1)
}

func (m *MockEthereumClient) GetTransactionByHash(ctx context.Context, txHash string) (*types.Transaction, bool, error) {
	args := m.Called(ctx, txHash)
	tx, _ := args.Get(0).(*types.Transaction)
	return tx, args.Bool(1), args.Error(2)
}

func (m *MockEthereumClient) GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	args := m.Called(ctx, txHash)
	receipt, _ := args.Get(0).(*types.Receipt)
	return receipt, args.Error(1)
}

func (m *MockEthereumClient) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	args := m.Called(ctx, address)
	balance, _ := args.Get(0).(*big.Int)
	return balance, args.Error(1)
}

func (m *MockEthereumClient) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	args := m.Called(ctx, msg)
	output, _ := args.Get(0).([]byte)
	return output, args.Error(1)
}

func (m *MockEthereumClient) ValidateNetwork() {
	m.Called()
}

func (m *MockEthereumClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockEthereumClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	tip, _ := args.Get(0).(*big.Int)
	return tip, args.Error(1)
}

func (m *MockEthereumClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	price, _ := args.Get(0).(*big.Int)
	return price, args.Error(1)
}

func (m *MockEthereumClient) GetBaseFee(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	baseFee, _ := args.Get(0).(*big.Int)
	return baseFee, args.Error(1)
}

func (m *MockEthereumClient) PendingNonceAt(ctx context.Context, address common.Address) (uint64, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockEthereumClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockEthereumClient) Close() {
	m.Called()
}
