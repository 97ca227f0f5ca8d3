package eth

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pixlmixr/minting-service/common"
	"github.com/pixlmixr/minting-service/eth/client/mocks"
	"github.com/pixlmixr/minting-service/models"
)

const (
	testPrivateKey  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	nftAddress      = "0x1000000000000000000000000000000000000001"
	ownerAddressHex = "0x2000000000000000000000000000000000000002"
)

func directConfig() models.EthereumConfig {
	config := waiterConfig()
	config.ChainID = "8453"
	config.NFTContractAddress = nftAddress
	return config
}

func newTestDirectMinter(t *testing.T, mockClient *mocks.MockEthereumClient) *DirectMinter {
	signer, err := common.NewPrivateKeySigner(testPrivateKey)
	assert.NoError(t, err)
	config := directConfig()
	minter, err := NewDirectMinter(mockClient, signer, NewConfirmationWaiter(mockClient, config), config)
	assert.NoError(t, err)
	return minter
}

func mintReceipt(tokenId int64) *types.Receipt {
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(500),
		Logs: []*types.Log{{
			Address: ethcommon.HexToAddress(nftAddress),
			Topics: []ethcommon.Hash{
				ethcommon.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"),
				{},
				ethcommon.BytesToHash(ethcommon.HexToAddress(ownerAddressHex).Bytes()),
				ethcommon.BigToHash(big.NewInt(tokenId)),
			},
		}},
	}
}

func TestDirectMinter_Mint(t *testing.T) {
	mockClient := new(mocks.MockEthereumClient)
	minter := newTestDirectMinter(t, mockClient)

	var sent *types.Transaction
	mockClient.On("EstimateGas", mock.Anything, mock.MatchedBy(func(msg ethereum.CallMsg) bool {
		return msg.To != nil && *msg.To == ethcommon.HexToAddress(nftAddress) && len(msg.Data) > 4
	})).Return(uint64(100_001), nil)
	mockClient.On("GetBaseFee", mock.Anything).Return(big.NewInt(1_000), nil)
	mockClient.On("SuggestGasTipCap", mock.Anything).Return(big.NewInt(100), nil)
	mockClient.On("PendingNonceAt", mock.Anything, minter.signer.Address()).Return(uint64(7), nil)
	mockClient.On("SendTransaction", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(*types.Transaction)
	}).Return(nil)
	mockClient.On("GetTransactionReceipt", mock.Anything, mock.Anything).Return(mintReceipt(42), nil)
	mockClient.On("GetBlockNumber", mock.Anything).Return(uint64(501), nil)

	result, err := minter.Mint(context.Background(), ownerAddressHex, "ipfs://QmMeta")

	assert.NoError(t, err)
	assert.Equal(t, "42", result.TokenId)
	assert.Equal(t, "ipfs://QmMeta", result.TokenURI)
	assert.Equal(t, uint64(500), result.BlockNumber)
	assert.Equal(t, int64(2), result.Confirmations)

	assert.NotNil(t, sent)
	assert.Equal(t, sent.Hash().Hex(), result.TransactionId)
	assert.Equal(t, uint64(120_002), sent.Gas())
	assert.Equal(t, uint64(7), sent.Nonce())
	assert.Equal(t, uint8(types.DynamicFeeTxType), sent.Type())
	assert.Equal(t, big.NewInt(2_100), sent.GasFeeCap())
	assert.Equal(t, big.NewInt(100), sent.GasTipCap())
}

func TestDirectMinter_ConcurrentSubmissions(t *testing.T) {
	mockClient := new(mocks.MockEthereumClient)
	minter := newTestDirectMinter(t, mockClient)

	var inFlight, maxInFlight int32
	mockClient.On("EstimateGas", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			prev := atomic.LoadInt32(&maxInFlight)
			if n <= prev || atomic.CompareAndSwapInt32(&maxInFlight, prev, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
	}).Return(uint64(100_000), nil)
	mockClient.On("GetBaseFee", mock.Anything).Return(big.NewInt(1_000), nil)
	mockClient.On("SuggestGasTipCap", mock.Anything).Return(big.NewInt(100), nil)
	mockClient.On("PendingNonceAt", mock.Anything, mock.Anything).Return(uint64(3), nil)
	mockClient.On("SendTransaction", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
	}).Return(nil)
	mockClient.On("GetTransactionReceipt", mock.Anything, mock.Anything).Return(mintReceipt(42), nil)
	mockClient.On("GetBlockNumber", mock.Anything).Return(uint64(501), nil)

	const mints = 8
	var wg sync.WaitGroup
	errs := make(chan error, mints)
	for i := 0; i < mints; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := minter.Mint(context.Background(), ownerAddressHex, "ipfs://QmMeta")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
	assert.Equal(t, int32(0), atomic.LoadInt32(&inFlight))
	mockClient.AssertNumberOfCalls(t, "SendTransaction", mints)
}

func TestDirectMinter_LegacyFee(t *testing.T) {
	mockClient := new(mocks.MockEthereumClient)
	minter := newTestDirectMinter(t, mockClient)

	var sent *types.Transaction
	mockClient.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(100_000), nil)
	mockClient.On("GetBaseFee", mock.Anything).Return(nil, nil)
	mockClient.On("SuggestGasPrice", mock.Anything).Return(big.NewInt(5_000), nil)
	mockClient.On("PendingNonceAt", mock.Anything, mock.Anything).Return(uint64(0), nil)
	mockClient.On("SendTransaction", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(*types.Transaction)
	}).Return(nil)
	mockClient.On("GetTransactionReceipt", mock.Anything, mock.Anything).Return(mintReceipt(1), nil)
	mockClient.On("GetBlockNumber", mock.Anything).Return(uint64(510), nil)

	_, err := minter.Mint(context.Background(), ownerAddressHex, "ipfs://QmMeta")

	assert.NoError(t, err)
	assert.Equal(t, uint8(types.LegacyTxType), sent.Type())
	assert.Equal(t, big.NewInt(5_000), sent.GasPrice())
	assert.Equal(t, uint64(120_000), sent.Gas())
	mockClient.AssertNotCalled(t, "SuggestGasTipCap", mock.Anything)
}

func TestDirectMinter_UnknownTokenId(t *testing.T) {
	mockClient := new(mocks.MockEthereumClient)
	minter := newTestDirectMinter(t, mockClient)

	receipt := mintReceipt(1)
	receipt.Logs[0].Address = ethcommon.HexToAddress(ownerAddressHex)

	mockClient.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(50_000), nil)
	mockClient.On("GetBaseFee", mock.Anything).Return(big.NewInt(1), nil)
	mockClient.On("SuggestGasTipCap", mock.Anything).Return(big.NewInt(1), nil)
	mockClient.On("PendingNonceAt", mock.Anything, mock.Anything).Return(uint64(0), nil)
	mockClient.On("SendTransaction", mock.Anything, mock.Anything).Return(nil)
	mockClient.On("GetTransactionReceipt", mock.Anything, mock.Anything).Return(receipt, nil)
	mockClient.On("GetBlockNumber", mock.Anything).Return(uint64(600), nil)

	result, err := minter.Mint(context.Background(), ownerAddressHex, "ipfs://QmMeta")

	assert.NoError(t, err)
	assert.Equal(t, models.UnknownTokenId, result.TokenId)
}

func TestDirectMinter_Errors(t *testing.T) {
	t.Run("Estimate reverted", func(t *testing.T) {
		mockClient := new(mocks.MockEthereumClient)
		minter := newTestDirectMinter(t, mockClient)
		mockClient.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(0), errors.New("execution reverted: not allowed"))

		_, err := minter.Mint(context.Background(), ownerAddressHex, "ipfs://QmMeta")

		assert.True(t, errors.Is(err, models.ErrMintExecution))
		mockClient.AssertNotCalled(t, "SendTransaction", mock.Anything, mock.Anything)
	})

	t.Run("Estimate unreachable", func(t *testing.T) {
		mockClient := new(mocks.MockEthereumClient)
		minter := newTestDirectMinter(t, mockClient)
		mockClient.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(0), errors.New("dial tcp: connection refused"))

		_, err := minter.Mint(context.Background(), ownerAddressHex, "ipfs://QmMeta")

		assert.True(t, errors.Is(err, models.ErrMintSubmission))
	})

	t.Run("Send failed", func(t *testing.T) {
		mockClient := new(mocks.MockEthereumClient)
		minter := newTestDirectMinter(t, mockClient)
		mockClient.On("EstimateGas", mock.Anything, mock.Anything).Return(uint64(50_000), nil)
		mockClient.On("GetBaseFee", mock.Anything).Return(big.NewInt(1), nil)
		mockClient.On("SuggestGasTipCap", mock.Anything).Return(big.NewInt(1), nil)
		mockClient.On("PendingNonceAt", mock.Anything, mock.Anything).Return(uint64(0), nil)
		mockClient.On("SendTransaction", mock.Anything, mock.Anything).Return(errors.New("insufficient funds for gas"))

		_, err := minter.Mint(context.Background(), ownerAddressHex, "ipfs://QmMeta")

		assert.True(t, errors.Is(err, models.ErrMintSubmission))
		mockClient.AssertNotCalled(t, "GetTransactionReceipt", mock.Anything, mock.Anything)
	})
}

func TestNewDirectMinter_InvalidChainID(t *testing.T) {
	signer, _ := common.NewPrivateKeySigner(testPrivateKey)
	config := directConfig()
	config.ChainID = "base"

	_, err := NewDirectMinter(nil, signer, nil, config)

	assert.Error(t, err)
}
