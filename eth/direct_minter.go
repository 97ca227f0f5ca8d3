package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	log "github.com/sirupsen/logrus"

	"github.com/pixlmixr/minting-service/common"
	eth "github.com/pixlmixr/minting-service/eth/client"
	"github.com/pixlmixr/minting-service/eth/util"
	"github.com/pixlmixr/minting-service/models"
)

// DirectMinter signs and submits mintNFT transactions itself.
type DirectMinter struct {
	client   eth.EthereumClient
	signer   common.Signer
	waiter   *ConfirmationWaiter
	contract ethcommon.Address
	chainID  *big.Int

	// guards nonce selection through submission for this signer
	nonceMu sync.Mutex
}

var _ ChainMinter = &DirectMinter{}

func NewDirectMinter(client eth.EthereumClient, signer common.Signer, waiter *ConfirmationWaiter, config models.EthereumConfig) (*DirectMinter, error) {
	if signer == nil {
		return nil, fmt.Errorf("direct minter requires a signer")
	}
	chainID, ok := new(big.Int).SetString(config.ChainID, 10)
	if !ok {
		return nil, fmt.Errorf("invalid chain id %q", config.ChainID)
	}
	return &DirectMinter{
		client:   client,
		signer:   signer,
		waiter:   waiter,
		contract: ethcommon.HexToAddress(config.NFTContractAddress),
		chainID:  chainID,
	}, nil
}

func (m *DirectMinter) Strategy() string {
	return models.MinterStrategyDirect
}

func (m *DirectMinter) Address() string {
	return m.signer.Address().Hex()
}

func isRevert(message string) bool {
	return strings.Contains(strings.ToLower(message), "execution reverted")
}

func (m *DirectMinter) Mint(ctx context.Context, ownerAddress string, tokenURI string) (*models.MintResult, error) {
	logger := log.WithFields(log.Fields{"owner": ownerAddress, "strategy": m.Strategy()})

	data, err := eth.PackMintCall(ethcommon.HexToAddress(ownerAddress), tokenURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrMintSubmission, err.Error())
	}

	tx, err := m.submit(ctx, data)
	if err != nil {
		return nil, err
	}

	txHash := tx.Hash().Hex()
	logger.WithField("tx_hash", txHash).Info("[MINTER] Transaction sent")

	receipt, confirmations, err := m.waiter.Wait(ctx, txHash)
	if err != nil {
		return nil, err
	}

	tokenId := util.ExtractTokenId(receipt, m.contract)
	if tokenId == models.UnknownTokenId {
		logger.WithField("tx_hash", txHash).Warn("[MINTER] Could not find token id in receipt")
	}

	return &models.MintResult{
		TransactionId: txHash,
		TokenId:       tokenId,
		TokenURI:      tokenURI,
		BlockNumber:   receipt.BlockNumber.Uint64(),
		Confirmations: confirmations,
	}, nil
}

func (m *DirectMinter) feeData(ctx context.Context) (util.FeeData, error) {
	baseFee, err := m.client.GetBaseFee(ctx)
	if err != nil {
		return util.FeeData{}, err
	}

	if baseFee == nil {
		gasPrice, err := m.client.SuggestGasPrice(ctx)
		if err != nil {
			return util.FeeData{}, err
		}
		return util.FeeData{GasPrice: gasPrice}, nil
	}

	tip, err := m.client.SuggestGasTipCap(ctx)
	if err != nil {
		return util.FeeData{}, err
	}
	return util.DynamicFee(baseFee, tip), nil
}

func (m *DirectMinter) buildTx(nonce uint64, gasLimit uint64, fee util.FeeData, data []byte) *types.Transaction {
	to := m.contract
	if fee.IsDynamic() {
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   m.chainID,
			Nonce:     nonce,
			GasTipCap: fee.MaxPriorityFeePerGas,
			GasFeeCap: fee.MaxFeePerGas,
			Gas:       gasLimit,
			To:        &to,
			Value:     big.NewInt(0),
			Data:      data,
		})
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: fee.GasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    big.NewInt(0),
		Data:     data,
	})
}

func (m *DirectMinter) submit(ctx context.Context, data []byte) (*types.Transaction, error) {
	m.nonceMu.Lock()
	defer m.nonceMu.Unlock()

	from := m.signer.Address()

	estimate, err := m.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &m.contract,
		Data: data,
	})
	if err != nil {
		if isRevert(err.Error()) {
			return nil, fmt.Errorf("%w: %s", models.ErrMintExecution, err.Error())
		}
		return nil, fmt.Errorf("%w: error estimating gas: %s", models.ErrMintSubmission, err.Error())
	}
	gasLimit := util.GasLimitWithMargin(estimate)

	fee, err := m.feeData(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: error fetching fee data: %s", models.ErrMintSubmission, err.Error())
	}

	nonce, err := m.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("%w: error fetching nonce: %s", models.ErrMintSubmission, err.Error())
	}

	log.WithFields(log.Fields{
		"nonce":     nonce,
		"gas_limit": gasLimit,
		"estimate":  estimate,
	}).Debug("[MINTER] Prepared mint transaction")

	signedTx, err := util.SignTx(m.buildTx(nonce, gasLimit, fee, data), m.chainID, m.signer)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrMintSubmission, err.Error())
	}

	if err := m.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("%w: error sending transaction: %s", models.ErrMintSubmission, err.Error())
	}

	return signedTx, nil
}
