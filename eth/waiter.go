package eth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	log "github.com/sirupsen/logrus"

	eth "github.com/pixlmixr/minting-service/eth/client"
	"github.com/pixlmixr/minting-service/eth/util"
	"github.com/pixlmixr/minting-service/models"
)

// ConfirmationWaiter polls the chain until a transaction is buried under enough blocks.
type ConfirmationWaiter struct {
	reader        eth.ChainReader
	confirmations int64
	pollInterval  time.Duration
	timeout       time.Duration
}

func NewConfirmationWaiter(reader eth.ChainReader, config models.EthereumConfig) *ConfirmationWaiter {
	return &ConfirmationWaiter{
		reader:        reader,
		confirmations: config.Confirmations,
		pollInterval:  time.Duration(config.ConfirmationPollMillis) * time.Millisecond,
		timeout:       time.Duration(config.ConfirmationTimeoutMillis) * time.Millisecond,
	}
}

// Wait returns the receipt and its confirmation count once the threshold is met.
// A reverted transaction fails with models.ErrMintExecution.
func (w *ConfirmationWaiter) Wait(ctx context.Context, txHash string) (*types.Receipt, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	logger := log.WithField("tx_hash", txHash)

	for {
		receipt, confirmations, done, err := w.check(ctx, txHash)
		if err != nil {
			return nil, 0, err
		}
		if done {
			return receipt, confirmations, nil
		}

		logger.WithField("confirmations", confirmations).Debug("[MINTER] Waiting for confirmations")

		select {
		case <-ctx.Done():
			return nil, 0, fmt.Errorf("%w: transaction %s not confirmed: %s", models.ErrMintSubmission, txHash, ctx.Err().Error())
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *ConfirmationWaiter) check(ctx context.Context, txHash string) (*types.Receipt, int64, bool, error) {
	receipt, err := w.reader.GetTransactionReceipt(ctx, txHash)
	if errors.Is(err, models.ErrNotFound) {
		return nil, 0, false, nil
	}
	if err != nil {
		log.Warn("[MINTER] Error fetching receipt: ", err)
		return nil, 0, false, nil
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, 0, false, fmt.Errorf("%w: transaction %s reverted in block %s", models.ErrMintExecution, txHash, receipt.BlockNumber)
	}

	if receipt.BlockNumber == nil {
		return nil, 0, false, nil
	}

	current, err := w.reader.GetBlockNumber(ctx)
	if err != nil {
		log.Warn("[MINTER] Error fetching block number: ", err)
		return nil, 0, false, nil
	}

	confirmations := util.Confirmations(current, receipt.BlockNumber.Uint64())
	return receipt, confirmations, confirmations >= w.confirmations, nil
}
