package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	log "github.com/sirupsen/logrus"

	eth "github.com/pixlmixr/minting-service/eth/client"
	"github.com/pixlmixr/minting-service/models"
)

type PaymentVerifier interface {
	Verify(ctx context.Context, txId string, requiredAmount *big.Int, requiredRecipient string) (*models.PaymentProof, error)
}

type paymentVerifier struct {
	reader       eth.ChainReader
	tokenAddress common.Address
}

var _ PaymentVerifier = &paymentVerifier{}

func NewPaymentVerifier(reader eth.ChainReader, tokenAddress common.Address) PaymentVerifier {
	return &paymentVerifier{
		reader:       reader,
		tokenAddress: tokenAddress,
	}
}

type transferEvent struct {
	from   common.Address
	to     common.Address
	amount *big.Int
}

func decodeTransfer(l *types.Log) (*transferEvent, error) {
	if len(l.Topics) != 3 || l.Topics[0] != eth.TransferEventTopic {
		return nil, fmt.Errorf("not a transfer event")
	}
	values, err := eth.ERC20ABI.Events["Transfer"].Inputs.NonIndexed().Unpack(l.Data)
	if err != nil {
		return nil, err
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected transfer value %T", values[0])
	}
	return &transferEvent{
		from:   common.BytesToAddress(l.Topics[1].Bytes()),
		to:     common.BytesToAddress(l.Topics[2].Bytes()),
		amount: amount,
	}, nil
}

// Verify checks that txId carries exactly one transfer of the payment token
// paying at least requiredAmount to requiredRecipient.
func (v *paymentVerifier) Verify(ctx context.Context, txId string, requiredAmount *big.Int, requiredRecipient string) (*models.PaymentProof, error) {
	logger := log.WithField("tx_id", txId)
	logger.Debug("[PAYMENT] Verifying payment")

	receipt, err := v.reader.GetTransactionReceipt(ctx, txId)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%w: receipt for %s not found", models.ErrPaymentNotFound, txId)
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching payment receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: transaction %s reverted", models.ErrPaymentNotFound, txId)
	}

	var transfer *transferEvent
	for _, l := range receipt.Logs {
		if l == nil || l.Address != v.tokenAddress {
			continue
		}
		event, err := decodeTransfer(l)
		if err != nil {
			logger.Debug("[PAYMENT] Skipping log: ", err)
			continue
		}
		if transfer != nil {
			return nil, fmt.Errorf("%w: more than one transfer of the payment token", models.ErrPaymentNotFound)
		}
		transfer = event
	}

	if transfer == nil {
		return nil, fmt.Errorf("%w: no transfer of the payment token", models.ErrPaymentNotFound)
	}

	if transfer.amount.Cmp(requiredAmount) < 0 {
		return nil, fmt.Errorf("%w: paid %s, required %s", models.ErrInsufficientPayment, transfer.amount.String(), requiredAmount.String())
	}

	if !strings.EqualFold(transfer.to.Hex(), requiredRecipient) {
		return nil, fmt.Errorf("%w: paid to %s", models.ErrWrongRecipient, transfer.to.Hex())
	}

	proof := &models.PaymentProof{
		TxId:             txId,
		SenderAddress:    transfer.from.Hex(),
		RecipientAddress: transfer.to.Hex(),
		Amount:           transfer.amount.String(),
		Confirmed:        receipt.BlockNumber != nil,
	}

	logger.WithField("amount", proof.Amount).Info("[PAYMENT] Payment verified")
	return proof, nil
}
