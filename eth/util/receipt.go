package util

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	eth "github.com/pixlmixr/minting-service/eth/client"
	"github.com/pixlmixr/minting-service/models"
)

// ExtractTokenId reads the token id from the fourth topic of the first ERC-721
// Transfer log emitted by contract. It returns models.UnknownTokenId when there is none.
func ExtractTokenId(receipt *types.Receipt, contract common.Address) string {
	if receipt == nil {
		return models.UnknownTokenId
	}
	for _, log := range receipt.Logs {
		if log == nil || log.Address != contract {
			continue
		}
		if len(log.Topics) != 4 || log.Topics[0] != eth.TransferEventTopic {
			continue
		}
		return log.Topics[3].Big().String()
	}
	return models.UnknownTokenId
}

// Confirmations counts the receipt block itself as the first confirmation.
func Confirmations(currentBlock uint64, receiptBlock uint64) int64 {
	if currentBlock < receiptBlock {
		return 0
	}
	return int64(currentBlock-receiptBlock) + 1
}
