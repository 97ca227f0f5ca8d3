package util

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pixlmixr/minting-service/common"
)

// SignTx signs tx for chainID with signer and returns the signed copy.
func SignTx(tx *types.Transaction, chainID *big.Int, signer common.Signer) (*types.Transaction, error) {
	txSigner := types.LatestSignerForChainID(chainID)
	hash := txSigner.Hash(tx)

	signature, err := signer.SignHash(hash)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if len(signature) != common.SignatureLength {
		return nil, fmt.Errorf("invalid signature length %d", len(signature))
	}

	signedTx, err := tx.WithSignature(txSigner, signature)
	if err != nil {
		return nil, fmt.Errorf("attach signature: %w", err)
	}

	sender, err := types.Sender(txSigner, signedTx)
	if err != nil {
		return nil, fmt.Errorf("recover sender: %w", err)
	}
	if sender != signer.Address() {
		return nil, fmt.Errorf("signature sender mismatch: %s", sender.Hex())
	}
	return signedTx, nil
}
