package app

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/pixlmixr/minting-service/common"
	"github.com/pixlmixr/minting-service/models"
)

// CreateEthereumSigner builds the transaction signer from whichever key source is configured.
func CreateEthereumSigner(config models.EthereumConfig) (common.Signer, error) {
	var signer common.Signer
	var err error

	switch {
	case config.PrivateKey != "":
		signer, err = common.NewPrivateKeySigner(config.PrivateKey)
	case config.Mnemonic != "":
		signer, err = common.NewMnemonicSigner(config.Mnemonic)
	case config.GcpKmsKeyName != "":
		signer, err = common.NewGcpKmsSigner(config.GcpKmsKeyName)
	default:
		return nil, fmt.Errorf("no ethereum key source configured")
	}

	if err != nil {
		return nil, fmt.Errorf("error initializing ethereum signer: %w", err)
	}

	log.Debug("[SIGNER] Ethereum signer address: ", signer.Address().Hex())
	return signer, nil
}
