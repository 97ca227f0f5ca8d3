package main

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pixlmixr/minting-service/app"
	"github.com/pixlmixr/minting-service/models"
)

// Prints the minter address for the configured key source so it can be
// funded and granted the minter role before the service starts.
func main() {
	config := models.EthereumConfig{
		PrivateKey:    os.Getenv("ETH_PRIVATE_KEY"),
		Mnemonic:      os.Getenv("ETH_MNEMONIC"),
		GcpKmsKeyName: os.Getenv("ETH_GCP_KMS_KEY_NAME"),
	}

	signer, err := app.CreateEthereumSigner(config)
	if err != nil {
		log.Fatalf("failed to create signer: %v", err)
	}
	defer signer.Destroy()

	fmt.Println("Minter Address: ", signer.Address().Hex())

	hash := crypto.Keccak256Hash([]byte("pixlmixr signer check"))
	signature, err := signer.SignHash(hash)
	if err != nil {
		log.Fatalf("failed to sign hash: %v", err)
	}
	fmt.Printf("Signature: %x\n", signature)

	pub, err := crypto.SigToPub(hash.Bytes(), signature)
	if err != nil {
		log.Fatalf("failed to recover signer: %v", err)
	}
	if !bytes.Equal(crypto.PubkeyToAddress(*pub).Bytes(), signer.Address().Bytes()) {
		log.Fatalf("recovered address %s does not match", crypto.PubkeyToAddress(*pub).Hex())
	}
	fmt.Println("Signature verified")
}
