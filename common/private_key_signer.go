package common

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type PrivateKeySigner struct {
	privKey    *ecdsa.PrivateKey
	ethAddress common.Address
}

var _ Signer = &PrivateKeySigner{}

func NewPrivateKeySigner(hexKey string) (*PrivateKeySigner, error) {
	privKey, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return newPrivateKeySigner(privKey), nil
}

func newPrivateKeySigner(privKey *ecdsa.PrivateKey) *PrivateKeySigner {
	return &PrivateKeySigner{
		privKey:    privKey,
		ethAddress: crypto.PubkeyToAddress(privKey.PublicKey),
	}
}

func (s *PrivateKeySigner) Destroy() {
	// nothing to do
}

func (s *PrivateKeySigner) SignHash(hash common.Hash) ([]byte, error) {
	return crypto.Sign(hash[:], s.privKey)
}

func (s *PrivateKeySigner) Address() common.Address {
	return s.ethAddress
}
