package common

import (
	"github.com/ethereum/go-ethereum/common"
)

// Signer produces 65 byte [R || S || V] secp256k1 signatures with V in {0, 1}.
type Signer interface {
	SignHash(hash common.Hash) ([]byte, error)
	Address() common.Address
	Destroy()
}
