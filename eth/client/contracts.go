package client

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const nftABIJSON = `[
	{"type":"function","name":"mintNFT","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"tokenURI","type":"string"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"ownerOf","stateMutability":"view",
	 "inputs":[{"name":"tokenId","type":"uint256"}],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"tokenURI","stateMutability":"view",
	 "inputs":[{"name":"tokenId","type":"uint256"}],
	 "outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

const erc20ABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"Transfer","anonymous":false,
	 "inputs":[{"name":"from","type":"address","indexed":true},
	           {"name":"to","type":"address","indexed":true},
	           {"name":"value","type":"uint256","indexed":false}]}
]`

var (
	NFTABI   = mustParseABI(nftABIJSON)
	ERC20ABI = mustParseABI(erc20ABIJSON)

	// TransferEventTopic is shared by ERC-20 and ERC-721 Transfer events.
	TransferEventTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(err)
	}
	return parsed
}

// ReadContract performs an eth_call of method on address and unpacks its outputs.
func ReadContract(ctx context.Context, reader ChainReader, address common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	output, err := reader.CallContract(ctx, ethereum.CallMsg{To: &address, Data: data})
	if err != nil {
		return nil, err
	}

	values, err := contractABI.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// NFTContract wraps the read calls used by the verify endpoint.
type NFTContract struct {
	reader  ChainReader
	address common.Address
}

func NewNFTContract(reader ChainReader, address common.Address) *NFTContract {
	return &NFTContract{reader: reader, address: address}
}

func (n *NFTContract) Address() common.Address {
	return n.address
}

func (n *NFTContract) OwnerOf(ctx context.Context, tokenId *big.Int) (common.Address, error) {
	values, err := ReadContract(ctx, n.reader, n.address, NFTABI, "ownerOf", tokenId)
	if err != nil {
		return common.Address{}, err
	}
	owner, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected ownerOf output %T", values[0])
	}
	return owner, nil
}

func (n *NFTContract) TokenURI(ctx context.Context, tokenId *big.Int) (string, error) {
	values, err := ReadContract(ctx, n.reader, n.address, NFTABI, "tokenURI", tokenId)
	if err != nil {
		return "", err
	}
	uri, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected tokenURI output %T", values[0])
	}
	return uri, nil
}

// PackMintCall encodes mintNFT(to, tokenURI).
func PackMintCall(to common.Address, tokenURI string) ([]byte, error) {
	return NFTABI.Pack("mintNFT", to, tokenURI)
}
