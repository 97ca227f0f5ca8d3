package mint

import (
	"context"
	"math/big"

	"github.com/stretchr/testify/mock"

	"github.com/pixlmixr/minting-service/ipfs"
	"github.com/pixlmixr/minting-service/models"
	"github.com/pixlmixr/minting-service/storage"
)

type mockPaymentVerifier struct {
	mock.Mock
}

func (m *mockPaymentVerifier) Verify(ctx context.Context, txId string, requiredAmount *big.Int, requiredRecipient string) (*models.PaymentProof, error) {
	args := m.Called(ctx, txId, requiredAmount, requiredRecipient)
	proof, _ := args.Get(0).(*models.PaymentProof)
	return proof, args.Error(1)
}

type mockAssetResolver struct {
	mock.Mock
}

func (m *mockAssetResolver) Resolve(ctx context.Context, ref string, ownerAddress string, artifactId string) (*storage.Asset, error) {
	args := m.Called(ctx, ref, ownerAddress, artifactId)
	asset, _ := args.Get(0).(*storage.Asset)
	return asset, args.Error(1)
}

type mockPinner struct {
	mock.Mock
}

func (m *mockPinner) PinAsset(ctx context.Context, data []byte, filename string, mediaType string) (*models.PinnedContent, error) {
	args := m.Called(ctx, data, filename, mediaType)
	pinned, _ := args.Get(0).(*models.PinnedContent)
	return pinned, args.Error(1)
}

func (m *mockPinner) PinMetadata(ctx context.Context, doc *ipfs.NFTMetadata, filename string) (*models.PinnedContent, error) {
	args := m.Called(ctx, doc, filename)
	pinned, _ := args.Get(0).(*models.PinnedContent)
	return pinned, args.Error(1)
}

type mockMinter struct {
	mock.Mock
}

func (m *mockMinter) Mint(ctx context.Context, ownerAddress string, tokenURI string) (*models.MintResult, error) {
	args := m.Called(ctx, ownerAddress, tokenURI)
	result, _ := args.Get(0).(*models.MintResult)
	return result, args.Error(1)
}

func (m *mockMinter) Strategy() string {
	return models.MinterStrategyDirect
}

func (m *mockMinter) Address() string {
	return "0x3000000000000000000000000000000000000003"
}

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) Report(report models.MintReport) {
	m.Called(report)
}

func (m *mockReporter) Wait() {}
