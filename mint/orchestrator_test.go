package mint

import (
	"context"
	"errors"
	"io"
	"math/big"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/pixlmixr/minting-service/app"
	"github.com/pixlmixr/minting-service/app/mocks"
	"github.com/pixlmixr/minting-service/eth"
	ethclient "github.com/pixlmixr/minting-service/eth/client"
	clientmocks "github.com/pixlmixr/minting-service/eth/client/mocks"
	"github.com/pixlmixr/minting-service/ipfs"
	"github.com/pixlmixr/minting-service/models"
	"github.com/pixlmixr/minting-service/storage"
)

func init() {
	log.SetOutput(io.Discard)
}

const (
	testOwner     = "0x2000000000000000000000000000000000000002"
	testTreasury  = "0xABCDEF0000000000000000000000000000ABCDEF"
	testPaymentTx = "0x00000000000000000000000000000000000000000000000000000000000000aa"
	testMintTx    = "0x00000000000000000000000000000000000000000000000000000000000000bb"
	testLockId    = "lock-1"
)

var (
	testToken  = common.HexToAddress("0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed")
	assetBytes = []byte("\x89PNG\r\n\x1a\nimage")
	assetPin   = &models.PinnedContent{ContentId: "bafyimage", GatewayURL: "https://gateway.pinata.cloud/ipfs/bafyimage", MediaType: "image/png"}
	metaPin    = &models.PinnedContent{ContentId: "bafymeta", GatewayURL: "https://gateway.pinata.cloud/ipfs/bafymeta", MediaType: "application/json"}
)

type harness struct {
	db       *mocks.MockDatabase
	payments *mockPaymentVerifier
	assets   *mockAssetResolver
	pinner   *mockPinner
	minter   *mockMinter
	reporter *mockReporter
	deps     Deps
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		db:       mocks.NewMockDatabase(t),
		payments: new(mockPaymentVerifier),
		assets:   new(mockAssetResolver),
		pinner:   new(mockPinner),
		minter:   new(mockMinter),
		reporter: new(mockReporter),
	}
	ledger := NewLedger(h.db)
	h.deps = Deps{
		Guard:    NewArtifactGuard(h.db, ledger),
		Ledger:   ledger,
		Payments: h.payments,
		Assets:   h.assets,
		Pinner:   h.pinner,
		Metadata: ipfs.NewMetadataBuilder(models.MetadataConfig{NamePrefix: "PIXLMIXR Masterpiece"}, "base", "DEGEN"),
		Minter:   h.minter,
		Reporter: h.reporter,
	}
	return h
}

func (h *harness) orchestrator(t *testing.T, config models.PaymentConfig) Orchestrator {
	o, err := NewOrchestrator(config, h.deps)
	assert.NoError(t, err)
	return o
}

func (h *harness) expectLock(artifactId string) {
	h.db.On("XLock", "mints/"+artifactId).Return(testLockId, nil).Once()
	h.db.On("Unlock", testLockId).Return(nil).Once()
}

func (h *harness) expectNoLedgerRow(artifactId string) {
	h.db.On("FindOne", models.CollectionMints, bson.M{"artifact_id": artifactId}, mock.Anything).Return(app.ErrNoDocuments).Once()
}

func (h *harness) expectPaymentClaim(artifactId string, err error) {
	h.db.On("FindOne", models.CollectionMints, bson.M{"payment_tx_id": testPaymentTx}, mock.Anything).Return(app.ErrNoDocuments).Once()
	h.db.On("UpsertOne", models.CollectionMints, bson.M{"artifact_id": artifactId}, mock.MatchedBy(func(update bson.M) bool {
		set := update["$set"].(bson.M)
		return set["status"] == models.MintStatusPending && set["payment_tx_id"] == testPaymentTx
	})).Return(err).Once()
}

func (h *harness) expectFailureRow(artifactId string) {
	h.db.On("UpsertOne", models.CollectionMints, bson.M{"artifact_id": artifactId}, mock.MatchedBy(func(update bson.M) bool {
		_, unclaimed := update["$unset"].(bson.M)["payment_tx_id"]
		return update["$set"].(bson.M)["status"] == models.MintStatusFailed && unclaimed
	})).Return(nil).Once()
}

func (h *harness) assertNoPipelineCalls(t *testing.T) {
	h.assets.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	h.pinner.AssertNotCalled(t, "PinAsset", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	h.pinner.AssertNotCalled(t, "PinMetadata", mock.Anything, mock.Anything, mock.Anything)
	h.minter.AssertNotCalled(t, "Mint", mock.Anything, mock.Anything, mock.Anything)
	h.reporter.AssertNotCalled(t, "Report", mock.Anything)
}

var freeMints = models.PaymentConfig{AllowFreeMints: true}

var paidMints = models.PaymentConfig{
	RequiredAmount:  "10000",
	TreasuryAddress: testTreasury,
}

func TestOrchestrator_ValidationBeforeNetwork(t *testing.T) {
	testCases := []struct {
		name   string
		config models.PaymentConfig
		req    models.MintRequest
	}{
		{name: "Missing artifact", config: freeMints, req: models.MintRequest{OwnerAddress: testOwner}},
		{name: "Blank artifact", config: freeMints, req: models.MintRequest{ArtifactId: "  ", OwnerAddress: testOwner}},
		{name: "Path artifact", config: freeMints, req: models.MintRequest{ArtifactId: "../abc", OwnerAddress: testOwner}},
		{name: "Missing owner", config: freeMints, req: models.MintRequest{ArtifactId: "abc123"}},
		{name: "Malformed owner", config: freeMints, req: models.MintRequest{ArtifactId: "abc123", OwnerAddress: "0xOwner"}},
		{name: "Payment required", config: paidMints, req: models.MintRequest{ArtifactId: "abc123", OwnerAddress: testOwner}},
		{name: "Malformed payment", config: paidMints, req: models.MintRequest{ArtifactId: "abc123", OwnerAddress: testOwner, PaymentTxId: "0x1234"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)

			outcome, err := h.orchestrator(t, tc.config).Mint(context.Background(), tc.req)

			assert.Nil(t, outcome)
			assert.True(t, errors.Is(err, models.ErrValidation), "got %v", err)
			assert.Equal(t, http.StatusBadRequest, models.HTTPStatus(err))
			h.db.AssertNotCalled(t, "XLock", mock.Anything)
			h.payments.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			h.assertNoPipelineCalls(t)
		})
	}
}

func TestOrchestrator_FreeMint(t *testing.T) {
	h := newHarness(t)
	req := models.MintRequest{ArtifactId: "abc123", OwnerAddress: testOwner}

	h.expectLock("abc123")
	h.expectNoLedgerRow("abc123")
	h.assets.On("Resolve", mock.Anything, "", testOwner, "abc123").
		Return(&storage.Asset{Data: assetBytes, MediaType: "image/png"}, nil).Once()
	h.pinner.On("PinAsset", mock.Anything, assetBytes, "abc123.png", "image/png").Return(assetPin, nil).Once()
	h.pinner.On("PinMetadata", mock.Anything, mock.MatchedBy(func(doc *ipfs.NFTMetadata) bool {
		return doc.Image == assetPin.GatewayURL && doc.Properties.PaymentToken == ipfs.PaymentTokenFree
	}), "abc123-metadata.json").Return(metaPin, nil).Once()
	h.minter.On("Mint", mock.Anything, testOwner, metaPin.GatewayURL).Return(&models.MintResult{
		TransactionId: testMintTx,
		TokenId:       "7",
		TokenURI:      metaPin.GatewayURL,
		BlockNumber:   500,
		Confirmations: 2,
	}, nil).Once()
	h.db.On("UpsertOne", models.CollectionMints, bson.M{"artifact_id": "abc123"}, mock.MatchedBy(func(update bson.M) bool {
		set := update["$set"].(bson.M)
		_, hasPayment := set["payment_tx_id"]
		return set["status"] == models.MintStatusSuccess && set["token_id"] == "7" && !hasPayment
	})).Return(nil).Once()
	h.reporter.On("Report", models.MintReport{
		MasterpieceId:    "abc123",
		MintTxHash:       testMintTx,
		TokenId:          "7",
		TokenURI:         metaPin.GatewayURL,
		IpfsImageHash:    "bafyimage",
		IpfsMetadataHash: "bafymeta",
	}).Once()

	outcome, err := h.orchestrator(t, freeMints).Mint(context.Background(), req)

	assert.NoError(t, err)
	assert.Equal(t, testMintTx, outcome.Result.TransactionId)
	assert.Equal(t, "7", outcome.Result.TokenId)
	assert.Equal(t, metaPin.GatewayURL, outcome.Result.TokenURI)
	assert.Equal(t, int64(2), outcome.Result.Confirmations)
	assert.Equal(t, assetPin, outcome.Pinned.Asset)
	assert.Equal(t, metaPin, outcome.Pinned.Metadata)
	assert.Nil(t, outcome.Payment)

	h.payments.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	h.assets.AssertExpectations(t)
	h.pinner.AssertExpectations(t)
	h.minter.AssertExpectations(t)
	h.reporter.AssertExpectations(t)
}

func transferReceipt(amount int64) *types.Receipt {
	data, _ := ethclient.ERC20ABI.Events["Transfer"].Inputs.NonIndexed().Pack(big.NewInt(amount))
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(90),
		Logs: []*types.Log{{
			Address: testToken,
			Topics: []common.Hash{
				ethclient.TransferEventTopic,
				common.BytesToHash(common.HexToAddress(testOwner).Bytes()),
				common.BytesToHash(common.HexToAddress(testTreasury).Bytes()),
			},
			Data: data,
		}},
	}
}

func TestOrchestrator_InsufficientPayment(t *testing.T) {
	h := newHarness(t)
	client := new(clientmocks.MockEthereumClient)
	client.On("GetTransactionReceipt", mock.Anything, testPaymentTx).Return(transferReceipt(9_999), nil)
	h.deps.Payments = eth.NewPaymentVerifier(client, testToken)

	h.expectLock("abc123")
	h.expectNoLedgerRow("abc123")
	h.expectPaymentClaim("abc123", nil)
	h.expectFailureRow("abc123")

	req := models.MintRequest{ArtifactId: "abc123", OwnerAddress: testOwner, PaymentTxId: testPaymentTx}
	outcome, err := h.orchestrator(t, paidMints).Mint(context.Background(), req)

	assert.Nil(t, outcome)
	assert.True(t, errors.Is(err, models.ErrInsufficientPayment))
	assert.Equal(t, http.StatusBadRequest, models.HTTPStatus(err))
	h.assertNoPipelineCalls(t)
	h.db.AssertExpectations(t)
}

func TestOrchestrator_PaidMint(t *testing.T) {
	h := newHarness(t)
	client := new(clientmocks.MockEthereumClient)
	client.On("GetTransactionReceipt", mock.Anything, testPaymentTx).Return(transferReceipt(10_000), nil)
	h.deps.Payments = eth.NewPaymentVerifier(client, testToken)

	h.expectLock("abc123")
	h.expectNoLedgerRow("abc123")
	h.expectPaymentClaim("abc123", nil)
	h.assets.On("Resolve", mock.Anything, "gs://bucket/art.png", testOwner, "abc123").
		Return(&storage.Asset{Data: assetBytes, MediaType: "image/png"}, nil)
	h.pinner.On("PinAsset", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assetPin, nil)
	h.pinner.On("PinMetadata", mock.Anything, mock.MatchedBy(func(doc *ipfs.NFTMetadata) bool {
		return doc.Properties.PaymentToken == "DEGEN"
	}), mock.Anything).Return(metaPin, nil)
	h.minter.On("Mint", mock.Anything, testOwner, metaPin.GatewayURL).
		Return(&models.MintResult{TransactionId: testMintTx, TokenId: "8", TokenURI: metaPin.GatewayURL, Confirmations: 2}, nil)
	h.db.On("UpsertOne", models.CollectionMints, bson.M{"artifact_id": "abc123"}, mock.MatchedBy(func(update bson.M) bool {
		set := update["$set"].(bson.M)
		return set["status"] == models.MintStatusSuccess && set["payment_tx_id"] == testPaymentTx
	})).Return(nil).Once()
	h.reporter.On("Report", mock.Anything).Once()

	req := models.MintRequest{ArtifactId: "abc123", OwnerAddress: testOwner, PaymentTxId: testPaymentTx, SourceImageRef: "gs://bucket/art.png"}
	outcome, err := h.orchestrator(t, paidMints).Mint(context.Background(), req)

	assert.NoError(t, err)
	assert.Equal(t, "10000", outcome.Payment.Amount)
	assert.True(t, outcome.Payment.Confirmed)
	h.db.AssertExpectations(t)
}

func TestOrchestrator_FailureAfterPinning(t *testing.T) {
	h := newHarness(t)

	h.expectLock("abc123")
	h.expectNoLedgerRow("abc123")
	h.assets.On("Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&storage.Asset{Data: assetBytes, MediaType: "image/png"}, nil)
	h.pinner.On("PinAsset", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assetPin, nil)
	h.pinner.On("PinMetadata", mock.Anything, mock.Anything, mock.Anything).Return(metaPin, nil)
	h.minter.On("Mint", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.Join(models.ErrMintSubmission, errors.New("nonce too low")))
	h.db.On("UpsertOne", models.CollectionMints, bson.M{"artifact_id": "abc123"}, mock.MatchedBy(func(update bson.M) bool {
		set := update["$set"].(bson.M)
		return set["status"] == models.MintStatusFailed && set["metadata_content_id"] == "bafymeta"
	})).Return(nil).Once()

	req := models.MintRequest{ArtifactId: "abc123", OwnerAddress: testOwner}
	outcome, err := h.orchestrator(t, freeMints).Mint(context.Background(), req)

	assert.Nil(t, outcome)
	assert.True(t, errors.Is(err, models.ErrMintSubmission))
	assert.Equal(t, http.StatusBadGateway, models.HTTPStatus(err))
	assert.True(t, IsRetryable(err))

	var pipelineErr *models.PipelineError
	assert.True(t, errors.As(err, &pipelineErr))
	assert.Equal(t, assetPin, pipelineErr.Pinned.Asset)
	assert.Equal(t, metaPin, pipelineErr.Pinned.Metadata)
	h.reporter.AssertNotCalled(t, "Report", mock.Anything)
}

func TestOrchestrator_MetadataPinFailure(t *testing.T) {
	h := newHarness(t)

	h.expectLock("abc123")
	h.expectNoLedgerRow("abc123")
	h.assets.On("Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&storage.Asset{Data: assetBytes, MediaType: "image/png"}, nil)
	h.pinner.On("PinAsset", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assetPin, nil)
	h.pinner.On("PinMetadata", mock.Anything, mock.Anything, mock.Anything).Return(nil, models.ErrPinning)
	h.db.On("UpsertOne", models.CollectionMints, mock.Anything, mock.Anything).Return(nil).Once()

	req := models.MintRequest{ArtifactId: "abc123", OwnerAddress: testOwner}
	_, err := h.orchestrator(t, freeMints).Mint(context.Background(), req)

	var pipelineErr *models.PipelineError
	assert.True(t, errors.As(err, &pipelineErr))
	assert.Equal(t, assetPin, pipelineErr.Pinned.Asset)
	assert.Nil(t, pipelineErr.Pinned.Metadata)
	h.minter.AssertNotCalled(t, "Mint", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_AssetNotFound(t *testing.T) {
	h := newHarness(t)

	h.expectLock("abc123")
	h.expectNoLedgerRow("abc123")
	h.assets.On("Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, models.ErrAssetNotFound)
	h.db.On("UpsertOne", models.CollectionMints, bson.M{"artifact_id": "abc123"}, mock.MatchedBy(func(update bson.M) bool {
		return update["$set"].(bson.M)["status"] == models.MintStatusFailed
	})).Return(nil).Once()

	req := models.MintRequest{ArtifactId: "abc123", OwnerAddress: testOwner}
	_, err := h.orchestrator(t, freeMints).Mint(context.Background(), req)

	assert.True(t, errors.Is(err, models.ErrAssetNotFound))
	var pipelineErr *models.PipelineError
	assert.False(t, errors.As(err, &pipelineErr))
	h.pinner.AssertNotCalled(t, "PinAsset", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_Exclusivity(t *testing.T) {
	req := models.MintRequest{ArtifactId: "abc123", OwnerAddress: testOwner, PaymentTxId: testPaymentTx}

	t.Run("In progress", func(t *testing.T) {
		h := newHarness(t)
		h.db.On("XLock", "mints/abc123").Return("", app.ErrResourceLocked).Once()

		_, err := h.orchestrator(t, paidMints).Mint(context.Background(), req)

		assert.True(t, errors.Is(err, models.ErrMintInProgress))
		assert.Equal(t, http.StatusConflict, models.HTTPStatus(err))
		h.payments.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Already minted", func(t *testing.T) {
		h := newHarness(t)
		h.expectLock("abc123")
		h.db.On("FindOne", models.CollectionMints, bson.M{"artifact_id": "abc123"}, mock.Anything).
			Run(func(args mock.Arguments) {
				mint := args.Get(2).(*models.Mint)
				mint.ArtifactId = "abc123"
				mint.Status = models.MintStatusSuccess
				mint.TransactionHash = testMintTx
			}).Return(nil).Once()

		_, err := h.orchestrator(t, paidMints).Mint(context.Background(), req)

		assert.True(t, errors.Is(err, models.ErrAlreadyMinted))
		h.payments.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Payment claimed by another artifact", func(t *testing.T) {
		h := newHarness(t)
		h.expectLock("abc123")
		h.expectNoLedgerRow("abc123")
		h.db.On("FindOne", models.CollectionMints, bson.M{"payment_tx_id": testPaymentTx}, mock.Anything).
			Run(func(args mock.Arguments) {
				mint := args.Get(2).(*models.Mint)
				mint.ArtifactId = "other"
				mint.Status = models.MintStatusSuccess
			}).Return(nil).Once()

		_, err := h.orchestrator(t, paidMints).Mint(context.Background(), req)

		assert.True(t, errors.Is(err, models.ErrPaymentAlreadyUsed))
		h.payments.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Payment claim rejected by index", func(t *testing.T) {
		h := newHarness(t)
		h.expectLock("abc123")
		h.expectNoLedgerRow("abc123")
		h.expectPaymentClaim("abc123", app.ErrDuplicateKey)

		_, err := h.orchestrator(t, paidMints).Mint(context.Background(), req)

		assert.True(t, errors.Is(err, models.ErrPaymentAlreadyUsed))
		assert.Equal(t, http.StatusBadRequest, models.HTTPStatus(err))
		h.payments.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		h.db.AssertExpectations(t)
	})
}

func TestOrchestrator_UnconfirmedPayment(t *testing.T) {
	h := newHarness(t)
	h.expectLock("abc123")
	h.expectNoLedgerRow("abc123")
	h.expectPaymentClaim("abc123", nil)
	h.expectFailureRow("abc123")
	h.payments.On("Verify", mock.Anything, testPaymentTx, big.NewInt(10_000), testTreasury).
		Return(&models.PaymentProof{TxId: testPaymentTx, Confirmed: false}, nil)

	req := models.MintRequest{ArtifactId: "abc123", OwnerAddress: testOwner, PaymentTxId: testPaymentTx}
	_, err := h.orchestrator(t, paidMints).Mint(context.Background(), req)

	assert.True(t, errors.Is(err, models.ErrPaymentNotFound))
	h.assertNoPipelineCalls(t)
	h.db.AssertExpectations(t)
}

func TestNewOrchestrator_Policy(t *testing.T) {
	_, err := NewOrchestrator(models.PaymentConfig{}, Deps{})
	assert.Error(t, err)

	_, err = NewOrchestrator(models.PaymentConfig{TreasuryAddress: testTreasury, RequiredAmount: "lots"}, Deps{})
	assert.Error(t, err)

	_, err = NewOrchestrator(paidMints, Deps{})
	assert.NoError(t, err)
}
