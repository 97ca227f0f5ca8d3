package mint

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	log "github.com/sirupsen/logrus"

	"github.com/pixlmixr/minting-service/eth"
	"github.com/pixlmixr/minting-service/ipfs"
	"github.com/pixlmixr/minting-service/models"
	"github.com/pixlmixr/minting-service/reporter"
	"github.com/pixlmixr/minting-service/storage"
)

const txHashLength = 32

type Orchestrator interface {
	Mint(ctx context.Context, req models.MintRequest) (*models.MintOutcome, error)
}

type Deps struct {
	Guard    Guard
	Ledger   Ledger
	Payments eth.PaymentVerifier
	Assets   storage.AssetResolver
	Pinner   ipfs.ContentPinner
	Metadata *ipfs.MetadataBuilder
	Minter   eth.ChainMinter
	Reporter reporter.ResultReporter
}

// paymentPolicy is fixed at startup.
type paymentPolicy struct {
	requiredAmount *big.Int
	treasury       string
	allowFree      bool
}

func (p paymentPolicy) enabled() bool {
	return p.treasury != ""
}

type orchestrator struct {
	Deps
	policy paymentPolicy
}

var _ Orchestrator = &orchestrator{}

func NewOrchestrator(config models.PaymentConfig, deps Deps) (Orchestrator, error) {
	policy := paymentPolicy{
		treasury:  config.TreasuryAddress,
		allowFree: config.AllowFreeMints,
	}
	if policy.enabled() {
		amount, ok := new(big.Int).SetString(config.RequiredAmount, 10)
		if !ok || amount.Sign() < 0 {
			return nil, fmt.Errorf("invalid required payment amount %q", config.RequiredAmount)
		}
		policy.requiredAmount = amount
	}
	if !policy.enabled() && !policy.allowFree {
		return nil, fmt.Errorf("payment treasury is required when free mints are not allowed")
	}
	return &orchestrator{Deps: deps, policy: policy}, nil
}

func (o *orchestrator) validate(req models.MintRequest) error {
	if strings.TrimSpace(req.ArtifactId) == "" {
		return fmt.Errorf("%w: artifactId is required", models.ErrValidation)
	}
	if strings.ContainsAny(req.ArtifactId, "/\\") || strings.Contains(req.ArtifactId, "..") {
		return fmt.Errorf("%w: artifactId contains path characters", models.ErrValidation)
	}
	if strings.TrimSpace(req.OwnerAddress) == "" {
		return fmt.Errorf("%w: ownerAddress is required", models.ErrValidation)
	}
	if !common.IsHexAddress(req.OwnerAddress) {
		return fmt.Errorf("%w: ownerAddress %q is not an address", models.ErrValidation, req.OwnerAddress)
	}

	if req.PaymentTxId == "" {
		if !o.policy.allowFree {
			return fmt.Errorf("%w: paymentTxId is required", models.ErrValidation)
		}
		return nil
	}
	if b, err := hexutil.Decode(req.PaymentTxId); err != nil || len(b) != txHashLength {
		return fmt.Errorf("%w: paymentTxId %q is not a transaction hash", models.ErrValidation, req.PaymentTxId)
	}
	return nil
}

func (o *orchestrator) Mint(ctx context.Context, req models.MintRequest) (outcome *models.MintOutcome, err error) {
	defer func() { metricOutcome(err) }()

	if err := o.validate(req); err != nil {
		return nil, err
	}

	logger := log.WithFields(log.Fields{
		"artifact_id": req.ArtifactId,
		"owner":       req.OwnerAddress,
	})
	logger.Info("[MINT] Mint requested")

	if req.PaymentTxId != "" && !o.policy.enabled() {
		logger.Warn("[MINT] No payment treasury configured, ignoring payment transaction")
		req.PaymentTxId = ""
	}

	release, err := o.Guard.Acquire(req)
	if err != nil {
		return nil, err
	}
	defer release()

	// every failure from here on also releases the payment claim
	pinned := models.PinnedArtifacts{}
	fail := func(err error) (*models.MintOutcome, error) {
		logger.Error("[MINT] Mint failed: ", err)
		if lerr := o.Ledger.RecordFailure(req, pinned, err); lerr != nil {
			logger.Error("[MINT] Error recording failed mint: ", lerr)
		}
		if pinned.Asset == nil {
			return nil, err
		}
		return nil, &models.PipelineError{Err: err, Pinned: pinned}
	}

	payment, err := o.verifyPayment(ctx, req)
	if err != nil {
		logger.Warn("[MINT] Payment rejected: ", err)
		return fail(err)
	}

	start := time.Now()
	asset, err := o.Assets.Resolve(ctx, req.SourceImageRef, req.OwnerAddress, req.ArtifactId)
	metricStage(StageAsset, start)
	if err != nil {
		logger.Warn("[MINT] Asset unavailable: ", err)
		return fail(err)
	}

	start = time.Now()
	pinned.Asset, err = o.Pinner.PinAsset(ctx, asset.Data, ipfs.AssetFilename(req.ArtifactId), asset.MediaType)
	metricStage(StagePinAsset, start)
	if err != nil {
		return fail(err)
	}

	start = time.Now()
	doc := o.Metadata.Build(req, pinned.Asset.GatewayURL)
	pinned.Metadata, err = o.Pinner.PinMetadata(ctx, doc, ipfs.MetadataFilename(req.ArtifactId))
	metricStage(StagePinMeta, start)
	if err != nil {
		return fail(err)
	}
	logger.WithField("token_uri", pinned.Metadata.GatewayURL).Info("[MINT] Content pinned")

	start = time.Now()
	result, err := o.Minter.Mint(ctx, req.OwnerAddress, pinned.Metadata.GatewayURL)
	metricStage(StageMint, start)
	if err != nil {
		return fail(err)
	}

	outcome = &models.MintOutcome{
		Result:  *result,
		Pinned:  pinned,
		Payment: payment,
	}
	logger.WithFields(log.Fields{
		"tx_hash":  result.TransactionId,
		"token_id": result.TokenId,
	}).Info("[MINT] Token minted")

	if err := o.Ledger.RecordSuccess(req, outcome); err != nil {
		logger.Error("[MINT] Error recording mint: ", err)
	}

	o.Reporter.Report(models.MintReport{
		MasterpieceId:    req.ArtifactId,
		MintTxHash:       result.TransactionId,
		TokenId:          result.TokenId,
		TokenURI:         result.TokenURI,
		IpfsImageHash:    pinned.Asset.ContentId,
		IpfsMetadataHash: pinned.Metadata.ContentId,
	})

	return outcome, nil
}

func (o *orchestrator) verifyPayment(ctx context.Context, req models.MintRequest) (*models.PaymentProof, error) {
	if req.PaymentTxId == "" {
		return nil, nil
	}

	start := time.Now()
	defer metricStage(StagePayment, start)

	proof, err := o.Payments.Verify(ctx, req.PaymentTxId, o.policy.requiredAmount, o.policy.treasury)
	if err != nil {
		return nil, err
	}
	if !proof.Confirmed {
		return nil, fmt.Errorf("%w: payment %s is not mined yet", models.ErrPaymentNotFound, req.PaymentTxId)
	}
	return proof, nil
}

// IsRetryable reports whether the same request may succeed when sent again.
func IsRetryable(err error) bool {
	return errors.Is(err, models.ErrAssetFetch) ||
		errors.Is(err, models.ErrAssetNotFound) ||
		errors.Is(err, models.ErrPinning) ||
		errors.Is(err, models.ErrMintSubmission) ||
		errors.Is(err, models.ErrMintInProgress)
}
