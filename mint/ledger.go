package mint

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/pixlmixr/minting-service/app"
	"github.com/pixlmixr/minting-service/models"
)

// Ledger remembers the last outcome per artifact.
type Ledger interface {
	Find(artifactId string) (*models.Mint, error)
	FindByPayment(paymentTxId string) (*models.Mint, error)
	ClaimPayment(req models.MintRequest) error
	RecordSuccess(req models.MintRequest, outcome *models.MintOutcome) error
	RecordFailure(req models.MintRequest, pinned models.PinnedArtifacts, cause error) error
}

type mongoLedger struct {
	db app.Database
}

var _ Ledger = &mongoLedger{}

func NewLedger(db app.Database) Ledger {
	return &mongoLedger{db: db}
}

func (l *mongoLedger) findOne(filter bson.M) (*models.Mint, error) {
	var mint models.Mint
	err := l.db.FindOne(models.CollectionMints, filter, &mint)
	if errors.Is(err, app.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mint, nil
}

func (l *mongoLedger) Find(artifactId string) (*models.Mint, error) {
	return l.findOne(bson.M{"artifact_id": artifactId})
}

func (l *mongoLedger) FindByPayment(paymentTxId string) (*models.Mint, error) {
	return l.findOne(bson.M{"payment_tx_id": paymentTxId})
}

func contentId(c *models.PinnedContent) string {
	if c == nil {
		return ""
	}
	return c.ContentId
}

// ClaimPayment marks the artifact pending on its payment transaction. The unique
// payment_tx_id index rejects a payment already held by another artifact.
func (l *mongoLedger) ClaimPayment(req models.MintRequest) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"owner_address": req.OwnerAddress,
			"status":        models.MintStatusPending,
			"payment_tx_id": req.PaymentTxId,
			"error":         "",
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}

	err := l.db.UpsertOne(models.CollectionMints, bson.M{"artifact_id": req.ArtifactId}, update)
	if errors.Is(err, app.ErrDuplicateKey) {
		return fmt.Errorf("%w: %s", models.ErrPaymentAlreadyUsed, req.PaymentTxId)
	}
	return err
}

func (l *mongoLedger) RecordSuccess(req models.MintRequest, outcome *models.MintOutcome) error {
	now := time.Now()
	set := bson.M{
		"owner_address":       req.OwnerAddress,
		"status":              models.MintStatusSuccess,
		"transaction_hash":    outcome.Result.TransactionId,
		"token_id":            outcome.Result.TokenId,
		"token_uri":           outcome.Result.TokenURI,
		"image_content_id":    contentId(outcome.Pinned.Asset),
		"metadata_content_id": contentId(outcome.Pinned.Metadata),
		"error":               "",
		"updated_at":          now,
	}
	if req.PaymentTxId != "" {
		set["payment_tx_id"] = req.PaymentTxId
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": now},
	}

	err := l.db.UpsertOne(models.CollectionMints, bson.M{"artifact_id": req.ArtifactId}, update)
	if errors.Is(err, app.ErrDuplicateKey) {
		return fmt.Errorf("%w: %s", models.ErrPaymentAlreadyUsed, req.PaymentTxId)
	}
	return err
}

// RecordFailure leaves the payment unclaimed so it can be used on retry.
func (l *mongoLedger) RecordFailure(req models.MintRequest, pinned models.PinnedArtifacts, cause error) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"owner_address":       req.OwnerAddress,
			"status":              models.MintStatusFailed,
			"image_content_id":    contentId(pinned.Asset),
			"metadata_content_id": contentId(pinned.Metadata),
			"error":               cause.Error(),
			"updated_at":          now,
		},
		"$unset":       bson.M{"payment_tx_id": ""},
		"$setOnInsert": bson.M{"created_at": now},
	}
	return l.db.UpsertOne(models.CollectionMints, bson.M{"artifact_id": req.ArtifactId}, update)
}
