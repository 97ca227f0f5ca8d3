package mint

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/pixlmixr/minting-service/app"
	"github.com/pixlmixr/minting-service/models"
)

// Guard grants one request at a time exclusive use of an artifact and,
// when one is given, of its payment transaction.
type Guard interface {
	Acquire(req models.MintRequest) (release func(), err error)
}

type ArtifactGuard struct {
	db     app.Database
	ledger Ledger
}

var _ Guard = &ArtifactGuard{}

func NewArtifactGuard(db app.Database, ledger Ledger) *ArtifactGuard {
	return &ArtifactGuard{db: db, ledger: ledger}
}

func lockResource(artifactId string) string {
	return models.CollectionMints + "/" + artifactId
}

func (g *ArtifactGuard) Acquire(req models.MintRequest) (func(), error) {
	logger := log.WithField("artifact_id", req.ArtifactId)

	lockId, err := g.db.XLock(lockResource(req.ArtifactId))
	if errors.Is(err, app.ErrResourceLocked) {
		return nil, fmt.Errorf("%w: %s", models.ErrMintInProgress, req.ArtifactId)
	}
	if err != nil {
		return nil, fmt.Errorf("error locking artifact: %w", err)
	}
	logger.Debug("[MINT] Locked artifact")

	release := func() {
		if err := g.db.Unlock(lockId); err != nil {
			logger.Error("[MINT] Error unlocking artifact: ", err)
			return
		}
		logger.Debug("[MINT] Unlocked artifact")
	}

	if err := g.check(req); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

func (g *ArtifactGuard) check(req models.MintRequest) error {
	existing, err := g.ledger.Find(req.ArtifactId)
	if err != nil {
		return fmt.Errorf("error reading mint ledger: %w", err)
	}
	if existing != nil && existing.Status == models.MintStatusSuccess {
		return fmt.Errorf("%w: %s in %s", models.ErrAlreadyMinted, req.ArtifactId, existing.TransactionHash)
	}

	if req.PaymentTxId == "" {
		return nil
	}
	claimed, err := g.ledger.FindByPayment(req.PaymentTxId)
	if err != nil {
		return fmt.Errorf("error reading mint ledger: %w", err)
	}
	if claimed != nil && claimed.ArtifactId != req.ArtifactId {
		return fmt.Errorf("%w: claimed by %s", models.ErrPaymentAlreadyUsed, claimed.ArtifactId)
	}

	if err := g.ledger.ClaimPayment(req); err != nil {
		if errors.Is(err, models.ErrPaymentAlreadyUsed) {
			return err
		}
		return fmt.Errorf("error claiming payment: %w", err)
	}
	log.WithField("artifact_id", req.ArtifactId).Debug("[MINT] Claimed payment ", req.PaymentTxId)
	return nil
}
