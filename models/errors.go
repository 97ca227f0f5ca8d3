package models

import (
	"errors"
	"net/http"
)

var (
	ErrValidation = errors.New("validation_failed")

	ErrPaymentNotFound     = errors.New("payment_not_found")
	ErrInsufficientPayment = errors.New("insufficient_payment")
	ErrWrongRecipient      = errors.New("wrong_payment_recipient")
	ErrPaymentAlreadyUsed  = errors.New("payment_already_used")

	ErrAssetNotFound = errors.New("asset_not_found")
	ErrAssetFetch    = errors.New("asset_fetch_failed")

	ErrPinning = errors.New("pinning_failed")

	ErrMintSubmission = errors.New("mint_submission_failed")
	ErrMintExecution  = errors.New("mint_execution_reverted")
	ErrMintInProgress = errors.New("mint_in_progress")
	ErrAlreadyMinted  = errors.New("already_minted")

	ErrReporting = errors.New("reporting_failed")

	ErrNotFound      = errors.New("not_found") // chain object not yet mined or absent
	ErrTokenNotFound = errors.New("token_not_found")
)

// PipelineError is returned by the orchestrator once content has been pinned,
// so the caller can retry without pinning again.
type PipelineError struct {
	Err    error
	Pinned PinnedArtifacts
}

func (e *PipelineError) Error() string {
	return e.Err.Error()
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the sentinel name carried by err, or "internal_error".
func ErrorCode(err error) string {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal_error"
}

var sentinels = []error{
	ErrValidation,
	ErrPaymentNotFound,
	ErrInsufficientPayment,
	ErrWrongRecipient,
	ErrPaymentAlreadyUsed,
	ErrAssetNotFound,
	ErrAssetFetch,
	ErrPinning,
	ErrMintSubmission,
	ErrMintExecution,
	ErrMintInProgress,
	ErrAlreadyMinted,
	ErrReporting,
	ErrTokenNotFound,
	ErrNotFound,
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrPaymentNotFound),
		errors.Is(err, ErrInsufficientPayment),
		errors.Is(err, ErrWrongRecipient),
		errors.Is(err, ErrPaymentAlreadyUsed):
		return http.StatusBadRequest
	case errors.Is(err, ErrAssetNotFound), errors.Is(err, ErrTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMintInProgress), errors.Is(err, ErrAlreadyMinted):
		return http.StatusConflict
	case errors.Is(err, ErrAssetFetch),
		errors.Is(err, ErrPinning),
		errors.Is(err, ErrMintSubmission):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
