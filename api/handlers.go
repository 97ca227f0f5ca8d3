package api

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/pixlmixr/minting-service/mint"
	"github.com/pixlmixr/minting-service/models"
)

// TokenReader reads ownership straight from the NFT contract.
type TokenReader interface {
	Address() common.Address
	OwnerOf(ctx context.Context, tokenId *big.Int) (common.Address, error)
	TokenURI(ctx context.Context, tokenId *big.Int) (string, error)
}

type HealthReporter interface {
	Report(ctx context.Context) models.HealthReport
}

type Handlers struct {
	orchestrator mint.Orchestrator
	tokens       TokenReader
	health       HealthReporter
	chainName    string
	explorerURL  string
	readTimeout  time.Duration
}

func NewHandlers(orchestrator mint.Orchestrator, tokens TokenReader, health HealthReporter, config models.EthereumConfig) *Handlers {
	return &Handlers{
		orchestrator: orchestrator,
		tokens:       tokens,
		health:       health,
		chainName:    config.ChainName,
		explorerURL:  strings.TrimRight(config.ExplorerURL, "/"),
		readTimeout:  time.Duration(config.RPCTimeoutMillis) * time.Millisecond,
	}
}

type ipfsLinks struct {
	ImageURL     string `json:"imageUrl"`
	ImageHash    string `json:"imageHash"`
	MetadataURL  string `json:"metadataUrl"`
	MetadataHash string `json:"metadataHash"`
}

type chainLinks struct {
	Chain    string `json:"chain"`
	Contract string `json:"contract"`
	Explorer string `json:"explorer"`
}

type MintResponse struct {
	Success       bool                 `json:"success"`
	TransactionId string               `json:"transactionId"`
	TokenId       string               `json:"tokenId"`
	TokenURI      string               `json:"tokenURI"`
	BlockNumber   uint64               `json:"blockNumber"`
	Confirmations int64                `json:"confirmations"`
	IPFS          ipfsLinks            `json:"ipfs"`
	Blockchain    chainLinks           `json:"blockchain"`
	Payment       *models.PaymentProof `json:"payment,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
}

type pinnedLinks struct {
	Image    string `json:"image,omitempty"`
	Metadata string `json:"metadata,omitempty"`
}

type ErrorResponse struct {
	Error     string       `json:"error"`
	Message   string       `json:"message"`
	Retryable bool         `json:"retryable"`
	RequestId string       `json:"requestId,omitempty"`
	IPFSData  *pinnedLinks `json:"ipfsData,omitempty"`
}

type VerifyResponse struct {
	TokenId  string `json:"tokenId"`
	Owner    string `json:"owner"`
	TokenURI string `json:"tokenURI"`
	Contract string `json:"contract"`
	Explorer string `json:"explorer"`
}

func (h *Handlers) errorResponse(c *gin.Context, err error) {
	resp := ErrorResponse{
		Error:     models.ErrorCode(err),
		Message:   err.Error(),
		Retryable: mint.IsRetryable(err),
		RequestId: c.GetString(requestIdKey),
	}

	var pipelineErr *models.PipelineError
	if errors.As(err, &pipelineErr) {
		links := &pinnedLinks{}
		if pipelineErr.Pinned.Asset != nil {
			links.Image = pipelineErr.Pinned.Asset.GatewayURL
		}
		if pipelineErr.Pinned.Metadata != nil {
			links.Metadata = pipelineErr.Pinned.Metadata.GatewayURL
		}
		resp.IPFSData = links
	}

	c.JSON(models.HTTPStatus(err), resp)
}

func (h *Handlers) Mint(c *gin.Context) {
	var req models.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, fmt.Errorf("%w: invalid request body: %s", models.ErrValidation, err.Error()))
		return
	}

	logger := log.WithFields(log.Fields{
		"request_id":  c.GetString(requestIdKey),
		"artifact_id": req.ArtifactId,
	})

	// a client disconnect must not abandon a submitted transaction
	ctx := context.WithoutCancel(c.Request.Context())

	outcome, err := h.orchestrator.Mint(ctx, req)
	if err != nil {
		logger.Warn("[API] Mint failed: ", err)
		h.errorResponse(c, err)
		return
	}

	result := outcome.Result
	c.JSON(http.StatusOK, MintResponse{
		Success:       true,
		TransactionId: result.TransactionId,
		TokenId:       result.TokenId,
		TokenURI:      result.TokenURI,
		BlockNumber:   result.BlockNumber,
		Confirmations: result.Confirmations,
		IPFS: ipfsLinks{
			ImageURL:     outcome.Pinned.Asset.GatewayURL,
			ImageHash:    outcome.Pinned.Asset.ContentId,
			MetadataURL:  outcome.Pinned.Metadata.GatewayURL,
			MetadataHash: outcome.Pinned.Metadata.ContentId,
		},
		Blockchain: chainLinks{
			Chain:    h.chainName,
			Contract: h.tokens.Address().Hex(),
			Explorer: h.explorerURL + "/tx/" + result.TransactionId,
		},
		Payment:   outcome.Payment,
		Timestamp: time.Now().UTC(),
	})
}

func isRevert(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

func (h *Handlers) Verify(c *gin.Context) {
	param := c.Param("tokenId")
	tokenId, ok := new(big.Int).SetString(param, 10)
	if !ok || tokenId.Sign() < 0 {
		h.errorResponse(c, fmt.Errorf("%w: tokenId %q is not a number", models.ErrValidation, param))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.readTimeout)
	defer cancel()

	owner, err := h.tokens.OwnerOf(ctx, tokenId)
	if err != nil {
		if isRevert(err) {
			err = fmt.Errorf("%w: token %s", models.ErrTokenNotFound, tokenId.String())
		}
		h.errorResponse(c, err)
		return
	}

	tokenURI, err := h.tokens.TokenURI(ctx, tokenId)
	if err != nil {
		h.errorResponse(c, err)
		return
	}

	contract := h.tokens.Address().Hex()
	c.JSON(http.StatusOK, VerifyResponse{
		TokenId:  tokenId.String(),
		Owner:    owner.Hex(),
		TokenURI: tokenURI,
		Contract: contract,
		Explorer: fmt.Sprintf("%s/token/%s?a=%s", h.explorerURL, contract, tokenId.String()),
	})
}

func (h *Handlers) Health(c *gin.Context) {
	report := h.health.Report(c.Request.Context())
	status := http.StatusOK
	if !report.Blockchain.Connected {
		status = http.StatusInternalServerError
	}
	c.JSON(status, report)
}
