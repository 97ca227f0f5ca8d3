package eth

import (
	"context"
	"fmt"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/timeout"

	"github.com/pixlmixr/minting-service/eth/util"
	"github.com/pixlmixr/minting-service/models"
)

// engine transaction states
const (
	EngineStatusQueued    = "queued"
	EngineStatusSent      = "sent"
	EngineStatusMined     = "mined"
	EngineStatusErrored   = "errored"
	EngineStatusCancelled = "cancelled"
)

// EngineMinter delegates signing, gas and nonce handling to a managed
// transaction service and tracks the queued transaction until it is mined.
type EngineMinter struct {
	cli           *gentleman.Client
	waiter        *ConfirmationWaiter
	contract      ethcommon.Address
	chain         string
	walletAddress string
	pollInterval  time.Duration
	queueTimeout  time.Duration
}

var _ ChainMinter = &EngineMinter{}

type engineMintRequest struct {
	Receiver string `json:"receiver"`
	Metadata string `json:"metadata"`
}

type engineQueueResponse struct {
	Result struct {
		QueueId string `json:"queueId"`
	} `json:"result"`
}

type engineStatusResponse struct {
	Result struct {
		QueueId         string `json:"queueId"`
		Status          string `json:"status"`
		TransactionHash string `json:"transactionHash"`
		ErrorMessage    string `json:"errorMessage"`
	} `json:"result"`
}

func NewEngineMinter(waiter *ConfirmationWaiter, config models.EngineConfig, ethConfig models.EthereumConfig) *EngineMinter {
	cli := gentleman.New().URL(strings.TrimRight(config.URL, "/"))
	cli.Use(timeout.Request(time.Duration(config.TimeoutMillis) * time.Millisecond))
	cli.SetHeader("Authorization", "Bearer "+config.SecretKey)
	cli.SetHeader("x-backend-wallet-address", config.BackendWalletAddress)

	return &EngineMinter{
		cli:           cli,
		waiter:        waiter,
		contract:      ethcommon.HexToAddress(ethConfig.NFTContractAddress),
		chain:         config.Chain,
		walletAddress: config.BackendWalletAddress,
		pollInterval:  time.Duration(config.PollMillis) * time.Millisecond,
		queueTimeout:  time.Duration(ethConfig.ConfirmationTimeoutMillis) * time.Millisecond,
	}
}

func (m *EngineMinter) Strategy() string {
	return models.MinterStrategyEngine
}

func (m *EngineMinter) Address() string {
	return m.walletAddress
}

func (m *EngineMinter) Mint(ctx context.Context, ownerAddress string, tokenURI string) (*models.MintResult, error) {
	logger := log.WithFields(log.Fields{"owner": ownerAddress, "strategy": m.Strategy()})

	queueId, err := m.enqueue(ownerAddress, tokenURI)
	if err != nil {
		return nil, err
	}
	logger.WithField("queue_id", queueId).Info("[ENGINE] Mint queued")

	txHash, err := m.waitMined(ctx, queueId)
	if err != nil {
		return nil, err
	}
	logger.WithField("tx_hash", txHash).Info("[ENGINE] Mint mined")

	receipt, confirmations, err := m.waiter.Wait(ctx, txHash)
	if err != nil {
		return nil, err
	}

	return &models.MintResult{
		TransactionId: txHash,
		TokenId:       util.ExtractTokenId(receipt, m.contract),
		TokenURI:      tokenURI,
		BlockNumber:   receipt.BlockNumber.Uint64(),
		Confirmations: confirmations,
	}, nil
}

func (m *EngineMinter) enqueue(ownerAddress string, tokenURI string) (string, error) {
	req := m.cli.Post()
	req.AddPath(fmt.Sprintf("/contract/%s/%s/erc721/mint-to", m.chain, m.contract.Hex()))
	req.JSON(engineMintRequest{Receiver: ownerAddress, Metadata: tokenURI})

	resp, err := req.Send()
	if err != nil {
		return "", fmt.Errorf("%w: engine request failed: %s", models.ErrMintSubmission, err.Error())
	}
	defer resp.Close()
	if !resp.Ok {
		return "", fmt.Errorf("%w: engine responded %d: %s", models.ErrMintSubmission, resp.StatusCode, resp.String())
	}

	queued := engineQueueResponse{}
	if err := resp.JSON(&queued); err != nil {
		return "", fmt.Errorf("%w: invalid engine response: %s", models.ErrMintSubmission, err.Error())
	}
	if queued.Result.QueueId == "" {
		return "", fmt.Errorf("%w: engine returned no queue id", models.ErrMintSubmission)
	}
	return queued.Result.QueueId, nil
}

func (m *EngineMinter) status(queueId string) (*engineStatusResponse, error) {
	req := m.cli.Get()
	req.AddPath(fmt.Sprintf("/transaction/status/%s", queueId))

	resp, err := req.Send()
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	if !resp.Ok {
		return nil, fmt.Errorf("engine responded %d: %s", resp.StatusCode, resp.String())
	}

	status := &engineStatusResponse{}
	err = resp.JSON(status)
	return status, err
}

func (m *EngineMinter) waitMined(ctx context.Context, queueId string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.queueTimeout)
	defer cancel()

	for {
		status, err := m.status(queueId)
		if err != nil {
			log.Warn("[ENGINE] Error fetching transaction status: ", err)
		} else {
			switch status.Result.Status {
			case EngineStatusMined:
				if status.Result.TransactionHash == "" {
					return "", fmt.Errorf("%w: mined without transaction hash", models.ErrMintSubmission)
				}
				return status.Result.TransactionHash, nil
			case EngineStatusErrored:
				if isRevert(status.Result.ErrorMessage) {
					return "", fmt.Errorf("%w: %s", models.ErrMintExecution, status.Result.ErrorMessage)
				}
				return "", fmt.Errorf("%w: %s", models.ErrMintSubmission, status.Result.ErrorMessage)
			case EngineStatusCancelled:
				return "", fmt.Errorf("%w: engine cancelled transaction %s", models.ErrMintSubmission, queueId)
			}
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: queued transaction %s not mined: %s", models.ErrMintSubmission, queueId, ctx.Err().Error())
		case <-time.After(m.pollInterval):
		}
	}
}
