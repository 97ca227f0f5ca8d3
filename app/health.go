package app

import (
	"context"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	eth "github.com/pixlmixr/minting-service/eth/client"
	"github.com/pixlmixr/minting-service/models"
)

const (
	ServiceName    = "pixlmixr-minting-service"
	ServiceVersion = "1.0.0"

	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

// MinterIdentity is the part of the minter the health report shows.
type MinterIdentity interface {
	Strategy() string
	Address() string
}

type HealthService struct {
	stop     chan bool
	client   eth.ChainReader
	db       Database
	minter   MinterIdentity
	config   models.EthereumConfig
	hostname string
	interval time.Duration

	// OnBalance receives the gas account balance after each check.
	OnBalance func(address string, wei *big.Int)
}

var _ models.Service = &HealthService{}

func NewHealthService(client eth.ChainReader, db Database, minter MinterIdentity) *HealthService {
	log.Debug("[HEALTH] Initializing health")

	hostname, err := os.Hostname()
	if err != nil {
		log.Warn("[HEALTH] Error getting hostname: ", err)
	}

	return &HealthService{
		stop:     make(chan bool),
		client:   client,
		db:       db,
		minter:   minter,
		config:   Config.Ethereum,
		hostname: hostname,
		interval: time.Duration(Config.Health.IntervalSecs) * time.Second,
	}
}

// Report checks chain and database connectivity. Status is unhealthy when the chain is unreachable.
func (h *HealthService) Report(ctx context.Context) models.HealthReport {
	report := models.HealthReport{
		Status:    HealthStatusHealthy,
		Service:   ServiceName,
		Version:   ServiceVersion,
		Timestamp: time.Now().UTC(),
		Blockchain: models.BlockchainHealth{
			Chain:   h.config.ChainName,
			ChainId: h.config.ChainID,
		},
		Minter: models.MinterHealth{
			Strategy: h.minter.Strategy(),
			Address:  h.minter.Address(),
		},
	}

	blockNumber, err := h.client.GetBlockNumber(ctx)
	if err != nil {
		log.Warn("[HEALTH] Error fetching block number: ", err)
		report.Status = HealthStatusUnhealthy
		report.Blockchain.Error = err.Error()
	} else {
		report.Blockchain.Connected = true
		report.Blockchain.BlockNumber = blockNumber
	}

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			log.Warn("[HEALTH] Error pinging database: ", err)
			report.Database.Error = err.Error()
		} else {
			report.Database.Connected = true
		}
	}

	if address := report.Minter.Address; report.Blockchain.Connected && common.IsHexAddress(address) {
		balance, err := h.client.GetBalance(ctx, common.HexToAddress(address))
		if err != nil {
			log.Warn("[HEALTH] Error fetching minter balance: ", err)
		} else {
			report.Minter.Balance = balance.String()
			if h.OnBalance != nil {
				h.OnBalance(address, balance)
			}
		}
	}

	return report
}

func (h *HealthService) PostHealth() bool {
	log.Debug("[HEALTH] Posting health")
	report := h.Report(context.Background())

	filter := bson.M{
		"minter_address": report.Minter.Address,
		"hostname":       h.hostname,
	}
	update := bson.M{
		"$set": models.Health{
			MinterAddress: report.Minter.Address,
			Hostname:      h.hostname,
			BlockNumber:   report.Blockchain.BlockNumber,
			Healthy:       report.Status == HealthStatusHealthy,
			CreatedAt:     time.Now(),
		},
	}

	err := h.db.UpsertOne(models.CollectionHealthChecks, filter, update)
	if err != nil {
		log.Error("[HEALTH] Error posting health: ", err)
		return false
	}
	return true
}

func (h *HealthService) Start() {
	log.Debug("[HEALTH] Starting health")
	stop := false
	for !stop {
		h.PostHealth()

		log.Debug("[HEALTH] Sleeping for ", h.interval)
		select {
		case <-h.stop:
			stop = true
			log.Debug("[HEALTH] Stopped health")
		case <-time.After(h.interval):
		}
	}
}

func (h *HealthService) Stop() {
	log.Debug("[HEALTH] Stopping health")
	h.stop <- true
}
