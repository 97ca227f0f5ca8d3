package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CollectionHealthChecks = "healthchecks"
)

// Health is the heartbeat row written periodically by each instance.
type Health struct {
	Id            *primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	MinterAddress string              `bson:"minter_address" json:"minter_address"`
	Hostname      string              `bson:"hostname" json:"hostname"`
	BlockNumber   uint64              `bson:"block_number" json:"block_number"`
	Healthy       bool                `bson:"healthy" json:"healthy"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
}

type HealthReport struct {
	Status     string           `json:"status"`
	Service    string           `json:"service"`
	Version    string           `json:"version"`
	Blockchain BlockchainHealth `json:"blockchain"`
	Database   DatabaseHealth   `json:"database"`
	Minter     MinterHealth     `json:"minter"`
	Timestamp  time.Time        `json:"timestamp"`
}

type BlockchainHealth struct {
	Connected   bool   `json:"connected"`
	Chain       string `json:"chain"`
	ChainId     string `json:"chainId"`
	BlockNumber uint64 `json:"blockNumber"`
	Error       string `json:"error,omitempty"`
}

type DatabaseHealth struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

type MinterHealth struct {
	Strategy string `json:"strategy"`
	Address  string `json:"address,omitempty"`
	Balance  string `json:"balance,omitempty"`
}
