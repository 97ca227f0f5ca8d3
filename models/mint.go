package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CollectionMints = "mints"
)

// types of mint status
const (
	MintStatusPending = "pending"
	MintStatusSuccess = "success"
	MintStatusFailed  = "failed"
)

// UnknownTokenId is reported when the minted token id could not be read from the receipt.
const UnknownTokenId = "unknown"

type MintRequest struct {
	ArtifactId          string       `json:"artifactId"`
	OwnerAddress        string       `json:"ownerAddress"`
	PaymentTxId         string       `json:"paymentTxId,omitempty"`
	SourceImageRef      string       `json:"sourceImageRef,omitempty"`
	DescriptiveMetadata MintMetadata `json:"descriptiveMetadata,omitempty"`
}

type MintMetadata struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Styles      []string `json:"styles,omitempty"`
	HighRes     bool     `json:"highRes,omitempty"`
}

type PaymentProof struct {
	TxId             string `json:"txId"`
	SenderAddress    string `json:"senderAddress"`
	RecipientAddress string `json:"recipientAddress"`
	Amount           string `json:"amount"`
	Confirmed        bool   `json:"confirmed"`
}

type PinnedContent struct {
	ContentId  string `json:"contentId"`
	GatewayURL string `json:"gatewayUrl"`
	MediaType  string `json:"mediaType"`
}

// PinnedArtifacts is what has been published for one request so far.
type PinnedArtifacts struct {
	Asset    *PinnedContent `json:"asset,omitempty"`
	Metadata *PinnedContent `json:"metadata,omitempty"`
}

type MintResult struct {
	TransactionId string `json:"transactionId"`
	TokenId       string `json:"tokenId"`
	TokenURI      string `json:"tokenURI"`
	BlockNumber   uint64 `json:"blockNumber"`
	Confirmations int64  `json:"confirmations"`
}

// MintOutcome is the orchestrator's successful return value.
type MintOutcome struct {
	Result  MintResult      `json:"result"`
	Pinned  PinnedArtifacts `json:"pinned"`
	Payment *PaymentProof   `json:"payment,omitempty"`
}

// Mint is the ledger row kept per artifact.
type Mint struct {
	Id                *primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	ArtifactId        string              `bson:"artifact_id" json:"artifact_id"`
	OwnerAddress      string              `bson:"owner_address" json:"owner_address"`
	PaymentTxId       string              `bson:"payment_tx_id,omitempty" json:"payment_tx_id,omitempty"`
	Status            string              `bson:"status" json:"status"`
	TransactionHash   string              `bson:"transaction_hash,omitempty" json:"transaction_hash,omitempty"`
	TokenId           string              `bson:"token_id,omitempty" json:"token_id,omitempty"`
	TokenURI          string              `bson:"token_uri,omitempty" json:"token_uri,omitempty"`
	ImageContentId    string              `bson:"image_content_id,omitempty" json:"image_content_id,omitempty"`
	MetadataContentId string              `bson:"metadata_content_id,omitempty" json:"metadata_content_id,omitempty"`
	Error             string              `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt         time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `bson:"updated_at" json:"updated_at"`
}

// MintReport is the payload sent to the persistence webhook.
type MintReport struct {
	MasterpieceId    string `json:"masterpieceId"`
	MintTxHash       string `json:"mintTxHash"`
	TokenId          string `json:"tokenId"`
	TokenURI         string `json:"tokenURI"`
	IpfsImageHash    string `json:"ipfsImageHash"`
	IpfsMetadataHash string `json:"ipfsMetadataHash"`
}
