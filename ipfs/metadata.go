package ipfs

import (
	"fmt"
	"time"

	"github.com/pixlmixr/minting-service/models"
)

const (
	PaymentTokenFree = "FREE"
	nameIdLength     = 8
)

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

type Properties struct {
	MasterpieceId string `json:"masterpieceId"`
	CreatedWith   string `json:"createdWith"`
	Blockchain    string `json:"blockchain"`
	PaymentToken  string `json:"paymentToken"`
}

// NFTMetadata is the ERC-721 metadata document a token URI resolves to.
type NFTMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
	Properties  Properties  `json:"properties"`
}

type MetadataBuilder struct {
	config       models.MetadataConfig
	blockchain   string
	paymentToken string
	now          func() time.Time
}

func NewMetadataBuilder(config models.MetadataConfig, chainName string, paymentTokenSymbol string) *MetadataBuilder {
	return &MetadataBuilder{
		config:       config,
		blockchain:   chainName,
		paymentToken: paymentTokenSymbol,
		now:          time.Now,
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Build links the document to imageURL, the gateway URL of the pinned asset.
func (b *MetadataBuilder) Build(req models.MintRequest, imageURL string) *NFTMetadata {
	meta := req.DescriptiveMetadata

	name := meta.Name
	if name == "" {
		shortId := req.ArtifactId
		if len(shortId) > nameIdLength {
			shortId = shortId[:nameIdLength]
		}
		name = fmt.Sprintf("%s #%s", b.config.NamePrefix, shortId)
	}

	description := meta.Description
	if description == "" {
		description = b.config.DefaultDescription
	}

	attributes := []Attribute{
		{TraitType: "Artist", Value: req.OwnerAddress},
		{TraitType: "Creation Date", Value: b.now().UTC().Format(time.RFC3339)},
		{TraitType: "High Resolution", Value: yesNo(meta.HighRes)},
	}
	for _, style := range meta.Styles {
		attributes = append(attributes, Attribute{TraitType: "Style", Value: style})
	}

	paymentToken := PaymentTokenFree
	if req.PaymentTxId != "" {
		paymentToken = b.paymentToken
	}

	return &NFTMetadata{
		Name:        name,
		Description: description,
		Image:       imageURL,
		Attributes:  attributes,
		Properties: Properties{
			MasterpieceId: req.ArtifactId,
			CreatedWith:   b.config.CreatedWith,
			Blockchain:    b.blockchain,
			PaymentToken:  paymentToken,
		},
	}
}

func AssetFilename(artifactId string) string {
	return artifactId + ".png"
}

func MetadataFilename(artifactId string) string {
	return artifactId + "-metadata.json"
}
