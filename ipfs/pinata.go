package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/h2non/gentleman.v2"
	gcontext "gopkg.in/h2non/gentleman.v2/context"
	"gopkg.in/h2non/gentleman.v2/plugins/timeout"

	"github.com/pixlmixr/minting-service/models"
)

const pinFilePath = "/pinning/pinFileToIPFS"

// ContentPinner publishes bytes to IPFS and returns their content ids.
type ContentPinner interface {
	PinAsset(ctx context.Context, data []byte, filename string, mediaType string) (*models.PinnedContent, error)
	PinMetadata(ctx context.Context, doc *NFTMetadata, filename string) (*models.PinnedContent, error)
}

type pinataPinner struct {
	cli        *gentleman.Client
	gatewayURL string
	cidVersion int
}

var _ ContentPinner = &pinataPinner{}

type pinataMetadata struct {
	Name string `json:"name"`
}

type pinataOptions struct {
	CidVersion int `json:"cidVersion"`
}

type pinataResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

func NewPinataPinner(config models.PinataConfig) ContentPinner {
	cli := gentleman.New().URL(strings.TrimRight(config.APIURL, "/"))
	cli.Use(timeout.Request(time.Duration(config.TimeoutMillis) * time.Millisecond))
	cli.SetHeader("Authorization", "Bearer "+config.JWT)

	cidVersion := 1
	if config.CIDVersion != nil {
		cidVersion = *config.CIDVersion
	}

	return &pinataPinner{
		cli:        cli,
		gatewayURL: strings.TrimRight(config.GatewayURL, "/"),
		cidVersion: cidVersion,
	}
}

func (p *pinataPinner) GatewayURL(contentId string) string {
	return p.gatewayURL + "/" + contentId
}

func (p *pinataPinner) PinAsset(ctx context.Context, data []byte, filename string, mediaType string) (*models.PinnedContent, error) {
	return p.pinFile(ctx, data, filename, mediaType)
}

func (p *pinataPinner) PinMetadata(ctx context.Context, doc *NFTMetadata, filename string) (*models.PinnedContent, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding metadata: %s", models.ErrPinning, err.Error())
	}
	return p.pinFile(ctx, data, filename, "application/json")
}

func (p *pinataPinner) form(data []byte, filename string, mediaType string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", mediaType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	meta, _ := json.Marshal(pinataMetadata{Name: filename})
	if err := writer.WriteField("pinataMetadata", string(meta)); err != nil {
		return nil, "", err
	}
	opts, _ := json.Marshal(pinataOptions{CidVersion: p.cidVersion})
	if err := writer.WriteField("pinataOptions", string(opts)); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func (p *pinataPinner) pinFile(ctx context.Context, data []byte, filename string, mediaType string) (*models.PinnedContent, error) {
	logger := log.WithFields(log.Fields{"filename": filename, "bytes": len(data)})

	body, contentType, err := p.form(data, filename, mediaType)
	if err != nil {
		return nil, fmt.Errorf("%w: building upload: %s", models.ErrPinning, err.Error())
	}

	req := p.cli.Post()
	req.AddPath(pinFilePath)
	req.SetHeader("Content-Type", contentType)
	req.Body(body)
	req.UseRequest(func(gctx *gcontext.Context, h gcontext.Handler) {
		h.Next(gctx.SetCancelContext(ctx))
	})

	resp, err := req.Send()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrPinning, err.Error())
	}
	defer resp.Close()
	if !resp.Ok {
		return nil, fmt.Errorf("%w: pinata responded %d: %s", models.ErrPinning, resp.StatusCode, resp.String())
	}

	pinned := pinataResponse{}
	if err := resp.JSON(&pinned); err != nil {
		return nil, fmt.Errorf("%w: invalid pinata response: %s", models.ErrPinning, err.Error())
	}
	if pinned.IpfsHash == "" {
		return nil, fmt.Errorf("%w: pinata returned no content id", models.ErrPinning)
	}

	logger.WithField("cid", pinned.IpfsHash).Info("[PINATA] Content pinned")
	return &models.PinnedContent{
		ContentId:  pinned.IpfsHash,
		GatewayURL: p.GatewayURL(pinned.IpfsHash),
		MediaType:  mediaType,
	}, nil
}
