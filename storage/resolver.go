package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/h2non/gentleman.v2"
	"gopkg.in/h2non/gentleman.v2/plugins/timeout"

	"github.com/pixlmixr/minting-service/models"
)

// Asset is the raw artifact to be pinned.
type Asset struct {
	Data      []byte
	MediaType string
	Source    string
}

type AssetResolver interface {
	Resolve(ctx context.Context, ref string, ownerAddress string, artifactId string) (*Asset, error)
}

type assetResolver struct {
	store      ObjectStore
	cli        *gentleman.Client
	pathPrefix string
	maxBytes   int64
}

var _ AssetResolver = &assetResolver{}

func NewAssetResolver(store ObjectStore, config models.StorageConfig) AssetResolver {
	cli := gentleman.New()
	cli.Use(timeout.Request(time.Duration(config.FetchTimeoutMillis) * time.Millisecond))

	return &assetResolver{
		store:      store,
		cli:        cli,
		pathPrefix: strings.Trim(config.PathPrefix, "/"),
		maxBytes:   config.MaxAssetBytes,
	}
}

// DefaultKey is where generated artifacts live when no reference is given.
func DefaultKey(prefix string, ownerAddress string, artifactId string) string {
	key := fmt.Sprintf("%s/%s.png", ownerAddress, artifactId)
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func isURL(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// objectKey turns a storage reference into a key in the configured bucket.
func (r *assetResolver) objectKey(ref string) (string, error) {
	scheme, rest, found := strings.Cut(ref, "://")
	if !found {
		return strings.TrimLeft(ref, "/"), nil
	}

	switch scheme {
	case "gs", "s3":
	default:
		return "", fmt.Errorf("%w: unsupported image reference scheme %q", models.ErrValidation, scheme)
	}

	bucket, key, _ := strings.Cut(rest, "/")
	if bucket != r.store.Bucket() {
		return "", fmt.Errorf("%w: image reference bucket %q is not %q", models.ErrValidation, bucket, r.store.Bucket())
	}
	if key == "" {
		return "", fmt.Errorf("%w: image reference has no object key", models.ErrValidation)
	}
	return key, nil
}

func (r *assetResolver) Resolve(ctx context.Context, ref string, ownerAddress string, artifactId string) (*Asset, error) {
	if isURL(ref) {
		return r.fetch(ref)
	}

	key := DefaultKey(r.pathPrefix, ownerAddress, artifactId)
	if ref != "" {
		var err error
		if key, err = r.objectKey(ref); err != nil {
			return nil, err
		}
	}
	return r.read(ctx, key)
}

func (r *assetResolver) read(ctx context.Context, key string) (*Asset, error) {
	logger := log.WithField("key", key)
	logger.Debug("[ASSET] Reading asset from object store")

	data, err := r.store.Get(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", models.ErrAssetNotFound, r.store.Bucket(), key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %s", models.ErrAssetFetch, key, err.Error())
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", models.ErrAssetNotFound, key)
	}

	logger.WithField("bytes", len(data)).Debug("[ASSET] Asset read")
	return &Asset{
		Data:      data,
		MediaType: mediaType(mime.TypeByExtension(path.Ext(key)), data),
		Source:    r.store.Bucket() + "/" + key,
	}, nil
}

func (r *assetResolver) fetch(url string) (*Asset, error) {
	logger := log.WithField("url", url)
	logger.Debug("[ASSET] Fetching asset")

	req := r.cli.Request()
	req.Method(http.MethodGet)
	req.URL(url)

	resp, err := req.Send()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrAssetFetch, err.Error())
	}
	defer resp.Close()

	if !resp.Ok {
		return nil, fmt.Errorf("%w: %s responded %d", models.ErrAssetFetch, url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %s", models.ErrAssetFetch, err.Error())
	}
	if int64(len(data)) > r.maxBytes {
		return nil, fmt.Errorf("%w: asset exceeds %d bytes", models.ErrAssetFetch, r.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body from %s", models.ErrAssetFetch, url)
	}

	logger.WithField("bytes", len(data)).Debug("[ASSET] Asset fetched")
	return &Asset{
		Data:      data,
		MediaType: mediaType(resp.Header.Get("Content-Type"), data),
		Source:    url,
	}, nil
}

func mediaType(declared string, data []byte) string {
	if declared != "" {
		if parsed, _, err := mime.ParseMediaType(declared); err == nil && parsed != "application/octet-stream" {
			return parsed
		}
	}
	parsed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return parsed
}
