package storage

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/pixlmixr/minting-service/models"
)

var ErrObjectNotFound = errors.New("object_not_found")

// ObjectStore is a flat key/value view over one bucket.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Bucket() string
	Close() error
}

var NewObjectStore = func(ctx context.Context, config models.StorageConfig) (ObjectStore, error) {
	switch config.Provider {
	case models.StorageProviderGCS:
		return NewGCSStore(ctx, config)
	case models.StorageProviderS3:
		return NewS3Store(config)
	default:
		return nil, fmt.Errorf("unsupported storage provider %q", config.Provider)
	}
}

func InitObjectStore(config models.StorageConfig) ObjectStore {
	store, err := NewObjectStore(context.Background(), config)
	if err != nil {
		log.Fatal("[STORAGE] Error creating object store: ", err)
	}
	log.WithFields(log.Fields{
		"provider": config.Provider,
		"bucket":   config.Bucket,
	}).Info("[STORAGE] Object store ready")
	return store
}
