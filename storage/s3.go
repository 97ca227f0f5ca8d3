package storage

import (
	"bytes"
	"context"
	"net"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/pixlmixr/minting-service/models"
)

type s3Store struct {
	downloader s3manager.Downloader
	uploader   s3manager.Uploader
	s3Api      s3iface.S3API
	bucket     string
	timeout    time.Duration
}

func NewS3Store(config models.StorageConfig) (ObjectStore, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}

	cfgs := aws.NewConfig().WithRegion(config.S3.Region)
	if config.S3.AccessKey != "" {
		cfgs.WithCredentials(credentials.NewStaticCredentials(config.S3.AccessKey, config.S3.SecretKey, ""))
	}
	if config.S3.Endpoint != "" {
		cfgs.WithEndpoint(config.S3.Endpoint)
		// path-style addressing for IP endpoints
		if u, err := url.Parse(config.S3.Endpoint); err == nil && net.ParseIP(u.Hostname()) != nil {
			cfgs.S3ForcePathStyle = aws.Bool(true)
		}
	}

	return newS3Store(s3.New(sess, cfgs), config), nil
}

func newS3Store(api s3iface.S3API, config models.StorageConfig) *s3Store {
	return &s3Store{
		downloader: s3manager.Downloader{S3: api},
		uploader:   s3manager.Uploader{S3: api},
		s3Api:      api,
		bucket:     config.Bucket,
		timeout:    time.Duration(config.TimeoutMillis) * time.Millisecond,
	}
}

func (s *s3Store) Bucket() string {
	return s.bucket
}

func isS3NotFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}

func (s *s3Store) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	buf := aws.NewWriteAtBuffer([]byte{})
	_, err := s.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isS3NotFound(err) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *s3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	return err
}

func (s *s3Store) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.s3Api.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isS3NotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *s3Store) Close() error {
	return nil
}
