package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/config"
	"go.uber.org/zap"
)

// ObjectKey is <tenant>/<package id>.json.
func ObjectKey(pkg *api.EvidencePackage) string {
	return fmt.Sprintf("%s/%s.json", pkg.TenantID, pkg.ID)
}

func encode(pkg *api.EvidencePackage) ([]byte, error) {
	b, err := json.Marshal(pkg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode evidence package %s: %w", pkg.ID, err)
	}
	return b, nil
}

type BlobUploader interface {
	UploadBuffer(ctx context.Context, containerName string, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// BlobArchiver writes evidence packages to an Azure storage container in the
// cold tier.
type BlobArchiver struct {
	logger    *zap.Logger
	client    BlobUploader
	container string
}

func NewBlobArchiver(logger *zap.Logger, client BlobUploader, container string) *BlobArchiver {
	return &BlobArchiver{
		logger:    logger.Named("blob-archiver"),
		client:    client,
		container: container,
	}
}

func NewBlobClient(cfg config.AzBlob, credential azcore.TokenCredential) (*azblob.Client, error) {
	client, err := azblob.NewClient(cfg.AccountURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return client, nil
}

func (a *BlobArchiver) Archive(ctx context.Context, pkg *api.EvidencePackage) error {
	b, err := encode(pkg)
	if err != nil {
		return err
	}
	key := ObjectKey(pkg)
	_, err = a.client.UploadBuffer(ctx, a.container, key, b, &azblob.UploadBufferOptions{
		AccessTier: to.Ptr(blob.AccessTierCold),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	a.logger.Info("archived evidence package", zap.String("container", a.container), zap.String("key", key))
	return nil
}

type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes evidence packages to a bucket under an optional prefix.
type S3Archiver struct {
	logger *zap.Logger
	client ObjectPutter
	bucket string
	prefix string
}

func NewS3Archiver(logger *zap.Logger, client ObjectPutter, bucket, prefix string) *S3Archiver {
	return &S3Archiver{
		logger: logger.Named("s3-archiver"),
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func NewS3Client(ctx context.Context, cfg config.S3) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.AccessSecret != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.AccessSecret, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

func (a *S3Archiver) Key(pkg *api.EvidencePackage) string {
	if a.prefix == "" {
		return ObjectKey(pkg)
	}
	return path.Join(a.prefix, ObjectKey(pkg))
}

func (a *S3Archiver) Archive(ctx context.Context, pkg *api.EvidencePackage) error {
	b, err := encode(pkg)
	if err != nil {
		return err
	}
	key := a.Key(pkg)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("failed to upload %s to S3 (%s): %w", key, apiErr.ErrorCode(), err)
		}
		return fmt.Errorf("failed to upload %s to S3: %w", key, err)
	}
	a.logger.Info("archived evidence package", zap.String("bucket", a.bucket), zap.String("key", key))
	return nil
}

// Multi archives to every target and stops at the first error.
type Multi []interface {
	Archive(ctx context.Context, pkg *api.EvidencePackage) error
}

func (m Multi) Archive(ctx context.Context, pkg *api.EvidencePackage) error {
	for _, a := range m {
		if err := a.Archive(ctx, pkg); err != nil {
			return err
		}
	}
	return nil
}
