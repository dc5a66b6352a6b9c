package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBlob struct {
	container, name string
	body            []byte
	tier            *blob.AccessTier
	err             error
}

func (f *fakeBlob) UploadBuffer(_ context.Context, container string, name string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error) {
	f.container, f.name, f.body = container, name, buffer
	if o != nil {
		f.tier = o.AccessTier
	}
	return azblob.UploadBufferResponse{}, f.err
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

var testPackage = &api.EvidencePackage{ID: "pkg-1", TenantID: "tenant-1", ControlFamily: "AC", CompletenessScore: 60}

func TestBlobArchiver(t *testing.T) {
	client := &fakeBlob{}
	require.NoError(t, NewBlobArchiver(zap.NewNop(), client, "evidence").Archive(context.Background(), testPackage))

	assert.Equal(t, "evidence", client.container)
	assert.Equal(t, "tenant-1/pkg-1.json", client.name)
	require.NotNil(t, client.tier)
	assert.Equal(t, blob.AccessTierCold, *client.tier)

	var decoded api.EvidencePackage
	require.NoError(t, json.Unmarshal(client.body, &decoded))
	assert.Equal(t, "AC", decoded.ControlFamily)
}

func TestBlobArchiverError(t *testing.T) {
	client := &fakeBlob{err: errors.New("forbidden")}
	err := NewBlobArchiver(zap.NewNop(), client, "evidence").Archive(context.Background(), testPackage)
	assert.ErrorContains(t, err, "tenant-1/pkg-1.json")
}

func TestS3Archiver(t *testing.T) {
	client := &fakeS3{}
	a := NewS3Archiver(zap.NewNop(), client, "bucket", "/evidence/")
	require.NoError(t, a.Archive(context.Background(), testPackage))

	assert.Equal(t, "bucket", aws.ToString(client.input.Bucket))
	assert.Equal(t, "evidence/tenant-1/pkg-1.json", aws.ToString(client.input.Key))
	assert.Equal(t, "application/json", aws.ToString(client.input.ContentType))
	assert.Contains(t, string(client.body), `"id":"pkg-1"`)

	assert.Equal(t, "tenant-1/pkg-1.json", NewS3Archiver(zap.NewNop(), client, "bucket", "").Key(testPackage))
}

func TestMultiStopsAtFirstError(t *testing.T) {
	failing := &fakeBlob{err: errors.New("down")}
	s3Client := &fakeS3{}
	m := Multi{NewBlobArchiver(zap.NewNop(), failing, "c"), NewS3Archiver(zap.NewNop(), s3Client, "b", "")}

	assert.Error(t, m.Archive(context.Background(), testPackage))
	assert.Nil(t, s3Client.input)
}

func TestS3ArchiverReportsErrorCode(t *testing.T) {
	client := &fakeS3{err: &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "bucket missing"}}
	err := NewS3Archiver(zap.NewNop(), client, "bucket", "").Archive(context.Background(), testPackage)
	assert.ErrorContains(t, err, "(NoSuchBucket)")
}
