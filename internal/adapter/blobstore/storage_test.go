package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"bodysync/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, store domain.BlobStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "withings_config.json")
	require.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)

	require.NoError(t, store.Put(ctx, "withings_config.json", []byte(`{"v":1}`)))
	require.NoError(t, store.Put(ctx, "withings_config.json", []byte(`{"v":2}`)))
	got, err := store.Get(ctx, "withings_config.json")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(got))
}

func TestOpen_Memory(t *testing.T) {
	b, err := Open(context.Background(), "memory://")
	require.NoError(t, err)
	defer b.Close()
	require.NotNil(t, b.Ledger)
	roundTrip(t, b.Blobs)
}

func TestOpen_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tokens")
	b, err := Open(context.Background(), "file://"+dir)
	require.NoError(t, err)
	assert.Nil(t, b.Ledger)
	roundTrip(t, b.Blobs)

	_, err = os.Stat(filepath.Join(dir, "withings_config.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "withings_config.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temporary file must be renamed away")
}

func TestOpen_SQLite(t *testing.T) {
	b, err := Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "sync.db"))
	require.NoError(t, err)
	defer b.Close()
	require.NotNil(t, b.Ledger)
	roundTrip(t, b.Blobs)
}

func TestOpen_Invalid(t *testing.T) {
	for _, dsn := range []string{"", "ftp://host/x", "file://"} {
		_, err := Open(context.Background(), dsn)
		assert.True(t, errors.Is(err, domain.ErrConfig), "%q: got %v", dsn, err)
	}
}

func TestFileStore_RejectsPathKeys(t *testing.T) {
	s := NewFileStore(t.TempDir())
	assert.Error(t, s.Put(context.Background(), "../escape", []byte("x")))
}

type fakeS3 struct {
	objects map[string][]byte
	getErr  error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	store := &S3Store{client: fake, bucket: "withings-garmin-sync-config-bucket", prefix: s3Prefix("/prod/")}
	roundTrip(t, store)
	assert.Contains(t, fake.objects, "withings-garmin-sync-config-bucket/prod/withings_config.json")
}

func TestS3Store_Errors(t *testing.T) {
	fake := &fakeS3{getErr: &smithy.GenericAPIError{Code: "NotFound", Message: "no object"}}
	store := &S3Store{client: fake, bucket: "b"}
	_, err := store.Get(context.Background(), "k")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)

	fake.getErr = &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
	_, err = store.Get(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
}
