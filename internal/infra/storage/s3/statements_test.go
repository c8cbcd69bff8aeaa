package s3

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	exists  bool
	made    []string
	objects map[string][]byte
	types   map[string]string
	failPut bool
}

func (f *fakeObjects) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return f.exists, nil
}

func (f *fakeObjects) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	f.exists = true
	return nil
}

func (f *fakeObjects) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.failPut {
		return minio.UploadInfo{}, errors.New("access denied")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.types = map[string]string{}
	}
	f.objects[bucket+"/"+key] = data
	f.types[bucket+"/"+key] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func TestStoreStatementCreatesBucketOnceAndUploads(t *testing.T) {
	store := &fakeObjects{}
	archive, err := newStatementArchive(store, "ledger", "", nil)
	require.NoError(t, err)

	loc, err := archive.StoreStatement(context.Background(), "BK-1", []byte(`{"state":"SETTLED"}`))
	require.NoError(t, err)
	require.Equal(t, "s3://ledger/statements/BK-1.json", loc)
	_, err = archive.StoreStatement(context.Background(), "BK-2", []byte(`{}`))
	require.NoError(t, err)

	require.Equal(t, []string{"ledger"}, store.made)
	require.Equal(t, `{"state":"SETTLED"}`, string(store.objects["ledger/statements/BK-1.json"]))
	require.Equal(t, "application/json", store.types["ledger/statements/BK-1.json"])
}

func TestStoreStatementWrapsUploadFailure(t *testing.T) {
	archive, err := newStatementArchive(&fakeObjects{exists: true, failPut: true}, "ledger", "archive", nil)
	require.NoError(t, err)

	_, err = archive.StoreStatement(context.Background(), "BK-1", []byte(`{}`))
	require.ErrorContains(t, err, "s3: put object")
}

func TestNewStatementArchiveValidates(t *testing.T) {
	_, err := newStatementArchive(&fakeObjects{}, " ", "", nil)
	require.Error(t, err)
	_, err = NewStatementArchive(Options{Bucket: "ledger"}, nil)
	require.Error(t, err)
}
