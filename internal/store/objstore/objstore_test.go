package objstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netventure.org/internal/persist"
)

type fakeClient struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	headErr error
}

func newFake() *fakeClient {
	return &fakeClient{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeClient) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.objects[key] = body
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeClient) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func TestSaveLoadUnderPrefix(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	s := New(fake, "school-data", "/netventure/")

	_, err := s.Load(ctx, persist.KeyRoster)
	assert.ErrorIs(t, err, persist.ErrNotFound)

	require.NoError(t, s.Save(ctx, persist.KeyRoster, []byte(`[]`)))
	assert.Contains(t, fake.objects, "school-data/netventure/nv_children.json")
	assert.Equal(t, "application/json", fake.types["school-data/netventure/nv_children.json"])

	got, err := s.Load(ctx, persist.KeyRoster)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestPutArbitraryObject(t *testing.T) {
	fake := newFake()
	s := New(fake, "b", "")
	require.NoError(t, s.Put(context.Background(), "backups/x.yaml", []byte("id: x")))
	assert.Equal(t, "application/yaml", fake.types["b/backups/x.yaml"])
}

func TestPing(t *testing.T) {
	fake := newFake()
	s := New(fake, "b", "")
	require.NoError(t, s.Ping(context.Background()))

	fake.headErr = errors.New("forbidden")
	assert.ErrorIs(t, s.Ping(context.Background()), persist.ErrStorageUnavailable)
}

func TestOpenRequiresBucket(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	assert.Error(t, err)
}
