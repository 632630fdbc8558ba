package content

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/booklook/internal/apperr"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	failGet error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Store_SaveAndLoad(t *testing.T) {
	client := newFakeS3()
	store := newS3Store(client, "library", "booklook")
	ctx := context.Background()

	key, err := store.Save(ctx, 12, "it was a dark and stormy night")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "booklook/books/12/"), key)
	assert.True(t, strings.HasSuffix(key, ".txt"), key)

	text, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "it was a dark and stormy night", text)

	again, err := store.Save(ctx, 12, "revised")
	require.NoError(t, err)
	assert.NotEqual(t, key, again)
}

func TestS3Store_LoadMissing(t *testing.T) {
	store := newS3Store(newFakeS3(), "library", "")

	_, err := store.Load(context.Background(), "books/1/unknown.txt")
	assert.ErrorIs(t, err, ErrContentNotFound)
}

func TestS3Store_LoadOutage(t *testing.T) {
	client := newFakeS3()
	client.failGet = errors.New("connection refused")
	store := newS3Store(client, "library", "")

	_, err := store.Load(context.Background(), "books/1/a.txt")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
	assert.True(t, apperr.Is(err, "CONTENT_UNAVAILABLE"))
}

func TestS3Store_Delete(t *testing.T) {
	client := newFakeS3()
	store := newS3Store(client, "library", "")
	ctx := context.Background()

	key, err := store.Save(ctx, 5, "short text")
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, key))

	_, err = store.Load(ctx, key)
	assert.ErrorIs(t, err, ErrContentNotFound)
}
