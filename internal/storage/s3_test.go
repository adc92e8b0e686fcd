package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeleter struct {
	keys []string
	err  error
}

func (f *fakeDeleter) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.keys = append(f.keys, *in.Key)
	return &s3.DeleteObjectOutput{}, f.err
}

func TestKeyFromURL(t *testing.T) {
	s := &ImageStore{bucket: "fenomen-pet", region: "eu-central-1"}

	tests := []struct {
		name   string
		url    string
		key    string
		wantOK bool
	}{
		{name: "Virtual hosted", url: "https://fenomen-pet.s3.eu-central-1.amazonaws.com/submissions/kedi.jpg", key: "submissions/kedi.jpg", wantOK: true},
		{name: "Path style", url: "https://s3.eu-central-1.amazonaws.com/fenomen-pet/submissions/kedi.jpg", key: "submissions/kedi.jpg", wantOK: true},
		{name: "Other bucket", url: "https://other.s3.eu-central-1.amazonaws.com/kedi.jpg"},
		{name: "Foreign host", url: "https://cdn.example.com/kedi.jpg"},
		{name: "Bucket root", url: "https://fenomen-pet.s3.eu-central-1.amazonaws.com/"},
		{name: "Not a url", url: "kedi.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := s.keyFromURL(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestRemoveImage(t *testing.T) {
	deleter := &fakeDeleter{}
	s := &ImageStore{client: deleter, bucket: "fenomen-pet", region: "eu-central-1"}

	require.NoError(t, s.RemoveImage(context.Background(), "https://fenomen-pet.s3.eu-central-1.amazonaws.com/submissions/kedi.jpg"))
	require.NoError(t, s.RemoveImage(context.Background(), "https://cdn.example.com/kedi.jpg"))
	assert.Equal(t, []string{"submissions/kedi.jpg"}, deleter.keys)

	deleter.err = errors.New("access denied")
	assert.Error(t, s.RemoveImage(context.Background(), "https://fenomen-pet.s3.eu-central-1.amazonaws.com/a.jpg"))
}

func TestNilImageStore(t *testing.T) {
	s, err := NewImageStore(context.Background(), Options{})
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, s.RemoveImage(context.Background(), "https://fenomen-pet.s3.eu-central-1.amazonaws.com/a.jpg"))
}
