package avatars

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "processed.jpg")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestCheckName(t *testing.T) {
	assert.NoError(t, checkName("u1_me.jpg"))
	assert.Error(t, checkName(""))
	assert.Error(t, checkName("../etc/passwd"))
	assert.Error(t, checkName("a/b.jpg"))
	assert.Error(t, checkName(".hidden.jpg"))
}

func TestDiskStorage_Store(t *testing.T) {
	s, err := NewDiskStorage(filepath.Join(t.TempDir(), "public", "avatars"))
	require.NoError(t, err)

	src := writeTemp(t, "jpeg-bytes")
	require.NoError(t, s.Store(context.Background(), src, "u1_me.jpg"))

	data, err := os.ReadFile(filepath.Join(s.Dir(), "u1_me.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestDiskStorage_LastWriteWins(t *testing.T) {
	s, err := NewDiskStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Store(context.Background(), writeTemp(t, "first"), "u1_me.jpg"))
	require.NoError(t, s.Store(context.Background(), writeTemp(t, "second"), "u1_me.jpg"))

	data, err := os.ReadFile(filepath.Join(s.Dir(), "u1_me.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestDiskStorage_RejectsBadNameAndCancelledContext(t *testing.T) {
	s, err := NewDiskStorage(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, s.Store(context.Background(), writeTemp(t, "x"), "../x.jpg"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Store(ctx, writeTemp(t, "x"), "u1_x.jpg"), context.Canceled)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskStorage_URL(t *testing.T) {
	s := &DiskStorage{dir: "/tmp"}
	assert.Equal(t, "http://localhost:8080/avatars/u1_me.jpg", s.URL("http://localhost:8080/", "u1_me.jpg"))
	assert.Equal(t, "http://h/avatars/u1_my%20pic.jpg", s.URL("http://h", "u1_my pic.jpg"))
}

type fakeS3 struct {
	in   *s3.PutObjectInput
	body string
	err  error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Storage_Store(t *testing.T) {
	fake := &fakeS3{}
	s := newS3Storage(fake, "avatars", "http://127.0.0.1:9000/")

	require.NoError(t, s.Store(context.Background(), writeTemp(t, "jpeg-bytes"), "u1_me.jpg"))

	require.NotNil(t, fake.in)
	assert.Equal(t, "avatars", aws.ToString(fake.in.Bucket))
	assert.Equal(t, "u1_me.jpg", aws.ToString(fake.in.Key))
	assert.Equal(t, "image/jpeg", aws.ToString(fake.in.ContentType))
	assert.Equal(t, int64(len("jpeg-bytes")), aws.ToInt64(fake.in.ContentLength))
	assert.Equal(t, "jpeg-bytes", fake.body)

	assert.Equal(t, "http://127.0.0.1:9000/avatars/u1_me.jpg", s.URL("http://ignored", "u1_me.jpg"))
}

func TestS3Storage_Errors(t *testing.T) {
	s := newS3Storage(&fakeS3{err: errors.New("access denied")}, "avatars", "http://s3")

	err := s.Store(context.Background(), writeTemp(t, "x"), "u1_me.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")

	err = s.Store(context.Background(), filepath.Join(t.TempDir(), "missing"), "u1_me.jpg")
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.Error(t, s.Store(context.Background(), writeTemp(t, "x"), "a/b.jpg"))
}

func TestNewS3Storage(t *testing.T) {
	s, err := NewS3Storage(context.Background(), S3Config{
		AccessKey:    "admin",
		SecretKey:    "secret",
		Bucket:       "avatars",
		Region:       "us-east-1",
		BaseEndpoint: "http://127.0.0.1:9000",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/avatars/x.jpg", s.URL("", "x.jpg"))
}
