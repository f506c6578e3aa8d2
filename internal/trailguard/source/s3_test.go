package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
)

func configWithDir(dir string) config.SourceCfg {
	return config.SourceCfg{Dir: dir}
}

// fakeS3 serves pages of keys and object bodies from memory.
type fakeS3 struct {
	pages     [][]string
	objects   map[string][]byte
	listErrAt int // page index whose listing fails; -1 for never
	getErr    map[string]error
	gets      []string
	prefixes  []string
}

func newFakeS3(pages ...[]string) *fakeS3 {
	return &fakeS3{pages: pages, objects: map[string][]byte{}, listErrAt: -1, getErr: map[string]error{}}
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.prefixes = append(f.prefixes, aws.ToString(in.Prefix))
	idx := 0
	if in.ContinuationToken != nil {
		idx = int((*in.ContinuationToken)[0] - '0')
	}
	if idx == f.listErrAt {
		return nil, errors.New("AccessDenied")
	}

	out := &s3.ListObjectsV2Output{}
	if idx < len(f.pages) {
		for _, k := range f.pages[idx] {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
		}
	}
	if idx+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(string(rune('0' + idx + 1)))
	} else {
		out.IsTruncated = aws.Bool(false)
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.gets = append(f.gets, key)
	if err := f.getErr[key]; err != nil {
		return nil, err
	}
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func TestS3Source_Fetch(t *testing.T) {
	client := newFakeS3(
		[]string{"AWSLogs/1/a.json.gz", "AWSLogs/1/digest.txt"},
		[]string{"AWSLogs/1/b.json", "AWSLogs/1/broken.json"},
	)
	client.objects["AWSLogs/1/a.json.gz"] = gzipBytes(t, `{"Records":[{"eventName":"StopLogging"},{"eventName":"DeleteTrail"}]}`)
	client.objects["AWSLogs/1/b.json"] = []byte(`{"Records":[{"eventName":"CreateUser"}]}`)
	client.objects["AWSLogs/1/broken.json"] = []byte(`{"Records":`)

	src := NewS3Source(client, "trail-bucket", "AWSLogs/1/")
	assert.Equal(t, "s3://trail-bucket/AWSLogs/1/", src.Name())
	assert.Equal(t, []string{"StopLogging", "DeleteTrail", "CreateUser"}, eventNames(t, src))

	assert.NotContains(t, client.gets, "AWSLogs/1/digest.txt")
	assert.Equal(t, []string{"AWSLogs/1/", "AWSLogs/1/"}, client.prefixes)
}

func TestS3Source_GetObjectErrorSkipsObject(t *testing.T) {
	client := newFakeS3([]string{"a.json", "b.json"})
	client.getErr["a.json"] = errors.New("SlowDown")
	client.objects["b.json"] = []byte(`{"Records":[{"eventName":"DisableKey"}]}`)

	assert.Equal(t, []string{"DisableKey"}, eventNames(t, NewS3Source(client, "bucket", "")))
}

func TestS3Source_ListErrorKeepsCollected(t *testing.T) {
	client := newFakeS3([]string{"a.json"}, []string{"b.json"})
	client.objects["a.json"] = []byte(`{"Records":[{"eventName":"ConsoleLogin"}]}`)
	client.objects["b.json"] = []byte(`{"Records":[{"eventName":"Unreached"}]}`)
	client.listErrAt = 1

	assert.Equal(t, []string{"ConsoleLogin"}, eventNames(t, NewS3Source(client, "bucket", "")))
}

func TestS3Source_ListErrorOnFirstPage(t *testing.T) {
	client := newFakeS3([]string{"a.json"})
	client.listErrAt = 0

	recs, err := NewS3Source(client, "bucket", "").Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestS3Source_UnsetBucket(t *testing.T) {
	client := newFakeS3([]string{"a.json"})
	recs, err := NewS3Source(client, "", "").Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Empty(t, client.prefixes, "no listing without a bucket")
}

func TestS3Source_CancelledContext(t *testing.T) {
	client := newFakeS3([]string{"a.json"})
	client.objects["a.json"] = []byte(`{"Records":[{"eventName":"X"}]}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewS3Source(client, "bucket", "").Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
