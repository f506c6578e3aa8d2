package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipBytes(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func eventNames(t *testing.T, src Source) []string {
	t.Helper()
	recs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		names = append(names, r.String("eventName"))
	}
	return names
}

func TestDirSource_Fetch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", []byte(`{"Records":[{"eventName":"ConsoleLogin"},{"eventName":"CreateUser"}]}`))
	writeFile(t, dir, "b.json.gz", gzipBytes(t, `{"Records":[{"eventName":"StopLogging"}]}`))
	writeFile(t, dir, "c.json", []byte(`{"Records": [`))
	writeFile(t, dir, "d.json", []byte(`{"NotRecords":[{"eventName":"Ignored"}]}`))
	writeFile(t, dir, "e.json", []byte(`[{"eventName":"TopLevelArray"}]`))
	writeFile(t, dir, "f.json", []byte(`{"Records":["junk",3,null,{"eventName":"DisableKey"}]}`))
	writeFile(t, dir, "g.json.gz", []byte(`not gzip at all`))
	writeFile(t, dir, "notes.txt", []byte(`{"Records":[{"eventName":"WrongExtension"}]}`))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))

	src := NewDirSource(dir)
	assert.Equal(t, "dir:"+dir, src.Name())
	assert.Equal(t, []string{"ConsoleLogin", "CreateUser", "StopLogging", "DisableKey"}, eventNames(t, src))
}

func TestDirSource_MissingDirectory(t *testing.T) {
	src := NewDirSource(filepath.Join(t.TempDir(), "absent"))
	recs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestDirSource_PathIsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "trail.json", []byte(`{"Records":[{"eventName":"X"}]}`))

	recs, err := NewDirSource(filepath.Join(dir, "trail.json")).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestDirSource_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", []byte(`{"Records":[{"eventName":"X"}]}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDirSource(dir).Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeRecords_PreservesNesting(t *testing.T) {
	recs, err := decodeRecords(bytes.NewReader([]byte(`{"Records":[{
		"eventName":"AuthorizeSecurityGroupIngress",
		"requestParameters":{"ipPermissions":{"items":[{"ipRanges":{"items":[{"cidrIp":"0.0.0.0/0"}]}}]}},
		"readOnly":false
	}]}`)), false)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	v, ok := recs[0].Value("requestParameters", "ipPermissions", "items")
	require.True(t, ok)
	assert.IsType(t, []any{}, v)
	assert.Equal(t, false, recs[0]["readOnly"])
}

func TestNew(t *testing.T) {
	src, err := New(context.Background(), "dir", configWithDir("logs"))
	require.NoError(t, err)
	assert.Equal(t, "dir:logs", src.Name())

	src, err = New(context.Background(), "s3", configWithDir(""))
	require.NoError(t, err)
	recs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs, "unset bucket reads nothing")

	_, err = New(context.Background(), "ftp", configWithDir(""))
	assert.ErrorIs(t, err, ErrUnsupportedSource)
}
