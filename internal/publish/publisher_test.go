package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePublisher_Publish(t *testing.T) {
	dir := t.TempDir()
	p := NewFilePublisher(dir, zerolog.Nop())

	require.NoError(t, p.Publish(context.Background(), "runs/abc/allocation.json", []byte(`{"a":1}`)))

	data, err := os.ReadFile(filepath.Join(dir, "runs", "abc", "allocation.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	// Overwrites in place
	require.NoError(t, p.Publish(context.Background(), "runs/abc/allocation.json", []byte(`{"a":2}`)))
	data, err = os.ReadFile(filepath.Join(dir, "runs", "abc", "allocation.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	_, err = os.Stat(filepath.Join(dir, "runs", "abc", "allocation.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFilePublisher_StaysInsideRoot(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "root")
	p := NewFilePublisher(root, zerolog.Nop())

	require.NoError(t, p.Publish(context.Background(), "../../escape.json", []byte("x")))

	_, err := os.Stat(filepath.Join(root, "escape.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "escape.json"))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, p.Publish(context.Background(), "/", []byte("x")))
}

func TestFilePublisher_Cancelled(t *testing.T) {
	p := NewFilePublisher(t.TempDir(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, "a.json", nil), context.Canceled)
}

func TestS3Publisher_ObjectKey(t *testing.T) {
	tests := []struct {
		prefix   string
		key      string
		expected string
	}{
		{"", "allocation.json", "allocation.json"},
		{"frontier", "runs/1/allocation.json", "frontier/runs/1/allocation.json"},
		{"frontier", "/allocation.json", "frontier/allocation.json"},
	}

	for _, tt := range tests {
		p := &S3Publisher{prefix: tt.prefix}
		assert.Equal(t, tt.expected, p.objectKey(tt.key))
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType("a/frontier.json"))
	assert.Equal(t, "application/octet-stream", contentType("a/statistics.msgpack"))
}

type recordingPublisher struct {
	keys []string
	err  error
}

func (r *recordingPublisher) Publish(_ context.Context, key string, _ []byte) error {
	r.keys = append(r.keys, key)
	return r.err
}

func TestMulti(t *testing.T) {
	first := &recordingPublisher{}
	second := &recordingPublisher{}

	require.NoError(t, Multi{first, second}.Publish(context.Background(), "k", nil))
	assert.Equal(t, []string{"k"}, first.keys)
	assert.Equal(t, []string{"k"}, second.keys)

	boom := errors.New("boom")
	failing := &recordingPublisher{err: boom}
	third := &recordingPublisher{}
	assert.ErrorIs(t, Multi{failing, third}.Publish(context.Background(), "k", nil), boom)
	assert.Empty(t, third.keys)
}
