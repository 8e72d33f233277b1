package embedcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashImage(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashImage(nil))
	assert.NotEqual(t, HashImage([]byte("a")), HashImage([]byte("b")))
}

func TestFileCache_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "embeddings.gob")
	ctx := context.Background()

	c, err := OpenFile(path)
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "abc", []float32{0.1, 0.2, 0.3}))
	require.NoError(t, c.Flush())

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Len())

	emb, ok, err := reopened.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, emb)
}

func TestFileCache_PutIsBufferedUntilFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.gob")
	ctx := context.Background()

	c, err := OpenFile(path)
	require.NoError(t, err)

	// a clean cache writes nothing
	require.NoError(t, c.Flush())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	for i, hash := range []string{"a", "b", "c"} {
		require.NoError(t, c.Put(ctx, hash, []float32{float32(i)}))
	}
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "Put must not write the file")

	require.NoError(t, Flush(c))
	reopened, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, reopened.Len())
}

func TestFlush_NonBufferingCache(t *testing.T) {
	assert.NoError(t, Flush(Noop{}))
}

func TestFileCache_GetReturnsCopy(t *testing.T) {
	c, err := OpenFile(filepath.Join(t.TempDir(), "embeddings.gob"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "h", []float32{1, 2}))
	emb, _, _ := c.Get(ctx, "h")
	emb[0] = 99

	again, _, _ := c.Get(ctx, "h")
	assert.Equal(t, float32(1), again[0])
}

func TestFileCache_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.gob")
	require.NoError(t, os.WriteFile(path, []byte("not gob"), 0o644))

	c, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	require.NoError(t, c.Put(context.Background(), "h", []float32{1}))
	_, ok, err := c.Get(context.Background(), "h")
	require.NoError(t, err)
	assert.False(t, ok)
}
