package vamana

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vamana/blobstore"
	"github.com/hupe1980/vamana/testutil"
)

func buildSmall(t *testing.T) *Index {
	t.Helper()

	rng := testutil.NewRNG(41)
	rows := rng.GaussianVectors(128, 12)

	opts := DefaultBuildOptions()
	opts.R = 12
	opts.LBuild = 24

	b, err := NewBuilder(opts)
	require.NoError(t, err)
	_, err = b.AddBatch(rows)
	require.NoError(t, err)
	ix, err := b.Build(context.Background())
	require.NoError(t, err)
	return ix
}

func requireSameIndex(t *testing.T, want, got *Index) {
	t.Helper()

	require.Equal(t, want.meta, got.meta)
	for v := uint32(0); v < uint32(want.Len()); v++ {
		assert.Equal(t, want.store.Row(v), got.store.Row(v), "vector %d", v)
		assert.Equal(t, want.graph.Neighbors(v), got.graph.Neighbors(v), "adjacency %d", v)
	}
	assert.Equal(t, want.graph.Medoid(), got.graph.Medoid())
}

func TestIndexRoundTrip(t *testing.T) {
	ix := buildSmall(t)

	var buf bytes.Buffer
	require.NoError(t, ix.Save(&buf))

	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	requireSameIndex(t, ix, loaded)
}

func TestIndexFileRoundTrip(t *testing.T) {
	ix := buildSmall(t)
	path := filepath.Join(t.TempDir(), "index.bin")

	require.NoError(t, ix.SaveFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	requireSameIndex(t, ix, loaded)
}

func TestCompressedIndexRoundTrip(t *testing.T) {
	ix := buildSmall(t)
	path := filepath.Join(t.TempDir(), "index.bin.zst")

	require.NoError(t, ix.SaveFileCompressed(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	requireSameIndex(t, ix, loaded)
}

func TestLoadCorruptedMagic(t *testing.T) {
	ix := buildSmall(t)

	var buf bytes.Buffer
	require.NoError(t, ix.Save(&buf))

	data := buf.Bytes()
	data[0] = 0

	_, err := Load(bytes.NewReader(data))
	require.ErrorIs(t, err, ErrFormatInvalid)
}

func TestLoadTruncated(t *testing.T) {
	ix := buildSmall(t)

	var buf bytes.Buffer
	require.NoError(t, ix.Save(&buf))
	data := buf.Bytes()

	for _, cut := range []int{4, formatMagicSize + 10, len(data) / 2, len(data) - 9} {
		_, err := Load(bytes.NewReader(data[:cut]))
		require.ErrorIs(t, err, ErrFormatTruncated, "cut at %d", cut)
	}
}

func TestLoadTrailingBytes(t *testing.T) {
	ix := buildSmall(t)

	var buf bytes.Buffer
	require.NoError(t, ix.Save(&buf))
	buf.Write(make([]byte, 16))

	_, err := Load(bytes.NewReader(buf.Bytes()))
	require.ErrorIs(t, err, ErrFormatTrailingBytes)
}

func TestLoadChecksumMismatch(t *testing.T) {
	ix := buildSmall(t)

	var buf bytes.Buffer
	require.NoError(t, ix.Save(&buf))
	data := buf.Bytes()

	// Flip one payload byte inside the vector block.
	data[formatMagicSize+formatHeaderSize+5] ^= 0xFF

	_, err := Load(bytes.NewReader(data))
	require.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestLoadRejectsBadHeaderFields(t *testing.T) {
	ix := buildSmall(t)

	var buf bytes.Buffer
	require.NoError(t, ix.Save(&buf))

	// Zero out R (header offset 8 after the magic).
	data := append([]byte(nil), buf.Bytes()...)
	for i := 0; i < 4; i++ {
		data[formatMagicSize+8+i] = 0
	}

	_, err := Load(bytes.NewReader(data))
	require.ErrorIs(t, err, ErrFormatInvalid)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.bin"))
	require.ErrorIs(t, err, ErrIO)
}

func TestBlobStoreRoundTrip(t *testing.T) {
	ix := buildSmall(t)
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	require.NoError(t, ix.SaveToStore(ctx, store, "indices/main.bin"))

	loaded, err := LoadFromStore(ctx, store, "indices/main.bin")
	require.NoError(t, err)
	requireSameIndex(t, ix, loaded)

	_, err = LoadFromStore(ctx, store, "indices/missing.bin")
	require.ErrorIs(t, err, ErrIO)
}

func TestSearchAfterReload(t *testing.T) {
	ix := buildSmall(t)

	var buf bytes.Buffer
	require.NoError(t, ix.Save(&buf))
	loaded, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	q := ix.Vector(17)
	want, err := ix.SearchWithBeam(q, 5, 24)
	require.NoError(t, err)
	got, err := loaded.SearchWithBeam(q, 5, 24)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
