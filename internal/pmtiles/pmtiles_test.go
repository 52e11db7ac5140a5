package pmtiles

import (
	"bytes"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZxyToID(t *testing.T) {
	assert.Equal(t, uint64(0), ZxyToID(0, 0, 0))
	assert.Equal(t, uint64(1), ZxyToID(1, 0, 0))
	assert.Equal(t, uint64(2), ZxyToID(1, 0, 1))
	assert.Equal(t, uint64(3), ZxyToID(1, 1, 1))
	assert.Equal(t, uint64(4), ZxyToID(1, 1, 0))
	assert.Equal(t, uint64(5), ZxyToID(2, 0, 0))
	assert.Equal(t, uint64(19078479), ZxyToID(12, 3423, 1763))
}

func TestIDToZxyRoundTrip(t *testing.T) {
	for z := uint8(0); z < 6; z++ {
		n := uint32(1) << z
		for x := uint32(0); x < n; x++ {
			for y := uint32(0); y < n; y++ {
				gz, gx, gy := IDToZxy(ZxyToID(z, x, y))
				require.Equal(t, []uint32{uint32(z), x, y}, []uint32{uint32(gz), gx, gy})
			}
		}
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		SpecVersion:         3,
		RootOffset:          127,
		RootLength:          25,
		MetadataOffset:      152,
		MetadataLength:      40,
		TileDataOffset:      192,
		TileDataLength:      1000,
		AddressedTilesCount: 10,
		TileEntriesCount:    9,
		TileContentsCount:   8,
		Clustered:           true,
		InternalCompression: Gzip,
		TileCompression:     Gzip,
		TileType:            Mvt,
		MinZoom:             10,
		MaxZoom:             14,
		CenterZoom:          10,
	}
	h.SetBounds(orb.Bound{Min: orb.Point{-74.25, 40.49}, Max: orb.Point{-73.7, 40.92}})

	got, err := DecodeHeader(EncodeHeader(h))
	require.NoError(t, err)
	assert.Equal(t, h, got)
	assert.InDelta(t, -74.25, got.Bounds().Min.Lon(), 1e-7)
	assert.InDelta(t, 40.705, got.Center().Lat(), 1e-7)
}

func TestDecodeHeaderErrors(t *testing.T) {
	_, err := DecodeHeader([]byte("PMTiles"))
	assert.ErrorIs(t, err, ErrShortHeader)

	_, err = DecodeHeader(make([]byte, HeaderLen))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestDirectoryRoundTrip(t *testing.T) {
	entries := []Entry{
		{TileID: 1, Offset: 0, Length: 10, RunLength: 1},
		{TileID: 2, Offset: 10, Length: 5, RunLength: 2},
		{TileID: 9, Offset: 0, Length: 10, RunLength: 1},
	}
	for _, c := range []Compression{NoCompression, Gzip} {
		b, err := EncodeDirectory(entries, c)
		require.NoError(t, err)
		got, err := DecodeDirectory(b, c)
		require.NoError(t, err)
		assert.Equal(t, entries, got, c.String())
	}

	_, err := EncodeDirectory(entries, Zstd)
	assert.Error(t, err)
}

func TestFindTile(t *testing.T) {
	entries := []Entry{
		{TileID: 1, Length: 1, RunLength: 1},
		{TileID: 5, Length: 1, RunLength: 3},
		{TileID: 20, Length: 1, RunLength: 0},
	}
	_, ok := FindTile(entries, 0)
	assert.False(t, ok)
	e, ok := FindTile(entries, 6)
	assert.True(t, ok)
	assert.Equal(t, uint64(5), e.TileID)
	_, ok = FindTile(entries, 8)
	assert.False(t, ok)
	e, ok = FindTile(entries, 42)
	assert.True(t, ok, "leaf pointer covers everything after it")
	assert.Equal(t, uint32(0), e.RunLength)
}

func TestWriteAndRead(t *testing.T) {
	tiles := []Tile{
		{Z: 1, X: 1, Y: 0, Data: []byte("b")},
		{Z: 0, X: 0, Y: 0, Data: []byte("a")},
		{Z: 1, X: 0, Y: 0, Data: []byte("same")},
		{Z: 1, X: 0, Y: 1, Data: []byte("same")},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tiles, WriteOptions{
		TileType:        Mvt,
		TileCompression: Gzip,
		MinZoom:         0,
		MaxZoom:         1,
		Bounds:          orb.Bound{Min: orb.Point{-1, -1}, Max: orb.Point{1, 1}},
		Metadata:        map[string]any{"name": "test"},
	}))

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	h := r.Header()
	assert.Equal(t, uint64(4), h.AddressedTilesCount)
	assert.Equal(t, uint64(3), h.TileEntriesCount, "run of identical tiles")
	assert.Equal(t, uint64(3), h.TileContentsCount)
	assert.Equal(t, Mvt, h.TileType)
	assert.True(t, h.Clustered)

	meta, err := r.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "test", meta["name"])

	for _, tile := range tiles {
		data, ok, err := r.Tile(tile.Z, tile.X, tile.Y)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, tile.Data, data)
	}
	_, ok, err := r.Tile(2, 3, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteRejectsEmptyAndDuplicates(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Write(&buf, nil, WriteOptions{}), ErrNoTiles)

	dup := []Tile{{Z: 1, Data: []byte("a")}, {Z: 1, Data: []byte("b")}}
	assert.Error(t, Write(&buf, dup, WriteOptions{}))
}

func TestNewReaderShortInput(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("PMT")))
	assert.ErrorIs(t, err, ErrShortHeader)
}
