// Package pmtiles reads and writes PMTiles v3 archives: a fixed header, a
// compressed tile directory, JSON metadata and the tile blobs, addressed by
// Hilbert tile id so that a browser can fetch single tiles with HTTP range
// requests.
//
// Format: https://github.com/protomaps/PMTiles/blob/main/spec/v3/spec.md
package pmtiles

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Compression is the compression applied to directories, metadata or tiles.
type Compression uint8

const (
	UnknownCompression Compression = 0
	NoCompression      Compression = 1
	Gzip               Compression = 2
	Brotli             Compression = 3
	Zstd               Compression = 4
)

func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Zstd:
		return "zstd"
	}
	return "unknown"
}

// TileType is the format of the tile blobs.
type TileType uint8

const (
	UnknownTileType TileType = 0
	Mvt             TileType = 1
	Png             TileType = 2
	Jpeg            TileType = 3
	Webp            TileType = 4
	Avif            TileType = 5
)

func (t TileType) String() string {
	switch t {
	case Mvt:
		return "mvt"
	case Png:
		return "png"
	case Jpeg:
		return "jpg"
	case Webp:
		return "webp"
	case Avif:
		return "avif"
	}
	return "unknown"
}

// HeaderLen is the size of the fixed binary header.
const HeaderLen = 127

const (
	magic   = "PMTiles"
	version = 3
	e7      = 10_000_000
)

var (
	ErrShortHeader = errors.New("pmtiles: buffer too small for header")
	ErrBadMagic    = errors.New("pmtiles: magic number not detected")
)

// Header is the archive header.
type Header struct {
	SpecVersion         uint8
	RootOffset          uint64
	RootLength          uint64
	MetadataOffset      uint64
	MetadataLength      uint64
	LeafDirectoryOffset uint64
	LeafDirectoryLength uint64
	TileDataOffset      uint64
	TileDataLength      uint64
	AddressedTilesCount uint64
	TileEntriesCount    uint64
	TileContentsCount   uint64
	Clustered           bool
	InternalCompression Compression
	TileCompression     Compression
	TileType            TileType
	MinZoom             uint8
	MaxZoom             uint8
	MinLonE7            int32
	MinLatE7            int32
	MaxLonE7            int32
	MaxLatE7            int32
	CenterZoom          uint8
	CenterLonE7         int32
	CenterLatE7         int32
}

// Bounds returns the archive extent in degrees.
func (h Header) Bounds() orb.Bound {
	return orb.Bound{
		Min: orb.Point{fromE7(h.MinLonE7), fromE7(h.MinLatE7)},
		Max: orb.Point{fromE7(h.MaxLonE7), fromE7(h.MaxLatE7)},
	}
}

// SetBounds stores b as the archive extent and centers the archive on it.
func (h *Header) SetBounds(b orb.Bound) {
	h.MinLonE7, h.MinLatE7 = toE7(b.Min.Lon()), toE7(b.Min.Lat())
	h.MaxLonE7, h.MaxLatE7 = toE7(b.Max.Lon()), toE7(b.Max.Lat())
	c := b.Center()
	h.CenterLonE7, h.CenterLatE7 = toE7(c.Lon()), toE7(c.Lat())
}

// Center returns the default view center.
func (h Header) Center() orb.Point {
	return orb.Point{fromE7(h.CenterLonE7), fromE7(h.CenterLatE7)}
}

func toE7(deg float64) int32   { return int32(math.Round(deg * e7)) }
func fromE7(v int32) float64    { return float64(v) / e7 }

// EncodeHeader serializes h. The version byte is always 3.
func EncodeHeader(h Header) []byte {
	b := make([]byte, HeaderLen)
	copy(b[0:7], magic)
	b[7] = version

	le := binary.LittleEndian
	for i, v := range []uint64{
		h.RootOffset, h.RootLength,
		h.MetadataOffset, h.MetadataLength,
		h.LeafDirectoryOffset, h.LeafDirectoryLength,
		h.TileDataOffset, h.TileDataLength,
		h.AddressedTilesCount, h.TileEntriesCount, h.TileContentsCount,
	} {
		le.PutUint64(b[8+i*8:], v)
	}
	if h.Clustered {
		b[96] = 1
	}
	b[97] = uint8(h.InternalCompression)
	b[98] = uint8(h.TileCompression)
	b[99] = uint8(h.TileType)
	b[100] = h.MinZoom
	b[101] = h.MaxZoom
	le.PutUint32(b[102:], uint32(h.MinLonE7))
	le.PutUint32(b[106:], uint32(h.MinLatE7))
	le.PutUint32(b[110:], uint32(h.MaxLonE7))
	le.PutUint32(b[114:], uint32(h.MaxLatE7))
	b[118] = h.CenterZoom
	le.PutUint32(b[119:], uint32(h.CenterLonE7))
	le.PutUint32(b[123:], uint32(h.CenterLatE7))
	return b
}

// DecodeHeader parses the first HeaderLen bytes of an archive.
func DecodeHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderLen {
		return h, ErrShortHeader
	}
	if string(b[0:7]) != magic {
		return h, ErrBadMagic
	}
	h.SpecVersion = b[7]
	if h.SpecVersion != version {
		return h, fmt.Errorf("pmtiles: unsupported spec version %d", h.SpecVersion)
	}

	le := binary.LittleEndian
	u64 := func(i int) uint64 { return le.Uint64(b[8+i*8:]) }
	h.RootOffset, h.RootLength = u64(0), u64(1)
	h.MetadataOffset, h.MetadataLength = u64(2), u64(3)
	h.LeafDirectoryOffset, h.LeafDirectoryLength = u64(4), u64(5)
	h.TileDataOffset, h.TileDataLength = u64(6), u64(7)
	h.AddressedTilesCount, h.TileEntriesCount, h.TileContentsCount = u64(8), u64(9), u64(10)
	h.Clustered = b[96] == 1
	h.InternalCompression = Compression(b[97])
	h.TileCompression = Compression(b[98])
	h.TileType = TileType(b[99])
	h.MinZoom = b[100]
	h.MaxZoom = b[101]
	h.MinLonE7 = int32(le.Uint32(b[102:]))
	h.MinLatE7 = int32(le.Uint32(b[106:]))
	h.MaxLonE7 = int32(le.Uint32(b[110:]))
	h.MaxLatE7 = int32(le.Uint32(b[114:]))
	h.CenterZoom = b[118]
	h.CenterLonE7 = int32(le.Uint32(b[119:]))
	h.CenterLatE7 = int32(le.Uint32(b[123:]))
	return h, nil
}
