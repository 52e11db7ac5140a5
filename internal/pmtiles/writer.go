package pmtiles

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"sort"

	"github.com/paulmach/orb"
)

// Tile is one encoded tile to be written.
type Tile struct {
	Z    uint8
	X, Y uint32
	Data []byte
}

// WriteOptions describes the archive being written.
type WriteOptions struct {
	TileType        TileType
	TileCompression Compression
	MinZoom         uint8
	MaxZoom         uint8
	Bounds          orb.Bound
	Metadata        map[string]any
}

// ErrNoTiles is returned when there is nothing to write.
var ErrNoTiles = errors.New("pmtiles: no tiles to write")

// Write writes a clustered archive holding tiles. Everything fits in the
// root directory, and identical tile blobs are stored once.
func Write(w io.Writer, tiles []Tile, opts WriteOptions) error {
	if len(tiles) == 0 {
		return ErrNoTiles
	}

	type keyed struct {
		id   uint64
		data []byte
	}
	sorted := make([]keyed, len(tiles))
	for i, t := range tiles {
		sorted[i] = keyed{id: ZxyToID(t.Z, t.X, t.Y), data: t.Data}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].id < sorted[j].id })

	var (
		blobs    bytes.Buffer
		entries  []Entry
		seen     = map[uint64]Entry{}
		contents uint64
	)
	for _, t := range sorted {
		if n := len(entries); n > 0 && entries[n-1].TileID == t.id {
			return fmt.Errorf("pmtiles: duplicate tile id %d", t.id)
		}
		sum := hash(t.data)
		if prev, ok := seen[sum]; ok && bytes.Equal(blobs.Bytes()[prev.Offset:prev.Offset+uint64(prev.Length)], t.data) {
			last := &entries[len(entries)-1]
			if last.Offset == prev.Offset && last.TileID+uint64(last.RunLength) == t.id {
				last.RunLength++
				continue
			}
			entries = append(entries, Entry{TileID: t.id, Offset: prev.Offset, Length: prev.Length, RunLength: 1})
			continue
		}
		e := Entry{TileID: t.id, Offset: uint64(blobs.Len()), Length: uint32(len(t.data)), RunLength: 1}
		blobs.Write(t.data)
		contents++
		seen[sum] = e
		entries = append(entries, e)
	}

	root, err := EncodeDirectory(entries, Gzip)
	if err != nil {
		return err
	}
	meta := opts.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("pmtiles: metadata: %w", err)
	}
	metaBytes, err := compress(metaJSON, Gzip)
	if err != nil {
		return err
	}

	h := Header{
		SpecVersion:         version,
		RootOffset:          HeaderLen,
		RootLength:          uint64(len(root)),
		MetadataOffset:      HeaderLen + uint64(len(root)),
		MetadataLength:      uint64(len(metaBytes)),
		AddressedTilesCount: uint64(len(sorted)),
		TileEntriesCount:    uint64(len(entries)),
		TileContentsCount:   contents,
		Clustered:           true,
		InternalCompression: Gzip,
		TileCompression:     opts.TileCompression,
		TileType:            opts.TileType,
		MinZoom:             opts.MinZoom,
		MaxZoom:             opts.MaxZoom,
		CenterZoom:          opts.MinZoom,
	}
	h.TileDataOffset = h.MetadataOffset + h.MetadataLength
	h.TileDataLength = uint64(blobs.Len())
	h.SetBounds(opts.Bounds)

	for _, part := range [][]byte{EncodeHeader(h), root, metaBytes, blobs.Bytes()} {
		if _, err := w.Write(part); err != nil {
			return err
		}
	}
	return nil
}

func hash(b []byte) uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}
