package pmtiles

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
)

// Entry is one directory entry. A RunLength of zero marks a pointer to a
// leaf directory instead of a tile.
type Entry struct {
	TileID    uint64
	Offset    uint64
	Length    uint32
	RunLength uint32
}

// EncodeDirectory serializes entries, which must be sorted by TileID.
func EncodeDirectory(entries []Entry, c Compression) ([]byte, error) {
	var raw bytes.Buffer
	tmp := make([]byte, binary.MaxVarintLen64)
	put := func(v uint64) {
		n := binary.PutUvarint(tmp, v)
		raw.Write(tmp[:n])
	}

	put(uint64(len(entries)))
	var last uint64
	for _, e := range entries {
		put(e.TileID - last)
		last = e.TileID
	}
	for _, e := range entries {
		put(uint64(e.RunLength))
	}
	for _, e := range entries {
		put(uint64(e.Length))
	}
	for i, e := range entries {
		if i > 0 && e.Offset == entries[i-1].Offset+uint64(entries[i-1].Length) {
			put(0)
		} else {
			put(e.Offset + 1)
		}
	}
	return compress(raw.Bytes(), c)
}

// DecodeDirectory parses a serialized directory.
func DecodeDirectory(data []byte, c Compression) ([]Entry, error) {
	plain, err := decompress(data, c)
	if err != nil {
		return nil, err
	}
	r := bufio.NewReader(bytes.NewReader(plain))
	next := func() (uint64, error) { return binary.ReadUvarint(r) }

	n, err := next()
	if err != nil {
		return nil, fmt.Errorf("pmtiles: directory length: %w", err)
	}
	if n > uint64(len(plain)) {
		return nil, fmt.Errorf("pmtiles: directory claims %d entries in %d bytes", n, len(plain))
	}
	entries := make([]Entry, n)

	var last uint64
	for i := range entries {
		d, err := next()
		if err != nil {
			return nil, fmt.Errorf("pmtiles: tile id %d: %w", i, err)
		}
		last += d
		entries[i].TileID = last
	}
	for i := range entries {
		v, err := next()
		if err != nil {
			return nil, fmt.Errorf("pmtiles: run length %d: %w", i, err)
		}
		entries[i].RunLength = uint32(v)
	}
	for i := range entries {
		v, err := next()
		if err != nil {
			return nil, fmt.Errorf("pmtiles: length %d: %w", i, err)
		}
		entries[i].Length = uint32(v)
	}
	for i := range entries {
		v, err := next()
		if err != nil {
			return nil, fmt.Errorf("pmtiles: offset %d: %w", i, err)
		}
		if i > 0 && v == 0 {
			entries[i].Offset = entries[i-1].Offset + uint64(entries[i-1].Length)
		} else {
			entries[i].Offset = v - 1
		}
	}
	return entries, nil
}

// FindTile returns the entry covering id: the tile itself, a run that
// includes it, or the leaf directory that may hold it.
func FindTile(entries []Entry, id uint64) (Entry, bool) {
	lo, hi := 0, len(entries)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case id > entries[mid].TileID:
			lo = mid + 1
		case id < entries[mid].TileID:
			hi = mid - 1
		default:
			return entries[mid], true
		}
	}
	if hi >= 0 {
		e := entries[hi]
		if e.RunLength == 0 || id-e.TileID < uint64(e.RunLength) {
			return e, true
		}
	}
	return Entry{}, false
}

func compress(b []byte, c Compression) ([]byte, error) {
	switch c {
	case NoCompression:
		return b, nil
	case Gzip:
		var out bytes.Buffer
		w, err := gzip.NewWriterLevel(&out, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(b); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	}
	return nil, fmt.Errorf("pmtiles: %s compression not supported", c)
}

func decompress(b []byte, c Compression) ([]byte, error) {
	switch c {
	case NoCompression:
		return b, nil
	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}
	return nil, fmt.Errorf("pmtiles: %s compression not supported", c)
}
