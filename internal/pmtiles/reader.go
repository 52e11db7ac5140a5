package pmtiles

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// maxDepth bounds leaf directory recursion.
const maxDepth = 3

// Reader reads tiles from an archive.
type Reader struct {
	r      io.ReaderAt
	header Header
}

// NewReader reads the header of the archive behind r.
func NewReader(r io.ReaderAt) (*Reader, error) {
	buf := make([]byte, HeaderLen)
	if n, err := r.ReadAt(buf, 0); n < HeaderLen {
		if err == nil || err == io.EOF {
			return nil, ErrShortHeader
		}
		return nil, fmt.Errorf("pmtiles: read header: %w", err)
	}
	h, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	return &Reader{r: r, header: h}, nil
}

// File is an archive opened from disk.
type File struct {
	*Reader
	f *os.File
}

// Open opens the archive at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{Reader: r, f: f}, nil
}

// Close closes the underlying file.
func (f *File) Close() error { return f.f.Close() }

// Header returns the archive header.
func (r *Reader) Header() Header { return r.header }

// Metadata decodes the JSON metadata block.
func (r *Reader) Metadata() (map[string]any, error) {
	b, err := r.section(r.header.MetadataOffset, r.header.MetadataLength)
	if err != nil {
		return nil, err
	}
	plain, err := decompress(b, r.header.InternalCompression)
	if err != nil {
		return nil, err
	}
	meta := map[string]any{}
	if len(plain) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(plain, &meta); err != nil {
		return nil, fmt.Errorf("pmtiles: metadata: %w", err)
	}
	return meta, nil
}

// Tile returns the stored bytes of z/x/y, still compressed with the
// archive's tile compression. ok is false when the archive has no such tile.
func (r *Reader) Tile(z uint8, x, y uint32) (data []byte, ok bool, err error) {
	id := ZxyToID(z, x, y)
	offset, length := r.header.RootOffset, r.header.RootLength
	for depth := 0; depth <= maxDepth; depth++ {
		raw, err := r.section(offset, length)
		if err != nil {
			return nil, false, err
		}
		entries, err := DecodeDirectory(raw, r.header.InternalCompression)
		if err != nil {
			return nil, false, err
		}
		e, found := FindTile(entries, id)
		if !found {
			return nil, false, nil
		}
		if e.RunLength > 0 {
			data, err := r.section(r.header.TileDataOffset+e.Offset, uint64(e.Length))
			return data, err == nil, err
		}
		offset, length = r.header.LeafDirectoryOffset+e.Offset, uint64(e.Length)
	}
	return nil, false, fmt.Errorf("pmtiles: leaf directories nested deeper than %d", maxDepth)
}

func (r *Reader) section(offset, length uint64) ([]byte, error) {
	b := make([]byte, length)
	if length == 0 {
		return b, nil
	}
	if n, err := r.r.ReadAt(b, int64(offset)); n < len(b) {
		return nil, fmt.Errorf("pmtiles: read %d bytes at %d: %w", length, offset, err)
	}
	return b, nil
}
