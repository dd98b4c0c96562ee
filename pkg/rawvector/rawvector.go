// Package rawvector is an external-interop vector store: a flat binary file
// of fixed-dimension f32 records behind an 8-byte header, for feeding
// vectors to or from tools that don't speak the engine's snapshot format.
package rawvector

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/blevesearch/mmap-go"

	"github.com/arashan/vecdb/pkg/vdberrors"
	"github.com/arashan/vecdb/pkg/vector"
)

// headerSize is [dimension uint32][count uint32], little-endian.
const headerSize = 8

// Storage is a file-backed vector array: a header followed by
// count*dimension*4 bytes of contiguous f32 data.
type Storage struct {
	path      string
	dimension int
	count     int
}

// Create truncates (or creates) path and writes an empty header for the
// given dimension.
func Create(path string, dimension int) (*Storage, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, vdberrors.IO("create raw vector file", err)
	}
	defer f.Close()

	header := encodeHeader(dimension, 0)
	if _, err := f.Write(header[:]); err != nil {
		return nil, vdberrors.IO("write raw vector header", err)
	}
	if err := f.Sync(); err != nil {
		return nil, vdberrors.IO("fsync raw vector header", err)
	}

	return &Storage{path: path, dimension: dimension}, nil
}

// Open reads the header of an existing file and returns a Storage handle
// positioned at the reported count.
func Open(path string) (*Storage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, vdberrors.IO("open raw vector file", err)
	}
	defer f.Close()

	var header [headerSize]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return nil, vdberrors.Storage("raw vector file too small for header", err)
	}

	dimension, count := decodeHeader(header[:])
	return &Storage{path: path, dimension: dimension, count: count}, nil
}

// Append writes vec to the end of the file and updates the on-disk count,
// fsyncing before it returns.
func (s *Storage) Append(vec vector.Vector) (int, error) {
	if vec.Dimension() != s.dimension {
		return 0, vdberrors.DimMismatch(s.dimension, vec.Dimension())
	}

	f, err := os.OpenFile(s.path, os.O_RDWR, 0o644)
	if err != nil {
		return 0, vdberrors.IO("open raw vector file for append", err)
	}
	defer f.Close()

	vecBytes := s.dimension * 4
	offset := int64(headerSize + s.count*vecBytes)
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, vdberrors.IO("seek raw vector file", err)
	}

	buf := make([]byte, vecBytes)
	for i, val := range vec.Data {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], floatBits(val))
	}
	if _, err := f.Write(buf); err != nil {
		return 0, vdberrors.IO("write raw vector data", err)
	}

	s.count++
	header := encodeHeader(s.dimension, s.count)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, vdberrors.IO("seek raw vector header", err)
	}
	if _, err := f.Write(header[:]); err != nil {
		return 0, vdberrors.IO("update raw vector header", err)
	}
	if err := f.Sync(); err != nil {
		return 0, vdberrors.IO("fsync raw vector file", err)
	}

	return s.count - 1, nil
}

// Get reads the vector at index using plain file I/O.
func (s *Storage) Get(index int) (vector.Vector, error) {
	if index < 0 || index >= s.count {
		return vector.Vector{}, vdberrors.Index(fmt.Sprintf("index %d out of range (count=%d)", index, s.count))
	}

	f, err := os.Open(s.path)
	if err != nil {
		return vector.Vector{}, vdberrors.IO("open raw vector file", err)
	}
	defer f.Close()

	vecBytes := s.dimension * 4
	offset := int64(headerSize + index*vecBytes)
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return vector.Vector{}, vdberrors.IO("seek raw vector file", err)
	}

	buf := make([]byte, vecBytes)
	if _, err := io.ReadFull(f, buf); err != nil {
		return vector.Vector{}, vdberrors.IO("read raw vector data", err)
	}
	return vector.New(decodeFloats(buf, s.dimension)), nil
}

// GetMmap reads the vector at index through a read-only memory mapping,
// falling back to Get if the mapping cannot be established.
func (s *Storage) GetMmap(index int) (vector.Vector, error) {
	if index < 0 || index >= s.count {
		return vector.Vector{}, vdberrors.Index(fmt.Sprintf("index %d out of range (count=%d)", index, s.count))
	}

	f, err := os.Open(s.path)
	if err != nil {
		return s.Get(index)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return s.Get(index)
	}
	defer m.Unmap()

	vecBytes := s.dimension * 4
	offset := headerSize + index*vecBytes
	if offset+vecBytes > len(m) {
		return vector.Vector{}, vdberrors.Storage("raw vector file truncated")
	}
	return vector.New(decodeFloats(m[offset:offset+vecBytes], s.dimension)), nil
}

// Count returns the number of stored vectors.
func (s *Storage) Count() int { return s.count }

// Dimension returns the fixed record width.
func (s *Storage) Dimension() int { return s.dimension }

func encodeHeader(dimension, count int) [headerSize]byte {
	var buf [headerSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(dimension))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(count))
	return buf
}

func decodeHeader(data []byte) (dimension, count int) {
	dimension = int(binary.LittleEndian.Uint32(data[0:4]))
	count = int(binary.LittleEndian.Uint32(data[4:8]))
	return
}

func decodeFloats(buf []byte, dimension int) []float32 {
	out := make([]float32, dimension)
	for i := 0; i < dimension; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4 : i*4+4]))
	}
	return out
}

func floatBits(v float32) uint32 {
	return math.Float32bits(v)
}
