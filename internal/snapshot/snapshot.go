// Package snapshot encodes collections into self-describing blobs.
//
// Layout:
//
//	magic "IHCV" | version u8 | compression u8 | uncompressed size u32 LE | body
//
// The body is the JSON encoding of Snapshot, optionally compressed with LZ4
// or zstd.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/SRafi007/intellihire-ai/distance"
	"github.com/SRafi007/intellihire-ai/model"
)

// Magic identifies a snapshot blob.
var Magic = [4]byte{'I', 'H', 'C', 'V'}

// Version is the current format version.
const Version uint8 = 1

// HeaderSize is the size of the fixed header in bytes.
const HeaderSize = 10

var (
	// ErrBadMagic is returned when data is not a snapshot.
	ErrBadMagic = errors.New("snapshot: bad magic")
	// ErrUnsupportedVersion is returned for snapshots written by a newer format.
	ErrUnsupportedVersion = errors.New("snapshot: unsupported version")
	// ErrCorrupt is returned when the header or body cannot be decoded.
	ErrCorrupt = errors.New("snapshot: corrupt")
)

// Snapshot is the persisted state of one collection.
type Snapshot struct {
	Name      string          `json:"name"`
	Dimension int             `json:"dimension"`
	Metric    distance.Metric `json:"metric"`
	Records   []model.Record  `json:"records"`
}

// Encode serializes s with the requested compression. Bodies that do not
// compress well are stored uncompressed.
func Encode(s *Snapshot, c Compression) ([]byte, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode %q: %w", s.Name, err)
	}
	if uint64(len(body)) > math.MaxUint32 {
		return nil, fmt.Errorf("snapshot: %q is too large (%d bytes)", s.Name, len(body))
	}

	packed, used, err := compress(body, c)
	if err != nil {
		return nil, fmt.Errorf("snapshot: compress %q: %w", s.Name, err)
	}

	var buf bytes.Buffer
	buf.Grow(HeaderSize + len(packed))
	buf.Write(Magic[:])
	buf.WriteByte(Version)
	buf.WriteByte(byte(used))
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(body)))
	buf.Write(size[:])
	buf.Write(packed)
	return buf.Bytes(), nil
}

// Header is the decoded fixed header.
type Header struct {
	Version          uint8
	Compression      Compression
	UncompressedSize uint32
}

// ReadHeader decodes the fixed header of data.
func ReadHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorrupt, len(data))
	}
	if !bytes.Equal(data[:4], Magic[:]) {
		return Header{}, ErrBadMagic
	}
	h := Header{
		Version:          data[4],
		Compression:      Compression(data[5]),
		UncompressedSize: binary.LittleEndian.Uint32(data[6:10]),
	}
	if h.Version == 0 || h.Version > Version {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}

// Decode parses a blob produced by Encode.
func Decode(data []byte) (*Snapshot, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}

	body, err := decompress(data[HeaderSize:], h.Compression, h.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	var s Snapshot
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if s.Name == "" || s.Dimension <= 0 {
		return nil, fmt.Errorf("%w: missing name or dimension", ErrCorrupt)
	}
	return &s, nil
}
