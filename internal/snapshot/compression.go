package snapshot

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression defines the algorithm applied to a snapshot body.
type Compression uint8

const (
	// CompressionNone stores the body as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd (better ratio).
	CompressionZSTD Compression = 2
)

// String returns the name of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name. The empty string means none.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd", "zstandard":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("unsupported compression %q", s)
	}
}

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(math.MaxUint32))
	return dec
}

// compress returns the compressed body and the compression actually used.
// When compression does not save at least 10% the body is stored as is.
func compress(data []byte, c Compression) ([]byte, Compression, error) {
	if c == CompressionNone || len(data) == 0 {
		return data, CompressionNone, nil
	}

	var out []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, 0, err
		}
		out = buf[:n] // n == 0 means incompressible
	case CompressionZSTD:
		enc := getZstdEncoder()
		out = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, 0, fmt.Errorf("unsupported compression %s", c)
	}

	if len(out) == 0 || float64(len(out)) > float64(len(data))*0.9 {
		return data, CompressionNone, nil
	}
	return out, c, nil
}

// maxExpansion bounds the size a header may declare relative to the
// compressed body. An LZ4 block cannot expand by more than 255:1.
const maxExpansion = 255

// decompress restores a body of the given uncompressed size.
func decompress(data []byte, c Compression, size uint32) ([]byte, error) {
	bound := uint64(len(data)) * maxExpansion

	switch c {
	case CompressionNone:
		if uint32(len(data)) != size {
			return nil, errors.New("body size mismatch")
		}
		return data, nil

	case CompressionLZ4:
		if uint64(size) > bound {
			return nil, fmt.Errorf("declared size %d exceeds lz4 bound for %d bytes", size, len(data))
		}
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(data, out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != size {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil

	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		// zstd can exceed the LZ4 ratio, so the declared size only caps the
		// initial buffer and the decoder enforces the hard limit.
		out, err := dec.DecodeAll(data, make([]byte, 0, min(uint64(size), bound)))
		if err != nil {
			return nil, err
		}
		if uint32(len(out)) != size {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}
