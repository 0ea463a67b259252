// Package pageio defines the on-object layout shared by the object-store
// datasources: page object naming, optional compression and line splitting.
// Exporters producing page objects for source/minio or source/s3 use the
// same helpers to write them.
package pageio

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the codec applied to a page object.
type Compression uint8

const (
	// CompressionNone stores page objects as plain JSONL.
	CompressionNone Compression = 0
	// CompressionLZ4 stores page objects as LZ4 frames (fast, hot data).
	CompressionLZ4 Compression = 1
	// CompressionZstd stores page objects as zstd frames (better ratio).
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// Ext returns the key suffix appended after ".jsonl".
func (c Compression) Ext() string {
	switch c {
	case CompressionLZ4:
		return ".lz4"
	case CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

// CompressionForKey derives the codec from an object key's suffix.
func CompressionForKey(key string) Compression {
	switch {
	case strings.HasSuffix(key, ".lz4"):
		return CompressionLZ4
	case strings.HasSuffix(key, ".zst"):
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// ObjectKey builds the key of the page object with the given index, for
// example "rows/000042.jsonl.zst". Fixed-width indexes keep lexicographic
// listing order equal to page order.
func ObjectKey(prefix string, index int, comp Compression) string {
	return fmt.Sprintf("%s%06d.jsonl%s", prefix, index, comp.Ext())
}

// zstd encoder/decoder pools for efficiency
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
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Compress encodes data with the given codec. The output of CompressionLZ4
// and CompressionZstd is a standard frame, readable by the matching CLI
// tools, so page objects can be produced outside this module.
func Compress(data []byte, comp Compression) ([]byte, error) {
	switch comp {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("unknown compression: %s", comp)
	}
}

// Decompress decodes a page object body.
func Decompress(data []byte, comp Compression) ([]byte, error) {
	switch comp {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	case CompressionZstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		return dec.DecodeAll(data, nil)
	default:
		return nil, fmt.Errorf("unknown compression: %s", comp)
	}
}

// Lines iterates the non-empty lines of a decompressed page object. CRLF
// line endings are tolerated.
func Lines(data []byte) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for len(data) > 0 {
			line := data
			if i := bytes.IndexByte(data, '\n'); i >= 0 {
				line, data = data[:i], data[i+1:]
			} else {
				data = nil
			}
			line = bytes.TrimSuffix(line, []byte{'\r'})
			if len(line) == 0 {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}
