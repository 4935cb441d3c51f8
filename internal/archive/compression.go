package archive

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"sam-backup/internal/errors"
)

// CompressionType identifies the at-rest compression algorithm
type CompressionType string

const (
	CompressionTypeNone CompressionType = "none"
	CompressionTypeGzip CompressionType = "gzip"
	CompressionTypeLZ4  CompressionType = "lz4"
	CompressionTypeZstd CompressionType = "zstd"
)

// IsValidCompressionType reports whether ct names a supported algorithm
func IsValidCompressionType(ct CompressionType) bool {
	switch ct {
	case CompressionTypeNone, CompressionTypeGzip, CompressionTypeLZ4, CompressionTypeZstd:
		return true
	default:
		return false
	}
}

// Compress compresses data with the given algorithm. CompressionTypeNone
// returns the input unchanged.
func Compress(data []byte, algorithm CompressionType) ([]byte, error) {
	switch algorithm {
	case CompressionTypeNone, "":
		return data, nil
	case CompressionTypeGzip:
		return gzipCompress(data)
	case CompressionTypeLZ4:
		return lz4Compress(data)
	case CompressionTypeZstd:
		return zstdCompress(data)
	default:
		return nil, errors.NewStorageError(
			fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
}

// Decompress reverses Compress for the given algorithm
func Decompress(data []byte, algorithm CompressionType) ([]byte, error) {
	switch algorithm {
	case CompressionTypeNone, "":
		return data, nil
	case CompressionTypeGzip:
		return gzipDecompress(data)
	case CompressionTypeLZ4:
		return lz4Decompress(data)
	case CompressionTypeZstd:
		return zstdDecompress(data)
	default:
		return nil, errors.NewStorageError(
			fmt.Sprintf("unsupported compression algorithm: %s", algorithm), nil)
	}
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := gzip.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, errors.NewStorageError("failed to write gzip data", err)
	}
	if err := writer.Close(); err != nil {
		return nil, errors.NewStorageError("failed to close gzip writer", err)
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewStorageError("failed to create gzip reader", err)
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewStorageError("failed to decompress gzip data", err)
	}
	return out, nil
}

func lz4Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, errors.NewStorageError("failed to write lz4 data", err)
	}
	if err := writer.Close(); err != nil {
		return nil, errors.NewStorageError("failed to close lz4 writer", err)
	}
	return buf.Bytes(), nil
}

func lz4Decompress(data []byte) ([]byte, error) {
	reader := lz4.NewReader(bytes.NewReader(data))
	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewStorageError("failed to decompress lz4 data", err)
	}
	return out, nil
}

func zstdCompress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, errors.NewStorageError("failed to create zstd encoder", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func zstdDecompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.NewStorageError("failed to create zstd decoder", err)
	}
	defer decoder.Close()

	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.NewStorageError("failed to decompress zstd data", err)
	}
	return out, nil
}
