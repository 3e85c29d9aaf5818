package persistence

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Optional zstd container around index files. The inner bytes are the exact
// index format; the container only exists so large indices ship smaller.
// Loaders detect the container by the zstd frame magic and unwrap it before
// parsing.

// zstdMagic is the little-endian zstd frame magic (0xFD2FB528).
var zstdMagic = [4]byte{0x28, 0xB5, 0x2F, 0xFD}

// IsZstdFrame reports whether b starts with a zstd frame magic.
func IsZstdFrame(b []byte) bool {
	return len(b) >= 4 &&
		b[0] == zstdMagic[0] && b[1] == zstdMagic[1] &&
		b[2] == zstdMagic[2] && b[3] == zstdMagic[3]
}

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

// Compress wraps the bytes read from src in a zstd frame written to dst.
func Compress(dst io.Writer, src io.Reader) error {
	enc := getZstdEncoder()
	defer zstdEncoderPool.Put(enc)

	enc.Reset(dst)
	if _, err := io.Copy(enc, src); err != nil {
		return err
	}
	return enc.Close()
}

// Decompress unwraps a zstd frame read from src into dst.
func Decompress(dst io.Writer, src io.Reader) error {
	dec := getZstdDecoder()
	defer zstdDecoderPool.Put(dec)

	if err := dec.Reset(src); err != nil {
		return err
	}
	_, err := io.Copy(dst, dec)
	return err
}
