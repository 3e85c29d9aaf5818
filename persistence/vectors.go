package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Vector file format:
//
//	offset 0: N (uint32, little-endian)
//	offset 4: d (uint32, little-endian)
//	offset 8: N*d float32, row-major, little-endian
//
// The file size must equal 8 + 4*N*d bytes exactly.

// vectorHeaderSize is the fixed header length of the vector file.
const vectorHeaderSize = 8

// VectorFileSize returns the exact byte size of a vector file holding n
// vectors of dimension d.
func VectorFileSize(n, d int) int64 {
	return vectorHeaderSize + 4*int64(n)*int64(d)
}

// WriteVectors writes rows in the vector file format. All rows must share
// one dimension, and every component must be finite: non-finite values are
// rejected here, at write time, never at read time.
func WriteVectors(w io.Writer, rows [][]float32) error {
	n := len(rows)
	d := 0
	if n > 0 {
		d = len(rows[0])
	}

	for i, row := range rows {
		if len(row) != d {
			return fmt.Errorf("%w: row %d has %d components, want %d", ErrDimensionMismatch, i, len(row), d)
		}
		for j, v := range row {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return fmt.Errorf("%w: row %d component %d", ErrNonFinite, i, j)
			}
		}
	}

	bw := bufio.NewWriter(w)

	var hdr [vectorHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(n))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(d))
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}

	var buf [4]byte
	for _, row := range rows {
		for _, v := range row {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
			if _, err := bw.Write(buf[:]); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}

// WriteVectorsFile writes rows to path in the vector file format.
func WriteVectorsFile(path string, rows [][]float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteVectors(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadVectors reads a complete vector file from r. The stream must end
// exactly after the declared payload: a short stream fails with
// ErrFormatTruncated, extra bytes fail with ErrFormatTrailingBytes.
func ReadVectors(r io.Reader) ([][]float32, error) {
	br := bufio.NewReader(r)

	var hdr [vectorHeaderSize]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrFormatTruncated, err)
	}
	n := int(binary.LittleEndian.Uint32(hdr[0:]))
	d := int(binary.LittleEndian.Uint32(hdr[4:]))

	if n > 0 && d == 0 {
		return nil, fmt.Errorf("%w: zero dimension with %d vectors", ErrFormatInvalid, n)
	}

	payload := make([]byte, 4*n*d)
	if _, err := io.ReadFull(br, payload); err != nil {
		return nil, fmt.Errorf("%w: vector data: %v", ErrFormatTruncated, err)
	}

	if _, err := br.ReadByte(); err != io.EOF {
		return nil, ErrFormatTrailingBytes
	}

	rows := make([][]float32, n)
	off := 0
	for i := range rows {
		row := make([]float32, d)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(payload[off:]))
			off += 4
		}
		rows[i] = row
	}

	return rows, nil
}

// ReadVectorsFile reads a vector file from path. The stream checks in
// ReadVectors enforce the exact 8 + 4*N*d file size.
func ReadVectorsFile(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadVectors(f)
}
