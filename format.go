package vamana

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/hupe1980/vamana/distance"
	"github.com/hupe1980/vamana/internal/graph"
	"github.com/hupe1980/vamana/internal/vectorstore"
	"github.com/hupe1980/vamana/persistence"
)

// Index file format (all little-endian):
//
//	magic    8 bytes ASCII "DISKANN1"
//	header   d u32, N u32, R u32, LBuild u32, alpha f32,
//	         distance kind u8 {0=L2, 1=IP, 2=cosine}, medoid u32, seed u64
//	vectors  N*d float32, row-major
//	graph    per node in id order: degree u8, then degree u32 ids
//	trailer  u64 CRC-64 of header + vector block + graph block
//	         (everything between magic and trailer)
const (
	// FormatMagic identifies index files.
	FormatMagic = "DISKANN1"

	formatMagicSize   = 8
	formatHeaderSize  = 4 + 4 + 4 + 4 + 4 + 1 + 4 + 8
	formatTrailerSize = 8
)

// Save serializes the index to w in the byte-exact format above.
func (ix *Index) Save(w io.Writer) error {
	start := time.Now()
	err := ix.save(w)
	ix.opts.metrics.RecordSave(time.Since(start), err)
	return err
}

func (ix *Index) save(w io.Writer) error {
	if _, err := io.WriteString(w, FormatMagic); err != nil {
		return translateError(err)
	}

	cw := persistence.NewChecksumWriter(w)

	var hdr [formatHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(ix.meta.Dim))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(ix.meta.Count))
	binary.LittleEndian.PutUint32(hdr[8:], uint32(ix.meta.R))
	binary.LittleEndian.PutUint32(hdr[12:], uint32(ix.meta.LBuild))
	binary.LittleEndian.PutUint32(hdr[16:], math.Float32bits(ix.meta.Alpha))
	hdr[20] = byte(ix.meta.Metric)
	binary.LittleEndian.PutUint32(hdr[21:], ix.meta.Medoid)
	binary.LittleEndian.PutUint64(hdr[25:], ix.meta.Seed)
	if _, err := cw.Write(hdr[:]); err != nil {
		return translateError(err)
	}

	// Vector block.
	rowBuf := make([]byte, 4*ix.meta.Dim)
	for v := 0; v < ix.meta.Count; v++ {
		row := ix.store.Row(uint32(v))
		for j, f := range row {
			binary.LittleEndian.PutUint32(rowBuf[4*j:], math.Float32bits(f))
		}
		if _, err := cw.Write(rowBuf); err != nil {
			return translateError(err)
		}
	}

	// Graph block.
	edgeBuf := make([]byte, 1+4*ix.meta.R)
	for v := 0; v < ix.meta.Count; v++ {
		neighbors := ix.graph.Neighbors(uint32(v))
		edgeBuf[0] = byte(len(neighbors))
		for j, id := range neighbors {
			binary.LittleEndian.PutUint32(edgeBuf[1+4*j:], id)
		}
		if _, err := cw.Write(edgeBuf[:1+4*len(neighbors)]); err != nil {
			return translateError(err)
		}
	}

	var trailer [formatTrailerSize]byte
	binary.LittleEndian.PutUint64(trailer[:], cw.Sum())
	if _, err := w.Write(trailer[:]); err != nil {
		return translateError(err)
	}

	return nil
}

// SaveFile writes the index to path.
func (ix *Index) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return translateError(err)
	}
	if err := ix.Save(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return translateError(err)
	}
	ix.opts.logger.LogSave(context.Background(), path, nil)
	return nil
}

// SaveFileCompressed writes the index to path wrapped in a zstd container.
// Load and LoadFile detect the container automatically.
func (ix *Index) SaveFileCompressed(path string) error {
	var raw bytes.Buffer
	if err := ix.Save(&raw); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return translateError(err)
	}
	if err := persistence.Compress(f, &raw); err != nil {
		f.Close()
		return translateError(err)
	}
	if err := f.Close(); err != nil {
		return translateError(err)
	}
	ix.opts.logger.LogSave(context.Background(), path, nil)
	return nil
}

// Load reads an index from r, verifying magic, length and the CRC-64
// trailer. A zstd container is unwrapped transparently. The header is
// validated before any vector memory is allocated.
func Load(r io.Reader, optFns ...Option) (*Index, error) {
	opts := applyOptions(optFns)

	start := time.Now()
	ix, err := load(r, opts)
	opts.metrics.RecordLoad(time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return ix, nil
}

func load(r io.Reader, opts options) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, translateError(fmt.Errorf("%w: %w", ErrIO, err))
	}

	if persistence.IsZstdFrame(data) {
		var unpacked bytes.Buffer
		if err := persistence.Decompress(&unpacked, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("%w: zstd container: %v", ErrFormatInvalid, err)
		}
		data = unpacked.Bytes()
	}

	if len(data) < formatMagicSize {
		return nil, fmt.Errorf("%w: file shorter than magic", ErrFormatTruncated)
	}
	if string(data[:formatMagicSize]) != FormatMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrFormatInvalid)
	}

	if len(data) < formatMagicSize+formatHeaderSize+formatTrailerSize {
		return nil, fmt.Errorf("%w: file shorter than header", ErrFormatTruncated)
	}

	hdr := data[formatMagicSize : formatMagicSize+formatHeaderSize]
	meta := Metadata{
		Dim:    int(binary.LittleEndian.Uint32(hdr[0:])),
		Count:  int(binary.LittleEndian.Uint32(hdr[4:])),
		R:      int(binary.LittleEndian.Uint32(hdr[8:])),
		LBuild: int(binary.LittleEndian.Uint32(hdr[12:])),
		Alpha:  math.Float32frombits(binary.LittleEndian.Uint32(hdr[16:])),
		Metric: distance.Metric(hdr[20]),
		Medoid: binary.LittleEndian.Uint32(hdr[21:]),
		Seed:   binary.LittleEndian.Uint64(hdr[25:]),
	}

	if err := validateHeader(meta); err != nil {
		return nil, err
	}

	// Sizes are validated against the actual byte count before any vector
	// memory is allocated. The multiplication runs in uint64 so a malicious
	// header cannot overflow the check.
	body := data[formatMagicSize : len(data)-formatTrailerSize]
	rest := body[formatHeaderSize:]
	if uint64(meta.Count)*uint64(meta.Dim) > uint64(len(rest))/4 {
		return nil, fmt.Errorf("%w: vector block", ErrFormatTruncated)
	}
	vectorBytes := 4 * meta.Count * meta.Dim

	graphBlock := rest[vectorBytes:]
	degrees := make([]int, meta.Count)
	off := 0
	for v := 0; v < meta.Count; v++ {
		if off >= len(graphBlock) {
			return nil, fmt.Errorf("%w: graph block", ErrFormatTruncated)
		}
		deg := int(graphBlock[off])
		off++
		if deg > meta.R {
			return nil, fmt.Errorf("%w: node %d degree %d exceeds R %d", ErrFormatInvalid, v, deg, meta.R)
		}
		if off+4*deg > len(graphBlock) {
			return nil, fmt.Errorf("%w: graph block", ErrFormatTruncated)
		}
		degrees[v] = deg
		off += 4 * deg
	}
	if off != len(graphBlock) {
		return nil, fmt.Errorf("%w: %d bytes after graph block", ErrFormatTrailingBytes, len(graphBlock)-off)
	}

	expected := binary.LittleEndian.Uint64(data[len(data)-formatTrailerSize:])
	cr := persistence.NewChecksumReader(bytes.NewReader(body))
	if _, err := io.Copy(io.Discard, cr); err != nil {
		return nil, translateError(err)
	}
	if err := cr.Verify(expected); err != nil {
		return nil, err
	}

	// Checksum verified: materialize the store and graph.
	storeDim := meta.Dim
	if storeDim < 1 {
		storeDim = 1 // N=0 file may carry d=0
	}
	store, err := vectorstore.New(storeDim, meta.Count)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormatInvalid, err)
	}
	row := make([]float32, meta.Dim)
	for v := 0; v < meta.Count; v++ {
		base := 4 * v * meta.Dim
		for j := 0; j < meta.Dim; j++ {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(rest[base+4*j:]))
		}
		if err := store.SetRow(uint32(v), row); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormatInvalid, err)
		}
	}

	g, err := graph.New(meta.Count, meta.R)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormatInvalid, err)
	}
	g.SetMedoid(meta.Medoid)

	neighbors := make([]uint32, 0, meta.R)
	off = 0
	for v := 0; v < meta.Count; v++ {
		deg := degrees[v]
		off++
		neighbors = neighbors[:0]
		for j := 0; j < deg; j++ {
			id := binary.LittleEndian.Uint32(graphBlock[off:])
			if int(id) >= meta.Count {
				return nil, fmt.Errorf("%w: node %d references id %d out of range", ErrFormatInvalid, v, id)
			}
			neighbors = append(neighbors, id)
			off += 4
		}
		g.SetNeighbors(uint32(v), neighbors)
	}

	distFunc, err := distance.Provider(meta.Metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormatInvalid, err)
	}

	return &Index{
		store:    store,
		graph:    g,
		meta:     meta,
		distFunc: distFunc,
		opts:     opts,
	}, nil
}

func validateHeader(meta Metadata) error {
	if meta.Count > 0 && meta.Dim < 1 {
		return fmt.Errorf("%w: dimension %d", ErrFormatInvalid, meta.Dim)
	}
	if meta.R < 1 || meta.R > graph.MaxDegreeBound {
		return fmt.Errorf("%w: R %d", ErrFormatInvalid, meta.R)
	}
	if meta.LBuild < 1 {
		return fmt.Errorf("%w: LBuild %d", ErrFormatInvalid, meta.LBuild)
	}
	if meta.Alpha < 1.0 || math.IsNaN(float64(meta.Alpha)) {
		return fmt.Errorf("%w: alpha %v", ErrFormatInvalid, meta.Alpha)
	}
	if _, err := distance.Provider(meta.Metric); err != nil {
		return fmt.Errorf("%w: distance kind %d", ErrFormatInvalid, uint8(meta.Metric))
	}
	if meta.Count > 0 && int(meta.Medoid) >= meta.Count {
		return fmt.Errorf("%w: medoid %d out of range", ErrFormatInvalid, meta.Medoid)
	}
	return nil
}

// LoadFile reads an index from path.
func LoadFile(path string, optFns ...Option) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, translateError(err)
	}
	defer f.Close()

	ix, err := Load(f, optFns...)
	if err != nil {
		return nil, err
	}
	ix.opts.logger.LogLoad(context.Background(), path, ix.meta.Count, ix.meta.Dim, nil)
	return ix, nil
}
