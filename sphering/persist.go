package sphering

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/mat"

	"github.com/profilekit/correct/blobstore"
)

const (
	// OperatorMagic identifies operator blobs (ASCII: "SPHR").
	OperatorMagic = 0x53504852
	// OperatorVersion is the current operator format version.
	OperatorVersion = 1

	operatorHeaderSize = 36
)

var (
	ErrInvalidOperatorMagic   = errors.New("invalid operator magic number")
	ErrInvalidOperatorVersion = errors.New("unsupported operator version")
	ErrOperatorCorrupt        = errors.New("corrupt operator blob")
)

// operatorHeader is the fixed-size header of a persisted operator.
// The payload that follows holds the column means and the operator
// coefficients as little-endian float64, zstd-compressed.
type operatorHeader struct {
	Magic      uint32
	Version    uint32
	Mode       uint8
	_          [3]byte
	Dim        uint32
	Lambda     float64
	PayloadLen uint64 // compressed payload length
	Checksum   uint32 // CRC32 (IEEE) of the compressed payload
}

// MarshalBinary serializes a fitted operator to a self-contained blob.
func (w *Whitener) MarshalBinary() ([]byte, error) {
	if !w.fitted {
		return nil, ErrNotFitted
	}

	var payload bytes.Buffer
	if err := binary.Write(&payload, binary.LittleEndian, w.mean); err != nil {
		return nil, err
	}
	raw := w.transform.RawMatrix()
	if err := binary.Write(&payload, binary.LittleEndian, raw.Data); err != nil {
		return nil, err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	compressed := enc.EncodeAll(payload.Bytes(), nil)
	_ = enc.Close()

	header := operatorHeader{
		Magic:      OperatorMagic,
		Version:    OperatorVersion,
		Mode:       uint8(w.mode),
		Dim:        uint32(w.dim),
		Lambda:     w.lambda,
		PayloadLen: uint64(len(compressed)),
		Checksum:   crc32.ChecksumIEEE(compressed),
	}

	var out bytes.Buffer
	if err := binary.Write(&out, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	out.Write(compressed)
	return out.Bytes(), nil
}

// UnmarshalOperator reconstructs a fitted operator from a blob produced by
// MarshalBinary. The result transforms rows without refitting.
func UnmarshalOperator(data []byte) (*Whitener, error) {
	if len(data) < operatorHeaderSize {
		return nil, ErrOperatorCorrupt
	}

	var header operatorHeader
	if err := binary.Read(bytes.NewReader(data[:operatorHeaderSize]), binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header.Magic != OperatorMagic {
		return nil, ErrInvalidOperatorMagic
	}
	if header.Version != OperatorVersion {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOperatorVersion, header.Version)
	}

	compressed := data[operatorHeaderSize:]
	if uint64(len(compressed)) != header.PayloadLen {
		return nil, ErrOperatorCorrupt
	}
	if crc32.ChecksumIEEE(compressed) != header.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrOperatorCorrupt)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	payload, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOperatorCorrupt, err)
	}

	d := int(header.Dim)
	want := 8 * (d + d*d)
	if len(payload) != want {
		return nil, ErrOperatorCorrupt
	}

	r := bytes.NewReader(payload)
	mean := make([]float64, d)
	if err := binary.Read(r, binary.LittleEndian, mean); err != nil {
		return nil, err
	}
	coeffs := make([]float64, d*d)
	if err := binary.Read(r, binary.LittleEndian, coeffs); err != nil {
		return nil, err
	}

	w, err := New(Mode(header.Mode), header.Lambda)
	if err != nil {
		return nil, err
	}
	w.dim = d
	w.mean = mean
	w.transform = mat.NewDense(d, d, coeffs)
	w.fitted = true
	return w, nil
}

// SaveTo persists the fitted operator to a blob store.
func (w *Whitener) SaveTo(ctx context.Context, store blobstore.Store, name string) error {
	data, err := w.MarshalBinary()
	if err != nil {
		return err
	}
	return store.Put(ctx, name, data)
}

// Save persists the fitted operator to a local file, atomically.
func (w *Whitener) Save(path string) error {
	return w.SaveTo(context.Background(), blobstore.NewLocalStore(""), path)
}

// LoadFrom reads a fitted operator from a blob store.
func LoadFrom(ctx context.Context, store blobstore.Store, name string) (*Whitener, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return UnmarshalOperator(data)
}

// Load reads a fitted operator from a local file.
func Load(path string) (*Whitener, error) {
	return LoadFrom(context.Background(), blobstore.NewLocalStore(""), path)
}
