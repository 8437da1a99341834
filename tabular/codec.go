package tabular

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/pierrec/lz4/v4"
)

const (
	// MagicNumber identifies dataset files (ASCII: "TAB1").
	MagicNumber = 0x54414231
	// Version is the current file format version.
	Version = 1

	headerSize = 36
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrTruncated      = errors.New("truncated dataset file")
)

// ChecksumMismatchError is returned when payload verification fails.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// fileHeader is the fixed-size header at the start of every dataset file.
type fileHeader struct {
	Magic        uint32
	Version      uint32
	RowCount     uint64
	MetaColumns  uint32
	FeatureCount uint32
	PayloadLen   uint64 // length of the lz4-compressed payload
	Checksum     uint32 // CRC32 (IEEE) of the compressed payload
}

// Encode serializes a dataset: fixed header followed by an lz4-compressed
// payload holding metadata columns, feature names and the raw float32 values.
func Encode(d *Dataset) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	var payload bytes.Buffer
	for i, name := range d.Metadata.names {
		writeString(&payload, name)
		for _, v := range d.Metadata.cols[i] {
			writeString(&payload, v)
		}
	}
	for _, f := range d.Features {
		writeString(&payload, f)
	}
	for _, row := range d.Values {
		for _, v := range row {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
			payload.Write(b[:])
		}
	}

	var compressed bytes.Buffer
	zw := lz4.NewWriter(&compressed)
	if _, err := zw.Write(payload.Bytes()); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	header := fileHeader{
		Magic:        MagicNumber,
		Version:      Version,
		RowCount:     uint64(len(d.Values)),
		MetaColumns:  uint32(len(d.Metadata.names)),
		FeatureCount: uint32(len(d.Features)),
		PayloadLen:   uint64(compressed.Len()),
		Checksum:     crc32.ChecksumIEEE(compressed.Bytes()),
	}

	var out bytes.Buffer
	if err := binary.Write(&out, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	out.Write(compressed.Bytes())
	return out.Bytes(), nil
}

// Decode parses a dataset file produced by Encode. It verifies magic, version
// and checksum before touching the payload.
func Decode(data []byte) (*Dataset, error) {
	if len(data) < headerSize {
		return nil, ErrTruncated
	}

	var header fileHeader
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header.Magic != MagicNumber {
		return nil, ErrInvalidMagic
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, header.Version)
	}

	compressed := data[headerSize:]
	if uint64(len(compressed)) != header.PayloadLen {
		return nil, ErrTruncated
	}
	if actual := crc32.ChecksumIEEE(compressed); actual != header.Checksum {
		return nil, &ChecksumMismatchError{Expected: header.Checksum, Actual: actual}
	}

	zr := lz4.NewReader(bytes.NewReader(compressed))
	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}

	r := bytes.NewReader(payload)
	rows := int(header.RowCount)

	meta := NewMetadata()
	for i := 0; i < int(header.MetaColumns); i++ {
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		col := make([]string, rows)
		for j := 0; j < rows; j++ {
			if col[j], err = readString(r); err != nil {
				return nil, err
			}
		}
		if err := meta.Add(name, col); err != nil {
			return nil, err
		}
	}

	features := make([]string, header.FeatureCount)
	for i := range features {
		if features[i], err = readString(r); err != nil {
			return nil, err
		}
	}

	values := make([][]float32, rows)
	var b [4]byte
	for i := range values {
		row := make([]float32, header.FeatureCount)
		for j := range row {
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return nil, ErrTruncated
			}
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(b[:]))
		}
		values[i] = row
	}

	d := &Dataset{Metadata: meta, Values: values, Features: features}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func writeString(buf *bytes.Buffer, s string) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(len(s)))
	buf.Write(b[:])
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return "", ErrTruncated
	}
	n := binary.LittleEndian.Uint32(b[:])
	if uint64(n) > uint64(r.Len()) {
		return "", ErrTruncated
	}
	s := make([]byte, n)
	if _, err := io.ReadFull(r, s); err != nil {
		return "", ErrTruncated
	}
	return string(s), nil
}
