package encoding

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Record files have a fixed layout:
//   - int32 fingerprint, little-endian
//   - msgpack array holding the records
//
// The payload is self-describing, so a file can be inspected without the
// Go type that produced it (see DecodeGeneric).

// HeaderSize is the length of the fingerprint prefix in bytes.
const HeaderSize = 4

var (
	ErrInvalidFormat       = errors.New("encoding: invalid record file format")
	ErrFingerprintMismatch = errors.New("encoding: fingerprint mismatch")
)

// Encoder writes a record file to an underlying writer.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes the fingerprint followed by records, which must be a slice.
// Fields tagged `msgpack:"-"` are not written.
func (e *Encoder) Encode(fingerprint int32, records any) error {
	if err := binary.Write(e.w, binary.LittleEndian, fingerprint); err != nil {
		return err
	}

	enc := msgpack.NewEncoder(e.w)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding: marshal records: %w", err)
	}
	return e.w.Flush()
}

// Decoder reads a record file. Header must be read before Decode.
type Decoder struct {
	r      *bufio.Reader
	header bool
	fp     int32
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Header reads and returns the fingerprint prefix.
func (d *Decoder) Header() (int32, error) {
	if d.header {
		return d.fp, nil
	}
	if err := binary.Read(d.r, binary.LittleEndian, &d.fp); err != nil {
		return 0, fmt.Errorf("%w: read fingerprint: %v", ErrInvalidFormat, err)
	}
	d.header = true
	return d.fp, nil
}

// Decode reads the payload into v, a pointer to a slice.
func (d *Decoder) Decode(v any) error {
	if _, err := d.Header(); err != nil {
		return err
	}
	if err := msgpack.NewDecoder(d.r).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return nil
}

// DecodeExpect reads the payload into v only when the stored fingerprint
// equals want. A mismatch leaves v untouched.
func (d *Decoder) DecodeExpect(want int32, v any) error {
	got, err := d.Header()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: stored %d, current %d", ErrFingerprintMismatch, got, want)
	}
	return d.Decode(v)
}

// DecodeGeneric reads the payload as a list of field maps.
func (d *Decoder) DecodeGeneric() ([]map[string]any, error) {
	var records []map[string]any
	if err := d.Decode(&records); err != nil {
		return nil, err
	}
	return records, nil
}
