// Package archive provides the little-endian record codec shared by every
// saved structure: motion records, task stacks, tasks, bands and actors.
// Readers use a sticky error so record decoders can read field after field
// and check once at the end.
package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/talgya/actorcore/internal/tile"
)

// ErrShort is returned when a record ends before all fields are read.
var ErrShort = errors.New("archive: record truncated")

// Writer accumulates a record.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty writer.
func NewWriter() *Writer { return &Writer{} }

func (w *Writer) U8(v uint8)   { w.buf.WriteByte(v) }
func (w *Writer) I8(v int8)    { w.buf.WriteByte(uint8(v)) }
func (w *Writer) U16(v uint16) { w.buf.Write(binary.LittleEndian.AppendUint16(nil, v)) }
func (w *Writer) I16(v int16)  { w.U16(uint16(v)) }
func (w *Writer) U32(v uint32) { w.buf.Write(binary.LittleEndian.AppendUint32(nil, v)) }

// Bool stores v as a 16-bit flag.
func (w *Writer) Bool(v bool) {
	if v {
		w.U16(1)
	} else {
		w.U16(0)
	}
}

// Point stores u, v, z as three signed 16-bit values.
func (w *Writer) Point(p tile.Point) {
	w.I16(p.U)
	w.I16(p.V)
	w.I16(p.Z)
}

// Bytes returns the encoded record.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.buf.Len() }

// Reader decodes a record written by Writer.
type Reader struct {
	r   *bytes.Reader
	err error
}

// NewReader returns a reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{r: bytes.NewReader(data)}
}

func (r *Reader) read(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		r.err = fmt.Errorf("%w: %v", ErrShort, err)
	}
	return b
}

func (r *Reader) U8() uint8   { return r.read(1)[0] }
func (r *Reader) I8() int8    { return int8(r.U8()) }
func (r *Reader) U16() uint16 { return binary.LittleEndian.Uint16(r.read(2)) }
func (r *Reader) I16() int16  { return int16(r.U16()) }
func (r *Reader) U32() uint32 { return binary.LittleEndian.Uint32(r.read(4)) }
func (r *Reader) Bool() bool  { return r.U16() != 0 }

// Point reads three signed 16-bit values.
func (r *Reader) Point() tile.Point {
	u := r.I16()
	v := r.I16()
	z := r.I16()
	return tile.Point{U: u, V: v, Z: z}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return r.r.Len() }

// Err returns the first decoding error, if any.
func (r *Reader) Err() error { return r.err }

// Fail records err unless an earlier error is already pending.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
