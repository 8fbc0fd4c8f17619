package encoding

import (
	"encoding/binary"
	"math"
	"time"
)

const defaultWriterCapacity = 64

// Writer is a growable little-endian scratch buffer. One Writer belongs to
// exactly one entity; it is never shared between goroutines.
type Writer struct {
	buf []byte
	pos int
}

// NewWriter allocates a Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	if capacity <= 0 {
		capacity = defaultWriterCapacity
	}
	return &Writer{buf: make([]byte, capacity)}
}

// NewWriterFrom adopts buf as backing storage with the cursor at zero.
// The previous contents are kept until overwritten, so Bytes is empty but
// Retained still exposes them.
func NewWriterFrom(buf []byte) *Writer {
	return &Writer{buf: buf}
}

func (w *Writer) Position() int { return w.pos }

func (w *Writer) Cap() int { return len(w.buf) }

// Reset rewinds the cursor without releasing storage.
func (w *Writer) Reset() { w.pos = 0 }

// Bytes returns exactly the bytes written since the last Reset. The slice
// aliases the Writer's storage.
func (w *Writer) Bytes() []byte { return w.buf[:w.pos] }

// Retained returns the whole backing storage, including bytes adopted by
// NewWriterFrom that have not been overwritten yet.
func (w *Writer) Retained() []byte { return w.buf }

// Resize shrinks or grows the backing storage to exactly n bytes.
func (w *Writer) Resize(n int) {
	if n == len(w.buf) {
		return
	}
	next := make([]byte, n)
	copy(next, w.buf)
	w.buf = next
	if w.pos > n {
		w.pos = n
	}
}

func (w *Writer) grow(n int) []byte {
	need := w.pos + n
	if need > len(w.buf) {
		size := len(w.buf) * 2
		if size < need {
			size = need
		}
		if size < defaultWriterCapacity {
			size = defaultWriterCapacity
		}
		next := make([]byte, size)
		copy(next, w.buf[:w.pos])
		w.buf = next
	}
	out := w.buf[w.pos:need]
	w.pos = need
	return out
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	copy(w.grow(len(p)), p)
	return len(p), nil
}

func (w *Writer) WriteByte(b byte) error {
	w.grow(1)[0] = b
	return nil
}

func (w *Writer) WriteBool(v bool) {
	if v {
		_ = w.WriteByte(1)
		return
	}
	_ = w.WriteByte(0)
}

func (w *Writer) WriteInt16(v int16) { w.WriteUint16(uint16(v)) }

func (w *Writer) WriteUint16(v uint16) {
	binary.LittleEndian.PutUint16(w.grow(2), v)
}

func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

func (w *Writer) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.grow(4), v)
}

func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

func (w *Writer) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(w.grow(8), v)
}

func (w *Writer) WriteFloat64(v float64) { w.WriteUint64(math.Float64bits(v)) }

// WriteEncodedInt writes v as an unsigned varint (7 bits per byte).
func (w *Writer) WriteEncodedInt(v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	copy(w.grow(n), tmp[:n])
}

// WriteString writes a varint length followed by the UTF-8 bytes.
func (w *Writer) WriteString(s string) {
	w.WriteEncodedInt(uint64(len(s)))
	copy(w.grow(len(s)), s)
}

// WriteBytes writes a varint length followed by p.
func (w *Writer) WriteBytes(p []byte) {
	w.WriteEncodedInt(uint64(len(p)))
	copy(w.grow(len(p)), p)
}

// WriteTime stores t as UTC unix nanoseconds.
func (w *Writer) WriteTime(t time.Time) {
	if t.IsZero() {
		w.WriteInt64(0)
		return
	}
	w.WriteInt64(t.UTC().UnixNano())
}
