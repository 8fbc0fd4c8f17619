// Package codec encodes the .idx and .tdb files of a category: little-endian
// fixed-width integers and uvarint-length-prefixed UTF-8 strings.
package codec

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxNameLength bounds a type name read from a type table.
const MaxNameLength = 1 << 12

var ErrCorrupt = errors.New("corrupt persistence file")

// Writer is a buffered little-endian writer that tracks its position.
type Writer struct {
	w       *bufio.Writer
	pos     int64
	scratch [binary.MaxVarintLen64]byte
	err     error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64<<10)}
}

// Position is the number of bytes written so far.
func (w *Writer) Position() int64 { return w.pos }

// Err returns the first write error; later writes are no-ops.
func (w *Writer) Err() error { return w.err }

func (w *Writer) write(p []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(p)
	w.pos += int64(n)
	w.err = err
}

func (w *Writer) Write(p []byte) (int, error) {
	w.write(p)
	return len(p), w.err
}

func (w *Writer) WriteInt32(v int32) {
	binary.LittleEndian.PutUint32(w.scratch[:4], uint32(v))
	w.write(w.scratch[:4])
}

func (w *Writer) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(w.scratch[:4], v)
	w.write(w.scratch[:4])
}

func (w *Writer) WriteInt64(v int64) {
	binary.LittleEndian.PutUint64(w.scratch[:8], uint64(v))
	w.write(w.scratch[:8])
}

func (w *Writer) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(w.scratch[:8], v)
	w.write(w.scratch[:8])
}

// WriteSerial writes a raw identifier using the category's width (4 or 8).
func (w *Writer) WriteSerial(raw uint64, width int) {
	if width == 8 {
		w.WriteUint64(raw)
		return
	}
	w.WriteUint32(uint32(raw))
}

func (w *Writer) WriteString(s string) {
	n := binary.PutUvarint(w.scratch[:], uint64(len(s)))
	w.write(w.scratch[:n])
	w.write([]byte(s))
}

// Flush pushes buffered bytes to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	w.err = w.w.Flush()
	return w.err
}

// Reader is the buffered counterpart of Writer.
type Reader struct {
	r       *bufio.Reader
	pos     int64
	scratch [8]byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64<<10)}
}

func (r *Reader) Position() int64 { return r.pos }

func (r *Reader) read(n int) ([]byte, error) {
	got, err := io.ReadFull(r.r, r.scratch[:n])
	r.pos += int64(got)
	if err != nil {
		return nil, fmt.Errorf("%w: short read at %d: %v", ErrCorrupt, r.pos, err)
	}
	return r.scratch[:n], nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadSerial(width int) (uint64, error) {
	if width == 8 {
		return r.ReadUint64()
	}
	v, err := r.ReadUint32()
	return uint64(v), err
}

func (r *Reader) ReadString() (string, error) {
	n, err := binary.ReadUvarint(r.r)
	if err != nil {
		return "", fmt.Errorf("%w: bad string length at %d: %v", ErrCorrupt, r.pos, err)
	}
	if n > MaxNameLength {
		return "", fmt.Errorf("%w: string of %d bytes at %d", ErrCorrupt, n, r.pos)
	}
	r.pos += int64(uvarintLen(n))

	buf := make([]byte, n)
	got, err := io.ReadFull(r.r, buf)
	r.pos += int64(got)
	if err != nil {
		return "", fmt.Errorf("%w: short string at %d: %v", ErrCorrupt, r.pos, err)
	}
	return string(buf), nil
}

func uvarintLen(v uint64) int {
	var tmp [binary.MaxVarintLen64]byte
	return binary.PutUvarint(tmp[:], v)
}
