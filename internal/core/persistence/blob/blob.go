// Package blob appends and streams raw entity payloads. Payloads are only
// addressable through the (offset, length) pairs kept in the index file.
package blob

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
)

var ErrPayloadTooLarge = errors.New("payload exceeds int32 length")

// Writer appends payloads and reports where each one landed.
type Writer struct {
	w      *bufio.Writer
	offset int64
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 256<<10)}
}

// Offset is the position the next payload will be written at.
func (w *Writer) Offset() int64 { return w.offset }

// Append writes p and returns its offset and length.
func (w *Writer) Append(p []byte) (offset int64, length int32, err error) {
	if len(p) > math.MaxInt32 {
		return 0, 0, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(p))
	}
	offset = w.offset
	n, err := w.w.Write(p)
	w.offset += int64(n)
	if err != nil {
		return offset, int32(n), err
	}
	return offset, int32(w.offset - offset), nil
}

func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Reader streams payloads with one sequential cursor.
type Reader struct {
	r      io.ReadSeeker
	cursor int64
}

func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{r: r}
}

func (r *Reader) Cursor() int64 { return r.cursor }

// Seek moves the cursor to offset, skipping the syscall when already there.
func (r *Reader) Seek(offset int64) error {
	if offset == r.cursor {
		return nil
	}
	pos, err := r.r.Seek(offset, io.SeekStart)
	if err != nil {
		return err
	}
	r.cursor = pos
	return nil
}

// Skip advances the cursor by length bytes without reading them.
func (r *Reader) Skip(length int32) error {
	return r.Seek(r.cursor + int64(length))
}

// ReadFull fills dst from the cursor. A short blob is io.ErrUnexpectedEOF.
func (r *Reader) ReadFull(dst []byte) error {
	n, err := io.ReadFull(r.r, dst)
	r.cursor += int64(n)
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ReadAt seeks to offset and fills dst.
func (r *Reader) ReadAt(offset int64, dst []byte) error {
	if err := r.Seek(offset); err != nil {
		return err
	}
	return r.ReadFull(dst)
}
