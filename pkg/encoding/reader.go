package encoding

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// MaxStringLength bounds a single decoded string or byte field.
const MaxStringLength = 1 << 20

// Reader is a bounds-checked little-endian cursor over one payload. A Reader
// never reads past the slice it was given, so a payload shorter than the
// entity expects fails with ErrShortBuffer instead of exposing stale bytes.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Swap installs buf as the new payload, rewinds the cursor and returns the
// previous payload.
func (r *Reader) Swap(buf []byte) []byte {
	old := r.buf
	r.buf = buf
	r.pos = 0
	return old
}

func (r *Reader) Position() int { return r.pos }

func (r *Reader) Len() int { return len(r.buf) }

func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeLength
	}
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at %d, have %d", ErrShortBuffer, n, r.pos, r.Remaining())
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	n := copy(p, r.buf[r.pos:])
	r.pos += n
	if n < len(p) {
		return n, ErrShortBuffer
	}
	return n, nil
}

func (r *Reader) ReadByte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.take(4)
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
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

func (r *Reader) ReadEncodedInt() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: bad varint at %d", ErrShortBuffer, r.pos)
	}
	r.pos += n
	return v, nil
}

func (r *Reader) readLength() (int, error) {
	n, err := r.ReadEncodedInt()
	if err != nil {
		return 0, err
	}
	if n > MaxStringLength {
		return 0, fmt.Errorf("%w: %d", ErrStringTooLarge, n)
	}
	return int(n), nil
}

func (r *Reader) ReadString() (string, error) {
	n, err := r.readLength()
	if err != nil {
		return "", err
	}
	b, err := r.take(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBytes returns a copy of a length-prefixed byte field.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.readLength()
	if err != nil {
		return nil, err
	}
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

func (r *Reader) ReadTime() (time.Time, error) {
	v, err := r.ReadInt64()
	if err != nil || v == 0 {
		return time.Time{}, err
	}
	return time.Unix(0, v).UTC(), nil
}
