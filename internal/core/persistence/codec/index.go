package codec

import "fmt"

// IndexEntry locates one entity payload in the blob file.
type IndexEntry struct {
	TypeRef int32
	Serial  uint64
	Offset  int64
	Length  int32
}

// EntrySize is the encoded size of one entry for a serial width.
func EntrySize(serialWidth int) int {
	return 4 + serialWidth + 8 + 4
}

func WriteCount(w *Writer, count int) {
	w.WriteInt32(int32(count))
}

func ReadCount(r *Reader) (int, error) {
	n, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrCorrupt, n)
	}
	return int(n), nil
}

func WriteIndexEntry(w *Writer, e IndexEntry, serialWidth int) {
	w.WriteInt32(e.TypeRef)
	w.WriteSerial(e.Serial, serialWidth)
	w.WriteInt64(e.Offset)
	w.WriteInt32(e.Length)
}

func ReadIndexEntry(r *Reader, serialWidth int) (IndexEntry, error) {
	var (
		e   IndexEntry
		err error
	)
	if e.TypeRef, err = r.ReadInt32(); err != nil {
		return e, err
	}
	if e.Serial, err = r.ReadSerial(serialWidth); err != nil {
		return e, err
	}
	if e.Offset, err = r.ReadInt64(); err != nil {
		return e, err
	}
	if e.Length, err = r.ReadInt32(); err != nil {
		return e, err
	}
	if e.Offset < 0 || e.Length < 0 {
		return e, fmt.Errorf("%w: entry for serial %d has offset %d length %d", ErrCorrupt, e.Serial, e.Offset, e.Length)
	}
	return e, nil
}
