package codec

// WriteTypeTable writes the count followed by every name in ordinal order.
func WriteTypeTable(w *Writer, names []string) {
	WriteCount(w, len(names))
	for _, name := range names {
		w.WriteString(name)
	}
}

// ReadTypeTable returns the stored names; position equals the TypeRef used by
// the index written in the same save.
func ReadTypeTable(r *Reader) ([]string, error) {
	count, err := ReadCount(r)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, min(count, 1024))
	for i := 0; i < count; i++ {
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
