package encoding

// Serializer writes a value's persistent fields into a scratch buffer.
type Serializer interface {
	Serialize(w *Writer) error
}

// Deserializer restores a value's persistent fields from a payload cursor.
// Implementations must consume exactly the bytes their Serializer produced.
type Deserializer interface {
	Deserialize(r *Reader) error
}

// Serializable provides a clean, simple interface for serializing and deserializing values.
type Serializable interface {
	Serializer
	Deserializer
}
