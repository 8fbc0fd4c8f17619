package persistence

import "github.com/zeusync/worldstore/pkg/encoding"

// Entity is the contract every persistable value fulfils.
type Entity[S comparable] interface {
	encoding.Serializable

	Serial() S
	// TypeRef is the entity's index in its category's type registry.
	TypeRef() int
	// Delete removes the entity from the world. Load calls it for entities
	// whose payload was rejected.
	Delete()
	// SaveBuffer returns the entity's private scratch buffer.
	SaveBuffer() *encoding.Writer
	// InitializeSaveBuffer hands the entity the exact payload it was loaded
	// from; the slice is owned by the entity afterwards.
	InitializeSaveBuffer(payload []byte)
}

// Base implements the bookkeeping half of Entity. Concrete entities embed it
// and provide Serialize, Deserialize and Delete.
type Base[S comparable] struct {
	serial     S
	typeRef    int
	saveBuffer *encoding.Writer
}

func NewBase[S comparable](serial S, typeRef int) Base[S] {
	return Base[S]{serial: serial, typeRef: typeRef}
}

func (b *Base[S]) Serial() S { return b.serial }

func (b *Base[S]) TypeRef() int { return b.typeRef }

// SaveBuffer allocates the buffer on first use.
func (b *Base[S]) SaveBuffer() *encoding.Writer {
	if b.saveBuffer == nil {
		b.saveBuffer = encoding.NewWriter(0)
	}
	return b.saveBuffer
}

func (b *Base[S]) InitializeSaveBuffer(payload []byte) {
	b.saveBuffer = encoding.NewWriterFrom(payload)
}

// Payload returns the bytes of the entity's last save or load, or nil.
func (b *Base[S]) Payload() []byte {
	if b.saveBuffer == nil {
		return nil
	}
	return b.saveBuffer.Retained()
}
