// Package world holds the sample entity categories persisted by worldstore:
// accounts and guilds.
package world

import (
	"fmt"
	"math"

	"github.com/zeusync/worldstore/internal/core/persistence/serial"
)

// Serial identifies an account or guild. Both categories store it in 4 bytes.
type Serial uint32

// SerialWidth is the on-disk size of a Serial in both categories.
const SerialWidth = 4

func (s Serial) String() string { return fmt.Sprintf("0x%X", uint32(s)) }

func serialFromRaw(raw uint64) Serial { return Serial(raw) }

func serialToRaw(s Serial) uint64 { return uint64(s) }

func newAllocator(inUse func(Serial) bool) *serial.Allocator[Serial] {
	return serial.NewAllocator(serial.Config[Serial]{
		Min:     1,
		Max:     math.MaxUint32,
		FromRaw: serialFromRaw,
		InUse:   inUse,
	})
}
