package world

import (
	"fmt"
	"strings"

	"github.com/zeusync/worldstore/internal/core/persistence"
	"github.com/zeusync/worldstore/pkg/encoding"
)

const (
	GuildTypeName = "world.Guild"
	// BaseGuildTypeName is registered abstract: it names no constructible
	// guild, so stored entries of it are unresolvable.
	BaseGuildTypeName = "world.BaseGuild"
)

const guildVersion = 0

type GuildType uint8

const (
	GuildRegular GuildType = iota
	GuildChaos
	GuildOrder
)

func (t GuildType) String() string {
	switch t {
	case GuildRegular:
		return "Regular"
	case GuildChaos:
		return "Chaos"
	case GuildOrder:
		return "Order"
	default:
		return fmt.Sprintf("GuildType(%d)", uint8(t))
	}
}

func ParseGuildType(s string) (GuildType, error) {
	for _, t := range []GuildType{GuildRegular, GuildChaos, GuildOrder} {
		if strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	return GuildRegular, fmt.Errorf("unknown guild type %q", s)
}

type Guild struct {
	persistence.Base[Serial]

	Name         string
	Abbreviation string
	Type         GuildType
	Members      []Serial

	disbanded bool
	guilds    *Guilds
}

func (g *Guild) Serialize(w *encoding.Writer) error {
	w.WriteEncodedInt(guildVersion)
	w.WriteString(g.Name)
	w.WriteString(g.Abbreviation)
	_ = w.WriteByte(byte(g.Type))
	w.WriteEncodedInt(uint64(len(g.Members)))
	for _, m := range g.Members {
		w.WriteUint32(uint32(m))
	}
	return nil
}

func (g *Guild) Deserialize(r *encoding.Reader) error {
	version, err := r.ReadEncodedInt()
	if err != nil {
		return err
	}
	if version != guildVersion {
		return fmt.Errorf("%w: guild version %d", ErrUnknownVersion, version)
	}
	if g.Name, err = r.ReadString(); err != nil {
		return err
	}
	if g.Abbreviation, err = r.ReadString(); err != nil {
		return err
	}
	t, err := r.ReadByte()
	if err != nil {
		return err
	}
	g.Type = GuildType(t)

	n, err := r.ReadEncodedInt()
	if err != nil {
		return err
	}
	if n > uint64(r.Remaining()/4) {
		return fmt.Errorf("%w: %d members in %d bytes", encoding.ErrShortBuffer, n, r.Remaining())
	}
	g.Members = make([]Serial, n)
	for i := range g.Members {
		m, err := r.ReadUint32()
		if err != nil {
			return err
		}
		g.Members[i] = Serial(m)
	}
	return nil
}

// Delete disbands the guild and removes it from its registry.
func (g *Guild) Delete() {
	g.disbanded = true
	if g.guilds != nil {
		g.guilds.remove(g)
	}
}

func (g *Guild) Disbanded() bool { return g.disbanded }

func (g *Guild) String() string {
	return fmt.Sprintf("%s %q [%s]", g.Serial(), g.Name, g.Abbreviation)
}
