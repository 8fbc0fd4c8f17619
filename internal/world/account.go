package world

import (
	"fmt"
	"strings"
	"time"

	"github.com/zeusync/worldstore/internal/core/persistence"
	"github.com/zeusync/worldstore/pkg/encoding"
)

const AccountTypeName = "world.Account"

const accountVersion = 0

type AccessLevel uint8

const (
	AccessPlayer AccessLevel = iota
	AccessCounselor
	AccessGameMaster
	AccessSeer
	AccessAdministrator
	AccessOwner
)

var accessLevelNames = []string{"Player", "Counselor", "GameMaster", "Seer", "Administrator", "Owner"}

func (l AccessLevel) String() string {
	if int(l) < len(accessLevelNames) {
		return accessLevelNames[l]
	}
	return fmt.Sprintf("AccessLevel(%d)", uint8(l))
}

// ParseAccessLevel accepts a level name (case-insensitive) or its number.
func ParseAccessLevel(s string) (AccessLevel, error) {
	s = strings.TrimSpace(s)
	for i, name := range accessLevelNames {
		if strings.EqualFold(name, s) {
			return AccessLevel(i), nil
		}
	}
	var n uint8
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && int(n) < len(accessLevelNames) {
		return AccessLevel(n), nil
	}
	return AccessPlayer, fmt.Errorf("unknown access level %q", s)
}

type Account struct {
	persistence.Base[Serial]

	Username     string
	PasswordHash string
	AccessLevel  AccessLevel
	Created      time.Time

	deleted  bool
	accounts *Accounts
}

func (a *Account) Serialize(w *encoding.Writer) error {
	w.WriteEncodedInt(accountVersion)
	w.WriteString(a.Username)
	w.WriteString(a.PasswordHash)
	_ = w.WriteByte(byte(a.AccessLevel))
	w.WriteTime(a.Created)
	return nil
}

func (a *Account) Deserialize(r *encoding.Reader) error {
	version, err := r.ReadEncodedInt()
	if err != nil {
		return err
	}
	if version != accountVersion {
		return fmt.Errorf("%w: account version %d", ErrUnknownVersion, version)
	}
	if a.Username, err = r.ReadString(); err != nil {
		return err
	}
	if a.PasswordHash, err = r.ReadString(); err != nil {
		return err
	}
	level, err := r.ReadByte()
	if err != nil {
		return err
	}
	a.AccessLevel = AccessLevel(level)
	a.Created, err = r.ReadTime()
	return err
}

// Delete removes the account from its registry.
func (a *Account) Delete() {
	a.deleted = true
	if a.accounts != nil {
		a.accounts.Remove(a)
	}
}

func (a *Account) Deleted() bool { return a.deleted }

func (a *Account) String() string {
	return fmt.Sprintf("%s %q", a.Serial(), a.Username)
}
