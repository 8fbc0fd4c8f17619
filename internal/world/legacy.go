package world

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/clbanning/mxj"
	"github.com/rotisserie/eris"

	"github.com/zeusync/worldstore/internal/core/observability/log"
	"github.com/zeusync/worldstore/internal/core/persistence"
)

// importXML reads an accounts.xml document of the form
//
//	<accounts>
//	  <account>
//	    <username>admin</username>
//	    <password>hash</password>
//	    <accessLevel>Owner</accessLevel>
//	    <created>2020-01-02T03:04:05Z</created>
//	  </account>
//	</accounts>
//
// Every account gets a freshly allocated serial. Malformed account elements
// are logged and skipped.
func (a *Accounts) importXML(ctx context.Context, path string, category *persistence.Category[Serial, *Account]) (*persistence.Collection[Serial, *Account], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := mxj.NewMapXmlReader(f)
	if err != nil {
		return nil, eris.Wrapf(ErrBadLegacyFile, "%s: %v", path, err)
	}
	if _, ok := doc["accounts"]; !ok {
		return nil, eris.Wrapf(ErrBadLegacyFile, "%s: no accounts root", path)
	}
	elements, err := doc.ValuesForPath("accounts.account")
	if err != nil {
		return nil, eris.Wrapf(ErrBadLegacyFile, "%s: %v", path, err)
	}

	col := persistence.NewCollection[Serial, *Account](len(elements))
	names := make(map[string]struct{}, len(elements))
	alloc := newAllocator(col.Has)

	for i, element := range elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, ok := element.(map[string]interface{})
		if !ok {
			a.logger.Warn("account instance load failed", log.Int("element", i))
			continue
		}
		acc, err := accountFromXML(category, alloc.Next, fields)
		if err == nil {
			if _, dup := names[nameKey(acc.Username)]; dup {
				err = eris.Wrapf(ErrAccountExists, "username %q", acc.Username)
			}
		}
		if err != nil {
			a.logger.Warn("account instance load failed", log.Int("element", i), log.Error(err))
			continue
		}
		names[nameKey(acc.Username)] = struct{}{}
		col.Add(acc.Serial(), acc)
	}
	return col, nil
}

func accountFromXML(category *persistence.Category[Serial, *Account], next func() (Serial, error), fields map[string]interface{}) (*Account, error) {
	text := func(key string) string {
		s, _ := fields[key].(string)
		return strings.TrimSpace(s)
	}

	username := text("username")
	if username == "" {
		return nil, eris.Wrap(ErrInvalidName, "missing username")
	}

	level := AccessPlayer
	if raw := text("accessLevel"); raw != "" {
		var err error
		if level, err = ParseAccessLevel(raw); err != nil {
			return nil, err
		}
	}

	var created time.Time
	if raw := text("created"); raw != "" {
		var err error
		if created, err = time.Parse(time.RFC3339, raw); err != nil {
			return nil, fmt.Errorf("created %q: %w", raw, err)
		}
	}

	s, err := next()
	if err != nil {
		return nil, err
	}
	acc, err := category.Construct(AccountTypeName, s)
	if err != nil {
		return nil, err
	}
	acc.Username = username
	acc.PasswordHash = text("password")
	acc.AccessLevel = level
	acc.Created = created.UTC()
	return acc, nil
}
