package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/zeusync/worldstore/internal/core/observability/log"
	"github.com/zeusync/worldstore/internal/core/persistence/blob"
	"github.com/zeusync/worldstore/internal/core/persistence/codec"
	"github.com/zeusync/worldstore/internal/core/persistence/recovery"
	"github.com/zeusync/worldstore/internal/core/persistence/registry"
	"github.com/zeusync/worldstore/pkg/encoding"
)

// LoadState tracks a Store's load pipeline.
type LoadState int32

const (
	Idle LoadState = iota
	ReadingIndexAndTypes
	ReconstructingEntities
	StreamingPayloads
	Complete
	FatalAborted
)

func (s LoadState) String() string {
	switch s {
	case Idle:
		return "idle"
	case ReadingIndexAndTypes:
		return "reading_index_and_types"
	case ReconstructingEntities:
		return "reconstructing_entities"
	case StreamingPayloads:
		return "streaming_payloads"
	case Complete:
		return "complete"
	case FatalAborted:
		return "fatal_aborted"
	default:
		return fmt.Sprintf("LoadState(%d)", int32(s))
	}
}

// EntityIndex is one index entry paired with the shell built for it.
// Placeholder entries keep their offset and length but no entity.
type EntityIndex[E any] struct {
	Entity      E
	TypeRef     int32
	Serial      uint64
	Offset      int64
	Length      int32
	Placeholder bool
}

// LoadReport summarizes one load.
type LoadReport struct {
	Category string
	// Legacy is set when the category came from its legacy document.
	Legacy   bool
	Entities int
	// DroppedTypes are type table names the policy chose to skip.
	DroppedTypes   []string
	SkippedEntries int
	// Deleted counts entities whose payload was rejected.
	Deleted  int
	Types    map[string]int
	State    LoadState
	Duration time.Duration
}

// LoadResult is the output of LoadIndex, completed in place by LoadData.
type LoadResult[S comparable, E Entity[S]] struct {
	Entities *Collection[S, E]
	// Index lists every entry in file order, placeholders included.
	Index  []EntityIndex[E]
	Report *LoadReport
}

func (s *Store[S, E]) newResult(capacity int) *LoadResult[S, E] {
	return &LoadResult[S, E]{
		Entities: NewCollection[S, E](capacity),
		Index:    make([]EntityIndex[E], 0, capacity),
		Report: &LoadReport{
			Category: s.category.Name,
			Types:    make(map[string]int),
		},
	}
}

// State reports where the most recent load stands.
func (s *Store[S, E]) State() LoadState {
	return LoadState(s.state.Load())
}

func (s *Store[S, E]) setState(res *LoadResult[S, E], state LoadState) {
	s.state.Store(int32(state))
	if res != nil {
		res.Report.State = state
	}
}

// abort ends the load; no entities of a failed load reach the caller.
func (s *Store[S, E]) abort(err error) (*LoadResult[S, E], error) {
	s.setState(nil, FatalAborted)
	s.logger.Error("category load aborted", log.Error(err))
	return nil, err
}

// Load restores the category. A legacy document, when present, takes
// precedence over the binary files. Missing files load as an empty category.
func (s *Store[S, E]) Load(ctx context.Context) (*LoadResult[S, E], error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := time.Now()
	s.setState(nil, Idle)

	if res, ok, err := s.loadLegacy(ctx); err != nil || ok {
		if err != nil {
			return s.abort(err)
		}
		res.Report.Duration = time.Since(start)
		return res, nil
	}

	if s.engine.opts.VerifyChecksums {
		if _, err := s.Verify(); err != nil {
			s.logger.Warn("category files do not match their manifest", log.Error(err))
		}
	}

	res, err := s.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.LoadData(ctx, res); err != nil {
		return nil, err
	}

	res.Report.Duration = time.Since(start)
	s.logger.Info("category loaded",
		log.Int("entities", res.Report.Entities),
		log.Int("skipped_entries", res.Report.SkippedEntries),
		log.Int("deleted", res.Report.Deleted),
		log.Strings("dropped_types", res.Report.DroppedTypes),
		log.Any("types", res.Report.Types),
		log.Duration("duration", res.Report.Duration),
	)
	return res, nil
}

func (s *Store[S, E]) loadLegacy(ctx context.Context) (*LoadResult[S, E], bool, error) {
	legacy := s.category.Legacy
	if legacy == nil || legacy.FileName == "" || legacy.Import == nil {
		return nil, false, nil
	}
	path := filepath.Join(s.Layout().Dir, legacy.FileName)
	ok, err := fileExists(path)
	if err != nil || !ok {
		return nil, false, err
	}

	s.setState(nil, ReconstructingEntities)
	entities, err := legacy.Import(ctx, path, s.category)
	if err != nil {
		return nil, false, eris.Wrapf(err, "import %s", path)
	}

	res := s.newResult(0)
	res.Entities = entities
	res.Report.Legacy = true
	for _, e := range entities.Values() {
		res.Index = append(res.Index, EntityIndex[E]{
			Entity:  e,
			TypeRef: int32(e.TypeRef()),
			Serial:  s.category.ToRaw(e.Serial()),
		})
		res.Report.Types[s.category.TypeName(e)]++
	}
	res.Report.Entities = entities.Len()
	s.setState(res, Complete)

	s.logger.Info("category imported from legacy document",
		log.String("path", path),
		log.Int("entities", res.Report.Entities),
	)
	return res, true, nil
}

// typeRow is one type table row resolved against the factory registry.
type typeRow[S comparable, E Entity[S]] struct {
	name    string
	ctor    Constructor[S, E]
	typeRef int
	dropped bool
}

// LoadIndex is the first load phase: it reads the type table and the index
// and builds an empty shell for every entry of a resolvable type. Load is the
// locked entry point; LoadIndex assumes the caller holds the category.
func (s *Store[S, E]) LoadIndex(ctx context.Context) (*LoadResult[S, E], error) {
	layout := s.Layout()
	cat := s.category
	s.setState(nil, ReadingIndexAndTypes)

	idxOK, err := fileExists(layout.Index)
	if err != nil {
		return s.abort(eris.Wrapf(err, "stat %s", layout.Index))
	}
	tdbOK, err := fileExists(layout.Types)
	if err != nil {
		return s.abort(eris.Wrapf(err, "stat %s", layout.Types))
	}
	if !idxOK || !tdbOK {
		res := s.newResult(0)
		s.setState(res, ReconstructingEntities)
		return res, nil
	}

	names, err := readTypeTable(layout.Types)
	if err != nil {
		return s.abort(eris.Wrapf(err, "read %s", layout.Types))
	}

	rows := make([]typeRow[S, E], len(names))
	var dropped []string
	for i, name := range names {
		rows[i].name = name
		ctor, err := cat.Factories.Lookup(name)
		if err == nil {
			rows[i].ctor = ctor
			rows[i].typeRef = cat.Types.Resolve(name)
			continue
		}

		reason := "not found"
		if errors.Is(err, registry.ErrTypeAbstract) {
			reason = "marked abstract"
		}
		ev := recovery.Event{
			Kind:     recovery.UnresolvableType,
			Category: cat.Name,
			TypeName: name,
			Reason:   reason,
			TypeRef:  i,
			Err:      err,
		}
		if s.engine.policy.Decide(ctx, ev) == recovery.Abort {
			return s.abort(eris.Wrapf(ErrUnresolvableType, "%s: %s", cat.Name, ev))
		}
		rows[i].dropped = true
		dropped = append(dropped, name)
	}

	f, err := os.Open(layout.Index)
	if err != nil {
		return s.abort(eris.Wrapf(err, "open %s", layout.Index))
	}
	defer f.Close()

	r := codec.NewReader(f)
	count, err := codec.ReadCount(r)
	if err != nil {
		return s.abort(eris.Wrapf(err, "read %s", layout.Index))
	}

	res := s.newResult(min(count, 1<<16))
	res.Report.DroppedTypes = dropped
	s.setState(res, ReconstructingEntities)

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return s.abort(err)
		}
		entry, err := codec.ReadIndexEntry(r, cat.SerialWidth)
		if err != nil {
			return s.abort(eris.Wrapf(err, "read %s entry %d", layout.Index, i))
		}
		if entry.TypeRef < 0 || int(entry.TypeRef) >= len(rows) {
			return s.abort(eris.Wrapf(ErrCorrupt, "%s entry %d: type ref %d outside type table of %d",
				layout.Index, i, entry.TypeRef, len(rows)))
		}

		ei := EntityIndex[E]{
			TypeRef: entry.TypeRef,
			Serial:  entry.Serial,
			Offset:  entry.Offset,
			Length:  entry.Length,
		}
		row := rows[entry.TypeRef]
		serial := cat.FromRaw(entry.Serial)
		switch {
		case row.dropped:
			ei.Placeholder = true
			res.Report.SkippedEntries++
		case res.Entities.Has(serial):
			s.logger.Warn("duplicate serial in index",
				log.String("serial", cat.serialString(serial)),
				log.Uint64("raw_serial", entry.Serial),
				log.String("type", row.name),
				log.Int32("type_ref", entry.TypeRef),
				log.Int("entry", i),
			)
			ei.Placeholder = true
			res.Report.SkippedEntries++
		default:
			ei.Entity = row.ctor(serial, row.typeRef)
			res.Entities.Add(serial, ei.Entity)
		}
		res.Index = append(res.Index, ei)
	}
	return res, nil
}

func readTypeTable(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return codec.ReadTypeTable(codec.NewReader(f))
}

// LoadData is the second load phase: it streams every payload into its shell
// in index order, reusing one arena buffer for the whole pass.
func (s *Store[S, E]) LoadData(ctx context.Context, res *LoadResult[S, E]) error {
	layout := s.Layout()
	s.setState(res, StreamingPayloads)

	ok, err := fileExists(layout.Blob)
	if err != nil {
		_, err = s.abort(eris.Wrapf(err, "stat %s", layout.Blob))
		return err
	}
	if ok {
		if err := s.streamPayloads(ctx, layout.Blob, res); err != nil {
			_, err = s.abort(err)
			return err
		}
	}

	res.Report.Entities = res.Entities.Len()
	s.setState(res, Complete)
	return nil
}

func (s *Store[S, E]) streamPayloads(ctx context.Context, path string, res *LoadResult[S, E]) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return eris.Wrapf(err, "stat %s", path)
	}
	size := info.Size()

	a := s.engine.arenas.Get()
	defer s.engine.arenas.Put(a)

	br := blob.NewReader(f)
	payload := encoding.NewReader(nil)
	defer payload.Swap(nil)

	for i := range res.Index {
		if err := ctx.Err(); err != nil {
			return err
		}
		ei := &res.Index[i]
		if ei.Placeholder {
			if err := br.Seek(ei.Offset); err != nil {
				return eris.Wrapf(err, "seek %s to %d", path, ei.Offset)
			}
			if err := br.Skip(ei.Length); err != nil {
				return eris.Wrapf(err, "skip %d bytes of %s", ei.Length, path)
			}
			continue
		}

		var buf []byte
		ev, err := s.checkBounds(ei, size)
		if err == nil {
			if err := br.Seek(ei.Offset); err != nil {
				return eris.Wrapf(err, "seek %s to %d", path, ei.Offset)
			}
			buf = a.take(int(ei.Length))
			ev, err = s.readPayload(br, buf, payload, ei.Entity)
		}
		if err == nil {
			if s.engine.opts.RetainPayloads {
				retained := make([]byte, len(buf))
				copy(retained, buf)
				ei.Entity.InitializeSaveBuffer(retained)
			}
			res.Report.Types[s.category.TypeName(ei.Entity)]++
			continue
		}

		if s.engine.policy.Decide(ctx, ev) == recovery.Abort {
			sentinel := ErrDeserialize
			if ev.Kind == recovery.FormatMismatch {
				sentinel = ErrFormatMismatch
			}
			return eris.Wrapf(fmt.Errorf("%w: %w", sentinel, err), "%s: %s", s.category.Name, ev)
		}

		ei.Entity.Delete()
		res.Entities.Remove(ei.Entity.Serial())
		var zero E
		ei.Entity = zero
		ei.Placeholder = true
		res.Report.Deleted++
	}
	return nil
}

func (s *Store[S, E]) payloadEvent(e E, expected int) recovery.Event {
	return recovery.Event{
		Kind:     recovery.DeserializeException,
		Category: s.category.Name,
		TypeName: s.category.TypeName(e),
		Serial:   s.category.serialString(e.Serial()),
		TypeRef:  e.TypeRef(),
		Expected: expected,
	}
}

// checkBounds rejects an entry whose payload does not fit inside a blob of
// size bytes, before any buffer is sized from its length.
func (s *Store[S, E]) checkBounds(ei *EntityIndex[E], size int64) (recovery.Event, error) {
	end := ei.Offset + int64(ei.Length)
	if ei.Offset >= 0 && end <= size {
		return recovery.Event{}, nil
	}
	ev := s.payloadEvent(ei.Entity, int(ei.Length))
	ev.Kind = recovery.FormatMismatch
	ev.Err = fmt.Errorf("payload [%d, %d) outside blob of %d bytes", ei.Offset, end, size)
	return ev, ev.Err
}

// readPayload fills buf from the blob and deserializes e from it. On failure
// it returns the event the policy should decide on.
func (s *Store[S, E]) readPayload(br *blob.Reader, buf []byte, payload *encoding.Reader, e E) (recovery.Event, error) {
	ev := s.payloadEvent(e, len(buf))

	if err := br.ReadFull(buf); err != nil {
		ev.Err = eris.Wrap(err, "read payload")
		return ev, ev.Err
	}

	payload.Swap(buf)
	err := deserialize(e, payload)
	ev.Consumed = payload.Position()
	if err != nil {
		ev.Err = err
		return ev, err
	}
	if ev.Consumed != ev.Expected {
		ev.Kind = recovery.FormatMismatch
		ev.Err = fmt.Errorf("consumed %d of %d bytes", ev.Consumed, ev.Expected)
		return ev, ev.Err
	}
	return ev, nil
}

func deserialize(d encoding.Deserializer, r *encoding.Reader) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("deserialize panicked: %v", p)
		}
	}()
	return d.Deserialize(r)
}
