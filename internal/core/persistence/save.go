package persistence

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/zeusync/worldstore/internal/core/observability/log"
	"github.com/zeusync/worldstore/internal/core/persistence/blob"
	"github.com/zeusync/worldstore/internal/core/persistence/codec"
	"github.com/zeusync/worldstore/pkg/concurrent"
)

// SaveReport describes one completed save.
type SaveReport struct {
	Category string
	SaveID   string
	Entities int
	// Types counts saved entities per type name.
	Types     map[string]int
	BlobBytes int64
	Duration  time.Duration
}

// Save serializes every entity in parallel, then writes the index, type
// table and blob in collection order.
func (s *Store[S, E]) Save(ctx context.Context, entities *Collection[S, E]) (*SaveReport, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	list := entities.Values()
	if err := s.serialize(ctx, list); err != nil {
		return nil, err
	}
	return s.writeSnapshot(ctx, list)
}

// Serialize fills each entity's scratch buffer. Entities share nothing in
// this step, so it runs on the engine's worker pool.
func (s *Store[S, E]) Serialize(ctx context.Context, entities *Collection[S, E]) error {
	return s.serialize(ctx, entities.Values())
}

// WriteSnapshot writes the scratch buffers filled by Serialize. Entities that
// joined the collection after Serialize are serialized inline first.
func (s *Store[S, E]) WriteSnapshot(ctx context.Context, entities *Collection[S, E]) (*SaveReport, error) {
	unlock, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.writeSnapshot(ctx, entities.Values())
}

func (s *Store[S, E]) serialize(ctx context.Context, list []E) error {
	err := concurrent.Concurrent(ctx, list, s.engine.opts.Workers, func(_ context.Context, e E) error {
		return s.serializeOne(e)
	})
	if err != nil {
		return eris.Wrapf(err, "serialize %s", s.category.Name)
	}

	done := make(map[S]struct{}, len(list))
	for _, e := range list {
		done[e.Serial()] = struct{}{}
	}
	s.mu.Lock()
	s.serialized = done
	s.mu.Unlock()
	return nil
}

// takeSerialized ends the current serialize pass and returns its serials.
func (s *Store[S, E]) takeSerialized() map[S]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	done := s.serialized
	s.serialized = nil
	return done
}

func (s *Store[S, E]) serializeOne(e E) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("serialize %s %s panicked: %v", s.category.TypeName(e), s.category.serialString(e.Serial()), r)
		}
	}()

	w := e.SaveBuffer()
	w.Reset()
	if err := e.Serialize(w); err != nil {
		return eris.Wrapf(err, "serialize %s %s", s.category.TypeName(e), s.category.serialString(e.Serial()))
	}
	w.Resize(w.Position())
	return nil
}

func (s *Store[S, E]) writeSnapshot(ctx context.Context, list []E) (report *SaveReport, err error) {
	start := time.Now()
	opts := s.engine.opts
	cat := s.category

	done := s.takeSerialized()
	stale := 0
	for _, e := range list {
		if _, ok := done[e.Serial()]; ok {
			continue
		}
		if err := s.serializeOne(e); err != nil {
			return nil, eris.Wrapf(err, "serialize %s", cat.Name)
		}
		stale++
	}
	if stale > 0 {
		s.logger.Warn("entities serialized during snapshot", log.Int("entities", stale))
	}

	txn, err := beginSave(opts.Root, cat.Name, opts.Atomic)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			txn.rollback()
		}
	}()

	layout := LayoutFor(txn.dir, cat.Name)
	idxFile, err := createHashed(layout.Index)
	if err != nil {
		return nil, eris.Wrap(err, "create index")
	}
	tdbFile, err := createHashed(layout.Types)
	if err != nil {
		_ = idxFile.close()
		return nil, eris.Wrap(err, "create type table")
	}
	binFile, err := createHashed(layout.Blob)
	if err != nil {
		_ = idxFile.close()
		_ = tdbFile.close()
		return nil, eris.Wrap(err, "create blob")
	}

	report = &SaveReport{
		Category: cat.Name,
		SaveID:   uuid.NewString(),
		Entities: len(list),
		Types:    make(map[string]int),
	}

	err = func() error {
		idx := codec.NewWriter(idxFile)
		tdb := codec.NewWriter(tdbFile)
		bin := blob.NewWriter(binFile)

		codec.WriteCount(idx, len(list))
		for _, e := range list {
			if err := ctx.Err(); err != nil {
				return err
			}
			offset, length, err := bin.Append(e.SaveBuffer().Bytes())
			if err != nil {
				return eris.Wrapf(err, "append %s", cat.serialString(e.Serial()))
			}
			codec.WriteIndexEntry(idx, codec.IndexEntry{
				TypeRef: int32(e.TypeRef()),
				Serial:  cat.ToRaw(e.Serial()),
				Offset:  offset,
				Length:  length,
			}, cat.SerialWidth)
			report.Types[cat.TypeName(e)]++
		}
		report.BlobBytes = bin.Offset()

		codec.WriteTypeTable(tdb, cat.Types.Names())

		if err := bin.Flush(); err != nil {
			return eris.Wrap(err, "flush blob")
		}
		if err := idx.Flush(); err != nil {
			return eris.Wrap(err, "flush index")
		}
		return eris.Wrap(tdb.Flush(), "flush type table")
	}()

	for _, f := range []*hashedFile{idxFile, tdbFile, binFile} {
		if cerr := f.close(); cerr != nil && err == nil {
			err = eris.Wrap(cerr, "close")
		}
	}
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{
		Category: cat.Name,
		SaveID:   report.SaveID,
		SavedAt:  start.UTC(),
		Entities: report.Entities,
		Types:    report.Types,
		Files: map[string]FileDigest{
			filepath.Base(layout.Index): idxFile.digest(),
			filepath.Base(layout.Types): tdbFile.digest(),
			filepath.Base(layout.Blob):  binFile.digest(),
		},
	}
	if err = writeManifest(layout.Manifest, manifest); err != nil {
		return nil, err
	}

	if cat.Legacy != nil {
		if err = txn.retireLegacy(cat.Legacy.FileName); err != nil {
			return nil, eris.Wrap(err, "retire legacy document")
		}
	}
	if err = txn.commit(); err != nil {
		return nil, err
	}

	report.Duration = time.Since(start)
	s.logger.Info("category saved",
		log.String("save_id", report.SaveID),
		log.Time("saved_at", manifest.SavedAt),
		log.Bool("atomic", opts.Atomic),
		log.Int("entities", report.Entities),
		log.Int64("blob_bytes", report.BlobBytes),
		log.Any("types", report.Types),
		log.Duration("duration", report.Duration),
	)
	return report, nil
}
