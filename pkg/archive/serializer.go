package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/glarchive/glarchive/pkg/codec"
)

// Serializer assembles one archive. It owns its staging directory and
// main stream handle exclusively for the session; concurrent use of the
// same target by two sessions is unsupported.
type Serializer struct {
	ctx     context.Context
	backend *backend
	staging string
	main    *os.File
	enc     codec.Encoder
	reg     *Registry

	// memo maps an archived instance to its identity so a shared object
	// is saved at most once per session
	memo   map[interface{}]uint64
	nextID uint64

	// pending holds paths of a prior archive occupying the target,
	// snapshot at open, pruned as side files are allocated, removed at
	// Close (overwrite semantics)
	pending map[string]struct{}

	l      *zap.Logger
	closed bool
}

// NewSerializer opens a write session on target, which may be a local
// path, s3://bucket/prefix or gs://bucket/prefix. The version marker is
// written immediately.
func NewSerializer(ctx context.Context, target string, opts ...Option) (*Serializer, error) {
	o := newSessionOptions(opts)
	b, err := newBackend(ctx, target, o.store, o.logger)
	if err != nil {
		return nil, ErrConstruction.Wrap(err)
	}
	staging, err := b.stageForWrite()
	if err != nil {
		return nil, ErrConstruction.Wrap(err)
	}

	s := &Serializer{
		ctx:     ctx,
		backend: b,
		staging: staging,
		reg:     o.registry,
		memo:    map[interface{}]uint64{},
		pending: map[string]struct{}{},
		l:       o.logger,
	}

	if !b.isRemote() {
		entries, err := os.ReadDir(staging)
		if err != nil {
			return nil, ErrConstruction.Wrap(err)
		}
		for _, e := range entries {
			if e.Name() == VersionFileName || e.Name() == MainStreamFileName {
				continue
			}
			s.pending[filepath.Join(staging, e.Name())] = struct{}{}
		}
	}

	if err := os.WriteFile(filepath.Join(staging, VersionFileName), []byte(CurrentVersion), 0600); err != nil {
		return nil, ErrConstruction.Wrap(err)
	}
	s.main, err = os.Create(filepath.Join(staging, MainStreamFileName))
	if err != nil {
		return nil, ErrConstruction.Wrap(err)
	}
	s.enc = o.cdc.NewEncoder(s.main, s.resolveForWrite)

	s.l.Debug("serializer open",
		zap.String("target", target),
		zap.String("staging", staging),
		zap.String("backend", b.kind.String()))
	return s, nil
}

// Dump appends one top-level value to the main stream. May be called
// several times in one session.
func (s *Serializer) Dump(v interface{}) error {
	if s.closed {
		return ErrClosed
	}
	return s.enc.Encode(v)
}

// resolveForWrite is the reference hook installed on the generic codec.
// An object with both halves of the externally-archivable capability is
// saved to its own side file and replaced inline by a reference tuple;
// anything else encodes inline.
func (s *Serializer) resolveForWrite(v interface{}) (interface{}, bool, error) {
	a, ok := v.(Archivable)
	if !ok {
		return nil, false, nil
	}
	wt, ok := s.reg.tagFor(v)
	if !ok {
		return nil, false, nil
	}

	canMemo := reflect.TypeOf(v).Comparable()
	if canMemo {
		if id, seen := s.memo[v]; seen {
			// already saved in this session, reference by identity only
			return reuseReference(id), true, nil
		}
	}

	rel := uuid.New().String()
	abs := filepath.Join(s.staging, rel)
	delete(s.pending, abs)
	if err := a.SaveArchive(abs); err != nil {
		return nil, false, fmt.Errorf("saving external object to %s: %v", abs, err)
	}

	s.nextID++
	id := s.nextID
	if canMemo {
		s.memo[v] = id
	}
	s.l.Debug("archived external object",
		zap.String("path", rel),
		zap.Uint64("identity", id))
	return fullReference(wt, rel, id), true, nil
}

// Close seals the session: the main stream is closed, a remote target
// receives the staging directory in full, a local target has the stale
// files of any overwritten archive removed. Idempotent. Failed cleanup
// deletions are deferred, never raised.
func (s *Serializer) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.main != nil {
		if err := s.main.Close(); err != nil {
			s.l.Warn("closing main stream", zap.Error(err))
		}
		s.main = nil
	}

	if s.backend.isRemote() {
		// on failure the staging directory survives for manual recovery
		if err := s.backend.commit(s.ctx, s.staging); err != nil {
			return err
		}
		if err := os.RemoveAll(s.staging); err != nil {
			s.l.Warn("could not remove staging directory, deferring",
				zap.String("path", s.staging), zap.Error(err))
			deferDeletion(s.staging)
		}
		return nil
	}

	for p := range s.pending {
		if err := os.RemoveAll(p); err != nil {
			s.l.Warn("could not remove stale archive file, deferring",
				zap.String("path", p), zap.Error(err))
			deferDeletion(p)
		}
	}
	s.pending = nil
	return nil
}
