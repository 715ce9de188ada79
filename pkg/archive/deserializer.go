package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/glarchive/glarchive/pkg/codec"
)

// Deserializer reads one archive. Format detection needs no caller hint:
// directory archives, legacy zip bundles and plain streams are told
// apart at open.
type Deserializer struct {
	backend *backend
	lay     layout
	main    *os.File
	dec     codec.Decoder
	reg     *Registry

	// memo maps a decoded identity to its reconstructed object so every
	// reference to that identity yields the same instance
	memo map[uint64]interface{}

	// tmpFile is a transient single-file download removed at Close.
	// Extracted or downloaded directories are left in place: returned
	// objects may lazily reference files within them.
	tmpFile string

	l      *zap.Logger
	closed bool
}

// Info describes an opened archive.
type Info struct {
	Version       string
	Mode          Mode
	SideArtifacts []string
}

// NewDeserializer opens a read session on source, which may be a local
// path, s3://bucket/prefix or gs://bucket/prefix.
func NewDeserializer(ctx context.Context, source string, opts ...Option) (*Deserializer, error) {
	o := newSessionOptions(opts)
	b, err := newBackend(ctx, source, o.store, o.logger)
	if err != nil {
		return nil, ErrConstruction.Wrap(err)
	}
	localPath, isTmpFile, err := b.stageForRead(ctx)
	if err != nil {
		return nil, err
	}
	lay, err := classifyAndValidate(localPath)
	if err != nil {
		return nil, err
	}

	d := &Deserializer{
		backend: b,
		lay:     lay,
		reg:     o.registry,
		memo:    map[uint64]interface{}{},
		l:       o.logger,
	}
	if isTmpFile {
		d.tmpFile = localPath
	}
	d.main, err = os.Open(lay.mainStream)
	if err != nil {
		return nil, ErrConstruction.Wrap(err)
	}
	d.dec = o.cdc.NewDecoder(d.main, d.resolveForRead)

	d.l.Debug("deserializer open",
		zap.String("source", source),
		zap.String("mode", lay.mode.String()),
		zap.String("version", lay.version))
	return d, nil
}

// Load decodes one top-level value from the main stream. May be called
// repeatedly while stream data remains; io.EOF signals exhaustion. A
// single bad reference aborts the whole call.
func (d *Deserializer) Load() (interface{}, error) {
	if d.closed {
		return nil, ErrClosed
	}
	return d.dec.Decode()
}

// Describe reports the opened archive's version, mode and side-artifact
// names.
func (d *Deserializer) Describe() (Info, error) {
	info := Info{Version: d.lay.version, Mode: d.lay.mode}
	if d.lay.stagingRoot == "" {
		return info, nil
	}
	entries, err := os.ReadDir(d.lay.stagingRoot)
	if err != nil {
		return info, err
	}
	for _, e := range entries {
		switch e.Name() {
		case VersionFileName, MainStreamFileName, legacyMarkerEntry:
			continue
		}
		if filepath.Join(d.lay.stagingRoot, e.Name()) == d.lay.mainStream {
			continue
		}
		info.SideArtifacts = append(info.SideArtifacts, e.Name())
	}
	sort.Strings(info.SideArtifacts)
	return info, nil
}

// resolveForRead is the resolver installed on the generic codec. The
// archive version fixes the tuple arity and dispatch rules; identity
// takes precedence over path so shared and cyclic references reconstruct
// to one instance.
func (d *Deserializer) resolveForRead(raw codec.RawRef) (interface{}, error) {
	ref, err := parseReference(raw)
	if err != nil {
		return nil, err
	}
	if d.lay.mode == ModePlainStream {
		return nil, fmt.Errorf("plain stream carries an external reference")
	}

	if ref.legacy {
		// identity-less tuples predate sharing: dispatch by built-in
		// tag, no memoization
		loader, ok := d.reg.loaderForTag(ref.tag)
		if !ok {
			return nil, ErrUnresolvableReference.Wrap(
				fmt.Errorf("no loader for legacy type tag %q", ref.tag))
		}
		return loader(d.sidePath(ref.relPath))
	}

	if obj, seen := d.memo[ref.id]; seen {
		return obj, nil
	}
	if ref.reuse {
		return nil, fmt.Errorf("reference reuses identity %d before its definition", ref.id)
	}

	var (
		loader LoaderFunc
		ok     bool
	)
	if ref.hasDesc {
		loader, ok = d.reg.loaderForDescriptor(ref.desc)
		if !ok {
			return nil, ErrUnresolvableReference.Wrap(
				fmt.Errorf("no loader registered for %s.%s", ref.desc.Module, ref.desc.Class))
		}
	} else {
		loader, ok = d.reg.loaderForTag(ref.tag)
		if !ok {
			return nil, ErrUnresolvableReference.Wrap(
				fmt.Errorf("no loader for type tag %q", ref.tag))
		}
	}

	obj, err := loader(d.sidePath(ref.relPath))
	if err != nil {
		return nil, err
	}
	d.memo[ref.id] = obj
	return obj, nil
}

func (d *Deserializer) sidePath(rel string) string {
	return filepath.Join(d.lay.stagingRoot, filepath.FromSlash(rel))
}

// Close releases the session. A transient downloaded file is removed;
// staging directories stay because loaded objects may still read from
// them. Idempotent.
func (d *Deserializer) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	if d.main != nil {
		if err := d.main.Close(); err != nil {
			d.l.Warn("closing main stream", zap.Error(err))
		}
		d.main = nil
	}
	if d.tmpFile != "" {
		if fi, err := os.Stat(d.tmpFile); err == nil && !fi.IsDir() {
			if err := os.Remove(d.tmpFile); err != nil {
				d.l.Warn("could not remove transient download, deferring",
					zap.String("path", d.tmpFile), zap.Error(err))
				deferDeletion(d.tmpFile)
			}
		}
		d.tmpFile = ""
	}
	return nil
}
