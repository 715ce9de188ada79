package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/glarchive/glarchive/pkg/storage"
	"github.com/glarchive/glarchive/pkg/storage/gcs"
	"github.com/glarchive/glarchive/pkg/storage/sthree"
)

// Recognized scheme prefixes. Anything else is a local path, expanded
// for user and environment shorthand.
const (
	s3Scheme  = "s3://"
	gcsScheme = "gs://"
)

type backendKind int

const (
	backendLocal backendKind = iota
	backendS3
	backendGCS
)

func (k backendKind) String() string {
	switch k {
	case backendS3:
		return "s3"
	case backendGCS:
		return "gcs"
	default:
		return "local"
	}
}

// backend resolves a target or source string to an actionable local
// staging directory, and moves bytes between that directory and the
// medium the string addresses.
type backend struct {
	kind   backendKind
	bucket string
	prefix string // key prefix within the bucket, slash separated
	local  string // expanded path, local targets only
	store  storage.Store
	l      *zap.Logger
}

// newBackend classifies target and builds the store for it. A non-nil
// store overrides construction of the default client, which lets tests
// and callers with custom credentials substitute their own.
func newBackend(ctx context.Context, target string, store storage.Store, l *zap.Logger) (*backend, error) {
	b := &backend{l: l}
	switch {
	case strings.HasPrefix(target, s3Scheme):
		b.kind = backendS3
		b.bucket, b.prefix = splitBucket(strings.TrimPrefix(target, s3Scheme))
	case strings.HasPrefix(target, gcsScheme):
		b.kind = backendGCS
		b.bucket, b.prefix = splitBucket(strings.TrimPrefix(target, gcsScheme))
	default:
		expanded, err := expandPath(target)
		if err != nil {
			return nil, err
		}
		b.kind = backendLocal
		b.local = expanded
		b.store = store
		return b, nil
	}

	if b.bucket == "" {
		return nil, fmt.Errorf("target %q has no bucket", target)
	}
	if store != nil {
		b.store = store
		return b, nil
	}
	switch b.kind {
	case backendS3:
		b.store = sthree.New(sthree.Bucket(b.bucket))
	case backendGCS:
		var err error
		b.store, err = gcs.New(ctx, b.bucket, gcs.Logger(l))
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

func splitBucket(s string) (bucket, prefix string) {
	s = strings.Trim(s, "/")
	if i := strings.Index(s, "/"); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func expandPath(p string) (string, error) {
	p = os.ExpandEnv(p)
	if p == "~" || strings.HasPrefix(p, "~"+string(os.PathSeparator)) || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
	}
	return filepath.Abs(p)
}

func (b *backend) isRemote() bool {
	return b.kind != backendLocal
}

// key maps a path relative to the staging directory onto a store key.
func (b *backend) key(rel string) string {
	return path.Join(b.prefix, filepath.ToSlash(rel))
}

// stageForWrite allocates the staging directory for a write session.
// Local targets use the target directory itself; a plain file in the way
// is replaced by a directory. Remote targets get a fresh temp directory.
func (b *backend) stageForWrite() (string, error) {
	if b.isRemote() {
		return os.MkdirTemp("", "glarchive-")
	}
	fi, err := os.Stat(b.local)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(b.local, 0700); err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	case !fi.IsDir():
		if err := os.Remove(b.local); err != nil {
			return "", err
		}
		if err := os.MkdirAll(b.local, 0700); err != nil {
			return "", err
		}
	}
	return b.local, nil
}

// commit publishes a fully assembled staging directory to a remote
// target: the prior remote contents under the prefix are cleared, then
// the directory is uploaded in full.
func (b *backend) commit(ctx context.Context, staging string) error {
	keys, err := b.store.Keys(ctx)
	if err != nil {
		return ErrBackendTransfer.Wrap(err)
	}
	for _, k := range keys {
		if !b.ownsKey(k) {
			continue
		}
		b.l.Debug("clearing prior remote object", zap.String("key", k))
		if err := b.store.Delete(ctx, k); err != nil {
			return ErrBackendTransfer.Wrap(err)
		}
	}

	err = filepath.Walk(staging, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(staging, p)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		b.l.Debug("uploading", zap.String("key", b.key(rel)))
		return b.store.Put(ctx, b.key(rel), f, storage.OverWrite)
	})
	if err != nil {
		return ErrBackendTransfer.Wrap(err)
	}
	return nil
}

func (b *backend) ownsKey(k string) bool {
	if b.prefix == "" {
		return true
	}
	return k == b.prefix || strings.HasPrefix(k, b.prefix+"/")
}

// stageForRead resolves the source to a local path. Remote sources are
// downloaded: a single object becomes a transient temp file, a tree
// becomes a temp directory. The second return reports the transient
// single-file case, which Close deletes.
func (b *backend) stageForRead(ctx context.Context) (string, bool, error) {
	if !b.isRemote() {
		if _, err := os.Stat(b.local); err != nil {
			return "", false, ErrConstruction.Wrap(err)
		}
		return b.local, false, nil
	}

	// a single remote object is a bundle or plain stream
	has, err := b.store.Has(ctx, b.prefix)
	if err != nil {
		return "", false, ErrBackendTransfer.Wrap(err)
	}
	if has {
		tmp, err := os.CreateTemp("", "glarchive-")
		if err != nil {
			return "", false, ErrConstruction.Wrap(err)
		}
		if err := b.download(ctx, b.prefix, tmp); err != nil {
			tmp.Close()
			return "", false, err
		}
		if err := tmp.Close(); err != nil {
			return "", false, ErrBackendTransfer.Wrap(err)
		}
		return tmp.Name(), true, nil
	}

	// otherwise a directory tree
	keys, err := b.store.Keys(ctx)
	if err != nil {
		return "", false, ErrBackendTransfer.Wrap(err)
	}
	var owned []string
	for _, k := range keys {
		if b.ownsKey(k) {
			owned = append(owned, k)
		}
	}
	if len(owned) == 0 {
		return "", false, ErrConstruction.Wrap(
			fmt.Errorf("no archive at %s://%s/%s", b.kind, b.bucket, b.prefix))
	}
	staging, err := os.MkdirTemp("", "glarchive-")
	if err != nil {
		return "", false, ErrConstruction.Wrap(err)
	}
	for _, k := range owned {
		rel := strings.TrimPrefix(k, b.prefix)
		rel = strings.TrimPrefix(rel, "/")
		target := filepath.Join(staging, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
			return "", false, ErrConstruction.Wrap(err)
		}
		f, err := os.Create(target)
		if err != nil {
			return "", false, ErrConstruction.Wrap(err)
		}
		if err := b.download(ctx, k, f); err != nil {
			f.Close()
			return "", false, err
		}
		if err := f.Close(); err != nil {
			return "", false, ErrBackendTransfer.Wrap(err)
		}
	}
	return staging, false, nil
}

func (b *backend) download(ctx context.Context, key string, dst *os.File) error {
	rdr, err := b.store.Get(ctx, key)
	if err != nil {
		return ErrBackendTransfer.Wrap(err)
	}
	defer rdr.Close()
	b.l.Debug("downloading", zap.String("key", key))
	if _, err := storage.PipeIO(dst, rdr); err != nil {
		return ErrBackendTransfer.Wrap(err)
	}
	return nil
}
